package handler

import (
	"context"
	"net/http"

	"github.com/threadline-dev/threadline/backend/internal/service"
	"github.com/threadline-dev/threadline/shared/config"
	"github.com/threadline-dev/threadline/shared/domain"
	mw "github.com/threadline-dev/threadline/shared/middleware"
	"github.com/threadline-dev/threadline/shared/utils"
)

// HealthChecker is implemented by the storage.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	convo     service.ConvoService
	user      service.UserService
	community service.CommunityService
	cfg       *config.Config
	health    HealthChecker
}

func New(convo service.ConvoService, user service.UserService, community service.CommunityService, cfg *config.Config, health HealthChecker) *Handler {
	return &Handler{
		convo:     convo,
		user:      user,
		community: community,
		cfg:       cfg,
		health:    health,
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	utils.WriteJSON(w, http.StatusOK, v)
}

// requireUser returns the authenticated user or writes 401.
func requireUser(w http.ResponseWriter, r *http.Request) *domain.User {
	user := mw.GetUserFromContext(r)
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
	return user
}
