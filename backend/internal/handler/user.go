package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/threadline-dev/threadline/shared/api"
	"github.com/threadline-dev/threadline/shared/domain"
	"github.com/threadline-dev/threadline/shared/utils"
)

// Onboard creates or updates the profile of the signed-in user.
func (h *Handler) Onboard(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var body api.OnboardRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	profile, err := h.user.Onboard(r.Context(), domain.UserProfileData{
		Id:       user.Id,
		Username: body.Username,
		Name:     body.Name,
		Image:    body.Image,
		Bio:      body.Bio,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, profile)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.user.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, user)
}

func (h *Handler) UserConvos(w http.ResponseWriter, r *http.Request) {
	convos, err := h.user.Convos(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.TimelineResponse{Convos: convos})
}
