package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/threadline-dev/threadline/shared/api"
	"github.com/threadline-dev/threadline/shared/domain"
	"github.com/threadline-dev/threadline/shared/utils"
)

func (h *Handler) CreateCommunity(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var body api.CreateCommunityRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	community, err := h.community.Create(r.Context(), domain.CommunityCreationData{
		Slug:      body.Slug,
		Name:      body.Name,
		Image:     body.Image,
		Bio:       body.Bio,
		CreatedBy: user.Id,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, community)
}

func (h *Handler) GetCommunity(w http.ResponseWriter, r *http.Request) {
	community, err := h.community.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, community)
}

func (h *Handler) CommunityConvos(w http.ResponseWriter, r *http.Request) {
	convos, err := h.community.Convos(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, api.TimelineResponse{Convos: convos})
}
