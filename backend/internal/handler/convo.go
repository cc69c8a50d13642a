package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/threadline-dev/threadline/shared/api"
	"github.com/threadline-dev/threadline/shared/domain"
	"github.com/threadline-dev/threadline/shared/utils"
)

func (h *Handler) CreateConvo(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var body api.CreateConvoRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	id, err := h.convo.Create(r.Context(), domain.ConvoCreationData{
		Text:        body.Text,
		AuthorId:    user.Id,
		CommunityId: body.CommunityId,
		Path:        body.Path,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, api.CreatedResponse{Id: id})
}

func (h *Handler) AddReply(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var body api.AddReplyRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	id, err := h.convo.AddReply(r.Context(), domain.ConvoCreationData{
		Text:     body.Text,
		AuthorId: user.Id,
		ParentId: chi.URLParam(r, "id"),
		Path:     body.Path,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, api.CreatedResponse{Id: id})
}

func (h *Handler) GetConvo(w http.ResponseWriter, r *http.Request) {
	convo, err := h.convo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, convo)
}

func (h *Handler) ListConvos(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := h.pageParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.convo.List(r.Context(), page, pageSize)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, result)
}

// DeleteConvo removes the convo and all of its replies. The optional path query
// parameter names the view to drop from the cache.
func (h *Handler) DeleteConvo(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	report, err := h.convo.DeleteAs(r.Context(), *user, chi.URLParam(r, "id"), r.URL.Query().Get("path"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeJSON(w, api.DeleteConvoResponse{
		Id:          report.ConvoId,
		Deleted:     report.Closure,
		Authors:     report.Authors,
		Communities: report.Communities,
	})
}
