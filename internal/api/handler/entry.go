package handler

import (
	"net/http"

	"github.com/kilohana/platform/internal/api/middleware"
	"github.com/kilohana/platform/internal/api/request"
	"github.com/kilohana/platform/internal/api/response"
	"github.com/kilohana/platform/internal/core"
)

type EntryHandler struct {
	entries *core.EntryService
}

func NewEntryHandler(entries *core.EntryService) *EntryHandler {
	return &EntryHandler{entries: entries}
}

type createEntryRequest struct {
	Q1       string  `json:"q1" validate:"required"`
	Q2       *string `json:"q2"`
	Q3       *string `json:"q3"`
	Location *string `json:"location"`
}

func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := middleware.GetAuthUser(r.Context())
	entry, err := h.entries.Create(r.Context(), user.ID, core.EntryInput{
		Q1:       req.Q1,
		Q2:       req.Q2,
		Q3:       req.Q3,
		Location: req.Location,
	})
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]any{"entry": entry})
}

func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetAuthUser(r.Context())

	entries, err := h.entries.ListForAccount(r.Context(), user.ID)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
