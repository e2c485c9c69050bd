package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/inferahq/infera/internal/models"
	"github.com/inferahq/infera/internal/services"
)

type NoteHandler struct {
	notebooks *NotebookHandler
	notes     *services.NoteService
	log       *zap.Logger
}

func NewNoteHandler(notebooks *NotebookHandler, notes *services.NoteService, log *zap.Logger) *NoteHandler {
	return &NoteHandler{notebooks: notebooks, notes: notes, log: log}
}

type createNoteRequest struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

// Create returns 202 with the PROCESSING note; the title and expanded
// content land asynchronously.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	nb := h.notebooks.owned(w, r)
	if nb == nil {
		return
	}
	var req createNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.Type == "" {
		req.Type = models.NoteTypeText
	}

	note, err := h.notes.Create(r.Context(), nb, strings.TrimSpace(req.Content), req.Type)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, note)
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	nb := h.notebooks.owned(w, r)
	if nb == nil {
		return
	}
	notes, err := h.notes.List(r.Context(), nb.ID)
	if err != nil {
		h.log.Error("list notes", zap.String("notebook_id", nb.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	nb := h.notebooks.owned(w, r)
	if nb == nil {
		return
	}
	noteID := r.URL.Query().Get("noteId")
	if noteID == "" {
		writeError(w, http.StatusBadRequest, "noteId is required")
		return
	}
	if err := h.notes.Delete(r.Context(), nb, noteID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
