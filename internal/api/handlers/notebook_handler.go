package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/inferahq/infera/internal/models"
	"github.com/inferahq/infera/internal/services"
)

type NotebookHandler struct {
	notebooks *services.NotebookService
	log       *zap.Logger
}

func NewNotebookHandler(notebooks *services.NotebookService, log *zap.Logger) *NotebookHandler {
	return &NotebookHandler{notebooks: notebooks, log: log}
}

// owned resolves the {id} URL param into the caller's notebook, writing the
// error response itself on failure.
func (h *NotebookHandler) owned(w http.ResponseWriter, r *http.Request) *models.Notebook {
	uid, ok := userID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return nil
	}
	nb, err := h.notebooks.GetOwned(r.Context(), chi.URLParam(r, "id"), uid)
	if err != nil {
		writeServiceError(w, err)
		return nil
	}
	return nb
}

type createNotebookRequest struct {
	Title string `json:"title"`
}

func (h *NotebookHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	var req createNotebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	nb, err := h.notebooks.Create(r.Context(), uid, strings.TrimSpace(req.Title))
	if err != nil {
		h.log.Error("create notebook", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, nb)
}

func (h *NotebookHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	notebooks, err := h.notebooks.ListByUser(r.Context(), uid)
	if err != nil {
		h.log.Error("list notebooks", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if notebooks == nil {
		notebooks = []models.Notebook{}
	}
	writeJSON(w, http.StatusOK, notebooks)
}

func (h *NotebookHandler) Get(w http.ResponseWriter, r *http.Request) {
	nb := h.owned(w, r)
	if nb == nil {
		return
	}
	writeJSON(w, http.StatusOK, nb)
}

func (h *NotebookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	nb := h.owned(w, r)
	if nb == nil {
		return
	}
	if err := h.notebooks.Delete(r.Context(), nb); err != nil {
		h.log.Error("delete notebook", zap.String("notebook_id", nb.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
