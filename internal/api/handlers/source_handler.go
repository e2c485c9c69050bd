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

const maxUploadBytes = 50 << 20

type SourceHandler struct {
	notebooks *NotebookHandler
	sources   *services.SourceService
	log       *zap.Logger
}

func NewSourceHandler(notebooks *NotebookHandler, sources *services.SourceService, log *zap.Logger) *SourceHandler {
	return &SourceHandler{notebooks: notebooks, sources: sources, log: log}
}

type createSourceRequest struct {
	Type string `json:"type"`
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Create accepts either a multipart file upload or a JSON body describing a
// website, YouTube or pasted-text source. Ingestion is asynchronous; the
// response carries the UPLOADING row.
func (h *SourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	nb := h.notebooks.owned(w, r)
	if nb == nil {
		return
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		h.createFromFile(w, r, nb)
		return
	}

	var req createSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	var (
		src *models.Source
		err error
	)
	switch req.Type {
	case models.SourceTypeWebsite, models.SourceTypeYoutube:
		src, err = h.sources.CreateFromURL(r.Context(), nb, req.Type, req.URL)
	case models.SourceTypeText:
		src, err = h.sources.CreateFromText(r.Context(), nb, req.Text)
	default:
		writeError(w, http.StatusBadRequest, "type must be website, youtube or text")
		return
	}
	if err != nil {
		h.respondCreateError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, src)
}

func (h *SourceHandler) createFromFile(w http.ResponseWriter, r *http.Request, nb *models.Notebook) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	src, err := h.sources.CreateFromFile(r.Context(), nb, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.respondCreateError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, src)
}

func (h *SourceHandler) respondCreateError(w http.ResponseWriter, err error) {
	h.log.Warn("source rejected", zap.Error(err))
	writeServiceError(w, err)
}

func (h *SourceHandler) List(w http.ResponseWriter, r *http.Request) {
	nb := h.notebooks.owned(w, r)
	if nb == nil {
		return
	}
	sources, err := h.sources.List(r.Context(), nb.ID)
	if err != nil {
		h.log.Error("list sources", zap.String("notebook_id", nb.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if sources == nil {
		sources = []models.Source{}
	}
	writeJSON(w, http.StatusOK, sources)
}

type renameSourceRequest struct {
	Title string `json:"title"`
}

func (h *SourceHandler) Rename(w http.ResponseWriter, r *http.Request) {
	nb := h.notebooks.owned(w, r)
	if nb == nil {
		return
	}
	var req renameSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	src, err := h.sources.Rename(r.Context(), nb, chi.URLParam(r, "sourceId"), strings.TrimSpace(req.Title))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (h *SourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	nb := h.notebooks.owned(w, r)
	if nb == nil {
		return
	}
	if err := h.sources.Delete(r.Context(), nb, chi.URLParam(r, "sourceId")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
