package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/inferahq/infera/internal/core/generate"
	"github.com/inferahq/infera/internal/models"
)

type AudioHandler struct {
	notebooks *NotebookHandler
	podcasts  *generate.PodcastGenerator
	log       *zap.Logger
}

func NewAudioHandler(notebooks *NotebookHandler, podcasts *generate.PodcastGenerator, log *zap.Logger) *AudioHandler {
	return &AudioHandler{notebooks: notebooks, podcasts: podcasts, log: log}
}

type audioOverviewRequest struct {
	SourceIDs []string `json:"source_ids"`
}

// Create kicks off the audio overview job and returns immediately; clients
// poll the notebook's audio status.
func (h *AudioHandler) Create(w http.ResponseWriter, r *http.Request) {
	nb := h.notebooks.owned(w, r)
	if nb == nil {
		return
	}
	var req audioOverviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if len(req.SourceIDs) == 0 {
		writeError(w, http.StatusBadRequest, "at least one source must be selected")
		return
	}

	go func() {
		bg, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()
		if err := h.podcasts.Generate(bg, nb, req.SourceIDs); err != nil {
			h.log.Error("audio overview", zap.String("notebook_id", nb.ID), zap.Error(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": models.NoteStatusProcessing})
}
