package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/inferahq/infera/internal/core"
	"github.com/inferahq/infera/internal/core/generate"
	"github.com/inferahq/infera/internal/models"
)

type ChatHandler struct {
	notebooks *NotebookHandler
	db        core.DbClient
	responder *generate.ChatResponder
	log       *zap.Logger
}

func NewChatHandler(notebooks *NotebookHandler, db core.DbClient, responder *generate.ChatResponder, log *zap.Logger) *ChatHandler {
	return &ChatHandler{notebooks: notebooks, db: db, responder: responder, log: log}
}

type chatRequest struct {
	Message   string   `json:"message"`
	SourceIDs []string `json:"source_ids"`
}

// Ask answers one chat turn synchronously: the response body is the
// persisted assistant message.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	nb := h.notebooks.owned(w, r)
	if nb == nil {
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.responder.Respond(r.Context(), nb, req.SourceIDs, strings.TrimSpace(req.Message))
	if err != nil {
		h.log.Error("chat turn", zap.String("notebook_id", nb.ID), zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	nb := h.notebooks.owned(w, r)
	if nb == nil {
		return
	}
	msgs, err := h.db.ListChatMessages(r.Context(), nb.ID)
	if err != nil {
		h.log.Error("chat history", zap.String("notebook_id", nb.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}
