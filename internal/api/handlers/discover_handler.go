package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/inferahq/infera/internal/core"
)

const discoverResultCount = 10

type DiscoverHandler struct {
	notebooks *NotebookHandler
	search    core.SearchProvider
	log       *zap.Logger
}

func NewDiscoverHandler(notebooks *NotebookHandler, search core.SearchProvider, log *zap.Logger) *DiscoverHandler {
	return &DiscoverHandler{notebooks: notebooks, search: search, log: log}
}

type discoverRequest struct {
	Query string `json:"query"`
}

// Discover returns web candidates for a topic. Accepted candidates come back
// through the ordinary website-source endpoint.
func (h *DiscoverHandler) Discover(w http.ResponseWriter, r *http.Request) {
	nb := h.notebooks.owned(w, r)
	if nb == nil {
		return
	}
	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.search.Search(r.Context(), strings.TrimSpace(req.Query), discoverResultCount)
	if err != nil {
		h.log.Error("discover search", zap.Error(err))
		writeError(w, http.StatusBadGateway, "search unavailable")
		return
	}
	if results == nil {
		results = []core.SearchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}
