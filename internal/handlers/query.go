package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"docchat-ai/internal/attribution"
	"docchat-ai/internal/config"
	"docchat-ai/internal/contextutil"
	"docchat-ai/internal/rag"
)

// QueryHandler handles attributed query requests.
type QueryHandler struct {
	engine   rag.Engine
	defaults config.AttributionConfig
}

// NewQueryHandler creates a new QueryHandler. defaults fill in any request
// fields the client leaves unset.
func NewQueryHandler(engine rag.Engine, defaults config.AttributionConfig) *QueryHandler {
	return &QueryHandler{engine: engine, defaults: defaults}
}

// QueryRequest represents the HTTP request payload for attributed queries.
type QueryRequest struct {
	Question      string  `json:"question"`
	CitationStyle string  `json:"citation_style,omitempty"`
	MaxSources    int     `json:"max_sources,omitempty"`
	MinConfidence float64 `json:"min_confidence,omitempty"`
}

// ServeHTTP handles POST requests for attributed queries. The response body
// is the full attributed query result: answer text, source metadata,
// citations, and the confidence breakdown.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		logger.WarnContext(ctx, "empty question in request")
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}

	styleName := req.CitationStyle
	if styleName == "" {
		styleName = h.defaults.CitationStyle
	}
	style, err := attribution.ParseCitationStyle(styleName)
	if err != nil {
		logger.WarnContext(ctx, "invalid citation style", "style", req.CitationStyle)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	maxSources := req.MaxSources
	if maxSources == 0 {
		maxSources = h.defaults.MaxSources
	}
	minConfidence := req.MinConfidence
	if minConfidence == 0 {
		minConfidence = h.defaults.MinConfidence
	}

	result := h.engine.Ask(ctx, rag.QueryRequest{
		Query:         req.Question,
		CitationStyle: style,
		MaxSources:    maxSources,
		MinConfidence: minConfidence,
	})

	writeJSON(w, http.StatusOK, result)
}
