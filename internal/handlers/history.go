package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"docchat-ai/internal/attribution"
	"docchat-ai/internal/contextutil"
	"docchat-ai/internal/history"
)

// HistoryHandler exposes the conversation history and its statistics.
type HistoryHandler struct {
	tracker *history.Tracker
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(tracker *history.Tracker) *HistoryHandler {
	return &HistoryHandler{tracker: tracker}
}

// List handles GET requests for recent history. The optional "limit" query
// parameter bounds the number of entries; unset or non-positive returns all.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	entries := h.tracker.Recent(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": h.tracker.SessionID(),
		"entries":    entries,
		"total":      len(entries),
	})
}

// Stats handles GET requests for session statistics.
func (h *HistoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Stats())
}

// Sources handles GET requests for the most cited sources. The optional
// "limit" query parameter defaults to 10.
func (h *HistoryHandler) Sources(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sources": h.tracker.MostCitedSources(limit),
	})
}

// RegenerateRequest asks for a response's citations in a different style.
type RegenerateRequest struct {
	ResponseID    string `json:"response_id"`
	CitationStyle string `json:"citation_style"`
}

// Regenerate handles POST requests that rebuild a stored response's citations
// in a new style. The response keeps its identity and text.
func (h *HistoryHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req RegenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ResponseID == "" {
		writeError(w, http.StatusBadRequest, "response_id is required")
		return
	}

	style, err := attribution.ParseCitationStyle(req.CitationStyle)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, ok := h.tracker.RegenerateWithStyle(req.ResponseID, style)
	if !ok {
		writeError(w, http.StatusNotFound, "Response not found")
		return
	}

	logger.InfoContext(ctx, "citations regenerated", "response_id", req.ResponseID, "style", style)
	writeJSON(w, http.StatusOK, resp)
}

// Export handles GET requests that serialize the session history. The
// optional "format" query parameter accepts "json" (default) or "text".
func (h *HistoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")

	out, err := h.tracker.Export(format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export history")
		return
	}

	contentType := "application/json"
	if format != "" && format != "json" {
		contentType = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

// Clear handles DELETE requests that wipe the session history.
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	h.tracker.Clear()
	logger.InfoContext(ctx, "history cleared", "session_id", h.tracker.SessionID())
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}
