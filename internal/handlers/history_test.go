package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"docchat-ai/internal/attribution"
	"docchat-ai/internal/history"
)

func newTrackedHistory(t *testing.T) (*HistoryHandler, *history.Tracker, string) {
	t.Helper()

	manager := attribution.NewManager()
	tracker := history.NewTracker(manager)

	docID := manager.GenerateDocumentID("guide.md")
	meta := manager.TrackDocumentChunk(docID, "Paris is the capital of France.", "guide.md", "/staging/guide.md", nil, "Geography", "")
	resp := manager.CreateAttributedResponse("Paris.", []string{meta.ChunkID}, attribution.StyleAPA)
	tracker.Append("capital of France?", resp)

	return NewHistoryHandler(tracker), tracker, resp.ResponseID
}

func TestHistoryHandler_List(t *testing.T) {
	handler, _, _ := newTrackedHistory(t)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	w := httptest.NewRecorder()
	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		SessionID string          `json:"session_id"`
		Entries   []history.Entry `json:"entries"`
		Total     int             `json:"total"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Total != 1 {
		t.Errorf("total = %d, want 1", body.Total)
	}
	if body.SessionID == "" {
		t.Error("session_id missing from response")
	}
	if len(body.Entries) != 1 || body.Entries[0].Question != "capital of France?" {
		t.Errorf("unexpected entries: %+v", body.Entries)
	}
}

func TestHistoryHandler_ListInvalidLimit(t *testing.T) {
	handler, _, _ := newTrackedHistory(t)

	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=ten", nil)
	w := httptest.NewRecorder()
	handler.List(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHistoryHandler_Stats(t *testing.T) {
	handler, _, _ := newTrackedHistory(t)

	req := httptest.NewRequest(http.MethodGet, "/api/history/stats", nil)
	w := httptest.NewRecorder()
	handler.Stats(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var stats history.Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stats.TotalResponses != 1 {
		t.Errorf("TotalResponses = %d, want 1", stats.TotalResponses)
	}
}

func TestHistoryHandler_Regenerate(t *testing.T) {
	handler, _, responseID := newTrackedHistory(t)

	body, _ := json.Marshal(RegenerateRequest{ResponseID: responseID, CitationStyle: "mla"})
	req := httptest.NewRequest(http.MethodPost, "/api/history/citations", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	handler.Regenerate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp attribution.AttributedResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ResponseID != responseID {
		t.Errorf("ResponseID = %q, want %q", resp.ResponseID, responseID)
	}
	if len(resp.Citations) != 1 || resp.Citations[0].Style != attribution.StyleMLA {
		t.Errorf("citations not restyled: %+v", resp.Citations)
	}
}

func TestHistoryHandler_RegenerateUnknownResponse(t *testing.T) {
	handler, _, _ := newTrackedHistory(t)

	body, _ := json.Marshal(RegenerateRequest{ResponseID: "missing", CitationStyle: "apa"})
	req := httptest.NewRequest(http.MethodPost, "/api/history/citations", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	handler.Regenerate(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHistoryHandler_RegenerateValidation(t *testing.T) {
	handler, _, responseID := newTrackedHistory(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "bad json", body: "{oops"},
		{name: "missing response id", body: `{"citation_style":"apa"}`},
		{name: "bad style", body: `{"response_id":"` + responseID + `","citation_style":"harvard"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/history/citations", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			handler.Regenerate(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestHistoryHandler_ExportAndClear(t *testing.T) {
	handler, tracker, _ := newTrackedHistory(t)

	req := httptest.NewRequest(http.MethodGet, "/api/history/export", nil)
	w := httptest.NewRecorder()
	handler.Export(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var export history.Export
	if err := json.NewDecoder(w.Body).Decode(&export); err != nil {
		t.Fatalf("failed to decode export: %v", err)
	}
	if export.TotalResponses != 1 {
		t.Errorf("TotalResponses = %d, want 1", export.TotalResponses)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/history", nil)
	w = httptest.NewRecorder()
	handler.Clear(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("clear status = %d, want %d", w.Code, http.StatusOK)
	}
	if len(tracker.Recent(0)) != 0 {
		t.Error("history should be empty after clear")
	}
}
