package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"docchat-ai/internal/attribution"
	"docchat-ai/internal/config"
	"docchat-ai/internal/rag"
	"docchat-ai/internal/rag/mocks"
)

var testDefaults = config.AttributionConfig{
	CitationStyle: "apa",
	MaxSources:    5,
	MinConfidence: 0.3,
}

func TestQueryHandler_MethodNotAllowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handler := NewQueryHandler(mocks.NewMockEngine(ctrl), testDefaults)

	req := httptest.NewRequest(http.MethodGet, "/api/query", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestQueryHandler_InvalidBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handler := NewQueryHandler(mocks.NewMockEngine(ctrl), testDefaults)

	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestQueryHandler_EmptyQuestion(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handler := NewQueryHandler(mocks.NewMockEngine(ctrl), testDefaults)

	body, _ := json.Marshal(QueryRequest{Question: "   "})
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestQueryHandler_InvalidCitationStyle(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handler := NewQueryHandler(mocks.NewMockEngine(ctrl), testDefaults)

	body, _ := json.Marshal(QueryRequest{Question: "q", CitationStyle: "harvard"})
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestQueryHandler_AppliesDefaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := mocks.NewMockEngine(ctrl)
	engine.EXPECT().
		Ask(gomock.Any(), rag.QueryRequest{
			Query:         "What is up?",
			CitationStyle: attribution.StyleAPA,
			MaxSources:    5,
			MinConfidence: 0.3,
		}).
		Return(rag.AttributedQueryResult{
			Response: attribution.AttributedResponse{ResponseText: "Not much."},
			Query:    "What is up?",
		})

	handler := NewQueryHandler(engine, testDefaults)

	body, _ := json.Marshal(QueryRequest{Question: "What is up?"})
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result rag.AttributedQueryResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Response.ResponseText != "Not much." {
		t.Errorf("ResponseText = %q, want %q", result.Response.ResponseText, "Not much.")
	}
}

func TestQueryHandler_PerRequestOverrides(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := mocks.NewMockEngine(ctrl)
	engine.EXPECT().
		Ask(gomock.Any(), rag.QueryRequest{
			Query:         "q",
			CitationStyle: attribution.StyleIEEE,
			MaxSources:    8,
			MinConfidence: 0.5,
		}).
		Return(rag.AttributedQueryResult{})

	handler := NewQueryHandler(engine, testDefaults)

	body, _ := json.Marshal(QueryRequest{
		Question:      "q",
		CitationStyle: "ieee",
		MaxSources:    8,
		MinConfidence: 0.5,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
