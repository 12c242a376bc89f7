package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complykit/ragserver/internal/generator"
	"github.com/complykit/ragserver/internal/pipeline"
	"github.com/complykit/ragserver/internal/storage"
)

type fakeService struct {
	statsErr error
	resetErr error
}

func (f *fakeService) Ingest(_ context.Context, _ string) (*pipeline.IngestResult, error) {
	return &pipeline.IngestResult{ChunksStored: 2}, nil
}

func (f *fakeService) Answer(_ context.Context, query string, _ int) *pipeline.AnswerResult {
	return &pipeline.AnswerResult{
		Response: "answer to " + query,
		Sources:  []storage.ScoredChunk{{Content: "a chunk", Similarity: 0.9}},
	}
}

func (f *fakeService) AssessRisk(_ context.Context, _, _ string, _ int) *pipeline.RiskResult {
	return &pipeline.RiskResult{
		RiskAssessment: generator.RiskAssessment{Analysis: "fine", RiskLevel: "LOW"},
		Sources:        []storage.ScoredChunk{},
	}
}

func (f *fakeService) Reset(_ context.Context) error { return f.resetErr }

func (f *fakeService) Stats(_ context.Context) (*pipeline.Stats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return &pipeline.Stats{TotalChunks: 5, Status: "ready"}, nil
}

type okHealth struct{}

func (okHealth) Health(context.Context) error { return nil }

type downHealth struct{}

func (downHealth) Health(context.Context) error { return errors.New("unreachable") }

func newTestServer(service Service, health HealthChecker) http.Handler {
	return NewServer(service, health, nil).Routes()
}

func TestHandleChat(t *testing.T) {
	h := newTestServer(&fakeService{}, okHealth{})

	body := strings.NewReader(`{"message": "what is dpdp", "top_k": 1}`)
	req := httptest.NewRequest(http.MethodPost, "/chat", body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result pipeline.AnswerResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, `answer to what is dpdp`, result.Response)
	assert.Len(t, result.Sources, 1)
}

func TestHandleChat_MissingMessage(t *testing.T) {
	h := newTestServer(&fakeService{}, okHealth{})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message": "  "}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChat_InvalidJSON(t *testing.T) {
	h := newTestServer(&fakeService{}, okHealth{})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{broken`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRiskAssessment(t *testing.T) {
	h := newTestServer(&fakeService{}, okHealth{})

	body := strings.NewReader(`{"query": "assess our data collection"}`)
	req := httptest.NewRequest(http.MethodPost, "/risk-assessment", body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result pipeline.RiskResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "LOW", result.RiskLevel)
}

func TestHandleIngest(t *testing.T) {
	h := newTestServer(&fakeService{}, okHealth{})

	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(`{"text": "Consent is required."}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ingestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.ChunksStored)
}

func TestHandleStats(t *testing.T) {
	h := newTestServer(&fakeService{}, okHealth{})

	req := httptest.NewRequest(http.MethodGet, "/knowledge-stats", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(5), resp.TotalChunks)
	assert.Equal(t, "5 knowledge chunks", resp.KnowledgeBaseSize)
	assert.Equal(t, "ready", resp.Status)
}

func TestHandleStats_Error(t *testing.T) {
	h := newTestServer(&fakeService{statsErr: errors.New("store down")}, okHealth{})

	req := httptest.NewRequest(http.MethodGet, "/knowledge-stats", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(&fakeService{}, okHealth{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "connected", resp.Store)
}

func TestHealthEndpoint_Unhealthy(t *testing.T) {
	h := newTestServer(&fakeService{}, downHealth{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(&fakeService{}, okHealth{})

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
