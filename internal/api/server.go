// Package api exposes the retrieval pipeline over HTTP. Handlers are thin:
// decode, delegate to the pipeline, encode. Chat paths always answer 200
// with a well-formed payload; maintenance paths may return structured
// errors.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/complykit/ragserver/internal/pipeline"
)

// Service is the pipeline surface the HTTP layer depends on.
type Service interface {
	Ingest(ctx context.Context, text string) (*pipeline.IngestResult, error)
	Answer(ctx context.Context, query string, topK int) *pipeline.AnswerResult
	AssessRisk(ctx context.Context, query, extraContext string, topK int) *pipeline.RiskResult
	Reset(ctx context.Context) error
	Stats(ctx context.Context) (*pipeline.Stats, error)
}

// Server holds handler dependencies.
type Server struct {
	service Service
	health  HealthChecker
	logger  *slog.Logger
}

// NewServer creates an HTTP server facade over the pipeline.
func NewServer(service Service, health HealthChecker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{service: service, health: health, logger: logger}
}

// Routes builds the full handler with permissive CORS, mirroring the
// service surface: chat, risk assessment, ingestion and maintenance.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /risk-assessment", s.handleRiskAssessment)
	mux.HandleFunc("POST /ingest", s.handleIngest)
	mux.HandleFunc("GET /knowledge-stats", s.handleStats)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("GET /health", NewHealthHandler(s.health))
	return withCORS(mux)
}

type chatRequest struct {
	Message string `json:"message"`
	TopK    int    `json:"top_k"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	result := s.service.Answer(r.Context(), req.Message, req.TopK)
	writeJSON(w, http.StatusOK, result)
}

type riskRequest struct {
	Query       string `json:"query"`
	TextContent string `json:"text_content"`
	TopK        int    `json:"top_k"`
}

func (s *Server) handleRiskAssessment(w http.ResponseWriter, r *http.Request) {
	var req riskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	result := s.service.AssessRisk(r.Context(), req.Query, req.TextContent, req.TopK)
	writeJSON(w, http.StatusOK, result)
}

type ingestRequest struct {
	Text string `json:"text"`
}

type ingestResponse struct {
	Message      string `json:"message"`
	ChunksStored int    `json:"chunks_stored"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	result, err := s.service.Ingest(r.Context(), req.Text)
	if err != nil {
		s.logger.Error("ingest failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to ingest document"})
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Message:      "Document processed successfully.",
		ChunksStored: result.ChunksStored,
	})
}

type statsResponse struct {
	TotalChunks       uint64 `json:"total_chunks"`
	KnowledgeBaseSize string `json:"knowledge_base_size"`
	Status            string `json:"status"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to retrieve knowledge statistics"})
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalChunks:       stats.TotalChunks,
		KnowledgeBaseSize: formatSize(stats.TotalChunks),
		Status:            stats.Status,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Reset(r.Context()); err != nil {
		s.logger.Error("reset failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to reset knowledge base"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Knowledge base reset."})
}

func formatSize(count uint64) string {
	if count == 1 {
		return "1 knowledge chunk"
	}
	return strconv.FormatUint(count, 10) + " knowledge chunks"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// withCORS applies a permissive CORS policy; the UI is served from a
// different origin.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
