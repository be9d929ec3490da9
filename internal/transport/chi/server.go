// Package chi exposes the question-answering pipeline over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sai-aakash/ragserve/internal/domain"
	answeruc "github.com/sai-aakash/ragserve/internal/usecase/answer"
	statusuc "github.com/sai-aakash/ragserve/internal/usecase/status"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the body of a successful POST /api/chat.
type ChatResponse struct {
	Answer    string   `json:"answer"`
	SessionID string   `json:"session_id"`
	Sources   []string `json:"sources"`
}

// RootResponse is the body of GET /.
type RootResponse struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	RAGInitialized bool   `json:"rag_initialized"`
}

// BannerResponse is the body of GET /health.
type BannerResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	APIStatus         string `json:"api_status"`
	RAGInitialized    bool   `json:"rag_initialized"`
	ModelLoaded       bool   `json:"model_loaded"`
	VectorStoreLoaded bool   `json:"vector_store_loaded"`
}

// ErrorResponse is the body of any non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server holds the HTTP handlers for the API.
type Server struct {
	answers *answeruc.Service
	status  *statusuc.Service
	logger  *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(answers *answeruc.Service, status *statusuc.Service, logger *zap.Logger) *Server {
	return &Server{answers: answers, status: status, logger: logger}
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/", s.Root)
	r.Get("/health", s.HealthCheck)
	r.Get("/api/status", s.GetStatus)
	r.Post("/api/chat", s.Chat)
	r.Get("/metrics", s.Metrics)
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Status:         "success",
		Message:        "RAG Chatbot API is running",
		RAGInitialized: s.answers.Ready(),
	})
}

// HealthCheck handles GET /health. Returns 503 until every pipeline
// component is available.
func (s *Server) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	if !s.answers.Ready() {
		writeError(w, http.StatusServiceUnavailable, "RAG components not initialized")
		return
	}

	writeJSON(w, http.StatusOK, BannerResponse{
		Status:  "healthy",
		Message: "All systems operational",
	})
}

// GetStatus handles GET /api/status. Always 200: the point is to show
// which components are missing, not to fail.
func (s *Server) GetStatus(w http.ResponseWriter, _ *http.Request) {
	report := s.status.Check()

	writeJSON(w, http.StatusOK, StatusResponse{
		APIStatus:         "running",
		RAGInitialized:    report.RAGInitialized,
		ModelLoaded:       report.ModelLoaded,
		VectorStoreLoaded: report.VectorStoreLoaded,
	})
}

// Chat handles POST /api/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	res, err := s.answers.Answer(r.Context(), req.Prompt, req.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotReady) {
			writeError(w, http.StatusServiceUnavailable,
				"RAG system not initialized. Please check your configuration.")
			return
		}
		s.logger.Error("Failed to process chat request", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error processing request")
		return
	}

	sources := res.Sources
	if sources == nil {
		sources = []string{}
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Answer:    res.Answer,
		SessionID: res.SessionID,
		Sources:   sources,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
