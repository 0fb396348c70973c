// Package api implements the HTTP interface for submitting log entries.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mcnewcp/phda-logger/internal/agent"
	"github.com/mcnewcp/phda-logger/internal/buildinfo"
	"github.com/mcnewcp/phda-logger/internal/llm"
	"github.com/mcnewcp/phda-logger/internal/memory"
)

// Server is the HTTP API server.
type Server struct {
	listen        string
	controller    *agent.Controller
	conversations *memory.Store
	ownerID       string
	logger        *slog.Logger
	server        *http.Server
}

// NewServer creates an API server. conversations may be nil; log
// requests then run without cross-request history.
func NewServer(listen string, controller *agent.Controller, conversations *memory.Store, ownerID string, logger *slog.Logger) *Server {
	return &Server{
		listen:        listen,
		controller:    controller,
		conversations: conversations,
		ownerID:       ownerID,
		logger:        logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/log", s.handleLog)
	mux.HandleFunc("DELETE /v1/conversations/{id}", s.handleConversationClear)
	mux.HandleFunc("GET /v1/version", s.handleVersion)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /", s.handleRoot)

	return s.withLogging(mux)
}

// Start begins serving HTTP requests and blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.listen,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // agent turns can span several model calls
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("starting API server", "listen", s.listen)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}

// LogRequest is a natural language health report to process.
type LogRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// LogResponse carries the agent's reply.
type LogResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
	Iterations     int    `json:"iterations"`
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.Message == "" {
		s.errorResponse(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}

	convID := req.ConversationID
	if convID == "" {
		convID = uuid.NewString()
	}

	history, err := s.loadHistory(r.Context(), convID)
	if err != nil {
		s.logger.Error("history load failed", "conversation_id", convID, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "storage_error", "failed to load conversation")
		return
	}

	res, err := s.controller.Run(r.Context(), history, req.Message)
	if err != nil {
		s.writeAgentError(w, err)
		return
	}

	if s.conversations != nil {
		if err := s.conversations.Append(r.Context(), convID, res.NewMessages...); err != nil {
			// The records are already written; losing history is not
			// worth failing the request over.
			s.logger.Warn("conversation persist failed", "conversation_id", convID, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	s.writeJSON(w, LogResponse{
		Response:       res.Content,
		ConversationID: convID,
		Iterations:     res.Iterations,
	})
}

func (s *Server) loadHistory(ctx context.Context, convID string) ([]llm.Message, error) {
	if s.conversations == nil {
		return nil, nil
	}
	if err := s.conversations.Ensure(ctx, convID, s.ownerID); err != nil {
		return nil, err
	}
	return s.conversations.Recent(ctx, convID)
}

func (s *Server) handleConversationClear(w http.ResponseWriter, r *http.Request) {
	if s.conversations == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "not_configured", "conversation store not configured")
		return
	}

	id := r.PathValue("id")
	if err := s.conversations.Clear(r.Context(), id); err != nil {
		s.logger.Error("conversation clear failed", "conversation_id", id, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "storage_error", "failed to clear conversation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	s.writeJSON(w, map[string]string{
		"name":    "phda-logger",
		"version": buildinfo.Version,
		"status":  "ok",
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	s.writeJSON(w, buildinfo.Info())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	s.writeJSON(w, map[string]string{"status": "healthy"})
}

// writeAgentError maps controller failures to HTTP error payloads that
// name the failure kind so clients can react differently to a dead
// model versus an exhausted loop.
func (s *Server) writeAgentError(w http.ResponseWriter, err error) {
	var me *agent.ModelError
	var le *agent.IterationLimitError

	switch {
	case errors.As(err, &me):
		s.logger.Error("model call failed", "error", err)
		s.errorResponse(w, http.StatusBadGateway, "model_error", "the language model is unreachable or failed")
	case errors.As(err, &le):
		s.logger.Error("agent exhausted", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "iteration_limit", "the agent could not finish within its iteration budget")
	default:
		s.logger.Error("agent turn failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "agent_error", "agent error")
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	s.writeJSON(w, map[string]any{
		"error": map[string]any{
			"kind":    kind,
			"message": message,
			"code":    code,
		},
	})
}

// writeJSON encodes v to w. Failures usually mean the client hung up,
// which is not actionable.
func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write JSON response", "error", err)
	}
}
