package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avvvet/partsbuddy-agent/internal/handlers"
	"github.com/avvvet/partsbuddy-agent/internal/logger"
	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 64 << 10

type HTTPServer struct {
	server  *http.Server
	handler *handlers.ChatHandler
	metrics http.Handler
	logger  logger.ILogger
}

// NewHTTPServer serves the chat API. metrics may be nil.
func NewHTTPServer(addr string, handler *handlers.ChatHandler, metrics http.Handler, log logger.ILogger) *HTTPServer {
	s := &HTTPServer{handler: handler, metrics: metrics, logger: log}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/conversation/{sessionID}", s.handleHistory)
		r.Delete("/conversation/{sessionID}", s.handleClear)
	})
	return r
}

// Start blocks until the server stops
func (s *HTTPServer) Start() error {
	s.logger.Info(module, "HTTP server starting", map[string]interface{}{"addr": s.server.Addr})
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	s.logger.Info(module, "HTTP server stopped", nil)
	return nil
}

func (s *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var request models.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, s.handler.ErrorResponse("", models.ErrorParseError, "Invalid request format"))
		return
	}

	response := s.handler.ProcessChat(r.Context(), &request)
	writeJSON(w, statusFor(response), response)
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.handler.History(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *HTTPServer) handleClear(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.handler.Clear(r.Context(), sessionID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared", "session_id": sessionID})
}

func (s *HTTPServer) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, handlers.ErrInvalidRequest) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error_code": models.ErrorInvalidRequest, "error": err.Error()})
		return
	}
	s.logger.Error(module, "request failed", map[string]interface{}{"error": err.Error()})
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error_code": models.ErrorStoreFailed, "error": err.Error()})
}

func (s *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug(module, "http request", map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"request_id": middleware.GetReqID(r.Context()),
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
	})
}

func statusFor(response *models.ChatResponse) int {
	if response.Success || response.ErrorCode == nil {
		return http.StatusOK
	}
	switch *response.ErrorCode {
	case models.ErrorInvalidRequest, models.ErrorParseError:
		return http.StatusBadRequest
	case models.ErrorStoreFailed:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
