package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/paykit/internal/log"
	"github.com/mattjoyce/paykit/internal/signature"
)

// Server represents the webhook HTTP server.
type Server struct {
	config     Config
	verifier   *signature.Verifier
	dispatcher Dispatcher
	logger     *slog.Logger
	server     *http.Server
}

// New creates a new webhook server instance. The secret and dispatcher are
// fixed for the life of the server.
func New(config Config, dispatcher Dispatcher, logger *slog.Logger) (*Server, error) {
	if dispatcher == nil {
		return nil, errors.New("webhook dispatcher is nil")
	}
	if logger == nil {
		logger = log.Discard()
	}

	if config.Listen == "" {
		config.Listen = DefaultListen
	}
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.SignatureHeader == "" {
		config.SignatureHeader = DefaultSignatureHeader
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}

	verifier, err := signature.NewVerifier(config.Secret, signature.WithTolerance(config.Tolerance))
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}

	return &Server{
		config:     config,
		verifier:   verifier,
		dispatcher: dispatcher,
		logger:     logger,
	}, nil
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.config.Listen, "path", s.config.Path)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Every method reaches the handler so a wrong one gets the JSON 405.
	r.HandleFunc(s.config.Path, s.handleWebhook)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.respondError(w, http.StatusNotFound)
	})

	return r
}

// loggingMiddleware logs HTTP requests (excludes sensitive payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleWebhook verifies and routes one notification.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.logger.Error("webhook handler panic", "panic", fmt.Sprint(rec), "request_id", requestID)
			s.respondError(w, http.StatusInternalServerError)
		}
	}()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.respondError(w, http.StatusMethodNotAllowed)
		return
	}

	header := r.Header.Get(s.config.SignatureHeader)
	if header == "" {
		s.logger.Warn("webhook rejected",
			"reason", signature.ErrMissingHeader,
			"header", s.config.SignatureHeader,
			"request_id", requestID,
		)
		s.respondError(w, http.StatusBadRequest)
		return
	}

	// Enforce body size limit
	body, err := io.ReadAll(io.LimitReader(r.Body, s.config.MaxBodySize+1))
	if err != nil {
		s.logger.Error("failed to read webhook body", "error", err, "request_id", requestID)
		s.respondError(w, http.StatusInternalServerError)
		return
	}
	if int64(len(body)) > s.config.MaxBodySize {
		s.logger.Warn("webhook rejected",
			"reason", "body too large",
			"max_body_size", s.config.MaxBodySize,
			"request_id", requestID,
		)
		s.respondError(w, http.StatusRequestEntityTooLarge)
		return
	}

	event, err := s.verifier.Verify(body, header)
	if err != nil {
		s.logger.Warn("webhook rejected", "reason", err, "request_id", requestID)
		s.respondError(w, http.StatusBadRequest)
		return
	}

	logger := s.logger.With("event_id", event.ID, "event_type", event.Type, "request_id", requestID)

	matched, err := s.dispatcher.Dispatch(ctx, event)
	if err != nil {
		logger.Error("webhook handler failed", "error", err)
		s.respondError(w, http.StatusInternalServerError)
		return
	}
	if !matched {
		logger.Info("webhook event has no handler")
	} else {
		logger.Info("webhook event handled")
	}

	s.respondJSON(w, http.StatusOK, ackResponse)
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("failed to write webhook response", "error", err)
	}
}

// respondError sends the generic failure body for status. The reason is
// never included.
func (s *Server) respondError(w http.ResponseWriter, status int) {
	s.respondJSON(w, status, Response{Code: status, Msg: http.StatusText(status)})
}
