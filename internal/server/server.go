package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/careerkit/cvchat/internal/auth"
	"github.com/careerkit/cvchat/internal/command"
)

// Config holds server configuration.
type Config struct {
	Port               int
	MaxAttachmentBytes int64
}

// SessionFactory builds one command session with its own intent client.
// Sessions must not share a client: the client's conversation state assumes a
// single in-flight command.
type SessionFactory func() (*command.Session, error)

// Server exposes the command pipeline over HTTP.
type Server struct {
	httpServer    *http.Server
	logger        *zap.Logger
	maxAttachment int64

	mu       sync.Mutex
	sessions map[string]*command.Session
	factory  SessionFactory
}

// New creates a server.
func New(cfg Config, factory SessionFactory, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		logger:        logger,
		maxAttachment: cfg.MaxAttachmentBytes,
		sessions:      make(map[string]*command.Session),
		factory:       factory,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/command", s.handleCommand)
	mux.HandleFunc("POST /chat/reset", s.handleReset)
	mux.HandleFunc("GET /chat/state", s.handleState)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(s.withCORS(s.withBearerToken(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // endpoint execution can be slow (PDF generation)
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the configured handler chain; used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening and blocks until SIGINT/SIGTERM, then shuts down
// gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	s.logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// session returns the command session for a chat session id, creating it on
// first use.
func (s *Server) session(id string) (*command.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	sess, err := s.factory()
	if err != nil {
		return nil, err
	}
	s.sessions[id] = sess
	return sess, nil
}

// withBearerToken moves the Authorization header onto the request context so
// the token provider can fetch it fresh per execution.
func (s *Server) withBearerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
			r = r.WithContext(auth.WithToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

// withCORS adds CORS headers.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Chat-Session")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response.
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	s.jsonResponse(w, HTTPStatus(err), map[string]string{"error": err.Error()})
}
