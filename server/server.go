// Package server exposes the HTTP surface: the messenger webhook that feeds
// the pipeline and a small status/stats API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/eventscope/pkg/classify"
	"github.com/umputun/eventscope/pkg/db"
	"github.com/umputun/eventscope/pkg/domain"
	"github.com/umputun/eventscope/pkg/pipeline"
	"github.com/umputun/eventscope/pkg/session"
)

// Pipeline runs inputs through classification, extraction, and persistence
type Pipeline interface {
	Run(ctx context.Context, input pipeline.Input) pipeline.Outcome
	SaveCandidate(ctx context.Context, candidate domain.EventCandidate, userID string) (domain.Expansion, domain.SaveResult, error)
	GetStats() pipeline.Stats
}

// Sessions manages pending confirmations
type Sessions interface {
	StorePending(ctx context.Context, userID string, chatID int64, p session.Pending) error
	GetPending(ctx context.Context, userID string, chatID int64) (session.Pending, bool, error)
	ConfirmAndRemove(ctx context.Context, userID string, chatID int64) (session.Pending, error)
	Cancel(ctx context.Context, userID string, chatID int64) error
	ApplyEdit(ctx context.Context, userID string, chatID int64, field, value string) (session.Pending, error)
	Count(ctx context.Context) (int, error)
}

// Messenger sends replies back to the chat
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// AuditReader reads the persisted audit log
type AuditReader interface {
	GetStats(ctx context.Context) (db.Stats, error)
	Recent(ctx context.Context, n int) ([]db.Run, error)
}

// ClassifierStats exposes classification tier counters
type ClassifierStats interface {
	GetStats() classify.Stats
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
}

// Server is the HTTP front of the service
type Server struct {
	config     ConfigProvider
	pipeline   Pipeline
	sessions   Sessions
	messenger  Messenger
	audit      AuditReader     // optional, nil drops audit aggregates from stats
	classifier ClassifierStats // optional, nil drops tier counters from stats
	version    string
	debug      bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// New initializes a new server instance
func New(cfg ConfigProvider, p Pipeline, sessions Sessions, messenger Messenger, audit AuditReader, classifier ClassifierStats, version string, debug bool) *Server {
	s := &Server{
		config:     cfg,
		pipeline:   p,
		sessions:   sessions,
		messenger:  messenger,
		audit:      audit,
		classifier: classifier,
		version:    version,
		debug:      debug,
		router:     routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.config.GetServerConfig()
	lgr.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         listen,
		Handler:      s.router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		lgr.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			lgr.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("eventscope", "umputun", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /telegram/webhook", s.webhookHandler)

	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("GET /stats", s.statsHandler)
	})
}

// statusHandler returns server status and the number of live pending
// confirmations
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	pending, err := s.sessions.Count(r.Context())
	if err != nil {
		lgr.Printf("[WARN] failed to count pending sessions: %v", err)
	}

	status := map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"pending": pending,
		"time":    time.Now().UTC(),
	}
	RenderJSON(w, r, http.StatusOK, status)
}

// statsHandler returns pipeline counters and audit aggregates
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"pipeline": s.pipeline.GetStats()}

	if s.classifier != nil {
		resp["classifier"] = s.classifier.GetStats()
	}

	if s.audit != nil {
		auditStats, err := s.audit.GetStats(r.Context())
		if err != nil {
			RenderError(w, r, fmt.Errorf("audit stats: %w", err), http.StatusInternalServerError)
			return
		}
		resp["audit"] = auditStats
	}

	RenderJSON(w, r, http.StatusOK, resp)
}

// RenderJSON sends JSON response
func RenderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			lgr.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// RenderError sends error response as JSON
func RenderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	RenderJSON(w, r, code, map[string]string{"error": errMsg})
}
