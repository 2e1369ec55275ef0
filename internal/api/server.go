// Package api is the HTTP JSON surface.
//
// Middleware stack (outermost first):
//
//	Recovery → RequestID → Tracing → Logging → CORS → [RateLimit → Auth] → Routes
//
// RequestID sits before Logging so request_id is available in log
// attributes; CORS sits before RateLimit so preflight OPTIONS gets
// proper CORS headers. RateLimit and Auth only cover /api/ routes;
// /health and /api/auth/login stay open.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/peeragogy/handbook-ai/internal/orchestrator"
	"github.com/peeragogy/handbook-ai/internal/provider"
	"github.com/peeragogy/handbook-ai/internal/session"
	"github.com/peeragogy/handbook-ai/internal/vector"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger       *slog.Logger
	Orchestrator *orchestrator.Orchestrator // Required
	Gateway      *provider.Gateway          // Required
	Vector       *vector.Client             // Required
	Sessions     *session.Store             // Required

	Environment string
	CORSOrigins []string
	TrustProxy  bool // trust X-Real-IP/X-Forwarded-For (behind reverse proxy)

	APIToken     string // optional static bearer token (pro tier)
	DemoUsername string
	DemoPassword string

	RateQuota   int           // requests per window per client (0 = default 5)
	RateWindow  time.Duration // fixed-window size (0 = default 1m)
	VectorReady bool          // whether a real vector host is configured
}

// Server is the JSON API HTTP server.
type Server struct {
	handler http.Handler
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}
	if cfg.Gateway == nil {
		return nil, errors.New("gateway is required")
	}
	if cfg.Vector == nil {
		return nil, errors.New("vector client is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	quota := cfg.RateQuota
	if quota <= 0 {
		quota = 5
	}
	windowSize := cfg.RateWindow
	if windowSize <= 0 {
		windowSize = time.Minute
	}

	gate := newAuthGate(cfg.APIToken, cfg.DemoUsername, cfg.DemoPassword)
	limiter := newFixedWindowLimiter(quota, windowSize)

	ai := &aiHandler{gateway: cfg.Gateway, logger: logger}
	vec := &vectorHandler{client: cfg.Vector, logger: logger}
	chat := &chatHandler{orch: cfg.Orchestrator, sessions: cfg.Sessions, logger: logger}
	login := &loginHandler{gate: gate, logger: logger}
	hp := &healthHandler{
		gateway:     cfg.Gateway,
		vectorReady: cfg.VectorReady,
		environment: cfg.Environment,
		startedAt:   time.Now(),
		logger:      logger,
	}

	// Gated routes: bearer auth plus the fixed-window quota.
	gated := http.NewServeMux()
	gated.HandleFunc("POST /api/ai/{provider}", ai.send)
	gated.HandleFunc("POST /api/vector/query", vec.query)
	gated.HandleFunc("POST /api/chat", chat.send)
	gated.HandleFunc("POST /api/chat/reset", chat.reset)
	gated.HandleFunc("GET /api/sessions", chat.list)
	gated.HandleFunc("/", notFound(logger))

	var protected http.Handler = gated
	protected = authMiddleware(gate, logger)(protected)
	protected = rateLimitMiddleware(limiter, cfg.TrustProxy, logger)(protected)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", hp.health)
	mux.HandleFunc("POST /api/auth/login", login.login)
	mux.Handle("/api/", protected)
	mux.HandleFunc("/", notFound(logger))

	var handler http.Handler = mux
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = tracingMiddleware()(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	return &Server{handler: handler}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// notFound is the generic JSON 404 for unmatched routes.
func notFound(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found", "", logger)
	}
}
