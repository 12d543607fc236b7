package server

import (
	"net/http"

	"github.com/agentstation/casesync/internal/server/middleware"
)

// setupRouter builds the routes and wraps them in middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return s.applyMiddleware(mux)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	h := s.handlers
	prefix := s.config.PathPrefix

	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /ready", h.HandleReady)
	mux.HandleFunc("GET /stats", h.HandleStats)

	mux.HandleFunc("GET "+prefix+"/casesForUser/{userId}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleCasesForUser(w, r, r.PathValue("userId"))
	})
	mux.HandleFunc("POST "+prefix+"/case", h.HandleUpsertCase)

	mux.HandleFunc("GET "+prefix+"/updates/ws", h.HandleWebSocket)
	mux.HandleFunc("GET "+prefix+"/updates/stream", h.HandleSSE)

	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

// applyMiddleware wraps handler so requests pass, in order, through
// recovery, request IDs, logging, CORS, auth and rate limiting.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	cfg := s.config
	chain := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.Logger(s.logger),
	}

	if cfg.CORSEnabled {
		corsConfig := middleware.DefaultCORSConfig()
		if len(cfg.CORSOrigins) > 0 {
			corsConfig.AllowedOrigins = cfg.CORSOrigins
		} else {
			corsConfig.AllowAll = true
		}
		chain = append(chain, middleware.CORS(corsConfig))
	}

	if cfg.AuthEnabled {
		authConfig := middleware.DefaultAuthConfig()
		authConfig.Enabled = true
		authConfig.APIKey = cfg.APIKey
		authConfig.HeaderName = cfg.AuthHeader
		chain = append(chain, middleware.Auth(authConfig, s.logger))
	}

	if s.rateLimiter != nil {
		chain = append(chain, middleware.RateLimit(s.rateLimiter))
	}

	return middleware.Chain(chain...)(handler)
}
