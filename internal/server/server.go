package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/casesync/internal/server/cache"
	"github.com/agentstation/casesync/internal/server/events"
	"github.com/agentstation/casesync/internal/server/events/adapters"
	"github.com/agentstation/casesync/internal/server/handlers"
	"github.com/agentstation/casesync/internal/server/middleware"
	"github.com/agentstation/casesync/internal/server/sse"
	ws "github.com/agentstation/casesync/internal/server/websocket"
	"github.com/agentstation/casesync/pkg/constants"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
	"github.com/agentstation/casesync/pkg/store"
)

// Server holds the case server state and its background services.
type Server struct {
	store          store.Store
	cache          *cache.Cache
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	rateLimiter    *middleware.RateLimiter
	handlers       *handlers.Handlers
	logger         *zerolog.Logger
	config         Config
	startTime      time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started sync.Once
	stopped sync.Once
}

// New creates a server backed by st. A nil logger uses the default one.
func New(st store.Store, cfg Config, logger *zerolog.Logger) (*Server, error) {
	if st == nil {
		return nil, errors.NewValidationError("store", nil, "cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Default()
	}

	broker := events.NewBroker(logger)
	wsHub := ws.NewHub(logger)
	sseBroadcaster := sse.NewBroadcaster(logger)

	broker.Subscribe(adapters.NewWebSocketSubscriber(wsHub))
	broker.Subscribe(adapters.NewSSESubscriber(sseBroadcaster))

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		store:          st,
		cache:          cache.New(cfg.CacheTTL, constants.CacheCleanupInterval),
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		logger:         logger,
		config:         cfg,
		startTime:      time.Now(),
		ctx:            ctx,
		cancel:         cancel,
	}

	if cfg.RateLimit > 0 {
		s.rateLimiter = middleware.NewRateLimiter(cfg.RateLimit, logger).TrustProxy(cfg.TrustProxy)
	}

	s.handlers = handlers.New(handlers.Deps{
		Store:          st,
		Cache:          s.cache,
		Broker:         broker,
		WSHub:          wsHub,
		SSEBroadcaster: sseBroadcaster,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     s.checkOrigin,
		},
		Logger:       logger,
		StartTime:    s.startTime,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	logger.Debug().
		Str("addr", cfg.Addr()).
		Str("prefix", cfg.PathPrefix).
		Bool("auth", cfg.AuthEnabled).
		Int("rate_limit", cfg.RateLimit).
		Msg("Case server created")
	return s, nil
}

// checkOrigin applies the CORS origin list to WebSocket upgrades.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || !s.config.CORSEnabled || len(s.config.CORSOrigins) == 0 {
		return true
	}
	for _, o := range s.config.CORSOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// Start runs the broker, hub and broadcaster. It is idempotent.
func (s *Server) Start() {
	s.started.Do(func() {
		s.wg.Add(3)
		go func() { defer s.wg.Done(); s.broker.Run(s.ctx) }()
		go func() { defer s.wg.Done(); s.wsHub.Run(s.ctx) }()
		go func() { defer s.wg.Done(); s.sseBroadcaster.Run(s.ctx) }()
		s.logger.Debug().Msg("Background services started")
	})
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Shutdown stops the background services and waits for them, up to ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopped.Do(func() {
		s.cancel()
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Debug().Msg("Background services stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("Background services shutdown timed out")
		return ctx.Err()
	}
}

// Run starts the server on cfg.Addr and serves until ctx is cancelled,
// then drains connections for up to ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return errors.WrapIO("listen", s.config.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.Start()

	httpServer := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("Case server listening")
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		_ = s.Shutdown(context.Background())
		if err != nil {
			return errors.WrapResource("serve", "server", ln.Addr().String(), err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down case server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	// streams end when the background services stop
	_ = s.Shutdown(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.WrapResource("shutdown", "server", ln.Addr().String(), err)
	}
	s.logger.Info().Msg("Case server stopped")
	return nil
}

// Cache returns the listing cache.
func (s *Server) Cache() *cache.Cache { return s.cache }

// Broker returns the event broker.
func (s *Server) Broker() *events.Broker { return s.broker }

// WSHub returns the WebSocket hub.
func (s *Server) WSHub() *ws.Hub { return s.wsHub }

// StartTime returns when the server was created.
func (s *Server) StartTime() time.Time { return s.startTime }

// Config returns the validated configuration.
func (s *Server) Config() Config { return s.config }
