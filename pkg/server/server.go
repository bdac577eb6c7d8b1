package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studiolink/studiolink/pkg/auth"
	"github.com/studiolink/studiolink/pkg/events"
	"github.com/studiolink/studiolink/pkg/middleware"
	"github.com/studiolink/studiolink/pkg/protocol"
	"github.com/studiolink/studiolink/pkg/request"
)

// Server is the studiolink control-plane server. It owns the session
// registry, the request registry, the subscription refcounts and the worker
// pool shared by broadcasts and parallel batches.
type Server struct {
	config *ServerConfig
	logger *slog.Logger

	sessions      *SessionManager
	subscriptions *events.SubscriptionRegistry
	requests      *request.Registry
	eventHandler  *events.Handler

	pool     *ants.Pool
	frames   request.FrameScheduler
	notifier Notifier
	metrics  *Metrics

	upgrader websocket.Upgrader
	router   chi.Router
	httpSrv  *http.Server

	accepting atomic.Bool

	salt   string
	secret string
}

// New builds a Server from config. The config is cloned; later mutation of
// the caller's copy has no effect.
func New(config *ServerConfig) (*Server, error) {
	if config == nil {
		config = DefaultServerConfig()
	} else {
		config = config.Clone()
	}
	if config.Session == nil {
		config.Session = DefaultSessionConfig()
	}
	if config.WorkerPoolSize < 1 {
		config.WorkerPoolSize = 1
	}

	logger := slog.Default().With("component", "server")

	pool, err := ants.NewPool(config.WorkerPoolSize,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(v any) {
			logger.Error("worker pool task panicked", "panic", v)
		}),
	)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:        config,
		logger:        logger,
		sessions:      NewSessionManager(),
		subscriptions: events.NewSubscriptionRegistry(),
		requests:      request.NewRegistry(),
		pool:          pool,
		frames:        config.FrameScheduler,
		notifier:      config.Notifier,
		metrics:       newMetrics(config.MetricsRegistry),
	}
	if s.frames == nil {
		s.frames = request.ImmediateScheduler{}
	}
	if s.notifier == nil {
		s.notifier = &LogNotifier{Logger: logger}
	}
	if config.Auth.Enabled {
		s.salt = auth.GenerateSalt()
		s.secret = auth.GenerateSecret(config.Auth.Password, s.salt)
	}

	s.eventHandler = events.NewHandler(s, s.subscriptions)
	request.RegisterBuiltins(s.requests, s)

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		Subprotocols:    protocol.Subprotocols,
		CheckOrigin:     config.CheckOrigin,
	}
	if s.upgrader.CheckOrigin == nil {
		s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}

	router := chi.NewRouter()
	router.Use(middleware.Metrics(s.metrics.Registry()))
	router.Use(middleware.Tracing("studiolink/server"))
	router.Get("/ws", s.handleWebSocket)
	router.Get("/healthz", s.handleHealth)
	router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	s.router = router

	s.accepting.Store(true)
	return s, nil
}

// Handler returns the HTTP handler serving the WebSocket endpoint, health
// check and metrics.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Requests returns the request registry for host request handlers.
func (s *Server) Requests() *request.Registry {
	return s.requests
}

// Events returns the typed event emitter bound to this server.
func (s *Server) Events() *events.Handler {
	return s.eventHandler
}

// Metrics returns the server's metric collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Version reports the host application version.
func (s *Server) Version() string {
	return s.config.Version
}

// SessionCount returns the number of connected sessions.
func (s *Server) SessionCount() int {
	return s.sessions.Count()
}

// MessageStats returns cumulative incoming and outgoing message counts.
func (s *Server) MessageStats() (incoming, outgoing uint64) {
	return s.sessions.MessageStats()
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	if !s.accepting.Load() {
		return ErrServerClosed
	}
	s.httpSrv = &http.Server{
		Addr:    s.config.Address,
		Handler: s.router,
	}
	s.logger.Info("server listening", "address", s.config.Address)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, closes every session and drains the
// worker pool.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.accepting.CompareAndSwap(true, false) {
		return nil
	}
	s.logger.Info("server shutting down")

	s.sessions.ForEach(func(session *Session) {
		_ = session.writeClose(protocol.CloseCode(websocket.CloseGoingAway), "Server is shutting down.")
		_ = session.Close()
	})

	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}
	s.pool.Release()
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
