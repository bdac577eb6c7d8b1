package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/studiolink/studiolink/pkg/events"
	"github.com/studiolink/studiolink/pkg/request"
)

// AuthConfig controls challenge/response authentication for new sessions.
type AuthConfig struct {
	// Enabled requires clients to prove knowledge of Password during
	// identification.
	Enabled bool

	// Password is the shared secret used to derive the authentication
	// secret. Ignored when Enabled is false.
	Password string
}

// SessionConfig holds per-connection tuning knobs.
type SessionConfig struct {
	// ReadTimeout bounds how long a session may stay silent before the
	// read loop gives up. Zero means no deadline.
	ReadTimeout time.Duration

	// WriteTimeout bounds each outgoing write. Zero means no deadline.
	WriteTimeout time.Duration

	// MaxMessageSize caps incoming frames in bytes.
	MaxMessageSize int64
}

// DefaultSessionConfig returns the session defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		ReadTimeout:    0,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 4 << 20,
	}
}

// Clone returns a deep copy of the config.
func (c *SessionConfig) Clone() *SessionConfig {
	out := *c
	return &out
}

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address is the listen address for Start.
	Address string

	// Version is the host application version reported in Hello and
	// GetVersion responses.
	Version string

	// Auth configures session authentication.
	Auth AuthConfig

	// DefaultSubscriptions is the event subscription mask applied to
	// sessions that identify without an explicit eventSubscriptions.
	DefaultSubscriptions events.Subscription

	// WorkerPoolSize is the number of workers shared by event broadcasts
	// and parallel request batches. Parallel batch execution is refused
	// when the pool has fewer than two workers.
	WorkerPoolSize int

	// Session holds per-connection settings.
	Session *SessionConfig

	// ReadBufferSize and WriteBufferSize size the WebSocket buffers.
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin overrides the upgrade origin check. Nil accepts any
	// origin.
	CheckOrigin func(r *http.Request) bool

	// FrameScheduler drives SERIAL_FRAME batch execution. Nil runs every
	// frame-aligned step immediately.
	FrameScheduler request.FrameScheduler

	// Notifier receives session lifecycle notifications. Nil logs them.
	Notifier Notifier

	// MetricsRegistry receives the server's Prometheus collectors. Nil
	// creates a private registry, exposed on /metrics.
	MetricsRegistry *prometheus.Registry

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// DebugMode enables per-message debug logging.
	DebugMode bool
}

// DefaultServerConfig returns the server defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:              ":4455",
		Version:              "dev",
		DefaultSubscriptions: events.SubscriptionAll,
		WorkerPoolSize:       runtime.NumCPU(),
		Session:              DefaultSessionConfig(),
		ReadBufferSize:       4096,
		WriteBufferSize:      4096,
		ShutdownTimeout:      10 * time.Second,
	}
}

// Clone returns a deep copy of the config.
func (c *ServerConfig) Clone() *ServerConfig {
	out := *c
	if c.Session != nil {
		out.Session = c.Session.Clone()
	}
	return &out
}

// WithAddress sets the listen address.
func (c *ServerConfig) WithAddress(addr string) *ServerConfig {
	c.Address = addr
	return c
}

// WithPassword enables authentication with the given password.
func (c *ServerConfig) WithPassword(password string) *ServerConfig {
	c.Auth = AuthConfig{Enabled: true, Password: password}
	return c
}

// WithWorkerPoolSize sets the shared worker pool size.
func (c *ServerConfig) WithWorkerPoolSize(n int) *ServerConfig {
	c.WorkerPoolSize = n
	return c
}

// WithDebugMode toggles debug logging.
func (c *ServerConfig) WithDebugMode(enabled bool) *ServerConfig {
	c.DebugMode = enabled
	return c
}
