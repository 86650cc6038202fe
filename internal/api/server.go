package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/edge-bridge/internal/events"
	"github.com/nerrad567/edge-bridge/internal/infrastructure/config"
	"github.com/nerrad567/edge-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/edge-bridge/internal/registration"
	"github.com/nerrad567/edge-bridge/internal/relay"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the relay server.
type Deps struct {
	Config    config.ServerConfig
	Logger    *logging.Logger
	Table     *registration.Table
	Forwarder *relay.Forwarder
	HubRelay  *relay.HubRelay
	Events    events.Sink // optional; events are discarded when nil
}

// Server is the relay HTTP server: the surface devices, hubs and drivers
// talk to.
//
// It is created with New() and started with Start().
type Server struct {
	cfg       config.ServerConfig
	logger    *logging.Logger
	table     *registration.Table
	forwarder *relay.Forwarder
	hubs      *relay.HubRelay
	events    events.Sink

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a new relay server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Table == nil {
		return nil, fmt.Errorf("registration table is required")
	}
	if deps.Forwarder == nil {
		return nil, fmt.Errorf("forwarder is required")
	}
	if deps.HubRelay == nil {
		return nil, fmt.Errorf("hub relay is required")
	}

	sink := deps.Events
	if sink == nil {
		sink = events.Discard
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		table:     deps.Table,
		forwarder: deps.Forwarder,
		hubs:      deps.HubRelay,
		events:    sink,
	}, nil
}

// Handler returns the relay router.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves in a background goroutine.
//
// Binding happens before Start returns, so a port already in use is
// reported here rather than logged later.
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the listener cannot be bound
func (s *Server) Start(_ context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding relay listener %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("relay server listening", "address", ln.Addr().String())

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("relay server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the relay server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("relay server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down relay server: %w", err)
	}
	return nil
}

// HealthCheck verifies the relay server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("relay health check: %w", ctx.Err())
	default:
	}

	if s.Addr() == "" {
		return fmt.Errorf("relay server not started")
	}
	return nil
}
