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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/edge-bridge/internal/infrastructure/config"
	"github.com/nerrad567/edge-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/edge-bridge/internal/registration"
	"github.com/nerrad567/edge-bridge/internal/relay"
)

// ConnectionStatus reports broker connectivity. *mqtt.Client satisfies it.
type ConnectionStatus interface {
	IsConnected() bool
}

// HealthChecker probes an external dependency. *mqtt.Client and
// *influxdb.Client satisfy it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// healthCheckTimeout bounds each dependency probe in /health.
const healthCheckTimeout = 2 * time.Second

// DropCounter reports lost events. *events.Bus satisfies it.
type DropCounter interface {
	Dropped() uint64
}

// AdminDeps holds the dependencies required by the admin server.
type AdminDeps struct {
	Config   config.AdminConfig
	Logger   *logging.Logger
	Table    *registration.Table
	Failures *relay.FailureTracker
	Hub      *Hub             // If set, the server uses this hub instead of creating its own
	MQTT     ConnectionStatus // optional
	Bus      DropCounter      // optional
	Checks   map[string]HealthChecker
	Gatherer prometheus.Gatherer
	Version  string
}

// AdminServer serves read-only operational endpoints on a separate
// listener. It never changes relay behaviour.
type AdminServer struct {
	cfg       config.AdminConfig
	logger    *logging.Logger
	table     *registration.Table
	failures  *relay.FailureTracker
	mqtt      ConnectionStatus
	bus       DropCounter
	checks    map[string]HealthChecker
	gatherer  prometheus.Gatherer
	version   string
	startTime time.Time

	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // stops an owned hub on Close()

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewAdmin creates an admin server. It is not started until Start() is called.
func NewAdmin(deps AdminDeps) (*AdminServer, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Table == nil {
		return nil, fmt.Errorf("registration table is required")
	}
	if deps.Failures == nil {
		return nil, fmt.Errorf("failure tracker is required")
	}

	a := &AdminServer{
		cfg:       deps.Config,
		logger:    deps.Logger,
		table:     deps.Table,
		failures:  deps.Failures,
		mqtt:      deps.MQTT,
		bus:       deps.Bus,
		checks:    deps.Checks,
		gatherer:  deps.Gatherer,
		version:   deps.Version,
		startTime: time.Now(),
	}
	if a.gatherer == nil {
		a.gatherer = prometheus.DefaultGatherer
	}

	// Use an externally provided hub when the event sinks already
	// broadcast through it.
	if deps.Hub != nil {
		a.hub = deps.Hub
		a.externalHub = true
	} else {
		a.hub = NewHub(deps.Config.WebSocket, deps.Logger)
	}

	return a, nil
}

// Hub returns the websocket hub events are broadcast through.
func (a *AdminServer) Hub() *Hub {
	return a.hub
}

// Handler returns the admin router.
func (a *AdminServer) Handler() http.Handler {
	return a.buildRouter()
}

func (a *AdminServer) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(echoRequestIDMiddleware)
	r.Use(loggingMiddleware(a.logger))
	r.Use(recoveryMiddleware(a.logger, func(w http.ResponseWriter) {
		writeInternalError(w, "internal server error")
	}))
	r.Use(bodySizeLimitMiddleware)

	r.Get("/health", a.handleHealth)
	r.Get("/metrics", a.handleMetrics)
	r.Handle("/metrics/prometheus", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	r.Get("/registrations", a.handleListRegistrations)

	wsPath := a.cfg.WebSocket.Path
	if wsPath == "" {
		wsPath = "/ws"
	}
	r.Get(wsPath, a.handleWebSocket)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no such endpoint")
	})

	return r
}

// handleHealth reports overall health and the result of each dependency
// probe. A failing probe degrades the status but the bridge keeps relaying.
func (a *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":        "healthy",
		"version":       a.version,
		"registrations": a.table.Len(),
	}
	if a.mqtt != nil {
		status["mqtt_connected"] = a.mqtt.IsConnected()
	}

	if len(a.checks) > 0 {
		results := make(map[string]string, len(a.checks))
		for name, check := range a.checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := check.HealthCheck(ctx)
			cancel()
			if err != nil {
				results[name] = err.Error()
				status["status"] = "degraded"
				continue
			}
			results[name] = "ok"
		}
		status["checks"] = results
	}

	writeJSON(w, http.StatusOK, status)
}

// handleListRegistrations returns the registration table in insertion order.
func (a *AdminServer) handleListRegistrations(w http.ResponseWriter, _ *http.Request) {
	records := a.table.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"registrations": records,
		"count":         len(records),
	})
}

// Start binds the admin listener and serves in a background goroutine.
// A hub created by NewAdmin is run until Close.
func (a *AdminServer) Start(ctx context.Context) error {
	addr := net.JoinHostPort(a.cfg.Host, strconv.Itoa(a.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding admin listener %s: %w", addr, err)
	}

	if !a.externalHub {
		var hubCtx context.Context
		hubCtx, a.cancel = context.WithCancel(ctx)
		go a.hub.Run(hubCtx)
	}

	srv := &http.Server{
		Handler:           a.buildRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.mu.Lock()
	a.server = srv
	a.listener = ln
	a.mu.Unlock()

	a.logger.Info("admin server listening", "address", ln.Addr().String())

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("admin server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (a *AdminServer) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Close gracefully shuts down the admin server.
func (a *AdminServer) Close() error {
	if a.cancel != nil {
		a.cancel()
	}

	a.mu.Lock()
	srv := a.server
	a.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	a.logger.Info("admin server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down admin server: %w", err)
	}
	return nil
}
