// Edge Bridge - LAN relay between devices, hubs and cloud endpoints
//
// This is the main entry point for the edge bridge. The bridge:
//   - forwards requests from hub drivers to arbitrary URLs (/api/forward)
//   - keeps a table of device-to-hub registrations (/api/register)
//   - relays unsolicited device traffic to the registered hub
//
// Relay events are optionally published to MQTT, written to InfluxDB and
// streamed to admin websocket clients.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/edge-bridge/internal/api"
	"github.com/nerrad567/edge-bridge/internal/events"
	"github.com/nerrad567/edge-bridge/internal/infrastructure/config"
	"github.com/nerrad567/edge-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/edge-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/edge-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/edge-bridge/internal/registration"
	"github.com/nerrad567/edge-bridge/internal/relay"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// eventBufferSize is how many relay events may queue for the sinks.
const eventBufferSize = 256

// probeAddress is dialled over UDP to learn the outbound interface.
// UDP "connect" sends no packets.
const probeAddress = "8.8.8.8:80"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the parsed command line.
type options struct {
	configPath  string
	debug       bool
	showVersion bool
}

// parseFlags parses args. The config path falls back to EDGEBRIDGE_CONFIG,
// then the default path.
func parseFlags(args []string, out io.Writer) (options, error) {
	var opts options

	fs := pflag.NewFlagSet("edgebridge", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to the YAML configuration file")
	fs.BoolVarP(&opts.debug, "debug", "d", false, "enable debug logging")
	fs.BoolVar(&opts.showVersion, "version", false, "print version information and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.configPath == "" {
		opts.configPath = getConfigPath()
	}
	return opts, nil
}

// run is the actual application logic, separated from main for testability.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseFlags(args, out)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintf(out, "edgebridge %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.debug {
		cfg.Logging.Level = "debug"
	}

	log, err := logging.Open(cfg.Logging, version)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer log.Close()

	log.Info("starting edge bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)
	if cfg.Path == "" {
		log.Warn("configuration file not found, using defaults", "path", opts.configPath)
	} else {
		log.Info("configuration loaded", "path", cfg.Path)
	}
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}
	if cfg.Relay.Authorization() == "" {
		log.Info("no bearer token configured, cloud requests are forwarded without credentials")
	}

	// Registration table
	table := registration.NewTable(registration.NewFileStore(cfg.Registrations.Path))
	table.SetLogger(log.With("component", "registrations"))
	if loadErr := table.Load(); loadErr != nil {
		log.Warn("no existing registrations loaded", "path", cfg.Registrations.Path, "error", loadErr)
	}
	for _, rec := range table.Snapshot() {
		log.Info("registration", "record", rec.String())
	}

	// Relays
	sender := relay.NewHTTPSender(cfg.GetForwardTimeout())
	failures := relay.NewFailureTracker()

	forwarder := relay.NewForwarder(sender, relay.ForwardConfig{
		CloudHost:     cfg.Relay.CloudHost,
		Authorization: cfg.Relay.Authorization(),
		UserAgent:     cfg.Relay.UserAgent,
	})
	forwarder.SetLogger(log.With("component", "forward"))

	hubRelay := relay.NewHubRelay(sender, failures)
	hubRelay.SetLogger(log.With("component", "hub"))

	// Event sinks
	var sinks events.Fanout

	mqttClient := connectMQTT(cfg, log)
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		// #nosec G115 -- qos validated to 0..2
		sinks = append(sinks, events.NewMQTTSink(mqttClient, mqttClient.Topics().Event, byte(cfg.MQTT.QoS), log.With("component", "events")))
	}

	influxClient := connectInfluxDB(cfg, log)
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		sinks = append(sinks, events.NewMetricsSink(influxClient))
	}

	// Keep the interface nil when MQTT is off.
	var mqttStatus api.ConnectionStatus
	checks := make(map[string]api.HealthChecker)
	if mqttClient != nil {
		mqttStatus = mqttClient
		checks["mqtt"] = mqttClient
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}

	var wsHub *api.Hub
	if cfg.Admin.Enabled {
		wsHub = api.NewHub(cfg.Admin.WebSocket, log.With("component", "websocket"))
		sinks = append(sinks, events.NewHubSink(wsHub))
	}

	bus := events.NewBus(sinks, eventBufferSize)
	bus.SetLogger(log.With("component", "events"))

	// Relay server
	srv, err := api.New(api.Deps{
		Config:    cfg.Server,
		Logger:    log,
		Table:     table,
		Forwarder: forwarder,
		HubRelay:  hubRelay,
		Events:    bus,
	})
	if err != nil {
		return fmt.Errorf("creating relay server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting relay server: %w", err)
	}
	log.Info("edge bridge ready", "address", announceAddress(cfg.Server.Host, srv.Addr()))

	// Admin server (optional)
	var admin *api.AdminServer
	if cfg.Admin.Enabled {
		admin, err = api.NewAdmin(api.AdminDeps{
			Config:   cfg.Admin,
			Logger:   log.With("component", "admin"),
			Table:    table,
			Failures: failures,
			Hub:      wsHub,
			MQTT:     mqttStatus,
			Bus:      bus,
			Checks:   checks,
			Version:  version,
		})
		if err == nil {
			err = admin.Start(ctx)
		}
		if err != nil {
			_ = srv.Close()
			return fmt.Errorf("starting admin server: %w", err)
		}
	}

	busCtx, stopBus := context.WithCancel(context.Background())
	defer stopBus()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bus.Run(busCtx)
		return nil
	})
	if wsHub != nil {
		g.Go(func() error {
			wsHub.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, cleaning up")

		var errs []error
		if admin != nil {
			errs = append(errs, admin.Close())
		}
		errs = append(errs, srv.Close())

		// Servers are down; let the bus drain what they emitted.
		stopBus()
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if dropped := bus.Dropped(); dropped > 0 {
		log.Warn("relay events dropped", "count", dropped)
	}

	log.Info("edge bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses EDGEBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("EDGEBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectMQTT connects the event publisher. The bridge runs without it
// when MQTT is disabled or unreachable.
func connectMQTT(cfg *config.Config, log *logging.Logger) *mqtt.Client {
	client, err := mqtt.Connect(cfg.MQTT)
	if errors.Is(err, mqtt.ErrDisabled) {
		log.Info("MQTT disabled")
		return nil
	}
	if err != nil {
		log.Warn("MQTT unavailable, events will not be published", "error", err)
		return nil
	}

	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", net.JoinHostPort(cfg.MQTT.Broker.Host, strconv.Itoa(cfg.MQTT.Broker.Port)),
		"client_id", cfg.MQTT.Broker.ClientID,
		"topic", client.Topics().AllEvents(),
	)
	return client
}

// connectInfluxDB connects the telemetry writer. The bridge runs without it
// when InfluxDB is disabled or unreachable.
func connectInfluxDB(cfg *config.Config, log *logging.Logger) *influxdb.Client {
	client, err := influxdb.Connect(cfg.InfluxDB)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Info("InfluxDB disabled")
		return nil
	}
	if err != nil {
		log.Warn("InfluxDB unavailable, telemetry will not be recorded", "error", err)
		return nil
	}

	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client
}

// announceAddress returns the address to print in the startup banner.
// When bound to all interfaces, the LAN address is detected.
func announceAddress(host, bound string) string {
	_, port, err := net.SplitHostPort(bound)
	if err != nil {
		return bound
	}
	if host != "" {
		return net.JoinHostPort(host, port)
	}
	ip, err := detectLANAddress()
	if err != nil {
		return bound
	}
	return net.JoinHostPort(ip, port)
}

// detectLANAddress finds the IP of the interface used for outbound traffic.
func detectLANAddress() (string, error) {
	conn, err := net.Dial("udp", probeAddress)
	if err != nil {
		return "", fmt.Errorf("detecting LAN address: %w", err)
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("detecting LAN address: unexpected address %s", conn.LocalAddr())
	}
	return addr.IP.String(), nil
}
