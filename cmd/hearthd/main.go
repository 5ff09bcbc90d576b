// Hearth Core - Home Automation Hub
//
// This is the main entry point for the Hearth Core daemon. Hearth is a
// local-first home automation hub designed for:
//   - Offline-first operation (no cloud dependency)
//   - Multi-protocol device control via MQTT protocol bridges
//   - Edge-triggered automation rules and one-shot scenes
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hearthgrid/hearth-core/internal/api"
	"github.com/hearthgrid/hearth-core/internal/automation"
	"github.com/hearthgrid/hearth-core/internal/bridges/mqttbridge"
	"github.com/hearthgrid/hearth-core/internal/device"
	"github.com/hearthgrid/hearth-core/internal/events"
	"github.com/hearthgrid/hearth-core/internal/history"
	"github.com/hearthgrid/hearth-core/internal/infrastructure/config"
	"github.com/hearthgrid/hearth-core/internal/infrastructure/database"
	"github.com/hearthgrid/hearth-core/internal/infrastructure/influxdb"
	"github.com/hearthgrid/hearth-core/internal/infrastructure/logging"
	"github.com/hearthgrid/hearth-core/internal/infrastructure/mqtt"
	"github.com/hearthgrid/hearth-core/internal/orchestrator"
	"github.com/hearthgrid/hearth-core/internal/scene"
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

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error { //nolint:gocognit // Startup sequencing is inherently linear
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Hearth Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database and bootstrap the schema. An empty path runs the
	// hub in-memory only.
	var (
		deviceRepo device.Repository
		ruleRepo   automation.Repository
		sceneRepo  scene.Repository
	)
	if cfg.Database.Path != "" {
		db, openErr := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if openErr != nil {
			return fmt.Errorf("opening database: %w", openErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		if bootErr := db.Bootstrap(ctx); bootErr != nil {
			return fmt.Errorf("bootstrapping database: %w", bootErr)
		}
		log.Info("database ready", "path", cfg.Database.Path)

		deviceRepo = device.NewSQLiteRepository(db.DB)
		ruleRepo = automation.NewSQLiteRepository(db.DB)
		sceneRepo = scene.NewSQLiteRepository(db.DB)
	} else {
		log.Warn("database path empty, running without persistence")
	}

	// Event bus
	bus := events.NewBus()
	bus.SetLogger(log)
	defer bus.Close()

	// Device registry and stores
	registry := device.NewRegistry(deviceRepo)
	registry.SetLogger(log)
	if loadErr := registry.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading device registry: %w", loadErr)
	}
	log.Info("device registry loaded", "devices", registry.Count())

	rules := automation.NewStore(ruleRepo)
	rules.SetLogger(log)
	if loadErr := rules.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading rules: %w", loadErr)
	}

	scenes := scene.NewStore(sceneRepo)
	scenes.SetLogger(log)
	if loadErr := scenes.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading scenes: %w", loadErr)
	}

	// Orchestrator with automation engine and scene manager
	orch := orchestrator.New(orchestrator.Config{
		HubID:            cfg.Hub.ID,
		DiscoveryTimeout: cfg.GetDiscoveryTimeout(),
	}, registry, bus, nil, rules, scenes)
	orch.SetLogger(log)

	sceneMgr := scene.NewManager(scenes, bus, orch)
	sceneMgr.SetLogger(log)

	engine := automation.NewEngine(rules, bus, orch, sceneMgr)
	engine.SetLogger(log)
	engine.SetTick(cfg.GetAutomationTick())
	orch.AttachAutomation(engine, sceneMgr)

	// MQTT protocol bridges (optional)
	if cfg.MQTT.Enabled {
		mqttClient, connErr := mqtt.Connect(cfg.MQTT)
		if connErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", connErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		for _, p := range cfg.MQTT.Protocols {
			bridge, bridgeErr := mqttbridge.New(device.Protocol(p), mqttClient)
			if bridgeErr != nil {
				return fmt.Errorf("creating %s bridge: %w", p, bridgeErr)
			}
			bridge.SetLogger(log)
			orch.RegisterAdapter(bridge)
			log.Info("protocol bridge registered", "protocol", p)
		}
	} else {
		log.Info("MQTT disabled, no protocol bridges registered")
	}

	// History recorder (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, connErr := influxdb.Connect(cfg.InfluxDB)
		if connErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"bucket", cfg.InfluxDB.Bucket,
		)

		recorder := history.NewRecorder(bus, influxClient)
		recorder.SetLogger(log)
		go recorder.Run(ctx)
	} else {
		log.Info("InfluxDB disabled, history recording off")
	}

	// Bring the hub up
	if initErr := orch.Initialize(ctx); initErr != nil {
		return fmt.Errorf("initializing orchestrator: %w", initErr)
	}
	log.Info("orchestrator initialised", "state", orch.State().String())

	// Rule engine
	if cfg.Automation.Enabled {
		go engine.Run(ctx)
		log.Info("automation engine started", "tick", cfg.GetAutomationTick())
	} else {
		log.Info("automation engine disabled")
	}

	// HTTP API and WebSocket server
	server, err := api.New(api.Deps{
		Config:       cfg.API,
		WS:           cfg.WebSocket,
		Logger:       log,
		Orchestrator: orch,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Disconnect devices and disable the hub before the defer chain
	// tears down infrastructure.
	shutdownCtx := context.Background()
	if shutdownErr := orch.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error("orchestrator shutdown error", "error", shutdownErr)
	}

	log.Info("Hearth Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HEARTH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HEARTH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
