// Meridian Core - CRM Automation Engine
//
// This is the main entry point for the Meridian Core application.
// Meridian Core listens for CRM domain events on MQTT, evaluates
// automation rules against them, and executes the configured actions:
// messages, tasks, tags, status changes, agent assignment, quotes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/meridian-crm/meridian-core/migrations"

	"github.com/meridian-crm/meridian-core/internal/api"
	"github.com/meridian-crm/meridian-core/internal/auth"
	"github.com/meridian-crm/meridian-core/internal/automation"
	"github.com/meridian-crm/meridian-core/internal/crm"
	"github.com/meridian-crm/meridian-core/internal/infrastructure/config"
	"github.com/meridian-crm/meridian-core/internal/infrastructure/database"
	"github.com/meridian-crm/meridian-core/internal/infrastructure/influxdb"
	"github.com/meridian-crm/meridian-core/internal/infrastructure/logging"
	"github.com/meridian-crm/meridian-core/internal/infrastructure/mqtt"
	"github.com/meridian-crm/meridian-core/internal/messaging"
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
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error { //nolint:gocognit // startup: wires every component in dependency order
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Meridian Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
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

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise automation registry
	repo := automation.NewSQLiteRepository(db.DB)
	registry := automation.NewRegistry(repo)
	registry.SetLogger(log)

	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading automation registry: %w", refreshErr)
	}
	log.Info("automation registry initialised", "automations", registry.Count())

	// CRM store and agent accounts
	store := crm.NewStore(db.DB)
	agents := auth.NewAgentRepository(db.DB)
	if _, seedErr := auth.SeedAdmin(ctx, agents, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Outbound messaging via MQTT channel bridges
	messenger := messaging.NewService(mqttClient, cfg.Messaging, log)

	// Action dispatcher and delay scheduler
	dispatcher := automation.NewDispatcher(&crmGateway{store: store}, messenger, nil, log)
	scheduler := automation.NewScheduler(repo, dispatcher, nil,
		time.Duration(cfg.Automation.SchedulerPollInterval)*time.Second,
		cfg.Automation.SchedulerBatchSize,
	)
	scheduler.SetLogger(log)
	go scheduler.Run(ctx)
	log.Info("delay scheduler started",
		"poll_interval_s", cfg.Automation.SchedulerPollInterval,
		"batch_size", cfg.Automation.SchedulerBatchSize,
	)

	// WebSocket hub, shared between the engine and the API server
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Rule engine
	var topics mqtt.Topics
	engine := automation.NewEngine(registry, repo, dispatcher, scheduler, nil, log)
	engine.SetHub(hub)
	engine.SetNotifier(mqttClient, topics.AutomationFired)
	if influxClient != nil {
		engine.SetMetrics(influxClient)
	}

	// Event intake: CRM events arrive on meridian/events/{trigger_type}
	triggers := automation.NewTriggerService(registry, engine, &eventBusAdapter{client: mqttClient},
		topics.AllEvents(), log)
	if startErr := triggers.Start(); startErr != nil {
		return fmt.Errorf("starting trigger service: %w", startErr)
	}
	log.Info("trigger service started", "topic", topics.AllEvents())

	// HTTP API
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Automation:  cfg.Automation,
		Logger:      log,
		Registry:    registry,
		Engine:      engine,
		Repo:        repo,
		Stats:       automation.NewAggregator(repo, nil),
		CRM:         store,
		Agents:      agents,
		MQTT:        mqttClient,
		ExternalHub: hub,
		Version:     version,
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
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("Meridian Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses MERIDIAN_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("MERIDIAN_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// crmGateway adapts the CRM store to the automation dispatcher's interface.
// Most methods line up directly; the task and quote creators differ because
// the store works with its own record types.
type crmGateway struct {
	store *crm.Store
}

// AddContactTags implements automation.CRMGateway.
func (g *crmGateway) AddContactTags(ctx context.Context, contactID string, tags []string) ([]string, error) {
	return g.store.AddTags(ctx, contactID, tags)
}

// SetContactStatus implements automation.CRMGateway.
func (g *crmGateway) SetContactStatus(ctx context.Context, contactID, status string) error {
	return g.store.SetStatus(ctx, contactID, crm.ContactStatus(status))
}

// AssignAgent implements automation.CRMGateway.
func (g *crmGateway) AssignAgent(ctx context.Context, contactID, agentID string) error {
	return g.store.AssignAgent(ctx, contactID, agentID)
}

// CreateTask implements automation.CRMGateway.
func (g *crmGateway) CreateTask(ctx context.Context, spec automation.TaskSpec) (string, error) {
	task := &crm.Task{
		Title:        spec.Title,
		Priority:     spec.Priority,
		DueDate:      spec.DueDate,
		ContactID:    optionalID(spec.ContactID),
		Description:  optionalID(spec.Description),
		AssignedToID: optionalID(spec.AssignedToID),
	}
	if err := g.store.CreateTask(ctx, task); err != nil {
		return "", err
	}
	return task.ID, nil
}

// CreateQuote implements automation.CRMGateway.
func (g *crmGateway) CreateQuote(ctx context.Context, contactID string, details map[string]any) (string, error) {
	quote := &crm.Quote{
		ContactID: contactID,
		Details:   details,
	}
	if destination, ok := details["destination"].(string); ok {
		quote.Destination = &destination
	}
	if amount, ok := details["amount"].(float64); ok {
		quote.Amount = &amount
	}
	if err := g.store.CreateQuote(ctx, quote); err != nil {
		return "", err
	}
	return quote.ID, nil
}

func optionalID(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// eventBusAdapter adapts the infrastructure MQTT client to the trigger
// service's EventBus interface. The MQTT client's handler is a defined
// type, so the method signatures do not match directly.
type eventBusAdapter struct {
	client *mqtt.Client
}

// Subscribe implements automation.EventBus.
func (a *eventBusAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error {
	return a.client.Subscribe(topic, qos, mqtt.MessageHandler(handler))
}
