package container

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	token "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.ApiService/implementation/token"
	access "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Access"
	command "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Command"
	config "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Config"
	hub "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Hub"
	ingest "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Ingest"
	logger "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Logger"
	uwdmodels "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models"
	api_models "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models/api"
	auth_models "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Models/auth"
	registry "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Registry"
	session "gitlab.com/uwdf1/uwdf.telemetry_server/src/production/UWD.Session"
)

// Container manages the API service's dependencies and their lifecycle.
// The registry and access store are the only mutable shared state in the
// process; both live here, owned from startup to shutdown.
type Container struct {
	config *config.Config
	logger *logger.Logger

	registry  *registry.Registry
	acl       *access.Store
	sessions  *session.Authenticator
	hub       *hub.Hub
	gateway   *ingest.Gateway
	tokens    *token.Service
	processor *command.Processor

	mu           sync.Mutex
	cancel       context.CancelFunc
	cleanupFuncs []func() error
}

// IngestorContainer manages dependencies for the MQTT Ingestor service
type IngestorContainer struct {
	config *config.IngestorConfig
	logger *logger.Logger
}

// NewContainer creates and wires the API service container.
func NewContainer() (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewLogger(&cfg.Logging)

	c := &Container{
		config:   cfg,
		logger:   log,
		registry: registry.NewRegistry(),
		acl:      access.NewStore(),
		sessions: session.NewAuthenticator(cfg.Auth.SessionDuration),
	}
	c.hub = hub.NewHub(hub.Config{
		QueueSize:      cfg.Hub.SubscriberQueueSize,
		MaxSubscribers: cfg.Hub.MaxSubscribers,
	}, c.acl, c.registry, log)
	c.gateway = ingest.NewGateway(c.registry, log)
	c.tokens = token.NewService(api_models.TokenConfig{
		SecretKey: cfg.Auth.InternalAPISecret,
		Issuer:    cfg.Auth.InternalIssuer,
	})
	c.processor = command.NewProcessor(c.sessions, c.acl, c.registry)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.sessions.StartSweeper(ctx, time.Minute)

	return c, nil
}

// NewIngestorContainer creates a new container for the MQTT Ingestor service
func NewIngestorContainer() (*IngestorContainer, error) {
	cfg, err := config.LoadIngestorConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return &IngestorContainer{
		config: cfg,
		logger: logger.NewLogger(&cfg.Logging),
	}, nil
}

// Seed provisions the admin account and, if SEED_DEMO_FLEET is set, the
// demo fleet the original platform shipped with.
func (c *Container) Seed() error {
	adm := c.config.Auth.Admin
	if err := c.sessions.AddUser(adm.UserID, adm.Secret, auth_models.RoleAdmin); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	c.acl.MarkAdmin(adm.UserID)

	if os.Getenv("SEED_DEMO_FLEET") != "true" {
		return nil
	}

	now := time.Now().UnixMilli()
	c.registry.Upsert(uwdmodels.Reading{SensorID: "HR001", Kind: uwdmodels.KindHeartRate, Value: 0, Timestamp: now})
	c.registry.Upsert(uwdmodels.Reading{SensorID: "TEMP001", Kind: uwdmodels.KindTemperature, Value: 0, Timestamp: now})
	c.registry.Upsert(uwdmodels.Reading{SensorID: "MOT001", Kind: uwdmodels.KindMotion, Value: 0, Timestamp: now})

	demo := map[string][]string{
		"1": {"HR001", "TEMP001"},
		"2": {"MOT001"},
	}
	for userID, sensors := range demo {
		if err := c.sessions.AddUser(userID, "demo-"+userID, auth_models.RoleUser); err != nil {
			return fmt.Errorf("failed to seed demo user %s: %w", userID, err)
		}
		c.acl.Grant(userID, sensors)
	}

	c.logger.Info("Seeded demo fleet and users")
	return nil
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetConfig returns the ingestor configuration
func (c *IngestorContainer) GetConfig() *config.IngestorConfig {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.logger
}

// GetLogger returns the logger
func (c *IngestorContainer) GetLogger() *logger.Logger {
	return c.logger
}

// GetRegistry returns the sensor registry
func (c *Container) GetRegistry() *registry.Registry {
	return c.registry
}

// GetAccessStore returns the access-control store
func (c *Container) GetAccessStore() *access.Store {
	return c.acl
}

// GetSessions returns the session authenticator
func (c *Container) GetSessions() *session.Authenticator {
	return c.sessions
}

// GetHub returns the broadcast hub
func (c *Container) GetHub() *hub.Hub {
	return c.hub
}

// GetGateway returns the ingest gateway
func (c *Container) GetGateway() *ingest.Gateway {
	return c.gateway
}

// GetTokenService returns the internal token service
func (c *Container) GetTokenService() *token.Service {
	return c.tokens
}

// GetProcessor returns the command processor
func (c *Container) GetProcessor() *command.Processor {
	return c.processor
}

// RegisterCleanup registers a function executed at shutdown
func (c *Container) RegisterCleanup(fn func() error) {
	c.mu.Lock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
	c.mu.Unlock()
}

// Shutdown gracefully shuts down the container and all its dependencies
func (c *Container) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down container...")
	c.cancel()

	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.mu.Unlock()

	// Execute cleanup functions in reverse order
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](); err != nil {
			c.logger.ErrorWithError(err, "Error during cleanup")
		}
	}

	c.logger.Info("Container shutdown complete")
	return nil
}

// Shutdown shuts down the ingestor container
func (c *IngestorContainer) Shutdown(ctx context.Context) error {
	return nil
}
