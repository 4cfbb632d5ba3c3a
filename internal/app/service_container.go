package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"issuance-backend/internal/clients"
	"issuance-backend/internal/config"
	"issuance-backend/internal/db"
	"issuance-backend/internal/engine"
	"issuance-backend/internal/events"
	"issuance-backend/internal/metrics"
	"issuance-backend/internal/repository"
	"issuance-backend/internal/services"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ServiceContainer wires the engine, repositories and services together.
type ServiceContainer struct {
	DB *gorm.DB

	// Repositories
	OperationRepo repository.OperationRepository
	GrantRepo     repository.GrantRepository
	RoleRepo      repository.RoleRepository
	RegistryRepo  repository.RegistryRepository
	NonceRepo     repository.NonceRepository
	SnapshotRepo  repository.SnapshotRepository

	// Engine and core services
	Engine           *engine.Engine
	BootstrapService *services.BootstrapService
	IssuanceService  *services.IssuanceService
	QuoteService     *services.QuoteService
	AdminAuthService *services.AdminAuthService

	// Event and push infrastructure
	NATSClient           *clients.NATSClient
	Publisher            *events.Publisher
	WebSocketPushService *services.WebSocketPushService

	// Background services
	ChainClient     *clients.ChainClient
	HeightService   *services.HeightService
	SnapshotService *services.SnapshotService
}

var Container *ServiceContainer
var containerOnce sync.Once

// InitializeContainer builds the container once. NATS and the chain height
// feed are optional; everything else is required.
func InitializeContainer() (*ServiceContainer, error) {
	var initErr error

	containerOnce.Do(func() {
		logrus.Info("Initializing service container")

		container := &ServiceContainer{DB: db.DB}

		container.initRepositories()

		if err := container.initEventServices(); err != nil {
			// NATS is optional; operations still commit without it.
			logrus.WithError(err).Warn("Event services unavailable, continuing without NATS")
		}

		if err := container.initCoreServices(); err != nil {
			initErr = fmt.Errorf("failed to initialize core services: %w", err)
			return
		}

		container.initBackgroundServices()

		Container = container
		logrus.Info("Service container initialized")
	})

	return Container, initErr
}

func (c *ServiceContainer) initRepositories() {
	c.OperationRepo = repository.NewOperationRepository(c.DB)
	c.GrantRepo = repository.NewGrantRepository(c.DB)
	c.RoleRepo = repository.NewRoleRepository(c.DB)
	c.RegistryRepo = repository.NewRegistryRepository(c.DB)
	c.NonceRepo = repository.NewNonceRepository(c.DB)
	c.SnapshotRepo = repository.NewSnapshotRepository(c.DB)
}

func (c *ServiceContainer) initEventServices() error {
	if config.AppConfig == nil || !config.AppConfig.NATS.Enabled || config.AppConfig.NATS.URL == "" {
		return fmt.Errorf("NATS not configured")
	}

	natsClient, err := clients.NewNATSClient(config.AppConfig.NATS.URL)
	if err != nil {
		metrics.NATSConnectionStatus.Set(0)
		return fmt.Errorf("failed to connect to NATS at %s: %w", config.AppConfig.NATS.URL, err)
	}

	c.NATSClient = natsClient
	metrics.NATSConnectionStatus.Set(1)
	logrus.WithField("url", config.AppConfig.NATS.URL).Info("NATS client connected")
	return nil
}

func (c *ServiceContainer) initCoreServices() error {
	// Publisher tolerates a nil client; publishes become no-ops.
	c.Publisher = events.NewPublisher(c.NATSClient)

	c.BootstrapService = services.NewBootstrapService(
		c.GrantRepo,
		c.RoleRepo,
		c.RegistryRepo,
		c.NonceRepo,
		c.OperationRepo,
	)

	eng, err := c.BootstrapService.BuildEngine(config.AppConfig)
	if err != nil {
		return err
	}
	c.Engine = eng

	c.IssuanceService = services.NewIssuanceService(
		c.Engine,
		c.OperationRepo,
		c.GrantRepo,
		c.RoleRepo,
		c.RegistryRepo,
		c.NonceRepo,
		c.Publisher,
	)

	c.AdminAuthService = services.NewAdminAuthService(config.AppConfig.Admin)

	var quoteClient *clients.RouteQuoteClient
	if config.AppConfig.Quote.BaseURL != "" {
		timeout := time.Duration(config.AppConfig.Quote.Timeout) * time.Second
		quoteClient = clients.NewRouteQuoteClient(config.AppConfig.Quote.BaseURL, config.AppConfig.Quote.APIKey, timeout)
	}
	c.QuoteService = services.NewQuoteService(c.Engine, quoteClient)

	c.WebSocketPushService = services.NewWebSocketPushService()
	c.WebSocketPushService.Attach(c.Engine)

	return nil
}

func (c *ServiceContainer) initBackgroundServices() {
	if len(config.AppConfig.Chain.RPCEndpoints) > 0 && config.AppConfig.Chain.PollInterval > 0 {
		chainClient, err := clients.NewChainClient(config.AppConfig.Chain.RPCEndpoints)
		if err != nil {
			// Grant height windows will not advance until a feed is available.
			logrus.WithError(err).Warn("Chain client unavailable, height feed disabled")
		} else {
			c.ChainClient = chainClient
			interval := time.Duration(config.AppConfig.Chain.PollInterval) * time.Second
			c.HeightService = services.NewHeightService(c.Engine, chainClient, interval)
			c.HeightService.Start()
			logrus.WithField("interval", interval).Info("Height feed started")
		}
	}

	c.SnapshotService = services.NewSnapshotService(c.Engine, c.SnapshotRepo, c.Publisher, 0)
	c.SnapshotService.Start()
}

// Rehydrate restores the durable slice of engine state from Postgres:
// grants, roles, the asset registry, permit nonces and the sequence cursor.
func (c *ServiceContainer) Rehydrate(ctx context.Context) error {
	return c.BootstrapService.Rehydrate(ctx, c.Engine)
}

// Cleanup stops background services and closes external connections.
func (c *ServiceContainer) Cleanup() {
	logrus.Info("Cleaning up service container")

	if c.SnapshotService != nil {
		c.SnapshotService.Stop()
	}
	if c.HeightService != nil {
		c.HeightService.Stop()
	}
	if c.ChainClient != nil {
		c.ChainClient.Close()
	}
	if c.NATSClient != nil {
		c.NATSClient.Close()
	}

	logrus.Info("Service container cleaned up")
}
