package services

import (
	"context"
	"fmt"

	"story-content-gateway/config"
	"story-content-gateway/database"
)

// ServiceContainer holds all service instances
type ServiceContainer struct {
	// Core services
	RelationshipService *RelationshipService
	TreeService         *TreeService
	TreeCache           *TreeCache
	FingerprintService  *FingerprintService
	ConsistencyChecker  ConsistencyChecker
	Authorizer          Authorizer
	Store               StoryStore

	// Database
	PostgresService *database.PostgresService

	// Performance and monitoring
	CacheService   CacheService
	MetricsService MetricsService
	Monitor        PerformanceMonitor
	Logger         Logger
	HealthService  HealthService
}

// ServiceFactory creates and configures all services
type ServiceFactory struct {
	config *config.Config
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(cfg *config.Config) *ServiceFactory {
	return &ServiceFactory{
		config: cfg,
	}
}

// CreateServices creates and wires all services together
func (f *ServiceFactory) CreateServices() (*ServiceContainer, error) {
	logLevel := ParseLogLevel(f.config.Logging.Level)
	logger := NewStructuredLogger(logLevel, nil)

	var cacheService CacheService
	var metricsService MetricsService
	var monitor PerformanceMonitor

	if f.config.Cache.Enabled {
		cacheService = NewInMemoryCache(
			f.config.Cache.MaxSize,
			f.config.Cache.CleanupInterval,
		)
	}

	if f.config.Performance.MetricsEnabled {
		metricsService = NewInMemoryMetrics()
	}

	if f.config.Performance.MonitoringEnabled {
		monitor = NewInMemoryPerformanceMonitor(nil)
	}

	healthService := NewHealthService("1.0.0", logger)

	pgConfig := &database.PostgresConfig{
		Host:     f.config.Database.Host,
		Port:     f.config.Database.Port,
		Database: f.config.Database.Database,
		User:     f.config.Database.User,
		Password: f.config.Database.Password,
		SSLMode:  f.config.Database.SSLMode,
		MaxConns: int32(f.config.Database.MaxConns),
		MinConns: int32(f.config.Database.MinConns),
	}

	postgresService, err := database.NewPostgresService(pgConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL service: %w", err)
	}

	store := database.NewPostgresStoryStore(postgresService)
	authorizer := NewDefaultAuthorizer()
	fingerprintService := NewFingerprintService()
	treeService := NewTreeService(store, authorizer, logger)

	treeCacheConfig := &TreeCacheConfig{
		Enabled:        f.config.Cache.Enabled,
		PublishedTTL:   f.config.Cache.PublishedTTL,
		PrivateTTL:     f.config.Cache.PrivateTTL,
		BackendTimeout: f.config.Cache.BackendTimeout,
	}
	treeCache := NewTreeCache(cacheService, treeService, store, authorizer,
		metricsService, monitor, logger, treeCacheConfig)

	relationshipService := NewRelationshipService(store, treeCache, logger)

	// Consistency checks run over database/sql so pq array decoding is
	// available for the aggregate queries.
	stdlibDB, err := postgresService.StdlibDB()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdlib DB: %w", err)
	}
	consistencyChecker := NewDatabaseConsistencyChecker(stdlibDB, logger)

	healthService.RegisterChecker(NewDatabaseHealthChecker("database", store))
	if cacheService != nil {
		healthService.RegisterChecker(NewCacheHealthChecker("cache", cacheService))
	}
	if monitor != nil {
		healthService.RegisterChecker(NewMonitorHealthChecker("performance", monitor))
	}

	container := &ServiceContainer{
		RelationshipService: relationshipService,
		TreeService:         treeService,
		TreeCache:           treeCache,
		FingerprintService:  fingerprintService,
		ConsistencyChecker:  consistencyChecker,
		Authorizer:          authorizer,
		Store:               store,
		PostgresService:     postgresService,
		CacheService:        cacheService,
		MetricsService:      metricsService,
		Monitor:             monitor,
		Logger:              logger,
		HealthService:       healthService,
	}

	return container, nil
}

// HealthCheck verifies the critical database connection
func (c *ServiceContainer) HealthCheck() error {
	if err := c.Store.Ping(context.Background()); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Shutdown releases background resources held by the container
func (c *ServiceContainer) Shutdown() {
	if c.Monitor != nil {
		c.Monitor.Stop()
	}
	if stoppable, ok := c.CacheService.(interface{ Stop() }); ok {
		stoppable.Stop()
	}
	if c.PostgresService != nil {
		c.PostgresService.Close()
	}
}
