package services

import (
	"context"
	"fmt"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Name      string                 `json:"name"`
	Status    HealthStatus           `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Duration  time.Duration          `json:"duration"`
}

// SystemHealth represents the overall system health
type SystemHealth struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Uptime     time.Duration              `json:"uptime"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components"`
}

// HealthChecker interface for health checking
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) ComponentHealth
}

// HealthService manages health checks for the system
type HealthService interface {
	RegisterChecker(checker HealthChecker)
	CheckHealth(ctx context.Context) SystemHealth
	CheckComponent(ctx context.Context, name string) (ComponentHealth, error)
	GetSystemInfo() map[string]interface{}
}

// DefaultHealthService implements HealthService
type DefaultHealthService struct {
	checkers  map[string]HealthChecker
	startTime time.Time
	version   string
	logger    Logger
}

// NewHealthService creates a new health service
func NewHealthService(version string, logger Logger) *DefaultHealthService {
	if logger == nil {
		logger = NewDefaultLogger()
	}

	return &DefaultHealthService{
		checkers:  make(map[string]HealthChecker),
		startTime: time.Now(),
		version:   version,
		logger:    logger,
	}
}

// RegisterChecker registers a health checker
func (h *DefaultHealthService) RegisterChecker(checker HealthChecker) {
	h.checkers[checker.Name()] = checker
	h.logger.Info("Health checker registered", String("component", checker.Name()))
}

// CheckHealth performs health checks on all registered components
func (h *DefaultHealthService) CheckHealth(ctx context.Context) SystemHealth {
	start := time.Now()
	components := make(map[string]ComponentHealth)
	overallStatus := HealthStatusHealthy

	for name, checker := range h.checkers {
		componentHealth := h.checkComponentWithTimeout(ctx, checker, 5*time.Second)
		components[name] = componentHealth

		switch componentHealth.Status {
		case HealthStatusUnhealthy:
			overallStatus = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if overallStatus == HealthStatusHealthy {
				overallStatus = HealthStatusDegraded
			}
		}
	}

	systemHealth := SystemHealth{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Uptime:     time.Since(h.startTime),
		Version:    h.version,
		Components: components,
	}

	duration := time.Since(start)
	h.logger.Info("Health check completed",
		String("status", string(overallStatus)),
		Duration("duration", duration),
		Int("components_checked", len(components)))

	return systemHealth
}

// CheckComponent checks the health of a specific component
func (h *DefaultHealthService) CheckComponent(ctx context.Context, name string) (ComponentHealth, error) {
	checker, exists := h.checkers[name]
	if !exists {
		return ComponentHealth{}, fmt.Errorf("component %s not found", name)
	}

	return h.checkComponentWithTimeout(ctx, checker, 5*time.Second), nil
}

// GetSystemInfo returns general system information
func (h *DefaultHealthService) GetSystemInfo() map[string]interface{} {
	return map[string]interface{}{
		"version":    h.version,
		"uptime":     time.Since(h.startTime).String(),
		"start_time": h.startTime.Format(time.RFC3339),
		"components": len(h.checkers),
	}
}

// checkComponentWithTimeout checks a component with a timeout
func (h *DefaultHealthService) checkComponentWithTimeout(ctx context.Context, checker HealthChecker, timeout time.Duration) ComponentHealth {
	start := time.Now()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultChan := make(chan ComponentHealth, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultChan <- ComponentHealth{
					Name:      checker.Name(),
					Status:    HealthStatusUnhealthy,
					Message:   fmt.Sprintf("Health check panicked: %v", r),
					Timestamp: time.Now(),
					Duration:  time.Since(start),
				}
			}
		}()

		result := checker.Check(timeoutCtx)
		result.Duration = time.Since(start)
		resultChan <- result
	}()

	select {
	case result := <-resultChan:
		return result
	case <-timeoutCtx.Done():
		return ComponentHealth{
			Name:      checker.Name(),
			Status:    HealthStatusUnhealthy,
			Message:   "Health check timed out",
			Timestamp: time.Now(),
			Duration:  timeout,
		}
	}
}

// DatabaseHealthChecker checks story store connectivity
type DatabaseHealthChecker struct {
	name  string
	store StoryStore
}

// NewDatabaseHealthChecker creates a database health checker
func NewDatabaseHealthChecker(name string, store StoryStore) *DatabaseHealthChecker {
	return &DatabaseHealthChecker{
		name:  name,
		store: store,
	}
}

// Name returns the checker name
func (d *DatabaseHealthChecker) Name() string {
	return d.name
}

// Check performs the database health check
func (d *DatabaseHealthChecker) Check(ctx context.Context) ComponentHealth {
	start := time.Now()

	err := d.store.Ping(ctx)

	health := ComponentHealth{
		Name:      d.name,
		Timestamp: time.Now(),
		Duration:  time.Since(start),
	}

	if err != nil {
		health.Status = HealthStatusUnhealthy
		health.Message = err.Error()
	} else {
		health.Status = HealthStatusHealthy
		health.Message = "Database connection successful"
	}

	return health
}

// CacheHealthChecker checks cache backend health with a write/read probe
type CacheHealthChecker struct {
	name  string
	cache CacheService
}

// NewCacheHealthChecker creates a cache health checker
func NewCacheHealthChecker(name string, cache CacheService) *CacheHealthChecker {
	return &CacheHealthChecker{
		name:  name,
		cache: cache,
	}
}

// Name returns the checker name
func (c *CacheHealthChecker) Name() string {
	return c.name
}

// Check performs the cache health check. A failing cache backend degrades
// the system rather than taking it down, because tree reads fail open to
// the database.
func (c *CacheHealthChecker) Check(ctx context.Context) ComponentHealth {
	start := time.Now()

	health := ComponentHealth{
		Name:      c.name,
		Timestamp: time.Now(),
	}

	testKey := "health_check_probe"
	testValue := "probe_value"

	if err := c.cache.Set(ctx, testKey, testValue, time.Minute); err != nil {
		health.Status = HealthStatusDegraded
		health.Message = fmt.Sprintf("Cache set failed: %v", err)
		health.Duration = time.Since(start)
		return health
	}

	var result string
	found, err := c.cache.Get(ctx, testKey, &result)
	if err != nil {
		health.Status = HealthStatusDegraded
		health.Message = fmt.Sprintf("Cache get failed: %v", err)
		health.Duration = time.Since(start)
		return health
	}
	if !found || result != testValue {
		health.Status = HealthStatusDegraded
		health.Message = "Cache probe value mismatch"
		health.Duration = time.Since(start)
		return health
	}

	c.cache.Delete(ctx, testKey)

	stats := c.cache.GetStats()

	health.Status = HealthStatusHealthy
	health.Message = "Cache operations successful"
	health.Duration = time.Since(start)
	health.Details = map[string]interface{}{
		"hit_rate": stats.HitRate,
		"size":     stats.Size,
		"max_size": stats.MaxSize,
	}

	return health
}

// MonitorHealthChecker surfaces the performance monitor's own verdict
type MonitorHealthChecker struct {
	name    string
	monitor PerformanceMonitor
}

// NewMonitorHealthChecker creates a performance monitor health checker
func NewMonitorHealthChecker(name string, monitor PerformanceMonitor) *MonitorHealthChecker {
	return &MonitorHealthChecker{
		name:    name,
		monitor: monitor,
	}
}

// Name returns the checker name
func (m *MonitorHealthChecker) Name() string {
	return m.name
}

// Check maps the monitor's health report onto a component status.
// Unacknowledged critical alerts mark the component unhealthy; warnings
// and errors degrade it.
func (m *MonitorHealthChecker) Check(ctx context.Context) ComponentHealth {
	start := time.Now()

	report := m.monitor.CheckHealth()

	health := ComponentHealth{
		Name:      m.name,
		Timestamp: time.Now(),
		Duration:  time.Since(start),
		Details: map[string]interface{}{
			"hit_rate":     report.Stats.HitRate,
			"average":      report.Stats.AverageDuration.String(),
			"p95":          report.Stats.P95.String(),
			"total_errors": report.Stats.TotalErrors,
			"alerts":       len(report.Alerts),
		},
	}

	switch {
	case !report.Healthy:
		health.Status = HealthStatusUnhealthy
		health.Message = "Performance monitor reports critical alerts"
	case len(report.Alerts) > 0:
		health.Status = HealthStatusDegraded
		health.Message = fmt.Sprintf("%d active performance alerts", len(report.Alerts))
	default:
		health.Status = HealthStatusHealthy
		health.Message = "No active performance alerts"
	}

	return health
}
