package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseHealthChecker(t *testing.T) {
	store := NewMockStoryStore()
	checker := NewDatabaseHealthChecker("database", store)

	health := checker.Check(context.Background())
	assert.Equal(t, HealthStatusHealthy, health.Status)

	store.PingErr = fmt.Errorf("connection refused")
	health = checker.Check(context.Background())
	assert.Equal(t, HealthStatusUnhealthy, health.Status)
	assert.Contains(t, health.Message, "connection refused")
}

func TestCacheHealthChecker(t *testing.T) {
	t.Run("working cache is healthy", func(t *testing.T) {
		cache := NewInMemoryCache(10, time.Minute)
		defer cache.Stop()

		checker := NewCacheHealthChecker("cache", cache)
		health := checker.Check(context.Background())

		assert.Equal(t, HealthStatusHealthy, health.Status)
		assert.Contains(t, health.Details, "hit_rate")
	})

	t.Run("failing backend degrades instead of failing", func(t *testing.T) {
		checker := NewCacheHealthChecker("cache", &failingCache{})
		health := checker.Check(context.Background())

		// Tree reads fail open to the database, so a dead cache backend
		// is degradation, not an outage
		assert.Equal(t, HealthStatusDegraded, health.Status)
	})
}

func TestMonitorHealthChecker(t *testing.T) {
	thresholds := DefaultMonitorThresholds()
	thresholds.BackgroundInterval = time.Hour
	monitor := NewInMemoryPerformanceMonitor(thresholds)
	defer monitor.Stop()

	checker := NewMonitorHealthChecker("performance", monitor)

	health := checker.Check(context.Background())
	assert.Equal(t, HealthStatusHealthy, health.Status)

	monitor.RecordHit("tree_cache.full", 2*time.Second)
	health = checker.Check(context.Background())
	assert.Equal(t, HealthStatusUnhealthy, health.Status)

	monitor.Reset()
	monitor.RecordHit("tree_cache.full", time.Millisecond)
	health = checker.Check(context.Background())
	assert.Equal(t, HealthStatusHealthy, health.Status)
}

func TestHealthService_AggregatesComponents(t *testing.T) {
	store := NewMockStoryStore()
	cache := NewInMemoryCache(10, time.Minute)
	defer cache.Stop()

	service := NewHealthService("test", nil)
	service.RegisterChecker(NewDatabaseHealthChecker("database", store))
	service.RegisterChecker(NewCacheHealthChecker("cache", cache))

	health := service.CheckHealth(context.Background())
	assert.Equal(t, HealthStatusHealthy, health.Status)
	assert.Len(t, health.Components, 2)
	assert.Equal(t, "test", health.Version)
}

func TestHealthService_UnhealthyComponentWins(t *testing.T) {
	store := NewMockStoryStore()
	store.PingErr = fmt.Errorf("down")

	service := NewHealthService("test", nil)
	service.RegisterChecker(NewDatabaseHealthChecker("database", store))
	service.RegisterChecker(NewCacheHealthChecker("cache", &failingCache{}))

	health := service.CheckHealth(context.Background())
	assert.Equal(t, HealthStatusUnhealthy, health.Status)
	assert.Equal(t, HealthStatusUnhealthy, health.Components["database"].Status)
	assert.Equal(t, HealthStatusDegraded, health.Components["cache"].Status)
}

func TestHealthService_DegradedWithoutUnhealthy(t *testing.T) {
	store := NewMockStoryStore()

	service := NewHealthService("test", nil)
	service.RegisterChecker(NewDatabaseHealthChecker("database", store))
	service.RegisterChecker(NewCacheHealthChecker("cache", &failingCache{}))

	health := service.CheckHealth(context.Background())
	assert.Equal(t, HealthStatusDegraded, health.Status)
}

func TestHealthService_CheckComponent(t *testing.T) {
	store := NewMockStoryStore()
	service := NewHealthService("test", nil)
	service.RegisterChecker(NewDatabaseHealthChecker("database", store))

	health, err := service.CheckComponent(context.Background(), "database")
	require.NoError(t, err)
	assert.Equal(t, HealthStatusHealthy, health.Status)

	_, err = service.CheckComponent(context.Background(), "unknown")
	assert.Error(t, err)
}

type panickyChecker struct{}

func (p *panickyChecker) Name() string { return "panicky" }
func (p *panickyChecker) Check(ctx context.Context) ComponentHealth {
	panic("checker blew up")
}

func TestHealthService_RecoversPanickingChecker(t *testing.T) {
	service := NewHealthService("test", nil)
	service.RegisterChecker(&panickyChecker{})

	health := service.CheckHealth(context.Background())
	assert.Equal(t, HealthStatusUnhealthy, health.Status)
	assert.Contains(t, health.Components["panicky"].Message, "panicked")
}
