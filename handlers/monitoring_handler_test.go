package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-content-gateway/models"
	"story-content-gateway/services"
)

type monitoringFixture struct {
	store   *services.MockStoryStore
	monitor *services.InMemoryPerformanceMonitor
	backend *services.InMemoryCache
	router  *mux.Router
}

func newMonitoringFixture(t *testing.T) *monitoringFixture {
	t.Helper()

	store := services.NewMockStoryStore()

	thresholds := services.DefaultMonitorThresholds()
	thresholds.BackgroundInterval = time.Hour
	monitor := services.NewInMemoryPerformanceMonitor(thresholds)
	t.Cleanup(monitor.Stop)

	backend := services.NewInMemoryCache(64, time.Minute)
	t.Cleanup(backend.Stop)

	treeService := services.NewTreeService(store, nil, nil)
	treeCache := services.NewTreeCache(backend, treeService, store, nil, nil, monitor, nil, nil)

	health := services.NewHealthService("test", nil)
	health.RegisterChecker(services.NewDatabaseHealthChecker("database", store))
	health.RegisterChecker(services.NewCacheHealthChecker("cache", backend))

	handler := NewMonitoringHandler(monitor, nil, treeCache, nil, health, services.NewDefaultAuthorizer())

	router := mux.NewRouter()
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/monitoring", handler.GetMonitoringReport).Methods("GET")
	api.HandleFunc("/monitoring/metrics", handler.GetPerformanceMetrics).Methods("GET")
	api.HandleFunc("/monitoring/alerts/{id}/ack", handler.AcknowledgeAlert).Methods("POST")
	api.HandleFunc("/monitoring/cache", handler.GetCacheStats).Methods("GET")
	api.HandleFunc("/monitoring/cache/clear", handler.ClearCache).Methods("POST")

	return &monitoringFixture{store: store, monitor: monitor, backend: backend, router: router}
}

func (f *monitoringFixture) get(path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *monitoringFixture) post(path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

var adminHeaders = map[string]string{"X-User-ID": "ops-1", "X-User-Role": "admin"}

func TestGetMonitoringReport(t *testing.T) {
	f := newMonitoringFixture(t)

	f.monitor.RecordHit("tree_cache.full", time.Millisecond)
	f.monitor.RecordHit("tree_cache.full", time.Millisecond)
	f.monitor.RecordMiss("tree_cache.full", 10*time.Millisecond)

	rec := f.get("/api/v1/monitoring", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.MonitoringResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Healthy)
	assert.Equal(t, int64(2), body.Summary.TotalHits)
	assert.Equal(t, int64(1), body.Summary.TotalMisses)
	assert.InDelta(t, 2.0/3.0, body.Summary.HitRate, 0.001)
}

func TestGetMonitoringReport_SurfacesAlerts(t *testing.T) {
	f := newMonitoringFixture(t)

	f.monitor.RecordHit("tree_cache.full", 2*time.Second)

	rec := f.get("/api/v1/monitoring", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.MonitoringResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Healthy)
	assert.GreaterOrEqual(t, body.Alerts.Total, 1)
	assert.GreaterOrEqual(t, body.Alerts.BySeverity["critical"], 1)
}

func TestGetPerformanceMetrics(t *testing.T) {
	f := newMonitoringFixture(t)

	f.monitor.RecordHit("tree_cache.full", time.Millisecond)

	rec := f.get("/api/v1/monitoring/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var metrics services.PerformanceMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	assert.Equal(t, int64(1), metrics.Count)
}

func TestAcknowledgeAlert(t *testing.T) {
	f := newMonitoringFixture(t)

	f.monitor.RecordHit("tree_cache.full", 2*time.Second)
	report := f.monitor.CheckHealth()
	require.NotEmpty(t, report.Alerts)
	alertID := report.Alerts[0].ID

	t.Run("requires admin", func(t *testing.T) {
		rec := f.post("/api/v1/monitoring/alerts/"+alertID+"/ack", map[string]string{"X-User-ID": "author-1"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("acknowledges by id", func(t *testing.T) {
		rec := f.post("/api/v1/monitoring/alerts/"+alertID+"/ack", adminHeaders)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		rec := f.post("/api/v1/monitoring/alerts/"+alertID+"/ack", adminHeaders)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetCacheStats_OpenToAnyViewer(t *testing.T) {
	f := newMonitoringFixture(t)

	rec := f.get("/api/v1/monitoring/cache", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats services.CacheStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 64, stats.MaxSize)
}

func TestClearCache(t *testing.T) {
	f := newMonitoringFixture(t)

	require.NoError(t, f.backend.Set(httptest.NewRequest("GET", "/", nil).Context(), "tree:x:full", "v", time.Minute))

	t.Run("requires admin", func(t *testing.T) {
		rec := f.post("/api/v1/monitoring/cache/clear", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("clears as admin", func(t *testing.T) {
		rec := f.post("/api/v1/monitoring/cache/clear", adminHeaders)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, 0, f.backend.GetStats().Size)
	})
}

func TestGetHealth(t *testing.T) {
	t.Run("healthy system returns 200", func(t *testing.T) {
		f := newMonitoringFixture(t)

		rec := f.get("/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var health services.SystemHealth
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		assert.Equal(t, services.HealthStatusHealthy, health.Status)
		assert.Contains(t, health.Components, "database")
		assert.Contains(t, health.Components, "cache")
	})

	t.Run("failing store returns 503", func(t *testing.T) {
		f := newMonitoringFixture(t)
		f.store.PingErr = assert.AnError

		rec := f.get("/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
