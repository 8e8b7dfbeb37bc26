package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	apperrors "story-content-gateway/errors"
	"story-content-gateway/models"
	"story-content-gateway/services"
)

// MonitoringHandler exposes cache effectiveness, alerts, health and
// consistency reports. Read endpoints are open; anything that mutates
// state or exposes raw database findings requires the admin role.
type MonitoringHandler struct {
	monitor     services.PerformanceMonitor
	metrics     services.MetricsService
	treeCache   *services.TreeCache
	consistency services.ConsistencyChecker
	health      services.HealthService
	authorizer  services.Authorizer
}

// NewMonitoringHandler creates a new monitoring handler
func NewMonitoringHandler(
	monitor services.PerformanceMonitor,
	metrics services.MetricsService,
	treeCache *services.TreeCache,
	consistency services.ConsistencyChecker,
	health services.HealthService,
	authorizer services.Authorizer,
) *MonitoringHandler {
	return &MonitoringHandler{
		monitor:     monitor,
		metrics:     metrics,
		treeCache:   treeCache,
		consistency: consistency,
		health:      health,
		authorizer:  authorizer,
	}
}

// GetMonitoringReport handles GET /api/v1/monitoring
func (h *MonitoringHandler) GetMonitoringReport(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "monitoring is disabled", "")
		return
	}

	report := h.monitor.CheckHealth()
	alerts := report.Alerts

	bySeverity := make(map[string]int)
	for _, alert := range alerts {
		bySeverity[string(alert.Severity)]++
	}

	response := models.MonitoringResponse{
		Healthy: report.Healthy,
		Summary: models.MonitoringSummary{
			HitRate:         report.Stats.HitRate,
			AverageDuration: report.Stats.AverageDuration,
			TotalHits:       report.Stats.TotalHits,
			TotalMisses:     report.Stats.TotalMisses,
		},
		Alerts: models.MonitoringAlerts{
			Total:      len(alerts),
			BySeverity: bySeverity,
			List:       alerts,
		},
	}

	writeJSONResponse(w, http.StatusOK, response)
}

// GetPerformanceMetrics handles GET /api/v1/monitoring/metrics
func (h *MonitoringHandler) GetPerformanceMetrics(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "monitoring is disabled", "")
		return
	}

	writeJSONResponse(w, http.StatusOK, h.monitor.GetMetrics())
}

// AcknowledgeAlert handles POST /api/v1/monitoring/alerts/{id}/ack
func (h *MonitoringHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	if h.monitor == nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "monitoring is disabled", "")
		return
	}

	alertID := mux.Vars(r)["id"]
	if !h.monitor.AcknowledgeAlert(alertID) {
		writeAppErrorResponse(w, apperrors.NewNotFoundError(apperrors.ErrCodeInvalidInput,
			"no active alert with that id", nil))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetCacheStats handles GET /api/v1/monitoring/cache
func (h *MonitoringHandler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.treeCache.Stats())
}

// ClearCache handles POST /api/v1/monitoring/cache/clear
func (h *MonitoringHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	if err := h.treeCache.ClearAll(r.Context()); err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetConsistencyReport handles GET /api/v1/monitoring/consistency
func (h *MonitoringHandler) GetConsistencyReport(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	report, err := h.consistency.CheckAllConsistency(r.Context())
	if err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, report)
}

// GetIntegrityReport handles GET /api/v1/monitoring/integrity
func (h *MonitoringHandler) GetIntegrityReport(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	report, err := h.consistency.ValidateDataIntegrity(r.Context())
	if err != nil {
		writeAppErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, report)
}

// GetHealth handles GET /health
func (h *MonitoringHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	systemHealth := h.health.CheckHealth(r.Context())

	status := http.StatusOK
	if systemHealth.Status == services.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	writeJSONResponse(w, status, systemHealth)
}

func (h *MonitoringHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	viewer := viewerFromRequest(r)
	if !h.authorizer.CanAdminister(viewer) {
		writeAppErrorResponse(w, apperrors.NewForbiddenError(apperrors.ErrCodeAdminRequired,
			"admin role required", nil))
		return false
	}
	return true
}
