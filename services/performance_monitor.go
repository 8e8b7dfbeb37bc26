package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PerformanceMonitor observes cache and loader operations. It never
// changes an operation's result; it only records timing and outcome.
type PerformanceMonitor interface {
	// StartOperation begins timing an operation and returns its id. When
	// opID is empty a fresh id is generated.
	StartOperation(opID, name string) string
	// EndOperation stops timing and returns the measured duration.
	// Unknown ids return zero.
	EndOperation(opID string) time.Duration

	// Outcome recording
	RecordHit(name string, duration time.Duration)
	RecordMiss(name string, duration time.Duration)
	RecordError(name string, err error)

	// Aggregates
	GetMetrics() PerformanceMetrics
	CheckHealth() HealthReport
	AcknowledgeAlert(alertID string) bool
	GetAlerts() []Alert

	Reset()
	Stop()
}

// PerformanceMetrics summarizes observed operations
type PerformanceMetrics struct {
	Count           int64                    `json:"count"`
	AverageDuration time.Duration            `json:"average_duration"`
	P50             time.Duration            `json:"p50"`
	P95             time.Duration            `json:"p95"`
	TotalHits       int64                    `json:"total_hits"`
	TotalMisses     int64                    `json:"total_misses"`
	TotalErrors     int64                    `json:"total_errors"`
	HitRate         float64                  `json:"hit_rate"`
	ByName          map[string]OperationStat `json:"by_name"`
	LastReset       time.Time                `json:"last_reset"`
}

// OperationStat holds per-operation aggregates
type OperationStat struct {
	Count       int64         `json:"count"`
	TotalTime   time.Duration `json:"total_time"`
	AverageTime time.Duration `json:"average_time"`
	MinTime     time.Duration `json:"min_time"`
	MaxTime     time.Duration `json:"max_time"`
	Errors      int64         `json:"errors"`
}

// Alert represents a health alert. Alerts are individually identifiable
// and acknowledgeable; acknowledging removes one from the active list
// without touching the underlying metrics.
type Alert struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	Message   string        `json:"message"`
	Severity  AlertSeverity `json:"severity"`
	Timestamp time.Time     `json:"timestamp"`
}

// AlertSeverity grades an alert
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityError    AlertSeverity = "error"
	SeverityCritical AlertSeverity = "critical"
)

// HealthReport is the result of a health evaluation
type HealthReport struct {
	Healthy bool               `json:"healthy"`
	Stats   PerformanceMetrics `json:"stats"`
	Alerts  []Alert            `json:"alerts"`
}

// MonitorThresholds defines when the monitor raises alerts
type MonitorThresholds struct {
	MinHitRate          float64       `json:"min_hit_rate"`
	MinSamplesForRate   int64         `json:"min_samples_for_rate"`
	SlowAverage         time.Duration `json:"slow_average"`
	VerySlowAverage     time.Duration `json:"very_slow_average"`
	HighErrorRate       float64       `json:"high_error_rate"`
	AlertCooldown       time.Duration `json:"alert_cooldown"`
	BackgroundInterval  time.Duration `json:"background_interval"`
}

// DefaultMonitorThresholds returns sensible defaults
func DefaultMonitorThresholds() *MonitorThresholds {
	return &MonitorThresholds{
		MinHitRate:         0.5,
		MinSamplesForRate:  20,
		SlowAverage:        250 * time.Millisecond,
		VerySlowAverage:    time.Second,
		HighErrorRate:      0.05,
		AlertCooldown:      5 * time.Minute,
		BackgroundInterval: 30 * time.Second,
	}
}

const maxDurationSamples = 2048

// InMemoryPerformanceMonitor implements PerformanceMonitor with in-memory
// aggregation. Percentiles come from a bounded ring of recent samples.
type InMemoryPerformanceMonitor struct {
	mu sync.RWMutex

	active        map[string]activeOperation
	byName        map[string]OperationStat
	samples       []time.Duration
	sampleCursor  int
	count         int64
	totalTime     time.Duration
	hits          int64
	misses        int64
	errors        int64
	alerts        []Alert
	lastAlertTime map[string]time.Time
	thresholds    *MonitorThresholds
	lastReset     time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
}

type activeOperation struct {
	name    string
	started time.Time
}

// NewInMemoryPerformanceMonitor creates a new performance monitor and
// starts its background health sweep
func NewInMemoryPerformanceMonitor(thresholds *MonitorThresholds) *InMemoryPerformanceMonitor {
	if thresholds == nil {
		thresholds = DefaultMonitorThresholds()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &InMemoryPerformanceMonitor{
		active:        make(map[string]activeOperation),
		byName:        make(map[string]OperationStat),
		samples:       make([]time.Duration, 0, maxDurationSamples),
		alerts:        make([]Alert, 0),
		lastAlertTime: make(map[string]time.Time),
		thresholds:    thresholds,
		lastReset:     time.Now(),
		ctx:           ctx,
		cancel:        cancel,
	}

	go m.backgroundSweep()

	return m
}

// StartOperation implements PerformanceMonitor
func (m *InMemoryPerformanceMonitor) StartOperation(opID, name string) string {
	if opID == "" {
		opID = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[opID] = activeOperation{name: name, started: time.Now()}
	return opID
}

// EndOperation implements PerformanceMonitor
func (m *InMemoryPerformanceMonitor) EndOperation(opID string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	op, exists := m.active[opID]
	if !exists {
		return 0
	}
	delete(m.active, opID)

	duration := time.Since(op.started)
	m.recordDurationLocked(op.name, duration)
	return duration
}

// RecordHit records a cache hit with its observed duration
func (m *InMemoryPerformanceMonitor) RecordHit(name string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits++
	m.recordDurationLocked(name, duration)
}

// RecordMiss records a cache miss with its observed duration
func (m *InMemoryPerformanceMonitor) RecordMiss(name string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.misses++
	m.recordDurationLocked(name, duration)
}

// RecordError records an operation error
func (m *InMemoryPerformanceMonitor) RecordError(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errors++
	stat := m.byName[name]
	stat.Errors++
	m.byName[name] = stat

	if m.count > 0 {
		errorRate := float64(m.errors) / float64(m.count)
		if errorRate > m.thresholds.HighErrorRate {
			m.addAlertLocked("high_error_rate",
				fmt.Sprintf("high error rate: %.2f%%", errorRate*100),
				SeverityError)
		}
	}
}

// GetMetrics implements PerformanceMonitor
func (m *InMemoryPerformanceMonitor) GetMetrics() PerformanceMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// CheckHealth evaluates current aggregates against the thresholds,
// raising alerts for violations, and returns the verdict together with
// the stats and active alerts.
func (m *InMemoryPerformanceMonitor) CheckHealth() HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.snapshotLocked()
	healthy := true

	lookups := stats.TotalHits + stats.TotalMisses
	if lookups >= m.thresholds.MinSamplesForRate && stats.HitRate < m.thresholds.MinHitRate {
		healthy = false
		m.addAlertLocked("low_hit_rate",
			fmt.Sprintf("cache hit rate %.2f%% below %.2f%%",
				stats.HitRate*100, m.thresholds.MinHitRate*100),
			SeverityWarning)
	}

	if stats.AverageDuration > m.thresholds.VerySlowAverage {
		healthy = false
		m.addAlertLocked("very_slow_operations",
			fmt.Sprintf("average operation duration %v exceeds %v",
				stats.AverageDuration, m.thresholds.VerySlowAverage),
			SeverityCritical)
	} else if stats.AverageDuration > m.thresholds.SlowAverage {
		healthy = false
		m.addAlertLocked("slow_operations",
			fmt.Sprintf("average operation duration %v exceeds %v",
				stats.AverageDuration, m.thresholds.SlowAverage),
			SeverityWarning)
	}

	if stats.Count > 0 {
		errorRate := float64(stats.TotalErrors) / float64(stats.Count)
		if errorRate > m.thresholds.HighErrorRate {
			healthy = false
		}
	}

	alerts := make([]Alert, len(m.alerts))
	copy(alerts, m.alerts)

	return HealthReport{
		Healthy: healthy,
		Stats:   stats,
		Alerts:  alerts,
	}
}

// AcknowledgeAlert removes an alert from the active list. Returns false
// when no alert carries the id.
func (m *InMemoryPerformanceMonitor) AcknowledgeAlert(alertID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, alert := range m.alerts {
		if alert.ID == alertID {
			m.alerts = append(m.alerts[:i], m.alerts[i+1:]...)
			return true
		}
	}
	return false
}

// GetAlerts returns the active alerts
func (m *InMemoryPerformanceMonitor) GetAlerts() []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	alerts := make([]Alert, len(m.alerts))
	copy(alerts, m.alerts)
	return alerts
}

// Reset clears all aggregates and alerts
func (m *InMemoryPerformanceMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = make(map[string]activeOperation)
	m.byName = make(map[string]OperationStat)
	m.samples = m.samples[:0]
	m.sampleCursor = 0
	m.count = 0
	m.totalTime = 0
	m.hits = 0
	m.misses = 0
	m.errors = 0
	m.alerts = make([]Alert, 0)
	m.lastAlertTime = make(map[string]time.Time)
	m.lastReset = time.Now()
}

// Stop shuts down the background sweep
func (m *InMemoryPerformanceMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.stopped {
		m.cancel()
		m.stopped = true
	}
}

// recordDurationLocked folds a measurement into the aggregates
func (m *InMemoryPerformanceMonitor) recordDurationLocked(name string, duration time.Duration) {
	m.count++
	m.totalTime += duration

	stat, exists := m.byName[name]
	if !exists {
		stat = OperationStat{MinTime: duration, MaxTime: duration}
	}
	stat.Count++
	stat.TotalTime += duration
	stat.AverageTime = stat.TotalTime / time.Duration(stat.Count)
	if duration < stat.MinTime {
		stat.MinTime = duration
	}
	if duration > stat.MaxTime {
		stat.MaxTime = duration
	}
	m.byName[name] = stat

	if len(m.samples) < maxDurationSamples {
		m.samples = append(m.samples, duration)
	} else {
		m.samples[m.sampleCursor] = duration
		m.sampleCursor = (m.sampleCursor + 1) % maxDurationSamples
	}
}

// snapshotLocked builds a metrics snapshot; callers hold at least a read lock
func (m *InMemoryPerformanceMonitor) snapshotLocked() PerformanceMetrics {
	metrics := PerformanceMetrics{
		Count:       m.count,
		TotalHits:   m.hits,
		TotalMisses: m.misses,
		TotalErrors: m.errors,
		ByName:      make(map[string]OperationStat, len(m.byName)),
		LastReset:   m.lastReset,
	}

	if m.count > 0 {
		metrics.AverageDuration = m.totalTime / time.Duration(m.count)
	}

	lookups := m.hits + m.misses
	if lookups > 0 {
		metrics.HitRate = float64(m.hits) / float64(lookups)
	}

	for name, stat := range m.byName {
		metrics.ByName[name] = stat
	}

	if len(m.samples) > 0 {
		sorted := make([]time.Duration, len(m.samples))
		copy(sorted, m.samples)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		metrics.P50 = percentile(sorted, 0.50)
		metrics.P95 = percentile(sorted, 0.95)
	}

	return metrics
}

// percentile reads the pth percentile from a sorted sample slice
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

// addAlertLocked appends an alert unless the same type fired within the
// cooldown window
func (m *InMemoryPerformanceMonitor) addAlertLocked(alertType, message string, severity AlertSeverity) {
	if last, exists := m.lastAlertTime[alertType]; exists {
		if time.Since(last) < m.thresholds.AlertCooldown {
			return
		}
	}

	alert := Alert{
		ID:        uuid.NewString(),
		Type:      alertType,
		Message:   message,
		Severity:  severity,
		Timestamp: time.Now(),
	}

	m.alerts = append(m.alerts, alert)
	m.lastAlertTime[alertType] = alert.Timestamp
}

// backgroundSweep periodically evaluates health so degradation raises
// alerts even when nobody polls the monitoring endpoint
func (m *InMemoryPerformanceMonitor) backgroundSweep() {
	interval := m.thresholds.BackgroundInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.CheckHealth()
		}
	}
}
