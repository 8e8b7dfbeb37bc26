package models

import "time"

// APIError represents standardized error response
type APIError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// CreatedResponse is returned after a successful structural add
type CreatedResponse struct {
	ID         string `json:"id"`
	OrderIndex int    `json:"order_index"`
}

// TreeResponse wraps an assembled tree with its content fingerprint
type TreeResponse struct {
	Tree        *StoryTree `json:"tree"`
	Fingerprint string     `json:"fingerprint"`
}

// MonitoringSummary aggregates cache effectiveness for the monitoring endpoint
type MonitoringSummary struct {
	HitRate         float64       `json:"hit_rate"`
	AverageDuration time.Duration `json:"average_duration"`
	TotalHits       int64         `json:"total_hits"`
	TotalMisses     int64         `json:"total_misses"`
}

// MonitoringAlerts summarizes active alerts
type MonitoringAlerts struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"by_severity"`
	List       interface{}    `json:"list"`
}

// MonitoringResponse is the body of the monitoring endpoint
type MonitoringResponse struct {
	Healthy bool              `json:"healthy"`
	Summary MonitoringSummary `json:"summary"`
	Alerts  MonitoringAlerts  `json:"alerts"`
}
