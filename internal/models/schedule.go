package models

import "time"

// Schedule drives recurring delivery-metrics snapshots for one service.
type Schedule struct {
	ID         int       `json:"id"`
	ServiceID  int       `json:"service_id"`
	CronExpr   string    `json:"cron_expr"`
	WindowDays int       `json:"window_days"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
}

// Report is one persisted delivery-metrics snapshot.
type Report struct {
	ID         int       `json:"id"`
	ServiceID  int       `json:"service_id"`
	WindowDays int       `json:"window_days"`
	// Payload is the JSON-encoded dora.Metrics at snapshot time.
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}
