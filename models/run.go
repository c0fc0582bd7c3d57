package models

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ScrapeRun is the per-run summary persisted for operability.
type ScrapeRun struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Kind       string     `json:"kind" db:"kind"` // discovery, properties, sweep
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at" db:"finished_at"`
	Status     RunStatus  `json:"status" db:"status"`
	Total      int        `json:"total" db:"total"`
	Processed  int        `json:"processed" db:"processed"`
	Succeeded  int        `json:"succeeded" db:"succeeded"`
	Errored    int        `json:"errored" db:"errored"`
	Skipped    int        `json:"skipped" db:"skipped"`
}

// ProcessStats tracks counts for one processing run.
type ProcessStats struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Success   int `json:"success"`
	Error     int `json:"error"`
	Skipped   int `json:"skipped"`
}

// DiscoveryStats tracks counts for one discovery run.
type DiscoveryStats struct {
	TotalFound int `json:"total_found"`
	New        int `json:"new"`
	Updated    int `json:"updated"`
}
