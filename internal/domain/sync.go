package domain

import "time"

// TierCounts holds per-tier row counts for a sync run.
type TierCounts struct {
	Normal  int `json:"normal"`
	Warning int `json:"warning"`
	Danger  int `json:"danger"`
	Total   int `json:"total"`
}

// Set stores n for tier t and recomputes the total.
func (c *TierCounts) Set(t Tier, n int) {
	switch t {
	case TierNormal:
		c.Normal = n
	case TierWarning:
		c.Warning = n
	case TierDanger:
		c.Danger = n
	}
	c.Total = c.Normal + c.Warning + c.Danger
}

// SyncStatus is the outcome of a sync run.
type SyncStatus string

const (
	SyncStatusSucceeded SyncStatus = "succeeded"
	SyncStatusFailed    SyncStatus = "failed"
)

// SyncRun records one spreadsheet synchronization attempt.
type SyncRun struct {
	ID         string     `json:"id"`
	Status     SyncStatus `json:"status"`
	Counts     TierCounts `json:"counts"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

// Duration returns how long the run took.
func (r *SyncRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
