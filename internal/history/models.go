package history

import (
	"time"

	"rommate/internal/verify"
)

// State is the lifecycle state of a recorded scan.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCanceled  State = "canceled"
	StateFailed    State = "failed"
)

// Scan is one recorded folder scan.
type Scan struct {
	ID         string                `json:"id"`
	Root       string                `json:"root"`
	State      State                 `json:"state"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
	Candidates int                   `json:"candidates"`
	Excluded   int                   `json:"excluded_tracks"`
	Processed  int                   `json:"processed"`
	Verified   int                   `json:"verified"`
	Attention  int                   `json:"attention"`
	Failed     int                   `json:"failed"`
	Counts     map[verify.Status]int `json:"counts,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// Duration is zero while the scan is still running.
func (s Scan) Duration() time.Duration {
	if s.FinishedAt == nil {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
