// Package storage persists the history of completed run attempts. Live
// conversational sessions are deliberately memory-only and die with the
// process; only finished runs are recorded.
package storage

import (
	"context"
	"time"
)

// Run is one recorded execution attempt.
type Run struct {
	ID          string        `json:"id"`
	RequesterID string        `json:"requester_id"`
	Source      string        `json:"source"`
	Inputs      []string      `json:"inputs"`
	Outcome     string        `json:"outcome"` // ok, timeout, launch_failed
	Output      string        `json:"output"`
	Duration    time.Duration `json:"duration_ns"`
	CreatedAt   time.Time     `json:"created_at"`
}

// RunListOptions controls filtering and pagination for ListRuns.
type RunListOptions struct {
	RequesterID string
	Outcome     string
	Limit       int
	Offset      int
}

// Store is the persistence interface for run history.
type Store interface {
	// RecordRun inserts a completed run. The ID field must be set by the caller.
	RecordRun(ctx context.Context, run *Run) error

	// GetRun returns a run by ID or ID prefix.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns runs ordered by created_at descending.
	ListRuns(ctx context.Context, opts RunListOptions) ([]Run, error)

	// DeleteRun removes a run.
	DeleteRun(ctx context.Context, id string) error

	// Close releases resources.
	Close() error
}
