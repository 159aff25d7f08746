// Package store persists run and phase audit records.
package store

import (
	"context"

	"github.com/blueprintkit/bioblueprint/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Label  string          `json:"label,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the analysis pipeline audit
// trail. Runs record each image batch processed; phases record the per-phase
// outcomes within a run.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, label string, imageCount int) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Phases
	CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error)
	CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
