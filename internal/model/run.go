package model

import "time"

// RunStatus tracks an orchestration run through its phases in the audit store.
type RunStatus string

const (
	RunStatusPending      RunStatus = "pending"
	RunStatusDetecting    RunStatus = "detecting_context"
	RunStatusScanning     RunStatus = "scanning"
	RunStatusAnalyzing    RunStatus = "analyzing"
	RunStatusSynthesizing RunStatus = "synthesizing"
	RunStatusComplete     RunStatus = "complete"
	RunStatusFailed       RunStatus = "failed"
)

// Run is the persisted audit record of one orchestration run.
type Run struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	ImageCount int        `json:"image_count"`
	Status     RunStatus  `json:"status"`
	Result     *RunResult `json:"result,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// PhaseStatus tracks a single phase within a run.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// PhaseResult captures the outcome of one pipeline phase for auditing.
type PhaseResult struct {
	Name         string         `json:"name"`
	Status       PhaseStatus    `json:"status"`
	Duration     int64          `json:"duration_ms"`
	Error        string         `json:"error,omitempty"`
	InputTokens  int64          `json:"input_tokens,omitempty"`
	OutputTokens int64          `json:"output_tokens,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// RunPhase is the persisted form of a phase within a run.
type RunPhase struct {
	ID        string      `json:"id"`
	RunID     string      `json:"run_id"`
	Name      string      `json:"name"`
	Status    PhaseStatus `json:"status"`
	StartedAt time.Time   `json:"started_at"`
}

// RunResult is the terminal payload stored with a completed run.
type RunResult struct {
	Blueprint    FinalBlueprint `json:"blueprint,omitempty"`
	Phases       []PhaseResult  `json:"phases,omitempty"`
	TotalTokens  int64          `json:"total_tokens"`
	EstimatedUSD float64        `json:"estimated_usd,omitempty"`
}
