package run

import (
	"time"

	"ideaforge/domain/core"
)

// Status is the terminal state of a pipeline run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// Stage identifies one pipeline stage in metadata records.
type Stage string

const (
	StageGeneration Stage = "generation"
	StageRefinement Stage = "refinement"
	StageEvaluation Stage = "evaluation"
	StageRanking    Stage = "ranking"
)

// Stages lists pipeline stages in execution order.
var Stages = []Stage{StageGeneration, StageRefinement, StageEvaluation, StageRanking}

// StageStats accumulates observability counters for one stage.
type StageStats struct {
	Latency       time.Duration `json:"latency"`
	Calls         int           `json:"calls"`
	Retries       int           `json:"retries"`
	FallbackCalls int           `json:"fallback_calls"`
}

// PartialFailure records a per-item loss that degraded but did not abort
// the run.
type PartialFailure struct {
	Stage          Stage  `json:"stage"`
	CandidateIndex int    `json:"candidate_index"`
	Reason         string `json:"reason"`
}

// ScoreSummary describes the distribution of composite scores in a run.
type ScoreSummary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
}

// Metadata is the immutable snapshot of everything observed during a run.
type Metadata struct {
	RunID           core.RunID           `json:"run_id"`
	StartedAt       time.Time            `json:"started_at"`
	FinishedAt      time.Time            `json:"finished_at"`
	Status          Status               `json:"status"`
	FailedStage     Stage                `json:"failed_stage,omitempty"`
	StageStats      map[Stage]StageStats `json:"stage_stats"`
	PartialFailures []PartialFailure     `json:"partial_failures"`
	ScoreSummary    *ScoreSummary        `json:"score_summary,omitempty"`
}

// TotalRetries sums retry counters across all stages.
func (m Metadata) TotalRetries() int {
	total := 0
	for _, s := range m.StageStats {
		total += s.Retries
	}
	return total
}

// DropCount returns the number of per-item partial failures.
func (m Metadata) DropCount() int {
	return len(m.PartialFailures)
}

// UsedFallback reports whether any stage fell back to an alternate provider.
func (m Metadata) UsedFallback() bool {
	for _, s := range m.StageStats {
		if s.FallbackCalls > 0 {
			return true
		}
	}
	return false
}
