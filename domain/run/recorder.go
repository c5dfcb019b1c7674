package run

import (
	"sync"
	"time"

	"ideaforge/domain/core"
)

// Recorder accumulates run metadata. Refinement and evaluation workers
// write concurrently, so every mutation takes the lock; reads hand out
// deep copies only.
type Recorder struct {
	mu sync.Mutex
	md Metadata
}

// NewRecorder starts metadata accumulation for a fresh run.
func NewRecorder(id core.RunID) *Recorder {
	return &Recorder{
		md: Metadata{
			RunID:      id,
			StartedAt:  time.Now(),
			Status:     StatusRunning,
			StageStats: make(map[Stage]StageStats),
		},
	}
}

// RecordCall records the retry executor's outcome for one logical model call.
func (r *Recorder) RecordCall(stage Stage, attempts int, fallbackAttempts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.md.StageStats[stage]
	s.Calls++
	if attempts > 1 {
		s.Retries += attempts - 1
	}
	s.FallbackCalls += fallbackAttempts
	r.md.StageStats[stage] = s
}

// RecordLatency sets the wall-clock duration of one stage.
func (r *Recorder) RecordLatency(stage Stage, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.md.StageStats[stage]
	s.Latency = d
	r.md.StageStats[stage] = s
}

// RecordPartialFailure notes a dropped candidate or scorecard.
func (r *Recorder) RecordPartialFailure(stage Stage, candidateIndex int, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.md.PartialFailures = append(r.md.PartialFailures, PartialFailure{
		Stage:          stage,
		CandidateIndex: candidateIndex,
		Reason:         reason,
	})
}

// SetScoreSummary attaches the ranking engine's score distribution.
func (r *Recorder) SetScoreSummary(s ScoreSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.md.ScoreSummary = &s
}

// Finish marks the run terminal and records which stage failed, if any.
func (r *Recorder) Finish(status Status, failedStage Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.md.Status = status
	r.md.FailedStage = failedStage
	r.md.FinishedAt = time.Now()
}

// Snapshot returns an independent copy of the accumulated metadata.
func (r *Recorder) Snapshot() Metadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.md
	out.StageStats = make(map[Stage]StageStats, len(r.md.StageStats))
	for k, v := range r.md.StageStats {
		out.StageStats[k] = v
	}
	out.PartialFailures = append([]PartialFailure(nil), r.md.PartialFailures...)
	if r.md.ScoreSummary != nil {
		s := *r.md.ScoreSummary
		out.ScoreSummary = &s
	}
	return out
}
