package run

import (
	"sync"
	"testing"
	"time"

	"ideaforge/domain/core"
)

func TestRecorderAccumulatesStageStats(t *testing.T) {
	rec := NewRecorder(core.NewRunID())

	rec.RecordCall(StageGeneration, 3, 0) // two retries
	rec.RecordCall(StageRefinement, 1, 0)
	rec.RecordCall(StageRefinement, 4, 2) // one retry after switching providers
	rec.RecordLatency(StageGeneration, 120*time.Millisecond)

	md := rec.Snapshot()
	if md.StageStats[StageGeneration].Retries != 2 {
		t.Errorf("Expected 2 generation retries, got %d", md.StageStats[StageGeneration].Retries)
	}
	if md.StageStats[StageRefinement].Calls != 2 {
		t.Errorf("Expected 2 refinement calls, got %d", md.StageStats[StageRefinement].Calls)
	}
	if md.StageStats[StageRefinement].FallbackCalls != 2 {
		t.Errorf("Expected 2 fallback calls, got %d", md.StageStats[StageRefinement].FallbackCalls)
	}
	if md.TotalRetries() != 5 {
		t.Errorf("Expected 5 total retries, got %d", md.TotalRetries())
	}
	if !md.UsedFallback() {
		t.Error("Expected fallback usage to be visible")
	}
	if md.StageStats[StageGeneration].Latency != 120*time.Millisecond {
		t.Errorf("Wrong latency: %v", md.StageStats[StageGeneration].Latency)
	}
}

func TestRecorderConcurrentWriters(t *testing.T) {
	rec := NewRecorder(core.NewRunID())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec.RecordCall(StageEvaluation, 2, 1)
			rec.RecordPartialFailure(StageEvaluation, i, "dropped")
		}(i)
	}
	wg.Wait()

	md := rec.Snapshot()
	if md.StageStats[StageEvaluation].Calls != 50 {
		t.Errorf("Expected 50 calls, got %d", md.StageStats[StageEvaluation].Calls)
	}
	if md.StageStats[StageEvaluation].Retries != 50 {
		t.Errorf("Expected 50 retries, got %d", md.StageStats[StageEvaluation].Retries)
	}
	if md.DropCount() != 50 {
		t.Errorf("Expected 50 partial failures, got %d", md.DropCount())
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	rec := NewRecorder(core.NewRunID())
	rec.RecordCall(StageGeneration, 1, 0)
	rec.SetScoreSummary(ScoreSummary{Mean: 0.5})

	md := rec.Snapshot()
	md.StageStats[StageGeneration] = StageStats{Calls: 99}
	md.ScoreSummary.Mean = 0.9

	fresh := rec.Snapshot()
	if fresh.StageStats[StageGeneration].Calls != 1 {
		t.Error("Mutating a snapshot leaked into the recorder")
	}
	if fresh.ScoreSummary.Mean != 0.5 {
		t.Error("Mutating a snapshot's score summary leaked into the recorder")
	}
}

func TestFinishMarksTerminalState(t *testing.T) {
	rec := NewRecorder(core.NewRunID())
	rec.Finish(StatusTimedOut, StageEvaluation)

	md := rec.Snapshot()
	if md.Status != StatusTimedOut || md.FailedStage != StageEvaluation {
		t.Errorf("Wrong terminal state: %+v", md)
	}
	if md.FinishedAt.IsZero() {
		t.Error("FinishedAt not set")
	}
}
