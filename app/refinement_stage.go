package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"ideaforge/domain/brainstorm"
	"ideaforge/domain/core"
	"ideaforge/domain/run"
	"ideaforge/internal"
	"ideaforge/internal/retry"
	"ideaforge/ports"
)

// RefinementStage expands each candidate into a structured plan.
// Candidates are independent: one exhausted candidate is dropped and
// recorded, not fatal. The stage fails only when every candidate fails.
type RefinementStage struct {
	binding     RoleBinding
	policy      retry.Policy
	maxInFlight int64
	log         *internal.Logger
}

// NewRefinementStage wires the refiner role binding. maxInFlight bounds
// concurrent provider calls to respect rate limits.
func NewRefinementStage(binding RoleBinding, policy retry.Policy, maxInFlight int64, log *internal.Logger) *RefinementStage {
	if maxInFlight <= 0 {
		maxInFlight = 4
	}
	return &RefinementStage{binding: binding, policy: policy, maxInFlight: maxInFlight, log: log.WithTag("refinement")}
}

// Run refines candidates concurrently but collects results by candidate
// index, so the output preserves the input's relative order.
func (s *RefinementStage) Run(ctx context.Context, topic brainstorm.Topic, candidates []brainstorm.IdeaCandidate, rec *run.Recorder) ([]brainstorm.Plan, error) {
	results := make([]*brainstorm.Plan, len(candidates))
	sem := semaphore.NewWeighted(s.maxInFlight)
	var wg sync.WaitGroup

	for i := range candidates {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Run cancelled; remaining candidates never dispatch.
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			cand := candidates[i]

			start := time.Now()
			plan, outcome, err := s.refineOne(ctx, topic, cand)
			rec.RecordCall(run.StageRefinement, outcome.Attempts(), outcome.FallbackAttempts)
			if err != nil {
				s.log.Warn("candidate %d dropped after %v: %v", cand.Index, time.Since(start), err)
				rec.RecordPartialFailure(run.StageRefinement, cand.Index, err.Error())
				return
			}
			results[i] = &plan
		}(i)
	}
	wg.Wait()

	plans := make([]brainstorm.Plan, 0, len(candidates))
	for _, p := range results {
		if p != nil {
			plans = append(plans, *p)
		}
	}

	if len(plans) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrRunTimeout, err)
		}
		return nil, fmt.Errorf("%w: all %d candidates failed", core.ErrRefinementFailed, len(candidates))
	}
	s.log.Info("refined %d/%d candidates", len(plans), len(candidates))
	return plans, nil
}

func (s *RefinementStage) refineOne(ctx context.Context, topic brainstorm.Topic, cand brainstorm.IdeaCandidate) (brainstorm.Plan, retry.Outcome, error) {
	prompt := BuildRefinementPrompt(topic, cand)
	return retry.Do(ctx, s.policy,
		s.op(s.binding.Primary, cand, prompt),
		s.op(s.binding.Fallback, cand, prompt))
}

func (s *RefinementStage) op(port ports.ModelPort, cand brainstorm.IdeaCandidate, prompt string) retry.Op[brainstorm.Plan] {
	if port == nil {
		return nil
	}
	return func(ctx context.Context) (brainstorm.Plan, error) {
		text, err := port.Invoke(ctx, ports.ModelRequest{
			System:      refinementSystemPrompt,
			Prompt:      prompt,
			Temperature: refinementTemperature,
		})
		if err != nil {
			return brainstorm.Plan{}, err
		}
		return ParsePlan(cand, text, port.Provider())
	}
}
