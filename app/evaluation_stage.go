package app

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"ideaforge/domain/brainstorm"
	"ideaforge/domain/core"
	"ideaforge/domain/profile"
	"ideaforge/domain/run"
	"ideaforge/internal"
	"ideaforge/internal/retry"
	"ideaforge/ports"
)

// EvaluationStage scores every plan across the four fixed dimensions.
// Mirrors the refinement stage's partial-failure policy: a plan whose
// evaluation exhausts retry and fallback loses its scorecard; zero
// surviving scorecards is fatal because there is nothing to rank.
type EvaluationStage struct {
	binding     RoleBinding
	policy      retry.Policy
	maxInFlight int64
	log         *internal.Logger
}

// NewEvaluationStage wires the evaluator role binding.
func NewEvaluationStage(binding RoleBinding, policy retry.Policy, maxInFlight int64, log *internal.Logger) *EvaluationStage {
	if maxInFlight <= 0 {
		maxInFlight = 4
	}
	return &EvaluationStage{binding: binding, policy: policy, maxInFlight: maxInFlight, log: log.WithTag("evaluation")}
}

// Run evaluates plans concurrently, collecting scorecards by plan index
// so output order matches input order.
func (s *EvaluationStage) Run(ctx context.Context, topic brainstorm.Topic, prof profile.Profile, plans []brainstorm.Plan, rec *run.Recorder) ([]brainstorm.Scorecard, error) {
	results := make([]*brainstorm.Scorecard, len(plans))
	sem := semaphore.NewWeighted(s.maxInFlight)
	var wg sync.WaitGroup

	for i := range plans {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			plan := plans[i]

			card, outcome, err := s.evaluateOne(ctx, topic, prof, plan)
			rec.RecordCall(run.StageEvaluation, outcome.Attempts(), outcome.FallbackAttempts)
			if err != nil {
				s.log.Warn("plan %d dropped: %v", plan.CandidateIndex, err)
				rec.RecordPartialFailure(run.StageEvaluation, plan.CandidateIndex, err.Error())
				return
			}
			results[i] = &card
		}(i)
	}
	wg.Wait()

	cards := make([]brainstorm.Scorecard, 0, len(plans))
	for _, c := range results {
		if c != nil {
			cards = append(cards, *c)
		}
	}

	if len(cards) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrRunTimeout, err)
		}
		return nil, fmt.Errorf("%w: all %d plans failed evaluation", core.ErrEvaluationFailed, len(plans))
	}
	s.log.Info("scored %d/%d plans", len(cards), len(plans))
	return cards, nil
}

func (s *EvaluationStage) evaluateOne(ctx context.Context, topic brainstorm.Topic, prof profile.Profile, plan brainstorm.Plan) (brainstorm.Scorecard, retry.Outcome, error) {
	prompt := BuildEvaluationPrompt(topic, plan, prof)
	return retry.Do(ctx, s.policy,
		s.op(s.binding.Primary, plan, prompt),
		s.op(s.binding.Fallback, plan, prompt))
}

func (s *EvaluationStage) op(port ports.ModelPort, plan brainstorm.Plan, prompt string) retry.Op[brainstorm.Scorecard] {
	if port == nil {
		return nil
	}
	return func(ctx context.Context) (brainstorm.Scorecard, error) {
		text, err := port.Invoke(ctx, ports.ModelRequest{
			Prompt:      prompt,
			Temperature: evaluationTemperature,
		})
		if err != nil {
			return brainstorm.Scorecard{}, err
		}
		return ParseScorecard(plan.CandidateIndex, text, port.Provider())
	}
}
