package app

import (
	"context"
	"fmt"

	"ideaforge/domain/brainstorm"
	"ideaforge/domain/core"
	"ideaforge/domain/profile"
	"ideaforge/domain/run"
	"ideaforge/internal"
	"ideaforge/internal/retry"
	"ideaforge/ports"
)

// RoleBinding pairs a role's primary provider with its optional fallback.
type RoleBinding struct {
	Primary  ports.ModelPort
	Fallback ports.ModelPort
}

// GenerationStage produces N raw idea candidates from topic and profile
// with one batched generator call. Failure here is fatal for the run.
type GenerationStage struct {
	binding RoleBinding
	policy  retry.Policy
	log     *internal.Logger
}

// NewGenerationStage wires the generator role binding.
func NewGenerationStage(binding RoleBinding, policy retry.Policy, log *internal.Logger) *GenerationStage {
	return &GenerationStage{binding: binding, policy: policy, log: log.WithTag("generation")}
}

// Run returns exactly n index-stable candidates or fails with
// GenerationFailed (wrapping InsufficientCandidates when the model could
// never produce enough parseable ideas).
func (s *GenerationStage) Run(ctx context.Context, topic brainstorm.Topic, prof profile.Profile, n int, rec *run.Recorder) ([]brainstorm.IdeaCandidate, error) {
	prompt := BuildGenerationPrompt(topic, prof, n)

	ideas, outcome, err := retry.Do(ctx, s.policy,
		s.op(s.binding.Primary, prompt, n),
		s.op(s.binding.Fallback, prompt, n))
	rec.RecordCall(run.StageGeneration, outcome.Attempts(), outcome.FallbackAttempts)

	if err != nil {
		s.log.Error("generation exhausted after %d calls: %v", outcome.Attempts(), err)
		return nil, fmt.Errorf("%w: %w", core.ErrGenerationFailed, err)
	}

	candidates := make([]brainstorm.IdeaCandidate, n)
	for i, text := range ideas {
		candidates[i] = brainstorm.IdeaCandidate{Index: i, Topic: topic, Text: text}
	}
	s.log.Info("generated %d candidates (attempts=%d, fallback=%v)", n, outcome.Attempts(), outcome.UsedFallback())
	return candidates, nil
}

// op wraps one provider into a retryable operation: invoke, parse, and
// enforce the exact candidate count. Short output is malformed so the
// executor can route it to the fallback provider.
func (s *GenerationStage) op(port ports.ModelPort, prompt string, n int) retry.Op[[]string] {
	if port == nil {
		return nil
	}
	return func(ctx context.Context) ([]string, error) {
		text, err := port.Invoke(ctx, ports.ModelRequest{
			Prompt:      prompt,
			Temperature: generationTemperature,
		})
		if err != nil {
			return nil, err
		}
		ideas := ParseIdeaList(text)
		if len(ideas) < n {
			return nil, fmt.Errorf("%w: %w", core.ErrInsufficientCandidates,
				core.NewMalformedResponseError(port.Provider(), fmt.Sprintf("parsed %d ideas, want %d", len(ideas), n)))
		}
		return ideas[:n], nil
	}
}
