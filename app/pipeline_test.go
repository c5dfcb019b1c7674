package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ideaforge/adapters/llm"
	"ideaforge/domain/core"
	"ideaforge/domain/run"
	"ideaforge/internal"
	"ideaforge/internal/retry"
	"ideaforge/ports"
)

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Microsecond, MaxDelay: time.Millisecond}
}

func testPipeline(b Bindings) *Pipeline {
	return NewPipeline(b, nil, PipelineConfig{
		RunTimeout:  5 * time.Second,
		MaxInFlight: 1, // sequential stages keep mock scripts deterministic
		Policy:      testPolicy(),
	}, internal.NewLogger(internal.LogLevelError))
}

func ideaList(n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "%d. Community project idea number %d\n", i, i)
	}
	return sb.String()
}

const planJSON = `{"summary": "Organize the project in phases", "steps": ["scout location", "recruit volunteers"], "resources": ["budget"], "timeline": "6 weeks", "risks": ["low turnout"]}`

func scoreJSON(r, u, f, o float64) string {
	return fmt.Sprintf(`{"relevance": %v, "user_fit": %v, "feasibility": %v, "originality": %v, "justification": "test"}`, r, u, f, o)
}

func singleStep(name, response string) *llm.MockModelPort {
	return &llm.MockModelPort{Name: name, Steps: []llm.MockStep{{Response: response}}}
}

func TestPipelineHappyPath(t *testing.T) {
	generator := singleStep("gen", ideaList(3))
	refiner := singleStep("ref", planJSON)
	evaluator := singleStep("eval", scoreJSON(80, 70, 90, 60))

	p := testPipeline(Bindings{
		Generator: RoleBinding{Primary: generator},
		Refiner:   RoleBinding{Primary: refiner},
		Evaluator: RoleBinding{Primary: evaluator},
	})

	result, md, err := p.Run(context.Background(), "community gardens", "", 3)
	require.NoError(t, err)
	require.Len(t, result.Entries, 3)

	// Identical scorecards: order falls back to candidate index.
	for i, entry := range result.Entries {
		require.Equal(t, i, entry.Plan.CandidateIndex)
		require.InDelta(t, 0.755, entry.Composite, 1e-9)
	}

	require.Equal(t, run.StatusSucceeded, md.Status)
	require.Zero(t, md.TotalRetries())
	require.Zero(t, md.DropCount())
	require.False(t, md.UsedFallback())
	require.NotNil(t, md.ScoreSummary)
	for _, stage := range run.Stages {
		_, ok := md.StageStats[stage]
		require.True(t, ok, "missing stats for stage %s", stage)
	}
	require.Equal(t, 1, generator.Calls())
	require.Equal(t, 3, refiner.Calls())
	require.Equal(t, 3, evaluator.Calls())
}

func TestPipelineDropsPlanWhenEvaluatorStaysMalformed(t *testing.T) {
	evaluator := &llm.MockModelPort{Name: "eval", Steps: []llm.MockStep{
		{Response: scoreJSON(80, 70, 90, 60)},
		{Response: "not a scorecard at all"},
		{Response: scoreJSON(75, 65, 85, 55)},
	}}

	p := testPipeline(Bindings{
		Generator: RoleBinding{Primary: singleStep("gen", ideaList(3))},
		Refiner:   RoleBinding{Primary: singleStep("ref", planJSON)},
		Evaluator: RoleBinding{Primary: evaluator},
	})

	result, md, err := p.Run(context.Background(), "community gardens", "", 3)
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	for _, entry := range result.Entries {
		require.NotEqual(t, 1, entry.Plan.CandidateIndex)
	}

	require.Equal(t, run.StatusSucceeded, md.Status)
	require.Equal(t, 1, md.DropCount())
	require.Equal(t, run.StageEvaluation, md.PartialFailures[0].Stage)
	require.Equal(t, 1, md.PartialFailures[0].CandidateIndex)
}

func TestPipelineFailsWhenGeneratorExhausts(t *testing.T) {
	generator := &llm.MockModelPort{Name: "gen", Steps: []llm.MockStep{
		{Err: core.NewTransientNetworkError("gen", errors.New("reset"))},
	}}

	p := testPipeline(Bindings{
		Generator: RoleBinding{Primary: generator},
		Refiner:   RoleBinding{Primary: singleStep("ref", planJSON)},
		Evaluator: RoleBinding{Primary: singleStep("eval", scoreJSON(80, 70, 90, 60))},
	})

	result, md, err := p.Run(context.Background(), "community gardens", "", 3)
	require.Nil(t, result)
	require.ErrorIs(t, err, core.ErrGenerationFailed)
	require.Equal(t, run.StatusFailed, md.Status)
	require.Equal(t, run.StageGeneration, md.FailedStage)
	require.Equal(t, 3, generator.Calls())
	require.Equal(t, 2, md.StageStats[run.StageGeneration].Retries)
}

func TestPipelineFailsWhenEveryRefinementFails(t *testing.T) {
	p := testPipeline(Bindings{
		Generator: RoleBinding{Primary: singleStep("gen", ideaList(2))},
		Refiner:   RoleBinding{Primary: singleStep("ref", "never valid json")},
		Evaluator: RoleBinding{Primary: singleStep("eval", scoreJSON(80, 70, 90, 60))},
	})

	result, md, err := p.Run(context.Background(), "community gardens", "", 2)
	require.Nil(t, result)
	require.ErrorIs(t, err, core.ErrRefinementFailed)
	require.Equal(t, run.StatusFailed, md.Status)
	require.Equal(t, run.StageRefinement, md.FailedStage)
	require.Equal(t, 2, md.DropCount())
}

func TestPipelineGeneratorFallsBackOnMalformedOutput(t *testing.T) {
	primary := singleStep("gen-primary", "I cannot produce a list right now.")
	fallback := singleStep("gen-fallback", ideaList(3))

	p := testPipeline(Bindings{
		Generator: RoleBinding{Primary: primary, Fallback: fallback},
		Refiner:   RoleBinding{Primary: singleStep("ref", planJSON)},
		Evaluator: RoleBinding{Primary: singleStep("eval", scoreJSON(80, 70, 90, 60))},
	})

	result, md, err := p.Run(context.Background(), "community gardens", "", 3)
	require.NoError(t, err)
	require.Len(t, result.Entries, 3)

	// Unparseable output must not burn retries on the primary.
	require.Equal(t, 1, primary.Calls())
	require.Equal(t, 1, fallback.Calls())
	require.True(t, md.UsedFallback())
	require.Equal(t, 1, md.StageStats[run.StageGeneration].FallbackCalls)
}

// blockingPort hangs until the run deadline expires.
type blockingPort struct{}

func (blockingPort) Provider() string { return "slow" }

func (blockingPort) Invoke(ctx context.Context, _ ports.ModelRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestPipelineRunTimeout(t *testing.T) {
	p := NewPipeline(Bindings{
		Generator: RoleBinding{Primary: blockingPort{}},
		Refiner:   RoleBinding{Primary: singleStep("ref", planJSON)},
		Evaluator: RoleBinding{Primary: singleStep("eval", scoreJSON(80, 70, 90, 60))},
	}, nil, PipelineConfig{
		RunTimeout:  30 * time.Millisecond,
		MaxInFlight: 1,
		Policy:      testPolicy(),
	}, internal.NewLogger(internal.LogLevelError))

	result, md, err := p.Run(context.Background(), "community gardens", "", 3)
	require.Nil(t, result)
	require.ErrorIs(t, err, core.ErrRunTimeout)
	require.Equal(t, run.StatusTimedOut, md.Status)
}

func TestPipelineRejectsInvalidInput(t *testing.T) {
	p := testPipeline(Bindings{
		Generator: RoleBinding{Primary: singleStep("gen", ideaList(3))},
		Refiner:   RoleBinding{Primary: singleStep("ref", planJSON)},
		Evaluator: RoleBinding{Primary: singleStep("eval", scoreJSON(80, 70, 90, 60))},
	})

	_, md, err := p.Run(context.Background(), "   ", "", 3)
	require.Error(t, err)
	require.Equal(t, run.StatusFailed, md.Status)

	_, _, err = p.Run(context.Background(), "topic", "", 0)
	require.Error(t, err)
}
