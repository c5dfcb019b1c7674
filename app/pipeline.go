// Package app contains the brainstorming pipeline: four stages sequenced
// over three model roles, with retry/fallback policy owned here rather
// than in the provider bindings.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ideaforge/domain/brainstorm"
	"ideaforge/domain/core"
	"ideaforge/domain/profile"
	"ideaforge/domain/ranking"
	"ideaforge/domain/run"
	"ideaforge/internal"
	"ideaforge/internal/retry"
	"ideaforge/ports"
)

// Bindings holds the provider binding for each of the three roles.
type Bindings struct {
	Generator RoleBinding
	Refiner   RoleBinding
	Evaluator RoleBinding
}

// PipelineConfig carries run-level knobs.
type PipelineConfig struct {
	RunTimeout  time.Duration // whole-run budget; expiry fails the run with RunTimeout
	MaxInFlight int64         // concurrent model calls in refinement/evaluation
	Policy      retry.Policy  // retry/backoff/fallback policy per logical call
}

// Pipeline sequences generation, refinement, evaluation and ranking,
// threading a metadata recorder through every stage.
type Pipeline struct {
	gen      *GenerationStage
	refine   *RefinementStage
	evaluate *EvaluationStage
	profiles ports.ProfileStore
	cfg      PipelineConfig
	log      *internal.Logger
}

// NewPipeline assembles the stages from role bindings.
func NewPipeline(b Bindings, profiles ports.ProfileStore, cfg PipelineConfig, log *internal.Logger) *Pipeline {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 5 * time.Minute
	}
	return &Pipeline{
		gen:      NewGenerationStage(b.Generator, cfg.Policy, log),
		refine:   NewRefinementStage(b.Refiner, cfg.Policy, cfg.MaxInFlight, log),
		evaluate: NewEvaluationStage(b.Evaluator, cfg.Policy, cfg.MaxInFlight, log),
		profiles: profiles,
		cfg:      cfg,
		log:      log.WithTag("pipeline"),
	}
}

// Run is the sole entry point for the front door. It returns either a
// complete ranked result (possibly smaller than candidateCount, with
// degradation disclosed in the metadata) or a single typed error naming
// the fatal cause. Data flows strictly forward: candidates, plans,
// scorecards, ranked result.
func (p *Pipeline) Run(ctx context.Context, topic brainstorm.Topic, userID string, candidateCount int) (*brainstorm.RankedResult, run.Metadata, error) {
	runID := core.NewRunID()
	rec := run.NewRecorder(runID)

	if topic.IsEmpty() {
		rec.Finish(run.StatusFailed, "")
		return nil, rec.Snapshot(), fmt.Errorf("topic must not be empty")
	}
	if candidateCount <= 0 {
		rec.Finish(run.StatusFailed, "")
		return nil, rec.Snapshot(), fmt.Errorf("candidate count must be positive, got %d", candidateCount)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.RunTimeout)
	defer cancel()

	prof := p.snapshotProfile(ctx, userID)
	p.log.Info("run %s started: topic=%q user=%q n=%d", runID, topic, userID, candidateCount)

	// Stage 1: generation (fatal on failure).
	start := time.Now()
	candidates, err := p.gen.Run(ctx, topic, prof, candidateCount, rec)
	rec.RecordLatency(run.StageGeneration, time.Since(start))
	if err != nil {
		return p.fail(rec, run.StageGeneration, ctx, err)
	}

	// Stage 2: refinement (per-candidate drops tolerated).
	start = time.Now()
	plans, err := p.refine.Run(ctx, topic, candidates, rec)
	rec.RecordLatency(run.StageRefinement, time.Since(start))
	if err != nil {
		return p.fail(rec, run.StageRefinement, ctx, err)
	}
	if err := runTimeoutErr(ctx); err != nil {
		return p.fail(rec, run.StageRefinement, ctx, err)
	}

	// Stage 3: evaluation (per-plan drops tolerated, zero survivors fatal).
	start = time.Now()
	cards, err := p.evaluate.Run(ctx, topic, prof, plans, rec)
	rec.RecordLatency(run.StageEvaluation, time.Since(start))
	if err != nil {
		return p.fail(rec, run.StageEvaluation, ctx, err)
	}
	if err := runTimeoutErr(ctx); err != nil {
		return p.fail(rec, run.StageEvaluation, ctx, err)
	}

	// Stage 4: ranking (pure, no I/O).
	start = time.Now()
	engine := ranking.NewEngineForProfile(prof)
	entries, summary := engine.Rank(plans, cards, prof)
	rec.RecordLatency(run.StageRanking, time.Since(start))
	rec.SetScoreSummary(summary)

	rec.Finish(run.StatusSucceeded, "")
	result := &brainstorm.RankedResult{RunID: runID, Topic: topic, Entries: entries}
	p.log.Info("run %s finished: %d ranked entries, %d drops, %d retries",
		runID, len(entries), rec.Snapshot().DropCount(), rec.Snapshot().TotalRetries())
	return result, rec.Snapshot(), nil
}

// snapshotProfile reads the user's profile once at run start. Unknown or
// anonymous users get the default profile; storage trouble degrades to
// the default rather than failing the run.
func (p *Pipeline) snapshotProfile(ctx context.Context, userID string) profile.Profile {
	if userID == "" || p.profiles == nil {
		return profile.Default(userID)
	}
	prof, err := p.profiles.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, core.ErrProfileNotFound) {
			p.log.Warn("profile lookup for %q failed, using default: %v", userID, err)
		}
		return profile.Default(userID)
	}
	return prof
}

// fail finalizes metadata for a fatal stage error. Run-timeout expiry
// takes precedence over whatever error the stage surfaced while being
// cancelled.
func (p *Pipeline) fail(rec *run.Recorder, stage run.Stage, ctx context.Context, err error) (*brainstorm.RankedResult, run.Metadata, error) {
	if ctxErr := runTimeoutErr(ctx); ctxErr != nil && !errors.Is(err, core.ErrRunTimeout) {
		err = ctxErr
	}
	status := run.StatusFailed
	if errors.Is(err, core.ErrRunTimeout) {
		status = run.StatusTimedOut
	}
	rec.Finish(status, stage)
	p.log.Error("run failed at %s: %v", stage, err)
	return nil, rec.Snapshot(), err
}

func runTimeoutErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", core.ErrRunTimeout, ctx.Err())
	}
	return nil
}
