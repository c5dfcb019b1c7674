// Package ranking turns scorecards into the final ordered result. It is
// the only pure-computation stage: no I/O, fully deterministic for
// identical inputs.
package ranking

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"

	"ideaforge/domain/brainstorm"
	"ideaforge/domain/profile"
	"ideaforge/domain/run"
)

// Weights holds the four dimension weights, in scorecard order
// (relevance, user fit, feasibility, originality). They always sum to 1.
type Weights [4]float64

// DefaultWeights mirrors the evaluator's advertised weighting.
var DefaultWeights = Weights{0.30, 0.20, 0.25, 0.25}

// PersonalizationCap bounds how far the user-fit term can be nudged by
// profile overlap: at most +10% of the raw user-fit score.
const PersonalizationCap = 0.10

// Engine computes composite scores and the final ordering.
type Engine struct {
	weights Weights
}

// NewEngine builds an engine with the default weights.
func NewEngine() *Engine {
	return &Engine{weights: DefaultWeights}
}

// NewEngineForProfile blends the default weights with the user's optional
// per-dimension preferences (equal parts), then re-normalizes so the
// weights sum to 1. Profiles without preferences get the defaults.
func NewEngineForProfile(p profile.Profile) *Engine {
	prefs := p.DimensionWeights
	if len(prefs) == 0 {
		return NewEngine()
	}
	pref := Weights{
		prefs[profile.DimRelevance],
		prefs[profile.DimUserFit],
		prefs[profile.DimFeasibility],
		prefs[profile.DimOriginality],
	}
	total := pref[0] + pref[1] + pref[2] + pref[3]
	if total <= 0 {
		return NewEngine()
	}
	w := Weights{}
	for i := range w {
		w[i] = 0.5*DefaultWeights[i] + 0.5*pref[i]/total
	}
	// Blending two unit-sum vectors keeps the sum at 1, but normalize
	// anyway to absorb float drift.
	sum := w[0] + w[1] + w[2] + w[3]
	for i := range w {
		w[i] /= sum
	}
	return &Engine{weights: w}
}

// Rank pairs each plan with its scorecard, computes composite scores and
// returns entries ordered best-first. Plans without a surviving scorecard
// are skipped. The returned score summary feeds run metadata.
func (e *Engine) Rank(plans []brainstorm.Plan, cards []brainstorm.Scorecard, p profile.Profile) ([]brainstorm.RankedEntry, run.ScoreSummary) {
	byIndex := make(map[int]brainstorm.Plan, len(plans))
	for _, plan := range plans {
		byIndex[plan.CandidateIndex] = plan
	}
	accepted := p.AcceptedTags()

	entries := make([]brainstorm.RankedEntry, 0, len(cards))
	for _, card := range cards {
		plan, ok := byIndex[card.CandidateIndex]
		if !ok {
			continue
		}
		entries = append(entries, brainstorm.RankedEntry{
			Plan:      plan,
			Scorecard: card,
			Composite: e.Composite(plan, card, accepted),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Composite != b.Composite {
			return a.Composite > b.Composite
		}
		if a.Scorecard.Feasibility != b.Scorecard.Feasibility {
			return a.Scorecard.Feasibility > b.Scorecard.Feasibility
		}
		return a.Plan.CandidateIndex < b.Plan.CandidateIndex
	})

	return entries, summarize(entries)
}

// Composite computes the weighted score in [0,1] for one plan. Raw
// dimension scores are normalized to [0,1]; only the user-fit term is
// personalized, capped so the adjusted value never exceeds 1.
func (e *Engine) Composite(plan brainstorm.Plan, card brainstorm.Scorecard, acceptedTags []string) float64 {
	fit := normalize(card.UserFit)
	fit = math.Min(1, fit*(1+PersonalizationCap*Overlap(plan, acceptedTags)))

	dims := []float64{
		normalize(card.Relevance),
		fit,
		normalize(card.Feasibility),
		normalize(card.Originality),
	}
	return floats.Dot(e.weights[:], dims)
}

// Overlap measures how much of the user's accepted-tag set appears in the
// plan's inferred tags, as a ratio in [0,1]. No accepted history means no
// adjustment.
func Overlap(plan brainstorm.Plan, acceptedTags []string) float64 {
	if len(acceptedTags) == 0 {
		return 0
	}
	inferred := make(map[string]bool)
	for _, tok := range profile.Tokenize(plan.Idea + " " + plan.Summary) {
		inferred[tok] = true
	}
	matched := 0
	for _, tag := range acceptedTags {
		if inferred[tag] {
			matched++
		}
	}
	return float64(matched) / float64(len(acceptedTags))
}

func normalize(raw float64) float64 {
	v := raw / brainstorm.RawScoreMax
	return math.Max(0, math.Min(1, v))
}

func summarize(entries []brainstorm.RankedEntry) run.ScoreSummary {
	if len(entries) == 0 {
		return run.ScoreSummary{}
	}
	scores := make([]float64, len(entries))
	for i, e := range entries {
		scores[i] = e.Composite
	}
	mean, _ := stats.Mean(scores)
	median, _ := stats.Median(scores)
	stddev, _ := stats.StandardDeviation(scores)
	return run.ScoreSummary{Mean: mean, Median: median, StdDev: stddev}
}
