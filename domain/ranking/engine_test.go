package ranking

import (
	"math"
	"testing"

	"ideaforge/domain/brainstorm"
	"ideaforge/domain/profile"
)

func plan(index int, idea string) brainstorm.Plan {
	return brainstorm.Plan{
		CandidateIndex: index,
		Idea:           idea,
		Summary:        idea + " in practice",
		Steps:          []string{"step one"},
	}
}

func card(index int, relevance, userFit, feasibility, originality float64) brainstorm.Scorecard {
	return brainstorm.Scorecard{
		CandidateIndex: index,
		Relevance:      relevance,
		UserFit:        userFit,
		Feasibility:    feasibility,
		Originality:    originality,
	}
}

func TestRankOrdersByCompositeDescending(t *testing.T) {
	engine := NewEngine()
	plans := []brainstorm.Plan{plan(0, "solar balcony garden"), plan(1, "community compost hub"), plan(2, "rain barrel network")}
	cards := []brainstorm.Scorecard{
		card(0, 50, 50, 50, 50),
		card(1, 90, 90, 90, 90),
		card(2, 70, 70, 70, 70),
	}

	entries, summary := engine.Rank(plans, cards, profile.Profile{})
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].Plan.CandidateIndex != 1 || entries[1].Plan.CandidateIndex != 2 || entries[2].Plan.CandidateIndex != 0 {
		t.Errorf("Wrong order: %d, %d, %d",
			entries[0].Plan.CandidateIndex, entries[1].Plan.CandidateIndex, entries[2].Plan.CandidateIndex)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Composite > entries[i-1].Composite {
			t.Errorf("Entries not in descending composite order at %d", i)
		}
	}
	if summary.Mean <= 0 || summary.Median <= 0 {
		t.Errorf("Score summary not populated: %+v", summary)
	}
}

func TestRankBreaksTiesByFeasibilityThenIndex(t *testing.T) {
	engine := NewEngine()
	plans := []brainstorm.Plan{plan(0, "first idea here"), plan(1, "second idea here"), plan(2, "third idea here")}
	// Feasibility and originality share the same weight, so cards 0 and 1
	// tie exactly on composite while differing on feasibility.
	cards := []brainstorm.Scorecard{
		card(0, 0, 0, 0, 100),
		card(1, 0, 0, 100, 0),
		card(2, 0, 0, 0, 100), // identical to card 0, tie broken by index
	}

	entries, _ := engine.Rank(plans, cards, profile.Profile{})
	if entries[0].Plan.CandidateIndex != 1 {
		t.Errorf("Higher feasibility must win a composite tie, got index %d first", entries[0].Plan.CandidateIndex)
	}

	pos := map[int]int{}
	for i, e := range entries {
		pos[e.Plan.CandidateIndex] = i
	}
	if pos[0] > pos[2] {
		t.Errorf("Identical scorecards must order by candidate index, got positions %v", pos)
	}
}

func TestRankSkipsPlansWithoutScorecards(t *testing.T) {
	engine := NewEngine()
	plans := []brainstorm.Plan{plan(0, "kept idea here"), plan(1, "dropped idea here")}
	cards := []brainstorm.Scorecard{card(0, 60, 60, 60, 60)}

	entries, _ := engine.Rank(plans, cards, profile.Profile{})
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Plan.CandidateIndex != 0 {
		t.Errorf("Wrong surviving plan: %d", entries[0].Plan.CandidateIndex)
	}
}

func TestCompositeStaysInUnitInterval(t *testing.T) {
	engine := NewEngine()
	tags := []string{"solar", "garden", "balcony"}

	for _, raw := range []float64{0, 1, 25, 50, 99, 100} {
		p := plan(0, "solar garden balcony project")
		c := card(0, raw, raw, raw, raw)
		got := engine.Composite(p, c, tags)
		if got < 0 || got > 1 {
			t.Errorf("Composite out of [0,1] for raw=%v: %v", raw, got)
		}
	}
}

func TestCompositePersonalizationIsCapped(t *testing.T) {
	engine := NewEngine()
	p := plan(0, "solar garden balcony project")
	c := card(0, 0, 80, 0, 0)

	// Full overlap: every accepted tag appears in the plan text.
	boosted := engine.Composite(p, c, []string{"solar", "garden", "balcony"})
	base := engine.Composite(p, c, nil)

	// Only the user-fit term moves, by at most PersonalizationCap.
	maxAllowed := base * (1 + PersonalizationCap)
	if boosted > maxAllowed+1e-9 {
		t.Errorf("Personalization exceeded cap: base=%v boosted=%v", base, boosted)
	}
	if boosted <= base {
		t.Errorf("Full overlap should raise the composite: base=%v boosted=%v", base, boosted)
	}
}

func TestCompositePersonalizationNeverPushesFitAboveOne(t *testing.T) {
	engine := NewEngine()
	p := plan(0, "solar garden balcony project")
	c := card(0, 100, 100, 100, 100)

	got := engine.Composite(p, c, []string{"solar", "garden", "balcony"})
	if got > 1 {
		t.Errorf("Perfect scores plus personalization must clamp at 1, got %v", got)
	}
}

func TestOverlapRatio(t *testing.T) {
	p := plan(0, "solar powered balcony garden")

	if got := Overlap(p, nil); got != 0 {
		t.Errorf("No accepted history must mean zero overlap, got %v", got)
	}
	if got := Overlap(p, []string{"solar", "windmill"}); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Expected 0.5 overlap, got %v", got)
	}
	if got := Overlap(p, []string{"windmill"}); got != 0 {
		t.Errorf("Expected no overlap, got %v", got)
	}
}

func TestNewEngineForProfileBlendsWeights(t *testing.T) {
	prof := profile.Profile{
		DimensionWeights: map[string]float64{
			profile.DimRelevance:   1, // all preference on relevance
			profile.DimUserFit:     0,
			profile.DimFeasibility: 0,
			profile.DimOriginality: 0,
		},
	}
	engine := NewEngineForProfile(prof)

	// Half default, half preference: relevance = 0.5*0.30 + 0.5*1.0.
	if math.Abs(engine.weights[0]-0.65) > 1e-9 {
		t.Errorf("Expected blended relevance weight 0.65, got %v", engine.weights[0])
	}
	sum := engine.weights[0] + engine.weights[1] + engine.weights[2] + engine.weights[3]
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("Blended weights must sum to 1, got %v", sum)
	}
}

func TestNewEngineForProfileWithoutPreferencesUsesDefaults(t *testing.T) {
	engine := NewEngineForProfile(profile.Profile{})
	if engine.weights != DefaultWeights {
		t.Errorf("Expected default weights, got %v", engine.weights)
	}
}

func TestRankDeterministicAcrossRuns(t *testing.T) {
	engine := NewEngine()
	plans := []brainstorm.Plan{plan(0, "first idea here"), plan(1, "second idea here"), plan(2, "third idea here")}
	cards := []brainstorm.Scorecard{
		card(0, 70, 65, 80, 55),
		card(1, 70, 65, 80, 55),
		card(2, 70, 65, 80, 55),
	}

	first, _ := engine.Rank(plans, cards, profile.Profile{})
	for i := 0; i < 10; i++ {
		again, _ := engine.Rank(plans, cards, profile.Profile{})
		for j := range first {
			if again[j].Plan.CandidateIndex != first[j].Plan.CandidateIndex {
				t.Fatalf("Ordering changed between identical runs at position %d", j)
			}
		}
	}
}
