package app

import (
	"errors"
	"testing"

	"ideaforge/domain/brainstorm"
	"ideaforge/domain/core"
)

func TestParseIdeaListFormats(t *testing.T) {
	text := `Here are some ideas:
1. Build a rooftop garden
2) Start a tool-lending library
3、Neighborhood repair cafe
Some chatter in between.
4 . Solar charging bench
`
	ideas := ParseIdeaList(text)
	if len(ideas) != 4 {
		t.Fatalf("Expected 4 ideas, got %d: %v", len(ideas), ideas)
	}
	if ideas[0] != "Build a rooftop garden" {
		t.Errorf("Wrong first idea: %q", ideas[0])
	}
	if ideas[2] != "Neighborhood repair cafe" {
		t.Errorf("Fullwidth separator not handled: %q", ideas[2])
	}
}

func TestParseIdeaListDropsDegenerateLines(t *testing.T) {
	text := "1. ok\n2. A proper idea with substance\n3. no"
	ideas := ParseIdeaList(text)
	if len(ideas) != 1 {
		t.Fatalf("Expected short lines filtered, got %v", ideas)
	}
}

func TestParseIdeaListEmptyInput(t *testing.T) {
	if ideas := ParseIdeaList("no numbered lines at all"); len(ideas) != 0 {
		t.Errorf("Expected no ideas, got %v", ideas)
	}
}

func TestParsePlanAcceptsFencedJSON(t *testing.T) {
	cand := brainstorm.IdeaCandidate{Index: 2, Topic: "urban farming", Text: "rooftop garden"}
	text := "```json\n" + `{
		"summary": "Grow vegetables on the roof",
		"steps": ["survey roof", "install beds", "plant"],
		"resources": ["soil", "beds"],
		"timeline": "2 months",
		"risks": ["weight limits"]
	}` + "\n```"

	plan, err := ParsePlan(cand, text, "openai")
	if err != nil {
		t.Fatalf("ParsePlan failed: %v", err)
	}
	if plan.CandidateIndex != 2 || plan.Idea != "rooftop garden" {
		t.Errorf("Plan not bound to candidate: %+v", plan)
	}
	if plan.Summary != "Grow vegetables on the roof" || len(plan.Steps) != 3 {
		t.Errorf("Plan fields wrong: %+v", plan)
	}
}

func TestParsePlanTrimsSurroundingChatter(t *testing.T) {
	cand := brainstorm.IdeaCandidate{Index: 0, Text: "idea"}
	text := `Sure! Here is the plan: {"summary": "s", "steps": ["a"]} Hope that helps.`

	plan, err := ParsePlan(cand, text, "openai")
	if err != nil {
		t.Fatalf("ParsePlan failed: %v", err)
	}
	if plan.Summary != "s" {
		t.Errorf("Wrong summary: %q", plan.Summary)
	}
}

func TestParsePlanRejectsMissingFields(t *testing.T) {
	cand := brainstorm.IdeaCandidate{Index: 0, Text: "idea"}
	cases := map[string]string{
		"no summary": `{"steps": ["a"]}`,
		"no steps":   `{"summary": "s"}`,
		"not json":   `this is not a plan`,
	}
	for name, text := range cases {
		if _, err := ParsePlan(cand, text, "openai"); !errors.Is(err, core.ErrMalformedResponse) {
			t.Errorf("%s: expected malformed response, got %v", name, err)
		}
	}
}

func TestParseScorecard(t *testing.T) {
	text := `{"relevance": 85, "user_fit": 70, "feasibility": 90, "originality": 60, "justification": "solid"}`

	card, err := ParseScorecard(3, text, "gemini")
	if err != nil {
		t.Fatalf("ParseScorecard failed: %v", err)
	}
	if card.CandidateIndex != 3 || card.Relevance != 85 || card.UserFit != 70 {
		t.Errorf("Scorecard fields wrong: %+v", card)
	}
}

func TestParseScorecardRejectsMissingDimension(t *testing.T) {
	text := `{"relevance": 85, "user_fit": 70, "feasibility": 90}`
	if _, err := ParseScorecard(0, text, "gemini"); !errors.Is(err, core.ErrMalformedResponse) {
		t.Errorf("Expected malformed response for missing dimension, got %v", err)
	}
}

func TestParseScorecardRejectsOutOfRangeScores(t *testing.T) {
	for _, text := range []string{
		`{"relevance": 101, "user_fit": 70, "feasibility": 90, "originality": 60}`,
		`{"relevance": -1, "user_fit": 70, "feasibility": 90, "originality": 60}`,
	} {
		if _, err := ParseScorecard(0, text, "gemini"); !errors.Is(err, core.ErrMalformedResponse) {
			t.Errorf("Expected malformed response for %s, got %v", text, err)
		}
	}
}
