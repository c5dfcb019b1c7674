package app

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"ideaforge/domain/brainstorm"
	"ideaforge/domain/core"
)

// Numbered-list formats the generator is known to emit: "1. x", "1) x",
// and the fullwidth "1、x".
var ideaLinePattern = regexp.MustCompile(`^\s*\d+\s*[.、)]\s*(.+)$`)

// minIdeaLength filters out degenerate one-word list lines.
const minIdeaLength = 6

// ParseIdeaList extracts idea lines from the generator's numbered-list
// output, preserving order.
func ParseIdeaList(text string) []string {
	var ideas []string
	for _, line := range strings.Split(text, "\n") {
		m := ideaLinePattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		idea := strings.TrimSpace(m[1])
		if len(idea) >= minIdeaLength {
			ideas = append(ideas, idea)
		}
	}
	return ideas
}

// stripCodeFence removes a surrounding markdown code block, which models
// add around JSON despite instructions not to.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	return strings.TrimSpace(content)
}

// extractJSONObject trims any chatter before the first '{' and after the
// last '}'.
func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return content
	}
	return content[start : end+1]
}

type planPayload struct {
	Summary   string   `json:"summary"`
	Steps     []string `json:"steps"`
	Resources []string `json:"resources"`
	Timeline  string   `json:"timeline"`
	Risks     []string `json:"risks"`
}

// ParsePlan decodes the refiner's JSON into a Plan bound to its source
// candidate. A plan without a summary or steps is malformed.
func ParsePlan(cand brainstorm.IdeaCandidate, text string, provider string) (brainstorm.Plan, error) {
	raw := extractJSONObject(stripCodeFence(text))

	var payload planPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return brainstorm.Plan{}, core.NewMalformedResponseError(provider, fmt.Sprintf("plan JSON: %v", err))
	}
	if strings.TrimSpace(payload.Summary) == "" {
		return brainstorm.Plan{}, core.NewMalformedResponseError(provider, "plan missing summary")
	}
	if len(payload.Steps) == 0 {
		return brainstorm.Plan{}, core.NewMalformedResponseError(provider, "plan missing steps")
	}

	return brainstorm.Plan{
		CandidateIndex: cand.Index,
		Idea:           cand.Text,
		Summary:        strings.TrimSpace(payload.Summary),
		Steps:          payload.Steps,
		Resources:      payload.Resources,
		Timeline:       strings.TrimSpace(payload.Timeline),
		Risks:          payload.Risks,
	}, nil
}

type scorecardPayload struct {
	Relevance     *float64 `json:"relevance"`
	UserFit       *float64 `json:"user_fit"`
	Feasibility   *float64 `json:"feasibility"`
	Originality   *float64 `json:"originality"`
	Justification string   `json:"justification"`
}

// ParseScorecard decodes the evaluator's JSON for one plan. A response
// missing any of the four scores, or carrying an out-of-range value, is
// malformed and goes back through retry/fallback.
func ParseScorecard(candidateIndex int, text string, provider string) (brainstorm.Scorecard, error) {
	raw := extractJSONObject(stripCodeFence(text))

	var payload scorecardPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return brainstorm.Scorecard{}, core.NewMalformedResponseError(provider, fmt.Sprintf("scorecard JSON: %v", err))
	}

	dims := map[string]*float64{
		"relevance":   payload.Relevance,
		"user_fit":    payload.UserFit,
		"feasibility": payload.Feasibility,
		"originality": payload.Originality,
	}
	for name, v := range dims {
		if v == nil {
			return brainstorm.Scorecard{}, core.NewMalformedResponseError(provider, "scorecard missing "+name)
		}
	}

	card := brainstorm.Scorecard{
		CandidateIndex: candidateIndex,
		Relevance:      *payload.Relevance,
		UserFit:        *payload.UserFit,
		Feasibility:    *payload.Feasibility,
		Originality:    *payload.Originality,
		Justification:  strings.TrimSpace(payload.Justification),
	}
	if !card.InRange() {
		return brainstorm.Scorecard{}, core.NewMalformedResponseError(provider,
			fmt.Sprintf("scorecard value out of range [%v,%v]", brainstorm.RawScoreMin, brainstorm.RawScoreMax))
	}
	return card, nil
}
