package brainstorm

import (
	"strconv"
	"strings"

	"ideaforge/domain/core"
)

// Topic is the free-form brainstorming subject. Immutable once a run starts.
type Topic string

func (t Topic) String() string { return string(t) }

// IsEmpty checks whether the topic carries any content
func (t Topic) IsEmpty() bool { return strings.TrimSpace(string(t)) == "" }

// IdeaCandidate is one raw idea produced by the generation stage.
// Index is the position in the generator's output and never changes
// until final ranking.
type IdeaCandidate struct {
	Index int    `json:"index"`
	Topic Topic  `json:"topic"`
	Text  string `json:"text"`
}

// Plan is the structured elaboration of exactly one IdeaCandidate.
type Plan struct {
	CandidateIndex int      `json:"candidate_index"`
	Idea           string   `json:"idea"`
	Summary        string   `json:"summary"`
	Steps          []string `json:"steps"`
	Resources      []string `json:"resources"`
	Timeline       string   `json:"timeline"`
	Risks          []string `json:"risks"`
}

// Detail renders the plan as markdown for reports and API responses.
func (p Plan) Detail() string {
	var b strings.Builder
	b.WriteString("## " + p.Summary + "\n\n")
	if len(p.Steps) > 0 {
		b.WriteString("### Steps\n")
		for i, s := range p.Steps {
			b.WriteString(strconv.Itoa(i+1) + ". " + s + "\n")
		}
	}
	if len(p.Resources) > 0 {
		b.WriteString("\n### Resources\n")
		for _, r := range p.Resources {
			b.WriteString("- " + r + "\n")
		}
	}
	if p.Timeline != "" {
		b.WriteString("\n### Timeline\n" + p.Timeline + "\n")
	}
	if len(p.Risks) > 0 {
		b.WriteString("\n### Risks\n")
		for _, r := range p.Risks {
			b.WriteString("- " + r + "\n")
		}
	}
	return b.String()
}

// Scorecard holds the evaluator's four dimension scores for one plan.
// Raw scores are on the 0-100 scale; ranking normalizes them to 0-1.
type Scorecard struct {
	CandidateIndex int     `json:"candidate_index"`
	Relevance      float64 `json:"relevance"`
	UserFit        float64 `json:"user_fit"`
	Feasibility    float64 `json:"feasibility"`
	Originality    float64 `json:"originality"`
	Justification  string  `json:"justification"`
}

// RawScoreMin and RawScoreMax bound every dimension score the evaluator
// may return; anything outside is a malformed response.
const (
	RawScoreMin = 0.0
	RawScoreMax = 100.0
)

// InRange checks all four dimension scores against the raw score bounds.
func (s Scorecard) InRange() bool {
	for _, v := range []float64{s.Relevance, s.UserFit, s.Feasibility, s.Originality} {
		if v < RawScoreMin || v > RawScoreMax {
			return false
		}
	}
	return true
}

// RankedEntry pairs a plan with its scorecard and final composite score.
type RankedEntry struct {
	Plan      Plan      `json:"plan"`
	Scorecard Scorecard `json:"scorecard"`
	Composite float64   `json:"composite"`
}

// RankedResult is the ordered outcome of one run, highest composite first.
type RankedResult struct {
	RunID   core.RunID    `json:"run_id"`
	Topic   Topic         `json:"topic"`
	Entries []RankedEntry `json:"entries"`
}
