package profile

import (
	"sort"
	"strings"
)

// Profile is a read-only snapshot of one user's preferences and history.
// The pipeline takes it at run start and never mutates it mid-run.
type Profile struct {
	UserID           string             `json:"user_id"`
	Interests        []string           `json:"interests"`
	RecentTopics     []string           `json:"recent_topics"`
	AcceptedIdeas    []string           `json:"accepted_ideas"`
	RejectedIdeas    []string           `json:"rejected_ideas"`
	DimensionWeights map[string]float64 `json:"dimension_weights,omitempty"`
}

// Dimension weight keys accepted in DimensionWeights.
const (
	DimRelevance   = "relevance"
	DimUserFit     = "user_fit"
	DimFeasibility = "feasibility"
	DimOriginality = "originality"
)

// Prompt size caps. The profile summary embedded into prompts stays
// compact regardless of how much history a user has.
const (
	maxPromptInterests = 5
	maxPromptTopics    = 3
)

// Default returns the profile used when a user is unknown or anonymous.
func Default(userID string) Profile {
	return Profile{UserID: userID}
}

// TopInterests returns up to maxPromptInterests interest tags.
func (p Profile) TopInterests() []string {
	if len(p.Interests) <= maxPromptInterests {
		return p.Interests
	}
	return p.Interests[:maxPromptInterests]
}

// LastTopics returns up to maxPromptTopics most recent topics.
func (p Profile) LastTopics() []string {
	if len(p.RecentTopics) <= maxPromptTopics {
		return p.RecentTopics
	}
	return p.RecentTopics[len(p.RecentTopics)-maxPromptTopics:]
}

// ContextSummary renders the compact user background line for prompts.
func (p Profile) ContextSummary() string {
	if len(p.Interests) == 0 {
		return "General user, no specific preferences"
	}
	return "User interests: " + strings.Join(p.TopInterests(), ", ")
}

// BehaviorSummary renders the recent activity line for prompts.
func (p Profile) BehaviorSummary() string {
	if len(p.RecentTopics) == 0 {
		return "No historical behavior data"
	}
	return "Recently followed topics: " + strings.Join(p.LastTopics(), ", ")
}

// AcceptedTags derives the tag set from interests and accepted-idea
// summaries. Used by ranking to measure overlap with a plan's tags.
func (p Profile) AcceptedTags() []string {
	seen := make(map[string]bool)
	for _, t := range p.Interests {
		seen[normalizeTag(t)] = true
	}
	for _, summary := range p.AcceptedIdeas {
		for _, tok := range Tokenize(summary) {
			seen[tok] = true
		}
	}
	delete(seen, "")
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Tokenize splits free text into lowercase tag tokens, dropping short
// filler words.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 3 {
			out = append(out, f)
		}
	}
	return out
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
