package profile

import (
	"reflect"
	"testing"
)

func TestContextSummaryDefaults(t *testing.T) {
	p := Default("anon")
	if got := p.ContextSummary(); got != "General user, no specific preferences" {
		t.Errorf("Wrong default context summary: %q", got)
	}
	if got := p.BehaviorSummary(); got != "No historical behavior data" {
		t.Errorf("Wrong default behavior summary: %q", got)
	}
}

func TestPromptSummariesAreCapped(t *testing.T) {
	p := Profile{
		Interests:    []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7"},
		RecentTopics: []string{"t1", "t2", "t3", "t4", "t5"},
	}

	if got := p.TopInterests(); len(got) != 5 {
		t.Errorf("Expected 5 interests in prompts, got %d", len(got))
	}
	last := p.LastTopics()
	if !reflect.DeepEqual(last, []string{"t3", "t4", "t5"}) {
		t.Errorf("Expected the 3 most recent topics, got %v", last)
	}
}

func TestAcceptedTagsMergesInterestsAndHistory(t *testing.T) {
	p := Profile{
		Interests:     []string{"Gardening", "solar"},
		AcceptedIdeas: []string{"Rooftop solar garden kit", "a an of"},
	}

	tags := p.AcceptedTags()
	want := []string{"garden", "gardening", "rooftop", "solar"}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("Wrong tag set: got %v, want %v", tags, want)
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Build a DIY solar-powered GARDEN, for $50!")
	want := []string{"build", "solar", "powered", "garden"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize: got %v, want %v", got, want)
	}
}
