package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"ideaforge/domain/core"
	"ideaforge/domain/profile"
)

func TestGetProfileUnknownUser(t *testing.T) {
	store := NewProfileStore()
	_, err := store.GetProfile(context.Background(), "ghost")
	if !errors.Is(err, core.ErrProfileNotFound) {
		t.Fatalf("Expected ErrProfileNotFound, got %v", err)
	}
}

func TestGetProfileReturnsCopy(t *testing.T) {
	store := NewProfileStore()
	store.Seed(profile.Profile{UserID: "alice", Interests: []string{"solar"}})

	p, err := store.GetProfile(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	p.Interests[0] = "mutated"

	again, _ := store.GetProfile(context.Background(), "alice")
	if again.Interests[0] != "solar" {
		t.Error("Mutating a returned profile leaked into the store")
	}
}

func TestRecordOutcomeAcceptedUpdatesInterests(t *testing.T) {
	store := NewProfileStore()
	ctx := context.Background()

	if err := store.RecordOutcome(ctx, "alice", "Rooftop solar garden", true); err != nil {
		t.Fatalf("RecordOutcome failed: %v", err)
	}
	p, err := store.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if len(p.AcceptedIdeas) != 1 || p.AcceptedIdeas[0] != "Rooftop solar garden" {
		t.Errorf("Accepted idea not stored: %v", p.AcceptedIdeas)
	}
	// Tags from the accepted idea become interests.
	want := map[string]bool{"rooftop": true, "solar": true, "garden": true}
	for _, tag := range p.Interests {
		if !want[tag] {
			t.Errorf("Unexpected interest %q", tag)
		}
		delete(want, tag)
	}
	if len(want) != 0 {
		t.Errorf("Missing interests: %v", want)
	}
}

func TestRecordOutcomeRejectedDoesNotTouchInterests(t *testing.T) {
	store := NewProfileStore()
	ctx := context.Background()

	if err := store.RecordOutcome(ctx, "bob", "Underwater basket weaving", false); err != nil {
		t.Fatalf("RecordOutcome failed: %v", err)
	}
	p, _ := store.GetProfile(ctx, "bob")
	if len(p.RejectedIdeas) != 1 || len(p.Interests) != 0 {
		t.Errorf("Rejection must not touch interests: %+v", p)
	}
}

func TestRecordTopicCapsRecentList(t *testing.T) {
	store := NewProfileStore()
	ctx := context.Background()

	for i := 0; i < maxStoredTopics+5; i++ {
		if err := store.RecordTopic(ctx, "carol", fmt.Sprintf("topic %d", i)); err != nil {
			t.Fatalf("RecordTopic failed: %v", err)
		}
	}
	p, _ := store.GetProfile(ctx, "carol")
	if len(p.RecentTopics) != maxStoredTopics {
		t.Fatalf("Expected %d topics, got %d", maxStoredTopics, len(p.RecentTopics))
	}
	if p.RecentTopics[len(p.RecentTopics)-1] != fmt.Sprintf("topic %d", maxStoredTopics+4) {
		t.Errorf("Newest topic missing: %v", p.RecentTopics)
	}
	if p.RecentTopics[0] != "topic 5" {
		t.Errorf("Oldest topics not trimmed: %v", p.RecentTopics)
	}
}
