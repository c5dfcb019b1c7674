// Package memory provides an in-process ProfileStore for the CLI and
// tests, mirroring the postgres adapter's behavior without a database.
package memory

import (
	"context"
	"fmt"
	"sync"

	"ideaforge/domain/core"
	"ideaforge/domain/profile"
	"ideaforge/ports"
)

const (
	maxStoredOutcomes = 50
	maxStoredTopics   = 10
)

// ProfileStore keeps profiles in a map guarded by a RWMutex.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]profile.Profile
}

// NewProfileStore creates an empty store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]profile.Profile)}
}

// Seed installs a profile snapshot, replacing any existing one.
func (s *ProfileStore) Seed(p profile.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

// GetProfile returns a copy of the stored snapshot.
func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return profile.Profile{}, fmt.Errorf("%w: %s", core.ErrProfileNotFound, userID)
	}
	return copyProfile(p), nil
}

// RecordOutcome appends the summary to the accepted or rejected list and
// folds accepted-idea tags into interests.
func (s *ProfileStore) RecordOutcome(ctx context.Context, userID string, ideaSummary string, accepted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		p = profile.Default(userID)
	}
	if accepted {
		p.AcceptedIdeas = appendCapped(p.AcceptedIdeas, ideaSummary, maxStoredOutcomes)
		p.Interests = mergeInterests(p.Interests, ideaSummary)
	} else {
		p.RejectedIdeas = appendCapped(p.RejectedIdeas, ideaSummary, maxStoredOutcomes)
	}
	s.profiles[userID] = p
	return nil
}

// RecordTopic appends a topic to the recent list.
func (s *ProfileStore) RecordTopic(ctx context.Context, userID string, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		p = profile.Default(userID)
	}
	p.RecentTopics = appendCapped(p.RecentTopics, topic, maxStoredTopics)
	s.profiles[userID] = p
	return nil
}

func copyProfile(p profile.Profile) profile.Profile {
	out := p
	out.Interests = append([]string(nil), p.Interests...)
	out.RecentTopics = append([]string(nil), p.RecentTopics...)
	out.AcceptedIdeas = append([]string(nil), p.AcceptedIdeas...)
	out.RejectedIdeas = append([]string(nil), p.RejectedIdeas...)
	if p.DimensionWeights != nil {
		out.DimensionWeights = make(map[string]float64, len(p.DimensionWeights))
		for k, v := range p.DimensionWeights {
			out.DimensionWeights[k] = v
		}
	}
	return out
}

func appendCapped(list []string, item string, limit int) []string {
	list = append(list, item)
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list
}

func mergeInterests(interests []string, ideaSummary string) []string {
	seen := make(map[string]bool, len(interests))
	for _, t := range interests {
		seen[t] = true
	}
	for _, tag := range profile.Tokenize(ideaSummary) {
		if !seen[tag] {
			interests = append(interests, tag)
			seen[tag] = true
		}
	}
	return interests
}

var _ ports.ProfileStore = (*ProfileStore)(nil)
