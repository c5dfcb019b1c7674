package ports

import (
	"context"

	"ideaforge/domain/profile"
)

// ProfileStore reads user profile snapshots and records idea outcomes.
// The pipeline only reads at run start; outcome recording happens after
// the front door has presented results to the user.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (profile.Profile, error)
	RecordOutcome(ctx context.Context, userID string, ideaSummary string, accepted bool) error
}
