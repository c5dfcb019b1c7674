package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"ideaforge/domain/core"
	"ideaforge/domain/profile"
	"ideaforge/ports"
)

// History caps: recording an outcome trims the stored lists so rows stay
// bounded no matter how active a user is.
const (
	maxStoredOutcomes = 50
	maxStoredTopics   = 10
)

// ProfileRepository implements ports.ProfileStore on PostgreSQL. Profile
// list fields are stored as jsonb.
type ProfileRepository struct {
	db *sqlx.DB
}

// Connect opens the database and ensures the schema exists.
func Connect(databaseURL string) (*ProfileRepository, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	repo := &ProfileRepository{db: db}
	if err := repo.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// NewProfileRepository wraps an existing connection (used by tests).
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Close releases the underlying connection pool.
func (r *ProfileRepository) Close() error {
	return r.db.Close()
}

// Ping checks database reachability for readiness probes.
func (r *ProfileRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *ProfileRepository) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS user_profiles (
			user_id           TEXT PRIMARY KEY,
			interests         JSONB NOT NULL DEFAULT '[]',
			recent_topics     JSONB NOT NULL DEFAULT '[]',
			accepted_ideas    JSONB NOT NULL DEFAULT '[]',
			rejected_ideas    JSONB NOT NULL DEFAULT '[]',
			dimension_weights JSONB NOT NULL DEFAULT '{}',
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure user_profiles schema: %w", err)
	}
	return nil
}

type profileRow struct {
	UserID           string `db:"user_id"`
	Interests        []byte `db:"interests"`
	RecentTopics     []byte `db:"recent_topics"`
	AcceptedIdeas    []byte `db:"accepted_ideas"`
	RejectedIdeas    []byte `db:"rejected_ideas"`
	DimensionWeights []byte `db:"dimension_weights"`
}

// GetProfile reads one user's snapshot. Unknown users get
// core.ErrProfileNotFound so callers can fall back to the default profile.
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (profile.Profile, error) {
	var row profileRow
	err := r.db.GetContext(ctx, &row, `
		SELECT user_id, interests, recent_topics, accepted_ideas, rejected_ideas, dimension_weights
		FROM user_profiles
		WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Profile{}, fmt.Errorf("%w: %s", core.ErrProfileNotFound, userID)
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("get profile %s: %w", userID, err)
	}

	prof := profile.Profile{UserID: row.UserID}
	for _, field := range []struct {
		raw  []byte
		dest interface{}
	}{
		{row.Interests, &prof.Interests},
		{row.RecentTopics, &prof.RecentTopics},
		{row.AcceptedIdeas, &prof.AcceptedIdeas},
		{row.RejectedIdeas, &prof.RejectedIdeas},
		{row.DimensionWeights, &prof.DimensionWeights},
	} {
		if len(field.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(field.raw, field.dest); err != nil {
			return profile.Profile{}, fmt.Errorf("decode profile %s: %w", userID, err)
		}
	}
	return prof, nil
}

// RecordOutcome appends an idea summary to the accepted or rejected list
// and refreshes the interest tags derived from accepted ideas. Lists are
// trimmed to their caps inside the transaction.
func (r *ProfileRepository) RecordOutcome(ctx context.Context, userID string, ideaSummary string, accepted bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outcome tx: %w", err)
	}
	defer tx.Rollback()

	var row profileRow
	err = tx.GetContext(ctx, &row, `
		SELECT user_id, interests, recent_topics, accepted_ideas, rejected_ideas, dimension_weights
		FROM user_profiles
		WHERE user_id = $1
		FOR UPDATE
	`, userID)

	prof := profile.Profile{UserID: userID}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First outcome for this user; start from an empty profile.
	case err != nil:
		return fmt.Errorf("lock profile %s: %w", userID, err)
	default:
		json.Unmarshal(row.Interests, &prof.Interests)
		json.Unmarshal(row.RecentTopics, &prof.RecentTopics)
		json.Unmarshal(row.AcceptedIdeas, &prof.AcceptedIdeas)
		json.Unmarshal(row.RejectedIdeas, &prof.RejectedIdeas)
		json.Unmarshal(row.DimensionWeights, &prof.DimensionWeights)
	}

	if accepted {
		prof.AcceptedIdeas = appendCapped(prof.AcceptedIdeas, ideaSummary, maxStoredOutcomes)
		prof.Interests = mergeInterests(prof.Interests, ideaSummary)
	} else {
		prof.RejectedIdeas = appendCapped(prof.RejectedIdeas, ideaSummary, maxStoredOutcomes)
	}

	interests, _ := json.Marshal(prof.Interests)
	topics, _ := json.Marshal(prof.RecentTopics)
	acceptedIdeas, _ := json.Marshal(prof.AcceptedIdeas)
	rejectedIdeas, _ := json.Marshal(prof.RejectedIdeas)
	weights, _ := json.Marshal(prof.DimensionWeights)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, interests, recent_topics, accepted_ideas, rejected_ideas, dimension_weights, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			interests = EXCLUDED.interests,
			recent_topics = EXCLUDED.recent_topics,
			accepted_ideas = EXCLUDED.accepted_ideas,
			rejected_ideas = EXCLUDED.rejected_ideas,
			dimension_weights = EXCLUDED.dimension_weights,
			updated_at = NOW()
	`, userID, interests, topics, acceptedIdeas, rejectedIdeas, weights)
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", userID, err)
	}

	return tx.Commit()
}

// RecordTopic appends a brainstormed topic to the user's recent list.
// Called by the front door after a successful run.
func (r *ProfileRepository) RecordTopic(ctx context.Context, userID string, topic string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin topic tx: %w", err)
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.GetContext(ctx, &raw, `
		SELECT recent_topics FROM user_profiles WHERE user_id = $1 FOR UPDATE
	`, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lock profile %s: %w", userID, err)
	}

	var topics []string
	if len(raw) > 0 {
		json.Unmarshal(raw, &topics)
	}
	topics = appendCapped(topics, topic, maxStoredTopics)
	encoded, _ := json.Marshal(topics)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, recent_topics, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			recent_topics = EXCLUDED.recent_topics,
			updated_at = NOW()
	`, userID, encoded)
	if err != nil {
		return fmt.Errorf("record topic for %s: %w", userID, err)
	}
	return tx.Commit()
}

func appendCapped(list []string, item string, limit int) []string {
	list = append(list, item)
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list
}

// mergeInterests folds tags from a newly accepted idea into the interest
// list, keeping insertion order and dropping duplicates.
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
	if len(interests) > maxStoredOutcomes {
		interests = interests[len(interests)-maxStoredOutcomes:]
	}
	return interests
}

var _ ports.ProfileStore = (*ProfileRepository)(nil)
