package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bingo-ledger/internal/model"
	"bingo-ledger/internal/pkg/db"
)

// LeaderboardRepository stores computed ranking snapshots.
type LeaderboardRepository struct {
	q db.Querier
}

// NewLeaderboardRepository creates a new LeaderboardRepository instance.
func NewLeaderboardRepository(q db.Querier) *LeaderboardRepository {
	return &LeaderboardRepository{q: q}
}

// Replace stores snap under its key, replacing any previous entries in a
// single statement. Readers see either the old or the new snapshot. A stored
// snapshot generated after snap is kept, and stored reports false.
func (r *LeaderboardRepository) Replace(ctx context.Context, snap *model.LeaderboardSnapshot) (stored bool, err error) {
	entries := snap.Entries
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return false, fmt.Errorf("failed to encode leaderboard entries: %w", err)
	}

	const query = `
		INSERT INTO leaderboard_snapshots (snapshot_key, period_type, period, entries, generated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (snapshot_key) DO UPDATE
		SET period_type = EXCLUDED.period_type,
			period = EXCLUDED.period,
			entries = EXCLUDED.entries,
			generated_at = EXCLUDED.generated_at
		WHERE leaderboard_snapshots.generated_at <= EXCLUDED.generated_at
	`
	result, err := r.q.Exec(ctx, query, snap.Key, snap.Type, snap.Period, payload, snap.GeneratedAt)
	if err != nil {
		return false, fmt.Errorf("failed to store leaderboard snapshot: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// Get retrieves the snapshot stored under key.
func (r *LeaderboardRepository) Get(ctx context.Context, key string) (*model.LeaderboardSnapshot, error) {
	const query = `
		SELECT snapshot_key, period_type, period, entries, generated_at
		FROM leaderboard_snapshots
		WHERE snapshot_key = $1
	`

	var (
		snap    model.LeaderboardSnapshot
		payload []byte
	)
	err := r.q.QueryRow(ctx, query, key).Scan(
		&snap.Key,
		&snap.Type,
		&snap.Period,
		&payload,
		&snap.GeneratedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get leaderboard snapshot: %w", err)
	}
	if err := json.Unmarshal(payload, &snap.Entries); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard entries: %w", err)
	}
	return &snap, nil
}
