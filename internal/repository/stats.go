package repository

import (
	"context"
	"fmt"

	"bingo-ledger/internal/model"
	"bingo-ledger/internal/pkg/db"
)

// StatsRepository reads per-account play statistics. The game subsystem
// owns the player_stats rows.
type StatsRepository struct {
	q db.Querier
}

// NewStatsRepository creates a new StatsRepository instance.
func NewStatsRepository(q db.Querier) *StatsRepository {
	return &StatsRepository{q: q}
}

// ListForRanking returns the statistics of every account in creation order.
// Accounts that never played get zero counters and level 1.
func (r *StatsRepository) ListForRanking(ctx context.Context) ([]*model.PlayStats, error) {
	const query = `
		SELECT a.id, a.display_name,
			COALESCE(s.games_played, 0), COALESCE(s.games_won, 0),
			COALESCE(s.level, 1), COALESCE(s.experience, 0),
			COALESCE(s.total_earnings, 0)
		FROM accounts a
		LEFT JOIN player_stats s ON s.account_id = a.id
		ORDER BY a.created_at, a.id
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get play stats: %w", err)
	}
	defer rows.Close()

	var stats []*model.PlayStats
	for rows.Next() {
		var s model.PlayStats
		err := rows.Scan(
			&s.AccountID,
			&s.DisplayName,
			&s.GamesPlayed,
			&s.GamesWon,
			&s.Level,
			&s.Experience,
			&s.TotalEarnings,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan play stats: %w", err)
		}
		stats = append(stats, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating play stats: %w", err)
	}
	return stats, nil
}
