package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bingo-ledger/internal/pkg/db"
)

// FreePlayRepository records which play sessions already earned points.
type FreePlayRepository struct {
	q db.Querier
}

// NewFreePlayRepository creates a new FreePlayRepository instance.
func NewFreePlayRepository(q db.Querier) *FreePlayRepository {
	return &FreePlayRepository{q: q}
}

// WithTx returns a copy of the repository bound to tx.
func (r *FreePlayRepository) WithTx(tx pgx.Tx) *FreePlayRepository {
	return &FreePlayRepository{q: tx}
}

// Record marks the account's session token as awarded. It returns false when
// the account already recorded the token. Tokens are scoped per account.
func (r *FreePlayRepository) Record(ctx context.Context, sessionToken, accountID string, points int64) (bool, error) {
	const query = `
		INSERT INTO free_play_awards (session_token, account_id, points, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (account_id, session_token) DO NOTHING
	`
	result, err := r.q.Exec(ctx, query, sessionToken, accountID, points)
	if err != nil {
		return false, fmt.Errorf("failed to record free play award: %w", err)
	}
	return result.RowsAffected() == 1, nil
}
