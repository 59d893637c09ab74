// Package repository provides data access layer implementations.
//
// Every repository is bound to a db.Querier. Bind it to a pgx.Tx with
// WithTx to run its methods inside an atomic unit.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"bingo-ledger/internal/model"
	"bingo-ledger/internal/pkg/db"
)

// Common errors for repository operations.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrSnapshotNotFound    = errors.New("leaderboard snapshot not found")
	// ErrStatusConflict is returned when a guarded status transition finds
	// the record no longer in the expected state.
	ErrStatusConflict = errors.New("transaction status changed concurrently")
	// ErrNegativeBalance is returned when an update would drive a balance
	// below zero and the database CHECK constraint rejected it.
	ErrNegativeBalance = errors.New("balance would become negative")
)

const accountColumns = `id, display_name, telegram_id, balance, daily_streak,
	last_daily_claim_date, free_game_points, is_admin, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID,
		&a.DisplayName,
		&a.TelegramID,
		&a.Balance,
		&a.DailyStreak,
		&a.LastDailyClaimDate,
		&a.FreeGamePoints,
		&a.IsAdmin,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}

// AccountRepository handles account persistence.
type AccountRepository struct {
	q db.Querier
}

// NewAccountRepository creates a new AccountRepository instance.
func NewAccountRepository(q db.Querier) *AccountRepository {
	return &AccountRepository{q: q}
}

// WithTx returns a copy of the repository bound to tx.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	return &AccountRepository{q: tx}
}

// Create inserts the account if its ID is unused and returns the stored row.
// created reports whether this call inserted it.
func (r *AccountRepository) Create(ctx context.Context, id, displayName string, telegramID *int64) (*model.Account, bool, error) {
	const query = `
		INSERT INTO accounts (id, display_name, telegram_id, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING
		RETURNING ` + accountColumns

	acc, err := scanAccount(r.q.QueryRow(ctx, query, id, displayName, telegramID))
	if err == nil {
		return acc, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create account: %w", err)
	}

	// Another request created it first.
	acc, err = r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return acc, false, nil
}

// GetByID retrieves an account by ID.
// Returns ErrAccountNotFound if the account does not exist.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	acc, err := scanAccount(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

// GetForUpdate retrieves an account and locks its row until the enclosing
// transaction ends. Must be called on a repository bound to a transaction.
func (r *AccountRepository) GetForUpdate(ctx context.Context, id string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	acc, err := scanAccount(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	return acc, nil
}

// AddBalance adds delta (possibly negative) to the balance and returns the
// updated account. Returns ErrNegativeBalance if the result would be below zero.
func (r *AccountRepository) AddBalance(ctx context.Context, id string, delta decimal.Decimal) (*model.Account, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns

	acc, err := scanAccount(r.q.QueryRow(ctx, query, id, delta))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		if isCheckViolation(err) {
			return nil, ErrNegativeBalance
		}
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	return acc, nil
}

// UpdateDailyClaim stores the streak, the claim date and an optional bonus
// credit in one statement.
func (r *AccountRepository) UpdateDailyClaim(ctx context.Context, id string, streak int, claimDate time.Time, bonus decimal.Decimal) (*model.Account, error) {
	query := `
		UPDATE accounts
		SET daily_streak = $2, last_daily_claim_date = $3, balance = balance + $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns

	acc, err := scanAccount(r.q.QueryRow(ctx, query, id, streak, claimDate, bonus))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to update daily claim: %w", err)
	}
	return acc, nil
}

// AddFreeGamePoints increments the non-monetary points counter.
func (r *AccountRepository) AddFreeGamePoints(ctx context.Context, id string, points int64) (*model.Account, error) {
	query := `
		UPDATE accounts
		SET free_game_points = free_game_points + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns

	acc, err := scanAccount(r.q.QueryRow(ctx, query, id, points))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to add free game points: %w", err)
	}
	return acc, nil
}

// UpdateDisplayName updates an account's display name.
func (r *AccountRepository) UpdateDisplayName(ctx context.Context, id, displayName string) error {
	const query = `
		UPDATE accounts
		SET display_name = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, id, displayName)
	if err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// SetAdmin grants or revokes the administrator capability.
func (r *AccountRepository) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	const query = `
		UPDATE accounts
		SET is_admin = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, id, isAdmin)
	if err != nil {
		return fmt.Errorf("failed to set admin flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
