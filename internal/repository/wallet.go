package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"bingo-ledger/internal/model"
	"bingo-ledger/internal/pkg/db"
)

const walletColumns = `account_id, currency, daily_transfer_limit, daily_transfer_used,
	last_transfer_date, is_locked, created_at, updated_at`

func scanWallet(row pgx.Row) (*model.Wallet, error) {
	var w model.Wallet
	err := row.Scan(
		&w.AccountID,
		&w.Currency,
		&w.DailyTransferLimit,
		&w.DailyTransferUsed,
		&w.LastTransferDate,
		&w.IsLocked,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// WalletRepository handles wallet persistence. Wallets are created lazily
// on first access with the configured defaults.
type WalletRepository struct {
	q db.Querier
}

// NewWalletRepository creates a new WalletRepository instance.
func NewWalletRepository(q db.Querier) *WalletRepository {
	return &WalletRepository{q: q}
}

// WithTx returns a copy of the repository bound to tx.
func (r *WalletRepository) WithTx(tx pgx.Tx) *WalletRepository {
	return &WalletRepository{q: tx}
}

// GetOrCreate returns the account's wallet, creating it with the given
// defaults when absent.
func (r *WalletRepository) GetOrCreate(ctx context.Context, accountID, currency string, dailyLimit decimal.Decimal) (*model.Wallet, error) {
	const insert = `
		INSERT INTO wallets (account_id, currency, daily_transfer_limit, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (account_id) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, insert, accountID, currency, dailyLimit); err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return r.Get(ctx, accountID)
}

// Get retrieves a wallet by account ID.
func (r *WalletRepository) Get(ctx context.Context, accountID string) (*model.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE account_id = $1`

	w, err := scanWallet(r.q.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}

// GetForUpdate retrieves a wallet and locks its row.
func (r *WalletRepository) GetForUpdate(ctx context.Context, accountID string) (*model.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE account_id = $1 FOR UPDATE`

	w, err := scanWallet(r.q.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return w, nil
}

// SetTransferUsage stores the running daily total and the date it belongs to.
func (r *WalletRepository) SetTransferUsage(ctx context.Context, accountID string, used decimal.Decimal, date time.Time) (*model.Wallet, error) {
	query := `
		UPDATE wallets
		SET daily_transfer_used = $2, last_transfer_date = $3, updated_at = NOW()
		WHERE account_id = $1
		RETURNING ` + walletColumns

	w, err := scanWallet(r.q.QueryRow(ctx, query, accountID, used, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to update transfer usage: %w", err)
	}
	return w, nil
}

// SetLocked locks or unlocks outgoing transfers.
func (r *WalletRepository) SetLocked(ctx context.Context, accountID string, locked bool) (*model.Wallet, error) {
	query := `
		UPDATE wallets
		SET is_locked = $2, updated_at = NOW()
		WHERE account_id = $1
		RETURNING ` + walletColumns

	w, err := scanWallet(r.q.QueryRow(ctx, query, accountID, locked))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to set wallet lock: %w", err)
	}
	return w, nil
}
