// Package model defines the persisted records of the wallet ledger.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a player's monetary and reward state.
type Account struct {
	ID                 string          `db:"id" json:"id" validate:"required,max=128"`
	DisplayName        string          `db:"display_name" json:"display_name" validate:"max=255"`
	TelegramID         *int64          `db:"telegram_id" json:"telegram_id,omitempty"`
	Balance            decimal.Decimal `db:"balance" json:"balance"`
	DailyStreak        int             `db:"daily_streak" json:"daily_streak" validate:"gte=0"`
	LastDailyClaimDate *time.Time      `db:"last_daily_claim_date" json:"last_daily_claim_date,omitempty"`
	FreeGamePoints     int64           `db:"free_game_points" json:"free_game_points" validate:"gte=0"`
	IsAdmin            bool            `db:"is_admin" json:"is_admin"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// Wallet holds per-account transfer limits and security flags.
type Wallet struct {
	AccountID          string          `db:"account_id" json:"account_id"`
	Currency           string          `db:"currency" json:"currency"`
	DailyTransferLimit decimal.Decimal `db:"daily_transfer_limit" json:"daily_transfer_limit"`
	DailyTransferUsed  decimal.Decimal `db:"daily_transfer_used" json:"daily_transfer_used"`
	LastTransferDate   *time.Time      `db:"last_transfer_date" json:"last_transfer_date,omitempty"`
	IsLocked           bool            `db:"is_locked" json:"is_locked"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// TransactionKind categorizes a ledger entry.
type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
	KindGameEntry  TransactionKind = "game_entry"
	KindGameWin    TransactionKind = "game_win"
	KindBonus      TransactionKind = "bonus"
	KindTransfer   TransactionKind = "transfer"
)

// TransactionStatus is the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Transaction is an immutable ledger entry. Only Status (and SettledAt)
// may change, once, from pending to a terminal state.
type Transaction struct {
	ID                    string            `db:"id" json:"id" validate:"required,uuid"`
	AccountID             string            `db:"account_id" json:"account_id" validate:"required"`
	Kind                  TransactionKind   `db:"kind" json:"kind" validate:"required,oneof=deposit withdrawal game_entry game_win bonus transfer"`
	Amount                decimal.Decimal   `db:"amount" json:"amount"`
	Status                TransactionStatus `db:"status" json:"status" validate:"required,oneof=pending completed failed"`
	Description           string            `db:"description" json:"description" validate:"max=500"`
	Reference             *string           `db:"reference" json:"reference,omitempty"`
	CounterpartyAccountID *string           `db:"counterparty_account_id" json:"counterparty_account_id,omitempty"`
	PairedTransactionID   *string           `db:"paired_transaction_id" json:"paired_transaction_id,omitempty"`
	PaymentMethod         *string           `db:"payment_method" json:"payment_method,omitempty"`
	CreatedAt             time.Time         `db:"created_at" json:"created_at"`
	SettledAt             *time.Time        `db:"settled_at" json:"settled_at,omitempty"`
}

// PeriodType selects which leaderboard snapshot is computed.
type PeriodType string

const (
	PeriodGlobal  PeriodType = "global"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
)

// Valid reports whether p is a known period type.
func (p PeriodType) Valid() bool {
	switch p {
	case PeriodGlobal, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// LeaderboardEntry is one ranked row of a snapshot.
type LeaderboardEntry struct {
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name"`
	Score       int64  `json:"score"`
	Rank        int    `json:"rank"`
}

// LeaderboardSnapshot is a fully replaced ranking for one (type, period) key.
type LeaderboardSnapshot struct {
	Key         string             `db:"snapshot_key" json:"key"`
	Type        PeriodType         `db:"period_type" json:"type"`
	Period      string             `db:"period" json:"period"`
	Entries     []LeaderboardEntry `db:"entries" json:"entries"`
	GeneratedAt time.Time          `db:"generated_at" json:"generated_at"`
}

// PlayStats are the per-account statistics written by the game subsystem.
type PlayStats struct {
	AccountID     string          `db:"account_id"`
	DisplayName   string          `db:"display_name"`
	GamesPlayed   int64           `db:"games_played"`
	GamesWon      int64           `db:"games_won"`
	Level         int64           `db:"level"`
	Experience    int64           `db:"experience"`
	TotalEarnings decimal.Decimal `db:"total_earnings"`
}

// PayerInfo is the contact data forwarded to the payment provider.
type PayerInfo struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
}
