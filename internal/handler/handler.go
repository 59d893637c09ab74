// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"bingo-ledger/internal/model"
	"bingo-ledger/internal/service"
)

// Accounts is the account surface used by the bot.
type Accounts interface {
	EnsureAccount(ctx context.Context, accountID, displayName string, telegramID *int64) (*model.Account, bool, error)
	GetWallet(ctx context.Context, accountID string) (*model.Wallet, error)
	History(ctx context.Context, accountID string, limit, offset int) ([]*model.Transaction, error)
}

// Transfers moves funds between accounts.
type Transfers interface {
	Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (*service.TransferReceipt, error)
}

// Rewards grants the daily streak bonus.
type Rewards interface {
	ClaimDailyReward(ctx context.Context, accountID string) (*service.DailyClaim, error)
}

// Payments handles deposits and withdrawals.
type Payments interface {
	InitiateDeposit(ctx context.Context, accountID string, amount decimal.Decimal, payer model.PayerInfo) (*service.DepositIntent, error)
	InitiateWithdrawal(ctx context.Context, accountID string, amount decimal.Decimal) (*model.Transaction, error)
	SettleWithdrawal(ctx context.Context, adminID, transactionID string, approve bool) (*model.Transaction, error)
	PendingWithdrawals(ctx context.Context, adminID string, limit int) ([]*model.Transaction, error)
}

// Leaderboard reads and rebuilds snapshots.
type Leaderboard interface {
	Snapshot(ctx context.Context, periodType model.PeriodType) (*model.LeaderboardSnapshot, error)
	Recompute(ctx context.Context, callerID string, periodType model.PeriodType) (*model.LeaderboardSnapshot, error)
}

// displayName is the Telegram username, falling back to the first name.
func displayName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// ensureSender creates the sender's account on first use.
func ensureSender(ctx context.Context, accounts Accounts, u *tele.User) (*model.Account, error) {
	acc, _, err := ensureSenderCreated(ctx, accounts, u)
	return acc, err
}

func ensureSenderCreated(ctx context.Context, accounts Accounts, u *tele.User) (*model.Account, bool, error) {
	tgID := u.ID
	return accounts.EnsureAccount(ctx, service.TelegramAccountID(u.ID), displayName(u), &tgID)
}

// failureText turns a service error into a user-facing reply.
func failureText(err error) string {
	switch {
	case errors.Is(err, service.ErrInsufficientFunds):
		return "❌ Insufficient balance"
	case errors.Is(err, service.ErrLimitExceeded):
		return "❌ Daily transfer limit reached"
	case errors.Is(err, service.ErrPermissionDenied):
		return "❌ Permission denied"
	case errors.Is(err, service.ErrNotFound):
		return "❌ Not found. The other player must /start the bot first"
	case errors.Is(err, service.ErrProviderUnavailable):
		return "❌ Payment provider is unavailable, please try again later"
	case errors.Is(err, service.ErrInvalidInput):
		return "❌ " + strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": ")
	default:
		log.Error().Err(err).Msg("Bot command failed")
		return "❌ Operation failed, please try again later"
	}
}

func money(d decimal.Decimal, currency string) string {
	return fmt.Sprintf("%s %s", d.StringFixed(2), currency)
}
