package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"bingo-ledger/internal/model"
	"bingo-ledger/internal/repository"
)

// Pagination bounds for history reads.
const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// WalletDefaults are applied to wallets created lazily.
type WalletDefaults struct {
	Currency           string
	DailyTransferLimit decimal.Decimal
}

// TelegramAccountID returns the account id used for a Telegram user.
func TelegramAccountID(telegramID int64) string {
	return fmt.Sprintf("tg:%d", telegramID)
}

// ConfiguredAdmins merges the administrator Telegram user ids and account
// ids from configuration into one list of account ids.
func ConfiguredAdmins(telegramIDs []int64, accountIDs []string) []string {
	ids := make([]string, 0, len(telegramIDs)+len(accountIDs))
	for _, id := range telegramIDs {
		ids = append(ids, TelegramAccountID(id))
	}
	for _, id := range accountIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// AccountService handles account lifecycle and read operations.
type AccountService struct {
	accounts     *repository.AccountRepository
	wallets      *repository.WalletRepository
	transactions *repository.TransactionRepository
	defaults     WalletDefaults
	admins       map[string]bool
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(
	accounts *repository.AccountRepository,
	wallets *repository.WalletRepository,
	transactions *repository.TransactionRepository,
	defaults WalletDefaults,
) *AccountService {
	return &AccountService{
		accounts:     accounts,
		wallets:      wallets,
		transactions: transactions,
		defaults:     defaults,
		admins:       make(map[string]bool),
	}
}

// WithAdmins registers the configured administrator account ids. They are
// granted the capability when their account is created or next accessed.
func (s *AccountService) WithAdmins(accountIDs ...string) *AccountService {
	for _, id := range accountIDs {
		s.admins[id] = true
	}
	return s
}

// PromoteConfiguredAdmins grants the capability to every configured
// administrator that already has an account. Accounts created later are
// promoted by EnsureAccount.
func (s *AccountService) PromoteConfiguredAdmins(ctx context.Context) error {
	for id := range s.admins {
		err := s.accounts.SetAdmin(ctx, id, true)
		if errors.Is(err, repository.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to promote admin %s: %w", id, err)
		}
		log.Info().Str("account_id", id).Msg("Configured administrator promoted")
	}
	return nil
}

// EnsureAccount returns the account, creating it and its wallet on first
// access. created reports whether this call created the account.
func (s *AccountService) EnsureAccount(ctx context.Context, accountID, displayName string, telegramID *int64) (*model.Account, bool, error) {
	if accountID == "" {
		return nil, false, invalidInput("account id is required")
	}

	acc, created, err := s.accounts.Create(ctx, accountID, displayName, telegramID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure account: %w", err)
	}

	if _, err := s.wallets.GetOrCreate(ctx, accountID, s.defaults.Currency, s.defaults.DailyTransferLimit); err != nil {
		return nil, false, fmt.Errorf("failed to ensure wallet: %w", err)
	}

	if created {
		log.Info().Str("account_id", accountID).Msg("Account created")
	} else if displayName != "" && acc.DisplayName != displayName {
		if err := s.accounts.UpdateDisplayName(ctx, accountID, displayName); err != nil {
			// The account exists; a stale display name is not fatal.
			log.Warn().Err(err).Str("account_id", accountID).Msg("Failed to update display name")
		} else {
			acc.DisplayName = displayName
		}
	}

	if s.admins[accountID] && !acc.IsAdmin {
		if err := s.accounts.SetAdmin(ctx, accountID, true); err != nil {
			return nil, false, fmt.Errorf("failed to grant admin capability: %w", err)
		}
		acc.IsAdmin = true
		log.Info().Str("account_id", accountID).Msg("Configured administrator promoted")
	}

	return acc, created, nil
}

// GetAccount retrieves an account.
func (s *AccountService) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, notFound(err, "account")
	}
	return acc, nil
}

// IsAdmin reports whether the account holds the administrator capability.
// Unknown accounts are not administrators.
func (s *AccountService) IsAdmin(ctx context.Context, accountID string) (bool, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check admin capability: %w", err)
	}
	return acc.IsAdmin, nil
}

// GetWallet retrieves the account's wallet, creating it with defaults when
// the account has none yet.
func (s *AccountService) GetWallet(ctx context.Context, accountID string) (*model.Wallet, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	w, err := s.wallets.GetOrCreate(ctx, accountID, s.defaults.Currency, s.defaults.DailyTransferLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}

// SetWalletLocked locks or unlocks outgoing transfers from accountID on
// behalf of adminID, who must be an administrator.
func (s *AccountService) SetWalletLocked(ctx context.Context, adminID, accountID string, locked bool) (*model.Wallet, error) {
	if err := requireAdmin(ctx, s.accounts, adminID); err != nil {
		return nil, err
	}
	if _, err := s.GetWallet(ctx, accountID); err != nil {
		return nil, err
	}

	w, err := s.wallets.SetLocked(ctx, accountID, locked)
	if err != nil {
		return nil, notFound(err, "wallet")
	}

	log.Info().
		Str("admin_id", adminID).
		Str("account_id", accountID).
		Bool("locked", locked).
		Msg("Wallet lock changed")
	return w, nil
}

// History returns a page of the account's transactions newest first.
func (s *AccountService) History(ctx context.Context, accountID string, limit, offset int) ([]*model.Transaction, error) {
	if offset < 0 {
		return nil, invalidInput("offset must not be negative")
	}
	return s.transactions.ListByAccount(ctx, accountID, clampLimit(limit), offset)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}
