// Package service provides business logic implementations.
//
// All balance mutation goes through TransferService, RewardService and
// PaymentService. Each mutation runs in one database transaction holding
// row locks on the accounts it touches.
package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"bingo-ledger/internal/repository"
)

// Ledger error taxonomy. Callers match with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrLimitExceeded       = errors.New("daily transfer limit exceeded")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrInvalidInput        = errors.New("invalid input")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// notFound translates repository lookups into ErrNotFound and wraps the rest.
func notFound(err error, what string) error {
	switch {
	case errors.Is(err, repository.ErrAccountNotFound),
		errors.Is(err, repository.ErrWalletNotFound),
		errors.Is(err, repository.ErrTransactionNotFound),
		errors.Is(err, repository.ErrSnapshotNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

// validateAmount checks that amount is positive and has at most two
// fractional digits.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalidInput("amount must be positive, got %s", amount)
	}
	if !amount.Equal(amount.Truncate(2)) {
		return invalidInput("amount %s has more than two fractional digits", amount)
	}
	return nil
}

// ParseAmount parses a user supplied decimal amount and validates it.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, invalidInput("malformed amount %q", raw)
	}
	if err := validateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}
