package service

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"bingo-ledger/internal/model"
)

func centsGen(min, max int64) *rapid.Generator[decimal.Decimal] {
	return rapid.Custom(func(t *rapid.T) decimal.Decimal {
		return decimal.New(rapid.Int64Range(min, max).Draw(t, "cents"), -2)
	})
}

// TestCheckTransferProperty: a transfer passes the sender checks exactly
// when the wallet is unlocked, today's usage plus amount stays within the
// limit, and the balance covers the amount.
func TestCheckTransferProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
		balance := centsGen(0, 500000).Draw(t, "balance")
		amount := centsGen(1, 200000).Draw(t, "amount")
		limit := centsGen(0, 300000).Draw(t, "limit")
		used := centsGen(0, 300000).Draw(t, "used")
		locked := rapid.Bool().Draw(t, "locked")
		sameDay := rapid.Bool().Draw(t, "sameDay")

		last := today
		if !sameDay {
			last = today.AddDate(0, 0, -rapid.IntRange(1, 30).Draw(t, "daysAgo"))
		}

		sender := &model.Account{ID: "a", Balance: balance}
		w := &model.Wallet{
			AccountID:          "a",
			DailyTransferLimit: limit,
			DailyTransferUsed:  used,
			LastTransferDate:   &last,
			IsLocked:           locked,
		}

		next, err := checkTransfer(sender, w, today, amount)

		effective := decimal.Zero
		if sameDay {
			effective = used
		}
		switch {
		case locked:
			if !errors.Is(err, ErrPermissionDenied) {
				t.Fatalf("locked wallet: expected ErrPermissionDenied, got %v", err)
			}
		case effective.Add(amount).GreaterThan(limit):
			if !errors.Is(err, ErrLimitExceeded) {
				t.Fatalf("expected ErrLimitExceeded, got %v", err)
			}
		case balance.LessThan(amount):
			if !errors.Is(err, ErrInsufficientFunds) {
				t.Fatalf("expected ErrInsufficientFunds, got %v", err)
			}
		default:
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !next.Equal(effective.Add(amount)) {
				t.Fatalf("usage: expected %s, got %s", effective.Add(amount), next)
			}
		}
	})
}

func TestNextTransferUsage_RollsOverOnNewDay(t *testing.T) {
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	w := &model.Wallet{
		DailyTransferLimit: decimal.NewFromInt(1000),
		DailyTransferUsed:  decimal.NewFromInt(1000),
		LastTransferDate:   &yesterday,
	}

	used, err := nextTransferUsage(w, today, decimal.NewFromInt(400))
	require.NoError(t, err)
	assert.True(t, used.Equal(decimal.NewFromInt(400)))

	w.LastTransferDate = &today
	_, err = nextTransferUsage(w, today, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrLimitExceeded)

	w.LastTransferDate = nil
	used, err = nextTransferUsage(w, today, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, used.Equal(decimal.NewFromInt(1000)))
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
	}{
		{"10", true},
		{"0.01", true},
		{"99.90", true},
		{"0", false},
		{"-5", false},
		{"1.005", false},
		{"abc", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, err := ParseAmount(tt.raw)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidInput)
			}
		})
	}
}
