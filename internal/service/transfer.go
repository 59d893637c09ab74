package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"bingo-ledger/internal/metrics"
	"bingo-ledger/internal/model"
	"bingo-ledger/internal/pkg/db"
	"bingo-ledger/internal/pkg/lock"
	"bingo-ledger/internal/repository"
)

// TransferReceipt is the outcome of a completed transfer.
type TransferReceipt struct {
	Debit         *model.Transaction `json:"debit"`
	Credit        *model.Transaction `json:"credit"`
	SenderBalance decimal.Decimal    `json:"sender_balance"`
}

// TransferService moves balance between two accounts.
type TransferService struct {
	txb          db.TxBeginner
	accounts     *repository.AccountRepository
	wallets      *repository.WalletRepository
	transactions *repository.TransactionRepository
	locks        *lock.AccountLock
	calendar     *Calendar
	defaults     WalletDefaults
}

// NewTransferService creates a new TransferService instance.
func NewTransferService(
	txb db.TxBeginner,
	accounts *repository.AccountRepository,
	wallets *repository.WalletRepository,
	transactions *repository.TransactionRepository,
	locks *lock.AccountLock,
	calendar *Calendar,
	defaults WalletDefaults,
) *TransferService {
	return &TransferService{
		txb:          txb,
		accounts:     accounts,
		wallets:      wallets,
		transactions: transactions,
		locks:        locks,
		calendar:     calendar,
		defaults:     defaults,
	}
}

// nextTransferUsage returns the sender's daily usage after sending amount on
// today. Usage from an earlier date does not count.
func nextTransferUsage(w *model.Wallet, today time.Time, amount decimal.Decimal) (decimal.Decimal, error) {
	used := decimal.Zero
	if sameDate(w.LastTransferDate, today) {
		used = w.DailyTransferUsed
	}
	next := used.Add(amount)
	if next.GreaterThan(w.DailyTransferLimit) {
		return decimal.Zero, fmt.Errorf("%w: %s of %s already used today", ErrLimitExceeded, used, w.DailyTransferLimit)
	}
	return next, nil
}

// checkTransfer applies the sender-side rules against a consistent view of
// the sender's account and wallet.
func checkTransfer(sender *model.Account, w *model.Wallet, today time.Time, amount decimal.Decimal) (decimal.Decimal, error) {
	if w.IsLocked {
		return decimal.Zero, fmt.Errorf("%w: wallet is locked", ErrPermissionDenied)
	}
	used, err := nextTransferUsage(w, today, amount)
	if err != nil {
		return decimal.Zero, err
	}
	if sender.Balance.LessThan(amount) {
		return decimal.Zero, ErrInsufficientFunds
	}
	return used, nil
}

// Transfer moves amount from one account to another and records the paired
// debit and credit. The checks run once up front and again inside the
// atomic unit against the locked rows.
func (s *TransferService) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (*TransferReceipt, error) {
	receipt, err := s.transfer(ctx, fromID, toID, amount)
	metrics.RecordTransfer(transferOutcome(err))
	return receipt, err
}

func (s *TransferService) transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (*TransferReceipt, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if fromID == "" || toID == "" {
		return nil, invalidInput("both accounts are required")
	}
	if fromID == toID {
		return nil, invalidInput("cannot transfer to self")
	}

	sender, err := s.accounts.GetByID(ctx, fromID)
	if err != nil {
		return nil, notFound(err, "sender")
	}
	recipient, err := s.accounts.GetByID(ctx, toID)
	if err != nil {
		return nil, notFound(err, "recipient")
	}
	w, err := s.wallets.GetOrCreate(ctx, fromID, s.defaults.Currency, s.defaults.DailyTransferLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get sender wallet: %w", err)
	}

	today := s.calendar.Today()
	if _, err := checkTransfer(sender, w, today, amount); err != nil {
		return nil, err
	}

	unlock := s.locks.LockPair(fromID, toID)
	defer unlock()

	var receipt TransferReceipt
	err = db.WithTx(ctx, s.txb, func(tx pgx.Tx) error {
		accounts := s.accounts.WithTx(tx)
		wallets := s.wallets.WithTx(tx)
		transactions := s.transactions.WithTx(tx)

		// Ascending id order so opposite transfers cannot deadlock.
		first, second := fromID, toID
		if second < first {
			first, second = second, first
		}
		locked := make(map[string]*model.Account, 2)
		for _, id := range []string{first, second} {
			acc, err := accounts.GetForUpdate(ctx, id)
			if err != nil {
				return notFound(err, "account")
			}
			locked[id] = acc
		}

		w, err := wallets.GetForUpdate(ctx, fromID)
		if err != nil {
			return notFound(err, "sender wallet")
		}
		used, err := checkTransfer(locked[fromID], w, today, amount)
		if err != nil {
			return err
		}

		updated, err := accounts.AddBalance(ctx, fromID, amount.Neg())
		if err != nil {
			if errors.Is(err, repository.ErrNegativeBalance) {
				return ErrInsufficientFunds
			}
			return err
		}
		if _, err := accounts.AddBalance(ctx, toID, amount); err != nil {
			return err
		}
		if _, err := wallets.SetTransferUsage(ctx, fromID, used, today); err != nil {
			return err
		}

		debitID, creditID := uuid.NewString(), uuid.NewString()
		senderName, recipientName := displayOrID(sender), displayOrID(recipient)

		receipt.Debit, err = transactions.Create(ctx, &model.Transaction{
			ID:                    debitID,
			AccountID:             fromID,
			Kind:                  model.KindTransfer,
			Amount:                amount.Neg(),
			Status:                model.StatusCompleted,
			Description:           "Transfer to " + recipientName,
			CounterpartyAccountID: &toID,
			PairedTransactionID:   &creditID,
		})
		if err != nil {
			return err
		}
		receipt.Credit, err = transactions.Create(ctx, &model.Transaction{
			ID:                    creditID,
			AccountID:             toID,
			Kind:                  model.KindTransfer,
			Amount:                amount,
			Status:                model.StatusCompleted,
			Description:           "Transfer from " + senderName,
			CounterpartyAccountID: &fromID,
			PairedTransactionID:   &debitID,
		})
		if err != nil {
			return err
		}
		receipt.SenderBalance = updated.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("from", fromID).
		Str("to", toID).
		Str("amount", amount.StringFixed(2)).
		Msg("Transfer completed")

	return &receipt, nil
}

func displayOrID(acc *model.Account) string {
	if acc.DisplayName != "" {
		return acc.DisplayName
	}
	return acc.ID
}

func transferOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, ErrPermissionDenied):
		return "locked"
	case errors.Is(err, ErrInvalidInput):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}
	return "error"
}
