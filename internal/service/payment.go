package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"bingo-ledger/internal/metrics"
	"bingo-ledger/internal/model"
	"bingo-ledger/internal/payment"
	"bingo-ledger/internal/pkg/db"
	"bingo-ledger/internal/pkg/lock"
	"bingo-ledger/internal/repository"
)

// Reference prefixes for provider-facing transactions.
const (
	depositRefPrefix    = "bingo-"
	withdrawalRefPrefix = "wd-"
	paymentMethodChapa  = "chapa"
)

// PaymentConfig holds deposit settings.
type PaymentConfig struct {
	MinDeposit  decimal.Decimal
	Currency    string
	CallbackURL string
	ReturnURL   string
}

// DepositIntent is returned by InitiateDeposit.
type DepositIntent struct {
	Transaction *model.Transaction `json:"transaction"`
	CheckoutURL string             `json:"checkout_url"`
	Reference   string             `json:"reference"`
}

// Settlement is the result of VerifyAndSettle. AlreadySettled is set when
// the record was completed before this call; it is a success, not an error.
type Settlement struct {
	Transaction    *model.Transaction `json:"transaction"`
	AlreadySettled bool               `json:"already_settled"`
	Balance        *decimal.Decimal   `json:"balance,omitempty"`
}

// PaymentService reconciles external deposits and withdrawals with the ledger.
type PaymentService struct {
	txb          db.TxBeginner
	accounts     *repository.AccountRepository
	transactions *repository.TransactionRepository
	provider     payment.Provider
	locks        *lock.AccountLock
	cfg          PaymentConfig
}

// NewPaymentService creates a new PaymentService instance.
func NewPaymentService(
	txb db.TxBeginner,
	accounts *repository.AccountRepository,
	transactions *repository.TransactionRepository,
	provider payment.Provider,
	locks *lock.AccountLock,
	cfg PaymentConfig,
) *PaymentService {
	return &PaymentService{
		txb:          txb,
		accounts:     accounts,
		transactions: transactions,
		provider:     provider,
		locks:        locks,
		cfg:          cfg,
	}
}

// InitiateDeposit records a pending deposit and asks the provider for a
// checkout page keyed by the deposit's reference. When the provider cannot
// be reached the pending record is kept so a late callback can still settle
// it, and ErrProviderUnavailable is returned.
func (s *PaymentService) InitiateDeposit(ctx context.Context, accountID string, amount decimal.Decimal, payer model.PayerInfo) (*DepositIntent, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if amount.LessThan(s.cfg.MinDeposit) {
		return nil, invalidInput("minimum deposit is %s", s.cfg.MinDeposit.StringFixed(2))
	}
	if err := model.Validate(&payer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, notFound(err, "account")
	}

	ref := depositRefPrefix + uuid.NewString()
	method := paymentMethodChapa
	tx, err := s.transactions.Create(ctx, &model.Transaction{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		Kind:          model.KindDeposit,
		Amount:        amount,
		Status:        model.StatusPending,
		Description:   "Wallet deposit via Chapa",
		Reference:     &ref,
		PaymentMethod: &method,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record deposit: %w", err)
	}

	checkout, err := s.provider.Initialize(ctx, payment.CheckoutRequest{
		Reference:   ref,
		Amount:      amount,
		Currency:    s.cfg.Currency,
		Email:       payer.Email,
		FirstName:   payer.FirstName,
		LastName:    payer.LastName,
		Phone:       payer.Phone,
		CallbackURL: s.cfg.CallbackURL,
		ReturnURL:   s.cfg.ReturnURL,
		Title:       "Bingo Game",
		Description: "Wallet deposit",
		Metadata:    map[string]string{"account_id": accountID},
	})
	if err != nil {
		metrics.RecordDepositInitiated("provider_unavailable")
		log.Error().Err(err).Str("reference", ref).Msg("Failed to initialize checkout")
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	metrics.RecordDepositInitiated("success")
	log.Info().
		Str("account_id", accountID).
		Str("reference", ref).
		Str("amount", amount.StringFixed(2)).
		Msg("Deposit initiated")

	return &DepositIntent{Transaction: tx, CheckoutURL: checkout.CheckoutURL, Reference: ref}, nil
}

// VerifyAndSettle settles the deposit with the given reference according to
// the provider's authoritative status. It is safe to call repeatedly: the
// credit happens only together with the pending to completed transition.
func (s *PaymentService) VerifyAndSettle(ctx context.Context, reference string) (*Settlement, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, invalidInput("reference is required")
	}

	rec, err := s.transactions.GetByReference(ctx, reference)
	if err != nil {
		return nil, notFound(err, "transaction")
	}
	return s.settle(ctx, rec)
}

// VerifyAndSettleFor is VerifyAndSettle for an authenticated caller; the
// reference must belong to accountID.
func (s *PaymentService) VerifyAndSettleFor(ctx context.Context, accountID, reference string) (*Settlement, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, invalidInput("reference is required")
	}

	rec, err := s.transactions.GetByReference(ctx, reference)
	if err != nil {
		return nil, notFound(err, "transaction")
	}
	if rec.AccountID != accountID {
		return nil, fmt.Errorf("transaction: %w", ErrNotFound)
	}
	return s.settle(ctx, rec)
}

func (s *PaymentService) settle(ctx context.Context, rec *model.Transaction) (*Settlement, error) {
	if rec.Kind != model.KindDeposit {
		return nil, invalidInput("reference %s is not a deposit", *rec.Reference)
	}
	switch rec.Status {
	case model.StatusCompleted:
		return &Settlement{Transaction: rec, AlreadySettled: true}, nil
	case model.StatusFailed:
		return &Settlement{Transaction: rec}, nil
	}

	v, err := s.provider.Verify(ctx, *rec.Reference)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	switch v.Status {
	case payment.StatusSuccess:
		return s.completeDeposit(ctx, rec, v)
	case payment.StatusFailed:
		return s.failDeposit(ctx, rec)
	default:
		return &Settlement{Transaction: rec}, nil
	}
}

func (s *PaymentService) completeDeposit(ctx context.Context, rec *model.Transaction, v *payment.Verification) (*Settlement, error) {
	if !v.Amount.IsZero() && !v.Amount.Equal(rec.Amount) {
		// The recorded amount is what the payer was asked for; credit that.
		log.Warn().
			Str("reference", *rec.Reference).
			Str("recorded", rec.Amount.StringFixed(2)).
			Str("reported", v.Amount.String()).
			Msg("Provider amount differs from recorded deposit")
	}

	s.locks.Lock(rec.AccountID)
	defer s.locks.Unlock(rec.AccountID)

	var out Settlement
	err := db.WithTx(ctx, s.txb, func(tx pgx.Tx) error {
		transactions := s.transactions.WithTx(tx)

		current, err := transactions.GetByIDForUpdate(ctx, rec.ID)
		if err != nil {
			return notFound(err, "transaction")
		}
		if current.Status != model.StatusPending {
			out = Settlement{Transaction: current, AlreadySettled: current.Status == model.StatusCompleted}
			return nil
		}

		done, err := transactions.TransitionStatus(ctx, rec.ID, model.StatusPending, model.StatusCompleted)
		if err != nil {
			return err
		}
		acc, err := s.accounts.WithTx(tx).AddBalance(ctx, rec.AccountID, rec.Amount)
		if err != nil {
			return notFound(err, "account")
		}
		out = Settlement{Transaction: done, Balance: &acc.Balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !out.AlreadySettled && out.Transaction.Status == model.StatusCompleted {
		metrics.RecordSettlement(string(model.KindDeposit), string(model.StatusCompleted))
		log.Info().
			Str("account_id", rec.AccountID).
			Str("reference", *rec.Reference).
			Str("amount", rec.Amount.StringFixed(2)).
			Msg("Deposit settled")
	}
	return &out, nil
}

func (s *PaymentService) failDeposit(ctx context.Context, rec *model.Transaction) (*Settlement, error) {
	failed, err := s.transactions.TransitionStatus(ctx, rec.ID, model.StatusPending, model.StatusFailed)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			current, getErr := s.transactions.GetByID(ctx, rec.ID)
			if getErr != nil {
				return nil, notFound(getErr, "transaction")
			}
			return &Settlement{Transaction: current, AlreadySettled: current.Status == model.StatusCompleted}, nil
		}
		return nil, fmt.Errorf("failed to mark deposit failed: %w", err)
	}

	metrics.RecordSettlement(string(model.KindDeposit), string(model.StatusFailed))
	log.Info().Str("reference", *rec.Reference).Msg("Deposit failed at provider")
	return &Settlement{Transaction: failed}, nil
}

// InitiateWithdrawal records a pending withdrawal after checking that the
// balance covers it. No money moves until an administrator approves it.
func (s *PaymentService) InitiateWithdrawal(ctx context.Context, accountID string, amount decimal.Decimal) (*model.Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, notFound(err, "account")
	}
	if acc.Balance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	ref := withdrawalRefPrefix + uuid.NewString()
	tx, err := s.transactions.Create(ctx, &model.Transaction{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Kind:        model.KindWithdrawal,
		Amount:      amount.Neg(),
		Status:      model.StatusPending,
		Description: "Withdrawal request",
		Reference:   &ref,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record withdrawal: %w", err)
	}

	metrics.RecordWithdrawalRequested()
	log.Info().
		Str("account_id", accountID).
		Str("reference", ref).
		Str("amount", amount.StringFixed(2)).
		Msg("Withdrawal requested")

	return tx, nil
}

// SettleWithdrawal approves or rejects a pending withdrawal. Approval debits
// the balance in the same atomic unit as the status transition.
func (s *PaymentService) SettleWithdrawal(ctx context.Context, adminID, transactionID string, approve bool) (*model.Transaction, error) {
	if err := requireAdmin(ctx, s.accounts, adminID); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(transactionID); err != nil {
		return nil, fmt.Errorf("transaction: %w", ErrNotFound)
	}

	rec, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return nil, notFound(err, "transaction")
	}
	if rec.Kind != model.KindWithdrawal {
		return nil, invalidInput("transaction %s is not a withdrawal", transactionID)
	}

	s.locks.Lock(rec.AccountID)
	defer s.locks.Unlock(rec.AccountID)

	var settled *model.Transaction
	err = db.WithTx(ctx, s.txb, func(tx pgx.Tx) error {
		transactions := s.transactions.WithTx(tx)
		accounts := s.accounts.WithTx(tx)

		current, err := transactions.GetByIDForUpdate(ctx, transactionID)
		if err != nil {
			return notFound(err, "transaction")
		}
		if current.Status.Terminal() {
			return invalidInput("withdrawal already %s", current.Status)
		}

		if !approve {
			settled, err = transactions.TransitionStatus(ctx, transactionID, model.StatusPending, model.StatusFailed)
			return err
		}

		acc, err := accounts.GetForUpdate(ctx, current.AccountID)
		if err != nil {
			return notFound(err, "account")
		}
		debit := current.Amount.Abs()
		if acc.Balance.LessThan(debit) {
			return ErrInsufficientFunds
		}
		if _, err := accounts.AddBalance(ctx, current.AccountID, debit.Neg()); err != nil {
			if errors.Is(err, repository.ErrNegativeBalance) {
				return ErrInsufficientFunds
			}
			return err
		}
		settled, err = transactions.TransitionStatus(ctx, transactionID, model.StatusPending, model.StatusCompleted)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordSettlement(string(model.KindWithdrawal), string(settled.Status))
	log.Info().
		Str("admin_id", adminID).
		Str("transaction_id", transactionID).
		Str("status", string(settled.Status)).
		Msg("Withdrawal settled")

	return settled, nil
}

// PendingWithdrawals lists withdrawals awaiting a decision, oldest first,
// for adminID, who must be an administrator.
func (s *PaymentService) PendingWithdrawals(ctx context.Context, adminID string, limit int) ([]*model.Transaction, error) {
	if err := requireAdmin(ctx, s.accounts, adminID); err != nil {
		return nil, err
	}
	return s.transactions.ListPending(ctx, model.KindWithdrawal, clampLimit(limit))
}

// History returns the account's deposits and withdrawals newest first.
func (s *PaymentService) History(ctx context.Context, accountID string, limit, offset int) ([]*model.Transaction, error) {
	if offset < 0 {
		return nil, invalidInput("offset must not be negative")
	}
	return s.transactions.ListByAccount(ctx, accountID, clampLimit(limit), offset, model.KindDeposit, model.KindWithdrawal)
}

// requireAdmin fails with ErrPermissionDenied unless accountID is an
// administrator account.
func requireAdmin(ctx context.Context, accounts *repository.AccountRepository, accountID string) error {
	acc, err := accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrPermissionDenied
		}
		return fmt.Errorf("failed to check admin capability: %w", err)
	}
	if !acc.IsAdmin {
		return ErrPermissionDenied
	}
	return nil
}
