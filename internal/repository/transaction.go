package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bingo-ledger/internal/model"
	"bingo-ledger/internal/pkg/db"
)

// ErrDuplicateReference is returned when a provider reference is reused.
var ErrDuplicateReference = errors.New("transaction reference already exists")

const transactionColumns = `id, account_id, kind, amount, status, description, reference,
	counterparty_account_id, paired_transaction_id, payment_method, created_at, settled_at`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var tx model.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.AccountID,
		&tx.Kind,
		&tx.Amount,
		&tx.Status,
		&tx.Description,
		&tx.Reference,
		&tx.CounterpartyAccountID,
		&tx.PairedTransactionID,
		&tx.PaymentMethod,
		&tx.CreatedAt,
		&tx.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func collectTransactions(rows pgx.Rows) ([]*model.Transaction, error) {
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// TransactionRepository is the append-only ledger of account movements.
// Records are never updated except for one guarded status transition.
type TransactionRepository struct {
	q db.Querier
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(q db.Querier) *TransactionRepository {
	return &TransactionRepository{q: q}
}

// WithTx returns a copy of the repository bound to tx.
func (r *TransactionRepository) WithTx(tx pgx.Tx) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Create appends a record. The caller assigns the ID so that paired records
// can reference each other before either is written.
func (r *TransactionRepository) Create(ctx context.Context, t *model.Transaction) (*model.Transaction, error) {
	if err := model.Validate(t); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO transactions (id, account_id, kind, amount, status, description, reference,
			counterparty_account_id, paired_transaction_id, payment_method, created_at, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(),
			CASE WHEN $11::boolean THEN NOW() END)
		RETURNING ` + transactionColumns

	created, err := scanTransaction(r.q.QueryRow(ctx, query,
		t.ID, t.AccountID, t.Kind, t.Amount, t.Status, t.Description, t.Reference,
		t.CounterpartyAccountID, t.PairedTransactionID, t.PaymentMethod, t.Status.Terminal(),
	))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicateReference
		}
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return created, nil
}

// GetByID retrieves a record by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate retrieves a record by ID and locks its row.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, id string) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

// GetByReference retrieves a record by its provider reference.
func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`
	return r.getOne(ctx, query, reference)
}

func (r *TransactionRepository) getOne(ctx context.Context, query string, arg any) (*model.Transaction, error) {
	tx, err := scanTransaction(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// TransitionStatus moves a record from one status to another. The update is
// guarded on the current status, so of two concurrent transitions only one
// succeeds; the other gets ErrStatusConflict.
func (r *TransactionRepository) TransitionStatus(ctx context.Context, id string, from, to model.TransactionStatus) (*model.Transaction, error) {
	if from.Terminal() {
		return nil, fmt.Errorf("cannot transition from terminal status %q", from)
	}

	query := `
		UPDATE transactions
		SET status = $3, settled_at = CASE WHEN $4::boolean THEN NOW() END
		WHERE id = $1 AND status = $2
		RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.q.QueryRow(ctx, query, id, from, to, to.Terminal()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}
	return tx, nil
}

// ListByAccount returns a page of the account's records newest first. When
// kinds is non-empty only those kinds are returned.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int, kinds ...model.TransactionKind) ([]*model.Transaction, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if len(kinds) == 0 {
		query := `SELECT ` + transactionColumns + `
			FROM transactions
			WHERE account_id = $1
			ORDER BY created_at DESC, id
			LIMIT $2 OFFSET $3`
		rows, err = r.q.Query(ctx, query, accountID, limit, offset)
	} else {
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = string(k)
		}
		query := `SELECT ` + transactionColumns + `
			FROM transactions
			WHERE account_id = $1 AND kind = ANY($2)
			ORDER BY created_at DESC, id
			LIMIT $3 OFFSET $4`
		rows, err = r.q.Query(ctx, query, accountID, names, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return collectTransactions(rows)
}

// ListPending returns pending records of the given kind, oldest first.
func (r *TransactionRepository) ListPending(ctx context.Context, kind model.TransactionKind, limit int) ([]*model.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE kind = $1 AND status = 'pending'
		ORDER BY created_at, id
		LIMIT $2`

	rows, err := r.q.Query(ctx, query, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending transactions: %w", err)
	}
	return collectTransactions(rows)
}
