package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/karanved/smsledger/internal/common"
	"github.com/karanved/smsledger/internal/model"
)

const transactionColumns = `id, amount, date, merchant_name, category, notes,
	bank, currency, source, type, sender, created_at`

// InsertTransaction saves a single transaction. Inserting an identifier that
// already exists returns common.ErrDuplicateEntry.
func (s *SQLiteStorage) InsertTransaction(ctx context.Context, txn model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(&txn); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, amount, date, merchant_name, category, notes,
			bank, currency, source, type, sender
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		txn.ID,
		txn.Amount.String(),
		txn.Date,
		txn.MerchantName,
		txn.Category,
		txn.Notes,
		txn.Bank,
		txn.Currency,
		string(txn.Source),
		string(txn.Type),
		txn.Sender,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("transaction %s: %w", txn.ID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// GetTransaction retrieves a transaction by its content-derived identifier.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM transactions WHERE id = ?", transactionColumns), id)

	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// ExistsTransaction reports whether a transaction with the given identifier
// is already stored. This is the duplicate check used during scans.
func (s *SQLiteStorage) ExistsTransaction(ctx context.Context, id string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(id, "id"); err != nil {
		return false, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check transaction existence: %w", err)
	}

	return count > 0, nil
}

// ListTransactions returns all stored transactions ordered by date.
func (s *SQLiteStorage) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM transactions ORDER BY date ASC, id ASC", transactionColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTransactions(rows)
}

// ListTransactionsByRange returns transactions with dates inside [from, to].
func (s *SQLiteStorage) ListTransactionsByRange(ctx context.Context, from, to time.Time) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, ErrInvalidDateRange
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM transactions WHERE date >= ? AND date <= ? ORDER BY date ASC, id ASC", transactionColumns),
		from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions by range: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTransactions(rows)
}

// scanner abstracts sql.Row and sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*model.Transaction, error) {
	var txn model.Transaction
	var amount string
	var merchant, category, notes, bank, currency, sender sql.NullString
	var source, txnType string

	err := row.Scan(
		&txn.ID, &amount, &txn.Date, &merchant, &category, &notes,
		&bank, &currency, &source, &txnType, &sender, &txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount %q for transaction %s: %w", amount, txn.ID, err)
	}

	txn.Amount = dec
	txn.MerchantName = merchant.String
	txn.Category = category.String
	txn.Notes = notes.String
	txn.Bank = bank.String
	txn.Currency = currency.String
	txn.Sender = sender.String
	txn.Source = model.Source(source)
	txn.Type = model.TransactionType(txnType)

	return &txn, nil
}

func collectTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txns, nil
}
