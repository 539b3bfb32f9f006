/**
 * @description
 * This file provides the PostgreSQL implementation of the `Ledger` interface.
 * It contains the SQL queries for the `transactions` table, which is the audit
 * trail of every attempted transfer.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - github.com/shopspring/decimal: Amounts round-trip through their text form
 *   so NUMERIC values keep full precision.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/instapay/transfer-service/internal/domain"
)

// PostgresLedger is a concrete implementation of the Ledger interface for PostgreSQL.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger creates a new instance of PostgresLedger.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Insert upserts a transaction record by id. The upsert keeps the contract that
// every CreateTransfer attempt yields exactly one ledger row even if the same
// record is written again on a failure path.
func (l *PostgresLedger) Insert(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, sender_id, receiver_id, amount, description, status, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status`

	_, err := l.db.Exec(ctx, query,
		tx.ID, tx.SenderID, tx.ReceiverID, tx.Amount.String(), tx.Description, string(tx.Status), tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
	}
	return nil
}

// FindByID retrieves the stored snapshot for a single transaction.
func (l *PostgresLedger) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `
		SELECT id, sender_id, receiver_id, amount::text, description, status, created_at
		FROM transactions WHERE id = $1`

	tx, err := scanTransaction(l.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// FindByParticipant retrieves every transaction where the account is sender or
// receiver, newest first.
func (l *PostgresLedger) FindByParticipant(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	query := `
		SELECT id, sender_id, receiver_id, amount::text, description, status, created_at
		FROM transactions
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC`

	rows, err := l.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []domain.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	return transactions, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		tx        domain.Transaction
		amountRaw string
		statusRaw string
	)
	if err := row.Scan(&tx.ID, &tx.SenderID, &tx.ReceiverID, &amountRaw, &tx.Description, &statusRaw, &tx.CreatedAt); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(amountRaw)
	if err != nil {
		return nil, fmt.Errorf("transaction %s has malformed amount %q: %w", tx.ID, amountRaw, err)
	}
	tx.Amount = amount
	tx.Status = domain.Status(statusRaw)
	return &tx, nil
}
