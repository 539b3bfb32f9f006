/**
 * @description
 * This file defines the core domain models for the transfer-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Amounts are carried as `decimal.Decimal` so that monetary values are never
 *   subject to floating-point rounding anywhere between the API and the ledger.
 * - A transaction's status only ever moves forward: pending -> completed or
 *   pending -> failed. The Mark* methods are the only sanctioned way to reach
 *   a terminal status.
 */

package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the closed set of states a transaction record can be in.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Transaction is the ledger record written exactly once per transfer attempt.
// This struct maps directly to the `transactions` table in the database.
type Transaction struct {
	ID          string          `json:"id"`
	SenderID    string          `json:"sender_id"`
	ReceiverID  string          `json:"receiver_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"timestamp"`
}

// NewTransaction builds a pending transaction record with a fresh id and
// creation timestamp. The timestamp is assigned once and never updated.
func NewTransaction(senderID, receiverID string, amount decimal.Decimal, description string) *Transaction {
	return &Transaction{
		ID:          uuid.New().String(),
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Amount:      amount,
		Description: description,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

// MarkCompleted transitions the record from pending to completed.
func (t *Transaction) MarkCompleted() error {
	if t.Status != StatusPending {
		return fmt.Errorf("cannot complete transaction in status %q", t.Status)
	}
	t.Status = StatusCompleted
	return nil
}

// MarkFailed transitions the record from pending to failed.
func (t *Transaction) MarkFailed() error {
	if t.Status != StatusPending {
		return fmt.Errorf("cannot fail transaction in status %q", t.Status)
	}
	t.Status = StatusFailed
	return nil
}

// Terminal reports whether the record has reached one of its final states.
func (t *Transaction) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// Account is the transfer-service's read-only view of an account held by the
// upstream account-of-record service. Balances are never written directly;
// the service only requests signed deltas against them.
type Account struct {
	ID      string          `json:"id"`
	Balance decimal.Decimal `json:"balance"`
}

// CreateTransferRequest is the DTO for incoming transfer API requests. The
// amount is decoded as json.Number so that both numeric and string payloads
// are accepted without any float round-trip.
type CreateTransferRequest struct {
	SenderID    string      `json:"sender_id"`
	ReceiverID  string      `json:"receiver_id"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
}

// TransferOutcomeEvent is the message payload published after a transfer
// reaches a terminal status. Downstream consumers (notifications, reporting)
// subscribe to it; the transfer saga itself never depends on delivery.
type TransferOutcomeEvent struct {
	TransactionID string          `json:"transaction_id"`
	SenderID      string          `json:"sender_id"`
	ReceiverID    string          `json:"receiver_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        Status          `json:"status"`
	Timestamp     time.Time       `json:"timestamp"`
}
