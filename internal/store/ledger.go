/**
 * @description
 * This file defines the `Ledger` interface, which specifies the contract for
 * persisting and querying transaction records. By defining an interface, we
 * decouple the transfer orchestration logic from the specific database
 * implementation (PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context: Standard Go library.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"

	"github.com/instapay/transfer-service/internal/domain"
)

// ErrTransactionNotFound is returned by point lookups for unknown ids.
var ErrTransactionNotFound = errors.New("transaction not found")

// Ledger defines the set of methods for interacting with the transaction store.
// Implementations must be safe for concurrent use; the orchestrator shares one
// handle across invocations.
type Ledger interface {
	// Insert durably writes a transaction record, upserting by id.
	Insert(ctx context.Context, tx *domain.Transaction) error
	// FindByID returns the stored snapshot for a transaction id, or
	// ErrTransactionNotFound.
	FindByID(ctx context.Context, id string) (*domain.Transaction, error)
	// FindByParticipant returns every record where the given account id is
	// sender or receiver, in the ledger's native order. An empty result is
	// valid and not an error.
	FindByParticipant(ctx context.Context, accountID string) ([]domain.Transaction, error)
}
