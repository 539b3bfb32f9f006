/**
 * @description
 * This file contains the core business logic for the transfer-service. The
 * `Service` struct orchestrates the transfer saga, coordinating between the
 * transaction ledger, the account-of-record service, and the message broker.
 *
 * Key features:
 * - Implements the transfer saga: validate, resolve participants, check funds,
 *   debit, credit, compensate on partial failure, durably record the outcome.
 * - Every attempt that reaches the balance-mutation phase leaves exactly one
 *   ledger record, completed or failed, so the ledger is a complete audit
 *   trail of money that may have moved.
 * - Publishes outcome events to RabbitMQ for asynchronous consumers; event
 *   delivery never influences the saga result.
 *
 * @dependencies
 * - github.com/shopspring/decimal: Exact decimal arithmetic for amounts.
 * - internal/domain, internal/store: Domain models and ledger access.
 * - pkg/accountclient, pkg/rabbitmq: External service communication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/instapay/transfer-service/internal/domain"
	"github.com/instapay/transfer-service/internal/store"
	"github.com/instapay/transfer-service/pkg/accountclient"
	"github.com/instapay/transfer-service/pkg/rabbitmq"
)

const (
	// EventsExchange is the topic exchange transfer outcome events are published to.
	EventsExchange = "instapay.events"

	transferRateLimitScope  = "transfer_create"
	transferRateLimitWindow = time.Minute
)

// AccountGateway is the contract the saga needs from the account-of-record
// service: fetch a view of an account and apply a signed balance delta. The
// upstream offers no idempotency key, so implementations must not retry.
type AccountGateway interface {
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ApplyBalanceDelta(ctx context.Context, id string, delta decimal.Decimal) error
}

// RateLimiter is the optional per-sender throttle on transfer creation.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for transfers. It holds no mutable
// state of its own; all fields are concurrency-safe shared handles, so one
// Service serves concurrent invocations.
type Service struct {
	ledger    store.Ledger
	gateway   AccountGateway
	publisher rabbitmq.Publisher

	rateLimiter       RateLimiter
	transferRateLimit int
}

// NewService creates a new transfer service instance. The publisher may be nil
// when no broker is configured.
func NewService(ledger store.Ledger, gateway AccountGateway, publisher rabbitmq.Publisher) *Service {
	return &Service{
		ledger:    ledger,
		gateway:   gateway,
		publisher: publisher,
	}
}

// SetRateLimiter enables per-sender throttling of transfer creation. A nil
// limiter or non-positive limit disables it.
func (s *Service) SetRateLimiter(limiter RateLimiter, perMinute int) {
	s.rateLimiter = limiter
	s.transferRateLimit = perMinute
}

// CreateTransfer attempts to move amount from sender to receiver.
//
// The flow is fully synchronous: validate, resolve both participants, check
// funds, debit the sender, credit the receiver, and persist the outcome. A
// failed credit triggers exactly one compensating credit back to the sender.
// Pre-attempt failures (validation, resolution, funds) leave no ledger record;
// once a balance mutation has been attempted the outcome is always recorded.
//
// There is deliberately no serialization across concurrent transfers sharing a
// sender: two invocations can both pass the funds check against the same
// pre-debit balance and drive it negative. The upstream contract has no
// locking or idempotency support, so this race is documented rather than
// papered over.
func (s *Service) CreateTransfer(ctx context.Context, req domain.CreateTransferRequest) (*domain.Transaction, error) {
	senderID := strings.TrimSpace(req.SenderID)
	receiverID := strings.TrimSpace(req.ReceiverID)

	// 1. Validate. Violations are local: nothing was attempted upstream.
	if senderID == "" || receiverID == "" {
		return nil, fmt.Errorf("%w: sender_id and receiver_id are required", ErrValidation)
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("%w: sender and receiver must differ", ErrValidation)
	}
	if strings.TrimSpace(req.Amount.String()) == "" {
		return nil, fmt.Errorf("%w: amount is required", ErrValidation)
	}
	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount format", ErrValidation)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	if err := s.consumeTransferRateLimit(ctx, senderID); err != nil {
		return nil, err
	}

	// 2. Resolve sender.
	sender, err := s.gateway.GetAccount(ctx, senderID)
	if err != nil {
		if errors.Is(err, accountclient.ErrAccountNotFound) {
			return nil, &ParticipantNotFoundError{Role: RoleSender, AccountID: senderID}
		}
		return nil, fmt.Errorf("resolve sender: %w", err)
	}

	// 3. Resolve receiver.
	if _, err := s.gateway.GetAccount(ctx, receiverID); err != nil {
		if errors.Is(err, accountclient.ErrAccountNotFound) {
			return nil, &ParticipantNotFoundError{Role: RoleReceiver, AccountID: receiverID}
		}
		return nil, fmt.Errorf("resolve receiver: %w", err)
	}

	// 4. Funds check. Not atomic with the debit below; see the note above.
	if sender.Balance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	// 5. Construct the pending record. From here on every outcome is recorded.
	tx := domain.NewTransaction(senderID, receiverID, amount, req.Description)

	// 6. Debit the sender.
	if err := s.gateway.ApplyBalanceDelta(ctx, senderID, amount.Neg()); err != nil {
		log.Printf("level=error component=transfer msg=\"debit failed\" tx_id=%s sender_id=%s err=%v", tx.ID, senderID, err)
		s.recordFailure(ctx, tx)
		return nil, &UpstreamError{Step: StepDebit, Err: err}
	}

	// 7. Credit the receiver; compensate the sender if it fails.
	if err := s.gateway.ApplyBalanceDelta(ctx, receiverID, amount); err != nil {
		log.Printf("level=error component=transfer msg=\"credit failed; compensating sender\" tx_id=%s receiver_id=%s err=%v", tx.ID, receiverID, err)

		compensated := true
		if compErr := s.gateway.ApplyBalanceDelta(ctx, senderID, amount); compErr != nil {
			compensated = false
			// The sender was debited and neither leg can be undone from here.
			// The failed ledger record below is the reconciliation signal.
			log.Printf("level=critical component=transfer msg=\"compensation failed; ledgers inconsistent\" tx_id=%s sender_id=%s amount=%s err=%v",
				tx.ID, senderID, amount, compErr)
		}

		s.recordFailure(ctx, tx)
		return nil, &UpstreamError{Step: StepCredit, Compensated: compensated, Err: err}
	}

	// 8. Finalize.
	if err := tx.MarkCompleted(); err != nil {
		return nil, err
	}
	if err := s.ledger.Insert(ctx, tx); err != nil {
		// Balances have already moved; surface the write failure so the caller
		// knows the attempt has no durable record.
		log.Printf("level=error component=transfer msg=\"ledger write failed for completed transfer\" tx_id=%s err=%v", tx.ID, err)
		return nil, &PersistenceError{Err: err}
	}

	s.publishOutcome(ctx, tx)
	return tx, nil
}

// GetTransfer returns the stored snapshot for a transaction id. Reads never
// mutate the record.
func (s *Service) GetTransfer(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	id := strings.TrimSpace(transactionID)
	if id == "" {
		return nil, fmt.Errorf("%w: transaction id is required", ErrValidation)
	}
	return s.ledger.FindByID(ctx, id)
}

// GetParticipantTransfers returns every ledger record where the account is
// sender or receiver. The existence check is delegated to the account service;
// an empty history for a known account is a valid result.
func (s *Service) GetParticipantTransfers(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	id := strings.TrimSpace(accountID)
	if id == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrValidation)
	}

	if _, err := s.gateway.GetAccount(ctx, id); err != nil {
		if errors.Is(err, accountclient.ErrAccountNotFound) {
			return nil, &ParticipantNotFoundError{Role: RoleParticipant, AccountID: id}
		}
		return nil, fmt.Errorf("resolve participant: %w", err)
	}

	return s.ledger.FindByParticipant(ctx, id)
}

// recordFailure marks the record failed and persists it. The write is best
// effort: a persistence failure here is logged but does not mask the upstream
// error that ended the saga.
func (s *Service) recordFailure(ctx context.Context, tx *domain.Transaction) {
	if err := tx.MarkFailed(); err != nil {
		log.Printf("level=error component=transfer msg=\"invalid status transition on failure path\" tx_id=%s err=%v", tx.ID, err)
		return
	}
	if err := s.ledger.Insert(ctx, tx); err != nil {
		log.Printf("level=error component=transfer msg=\"ledger write failed for failed transfer\" tx_id=%s err=%v", tx.ID, err)
		return
	}
	s.publishOutcome(ctx, tx)
}

// publishOutcome emits a terminal-status event. Fire and forget.
func (s *Service) publishOutcome(ctx context.Context, tx *domain.Transaction) {
	if s.publisher == nil {
		return
	}
	event := domain.TransferOutcomeEvent{
		TransactionID: tx.ID,
		SenderID:      tx.SenderID,
		ReceiverID:    tx.ReceiverID,
		Amount:        tx.Amount,
		Status:        tx.Status,
		Timestamp:     tx.CreatedAt,
	}
	routingKey := "transfer." + string(tx.Status)
	if err := s.publisher.Publish(ctx, EventsExchange, routingKey, event); err != nil {
		log.Printf("level=warn component=transfer msg=\"outcome event publish failed\" tx_id=%s routing_key=%s err=%v", tx.ID, routingKey, err)
	}
}

func (s *Service) consumeTransferRateLimit(ctx context.Context, senderID string) error {
	if s.rateLimiter == nil || s.transferRateLimit <= 0 {
		return nil
	}
	count, retryAfter, err := s.rateLimiter.ConsumeRateLimit(ctx, transferRateLimitScope, senderID, s.transferRateLimit, transferRateLimitWindow)
	if err != nil {
		// Fail open: the limiter is protective plumbing, not a correctness gate.
		log.Printf("level=warn component=transfer msg=\"rate limiter unavailable; allowing request\" sender_id=%s err=%v", senderID, err)
		return nil
	}
	if count > s.transferRateLimit {
		return fmt.Errorf("%w: retry in %ds", ErrRateLimited, retryAfter)
	}
	return nil
}
