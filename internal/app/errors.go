/**
 * @description
 * This file defines the error taxonomy surfaced by the transfer orchestrator.
 * Callers are expected to branch on these with errors.Is / errors.As rather
 * than matching strings; every failure mode of the saga maps to exactly one
 * of them.
 */

package app

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation covers malformed, missing or non-positive input. Nothing
	// was attempted upstream and no ledger record exists.
	ErrValidation = errors.New("invalid transfer request")

	// ErrInsufficientFunds means the sender's balance did not cover the amount
	// at check time. No mutation was attempted and no ledger record exists.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrRateLimited means the sender exceeded the configured transfer rate.
	ErrRateLimited = errors.New("transfer rate limit exceeded")
)

// ParticipantRole identifies which side of a transfer an error refers to.
type ParticipantRole string

const (
	RoleSender   ParticipantRole = "sender"
	RoleReceiver ParticipantRole = "receiver"
	// RoleParticipant is used by history lookups, where the account is not
	// tied to one side of a transfer.
	RoleParticipant ParticipantRole = "participant"
)

// ParticipantNotFoundError means the sender or receiver could not be resolved
// by the account service. No balance mutation was attempted and no ledger
// record exists.
type ParticipantNotFoundError struct {
	Role      ParticipantRole
	AccountID string
}

func (e *ParticipantNotFoundError) Error() string {
	return fmt.Sprintf("%s account %s not found", e.Role, e.AccountID)
}

// SagaStep identifies the balance mutation during which an upstream call failed.
type SagaStep string

const (
	StepDebit  SagaStep = "debit"
	StepCredit SagaStep = "credit"
)

// UpstreamError means an account service call failed or timed out mid-saga.
// A failed ledger record was written (best effort) before this was returned.
// Compensated is meaningful only for the credit step: it reports whether the
// compensating credit back to the sender succeeded. When Step is credit and
// Compensated is false, money has left the sender with no matching credit and
// the ledgers require reconciliation.
type UpstreamError struct {
	Step        SagaStep
	Compensated bool
	Err         error
}

func (e *UpstreamError) Error() string {
	if e.Step == StepCredit {
		return fmt.Sprintf("account service %s failed (compensated=%t): %v", e.Step, e.Compensated, e.Err)
	}
	return fmt.Sprintf("account service %s failed: %v", e.Step, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PersistenceError means the ledger write itself failed. Upstream balances may
// already have been mutated; the attempt has no durable audit record.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ledger write failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
