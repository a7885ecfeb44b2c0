/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"fmt"

	"github.com/hyperledger-labs/token-issuance-sdk/token/validator"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidAmount signals that the requested amount cannot be issued
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrRuleViolation signals that a transaction breaks the rules of its command
	ErrRuleViolation = validator.ErrRuleViolation
	// ErrCounterpartyRejected signals that a required signer declined or answered with invalid data
	ErrCounterpartyRejected = errors.New("counterparty rejected")
	// ErrEndorsementTimeout signals that a required signer did not answer in time or its session failed
	ErrEndorsementTimeout = errors.New("endorsement timeout")
	// ErrFinalizationRejected signals that the ordering authority refused the transaction
	ErrFinalizationRejected = errors.New("finalization rejected")
	// ErrFinalizationUnknown signals that the outcome of finalization could not be determined
	ErrFinalizationUnknown = errors.New("finalization outcome unknown")

	// ErrSignatureConflict signals an attempt to replace the signature of a signer
	ErrSignatureConflict = errors.New("signature conflict")
	// ErrInvalidTransition signals a phase change the state machine does not allow
	ErrInvalidTransition = errors.New("invalid phase transition")
	// ErrInvalidInput signals that the input is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// ProtocolError reports the phase a protocol instance failed in
type ProtocolError struct {
	Phase Phase
	TxID  string
	Err   error
}

func (e *ProtocolError) Error() string {
	if len(e.TxID) == 0 {
		return fmt.Sprintf("failed in phase [%s]: %s", e.Phase, e.Err)
	}
	return fmt.Sprintf("transaction [%s] failed in phase [%s]: %s", e.TxID, e.Phase, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NewProtocolError wraps err, unless it already carries the phase it failed in
func NewProtocolError(phase Phase, txID string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return err
	}
	return &ProtocolError{Phase: phase, TxID: txID, Err: err}
}

// Retryable returns true if a new attempt, with a freshly built transaction, is safe.
// This holds only when a counterparty did not answer in time: no signature set has been submitted.
func Retryable(err error) bool {
	return errors.Is(err, ErrEndorsementTimeout)
}
