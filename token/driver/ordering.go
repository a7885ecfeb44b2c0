/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// FinalityStatus is the status of a transaction as seen by the ordering authority
type FinalityStatus int

const (
	// Unknown is the status of a transaction the authority has never accepted nor rejected
	Unknown FinalityStatus = iota
	// Finalized is the status of a transaction committed to the ledger
	Finalized
	// Rejected is the status of a transaction the authority refused
	Rejected
)

var statusNames = map[FinalityStatus]string{
	Unknown:   "Unknown",
	Finalized: "Finalized",
	Rejected:  "Rejected",
}

func (s FinalityStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("FinalityStatus(%d)", int(s))
}

// ErrRejected signals that the ordering authority refused a transaction
var ErrRejected = errors.New("transaction rejected")

// RejectionError carries the reason the ordering authority refused a transaction.
// It matches ErrRejected and unwraps to the cause, if any.
type RejectionError struct {
	TxID   string
	Reason string
	Cause  error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("transaction [%s] rejected: %s", e.TxID, e.Reason)
}

func (e *RejectionError) Is(target error) bool {
	return target == ErrRejected
}

func (e *RejectionError) Unwrap() error {
	return e.Cause
}

// OrderingService models the ordering authority as seen by a party
type OrderingService interface {
	// Submit hands a fully signed transaction to the authority and returns the receipt once the transaction is final.
	// Submitting an already finalized transaction returns the existing receipt.
	// A refusal is reported with an error matching ErrRejected.
	Submit(ctx context.Context, tx *SignedTransaction) (*Receipt, error)
	// Status returns what the authority knows about the passed transaction.
	// The receipt is returned when the status is Finalized.
	Status(ctx context.Context, txID string) (FinalityStatus, *Receipt, error)
}
