/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver

import (
	"context"

	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/pkg/errors"
)

var (
	// ErrAlreadyRecorded signals that a receipt for the same transaction is already in storage
	ErrAlreadyRecorded = errors.New("transaction already recorded")
	// ErrInputConsumed signals that an input has already been consumed by a finalized transaction
	ErrInputConsumed = errors.New("input already consumed")
	// ErrRecordNotFound signals that no finalized transaction created the requested record
	ErrRecordNotFound = errors.New("record not found")
)

// Ledger models the storage of finalized transactions and the records they create and consume
type Ledger interface {
	// RecordFinalized atomically stores the receipt, the records created by the transaction,
	// and marks its inputs as consumed.
	// It returns ErrAlreadyRecorded if the transaction has been recorded before, leaving storage unchanged,
	// and ErrInputConsumed if any input has already been consumed.
	RecordFinalized(ctx context.Context, receipt *Receipt) error
	// IsConsumed returns true if a finalized transaction consumed the passed record
	IsConsumed(ctx context.Context, id token.ID) (bool, error)
	// Lookup returns the record with the passed reference, or ErrRecordNotFound
	Lookup(ctx context.Context, id token.ID) (*token.Record, error)
	// GetReceipt returns the receipt of the passed transaction, nil if unknown
	GetReceipt(ctx context.Context, txID string) (*Receipt, error)
	// Close releases the resources held by the ledger
	Close() error
}
