/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"context"

	"github.com/hashicorp/go-uuid"
	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
)

// NonceFunc returns a fresh nonce for every call
type NonceFunc func() (string, error)

// Builder assembles proposed transactions
type Builder struct {
	nonce NonceFunc
}

// NewBuilder returns a builder that draws nonces from random UUIDs
func NewBuilder() *Builder {
	return &Builder{nonce: uuid.GenerateUUID}
}

// NewBuilderWithNonce returns a builder that draws nonces from the passed function
func NewBuilderWithNonce(nonce NonceFunc) *Builder {
	return &Builder{nonce: nonce}
}

// Build returns a transaction issuing amount units from issuer to owner, to be finalized by notary.
// The transaction has no inputs, one output, and requires the signatures of the issuer and the owner.
// A negative amount fails with ErrInvalidAmount, a zero amount is left to the rule engine.
func (b *Builder) Build(ctx context.Context, issuer, owner Identity, amount int64, notary Identity) (*Transaction, error) {
	if amount < 0 {
		return nil, errors.Wrapf(ErrInvalidAmount, "negative amount [%d]", amount)
	}
	if issuer.IsNone() || owner.IsNone() {
		return nil, errors.Wrapf(ErrInvalidInput, "issuer and owner must be set")
	}
	if notary.IsNone() {
		return nil, errors.Wrapf(ErrInvalidInput, "notary must be set")
	}
	nonce, err := b.nonce()
	if err != nil {
		return nil, errors.Wrapf(err, "failed generating nonce")
	}

	signers := []Identity{issuer}
	if !owner.Equal(issuer) {
		signers = append(signers, owner)
	}
	tx, err := NewTransaction(
		nonce,
		nil,
		[]token.Record{token.NewRecord(issuer, owner, uint64(amount))},
		driver.Command{Type: driver.Issue, Signers: signers},
		notary,
	)
	if err != nil {
		return nil, err
	}
	trace.SpanFromContext(ctx).AddEvent("transaction_built")
	logger.Debugf("built transaction [%s]: issue [%d] from [%s] to [%s] via [%s]", tx.ID, amount, issuer, owner, notary)
	return tx, nil
}
