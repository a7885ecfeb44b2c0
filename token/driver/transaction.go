/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver

import (
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
)

// Identity represents a generic identity
type Identity = token.Identity

// CommandType tags the operation a transaction performs.
// Each command type has its own set of verification rules.
type CommandType string

const (
	// Issue creates new value owned by a counterparty
	Issue CommandType = "Issue"
)

// Command is the operation carried by a transaction together with the identities that must sign it
type Command struct {
	// Type is the operation
	Type CommandType `json:"type"`
	// Signers are the identities whose signature is required before the transaction can be finalized.
	// The set is fixed when the transaction is built.
	Signers []Identity `json:"signers"`
}

// HasSigner returns true if id is a required signer of this command
func (c *Command) HasSigner(id Identity) bool {
	for _, signer := range c.Signers {
		if signer.Equal(id) {
			return true
		}
	}
	return false
}

// Transaction is a proposed ledger update.
// Its ID is derived from its content, therefore any change to the content after
// the transaction has been built is detectable by recomputing the ID.
type Transaction struct {
	// ID is the hex encoding of the hash of the canonical representation of the transaction
	ID string `json:"id"`
	// Nonce makes every built transaction unique, even when the rest of the content repeats
	Nonce string `json:"nonce"`
	// Inputs are references to the records consumed by this transaction
	Inputs []token.ID `json:"inputs"`
	// Outputs are the records created by this transaction
	Outputs []token.Record `json:"outputs"`
	// Command is the operation and its required signers
	Command Command `json:"command"`
	// Notary is the ordering authority that must finalize this transaction
	Notary Identity `json:"notary"`
}

// OutputID returns the reference to the i-th output of this transaction
func (t *Transaction) OutputID(i int) token.ID {
	return token.ID{TxId: t.ID, Index: uint64(i)}
}

// Signature is an endorsement of a transaction
type Signature struct {
	// Signer is the identity that produced the signature
	Signer Identity `json:"signer"`
	// Value is the signature over the canonical representation of the transaction
	Value []byte `json:"value"`
}

// SignedTransaction is a transaction together with the endorsements of its signers.
// Signatures are kept sorted by signer, so that two signed transactions carrying the
// same signature set are equal regardless of the order the signatures were collected.
type SignedTransaction struct {
	Transaction *Transaction `json:"transaction"`
	Signatures  []*Signature `json:"signatures"`
}

// SignatureOf returns the signature produced by the passed identity, if any
func (s *SignedTransaction) SignatureOf(id Identity) ([]byte, bool) {
	for _, sig := range s.Signatures {
		if sig != nil && sig.Signer.Equal(id) {
			return sig.Value, true
		}
	}
	return nil, false
}

// ID returns the ID of the embedded transaction
func (s *SignedTransaction) ID() string {
	if s == nil || s.Transaction == nil {
		return ""
	}
	return s.Transaction.ID
}

// Attestation is the ordering authority's statement that a transaction has been finalized
type Attestation struct {
	// Notary is the identity of the ordering authority
	Notary Identity `json:"notary"`
	// Signature is the notary's signature over the signed transaction
	Signature []byte `json:"signature"`
}

// Receipt is the proof that a transaction has been finalized
type Receipt struct {
	Transaction *SignedTransaction `json:"transaction"`
	Attestation *Attestation       `json:"attestation"`
}

// ID returns the ID of the finalized transaction
func (r *Receipt) ID() string {
	if r == nil {
		return ""
	}
	return r.Transaction.ID()
}
