/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/
package token

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ID identifies a token record as a function of the identifier of the transaction
// that created it and its index in that transaction's outputs
type ID struct {
	// TxId is the transaction ID of the transaction that created the record
	TxId string `json:"tx_id"`
	// Index is the index of the record in the transaction that created it
	Index uint64 `json:"index"`
}

func (id ID) String() string {
	return fmt.Sprintf("[%s:%d]", id.TxId, id.Index)
}

// AppendCanonical appends the deterministic encoding of this ID to b
func (id ID) AppendCanonical(b []byte) []byte {
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, id.TxId)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	return protowire.AppendVarint(b, id.Index)
}

// Record is a unit of ownership: Amount units owned by Owner, issued by Issuer.
// Records are values, a transaction never modifies an existing record, it creates new ones.
type Record struct {
	// Issuer is the identity of the party that created the value
	Issuer Identity `json:"issuer"`
	// Owner is the identity of the party that owns the value
	Owner Identity `json:"owner"`
	// Amount is the number of units carried by the record
	Amount uint64 `json:"amount"`
}

// NewRecord returns a new record
func NewRecord(issuer, owner Identity, amount uint64) Record {
	return Record{
		Issuer: append(Identity(nil), issuer...),
		Owner:  append(Identity(nil), owner...),
		Amount: amount,
	}
}

// Equal returns true if the two records carry the same issuer, owner, and amount
func (r Record) Equal(r2 Record) bool {
	return r.Issuer.Equal(r2.Issuer) && r.Owner.Equal(r2.Owner) && r.Amount == r2.Amount
}

// AppendCanonical appends the deterministic encoding of this record to b
func (r Record) AppendCanonical(b []byte) []byte {
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, r.Issuer)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, r.Owner)
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	return protowire.AppendVarint(b, r.Amount)
}

func (r Record) String() string {
	return fmt.Sprintf("{issuer: %s, owner: %s, amount: %d}", r.Issuer, r.Owner, r.Amount)
}
