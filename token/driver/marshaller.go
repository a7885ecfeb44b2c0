/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver

import (
	"bytes"
	"encoding/hex"
	"sort"

	"github.com/hyperledger-labs/token-issuance-sdk/token/encoding/json"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
	"google.golang.org/protobuf/encoding/protowire"
)

// field numbers of the canonical representation
const (
	txNonceField   protowire.Number = 1
	txInputField   protowire.Number = 2
	txOutputField  protowire.Number = 3
	txCommandField protowire.Number = 4
	txNotaryField  protowire.Number = 5

	cmdTypeField   protowire.Number = 1
	cmdSignerField protowire.Number = 2

	stxTransactionField protowire.Number = 1
	stxSignatureField   protowire.Number = 2

	sigSignerField protowire.Number = 1
	sigValueField  protowire.Number = 2
)

// MarshalToSign returns the canonical representation of the transaction.
// This is the message every signer signs. The ID is not part of it, the ID is derived from it.
func (t *Transaction) MarshalToSign() ([]byte, error) {
	if t == nil {
		return nil, errors.New("nil transaction")
	}
	var raw []byte
	raw = protowire.AppendTag(raw, txNonceField, protowire.BytesType)
	raw = protowire.AppendString(raw, t.Nonce)
	for _, input := range t.Inputs {
		raw = protowire.AppendTag(raw, txInputField, protowire.BytesType)
		raw = protowire.AppendBytes(raw, input.AppendCanonical(nil))
	}
	for _, output := range t.Outputs {
		raw = protowire.AppendTag(raw, txOutputField, protowire.BytesType)
		raw = protowire.AppendBytes(raw, output.AppendCanonical(nil))
	}
	var cmd []byte
	cmd = protowire.AppendTag(cmd, cmdTypeField, protowire.BytesType)
	cmd = protowire.AppendString(cmd, string(t.Command.Type))
	for _, signer := range t.Command.Signers {
		cmd = protowire.AppendTag(cmd, cmdSignerField, protowire.BytesType)
		cmd = protowire.AppendBytes(cmd, signer)
	}
	raw = protowire.AppendTag(raw, txCommandField, protowire.BytesType)
	raw = protowire.AppendBytes(raw, cmd)
	raw = protowire.AppendTag(raw, txNotaryField, protowire.BytesType)
	raw = protowire.AppendBytes(raw, t.Notary)
	return raw, nil
}

// ComputeID returns the ID of the transaction as a function of its content
func (t *Transaction) ComputeID() (string, error) {
	raw, err := t.MarshalToSign()
	if err != nil {
		return "", err
	}
	return TxIDFromBytes(raw), nil
}

// CheckID returns an error if the ID of the transaction does not match its content
func (t *Transaction) CheckID() error {
	id, err := t.ComputeID()
	if err != nil {
		return err
	}
	if id != t.ID {
		return errors.Errorf("transaction id [%s] does not match content [%s]", t.ID, id)
	}
	return nil
}

// TxIDFromBytes hashes the canonical representation of a transaction into its ID
func TxIDFromBytes(raw []byte) string {
	h := sha3.Sum256(raw)
	return hex.EncodeToString(h[:])
}

func (t *Transaction) Bytes() ([]byte, error) {
	return json.Marshal(t)
}

func (t *Transaction) FromBytes(raw []byte) error {
	return json.Unmarshal(raw, t)
}

// SortSignatures orders the signatures by signer
func SortSignatures(signatures []*Signature) {
	sort.Slice(signatures, func(i, j int) bool {
		return bytes.Compare(signatures[i].Signer, signatures[j].Signer) < 0
	})
}

// MarshalToAttest returns the canonical representation of the signed transaction.
// This is the message the notary signs when it attests finality.
func (s *SignedTransaction) MarshalToAttest() ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil signed transaction")
	}
	txRaw, err := s.Transaction.MarshalToSign()
	if err != nil {
		return nil, err
	}
	signatures := append([]*Signature(nil), s.Signatures...)
	SortSignatures(signatures)

	var raw []byte
	raw = protowire.AppendTag(raw, stxTransactionField, protowire.BytesType)
	raw = protowire.AppendBytes(raw, txRaw)
	for _, sig := range signatures {
		var sigRaw []byte
		sigRaw = protowire.AppendTag(sigRaw, sigSignerField, protowire.BytesType)
		sigRaw = protowire.AppendBytes(sigRaw, sig.Signer)
		sigRaw = protowire.AppendTag(sigRaw, sigValueField, protowire.BytesType)
		sigRaw = protowire.AppendBytes(sigRaw, sig.Value)
		raw = protowire.AppendTag(raw, stxSignatureField, protowire.BytesType)
		raw = protowire.AppendBytes(raw, sigRaw)
	}
	return raw, nil
}

func (s *SignedTransaction) Bytes() ([]byte, error) {
	return json.Marshal(s)
}

func (s *SignedTransaction) FromBytes(raw []byte) error {
	return json.Unmarshal(raw, s)
}

func (r *Receipt) Bytes() ([]byte, error) {
	return json.Marshal(r)
}

func (r *Receipt) FromBytes(raw []byte) error {
	if err := json.Unmarshal(raw, r); err != nil {
		return err
	}
	if r.Transaction == nil || r.Transaction.Transaction == nil || r.Attestation == nil {
		return errors.New("incomplete receipt")
	}
	return nil
}
