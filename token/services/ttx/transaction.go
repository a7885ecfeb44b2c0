/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/pkg/errors"
)

type (
	Identity          = driver.Identity
	Transaction       = driver.Transaction
	SignedTransaction = driver.SignedTransaction
	Signature         = driver.Signature
	Attestation       = driver.Attestation
	Receipt           = driver.Receipt
)

// NewTransaction assembles a transaction and derives its ID from the content
func NewTransaction(nonce string, inputs []token.ID, outputs []token.Record, command driver.Command, notary Identity) (*Transaction, error) {
	tx := &Transaction{
		Nonce:   nonce,
		Inputs:  inputs,
		Outputs: outputs,
		Command: command,
		Notary:  notary,
	}
	id, err := tx.ComputeID()
	if err != nil {
		return nil, errors.WithMessagef(err, "failed computing transaction id")
	}
	tx.ID = id
	return tx, nil
}
