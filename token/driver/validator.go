/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package driver

import "context"

// Validator models the rule engine every party runs before endorsing or finalizing a transaction
type Validator interface {
	// Verify checks the shape of the transaction against the rules of its command
	Verify(ctx context.Context, tx *Transaction) error
	// VerifySignatures checks that every required signer, and only them, signed the transaction
	VerifySignatures(ctx context.Context, tx *SignedTransaction, vp VerifierProvider) error
}
