/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

// SignatureRequest asks Signer to endorse Transaction.
// Signatures carries the endorsements the initiator already produced.
type SignatureRequest struct {
	Transaction *Transaction `json:"transaction"`
	Signer      Identity     `json:"signer"`
	Signatures  []*Signature `json:"signatures"`
}

// SignatureResponse carries the endorsement produced by a responder
type SignatureResponse struct {
	Signer    Identity `json:"signer"`
	Signature []byte   `json:"signature"`
}

// Outcome is the last message of a protocol instance.
// It carries the receipt, when the transaction has been finalized, or the reason the initiator gave up.
type Outcome struct {
	Receipt *Receipt `json:"receipt,omitempty"`
	Abort   string   `json:"abort,omitempty"`
}
