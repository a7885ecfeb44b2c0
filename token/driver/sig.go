/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/
package driver

import "context"

// Signer signs messages on behalf of an identity
type Signer interface {
	// Sign signs the passed message
	Sign(message []byte) ([]byte, error)
}

// Verifier checks signatures produced by an identity
type Verifier interface {
	// Verify returns nil if sigma is a valid signature of message
	Verify(message, sigma []byte) error
}

// VerifierProvider returns verifiers for identities
type VerifierProvider interface {
	// GetVerifier returns a Verifier for the passed identity
	GetVerifier(ctx context.Context, id Identity) (Verifier, error)
}

// SigService models the identity and key management service
type SigService interface {
	VerifierProvider
	// GetSigner returns a Signer for the passed identity, if the identity is local
	GetSigner(ctx context.Context, id Identity) (Signer, error)
	// IsMe returns true if a signer is available for the passed identity
	IsMe(ctx context.Context, id Identity) bool
}
