/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/pkg/errors"
)

// SigningIdentity bundles an identity with the key material that signs on its behalf
type SigningIdentity struct {
	Identity driver.Identity
	Signer   driver.Signer
	Verifier driver.Verifier
}

// NewSigningIdentity returns an ed25519 signing identity with the passed name.
// The key is derived from the hex encoded seed, a random key is generated when the seed is empty.
func NewSigningIdentity(name string, seed string) (*SigningIdentity, error) {
	if len(name) == 0 {
		return nil, errors.New("identity name is empty")
	}
	var sk ed25519.PrivateKey
	if len(seed) == 0 {
		var err error
		_, sk, err = ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, errors.Wrapf(err, "failed generating key for [%s]", name)
		}
	} else {
		raw, err := hex.DecodeString(seed)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid seed for [%s]", name)
		}
		if len(raw) != ed25519.SeedSize {
			return nil, errors.Errorf("invalid seed for [%s]: expected [%d] bytes, got [%d]", name, ed25519.SeedSize, len(raw))
		}
		sk = ed25519.NewKeyFromSeed(raw)
	}
	pk := sk.Public().(ed25519.PublicKey)
	return &SigningIdentity{
		Identity: token.NewIdentity(name, pk),
		Signer:   &ed25519Signer{sk: sk},
		Verifier: &ed25519Verifier{pk: pk},
	}, nil
}

// NewVerifier returns a verifier for the public key carried by the passed identity
func NewVerifier(id driver.Identity) (driver.Verifier, error) {
	_, pk, err := id.Deserialize()
	if err != nil {
		return nil, errors.WithMessagef(err, "failed deserializing identity")
	}
	if len(pk) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid public key length [%d]", len(pk))
	}
	return &ed25519Verifier{pk: pk}, nil
}

type ed25519Signer struct {
	sk ed25519.PrivateKey
}

func (s *ed25519Signer) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(s.sk, message), nil
}

type ed25519Verifier struct {
	pk ed25519.PublicKey
}

func (v *ed25519Verifier) Verify(message, sigma []byte) error {
	if !ed25519.Verify(v.pk, message, sigma) {
		return errors.New("invalid signature")
	}
	return nil
}
