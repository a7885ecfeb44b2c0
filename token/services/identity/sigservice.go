/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package identity

import (
	"context"
	"sync"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/logging"
	"github.com/pkg/errors"
)

var logger = logging.MustGetLogger("token-sdk.identity")

// ErrUnknownSigner signals that no signer is bound to an identity
var ErrUnknownSigner = errors.New("unknown signer")

// Service keeps the signers of the local identities and the verifiers of every identity seen so far.
// Verifiers of unknown identities are derived from the public key the identity carries.
type Service struct {
	sync      sync.RWMutex
	signers   map[string]driver.Signer
	verifiers map[string]driver.Verifier
}

func NewService() *Service {
	return &Service{
		signers:   map[string]driver.Signer{},
		verifiers: map[string]driver.Verifier{},
	}
}

// RegisterSigningIdentity binds the signer and the verifier of the passed identity
func (o *Service) RegisterSigningIdentity(id *SigningIdentity) error {
	return o.RegisterSigner(id.Identity, id.Signer, id.Verifier)
}

func (o *Service) RegisterSigner(identity driver.Identity, signer driver.Signer, verifier driver.Verifier) error {
	if signer == nil {
		return errors.New("invalid signer, expected a valid instance")
	}
	idHash := identity.UniqueID()

	o.sync.Lock()
	defer o.sync.Unlock()
	if _, ok := o.signers[idHash]; ok {
		logger.Warnf("another signer bound to [%s], keeping it", identity)
		return nil
	}
	o.signers[idHash] = signer
	if verifier != nil {
		o.verifiers[idHash] = verifier
	}
	logger.Debugf("registered signer for [%s]", identity)
	return nil
}

func (o *Service) IsMe(_ context.Context, identity driver.Identity) bool {
	o.sync.RLock()
	defer o.sync.RUnlock()
	_, ok := o.signers[identity.UniqueID()]
	logger.Debugf("is me [%s]? %v", identity, ok)
	return ok
}

func (o *Service) GetSigner(_ context.Context, identity driver.Identity) (driver.Signer, error) {
	o.sync.RLock()
	defer o.sync.RUnlock()
	signer, ok := o.signers[identity.UniqueID()]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSigner, "no signer for [%s]", identity)
	}
	return signer, nil
}

func (o *Service) GetVerifier(_ context.Context, identity driver.Identity) (driver.Verifier, error) {
	idHash := identity.UniqueID()
	o.sync.RLock()
	v, ok := o.verifiers[idHash]
	o.sync.RUnlock()
	if ok {
		return v, nil
	}

	v, err := NewVerifier(identity)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed getting verifier for [%s]", identity)
	}
	o.sync.Lock()
	defer o.sync.Unlock()
	if existing, ok := o.verifiers[idHash]; ok {
		return existing, nil
	}
	o.verifiers[idHash] = v
	return v, nil
}
