/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package network

import (
	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/utils"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/pkg/errors"
)

// ErrUnknownNotary signals that an identity is not among the trusted notaries
var ErrUnknownNotary = errors.New("unknown notary")

// OrderingServiceFactory connects to the ordering service run by the passed notary
type OrderingServiceFactory func(notary token.Identity) (driver.OrderingService, error)

// Provider gives access to the ordering services of the trusted notaries.
// Connections are created on first use and reused afterwards.
type Provider struct {
	notaries []token.Identity
	services utils.LazyProvider[token.Identity, driver.OrderingService]
}

// NewProvider returns a provider over the passed ordered list of trusted notaries
func NewProvider(notaries []token.Identity, factory OrderingServiceFactory) *Provider {
	return &Provider{
		notaries: notaries,
		services: utils.NewLazyProviderWithKeyMapper(
			func(id token.Identity) string { return id.UniqueID() },
			func(id token.Identity) (driver.OrderingService, error) {
				logger.Debugf("connecting to the ordering service of [%s]", id)
				return factory(id)
			},
		),
	}
}

// Notaries returns the trusted notaries in configuration order
func (p *Provider) Notaries() []token.Identity {
	return p.notaries
}

// Lookup returns the trusted notary with the passed name
func (p *Provider) Lookup(name string) (token.Identity, error) {
	for _, n := range p.notaries {
		if n.Name() == name {
			return n, nil
		}
	}
	return nil, errors.Wrapf(ErrUnknownNotary, "no notary named [%s]", name)
}

// IsTrusted returns true if id is one of the trusted notaries
func (p *Provider) IsTrusted(id token.Identity) bool {
	for _, n := range p.notaries {
		if n.Equal(id) {
			return true
		}
	}
	return false
}

// OrderingService returns the ordering service of the passed notary
func (p *Provider) OrderingService(notary token.Identity) (driver.OrderingService, error) {
	if !p.IsTrusted(notary) {
		return nil, errors.Wrapf(ErrUnknownNotary, "[%s]", notary)
	}
	os, err := p.services.Get(notary)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed connecting to notary [%s]", notary)
	}
	return os, nil
}
