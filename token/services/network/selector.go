/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package network

import (
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/config"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/pkg/errors"
)

// NotarySelector picks the notary new transactions are addressed to.
// The choice is fixed by configuration and never depends on load or availability.
type NotarySelector struct {
	notary token.Identity
}

// NewNotarySelector applies the passed policy to the notaries known by the provider
func NewNotarySelector(policy string, name string, provider *Provider) (*NotarySelector, error) {
	switch policy {
	case config.FirstNotary, "":
		if len(provider.Notaries()) == 0 {
			return nil, errors.New("no notary available")
		}
		return &NotarySelector{notary: provider.Notaries()[0]}, nil
	case config.NamedNotary:
		notary, err := provider.Lookup(name)
		if err != nil {
			return nil, err
		}
		return &NotarySelector{notary: notary}, nil
	default:
		return nil, errors.Errorf("unknown notary policy [%s]", policy)
	}
}

// Select returns the notary new transactions must be finalized by
func (s *NotarySelector) Select() token.Identity {
	return s.notary
}
