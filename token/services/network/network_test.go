/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package network_test

import (
	"context"
	"testing"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/network"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderingService struct {
	name string
}

func (o *orderingService) Submit(context.Context, *driver.SignedTransaction) (*driver.Receipt, error) {
	return nil, nil
}

func (o *orderingService) Status(context.Context, string) (driver.FinalityStatus, *driver.Receipt, error) {
	return driver.Unknown, nil, nil
}

var (
	n1 = token.NewIdentity("n1", []byte("pk1"))
	n2 = token.NewIdentity("n2", []byte("pk2"))
)

func newProvider(calls *int) *network.Provider {
	return network.NewProvider([]token.Identity{n1, n2}, func(notary token.Identity) (driver.OrderingService, error) {
		*calls++
		if notary.Name() == "n2" {
			return nil, errors.New("connection refused")
		}
		return &orderingService{name: notary.Name()}, nil
	})
}

func TestProvider(t *testing.T) {
	calls := 0
	p := newProvider(&calls)

	os, err := p.OrderingService(n1)
	require.NoError(t, err)
	assert.Equal(t, "n1", os.(*orderingService).name)
	os2, err := p.OrderingService(n1)
	require.NoError(t, err)
	assert.Same(t, os, os2)
	assert.Equal(t, 1, calls)

	_, err = p.OrderingService(n2)
	assert.ErrorContains(t, err, "failed connecting to notary")
	assert.ErrorContains(t, err, "connection refused")

	_, err = p.OrderingService(token.NewIdentity("n1", []byte("other")))
	assert.ErrorIs(t, err, network.ErrUnknownNotary)

	found, err := p.Lookup("n2")
	require.NoError(t, err)
	assert.True(t, found.Equal(n2))
	_, err = p.Lookup("n3")
	assert.ErrorIs(t, err, network.ErrUnknownNotary)
}

func TestNotarySelector(t *testing.T) {
	calls := 0
	p := newProvider(&calls)

	s, err := network.NewNotarySelector("first", "", p)
	require.NoError(t, err)
	assert.True(t, s.Select().Equal(n1))

	s, err = network.NewNotarySelector("named", "n2", p)
	require.NoError(t, err)
	assert.True(t, s.Select().Equal(n2))

	_, err = network.NewNotarySelector("named", "n3", p)
	assert.ErrorIs(t, err, network.ErrUnknownNotary)

	_, err = network.NewNotarySelector("random", "", p)
	assert.EqualError(t, err, "unknown notary policy [random]")

	_, err = network.NewNotarySelector("first", "", network.NewProvider(nil, nil))
	assert.EqualError(t, err, "no notary available")
	assert.Equal(t, 0, calls)
}
