/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/config"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/identity"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/issuance"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/network"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/network/notary"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/session"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/storage/ledgerdb"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/ttx"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/hyperledger-labs/token-issuance-sdk/token/validator"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const outcomeTimeout = 5 * time.Second

type node struct {
	id      *identity.SigningIdentity
	vault   *ledgerdb.MemoryLedger
	service *issuance.Service
	// results receives the outcome of every session this node served
	results chan error
}

func (n *node) Identity() token.Identity {
	return n.id.Identity
}

type fixture struct {
	net          *session.LocalNetwork
	notary       *notary.Notary
	notaryLedger *ledgerdb.MemoryLedger
	provider     *network.Provider
	selector     *network.NotarySelector
}

// newFixture starts an in-process network with a single notary.
// When notaryName differs from the name the notary signs with, the notary refuses every transaction.
func newFixture(t *testing.T, notaryName string) *fixture {
	t.Helper()
	net := session.NewLocalNetwork()
	t.Cleanup(net.Close)

	addressed, err := identity.NewSigningIdentity(notaryName, "")
	require.NoError(t, err)
	actual := addressed
	if notaryName != "notary" {
		actual, err = identity.NewSigningIdentity("notary", "")
		require.NoError(t, err)
	}
	notaryLedger := ledgerdb.NewMemory()
	n, err := notary.New(actual.Identity, actual.Signer, identity.NewService(), validator.New(), notaryLedger)
	require.NoError(t, err)

	provider := network.NewProvider([]token.Identity{addressed.Identity}, func(token.Identity) (driver.OrderingService, error) {
		return n, nil
	})
	selector, err := network.NewNotarySelector(config.FirstNotary, "", provider)
	require.NoError(t, err)

	return &fixture{net: net, notary: n, notaryLedger: notaryLedger, provider: provider, selector: selector}
}

// newNode creates a node and registers it on the network as a counterparty
func (f *fixture) newNode(t *testing.T, name string, opts ...issuance.Opt) *node {
	t.Helper()
	return f.newNodeWith(t, name, f.selector, f.provider, opts...)
}

// newNodeWith is newNode with the passed view of the notaries
func (f *fixture) newNodeWith(t *testing.T, name string, selector *network.NotarySelector, provider *network.Provider, opts ...issuance.Opt) *node {
	t.Helper()
	id, err := identity.NewSigningIdentity(name, "")
	require.NoError(t, err)
	sigService := identity.NewService()
	require.NoError(t, sigService.RegisterSigningIdentity(id))
	vault := ledgerdb.NewMemory()

	opts = append([]issuance.Opt{
		issuance.WithVault(vault),
		issuance.WithOutcomeTimeout(outcomeTimeout),
		issuance.WithEndorsementTimeout(outcomeTimeout),
		issuance.WithFinality(ttx.WithFinalityPolling(10 * time.Millisecond)),
	}, opts...)
	service, err := issuance.NewService(id.Identity, sigService, validator.New(), f.net, selector, provider, opts...)
	require.NoError(t, err)

	n := &node{id: id, vault: vault, service: service, results: make(chan error, 10)}
	responder := service.Responder()
	f.net.Register(id.Identity, func(ctx context.Context, s session.Session) error {
		err := responder(ctx, s)
		n.results <- err
		return err
	})
	return n
}

// unreachableOrdering loses every answer of the notary it wraps.
// If forward is set, submissions still reach the notary.
type unreachableOrdering struct {
	driver.OrderingService
	forward bool
}

func (u *unreachableOrdering) Submit(ctx context.Context, tx *driver.SignedTransaction) (*driver.Receipt, error) {
	if u.forward {
		_, _ = u.OrderingService.Submit(ctx, tx)
	}
	return nil, errors.New("connection reset")
}

func (u *unreachableOrdering) Status(context.Context, string) (driver.FinalityStatus, *driver.Receipt, error) {
	return driver.Unknown, nil, errors.New("connection reset")
}

// unreachable returns a view of the fixture's notary that loses every answer
func (f *fixture) unreachable(t *testing.T, forward bool) (*network.NotarySelector, *network.Provider) {
	t.Helper()
	provider := network.NewProvider([]token.Identity{f.notary.Identity()}, func(token.Identity) (driver.OrderingService, error) {
		return &unreachableOrdering{OrderingService: f.notary, forward: forward}, nil
	})
	selector, err := network.NewNotarySelector(config.FirstNotary, "", provider)
	require.NoError(t, err)
	return selector, provider
}

func (n *node) nextResult(t *testing.T) error {
	t.Helper()
	select {
	case err := <-n.results:
		return err
	case <-time.After(2 * outcomeTimeout):
		t.Fatalf("no result from [%s]", n.id.Identity)
		return nil
	}
}

// stepRecorder collects the progress notifications of an issuance
type stepRecorder struct {
	mu    sync.Mutex
	steps []ttx.Step
}

func (r *stepRecorder) OnStep(_ context.Context, _ string, step ttx.Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step)
}

func (r *stepRecorder) Steps() []ttx.Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ttx.Step(nil), r.steps...)
}
