/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdk

import (
	errors2 "errors"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/config"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/identity"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/issuance"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/logging"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/metrics"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/network"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/network/notary"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/session"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/storage/ledgerdb"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/ttx"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/hyperledger-labs/token-issuance-sdk/token/validator"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"
)

var logger = logging.MustGetLogger("token-sdk")

// Directory maps party names to identities
type Directory map[string]token.Identity

func (d Directory) Lookup(name string) (token.Identity, bool) {
	id, ok := d[name]
	return id, ok
}

// Notaries are the ordering authorities hosted by the node, in configuration order
type Notaries []*notary.Notary

// ServiceFactory creates the issuance service of a local identity
type ServiceFactory func(id *identity.SigningIdentity) (*issuance.Service, error)

// Node is an in-process token network: the issuer, the counterparties named in the configuration, and the notaries.
type Node struct {
	Config    *config.Configuration
	Issuer    *issuance.Service
	Parties   map[string]*issuance.Service
	Notaries  Notaries
	Network   *session.LocalNetwork
	Directory Directory
	Registry  *prometheus.Registry
	Ledger    driver.Ledger
}

// Close stops the sessions still running and releases the storage
func (n *Node) Close() error {
	n.Network.Close()
	return n.Ledger.Close()
}

// SDK assembles a Node from a configuration
type SDK struct {
	config    *config.Configuration
	container *dig.Container
}

func NewSDK(c *config.Configuration) *SDK {
	return &SDK{config: c, container: dig.New()}
}

// Container gives access to the dependency container, e.g. to provide transaction checks before Install
func (p *SDK) Container() *dig.Container {
	return p.container
}

func (p *SDK) Install() error {
	logger.Infof("installing token node [%s]", p.config.Identity.Name)
	err := errors2.Join(
		p.container.Provide(func() *config.Configuration { return p.config }),
		p.container.Provide(prometheus.NewRegistry),
		p.container.Provide(newMetricsProvider),
		p.container.Provide(ttx.NewMetrics),
		p.container.Provide(session.NewLocalNetwork),
		p.container.Provide(func(n *session.LocalNetwork) session.Network { return n }),
		p.container.Provide(validator.New),
		p.container.Provide(func(v *validator.Validator) driver.Validator { return v }),
		p.container.Provide(newLedger),
		p.container.Provide(newNotaries),
		p.container.Provide(newNetworkProvider),
		p.container.Provide(newNotarySelector),
		p.container.Provide(NewTransactionChecks),
		p.container.Provide(newServiceFactory),
		p.container.Provide(newNode),
	)
	if err != nil {
		return errors.WithMessagef(err, "failed setting up dig container")
	}
	return nil
}

// Node builds the node. Install must be called first.
func (p *SDK) Node() (*Node, error) {
	var node *Node
	if err := p.container.Invoke(func(n *Node) { node = n }); err != nil {
		return nil, errors.WithMessagef(err, "failed assembling node")
	}
	return node, nil
}

func newMetricsProvider(c *config.Configuration, registry *prometheus.Registry) metrics.Provider {
	if !c.Metrics.Enabled {
		return metrics.NewDisabledProvider()
	}
	return metrics.NewPrometheusProvider(registry)
}

func newLedger(c *config.Configuration) (driver.Ledger, error) {
	return ledgerdb.New(ledgerdb.Opts{
		Driver:       c.Ledger.Driver,
		DataSource:   c.Ledger.DataSource,
		MaxOpenConns: c.Ledger.MaxOpenConns,
	})
}

// newNotaries starts the configured notaries. They share the ledger storage.
func newNotaries(c *config.Configuration, v driver.Validator, ledger driver.Ledger, mp metrics.Provider) (Notaries, error) {
	notaries := make(Notaries, 0, len(c.Notary.Notaries))
	for _, name := range c.Notary.Notaries {
		id, err := identity.NewSigningIdentity(name, "")
		if err != nil {
			return nil, errors.WithMessagef(err, "failed creating identity of notary [%s]", name)
		}
		n, err := notary.New(id.Identity, id.Signer, identity.NewService(), v, ledger, notary.WithMetrics(mp))
		if err != nil {
			return nil, errors.WithMessagef(err, "failed creating notary [%s]", name)
		}
		notaries = append(notaries, n)
	}
	return notaries, nil
}

func newNetworkProvider(notaries Notaries) *network.Provider {
	ids := make([]token.Identity, len(notaries))
	for i, n := range notaries {
		ids[i] = n.Identity()
	}
	return network.NewProvider(ids, func(id token.Identity) (driver.OrderingService, error) {
		for _, n := range notaries {
			if n.Identity().Equal(id) {
				return n, nil
			}
		}
		return nil, errors.Errorf("notary [%s] is not hosted by this node", id)
	})
}

func newNotarySelector(c *config.Configuration, provider *network.Provider) (*network.NotarySelector, error) {
	return network.NewNotarySelector(c.Notary.Policy, c.Notary.Name, provider)
}

func newServiceFactory(
	c *config.Configuration,
	sessions session.Network,
	v driver.Validator,
	selector *network.NotarySelector,
	provider *network.Provider,
	m *ttx.Metrics,
	checks TransactionChecks,
) ServiceFactory {
	return func(id *identity.SigningIdentity) (*issuance.Service, error) {
		sigService := identity.NewService()
		if err := sigService.RegisterSigningIdentity(id); err != nil {
			return nil, err
		}
		opts := []issuance.Opt{
			issuance.WithEndorsementTimeout(c.Endorsement.Timeout),
			issuance.WithMetrics(m),
			issuance.WithVault(ledgerdb.NewMemory()),
			issuance.WithFinality(
				ttx.WithFinalityTimeout(c.Finality.Timeout),
				ttx.WithFinalityAttempts(c.Finality.Attempts),
				ttx.WithFinalityPolling(c.Finality.Polling),
				ttx.WithFinalityMetrics(m),
			),
		}
		for _, check := range checks {
			opts = append(opts, issuance.WithTransactionCheck(check.Check))
		}
		return issuance.NewService(id.Identity, sigService, v, sessions, selector, provider, opts...)
	}
}

func newNode(
	c *config.Configuration,
	factory ServiceFactory,
	net *session.LocalNetwork,
	notaries Notaries,
	registry *prometheus.Registry,
	ledger driver.Ledger,
) (*Node, error) {
	issuerID, err := identity.NewSigningIdentity(c.Identity.Name, c.Identity.Seed)
	if err != nil {
		return nil, err
	}
	issuer, err := factory(issuerID)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed creating issuer [%s]", c.Identity.Name)
	}
	directory := Directory{c.Identity.Name: issuerID.Identity}
	net.Register(issuerID.Identity, issuer.Responder())

	parties := map[string]*issuance.Service{}
	for _, name := range c.Parties {
		if _, ok := directory[name]; ok {
			return nil, errors.Errorf("party [%s] defined twice", name)
		}
		id, err := identity.NewSigningIdentity(name, "")
		if err != nil {
			return nil, err
		}
		service, err := factory(id)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed creating party [%s]", name)
		}
		net.Register(id.Identity, service.Responder())
		directory[name] = id.Identity
		parties[name] = service
	}

	return &Node{
		Config:    c,
		Issuer:    issuer,
		Parties:   parties,
		Notaries:  notaries,
		Network:   net,
		Directory: directory,
		Registry:  registry,
		Ledger:    ledger,
	}, nil
}
