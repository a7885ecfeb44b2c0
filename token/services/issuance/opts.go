/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuance

import (
	"time"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/ttx"
	"github.com/pkg/errors"
)

const defaultOutcomeTimeout = 15 * time.Minute

// Opts configures a Service
type Opts struct {
	// EndorsementTimeout bounds the wait for each counterparty's signature, zero means the ttx default
	EndorsementTimeout time.Duration
	// ProposalTimeout bounds the wait for a proposal once a session is accepted, zero means the ttx default
	ProposalTimeout time.Duration
	// OutcomeTimeout bounds the wait of a counterparty for the receipt of a transaction it signed
	OutcomeTimeout time.Duration
	Finality       []ttx.FinalityOpt
	Checks         []ttx.TransactionCheck
	Listener       ttx.ProgressListener
	Metrics        *ttx.Metrics
	// Vault stores the transactions this node took part in, nil disables local recording
	Vault driver.Ledger
}

type Opt func(*Opts) error

func CompileOpts(opts ...Opt) (*Opts, error) {
	o := &Opts{OutcomeTimeout: defaultOutcomeTimeout}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.Metrics == nil {
		o.Metrics = ttx.NewDisabledMetrics()
	}
	return o, nil
}

func WithEndorsementTimeout(d time.Duration) Opt {
	return func(o *Opts) error {
		o.EndorsementTimeout = d
		return nil
	}
}

func WithProposalTimeout(d time.Duration) Opt {
	return func(o *Opts) error {
		o.ProposalTimeout = d
		return nil
	}
}

func WithOutcomeTimeout(d time.Duration) Opt {
	return func(o *Opts) error {
		if d <= 0 {
			return errors.Errorf("invalid outcome timeout [%s]", d)
		}
		o.OutcomeTimeout = d
		return nil
	}
}

// WithFinality configures the interaction with the notary
func WithFinality(opts ...ttx.FinalityOpt) Opt {
	return func(o *Opts) error {
		o.Finality = append(o.Finality, opts...)
		return nil
	}
}

// WithTransactionCheck adds a business check run by this node before countersigning
func WithTransactionCheck(check ttx.TransactionCheck) Opt {
	return func(o *Opts) error {
		o.Checks = append(o.Checks, check)
		return nil
	}
}

func WithProgressListener(l ttx.ProgressListener) Opt {
	return func(o *Opts) error {
		o.Listener = l
		return nil
	}
}

func WithMetrics(m *ttx.Metrics) Opt {
	return func(o *Opts) error {
		o.Metrics = m
		return nil
	}
}

func WithVault(vault driver.Ledger) Opt {
	return func(o *Opts) error {
		o.Vault = vault
		return nil
	}
}
