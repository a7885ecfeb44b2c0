/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultEndorsementTimeout = time.Minute
	defaultFinalityTimeout    = 10 * time.Minute
	defaultFinalityAttempts   = 5
	defaultFinalityPolling    = time.Second
)

// EndorsementsOpts is used to configure the CollectEndorsementsView
type EndorsementsOpts struct {
	// Timeout bounds the wait for the answer of each counterparty
	Timeout time.Duration
	Metrics *Metrics
}

// EndorsementsOpt is a function that configures a EndorsementsOpts
type EndorsementsOpt func(*EndorsementsOpts) error

// CompileCollectEndorsementsOpts compiles the given list of EndorsementsOpt
func CompileCollectEndorsementsOpts(opts ...EndorsementsOpt) (*EndorsementsOpts, error) {
	o := &EndorsementsOpts{Timeout: defaultEndorsementTimeout}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.Metrics == nil {
		o.Metrics = NewDisabledMetrics()
	}
	return o, nil
}

// WithEndorsementTimeout sets the time a counterparty has to answer
func WithEndorsementTimeout(d time.Duration) EndorsementsOpt {
	return func(o *EndorsementsOpts) error {
		if d <= 0 {
			return errors.Errorf("invalid endorsement timeout [%s]", d)
		}
		o.Timeout = d
		return nil
	}
}

// WithEndorsementsMetrics sets the metrics the view updates
func WithEndorsementsMetrics(m *Metrics) EndorsementsOpt {
	return func(o *EndorsementsOpts) error {
		o.Metrics = m
		return nil
	}
}

// TransactionCheck is a business check a responder runs on a proposal, after the rule engine accepted it
type TransactionCheck func(ctx context.Context, tx *Transaction) error

// EndorseOpts is used to configure the EndorseView
type EndorseOpts struct {
	// Timeout bounds the wait for the proposal
	Timeout time.Duration
	Checks  []TransactionCheck
	Metrics *Metrics
}

// EndorseOpt is a function that configures a EndorseOpts
type EndorseOpt func(*EndorseOpts) error

// CompileEndorseOpts compiles the given list of EndorseOpt
func CompileEndorseOpts(opts ...EndorseOpt) (*EndorseOpts, error) {
	o := &EndorseOpts{Timeout: defaultEndorsementTimeout}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.Metrics == nil {
		o.Metrics = NewDisabledMetrics()
	}
	return o, nil
}

// WithProposalTimeout sets the time the initiator has to send the proposal
func WithProposalTimeout(d time.Duration) EndorseOpt {
	return func(o *EndorseOpts) error {
		if d <= 0 {
			return errors.Errorf("invalid proposal timeout [%s]", d)
		}
		o.Timeout = d
		return nil
	}
}

// WithTransactionCheck appends a business check
func WithTransactionCheck(check TransactionCheck) EndorseOpt {
	return func(o *EndorseOpts) error {
		if check == nil {
			return errors.New("nil transaction check")
		}
		o.Checks = append(o.Checks, check)
		return nil
	}
}

// WithEndorseMetrics sets the metrics the view updates
func WithEndorseMetrics(m *Metrics) EndorseOpt {
	return func(o *EndorseOpts) error {
		o.Metrics = m
		return nil
	}
}

// FinalityOpts is used to configure the FinalityView
type FinalityOpts struct {
	// Timeout bounds the whole finalization
	Timeout time.Duration
	// Attempts bounds the number of submissions and status queries
	Attempts int
	// Polling is the pause before querying the status after an ambiguous failure
	Polling time.Duration
	Metrics *Metrics
}

// FinalityOpt is a function that configures a FinalityOpts
type FinalityOpt func(*FinalityOpts) error

// CompileFinalityOpts compiles the given list of FinalityOpt
func CompileFinalityOpts(opts ...FinalityOpt) (*FinalityOpts, error) {
	o := &FinalityOpts{
		Timeout:  defaultFinalityTimeout,
		Attempts: defaultFinalityAttempts,
		Polling:  defaultFinalityPolling,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.Metrics == nil {
		o.Metrics = NewDisabledMetrics()
	}
	return o, nil
}

// WithFinalityTimeout bounds the whole finalization
func WithFinalityTimeout(d time.Duration) FinalityOpt {
	return func(o *FinalityOpts) error {
		o.Timeout = d
		return nil
	}
}

// WithFinalityAttempts bounds the number of submissions and status queries
func WithFinalityAttempts(n int) FinalityOpt {
	return func(o *FinalityOpts) error {
		if n <= 0 {
			return errors.Errorf("invalid number of attempts [%d]", n)
		}
		o.Attempts = n
		return nil
	}
}

// WithFinalityPolling sets the pause between an ambiguous failure and the status query
func WithFinalityPolling(d time.Duration) FinalityOpt {
	return func(o *FinalityOpts) error {
		o.Polling = d
		return nil
	}
}

// WithFinalityMetrics sets the metrics the view updates
func WithFinalityMetrics(m *Metrics) FinalityOpt {
	return func(o *FinalityOpts) error {
		o.Metrics = m
		return nil
	}
}
