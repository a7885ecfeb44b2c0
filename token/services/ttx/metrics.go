/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "token_sdk"

var (
	issuedTransactions = metrics.CounterOpts{
		Namespace: namespace,
		Name:      "issued_transactions",
		Help:      "The number of issue transactions that reached finality.",
	}
	endorsedTransactions = metrics.CounterOpts{
		Namespace:  namespace,
		Name:       "endorsed_transactions",
		Help:       "The number of transactions endorsed by this node.",
		LabelNames: []string{"role"},
	}
	abortedTransactions = metrics.CounterOpts{
		Namespace:  namespace,
		Name:       "aborted_transactions",
		Help:       "The number of transactions aborted, by phase.",
		LabelNames: []string{"role", "phase"},
	}
	finalizedTransactions = metrics.CounterOpts{
		Namespace:  namespace,
		Name:       "finalized_transactions",
		Help:       "The number of transactions this node observed as final.",
		LabelNames: []string{"role"},
	}
	issuanceDuration = metrics.HistogramOpts{
		Namespace: namespace,
		Name:      "issuance_duration_seconds",
		Help:      "The duration of an issuance, from build to receipt.",
		Buckets:   prometheus.DefBuckets,
	}
)

const (
	InitiatorRole = "initiator"
	ResponderRole = "responder"
)

type Metrics struct {
	IssuedTransactions    metrics.Counter
	EndorsedTransactions  metrics.Counter
	AbortedTransactions   metrics.Counter
	FinalizedTransactions metrics.Counter
	IssuanceDuration      metrics.Histogram
}

func NewMetrics(p metrics.Provider) *Metrics {
	return &Metrics{
		IssuedTransactions:    p.NewCounter(issuedTransactions),
		EndorsedTransactions:  p.NewCounter(endorsedTransactions),
		AbortedTransactions:   p.NewCounter(abortedTransactions),
		FinalizedTransactions: p.NewCounter(finalizedTransactions),
		IssuanceDuration:      p.NewHistogram(issuanceDuration),
	}
}

// NewDisabledMetrics returns metrics that record nothing
func NewDisabledMetrics() *Metrics {
	return NewMetrics(metrics.NewDisabledProvider())
}

func (m *Metrics) aborted(role string, phase Phase) {
	m.AbortedTransactions.With("role", role, "phase", phase.String()).Add(1)
}
