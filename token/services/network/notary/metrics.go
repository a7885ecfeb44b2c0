/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notary

import "github.com/hyperledger-labs/token-issuance-sdk/token/services/metrics"

var (
	rejections = metrics.CounterOpts{
		Namespace:  "token_sdk",
		Subsystem:  "notary",
		Name:       "rejections",
		Help:       "The number of transactions the notary refused, by reason.",
		LabelNames: []string{"reason"},
	}
	finalized = metrics.CounterOpts{
		Namespace: "token_sdk",
		Subsystem: "notary",
		Name:      "finalized_transactions",
		Help:      "The number of transactions the notary finalized.",
	}
	duplicates = metrics.CounterOpts{
		Namespace: "token_sdk",
		Subsystem: "notary",
		Name:      "duplicate_submissions",
		Help:      "The number of submissions answered with an existing receipt.",
	}
)

const (
	reasonWrongNotary  = "wrong_notary"
	reasonInvalid      = "invalid_transaction"
	reasonSignatures   = "invalid_signatures"
	reasonUnknownInput = "unknown_input"
	reasonConflict     = "conflict"
)

type Metrics struct {
	Rejections            metrics.Counter
	FinalizedTransactions metrics.Counter
	DuplicateSubmissions  metrics.Counter
}

func NewMetrics(p metrics.Provider) *Metrics {
	return &Metrics{
		Rejections:            p.NewCounter(rejections),
		FinalizedTransactions: p.NewCounter(finalized),
		DuplicateSubmissions:  p.NewCounter(duplicates),
	}
}
