/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdk

import (
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/ttx"
	"go.uber.org/dig"
)

// ChecksGroup is the dig group collecting the business checks counterparties run before countersigning
const ChecksGroup = "transaction-checks"

// NamedCheck is a business check with a name for logging
type NamedCheck struct {
	Name  string
	Check ttx.TransactionCheck
}

// TransactionChecks gathers the checks provided to the container in ChecksGroup
type TransactionChecks []NamedCheck

// NewTransactionChecks aggregates the checks provided to the container
func NewTransactionChecks(in struct {
	dig.In
	Checks []NamedCheck `group:"transaction-checks"`
}) TransactionChecks {
	for _, c := range in.Checks {
		logger.Debugf("registered transaction check [%s]", c.Name)
	}
	return in.Checks
}
