/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"context"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
)

// IssueValidators is the chain run on every Issue transaction
var IssueValidators = []ValidateFunc{
	IssueValidateNoInputs,
	IssueValidateOutputs,
	IssueValidateSigners,
}

// IssueValidateNoInputs checks that the issue consumes nothing
func IssueValidateNoInputs(_ context.Context, c *Context) error {
	if n := len(c.Transaction.Inputs); n != 0 {
		return Violationf(driver.Issue, "issue consumes [%d] inputs", n)
	}
	return nil
}

// IssueValidateOutputs checks that there is at least one output, that every output carries a positive amount,
// and that all outputs are created by the same issuer.
func IssueValidateOutputs(_ context.Context, c *Context) error {
	outputs := c.Transaction.Outputs
	if len(outputs) == 0 {
		return Violationf(driver.Issue, "there is no output")
	}
	issuer := outputs[0].Issuer
	for i, output := range outputs {
		if output.Amount == 0 {
			return Violationf(driver.Issue, "output [%d] has zero amount", i)
		}
		if output.Issuer.IsNone() || output.Owner.IsNone() {
			return Violationf(driver.Issue, "output [%d] has no issuer or owner", i)
		}
		if !output.Issuer.Equal(issuer) {
			return Violationf(driver.Issue, "output [%d] issued by [%s], expected [%s]", i, output.Issuer, issuer)
		}
	}
	return nil
}

// IssueValidateSigners checks that the required signers are exactly the issuer and the owners of the outputs
func IssueValidateSigners(_ context.Context, c *Context) error {
	tx := c.Transaction
	expected := expectedIssueSigners(tx.Outputs)
	if len(expected) != len(tx.Command.Signers) {
		return Violationf(driver.Issue, "expected [%d] signers, got [%d]", len(expected), len(tx.Command.Signers))
	}
	for _, id := range expected {
		if !tx.Command.HasSigner(id) {
			return Violationf(driver.Issue, "[%s] must sign", id)
		}
	}
	return nil
}

// expectedIssueSigners returns the issuer followed by the distinct owners
func expectedIssueSigners(outputs []token.Record) []token.Identity {
	if len(outputs) == 0 {
		return nil
	}
	res := []token.Identity{outputs[0].Issuer}
	for _, output := range outputs {
		found := false
		for _, id := range res {
			if id.Equal(output.Owner) {
				found = true
				break
			}
		}
		if !found {
			res = append(res, output.Owner)
		}
	}
	return res
}
