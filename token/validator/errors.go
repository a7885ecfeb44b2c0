/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"fmt"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/pkg/errors"
)

var (
	// ErrRuleViolation signals that a transaction does not satisfy the rules of its command
	ErrRuleViolation = errors.New("rule violation")
	// ErrInvalidSignature signals that a signature does not verify against its signer
	ErrInvalidSignature = errors.New("invalid signature")
)

// RuleViolation is returned when a transaction breaks a rule.
// It matches ErrRuleViolation.
type RuleViolation struct {
	Command driver.CommandType
	Reason  string
}

func (r *RuleViolation) Error() string {
	if len(r.Command) == 0 {
		return fmt.Sprintf("rule violation: %s", r.Reason)
	}
	return fmt.Sprintf("rule violation [%s]: %s", r.Command, r.Reason)
}

func (r *RuleViolation) Is(target error) bool {
	return target == ErrRuleViolation
}

// Violationf returns a RuleViolation for the passed command
func Violationf(command driver.CommandType, format string, args ...interface{}) error {
	return &RuleViolation{Command: command, Reason: fmt.Sprintf(format, args...)}
}
