/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"slices"

	"github.com/pkg/errors"
)

// ValidateFunc checks one aspect of a configuration
type ValidateFunc func(c *Configuration) error

var validators = []ValidateFunc{
	validateIdentity,
	validateTimeouts,
	validateNotary,
	validateLedger,
}

// Validate returns nil if the passed configuration is valid, an error otherwise.
func Validate(c *Configuration) error {
	for _, v := range validators {
		if err := v(c); err != nil {
			return errors.WithMessage(err, "invalid configuration")
		}
	}
	return nil
}

func validateIdentity(c *Configuration) error {
	if len(c.Identity.Name) == 0 {
		return errors.New("identity name must be set")
	}
	return nil
}

func validateTimeouts(c *Configuration) error {
	if c.Endorsement.Timeout <= 0 {
		return errors.Errorf("endorsement timeout must be positive, got [%s]", c.Endorsement.Timeout)
	}
	if c.Finality.Timeout <= 0 {
		return errors.Errorf("finality timeout must be positive, got [%s]", c.Finality.Timeout)
	}
	if c.Finality.Attempts <= 0 {
		return errors.Errorf("finality attempts must be positive, got [%d]", c.Finality.Attempts)
	}
	if c.Finality.Polling <= 0 {
		return errors.Errorf("finality polling must be positive, got [%s]", c.Finality.Polling)
	}
	return nil
}

func validateNotary(c *Configuration) error {
	if len(c.Notary.Notaries) == 0 {
		return errors.New("at least one notary must be configured")
	}
	switch c.Notary.Policy {
	case FirstNotary:
		return nil
	case NamedNotary:
		if !slices.Contains(c.Notary.Notaries, c.Notary.Name) {
			return errors.Errorf("notary [%s] is not among the configured notaries %v", c.Notary.Name, c.Notary.Notaries)
		}
		return nil
	default:
		return errors.Errorf("unknown notary policy [%s]", c.Notary.Policy)
	}
}

func validateLedger(c *Configuration) error {
	switch c.Ledger.Driver {
	case "memory":
		return nil
	case "sqlite", "postgres":
		if len(c.Ledger.DataSource) == 0 {
			return errors.Errorf("ledger driver [%s] requires a datasource", c.Ledger.Driver)
		}
		return nil
	default:
		return errors.Errorf("unknown ledger driver [%s]", c.Ledger.Driver)
	}
}
