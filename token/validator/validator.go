/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"context"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/logging"
	"github.com/pkg/errors"
)

// Context is passed along the validation chain of a command
type Context struct {
	Logger      logging.Logger
	Transaction *driver.Transaction
	// Attributes can be used by a validator to pass information to the next ones
	Attributes map[string]interface{}
}

// ValidateFunc checks a single rule
type ValidateFunc func(ctx context.Context, c *Context) error

// Validator runs, for each transaction, the structural checks followed by the rules registered for its command type
type Validator struct {
	Logger logging.Logger
	rules  map[driver.CommandType][]ValidateFunc
}

// New returns a validator that knows the Issue rules
func New() *Validator {
	v := &Validator{
		Logger: logger,
		rules:  map[driver.CommandType][]ValidateFunc{},
	}
	v.Register(driver.Issue, IssueValidators...)
	return v
}

// Register appends the passed validators to the chain of the passed command type.
// It must be called before the validator is used.
func (v *Validator) Register(command driver.CommandType, validators ...ValidateFunc) {
	v.rules[command] = append(v.rules[command], validators...)
}

// Verify returns nil if the transaction is well formed and satisfies the rules of its command.
// A failure matches ErrRuleViolation.
func (v *Validator) Verify(ctx context.Context, tx *driver.Transaction) error {
	if tx == nil {
		return Violationf("", "nil transaction")
	}
	if err := v.verifyStructure(tx); err != nil {
		return err
	}
	validators, ok := v.rules[tx.Command.Type]
	if !ok {
		return Violationf(tx.Command.Type, "unknown command")
	}
	c := &Context{
		Logger:      v.Logger,
		Transaction: tx,
		Attributes:  map[string]interface{}{},
	}
	for _, validate := range validators {
		if err := validate(ctx, c); err != nil {
			v.Logger.Debugf("transaction [%s] failed validation: %s", tx.ID, err)
			return err
		}
	}
	return nil
}

func (v *Validator) verifyStructure(tx *driver.Transaction) error {
	cmd := tx.Command.Type
	if err := tx.CheckID(); err != nil {
		return Violationf(cmd, "%s", err)
	}
	if len(tx.Nonce) == 0 {
		return Violationf(cmd, "no nonce")
	}
	if tx.Notary.IsNone() {
		return Violationf(cmd, "no notary")
	}
	if len(tx.Command.Signers) == 0 {
		return Violationf(cmd, "no required signers")
	}
	seen := make(map[string]struct{}, len(tx.Command.Signers))
	for _, signer := range tx.Command.Signers {
		if signer.IsNone() {
			return Violationf(cmd, "empty signer")
		}
		if _, ok := seen[signer.UniqueID()]; ok {
			return Violationf(cmd, "duplicate signer [%s]", signer)
		}
		seen[signer.UniqueID()] = struct{}{}
	}
	return nil
}

// VerifySignatures checks that every required signer, and nobody else, produced a valid signature
// over the canonical representation of the transaction.
func (v *Validator) VerifySignatures(ctx context.Context, stx *driver.SignedTransaction, vp driver.VerifierProvider) error {
	if stx == nil || stx.Transaction == nil {
		return Violationf("", "nil transaction")
	}
	tx := stx.Transaction
	cmd := tx.Command.Type
	if len(stx.Signatures) != len(tx.Command.Signers) {
		return Violationf(cmd, "expected [%d] signatures, got [%d]", len(tx.Command.Signers), len(stx.Signatures))
	}
	seen := make(map[string]struct{}, len(stx.Signatures))
	for i, sig := range stx.Signatures {
		if sig == nil || sig.Signer.IsNone() {
			return Violationf(cmd, "signature [%d] has no signer", i)
		}
		if !tx.Command.HasSigner(sig.Signer) {
			return Violationf(cmd, "signature by [%s], not a required signer", sig.Signer)
		}
		if _, ok := seen[sig.Signer.UniqueID()]; ok {
			return Violationf(cmd, "more than one signature by [%s]", sig.Signer)
		}
		seen[sig.Signer.UniqueID()] = struct{}{}
	}

	raw, err := tx.MarshalToSign()
	if err != nil {
		return errors.Wrapf(err, "failed marshalling transaction [%s]", tx.ID)
	}
	for _, sig := range stx.Signatures {
		if err := VerifySignature(ctx, vp, sig.Signer, raw, sig.Value); err != nil {
			return errors.WithMessagef(err, "transaction [%s]", tx.ID)
		}
	}
	return nil
}

// VerifySignature checks sigma against the verifier of the passed identity.
// A failure matches ErrInvalidSignature.
func VerifySignature(ctx context.Context, vp driver.VerifierProvider, id driver.Identity, raw, sigma []byte) error {
	verifier, err := vp.GetVerifier(ctx, id)
	if err != nil {
		return errors.Wrapf(ErrInvalidSignature, "failed getting verifier for [%s]: %s", id, err)
	}
	if err := verifier.Verify(raw, sigma); err != nil {
		return errors.Wrapf(ErrInvalidSignature, "signature by [%s] does not verify: %s", id, err)
	}
	return nil
}
