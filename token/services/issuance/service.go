/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuance

import (
	"context"
	errors2 "errors"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/network"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/session"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/ttx"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/pkg/errors"
)

// Service runs issuances on behalf of a local identity.
// The same service plays the issuer, through IssueTokens, and the counterparty, through Responder.
type Service struct {
	me         token.Identity
	sigService driver.SigService
	validator  driver.Validator
	network    session.Network
	notaries   *network.NotarySelector
	ordering   *network.Provider
	builder    *ttx.Builder
	opts       *Opts
}

// NewService returns a service acting as me.
// selector picks the notary of new transactions, ordering connects to it.
func NewService(
	me token.Identity,
	sigService driver.SigService,
	validator driver.Validator,
	sessions session.Network,
	selector *network.NotarySelector,
	ordering *network.Provider,
	opts ...Opt,
) (*Service, error) {
	if me.IsNone() {
		return nil, errors.New("local identity must be set")
	}
	if !sigService.IsMe(context.Background(), me) {
		return nil, errors.Errorf("no signer available for [%s]", me)
	}
	o, err := CompileOpts(opts...)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed compiling options")
	}
	return &Service{
		me:         me,
		sigService: sigService,
		validator:  validator,
		network:    sessions,
		notaries:   selector,
		ordering:   ordering,
		builder:    ttx.NewBuilder(),
		opts:       o,
	}, nil
}

// Identity returns the identity this service acts as
func (s *Service) Identity() token.Identity {
	return s.me
}

// IssueTokens issues amount units to owner and returns the receipt of the finalized transaction.
// A non positive amount fails with ttx.ErrInvalidAmount before any counterparty is contacted.
func (s *Service) IssueTokens(ctx context.Context, owner token.Identity, amount int64) (*ttx.Receipt, error) {
	if amount <= 0 {
		return nil, ttx.NewProtocolError(ttx.Building, "", errors.Wrapf(ttx.ErrInvalidAmount, "amount must be positive, got [%d]", amount))
	}
	return NewIssueView(s, owner, amount).Call(ctx)
}

// Responder returns the handler serving the issuance sessions opened towards this node
func (s *Service) Responder() session.Handler {
	return func(ctx context.Context, sess session.Session) error {
		_, err := NewAcceptView(s).Call(ctx, session.NewJSON(ctx, sess))
		return err
	}
}

// Receipt returns the receipt of the passed transaction, from the local vault or, failing that, from the trusted notaries.
// It returns nil if none of them knows the transaction as finalized.
func (s *Service) Receipt(ctx context.Context, txID string) (*ttx.Receipt, error) {
	if s.opts.Vault != nil {
		receipt, err := s.opts.Vault.GetReceipt(ctx, txID)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed reading vault")
		}
		if receipt != nil {
			return receipt, nil
		}
	}
	var errs []error
	for _, notary := range s.ordering.Notaries() {
		ordering, err := s.ordering.OrderingService(notary)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		status, receipt, err := ordering.Status(ctx, txID)
		if err != nil {
			errs = append(errs, errors.WithMessagef(err, "failed querying notary [%s]", notary))
			continue
		}
		if status == driver.Finalized {
			return receipt, nil
		}
	}
	if len(errs) != 0 && len(errs) == len(s.ordering.Notaries()) {
		return nil, errors2.Join(errs...)
	}
	return nil, nil
}

// record stores the receipt in the local vault, if any.
// A failure is logged: the transaction is final regardless.
func (s *Service) record(ctx context.Context, receipt *ttx.Receipt) {
	if s.opts.Vault == nil {
		return
	}
	if err := s.opts.Vault.RecordFinalized(ctx, receipt); err != nil && !errors.Is(err, driver.ErrAlreadyRecorded) {
		logger.Errorf("failed recording transaction [%s] in the vault: %s", receipt.ID(), err)
	}
}
