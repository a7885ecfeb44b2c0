/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuance

import (
	"context"

	"github.com/hyperledger-labs/token-issuance-sdk/token/services/logging"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/session"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/ttx"
)

// AcceptView is executed by the counterparty of an issuance.
// It verifies and countersigns the proposal, then waits for the receipt and records it.
type AcceptView struct {
	service *Service
}

func NewAcceptView(service *Service) *AcceptView {
	return &AcceptView{service: service}
}

func (a *AcceptView) Call(ctx context.Context, js *session.JSONSession) (*ttx.Receipt, error) {
	s := a.service
	opts := []ttx.EndorseOpt{ttx.WithEndorseMetrics(s.opts.Metrics)}
	if s.opts.ProposalTimeout > 0 {
		opts = append(opts, ttx.WithProposalTimeout(s.opts.ProposalTimeout))
	}
	for _, check := range s.opts.Checks {
		opts = append(opts, ttx.WithTransactionCheck(check))
	}
	endorse, err := ttx.NewEndorseView(s.sigService, s.validator, opts...)
	if err != nil {
		return nil, err
	}
	state, err := endorse.Call(ctx, js)
	if err != nil {
		logger.Warnf("refused proposal on session [%s]: %s", logging.Prefix(js.Info().ID), err)
		return nil, err
	}

	outcome := ttx.NewReceiveOutcomeView(state, s.sigService, s.opts.OutcomeTimeout, s.opts.Metrics)
	if recovery, err := a.recovery(state.Transaction()); err != nil {
		logger.Warnf("cannot query the authority of [%s] if the outcome is lost: %s", state.TxID(), err)
	} else {
		outcome = outcome.WithRecovery(recovery)
	}
	receipt, err := outcome.Call(ctx, js)
	if err != nil {
		logger.Warnf("no receipt for [%s]: %s", state.TxID(), err)
		return nil, err
	}
	s.record(ctx, receipt)
	logger.Infof("accepted transaction [%s]", receipt.ID())
	return receipt, nil
}

// recovery returns the view querying the notary of tx
func (a *AcceptView) recovery(tx *ttx.Transaction) (*ttx.FinalityView, error) {
	ordering, err := a.service.ordering.OrderingService(tx.Notary)
	if err != nil {
		return nil, err
	}
	return ttx.NewFinalityView(ordering, a.service.sigService, a.service.opts.Finality...)
}
