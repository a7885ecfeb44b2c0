/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuance

import (
	"context"
	"time"

	"github.com/hyperledger-labs/token-issuance-sdk/token/services/session"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/ttx"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/pkg/errors"
)

// IssueView is executed by the issuer.
// It builds the transaction, verifies it, collects the signatures, has it finalized by the notary,
// and delivers the receipt to the counterparties.
type IssueView struct {
	service  *Service
	owner    token.Identity
	amount   int64
	progress *ttx.Progress
}

func NewIssueView(service *Service, owner token.Identity, amount int64) *IssueView {
	return &IssueView{
		service:  service,
		owner:    owner,
		amount:   amount,
		progress: ttx.NewProgress(service.opts.Listener),
	}
}

func (v *IssueView) Call(ctx context.Context) (*ttx.Receipt, error) {
	s := v.service
	start := time.Now()

	v.progress.Step(ctx, "", ttx.GeneratingTransaction)
	tx, err := s.builder.Build(ctx, s.me, v.owner, v.amount, s.notaries.Select())
	if err != nil {
		v.progress.Step(ctx, "", ttx.Failed)
		return nil, ttx.NewProtocolError(ttx.Building, "", err)
	}
	ctx = session.WithContextID(ctx, tx.ID)

	v.progress.Step(ctx, tx.ID, ttx.VerifyingTransaction)
	state := ttx.NewInitiatorState(tx)
	if err := ttx.SelfVerify(ctx, state, s.validator); err != nil {
		return nil, v.failed(ctx, tx.ID, err)
	}

	v.progress.Step(ctx, tx.ID, ttx.SigningTransaction)
	opts := []ttx.EndorsementsOpt{ttx.WithEndorsementsMetrics(s.opts.Metrics)}
	if s.opts.EndorsementTimeout > 0 {
		opts = append(opts, ttx.WithEndorsementTimeout(s.opts.EndorsementTimeout))
	}
	collect, err := ttx.NewCollectEndorsementsView(state, s.me.Name(), s.network, s.sigService, opts...)
	if err != nil {
		return nil, v.failed(ctx, tx.ID, err)
	}
	v.progress.Step(ctx, tx.ID, ttx.GatheringSignatures)
	endorsements, err := collect.Call(ctx)
	if err != nil {
		return nil, v.failed(ctx, tx.ID, err)
	}

	v.progress.Step(ctx, tx.ID, ttx.FinalisingTransaction)
	receipt, err := v.finalize(ctx, endorsements)
	if err != nil {
		return nil, v.failed(ctx, tx.ID, err)
	}
	s.record(ctx, receipt)
	ttx.DistributeReceipt(ctx, endorsements.Sessions, receipt)

	s.opts.Metrics.IssuedTransactions.Add(1)
	s.opts.Metrics.IssuanceDuration.Observe(time.Since(start).Seconds())
	v.progress.Step(ctx, tx.ID, ttx.Done)
	logger.Infof("issued [%d] to [%s] in transaction [%s]", v.amount, v.owner, tx.ID)
	return receipt, nil
}

func (v *IssueView) finalize(ctx context.Context, endorsements *ttx.Endorsements) (*ttx.Receipt, error) {
	stx := endorsements.Transaction
	ordering, err := v.service.ordering.OrderingService(stx.Transaction.Notary)
	if err != nil {
		err = ttx.NewProtocolError(ttx.FullySigned, stx.ID(), errors.Wrapf(ttx.ErrFinalizationRejected, "%s", err))
		ttx.DistributeAbort(ctx, endorsements.Sessions, err.Error())
		return nil, err
	}
	finality, err := ttx.NewFinalityView(ordering, v.service.sigService, v.service.opts.Finality...)
	if err != nil {
		ttx.DistributeAbort(ctx, endorsements.Sessions, err.Error())
		return nil, ttx.NewProtocolError(ttx.FullySigned, stx.ID(), err)
	}
	receipt, err := finality.Call(ctx, stx)
	if err != nil {
		if errors.Is(err, ttx.ErrFinalizationRejected) {
			ttx.DistributeAbort(ctx, endorsements.Sessions, err.Error())
		} else {
			// the notary might still finalize the transaction, counterparties must not discard it
			for _, js := range endorsements.Sessions {
				js.Session().Close()
			}
		}
		return nil, err
	}
	return receipt, nil
}

func (v *IssueView) failed(ctx context.Context, txID string, err error) error {
	v.progress.Step(ctx, txID, ttx.Failed)
	logger.Errorf("issuance of [%d] to [%s] failed: %s", v.amount, v.owner, err)
	return err
}
