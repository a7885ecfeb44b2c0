/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"context"
	"time"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/session"
	"github.com/pkg/errors"
)

const distributionTimeout = 10 * time.Second

// ErrAbortedByInitiator signals that the initiator gave up on a transaction this party endorsed
var ErrAbortedByInitiator = errors.New("aborted by initiator")

// DistributeReceipt delivers the receipt to the counterparties and closes the sessions.
// Delivery is best effort: the transaction is final regardless.
func DistributeReceipt(ctx context.Context, sessions []*session.JSONSession, receipt *Receipt) {
	distribute(ctx, sessions, &Outcome{Receipt: receipt})
}

// DistributeAbort tells the counterparties to discard the transaction and closes the sessions
func DistributeAbort(ctx context.Context, sessions []*session.JSONSession, reason string) {
	distribute(ctx, sessions, &Outcome{Abort: reason})
}

func distribute(ctx context.Context, sessions []*session.JSONSession, outcome *Outcome) {
	// the outcome must reach the counterparties even if the caller gave up
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), distributionTimeout)
	defer cancel()
	for _, js := range sessions {
		if js == nil {
			continue
		}
		if err := js.SendWithContext(ctx, outcome); err != nil {
			logger.Warnf("failed delivering outcome on session [%s]: %s", js.Info().ID, err)
		}
		js.Session().Close()
	}
}

// ReceiveOutcomeView is executed by a responder after EndorseView.
// It waits for the outcome of the transaction it endorsed.
type ReceiveOutcomeView struct {
	state   *EndorsementState
	vp      driver.VerifierProvider
	timeout time.Duration
	metrics *Metrics
	// recovery, if set, asks the authority for the outcome the initiator did not deliver
	recovery *FinalityView
}

func NewReceiveOutcomeView(state *EndorsementState, vp driver.VerifierProvider, timeout time.Duration, metrics *Metrics) *ReceiveOutcomeView {
	if metrics == nil {
		metrics = NewDisabledMetrics()
	}
	return &ReceiveOutcomeView{state: state, vp: vp, timeout: timeout, metrics: metrics}
}

// WithRecovery makes the view query the authority through f when the initiator
// closes the session, stalls, or delivers an invalid receipt.
func (r *ReceiveOutcomeView) WithRecovery(f *FinalityView) *ReceiveOutcomeView {
	r.recovery = f
	return r
}

// Call returns the verified receipt.
// If the initiator aborted, the state is discarded and the error matches ErrAbortedByInitiator.
// If no valid outcome arrives, the state is discarded unless the recovery view finds the transaction final.
func (r *ReceiveOutcomeView) Call(ctx context.Context, js *session.JSONSession) (*Receipt, error) {
	txID := r.state.TxID()
	outcome := &Outcome{}
	if err := js.ReceiveWithTimeout(outcome, r.timeout); err != nil {
		return r.recoverOutcome(ctx, errors.Wrapf(ErrFinalizationUnknown, "no outcome received: %s", err))
	}
	if outcome.Receipt == nil {
		r.discard(ctx)
		return nil, NewProtocolError(Signed, txID, errors.Wrapf(ErrAbortedByInitiator, "%s", outcome.Abort))
	}
	if err := VerifyReceipt(ctx, outcome.Receipt, r.state.Transaction(), r.vp); err != nil {
		return r.recoverOutcome(ctx, errors.Wrapf(ErrFinalizationUnknown, "invalid receipt: %s", err))
	}
	return r.final(outcome.Receipt), nil
}

func (r *ReceiveOutcomeView) recoverOutcome(ctx context.Context, cause error) (*Receipt, error) {
	txID := r.state.TxID()
	if r.recovery == nil {
		r.discard(ctx)
		return nil, NewProtocolError(Signed, txID, cause)
	}
	logger.Infof("querying the authority for the outcome of [%s]: %s", txID, cause)
	receipt, err := r.recovery.Recover(ctx, r.state.Transaction())
	if err != nil {
		r.discard(ctx)
		return nil, err
	}
	return r.final(receipt), nil
}

func (r *ReceiveOutcomeView) final(receipt *Receipt) *Receipt {
	r.metrics.FinalizedTransactions.With("role", ResponderRole).Add(1)
	logger.Debugf("transaction [%s] final", r.state.TxID())
	return receipt
}

func (r *ReceiveOutcomeView) discard(ctx context.Context) {
	r.state.Abort(ctx)
	r.metrics.aborted(ResponderRole, Signed)
}
