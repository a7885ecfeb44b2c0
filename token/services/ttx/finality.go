/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"context"
	"time"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/validator"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

// FinalityView submits a fully signed transaction to its ordering authority and waits for the receipt.
// Submission is idempotent on the authority side, therefore after an ambiguous failure the view
// queries the status of the transaction and submits it again only if the authority never saw it.
type FinalityView struct {
	ordering driver.OrderingService
	vp       driver.VerifierProvider
	opts     *FinalityOpts
}

func NewFinalityView(ordering driver.OrderingService, vp driver.VerifierProvider, opts ...FinalityOpt) (*FinalityView, error) {
	o, err := CompileFinalityOpts(opts...)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed compiling options")
	}
	return &FinalityView{ordering: ordering, vp: vp, opts: o}, nil
}

// Call returns the verified receipt of tx.
// It fails with ErrFinalizationRejected if the authority refused tx,
// and with ErrFinalizationUnknown if the outcome could not be determined.
func (f *FinalityView) Call(ctx context.Context, tx *SignedTransaction) (*Receipt, error) {
	txID := tx.ID()
	span := trace.SpanFromContext(ctx)
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	var lastErr error
	submit := true
	for attempt := 1; attempt <= f.opts.Attempts; attempt++ {
		if submit {
			span.AddEvent("submit")
			receipt, err := f.ordering.Submit(ctx, tx)
			if err == nil {
				return f.accept(ctx, tx, receipt)
			}
			if errors.Is(err, driver.ErrRejected) {
				return nil, f.rejected(txID, err)
			}
			lastErr = err
			logger.Warnf("submission of [%s] failed, attempt [%d/%d], checking status: %s", txID, attempt, f.opts.Attempts, err)
		}

		if err := f.pause(ctx); err != nil {
			lastErr = err
			break
		}
		span.AddEvent("query_status")
		status, receipt, err := f.ordering.Status(ctx, txID)
		if err != nil {
			// the authority might have finalized tx, a new submission returns its receipt
			lastErr = err
			submit = false
			logger.Warnf("status of [%s] unavailable, attempt [%d/%d]: %s", txID, attempt, f.opts.Attempts, err)
			continue
		}
		if logger.IsEnabledFor(zapcore.DebugLevel) {
			logger.Debugf("status of [%s]: [%s]", txID, status)
		}
		switch status {
		case driver.Finalized:
			return f.accept(ctx, tx, receipt)
		case driver.Rejected:
			return nil, f.rejected(txID, errors.Errorf("authority reports [%s] as rejected", txID))
		default:
			submit = true
		}
	}
	f.opts.Metrics.aborted(InitiatorRole, FullySigned)
	return nil, NewProtocolError(FullySigned, txID, errors.Wrapf(ErrFinalizationUnknown, "after [%d] attempts: %s", f.opts.Attempts, lastErr))
}

// Recover queries the authority for the outcome of tx without submitting it.
// Responders use it when the initiator could not deliver the outcome.
// It fails with ErrFinalizationRejected if the authority refused tx,
// and with ErrFinalizationUnknown if the authority does not report tx as final within the configured attempts.
func (f *FinalityView) Recover(ctx context.Context, tx *Transaction) (*Receipt, error) {
	span := trace.SpanFromContext(ctx)
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	var lastErr error
	for attempt := 1; attempt <= f.opts.Attempts; attempt++ {
		if attempt > 1 {
			if err := f.pause(ctx); err != nil {
				lastErr = err
				break
			}
		}
		span.AddEvent("recover_status")
		status, receipt, err := f.ordering.Status(ctx, tx.ID)
		if err != nil {
			lastErr = err
			logger.Warnf("status of [%s] unavailable, attempt [%d/%d]: %s", tx.ID, attempt, f.opts.Attempts, err)
			continue
		}
		switch status {
		case driver.Finalized:
			if err := VerifyReceipt(ctx, receipt, tx, f.vp); err != nil {
				return nil, NewProtocolError(Signed, tx.ID, errors.Wrapf(ErrFinalizationUnknown, "invalid receipt: %s", err))
			}
			return receipt, nil
		case driver.Rejected:
			return nil, NewProtocolError(Signed, tx.ID, errors.Wrapf(ErrFinalizationRejected, "authority reports [%s] as rejected", tx.ID))
		default:
			lastErr = errors.Errorf("authority does not know [%s]", tx.ID)
		}
	}
	return nil, NewProtocolError(Signed, tx.ID, errors.Wrapf(ErrFinalizationUnknown, "after [%d] status queries: %s", f.opts.Attempts, lastErr))
}

func (f *FinalityView) pause(ctx context.Context) error {
	if f.opts.Polling <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(f.opts.Polling)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (f *FinalityView) accept(ctx context.Context, tx *SignedTransaction, receipt *Receipt) (*Receipt, error) {
	if err := VerifyReceipt(ctx, receipt, tx.Transaction, f.vp); err != nil {
		return nil, NewProtocolError(FullySigned, tx.ID(), errors.Wrapf(ErrFinalizationUnknown, "invalid receipt: %s", err))
	}
	f.opts.Metrics.FinalizedTransactions.With("role", InitiatorRole).Add(1)
	return receipt, nil
}

func (f *FinalityView) rejected(txID string, err error) error {
	f.opts.Metrics.aborted(InitiatorRole, FullySigned)
	return NewProtocolError(FullySigned, txID, errors.Wrapf(ErrFinalizationRejected, "%s", err))
}

// VerifyReceipt checks that receipt finalizes expected and carries a valid attestation of the expected notary
func VerifyReceipt(ctx context.Context, receipt *Receipt, expected *Transaction, vp driver.VerifierProvider) error {
	if receipt == nil || receipt.Transaction == nil || receipt.Transaction.Transaction == nil || receipt.Attestation == nil {
		return errors.New("incomplete receipt")
	}
	tx := receipt.Transaction.Transaction
	if err := tx.CheckID(); err != nil {
		return err
	}
	if tx.ID != expected.ID {
		return errors.Errorf("receipt is for [%s], expected [%s]", tx.ID, expected.ID)
	}
	if !receipt.Attestation.Notary.Equal(expected.Notary) {
		return errors.Errorf("receipt attested by [%s], expected [%s]", receipt.Attestation.Notary, expected.Notary)
	}
	raw, err := receipt.Transaction.MarshalToAttest()
	if err != nil {
		return errors.Wrapf(err, "failed marshalling receipt")
	}
	return validator.VerifySignature(ctx, vp, receipt.Attestation.Notary, raw, receipt.Attestation.Signature)
}
