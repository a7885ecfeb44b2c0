/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Step is a coarse grained progress notification of an issuance
type Step string

const (
	GeneratingTransaction Step = "generating_transaction"
	VerifyingTransaction  Step = "verifying_transaction"
	SigningTransaction    Step = "signing_transaction"
	GatheringSignatures   Step = "gathering_signatures"
	FinalisingTransaction Step = "finalising_transaction"
	Done                  Step = "done"
	Failed                Step = "aborted"
)

// ProgressListener is notified of the steps an issuance goes through.
// Notifications are for observability only, a listener cannot influence the protocol.
type ProgressListener interface {
	OnStep(ctx context.Context, txID string, step Step)
}

// ProgressListenerFunc adapts a function to a ProgressListener
type ProgressListenerFunc func(ctx context.Context, txID string, step Step)

func (f ProgressListenerFunc) OnStep(ctx context.Context, txID string, step Step) {
	f(ctx, txID, step)
}

// Progress forwards steps to an optional listener and to the span of the context
type Progress struct {
	listener ProgressListener
}

func NewProgress(listener ProgressListener) *Progress {
	return &Progress{listener: listener}
}

func (p *Progress) Step(ctx context.Context, txID string, step Step) {
	trace.SpanFromContext(ctx).AddEvent(string(step))
	logger.Debugf("transaction [%s]: step [%s]", txID, step)
	if p == nil || p.listener == nil {
		return
	}
	p.listener.OnStep(ctx, txID, step)
}
