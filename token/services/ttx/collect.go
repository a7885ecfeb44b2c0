/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"context"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/logging"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/session"
	"github.com/hyperledger-labs/token-issuance-sdk/token/validator"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/trace"
)

// SelfVerify runs the rule engine on the transaction of the passed initiator state.
// On success the state moves to SelfVerified, on failure it is aborted.
func SelfVerify(ctx context.Context, state *EndorsementState, v driver.Validator) error {
	if err := v.Verify(ctx, state.Transaction()); err != nil {
		state.Abort(ctx)
		return NewProtocolError(Building, state.TxID(), err)
	}
	return state.Transition(ctx, SelfVerified)
}

// Endorsements is the outcome of CollectEndorsementsView
type Endorsements struct {
	// Transaction carries the signatures of every required signer
	Transaction *SignedTransaction
	// Sessions are open towards the counterparties, they are used to deliver the outcome
	Sessions []*session.JSONSession
}

// CollectEndorsementsView is executed by the initiator of a transaction.
// It signs the transaction with every local required signer, then asks every remote
// required signer for its signature, in parallel, and collects the answers.
type CollectEndorsementsView struct {
	state      *EndorsementState
	caller     string
	network    session.Network
	sigService driver.SigService
	opts       *EndorsementsOpts
}

// NewCollectEndorsementsView returns a view that collects the endorsements for the transaction in state.
// The state must be SelfVerified.
func NewCollectEndorsementsView(state *EndorsementState, caller string, network session.Network, sigService driver.SigService, opts ...EndorsementsOpt) (*CollectEndorsementsView, error) {
	o, err := CompileCollectEndorsementsOpts(opts...)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed compiling options")
	}
	return &CollectEndorsementsView{
		state:      state,
		caller:     caller,
		network:    network,
		sigService: sigService,
		opts:       o,
	}, nil
}

func (c *CollectEndorsementsView) Call(ctx context.Context) (*Endorsements, error) {
	txID := c.state.TxID()
	if phase := c.state.Phase(); phase != SelfVerified {
		return nil, NewProtocolError(phase, txID, errors.Wrapf(ErrInvalidTransition, "cannot collect endorsements in phase [%s]", phase))
	}
	raw, err := c.state.Transaction().MarshalToSign()
	if err != nil {
		return nil, c.abort(ctx, SelfVerified, nil, errors.Wrapf(err, "failed marshalling transaction"))
	}

	if err := c.signLocally(ctx, raw); err != nil {
		return nil, c.abort(ctx, SelfVerified, nil, err)
	}
	if err := c.state.Transition(ctx, SelfSigned); err != nil {
		return nil, c.abort(ctx, SelfVerified, nil, err)
	}

	remote := c.state.Missing()
	if len(remote) == 0 {
		if err := c.state.Transition(ctx, FullySigned); err != nil {
			return nil, c.abort(ctx, SelfSigned, nil, err)
		}
		c.opts.Metrics.EndorsedTransactions.With("role", InitiatorRole).Add(1)
		return &Endorsements{Transaction: c.state.SignedTransaction()}, nil
	}
	if err := c.state.Transition(ctx, AwaitingCountersignature); err != nil {
		return nil, c.abort(ctx, SelfSigned, nil, err)
	}

	// every remote signer sees the initiator's signatures
	initiatorSignatures := c.state.Signatures()
	p := pool.NewWithResults[*session.JSONSession]().
		WithContext(ctx).
		WithFirstError().
		WithCancelOnError()
	for _, signer := range remote {
		p.Go(func(ctx context.Context) (*session.JSONSession, error) {
			return c.collectRemote(ctx, signer, raw, initiatorSignatures)
		})
	}
	sessions, err := p.Wait()
	if err != nil {
		return nil, c.abort(ctx, AwaitingCountersignature, sessions, err)
	}
	if missing := c.state.Missing(); len(missing) != 0 {
		return nil, c.abort(ctx, AwaitingCountersignature, sessions, errors.Wrapf(ErrCounterpartyRejected, "missing signatures from %v", missing))
	}
	if err := c.state.Transition(ctx, FullySigned); err != nil {
		return nil, c.abort(ctx, AwaitingCountersignature, sessions, err)
	}
	c.opts.Metrics.EndorsedTransactions.With("role", InitiatorRole).Add(1)
	return &Endorsements{
		Transaction: c.state.SignedTransaction(),
		Sessions:    sessions,
	}, nil
}

func (c *CollectEndorsementsView) signLocally(ctx context.Context, raw []byte) error {
	signed := 0
	for _, signer := range c.state.Transaction().Command.Signers {
		if !c.sigService.IsMe(ctx, signer) {
			continue
		}
		s, err := c.sigService.GetSigner(ctx, signer)
		if err != nil {
			return errors.WithMessagef(err, "failed getting signer for [%s]", signer)
		}
		sigma, err := s.Sign(raw)
		if err != nil {
			return errors.Wrapf(err, "failed signing with [%s]", signer)
		}
		if err := c.state.AddSignature(signer, sigma); err != nil {
			return err
		}
		logger.Debugf("transaction [%s] signed by [%s]: [%s]", c.state.TxID(), signer, logging.Hashable(sigma))
		signed++
	}
	if signed == 0 {
		return errors.Wrapf(ErrInvalidInput, "no required signer of [%s] is local", c.state.TxID())
	}
	return nil
}

func (c *CollectEndorsementsView) collectRemote(ctx context.Context, signer Identity, raw []byte, signatures []*Signature) (*session.JSONSession, error) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent("collect_remote_" + signer.Name())
	txID := c.state.TxID()

	js, err := session.OpenJSON(ctx, c.network, c.caller, signer)
	if err != nil {
		return nil, errors.Wrapf(ErrEndorsementTimeout, "failed opening session to [%s]: %s", signer, err)
	}
	request := &SignatureRequest{
		Transaction: c.state.Transaction(),
		Signer:      signer,
		Signatures:  signatures,
	}
	if err := js.SendWithContext(ctx, request); err != nil {
		js.Session().Close()
		return nil, errors.Wrapf(ErrEndorsementTimeout, "failed sending signature request to [%s]: %s", signer, err)
	}

	response := &SignatureResponse{}
	if err := js.ReceiveWithTimeout(response, c.opts.Timeout); err != nil {
		js.Session().Close()
		return nil, classifyReceiveError(err, signer)
	}
	if !response.Signer.Equal(signer) {
		return nil, c.reject(ctx, js, errors.Wrapf(ErrCounterpartyRejected, "expected signature by [%s], got [%s]", signer, response.Signer))
	}
	if err := validator.VerifySignature(ctx, c.sigService, signer, raw, response.Signature); err != nil {
		return nil, c.reject(ctx, js, errors.Wrapf(ErrCounterpartyRejected, "%s", err))
	}
	if err := c.state.AddSignature(signer, response.Signature); err != nil {
		return nil, c.reject(ctx, js, errors.Wrapf(ErrCounterpartyRejected, "%s", err))
	}
	logger.Debugf("transaction [%s] endorsed by [%s]", txID, signer)
	span.AddEvent("collected_remote_" + signer.Name())
	return js, nil
}

// reject tells the counterparty its answer has been refused and closes the session
func (c *CollectEndorsementsView) reject(ctx context.Context, js *session.JSONSession, err error) error {
	DistributeAbort(ctx, []*session.JSONSession{js}, err.Error())
	js.Session().Close()
	return err
}

// abort discards the state, tells the counterparties that already answered, and wraps err with the phase
func (c *CollectEndorsementsView) abort(ctx context.Context, phase Phase, sessions []*session.JSONSession, err error) error {
	logger.Warnf("transaction [%s] aborted in phase [%s]: %s", c.state.TxID(), phase, err)
	c.state.Abort(ctx)
	c.opts.Metrics.aborted(InitiatorRole, phase)
	DistributeAbort(ctx, sessions, err.Error())
	return NewProtocolError(phase, c.state.TxID(), err)
}

// classifyReceiveError separates a counterparty that refused from one that did not answer
func classifyReceiveError(err error, signer Identity) error {
	var remote *session.RemoteError
	switch {
	case errors.As(err, &remote):
		return errors.Wrapf(ErrCounterpartyRejected, "[%s] refused: %s", signer, remote.Message)
	case errors.Is(err, session.ErrTimeout),
		errors.Is(err, session.ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return errors.Wrapf(ErrEndorsementTimeout, "no answer from [%s]: %s", signer, err)
	default:
		return errors.Wrapf(ErrCounterpartyRejected, "invalid answer from [%s]: %s", signer, err)
	}
}
