/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"context"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/session"
	"github.com/hyperledger-labs/token-issuance-sdk/token/validator"
	"github.com/pkg/errors"
)

// EndorseView is executed by a responder.
// It receives a signature request from CollectEndorsementsView, verifies the proposal independently,
// and answers with its signature or with the reason it refuses to sign.
type EndorseView struct {
	sigService driver.SigService
	validator  driver.Validator
	opts       *EndorseOpts
}

func NewEndorseView(sigService driver.SigService, validator driver.Validator, opts ...EndorseOpt) (*EndorseView, error) {
	o, err := CompileEndorseOpts(opts...)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed compiling options")
	}
	return &EndorseView{
		sigService: sigService,
		validator:  validator,
		opts:       o,
	}, nil
}

// Call handles one signature request on the passed session.
// Here are the steps:
// - Reception of the proposal
// - Verification: transaction id, rules, signer, initiator signatures, business checks
// - Signature
// - Answer
func (e *EndorseView) Call(ctx context.Context, js *session.JSONSession) (*EndorsementState, error) {
	request := &SignatureRequest{}
	if err := js.ReceiveWithTimeout(request, e.opts.Timeout); err != nil {
		e.opts.Metrics.aborted(ResponderRole, AwaitingProposal)
		return nil, NewProtocolError(AwaitingProposal, "", errors.WithMessagef(err, "failed receiving signature request"))
	}
	if request.Transaction == nil {
		err := errors.Wrapf(ErrInvalidInput, "signature request carries no transaction")
		e.refuse(js, err)
		e.opts.Metrics.aborted(ResponderRole, AwaitingProposal)
		return nil, NewProtocolError(AwaitingProposal, "", err)
	}

	state := NewResponderState(request.Transaction)
	if err := state.Transition(ctx, Verifying); err != nil {
		return nil, e.abort(ctx, js, state, AwaitingProposal, err)
	}
	if err := e.verify(ctx, state, request); err != nil {
		return nil, e.abort(ctx, js, state, Verifying, err)
	}

	if err := state.Transition(ctx, Signing); err != nil {
		return nil, e.abort(ctx, js, state, Verifying, err)
	}
	sigma, err := e.sign(ctx, state, request.Signer)
	if err != nil {
		return nil, e.abort(ctx, js, state, Signing, err)
	}
	if err := state.Transition(ctx, Signed); err != nil {
		return nil, e.abort(ctx, js, state, Signing, err)
	}

	response := &SignatureResponse{Signer: request.Signer, Signature: sigma}
	if err := js.SendWithContext(ctx, response); err != nil {
		state.Abort(ctx)
		e.opts.Metrics.aborted(ResponderRole, Signed)
		return nil, NewProtocolError(Signed, state.TxID(), errors.Wrapf(err, "failed sending signature back"))
	}
	e.opts.Metrics.EndorsedTransactions.With("role", ResponderRole).Add(1)
	logger.Debugf("transaction [%s] endorsed as [%s]", state.TxID(), request.Signer)
	return state, nil
}

// verify never trusts the initiator: every check is run on the received content
func (e *EndorseView) verify(ctx context.Context, state *EndorsementState, request *SignatureRequest) error {
	tx := state.Transaction()
	if err := e.validator.Verify(ctx, tx); err != nil {
		return err
	}
	if !tx.Command.HasSigner(request.Signer) {
		return errors.Wrapf(ErrInvalidInput, "[%s] is not a required signer", request.Signer)
	}
	if !e.sigService.IsMe(ctx, request.Signer) {
		return errors.Wrapf(ErrInvalidInput, "[%s] is not a local identity", request.Signer)
	}

	if len(request.Signatures) == 0 {
		return errors.Wrapf(ErrInvalidInput, "the initiator did not sign")
	}
	raw, err := tx.MarshalToSign()
	if err != nil {
		return errors.Wrapf(err, "failed marshalling transaction")
	}
	for _, sig := range request.Signatures {
		if sig == nil || sig.Signer.Equal(request.Signer) {
			return errors.Wrapf(ErrInvalidInput, "unexpected signature in request")
		}
		if !tx.Command.HasSigner(sig.Signer) {
			return errors.Wrapf(ErrInvalidInput, "signature by [%s], not a required signer", sig.Signer)
		}
		if err := validator.VerifySignature(ctx, e.sigService, sig.Signer, raw, sig.Value); err != nil {
			return err
		}
		if err := state.AddSignature(sig.Signer, sig.Value); err != nil {
			return err
		}
	}

	for _, check := range e.opts.Checks {
		if err := check(ctx, tx); err != nil {
			return errors.WithMessagef(err, "transaction check failed")
		}
	}
	return nil
}

func (e *EndorseView) sign(ctx context.Context, state *EndorsementState, signer Identity) ([]byte, error) {
	raw, err := state.Transaction().MarshalToSign()
	if err != nil {
		return nil, errors.Wrapf(err, "failed marshalling transaction")
	}
	s, err := e.sigService.GetSigner(ctx, signer)
	if err != nil {
		return nil, errors.WithMessagef(err, "cannot find signer for [%s]", signer)
	}
	sigma, err := s.Sign(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed signing transaction")
	}
	if err := state.AddSignature(signer, sigma); err != nil {
		return nil, err
	}
	return sigma, nil
}

func (e *EndorseView) refuse(js *session.JSONSession, err error) {
	if sendErr := js.SendError(err.Error()); sendErr != nil {
		logger.Warnf("failed sending refusal: %s", sendErr)
	}
}

func (e *EndorseView) abort(ctx context.Context, js *session.JSONSession, state *EndorsementState, phase Phase, err error) error {
	logger.Warnf("refusing to endorse [%s] in phase [%s]: %s", state.TxID(), phase, err)
	e.refuse(js, err)
	state.Abort(ctx)
	e.opts.Metrics.aborted(ResponderRole, phase)
	return NewProtocolError(phase, state.TxID(), err)
}
