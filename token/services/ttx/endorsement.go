/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

import (
	"bytes"
	"context"
	"sync"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
)

// EndorsementState is the view a party has of a transaction during endorsement:
// the transaction, the signatures collected so far, and the phase.
// Signatures are only appended, the signature of a signer is never replaced.
type EndorsementState struct {
	mu         sync.RWMutex
	tx         *Transaction
	signatures map[string]*Signature
	phase      Phase
}

// NewInitiatorState returns the state of the party that built tx
func NewInitiatorState(tx *Transaction) *EndorsementState {
	return newState(tx, Building)
}

// NewResponderState returns the state of a party asked to endorse tx
func NewResponderState(tx *Transaction) *EndorsementState {
	return newState(tx, AwaitingProposal)
}

func newState(tx *Transaction, phase Phase) *EndorsementState {
	return &EndorsementState{
		tx:         tx,
		signatures: map[string]*Signature{},
		phase:      phase,
	}
}

func (s *EndorsementState) Transaction() *Transaction {
	return s.tx
}

func (s *EndorsementState) TxID() string {
	if s.tx == nil {
		return ""
	}
	return s.tx.ID
}

func (s *EndorsementState) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Transition moves the state to the next phase, if allowed
func (s *EndorsementState) Transition(ctx context.Context, next Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.phase.CanTransition(next) {
		return errors.Wrapf(ErrInvalidTransition, "[%s] -> [%s]", s.phase, next)
	}
	logger.Debugf("transaction [%s]: [%s] -> [%s]", s.TxID(), s.phase, next)
	trace.SpanFromContext(ctx).AddEvent("phase_" + next.String())
	s.phase = next
	return nil
}

// Abort moves the state to Aborted and discards the signatures collected so far
func (s *EndorsementState) Abort(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == Aborted {
		return
	}
	logger.Debugf("transaction [%s]: [%s] -> [%s]", s.TxID(), s.phase, Aborted)
	trace.SpanFromContext(ctx).AddEvent("phase_" + Aborted.String())
	s.phase = Aborted
	s.signatures = map[string]*Signature{}
}

// AddSignature appends the signature of signer.
// Appending again the same signature is a no-op, a different one fails with ErrSignatureConflict.
func (s *EndorsementState) AddSignature(signer Identity, sigma []byte) error {
	if !s.tx.Command.HasSigner(signer) {
		return errors.Wrapf(ErrInvalidInput, "[%s] is not a required signer of [%s]", signer, s.TxID())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == Aborted {
		return errors.Wrapf(ErrInvalidTransition, "transaction [%s] aborted", s.TxID())
	}
	if existing, ok := s.signatures[signer.UniqueID()]; ok {
		if bytes.Equal(existing.Value, sigma) {
			return nil
		}
		return errors.Wrapf(ErrSignatureConflict, "[%s] already signed [%s]", signer, s.TxID())
	}
	s.signatures[signer.UniqueID()] = &Signature{
		Signer: signer,
		Value:  append([]byte(nil), sigma...),
	}
	return nil
}

// HasSignature returns true if the signature of signer has been collected
func (s *EndorsementState) HasSignature(signer Identity) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.signatures[signer.UniqueID()]
	return ok
}

// Missing returns the required signers whose signature has not been collected yet, in command order
func (s *EndorsementState) Missing() []Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Identity
	for _, signer := range s.tx.Command.Signers {
		if _, ok := s.signatures[signer.UniqueID()]; !ok {
			res = append(res, signer)
		}
	}
	return res
}

// Complete returns true if every required signer signed
func (s *EndorsementState) Complete() bool {
	return len(s.Missing()) == 0
}

// Signatures returns the signatures collected so far, sorted by signer
func (s *EndorsementState) Signatures() []*Signature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*Signature, 0, len(s.signatures))
	for _, sig := range s.signatures {
		res = append(res, sig)
	}
	driver.SortSignatures(res)
	return res
}

// SignedTransaction returns the transaction with the signatures collected so far.
// The result does not depend on the order the signatures were appended.
func (s *EndorsementState) SignedTransaction() *SignedTransaction {
	return &SignedTransaction{
		Transaction: s.tx,
		Signatures:  s.Signatures(),
	}
}
