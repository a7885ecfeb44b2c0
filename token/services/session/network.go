/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc"
)

// ErrUnknownParty is returned when no handler is registered for a party
var ErrUnknownParty = errors.New("unknown party")

// Handler serves the responder end of a session
type Handler func(ctx context.Context, s Session) error

// Network opens sessions towards parties
type Network interface {
	// NewSession opens a session from caller towards party
	NewSession(ctx context.Context, caller string, party token.Identity) (Session, error)
}

// LocalNetwork connects parties living in the same process.
// Every new session starts the handler registered for the target party in its own goroutine.
type LocalNetwork struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup
	opened atomic.Int64

	mu       sync.RWMutex
	handlers map[string]registration
}

type registration struct {
	party   token.Identity
	handler Handler
}

func NewLocalNetwork() *LocalNetwork {
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalNetwork{
		ctx:      ctx,
		cancel:   cancel,
		handlers: map[string]registration{},
	}
}

// Register binds the handler that serves the sessions opened towards party
func (n *LocalNetwork) Register(party token.Identity, handler Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[party.UniqueID()] = registration{party: party, handler: handler}
	logger.Debugf("registered handler for [%s]", party)
}

func (n *LocalNetwork) NewSession(ctx context.Context, caller string, party token.Identity) (Session, error) {
	n.mu.RLock()
	r, ok := n.handlers[party.UniqueID()]
	n.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownParty, "no handler for [%s]", party)
	}
	if err := n.ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "network closed")
	}
	contextID, _ := ctx.Value(contextIDKey{}).(string)
	ch, err := NewLocalBidirectionalChannel(caller, contextID, party.String())
	if err != nil {
		return nil, err
	}
	n.opened.Add(1)
	right := ch.RightSession()
	n.wg.Go(func() {
		defer right.Close()
		if err := r.handler(n.ctx, right); err != nil {
			logger.Errorf("handler of [%s] failed on session [%s]: %s", r.party, right.Info().ID, err)
		}
	})
	logger.Debugf("opened session [%s] from [%s] to [%s]", right.Info().ID, caller, party)
	return ch.LeftSession(), nil
}

// Opened returns how many sessions have been opened so far
func (n *LocalNetwork) Opened() int {
	return int(n.opened.Load())
}

// Close cancels the handlers still running and waits for them to return
func (n *LocalNetwork) Close() {
	n.cancel()
	n.wg.Wait()
}

type contextIDKey struct{}

// WithContextID attaches to ctx the identifier of the protocol instance the sessions opened with it belong to
func WithContextID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextIDKey{}, id)
}
