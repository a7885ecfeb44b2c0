/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"context"
	"sync"

	"github.com/hashicorp/go-uuid"
	"github.com/pkg/errors"
)

// ErrClosed is returned when sending on a closed session
var ErrClosed = errors.New("session is closed")

const channelBuffer = 10

// LocalBidirectionalChannel connects two sessions (left and right) living in the same process
type LocalBidirectionalChannel struct {
	left  *localSession
	right *localSession
}

// NewLocalBidirectionalChannel creates a new bidirectional channel
func NewLocalBidirectionalChannel(caller string, contextID string, endpoint string) (*LocalBidirectionalChannel, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate session ID")
	}
	lr := make(chan *Message, channelBuffer)
	rl := make(chan *Message, channelBuffer)

	info := Info{
		ID:       id,
		Caller:   caller,
		Endpoint: endpoint,
	}
	return &LocalBidirectionalChannel{
		left: &localSession{
			contextID:    contextID,
			from:         caller,
			info:         info,
			readChannel:  rl,
			writeChannel: lr,
		},
		right: &localSession{
			contextID:    contextID,
			from:         endpoint,
			info:         info,
			readChannel:  lr,
			writeChannel: rl,
		},
	}, nil
}

// LeftSession returns the session of the caller
func (c *LocalBidirectionalChannel) LeftSession() Session {
	return c.left
}

// RightSession returns the session of the endpoint
func (c *LocalBidirectionalChannel) RightSession() Session {
	return c.right
}

type localSession struct {
	contextID    string
	from         string
	readChannel  chan *Message
	writeChannel chan *Message

	mu   sync.RWMutex
	info Info
}

func (s *localSession) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

func (s *localSession) Send(payload []byte) error {
	return s.SendWithContext(context.Background(), payload)
}

func (s *localSession) SendWithContext(ctx context.Context, payload []byte) error {
	return s.send(ctx, OK, payload)
}

func (s *localSession) SendError(payload []byte) error {
	return s.send(context.Background(), ERROR, payload)
}

func (s *localSession) send(ctx context.Context, status Status, payload []byte) error {
	info := s.Info()
	if info.Closed {
		return ErrClosed
	}
	msg := &Message{
		SessionID: info.ID,
		ContextID: s.contextID,
		Caller:    info.Caller,
		FromParty: s.from,
		Status:    status,
		Payload:   payload,
	}
	select {
	case s.writeChannel <- msg:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "failed sending on session [%s]", info.ID)
	}
}

func (s *localSession) Receive() <-chan *Message {
	if s.Info().Closed {
		return nil
	}
	return s.readChannel
}

func (s *localSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info.Closed = true
}
