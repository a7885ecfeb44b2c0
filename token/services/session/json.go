/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperledger-labs/token-issuance-sdk/token/encoding/json"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/logging"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
)

const defaultReceiveTimeout = 10 * time.Second

// ErrTimeout is returned when no message arrives within the receive timeout
var ErrTimeout = errors.New("time out reached")

// RemoteError carries the error message sent by the other end of a session
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("received error from remote [%s]", e.Message)
}

// JSONSession exchanges json encoded values over a session
type JSONSession struct {
	s       Session
	context context.Context
}

func NewJSON(ctx context.Context, s Session) *JSONSession {
	return &JSONSession{s: s, context: ctx}
}

// OpenJSON opens a session from caller towards party and wraps it
func OpenJSON(ctx context.Context, network Network, caller string, party token.Identity) (*JSONSession, error) {
	s, err := network.NewSession(ctx, caller, party)
	if err != nil {
		return nil, err
	}
	return NewJSON(ctx, s), nil
}

func (j *JSONSession) Receive(state interface{}) error {
	return j.ReceiveWithTimeout(state, defaultReceiveTimeout)
}

func (j *JSONSession) ReceiveWithTimeout(state interface{}, d time.Duration) error {
	raw, err := j.ReceiveRawWithTimeout(d)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, state); err != nil {
		return errors.Wrap(err, "failed unmarshalling message")
	}
	return nil
}

func (j *JSONSession) ReceiveRaw() ([]byte, error) {
	return j.ReceiveRawWithTimeout(defaultReceiveTimeout)
}

// ReceiveRawWithTimeout waits for the next message.
// It fails with ErrTimeout when d elapses, with a RemoteError when the other end sent an error,
// and with the context error when the context is done.
func (j *JSONSession) ReceiveRawWithTimeout(d time.Duration) ([]byte, error) {
	span := trace.SpanFromContext(j.context)
	if j.s.Info().Closed {
		return nil, ErrClosed
	}
	timeout := time.NewTimer(d)
	defer timeout.Stop()

	span.AddEvent("wait_receive")
	var raw []byte
	select {
	case msg := <-j.s.Receive():
		span.AddEvent("received_message")
		if msg.Status == ERROR {
			return nil, &RemoteError{Message: string(msg.Payload)}
		}
		raw = msg.Payload
	case <-timeout.C:
		span.AddEvent("timeout")
		return nil, errors.Wrapf(ErrTimeout, "no message after [%s]", d)
	case <-j.context.Done():
		return nil, errors.Wrap(j.context.Err(), "context done")
	}
	logger.Debugf("json session, received message [%s]", logging.Hashable(raw))
	return raw, nil
}

func (j *JSONSession) Send(state interface{}) error {
	return j.SendWithContext(j.context, state)
}

func (j *JSONSession) SendWithContext(ctx context.Context, state interface{}) error {
	v, err := json.Marshal(state)
	if err != nil {
		return err
	}
	logger.Debugf("json session, send message [%s]", logging.Hashable(v))
	return j.s.SendWithContext(ctx, v)
}

func (j *JSONSession) SendError(err string) error {
	logger.Debugf("json session, send error [%s]", err)
	return j.s.SendError([]byte(err))
}

func (j *JSONSession) Session() Session {
	return j.s
}

func (j *JSONSession) Info() Info {
	return j.s.Info()
}
