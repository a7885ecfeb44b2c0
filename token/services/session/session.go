/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"context"
)

// Status is the status of a message
type Status int32

const (
	// OK marks a message carrying a regular payload
	OK Status = iota + 1
	// ERROR marks a message carrying the description of a remote failure
	ERROR
)

// Message is what travels on a session
type Message struct {
	SessionID string
	ContextID string
	Caller    string
	FromParty string
	Status    Status
	Payload   []byte
}

// Info describes a session
type Info struct {
	ID       string
	Caller   string
	Endpoint string
	Closed   bool
}

// Session is a bidirectional, ordered, message oriented channel between two parties
type Session interface {
	Info() Info
	// Send sends the payload to the other end
	Send(payload []byte) error
	// SendWithContext sends the payload to the other end, giving up when the context is done
	SendWithContext(ctx context.Context, payload []byte) error
	// SendError sends an error message to the other end
	SendError(payload []byte) error
	// Receive returns the channel messages from the other end are delivered to
	Receive() <-chan *Message
	// Close closes the session. Sending on a closed session fails
	Close()
}
