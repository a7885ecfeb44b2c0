/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/identity"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/session"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/ttx"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/hyperledger-labs/token-issuance-sdk/token/validator"
	"github.com/stretchr/testify/require"
)

const outcomeTimeout = 5 * time.Second

// party is a node with its own keys
type party struct {
	id         *identity.SigningIdentity
	sigService *identity.Service
}

func newParty(t *testing.T, name string) *party {
	id, err := identity.NewSigningIdentity(name, "")
	require.NoError(t, err)
	s := identity.NewService()
	require.NoError(t, s.RegisterSigningIdentity(id))
	return &party{id: id, sigService: s}
}

func (p *party) Identity() token.Identity {
	return p.id.Identity
}

// serveEndorsements registers p on the network as a responder that endorses and waits for the outcome
func serveEndorsements(t *testing.T, n *session.LocalNetwork, p *party, results chan<- error, opts ...ttx.EndorseOpt) {
	view, err := ttx.NewEndorseView(p.sigService, validator.New(), opts...)
	require.NoError(t, err)
	n.Register(p.Identity(), func(ctx context.Context, s session.Session) error {
		js := session.NewJSON(ctx, s)
		state, err := view.Call(ctx, js)
		if err == nil {
			_, err = ttx.NewReceiveOutcomeView(state, p.sigService, outcomeTimeout, nil).Call(ctx, js)
		}
		if results != nil {
			results <- err
		}
		return err
	})
}

func verifiedState(t *testing.T, tx *ttx.Transaction) *ttx.EndorsementState {
	state := ttx.NewInitiatorState(tx)
	require.NoError(t, ttx.SelfVerify(context.Background(), state, validator.New()))
	return state
}

// attest plays the notary: it signs the signed transaction and returns the receipt
func attest(t *testing.T, notary *party, stx *ttx.SignedTransaction) *ttx.Receipt {
	raw, err := stx.MarshalToAttest()
	require.NoError(t, err)
	sigma, err := notary.id.Signer.Sign(raw)
	require.NoError(t, err)
	return &ttx.Receipt{
		Transaction: stx,
		Attestation: &ttx.Attestation{Notary: notary.Identity(), Signature: sigma},
	}
}

// tamperingNetwork changes the amount of every signature request on its way to the responder
type tamperingNetwork struct {
	session.Network
}

func (n *tamperingNetwork) NewSession(ctx context.Context, caller string, party token.Identity) (session.Session, error) {
	s, err := n.Network.NewSession(ctx, caller, party)
	if err != nil {
		return nil, err
	}
	return &tamperingSession{Session: s}, nil
}

type tamperingSession struct {
	session.Session
}

func (s *tamperingSession) SendWithContext(ctx context.Context, payload []byte) error {
	request := &ttx.SignatureRequest{}
	if err := json.Unmarshal(payload, request); err == nil && request.Transaction != nil && len(request.Transaction.Outputs) != 0 {
		request.Transaction.Outputs[0].Amount += 1000
		payload, _ = json.Marshal(request)
	}
	return s.Session.SendWithContext(ctx, payload)
}

// fakeOrdering scripts the answers of an ordering service
type fakeOrdering struct {
	submit func(ctx context.Context, tx *driver.SignedTransaction) (*driver.Receipt, error)
	status func(ctx context.Context, txID string) (driver.FinalityStatus, *driver.Receipt, error)

	submissions int
	queries     int
}

func (f *fakeOrdering) Submit(ctx context.Context, tx *driver.SignedTransaction) (*driver.Receipt, error) {
	f.submissions++
	return f.submit(ctx, tx)
}

func (f *fakeOrdering) Status(ctx context.Context, txID string) (driver.FinalityStatus, *driver.Receipt, error) {
	f.queries++
	return f.status(ctx, txID)
}
