/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/rest"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/ttx"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var owner = token.NewIdentity("owner", []byte("owner-pk"))

type directory map[string]token.Identity

func (d directory) Lookup(name string) (token.Identity, bool) {
	id, ok := d[name]
	return id, ok
}

type fakeIssuer struct {
	err      error
	receipts map[string]*ttx.Receipt
	issued   []int64
}

func (f *fakeIssuer) IssueTokens(_ context.Context, o token.Identity, amount int64) (*ttx.Receipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.issued = append(f.issued, amount)
	return receipt(o, amount), nil
}

func (f *fakeIssuer) Receipt(_ context.Context, txID string) (*ttx.Receipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.receipts[txID], nil
}

func receipt(o token.Identity, amount int64) *ttx.Receipt {
	return &ttx.Receipt{
		Transaction: &ttx.SignedTransaction{Transaction: &ttx.Transaction{
			ID:      "tx1",
			Outputs: []token.Record{token.NewRecord(token.NewIdentity("issuer", []byte("issuer-pk")), o, uint64(amount))},
		}},
		Attestation: &ttx.Attestation{Notary: token.NewIdentity("notary", []byte("notary-pk")), Signature: []byte("sigma")},
	}
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestIssue(t *testing.T) {
	issuer := &fakeIssuer{}
	h := rest.NewHandler(issuer, directory{"owner": owner}, nil)

	w := do(t, h, http.MethodPost, "/v1/issue", rest.IssueRequest{Owner: "owner", Amount: 100})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	response := &rest.IssueResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), response))
	assert.Equal(t, "tx1", response.TxID)
	assert.Equal(t, uint64(100), response.Receipt.Transaction.Transaction.Outputs[0].Amount)
	assert.True(t, response.Receipt.Transaction.Transaction.Outputs[0].Owner.Equal(owner))
	assert.Equal(t, []int64{100}, issuer.issued)
}

func TestIssueBadRequests(t *testing.T) {
	issuer := &fakeIssuer{}
	h := rest.NewHandler(issuer, directory{"owner": owner}, nil)

	w := do(t, h, http.MethodPost, "/v1/issue", map[string]interface{}{"amount": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/v1/issue", rest.IssueRequest{Owner: "mallory", Amount: 10})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "unknown owner [mallory]")
	assert.Empty(t, issuer.issued)
}

func TestIssueErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		retryable bool
		phase     string
	}{
		{
			name:   "invalid amount",
			err:    ttx.NewProtocolError(ttx.Building, "", errors.Wrap(ttx.ErrInvalidAmount, "amount must be positive")),
			status: http.StatusBadRequest,
			phase:  "Building",
		},
		{
			name:   "counterparty rejected",
			err:    ttx.NewProtocolError(ttx.AwaitingCountersignature, "tx1", errors.Wrap(ttx.ErrCounterpartyRejected, "refused")),
			status: http.StatusUnprocessableEntity,
			phase:  "AwaitingCountersignature",
		},
		{
			name:      "endorsement timeout",
			err:       ttx.NewProtocolError(ttx.AwaitingCountersignature, "tx1", errors.Wrap(ttx.ErrEndorsementTimeout, "no answer")),
			status:    http.StatusServiceUnavailable,
			retryable: true,
			phase:     "AwaitingCountersignature",
		},
		{
			name:   "finalization rejected",
			err:    ttx.NewProtocolError(ttx.FullySigned, "tx1", errors.Wrap(ttx.ErrFinalizationRejected, "conflict")),
			status: http.StatusConflict,
			phase:  "FullySigned",
		},
		{
			name:   "finalization unknown",
			err:    ttx.NewProtocolError(ttx.FullySigned, "tx1", errors.Wrap(ttx.ErrFinalizationUnknown, "no answer")),
			status: http.StatusGatewayTimeout,
			phase:  "FullySigned",
		},
		{
			name:   "other",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := rest.NewHandler(&fakeIssuer{err: tc.err}, directory{"owner": owner}, nil)
			w := do(t, h, http.MethodPost, "/v1/issue", rest.IssueRequest{Owner: "owner", Amount: 1})
			assert.Equal(t, tc.status, w.Code)
			response := &rest.ErrorResponse{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), response))
			assert.Equal(t, tc.err.Error(), response.Error)
			assert.Equal(t, tc.retryable, response.Retryable)
			assert.Equal(t, tc.phase, response.Phase)
		})
	}
}

func TestGetTransaction(t *testing.T) {
	issuer := &fakeIssuer{receipts: map[string]*ttx.Receipt{"tx1": receipt(owner, 5)}}
	h := rest.NewHandler(issuer, directory{}, nil)

	w := do(t, h, http.MethodGet, "/v1/transactions/tx1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	response := &rest.IssueResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), response))
	assert.Equal(t, "tx1", response.Receipt.ID())

	w = do(t, h, http.MethodGet, "/v1/transactions/tx2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	h = rest.NewHandler(&fakeIssuer{err: errors.New("storage unavailable")}, directory{}, nil)
	w = do(t, h, http.MethodGet, "/v1/transactions/tx1", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetricsAndHealth(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "token_sdk_test_total", Help: "test"})
	registry.MustRegister(counter)
	counter.Inc()

	h := rest.NewHandler(&fakeIssuer{}, directory{}, registry)
	w := do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "token_sdk_test_total 1")

	w = do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, rest.NewHandler(&fakeIssuer{}, directory{}, nil), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

