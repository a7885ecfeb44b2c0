/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx_test

import (
	"testing"

	"github.com/hyperledger-labs/token-issuance-sdk/token/services/ttx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocolError(t *testing.T) {
	err := ttx.NewProtocolError(ttx.AwaitingCountersignature, "tx1", errors.Wrapf(ttx.ErrEndorsementTimeout, "no answer"))
	assert.EqualError(t, err, "transaction [tx1] failed in phase [AwaitingCountersignature]: no answer: endorsement timeout")
	assert.ErrorIs(t, err, ttx.ErrEndorsementTimeout)
	assert.True(t, ttx.Retryable(err))

	var pe *ttx.ProtocolError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ttx.AwaitingCountersignature, pe.Phase)

	// the innermost phase is kept
	wrapped := ttx.NewProtocolError(ttx.Building, "tx1", errors.WithMessage(err, "issue failed"))
	require.True(t, errors.As(wrapped, &pe))
	assert.Equal(t, ttx.AwaitingCountersignature, pe.Phase)

	assert.Nil(t, ttx.NewProtocolError(ttx.Building, "", nil))
	assert.False(t, ttx.Retryable(ttx.NewProtocolError(ttx.FullySigned, "tx1", ttx.ErrFinalizationUnknown)))
	assert.False(t, ttx.Retryable(ttx.ErrCounterpartyRejected))
}
