/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "issuer", c.Identity.Name)
	assert.Equal(t, time.Minute, c.Endorsement.Timeout)
	assert.Equal(t, 10*time.Minute, c.Finality.Timeout)
	assert.Equal(t, 5, c.Finality.Attempts)
	assert.Equal(t, FirstNotary, c.Notary.Policy)
	assert.Equal(t, []string{"notary"}, c.Notary.Notaries)
	assert.Equal(t, "memory", c.Ledger.Driver)
	assert.Equal(t, []string{"owner"}, c.Parties)
	assert.True(t, c.Metrics.Enabled)
}

func TestLoadFile(t *testing.T) {
	c, err := Load("./testdata/core.yaml")
	require.NoError(t, err)
	assert.Equal(t, "alice", c.Identity.Name)
	assert.Equal(t, 30*time.Second, c.Endorsement.Timeout)
	assert.Equal(t, 2*time.Minute, c.Finality.Timeout)
	assert.Equal(t, 3, c.Finality.Attempts)
	assert.Equal(t, 500*time.Millisecond, c.Finality.Polling)
	assert.Equal(t, NamedNotary, c.Notary.Policy)
	assert.Equal(t, "notary2", c.Notary.Name)
	assert.Equal(t, []string{"notary1", "notary2"}, c.Notary.Notaries)
	assert.Equal(t, "sqlite", c.Ledger.Driver)
	assert.Equal(t, "./ledger.db", c.Ledger.DataSource)
	assert.Equal(t, []string{"bob", "charlie"}, c.Parties)
	// not in the file, default applies
	assert.Equal(t, "info", c.Logging.Spec)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TOKEN_LEDGER_DRIVER", "postgres")
	t.Setenv("TOKEN_LEDGER_DATASOURCE", "postgres://localhost/ledger")
	t.Setenv("TOKEN_ENDORSEMENT_TIMEOUT", "5s")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", c.Ledger.Driver)
	assert.Equal(t, "postgres://localhost/ledger", c.Ledger.DataSource)
	assert.Equal(t, 5*time.Second, c.Endorsement.Timeout)
}

func TestValidation(t *testing.T) {
	testCases := []struct {
		name          string
		settings      map[string]interface{}
		errorContains string
	}{
		{
			name:          "unknown policy",
			settings:      map[string]interface{}{"token.notary.policy": "random"},
			errorContains: "unknown notary policy [random]",
		},
		{
			name:          "named notary not configured",
			settings:      map[string]interface{}{"token.notary.policy": "named", "token.notary.name": "ghost"},
			errorContains: "notary [ghost] is not among the configured notaries [notary]",
		},
		{
			name:          "sqlite without datasource",
			settings:      map[string]interface{}{"token.ledger.driver": "sqlite"},
			errorContains: "ledger driver [sqlite] requires a datasource",
		},
		{
			name:          "unknown ledger",
			settings:      map[string]interface{}{"token.ledger.driver": "mongo"},
			errorContains: "unknown ledger driver [mongo]",
		},
		{
			name:          "zero timeout",
			settings:      map[string]interface{}{"token.endorsement.timeout": "0s"},
			errorContains: "endorsement timeout must be positive",
		},
		{
			name:          "no attempts",
			settings:      map[string]interface{}{"token.finality.attempts": 0},
			errorContains: "finality attempts must be positive",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tc.settings {
				v.Set(k, val)
			}
			_, err := FromViper(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errorContains)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "token.ledger.driver", Join(RootKey, "ledger", "driver"))
}
