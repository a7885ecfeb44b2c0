/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLoggerName(t *testing.T) {
	assert.Equal(t, "token-sdk.ttx", loggerName("token-sdk", "", "ttx"))
	assert.Equal(t, "", loggerName())
}

func TestLevels(t *testing.T) {
	Init(Config{Spec: "token-sdk.test=debug:warning"})
	defer Init(Config{Spec: "info"})

	assert.True(t, MustGetLogger("token-sdk", "test").IsEnabledFor(zapcore.DebugLevel))
	assert.False(t, MustGetLogger("token-sdk", "other").IsEnabledFor(zapcore.InfoLevel))
}

func TestHashable(t *testing.T) {
	assert.Equal(t, "", Hashable(nil).String())
	assert.Equal(t, Hashable("abc").String(), Hashable("abc").String())
	assert.NotEqual(t, Hashable("abc").String(), Hashable("abd").String())
	assert.Equal(t, "short", Prefix("short").String())
	assert.Equal(t, "0123456789abcdefghij~", Prefix("0123456789abcdefghijklmn").String())
}
