/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"os"
	"strings"

	"github.com/hyperledger/fabric-lib-go/common/flogging"
	"go.uber.org/zap/zapcore"
)

const loggerNameSeparator = "."

// Logger provides logging API
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	IsEnabledFor(level zapcore.Level) bool
}

// Config selects the active log levels and the output format
type Config struct {
	// Spec is a flogging spec, e.g. "info" or "token-sdk.ttx=debug:info"
	Spec string
	// Format is a flogging format string, empty for the default one
	Format string
}

// Init configures the global logging system
func Init(c Config) {
	flogging.Init(flogging.Config{
		Format:  c.Format,
		Writer:  os.Stderr,
		LogSpec: c.Spec,
	})
}

// MustGetLogger returns a logger whose name is the concatenation of the passed parts
func MustGetLogger(parts ...string) Logger {
	return flogging.MustGetLogger(loggerName(parts...))
}

func loggerName(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, part := range parts {
		if len(part) != 0 {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return strings.Join(nonEmpty, loggerNameSeparator)
}
