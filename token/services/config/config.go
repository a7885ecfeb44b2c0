/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// RootKey is the root of the token configuration, it also prefixes environment variables
const RootKey = "token"

const (
	// FirstNotary selects the first notary of the configured list
	FirstNotary = "first"
	// NamedNotary selects the notary whose name is configured explicitly
	NamedNotary = "named"
)

// Identity configures the long term identity of this node
type Identity struct {
	// Name is the name carried by the identity
	Name string `mapstructure:"name"`
	// Seed is the hex encoded ed25519 seed, a random key is generated when empty
	Seed string `mapstructure:"seed"`
}

// Endorsement configures the collection of counterparty signatures
type Endorsement struct {
	// Timeout bounds the wait for each counterparty's answer
	Timeout time.Duration `mapstructure:"timeout"`
}

// Finality configures the interaction with the ordering authority
type Finality struct {
	// Timeout bounds the whole finalization, including status re-queries
	Timeout time.Duration `mapstructure:"timeout"`
	// Attempts bounds the number of status re-queries after an ambiguous failure
	Attempts int `mapstructure:"attempts"`
	// Polling is the delay between two status re-queries
	Polling time.Duration `mapstructure:"polling"`
}

// Notary configures the choice of the ordering authority
type Notary struct {
	// Policy is either FirstNotary or NamedNotary
	Policy string `mapstructure:"policy"`
	// Name is the notary to use when Policy is NamedNotary
	Name string `mapstructure:"name"`
	// Notaries is the ordered list of trusted notaries
	Notaries []string `mapstructure:"notaries"`
}

// Ledger configures the storage of finalized transactions
type Ledger struct {
	// Driver is one of memory, sqlite, postgres
	Driver string `mapstructure:"driver"`
	// DataSource is the driver specific connection string
	DataSource string `mapstructure:"datasource"`
	// MaxOpenConns bounds the connection pool of sql drivers, 0 means driver default
	MaxOpenConns int `mapstructure:"maxOpenConns"`
}

type Logging struct {
	Spec   string `mapstructure:"spec"`
	Format string `mapstructure:"format"`
}

type Metrics struct {
	Enabled bool `mapstructure:"enabled"`
}

type REST struct {
	Address string `mapstructure:"address"`
}

// Configuration is the configuration of a token node
type Configuration struct {
	Identity    Identity    `mapstructure:"identity"`
	Endorsement Endorsement `mapstructure:"endorsement"`
	Finality    Finality    `mapstructure:"finality"`
	Notary      Notary      `mapstructure:"notary"`
	Ledger      Ledger      `mapstructure:"ledger"`
	Logging     Logging     `mapstructure:"logging"`
	Metrics     Metrics     `mapstructure:"metrics"`
	REST        REST        `mapstructure:"rest"`
	// Parties are the counterparties hosted by the local in-process network
	Parties []string `mapstructure:"parties"`
}

var defaults = map[string]interface{}{
	"identity.name":       "issuer",
	"identity.seed":       "",
	"endorsement.timeout": time.Minute,
	"finality.timeout":    10 * time.Minute,
	"finality.attempts":   5,
	"finality.polling":    time.Second,
	"notary.policy":       FirstNotary,
	"notary.name":         "",
	"notary.notaries":     []string{"notary"},
	"ledger.driver":       "memory",
	"ledger.datasource":   "",
	"ledger.maxOpenConns": 0,
	"logging.spec":        "info",
	"logging.format":      "",
	"metrics.enabled":     true,
	"rest.address":        ":8080",
	"parties":             []string{"owner"},
}

// Load reads the configuration from the passed file, if any, and from the environment.
// Environment variables are prefixed with TOKEN, e.g. TOKEN_LEDGER_DRIVER.
func Load(path string) (*Configuration, error) {
	v := viper.New()
	if len(path) != 0 {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed reading configuration from [%s]", path)
		}
	}
	return FromViper(v)
}

// FromViper extracts the configuration from the passed viper instance
func FromViper(v *viper.Viper) (*Configuration, error) {
	for key, value := range defaults {
		v.SetDefault(Join(RootKey, key), value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	c := &Configuration{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           c,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed creating configuration decoder")
	}
	if err := decoder.Decode(v.AllSettings()[RootKey]); err != nil {
		return nil, errors.Wrap(err, "failed decoding configuration")
	}
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Join joins configuration keys
func Join(keys ...string) string {
	return strings.Join(keys, ".")
}
