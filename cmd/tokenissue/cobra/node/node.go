/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package node

import (
	sdk "github.com/hyperledger-labs/token-issuance-sdk/token/sdk/dig"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/config"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/logging"
	"github.com/pkg/errors"
)

// New loads the configuration at path, the environment overriding it, and assembles the node it describes
func New(path string) (*sdk.Node, error) {
	c, err := config.Load(path)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed loading configuration")
	}
	logging.Init(logging.Config{Spec: c.Logging.Spec, Format: c.Logging.Format})

	p := sdk.NewSDK(c)
	if err := p.Install(); err != nil {
		return nil, err
	}
	return p.Node()
}
