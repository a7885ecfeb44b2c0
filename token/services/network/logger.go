/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package network

import "github.com/hyperledger-labs/token-issuance-sdk/token/services/logging"

var logger = logging.MustGetLogger("token-sdk.network")
