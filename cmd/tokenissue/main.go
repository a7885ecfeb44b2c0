/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"os"

	"github.com/hyperledger-labs/token-issuance-sdk/cmd/tokenissue/cobra/issue"
	"github.com/hyperledger-labs/token-issuance-sdk/cmd/tokenissue/cobra/serve"
	"github.com/hyperledger-labs/token-issuance-sdk/cmd/tokenissue/cobra/version"
	"github.com/spf13/cobra"
)

// The main command describes the service and
// defaults to printing the help message.
var mainCmd = &cobra.Command{Use: "tokenissue"}

func main() {
	mainCmd.AddCommand(issue.Cmd())
	mainCmd.AddCommand(serve.Cmd())
	mainCmd.AddCommand(version.Cmd())

	// On failure Cobra prints the usage message and error string, so we only
	// need to exit with a non-0 status
	if mainCmd.Execute() != nil {
		os.Exit(1)
	}
}
