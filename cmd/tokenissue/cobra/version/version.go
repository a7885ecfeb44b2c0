/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// ProgramName is the name of this program
const ProgramName = "tokenissue"

// Version is set at build time
var Version = "latest"

// Cmd returns the Cobra Command for Version
func Cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print current version of tokenissue.",
		Long:  "Print current version of tokenissue.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("trailing args detected")
			}
			// Parsing of the command line is done so silence cmd usage
			cmd.SilenceUsage = true
			cmd.Print(GetInfo())
			return nil
		},
	}
}

// GetInfo returns version information for the tokenissue program.
func GetInfo() string {
	return fmt.Sprintf("%s:\n Version: %s\n Go version: %s\n OS/Arch: %s\n",
		ProgramName, Version, runtime.Version(),
		fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH))
}
