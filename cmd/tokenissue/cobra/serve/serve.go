/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package serve

import (
	"fmt"
	"os"
	"syscall"

	"github.com/hyperledger-labs/token-issuance-sdk/cmd/tokenissue/cobra/node"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/logging"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/rest"
	"github.com/spf13/cobra"
	"github.com/tedsuo/ifrit"
	"github.com/tedsuo/ifrit/grouper"
	"github.com/tedsuo/ifrit/sigmon"
)

var logger = logging.MustGetLogger("tokenissue.serve")

// ConfigFile is the configuration of the node, optional
var ConfigFile string

// Cmd returns the Cobra Command for Serve
func Cmd() *cobra.Command {
	cmd.Flags().StringVarP(&ConfigFile, "config", "c", "", "path of the configuration file")
	return cmd
}

var cmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the issuance REST API.",
	Long:  "Assembles the node and exposes issuance, receipt lookup, and metrics over HTTP until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 {
			return fmt.Errorf("trailing args detected")
		}
		// Parsing of the command line is done so silence cmd usage
		cmd.SilenceUsage = true
		return Serve(ConfigFile)
	},
}

// Serve runs the REST server of the node described by the passed configuration until SIGINT or SIGTERM
func Serve(path string) error {
	n, err := node.New(path)
	if err != nil {
		return err
	}
	defer func() { _ = n.Close() }()

	server := rest.NewServer(n.Config.REST.Address, rest.NewHandler(n.Issuer, n.Directory, n.Registry))
	members := grouper.Members{{Name: "rest", Runner: server}}
	logger.Infof("starting [%s] on [%s]", n.Config.Identity.Name, n.Config.REST.Address)
	process := ifrit.Invoke(sigmon.New(grouper.NewOrdered(os.Interrupt, members), syscall.SIGTERM))
	return <-process.Wait()
}
