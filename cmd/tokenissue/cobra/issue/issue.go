/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issue

import (
	"context"
	"fmt"

	"github.com/hyperledger-labs/token-issuance-sdk/cmd/tokenissue/cobra/node"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/ttx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

type Args struct {
	// ConfigFile is the configuration of the node, optional
	ConfigFile string
	// Owner is the name of the party receiving the tokens
	Owner string
	// Amount is the number of units to issue
	Amount int64
}

// Output is the summary of a finalized issuance
type Output struct {
	TxID   string `yaml:"tx_id"`
	Issuer string `yaml:"issuer"`
	Owner  string `yaml:"owner"`
	Amount uint64 `yaml:"amount"`
	Notary string `yaml:"notary"`
}

var args Args

// Cmd returns the Cobra Command for Issue
func Cmd() *cobra.Command {
	flags := cmd.Flags()
	flags.StringVarP(&args.ConfigFile, "config", "c", "", "path of the configuration file")
	flags.StringVarP(&args.Owner, "owner", "o", "", "name of the party receiving the tokens")
	flags.Int64VarP(&args.Amount, "amount", "a", 0, "number of units to issue")

	return cmd
}

var cmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue tokens to a counterparty.",
	Long:  "Runs a two-party issuance against an in-process counterparty and notary and prints the receipt.",
	RunE: func(cmd *cobra.Command, a []string) error {
		if len(a) != 0 {
			return fmt.Errorf("trailing args detected")
		}
		// Parsing of the command line is done so silence cmd usage
		cmd.SilenceUsage = true
		out, err := Issue(cmd.Context(), &args)
		if err != nil {
			return err
		}
		raw, err := yaml.Marshal(out)
		if err != nil {
			return errors.Wrap(err, "failed marshalling receipt")
		}
		cmd.Print(string(raw))
		return nil
	},
}

// Issue assembles the node described by the passed configuration and issues the tokens
func Issue(ctx context.Context, args *Args) (*Output, error) {
	if len(args.Owner) == 0 {
		return nil, errors.New("owner not set")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	n, err := node.New(args.ConfigFile)
	if err != nil {
		return nil, err
	}
	defer func() { _ = n.Close() }()

	owner, ok := n.Directory.Lookup(args.Owner)
	if !ok {
		return nil, errors.Errorf("unknown party [%s]", args.Owner)
	}
	receipt, err := n.Issuer.IssueTokens(ctx, owner, args.Amount)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed issuing [%d] to [%s]", args.Amount, args.Owner)
	}
	return output(receipt), nil
}

func output(receipt *ttx.Receipt) *Output {
	tx := receipt.Transaction.Transaction
	out := &Output{
		TxID:   receipt.ID(),
		Notary: receipt.Attestation.Notary.String(),
	}
	if len(tx.Outputs) != 0 {
		out.Issuer = tx.Outputs[0].Issuer.String()
		out.Owner = tx.Outputs[0].Owner.String()
		out.Amount = tx.Outputs[0].Amount
	}
	return out
}
