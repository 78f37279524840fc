package main

import (
	"fmt"
	"io"

	"github.com/brojonat/coinguard/client"
	"github.com/urfave/cli/v2"
)

func coinCheckCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Check whether coins created by a transaction may be spent",
		ArgsUsage: "TXID",
		Flags:     []cli.Flag{jqFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("txid is required")
			}
			txid := c.Args().First()

			valid, err := getClient(c).IsCoinValid(c.Context, txid)
			if err != nil {
				return err
			}

			result := map[string]interface{}{"txid": txid, "valid": valid}
			return output(c, result, func(w io.Writer) {
				if valid {
					fmt.Fprintf(w, "✓ %s: coins are spendable\n", txid)
				} else {
					fmt.Fprintf(w, "✗ %s: coins are flagged\n", txid)
				}
			})
		},
	}
}

func infractionsGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "List the infraction records of a transaction",
		ArgsUsage: "TXID",
		Flags:     []cli.Flag{jqFlag()},
		Description: `Example:
  coinguard infractions get <txid> --jq '.[] | select(.amount > 100000000) | .address'`,
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("txid is required")
			}

			infractions, err := getClient(c).GetInfractions(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			return output(c, infractions, func(w io.Writer) { printInfractions(w, infractions) })
		},
	}
}

func infractionsByAddressCommand() *cli.Command {
	return &cli.Command{
		Name:      "by-address",
		Usage:     "List every infraction record paid to an address",
		ArgsUsage: "ADDRESS",
		Flags:     []cli.Flag{jqFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("address is required")
			}

			infractions, err := getClient(c).GetInfractionsByAddress(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			return output(c, infractions, func(w io.Writer) { printInfractions(w, infractions) })
		},
	}
}

func printInfractions(w io.Writer, infractions []client.Infraction) {
	if len(infractions) == 0 {
		fmt.Fprintln(w, "No infractions found")
		return
	}

	fmt.Fprintf(w, "Found %d infraction(s):\n\n", len(infractions))
	for _, inf := range infractions {
		fmt.Fprintf(w, "TxID:     %s\n", inf.TxID)
		fmt.Fprintf(w, "Address:  %s\n", inf.Address)
		fmt.Fprintf(w, "Amount:   %d (%s)\n", inf.Amount, inf.DisplayAmount)
		fmt.Fprintln(w)
	}
}
