package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/brojonat/coinguard/client"
	"github.com/urfave/cli/v2"
)

func redeemVerifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Ask the server whether a spending transaction redeems flagged coins",
		Description: `Describe the spending transaction with one --exploited flag per input that
spends a flagged coin and one --recipient flag per output.

Example:
  coinguard redeem verify \
    --exploited <txid>:76a914...88ac \
    --recipient 76a914248f2098599fc1c7750ea14fe9f8abb8b9704ae288ac:100000000000`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "exploited",
				Usage: "Exploited input as TXID:SCRIPTHEX[:AMOUNT] (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "recipient",
				Usage: "Output as SCRIPTHEX:AMOUNT (repeatable)",
			},
			jqFlag(),
		},
		Action: func(c *cli.Context) error {
			exploited := make([]client.RedeemInput, 0, len(c.StringSlice("exploited")))
			for _, raw := range c.StringSlice("exploited") {
				in, err := parseExploited(raw)
				if err != nil {
					return err
				}
				exploited = append(exploited, in)
			}

			recipients := make([]client.RedeemOutput, 0, len(c.StringSlice("recipient")))
			for _, raw := range c.StringSlice("recipient") {
				out, err := parseRecipient(raw)
				if err != nil {
					return err
				}
				recipients = append(recipients, out)
			}

			verdict, err := getClient(c).VerifyRedemption(c.Context, exploited, recipients)
			if err != nil {
				return err
			}

			return output(c, verdict, func(w io.Writer) {
				if verdict.Verified {
					fmt.Fprintf(w, "✓ Redemption verified (%s)\n", verdict.Reason)
				} else {
					fmt.Fprintf(w, "✗ Redemption rejected (%s)\n", verdict.Reason)
				}
				fmt.Fprintf(w, "  Required: %d (%s)\n", verdict.TotalExploited, verdict.TotalExploitedDisplay)
				fmt.Fprintf(w, "  Redeemed: %d\n", verdict.TotalRedeemed)
				if verdict.Index >= 0 {
					fmt.Fprintf(w, "  Index:    %d\n", verdict.Index)
				}
			})
		},
	}
}

// parseExploited parses TXID:SCRIPTHEX[:AMOUNT].
func parseExploited(raw string) (client.RedeemInput, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return client.RedeemInput{}, fmt.Errorf("invalid --exploited %q: want TXID:SCRIPTHEX[:AMOUNT]", raw)
	}
	if _, err := hex.DecodeString(parts[1]); err != nil {
		return client.RedeemInput{}, fmt.Errorf("invalid --exploited %q: script is not hex", raw)
	}

	in := client.RedeemInput{TxID: parts[0], Script: parts[1]}
	if len(parts) == 3 {
		amount, err := parseAmount(parts[2])
		if err != nil {
			return client.RedeemInput{}, fmt.Errorf("invalid --exploited %q: %w", raw, err)
		}
		in.Amount = amount
	}
	return in, nil
}

// parseRecipient parses SCRIPTHEX:AMOUNT.
func parseRecipient(raw string) (client.RedeemOutput, error) {
	script, rawAmount, ok := strings.Cut(raw, ":")
	if !ok {
		return client.RedeemOutput{}, fmt.Errorf("invalid --recipient %q: want SCRIPTHEX:AMOUNT", raw)
	}
	if _, err := hex.DecodeString(script); err != nil {
		return client.RedeemOutput{}, fmt.Errorf("invalid --recipient %q: script is not hex", raw)
	}
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return client.RedeemOutput{}, fmt.Errorf("invalid --recipient %q: %w", raw, err)
	}
	return client.RedeemOutput{Script: script, Amount: amount}, nil
}

func parseAmount(s string) (int64, error) {
	amount, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not an integer", s)
	}
	if amount < 0 {
		return 0, fmt.Errorf("amount cannot be negative")
	}
	return amount, nil
}
