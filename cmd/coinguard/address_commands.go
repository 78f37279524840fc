package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/brojonat/coinguard/service/address"
	"github.com/urfave/cli/v2"
)

func addressResolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve an output script to the address the guard would match",
		ArgsUsage: "SCRIPTHEX",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("script is required")
			}
			params, err := getNetwork(c)
			if err != nil {
				return err
			}

			script, err := hex.DecodeString(c.Args().First())
			if err != nil {
				return fmt.Errorf("script is not hex: %w", err)
			}

			addr, ok := address.NewScriptResolver(params.ChainConfig()).Resolve(script)
			result := map[string]interface{}{
				"network":    params.Name,
				"resolvable": ok,
				"address":    addr,
			}
			return output(c, result, func(w io.Writer) {
				if !ok {
					fmt.Fprintln(w, "✗ script does not resolve to a P2PKH or P2SH address")
					return
				}
				fmt.Fprintln(w, addr)
			})
		},
	}
}

func addressScriptCommand() *cli.Command {
	return &cli.Command{
		Name:      "script",
		Usage:     "Build the output script paying an address",
		ArgsUsage: "ADDRESS",
		Description: `Example:
  coinguard --network main address script B7nPQHKmX8DPkBFaBtaNQWc9SxD3uYpYv6`,
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("address is required")
			}
			params, err := getNetwork(c)
			if err != nil {
				return err
			}

			script, err := address.PayToAddress(c.Args().First(), params.ChainConfig())
			if err != nil {
				return err
			}

			scriptHex := hex.EncodeToString(script)
			result := map[string]interface{}{
				"network": params.Name,
				"address": c.Args().First(),
				"script":  scriptHex,
			}
			return output(c, result, func(w io.Writer) {
				fmt.Fprintln(w, scriptHex)
			})
		},
	}
}
