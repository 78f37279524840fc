package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/brojonat/coinguard/service/network"
	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		stop()
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "coinguard",
		Usage: "Exploit-coin guard CLI",
		Description: `A command-line tool for the coinguard service.

Use this CLI to validate and manage infraction datasets, query a running
server, verify redemptions and inspect scripts and addresses.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			{
				Name:  "dataset",
				Usage: "Infraction dataset commands",
				Subcommands: []*cli.Command{
					datasetCheckCommand(),
					datasetImportCommand(),
					datasetExportCommand(),
				},
			},
			{
				Name:  "coin",
				Usage: "Coin validity commands",
				Subcommands: []*cli.Command{
					coinCheckCommand(),
				},
			},
			{
				Name:  "infractions",
				Usage: "Infraction lookup commands",
				Subcommands: []*cli.Command{
					infractionsGetCommand(),
					infractionsByAddressCommand(),
				},
			},
			{
				Name:  "redeem",
				Usage: "Redemption commands",
				Subcommands: []*cli.Command{
					redeemVerifyCommand(),
				},
			},
			{
				Name:  "address",
				Usage: "Local script and address helpers",
				Subcommands: []*cli.Command{
					addressResolveCommand(),
					addressScriptCommand(),
				},
			},
			{
				Name:  "nats",
				Usage: "NATS diagnostics commands",
				Subcommands: []*cli.Command{
					natsWatchCommand(),
				},
			},
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
					versionCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "coinguard server URL",
				EnvVars: []string{"SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				EnvVars: []string{"NATS_URL"},
				Value:   "nats://localhost:4222",
			},
			&cli.StringFlag{
				Name:    "network",
				Usage:   "Network profile (main, test, regtest)",
				EnvVars: []string{"NETWORK"},
				Value:   network.Main,
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}
}
