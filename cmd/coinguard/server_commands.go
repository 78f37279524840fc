package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/brojonat/coinguard/client"
	"github.com/urfave/cli/v2"
)

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check server health and registry status",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: 5 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			serverURL := c.String("server-url")
			if serverURL == "" {
				return fmt.Errorf("server-url is required (set SERVER_URL env var or use --server-url)")
			}

			cl := client.NewClient(serverURL, &http.Client{Timeout: c.Duration("timeout")}, nil)

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			if err := cl.Health(ctx); err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}

			status, err := cl.Registry(ctx)
			if err != nil {
				return fmt.Errorf("failed to read registry status: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(c.App.Writer, status)
			}

			fmt.Fprintf(c.App.Writer, "✓ Server is healthy\n")
			fmt.Fprintf(c.App.Writer, "  URL:          %s\n", serverURL)
			fmt.Fprintf(c.App.Writer, "  Network:      %s\n", status.Network)
			fmt.Fprintf(c.App.Writer, "  Loaded:       %t\n", status.Loaded)
			fmt.Fprintf(c.App.Writer, "  Records:      %d\n", status.Records)
			fmt.Fprintf(c.App.Writer, "  Transactions: %d\n", status.Transactions)
			return nil
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			fmt.Fprintf(c.App.Writer, "coinguard CLI\n")
			fmt.Fprintf(c.App.Writer, "  Version: %s\n", version)
			fmt.Fprintf(c.App.Writer, "  Commit:  %s\n", commit)
			fmt.Fprintf(c.App.Writer, "  Built:   %s\n", date)
			return nil
		},
	}
}
