package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	natspkg "github.com/brojonat/coinguard/service/nats"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/urfave/cli/v2"
)

// natsWatchCommand streams shortfall events for a network.
func natsWatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Stream redemption shortfall events",
		Description: `Subscribe to shortfall events published to NATS JetStream by the server.
Events are published to the subject: redemptions.shortfall.{network}

Example:
  coinguard --network test nats watch --json`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "stream",
				Usage:   "JetStream stream name",
				EnvVars: []string{"NATS_STREAM"},
				Value:   natspkg.DefaultStreamName,
			},
			&cli.BoolFlag{
				Name:    "durable",
				Aliases: []string{"d"},
				Usage:   "Create a durable consumer (survives restarts)",
			},
			&cli.StringFlag{
				Name:  "consumer-name",
				Usage: "Consumer name (required for durable)",
				Value: "coinguard-cli",
			},
		},
		Action: func(c *cli.Context) error {
			params, err := getNetwork(c)
			if err != nil {
				return err
			}
			jsonOutput := c.Bool("json")

			nc, err := nats.Connect(c.String("nats-url"))
			if err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			defer nc.Close()

			js, err := jetstream.New(nc)
			if err != nil {
				return fmt.Errorf("failed to create JetStream context: %w", err)
			}

			subject := natspkg.SubjectFor(params.Name)
			consumerConfig := jetstream.ConsumerConfig{
				FilterSubject: subject,
				AckPolicy:     jetstream.AckExplicitPolicy,
			}
			if c.Bool("durable") {
				consumerConfig.Durable = c.String("consumer-name")
				consumerConfig.Name = c.String("consumer-name")
			}

			cons, err := js.CreateOrUpdateConsumer(c.Context, c.String("stream"), consumerConfig)
			if err != nil {
				return fmt.Errorf("failed to create consumer: %w", err)
			}

			if !jsonOutput {
				fmt.Fprintf(c.App.Writer, "📡 Subscribing to: %s\n", subject)
				fmt.Fprintf(c.App.Writer, "\nWaiting for shortfall events... (Ctrl-C to exit)\n\n")
			}

			count := 0
			consumeCtx, err := cons.Consume(func(msg jetstream.Msg) {
				var event natspkg.ShortfallEvent
				if err := json.Unmarshal(msg.Data(), &event); err != nil {
					fmt.Fprintf(os.Stderr, "Error parsing event: %v\n", err)
					msg.Ack()
					return
				}
				count++

				if jsonOutput {
					data, _ := json.Marshal(event)
					fmt.Fprintln(c.App.Writer, string(data))
				} else {
					printShortfall(c, count, &event)
				}
				msg.Ack()
			})
			if err != nil {
				return fmt.Errorf("failed to consume: %w", err)
			}
			defer consumeCtx.Stop()

			<-c.Context.Done()
			if !jsonOutput {
				fmt.Fprintf(c.App.Writer, "\n\n✅ Received %d events\n", count)
			}
			return nil
		},
	}
}

func printShortfall(c *cli.Context, n int, event *natspkg.ShortfallEvent) {
	w := c.App.Writer
	fmt.Fprintf(w, "─────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Shortfall #%d\n", n)
	fmt.Fprintf(w, "─────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "ID:           %s\n", event.ID)
	fmt.Fprintf(w, "Network:      %s\n", event.Network)
	fmt.Fprintf(w, "Transactions: %s\n", strings.Join(event.TxIDs, ", "))
	fmt.Fprintf(w, "Required:     %d (%s)\n", event.Required, event.RequiredDisplay)
	fmt.Fprintf(w, "Redeemed:     %d\n", event.Redeemed)
	fmt.Fprintf(w, "Published:    %s\n\n", event.PublishedAt.Format(time.RFC3339))
}
