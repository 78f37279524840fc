package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/brojonat/coinguard/client"
	"github.com/brojonat/coinguard/service/db"
	"github.com/brojonat/coinguard/service/network"
	"github.com/itchyny/gojq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
)

func jqFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:  "jq",
		Usage: "jq filter applied to the JSON output (repeatable, applied in order)",
	}
}

// getStore connects to the database named by --database-url.
func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := pgxpool.New(c.Context, dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(c.Context); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db.NewStore(pool), pool.Close, nil
}

func getClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	return client.NewClient(c.String("server-url"), nil, logger)
}

func getNetwork(c *cli.Context) (*network.Params, error) {
	return network.ByName(c.String("network"))
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// output prints v as JSON when --json or --jq is set, otherwise calls human.
func output(c *cli.Context, v interface{}, human func(w io.Writer)) error {
	filters := c.StringSlice("jq")
	if len(filters) > 0 {
		return outputJQ(c.App.Writer, v, filters)
	}
	if c.Bool("json") {
		return outputJSON(c.App.Writer, v)
	}
	human(c.App.Writer)
	return nil
}

// outputJQ runs each filter in turn over v and prints every result of the
// last one.
func outputJQ(w io.Writer, v interface{}, filters []string) error {
	input, err := toJQValue(v)
	if err != nil {
		return err
	}

	values := []interface{}{input}
	for _, filter := range filters {
		code, err := compileJQ(filter)
		if err != nil {
			return err
		}

		var next []interface{}
		for _, in := range values {
			iter := code.RunWithContext(context.Background(), in)
			for {
				out, ok := iter.Next()
				if !ok {
					break
				}
				if err, isErr := out.(error); isErr {
					return fmt.Errorf("jq filter %q failed: %w", filter, err)
				}
				next = append(next, out)
			}
		}
		values = next
	}

	for _, out := range values {
		if s, ok := out.(string); ok {
			fmt.Fprintln(w, s)
			continue
		}
		if err := outputJSON(w, out); err != nil {
			return err
		}
	}
	return nil
}

func compileJQ(filter string) (*gojq.Code, error) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}
	return code, nil
}

// toJQValue round-trips v through JSON: gojq only accepts plain maps,
// slices and scalars.
func toJQValue(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal output: %w", err)
	}
	return out, nil
}
