package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/brojonat/coinguard/service/dataset"
	"github.com/brojonat/coinguard/service/infraction"
	"github.com/urfave/cli/v2"
)

type datasetReport struct {
	File         string `json:"file"`
	Valid        bool   `json:"valid"`
	Records      int    `json:"records"`
	Transactions int    `json:"transactions"`
	Line         int    `json:"line,omitempty"`
	Error        string `json:"error,omitempty"`
}

// checkDataset parses every line of path the way the server would.
func checkDataset(c *cli.Context, path string) ([]string, datasetReport, error) {
	lines, err := dataset.FileSource{Path: path}.Lines(c.Context)
	if err != nil {
		return nil, datasetReport{}, err
	}

	report := datasetReport{File: path}
	reg := infraction.NewRegistry()
	if err := reg.Load(lines); err != nil {
		report.Error = err.Error()
		var malformed *infraction.MalformedRecordError
		if errors.As(err, &malformed) {
			report.Line = malformed.Line
		}
		return nil, report, nil
	}

	report.Valid = true
	report.Records = reg.Len()
	report.Transactions = reg.Transactions()
	return lines, report, nil
}

func datasetCheckCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Validate a dataset file",
		ArgsUsage: "FILE",
		Description: `Parse every line of a tab-separated infraction dataset exactly like the
server does at startup and report the first malformed line.

Example:
  coinguard dataset check infractions.tsv`,
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("dataset file is required")
			}

			_, report, err := checkDataset(c, c.Args().First())
			if err != nil {
				return err
			}

			if err := output(c, report, func(w io.Writer) {
				if report.Valid {
					fmt.Fprintf(w, "✓ %s is valid\n", report.File)
					fmt.Fprintf(w, "  Records:      %d\n", report.Records)
					fmt.Fprintf(w, "  Transactions: %d\n", report.Transactions)
					return
				}
				fmt.Fprintf(w, "✗ %s is malformed\n", report.File)
				fmt.Fprintf(w, "  %s\n", report.Error)
			}); err != nil {
				return err
			}

			if !report.Valid {
				return fmt.Errorf("dataset %s is malformed", report.File)
			}
			return nil
		},
	}
}

func datasetImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Validate a dataset file and load it into Postgres",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "replace",
				Usage: "Replace stored records in the same transaction as the import",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("dataset file is required")
			}

			lines, report, err := checkDataset(c, c.Args().First())
			if err != nil {
				return err
			}
			if !report.Valid {
				return fmt.Errorf("refusing to import malformed dataset: %s", report.Error)
			}

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			if err := store.EnsureSchema(c.Context); err != nil {
				return err
			}

			records := make([]infraction.Record, 0, len(lines))
			for _, line := range lines {
				rec, err := infraction.ParseRecord(line)
				if err != nil {
					return err
				}
				records = append(records, rec)
			}

			var n int64
			if c.Bool("replace") {
				var deleted int64
				deleted, n, err = store.ReplaceInfractions(c.Context, records)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.ErrWriter, "Deleted %d stored records\n", deleted)
			} else {
				n, err = store.InsertInfractions(c.Context, records)
				if err != nil {
					return err
				}
			}

			return output(c, map[string]interface{}{"file": report.File, "imported": n}, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Imported %d records from %s\n", n, report.File)
			})
		},
	}
}

func datasetExportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the dataset stored in Postgres to stdout",
		Description: `Print stored records as a tab-separated dataset, in insertion order.

Example:
  coinguard dataset export > infractions.tsv`,
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			lines, err := store.ListInfractionLines(c.Context)
			if err != nil {
				return err
			}

			_, err = io.WriteString(c.App.Writer, dataset.Join(lines))
			return err
		},
	}
}
