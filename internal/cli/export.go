package cli

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"example.com/activities/internal/domain"
)

var csvHeader = []string{"id", "occurred_at", "track_id", "status", "amount"}

type exportCmd struct {
	env     *Env
	output  string
	trackID string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export activities as CSV" }
func (*exportCmd) Usage() string {
	return `activityctl export [-o file.csv] [-track id]

  Writes every stored activity, oldest first, as CSV.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "-", "output file, - for stdout")
	f.StringVar(&c.trackID, "track", "", "only export this track")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store, release, err := c.env.Open(ctx)
	if err != nil {
		return c.env.fail("open store: %v", err)
	}
	defer release()

	if c.output == "-" {
		if _, err := WriteCSV(ctx, store, c.trackID, c.env.stdout()); err != nil {
			return c.env.fail("export: %v", err)
		}
		return subcommands.ExitSuccess
	}

	n, err := exportFile(ctx, store, c.trackID, c.output)
	if err != nil {
		return c.env.fail("export: %v", err)
	}
	fmt.Fprintf(c.env.stdout(), "exported %d activities to %s\n", n, c.output)
	return subcommands.ExitSuccess
}

// exportFile writes the CSV export to path. A failed close is reported since it may lose
// buffered rows.
func exportFile(ctx context.Context, store Store, trackID, path string) (n int, err error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	return WriteCSV(ctx, store, trackID, file)
}

// WriteCSV streams activities to w and returns how many rows were written.
func WriteCSV(ctx context.Context, store Store, trackID string, w io.Writer) (int, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return 0, err
	}

	rows := 0
	err := store.Walk(ctx, trackID, func(a domain.Activity) error {
		rows++
		return writer.Write([]string{a.ID, domain.FormatTimestamp(a.OccurredAt), a.TrackID, string(a.Status), a.Amount})
	})
	if err != nil {
		return rows, err
	}

	writer.Flush()
	return rows, writer.Error()
}
