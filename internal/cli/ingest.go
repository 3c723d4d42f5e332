package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"example.com/activities/internal/domain"
)

type ingestCmd struct {
	env  *Env
	file string
}

func (*ingestCmd) Name() string     { return "ingest" }
func (*ingestCmd) Synopsis() string { return "store activities from a JSON file" }
func (*ingestCmd) Usage() string {
	return `activityctl ingest -f <file.json|->

  Reads a JSON object or array of activities and stores the valid, not yet
  known ones. Use "-" to read from standard input.
`
}

func (c *ingestCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "f", "-", "JSON file to ingest, - for stdin")
}

func (c *ingestCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var in io.Reader = c.env.stdin()
	if c.file != "-" {
		file, err := os.Open(c.file)
		if err != nil {
			return c.env.fail("open %s: %v", c.file, err)
		}
		defer file.Close()
		in = file
	}

	candidates, err := domain.DecodeCandidates(in)
	if err != nil {
		return c.env.fail("decode activities: %v", err)
	}

	store, release, err := c.env.Open(ctx)
	if err != nil {
		return c.env.fail("open store: %v", err)
	}
	defer release()

	accepted, err := domain.NewService(store).Ingest(ctx, candidates)
	if errors.Is(err, domain.ErrNothingToStore) {
		return c.env.fail("Cannot store any activity (%d candidates)", len(candidates))
	}
	if err != nil {
		return c.env.fail("ingest: %v", err)
	}

	fmt.Fprintf(c.env.stdout(), "stored %d of %d activities\n", len(accepted), len(candidates))
	return subcommands.ExitSuccess
}
