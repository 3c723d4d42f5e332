package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"example.com/activities/internal/domain"
	"example.com/activities/internal/persistence"
)

type historyCmd struct {
	env    *Env
	limit  int
	cursor string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list the activities of a track, most recent first" }
func (*historyCmd) Usage() string {
	return `activityctl history [-limit n] [-cursor token] <track_id>

  Prints one page of the track history. When more rows exist, the token for
  the next page is printed below the table.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "limit", 20, "page size")
	f.StringVar(&c.cursor, "cursor", "", "continuation token from a previous page")
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.env.fail("usage: %s", c.Usage())
	}
	if c.limit <= 0 {
		return c.env.fail("-limit must be positive")
	}
	cursor, err := persistence.DecodeCursor(c.cursor)
	if err != nil {
		return c.env.fail("invalid cursor: %v", err)
	}

	store, release, err := c.env.Open(ctx)
	if err != nil {
		return c.env.fail("open store: %v", err)
	}
	defer release()

	activities, next, err := domain.NewService(store).History(ctx, f.Arg(0), cursor, c.limit)
	if err != nil {
		return c.env.fail("history: %v", err)
	}

	out := c.env.stdout()
	table := newTable(out, "ID", "Occurred At", "Status", "Amount")
	for _, activity := range activities {
		table.Append([]string{activity.ID, domain.FormatTimestamp(activity.OccurredAt), formatStatus(activity.Status), activity.Amount})
	}
	table.Render()

	if next != nil {
		fmt.Fprintf(out, "next: %s\n", persistence.EncodeCursor(next))
	}
	return subcommands.ExitSuccess
}
