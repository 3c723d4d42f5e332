package cli

import (
	"context"
	"errors"
	"flag"

	"github.com/google/subcommands"

	"example.com/activities/internal/domain"
)

type aggregateCmd struct {
	env *Env
}

func (*aggregateCmd) Name() string           { return "aggregate" }
func (*aggregateCmd) Synopsis() string       { return "show the last status and balance of a track" }
func (*aggregateCmd) Usage() string          { return "activityctl aggregate <track_id>\n" }
func (*aggregateCmd) SetFlags(*flag.FlagSet) {}

func (c *aggregateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.env.fail("usage: %s", c.Usage())
	}
	trackID := f.Arg(0)

	store, release, err := c.env.Open(ctx)
	if err != nil {
		return c.env.fail("open store: %v", err)
	}
	defer release()

	summary, err := domain.NewService(store).Aggregate(ctx, trackID)
	switch {
	case errors.Is(err, domain.ErrTrackNotFound):
		return c.env.fail("Track ID %s does not exist", trackID)
	case errors.Is(err, domain.ErrAmountComputation):
		return c.env.fail("Cannot calculate amount for %s: %v", trackID, err)
	case err != nil:
		return c.env.fail("aggregate: %v", err)
	}

	table := newTable(c.env.stdout(), "Track ID", "Last Status", "Amount")
	table.Append([]string{summary.TrackID, formatStatus(summary.LastStatus), summary.Amount.StringFixed(2)})
	table.Render()
	return subcommands.ExitSuccess
}
