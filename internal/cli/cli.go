// Package cli implements the activityctl operator commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/olekukonko/tablewriter"

	"example.com/activities/internal/domain"
)

// Store is the persistence surface the commands need.
type Store interface {
	domain.ActivityRepository
	Walk(ctx context.Context, trackID string, fn func(domain.Activity) error) error
}

// Opener connects to a Store; the returned func releases it.
type Opener func(ctx context.Context) (Store, func(), error)

// Env is shared by every command.
type Env struct {
	Open   Opener
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Commands returns the activityctl command set bound to env.
func Commands(env *Env) []subcommands.Command {
	return []subcommands.Command{
		&ingestCmd{env: env},
		&aggregateCmd{env: env},
		&historyCmd{env: env},
		&exportCmd{env: env},
	}
}

func (e *Env) stdin() io.Reader {
	if e.Stdin == nil {
		return os.Stdin
	}
	return e.Stdin
}

func (e *Env) stdout() io.Writer {
	if e.Stdout == nil {
		return os.Stdout
	}
	return e.Stdout
}

func (e *Env) fail(format string, args ...any) subcommands.ExitStatus {
	w := e.Stderr
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, format+"\n", args...)
	return subcommands.ExitFailure
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func formatStatus(s domain.Status) string {
	if s == domain.StatusNone {
		return "-"
	}
	return string(s)
}
