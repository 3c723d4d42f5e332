package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"

	"example.com/activities/internal/cli"
	"example.com/activities/internal/config"
	"example.com/activities/internal/persistence/postgres"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	env := &cli.Env{Open: openPostgres}
	for _, c := range cli.Commands(env) {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

func openPostgres(ctx context.Context) (cli.Store, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	pool, err := postgres.Connect(ctx, postgres.PoolConfig{
		URL:      cfg.PostgresURL,
		MinConns: cfg.PostgresMinConns,
		MaxConns: cfg.PostgresMaxConns,
	})
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewRepository(pool), pool.Close, nil
}
