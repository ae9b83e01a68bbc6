package cmd

import (
	"context"
	"flag"
	"fmt"

	"github.com/etnz/tally"
	"github.com/etnz/tally/pgstore"
	"github.com/etnz/tally/renderer"
	"github.com/google/subcommands"
)

type rebuildCmd struct{}

func (*rebuildCmd) Name() string     { return "rebuild" }
func (*rebuildCmd) Synopsis() string { return "rebuild the snapshot by replaying the log" }
func (*rebuildCmd) Usage() string {
	return `tly rebuild

  Replaces every row of the snapshot by the replay of the whole transaction
  log, in a single transaction.
`
}
func (*rebuildCmd) SetFlags(*flag.FlagSet) {}

func (*rebuildCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	positions, err := a.ledger.Rebuild(ctx)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.Snapshot(tally.Open(positions)))
	return subcommands.ExitSuccess
}

type verifyCmd struct{}

func (*verifyCmd) Name() string     { return "verify" }
func (*verifyCmd) Synopsis() string { return "check the snapshot against the replay of the log" }
func (*verifyCmd) Usage() string {
	return `tly verify

  Compares every row of the snapshot with the replay of the transaction log.
  Exits with a failure status if they differ.
`
}
func (*verifyCmd) SetFlags(*flag.FlagSet) {}

func (*verifyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	mismatches, err := a.ledger.Verify(ctx)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.Mismatches(mismatches))
	if len(mismatches) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create the database tables" }
func (*migrateCmd) Usage() string {
	return `tly migrate

  Creates the transactions and positions tables of the postgres store if they
  do not exist. The file store needs no migration.
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		return fail(err)
	}
	setupLogging(cfg.Log.Level)
	if cfg.Store.Driver != "postgres" {
		fmt.Printf("The %s store needs no migration.\n", cfg.Store.Driver)
		return subcommands.ExitSuccess
	}

	store, err := pgstore.Open(ctx, cfg.Store.Config)
	if err != nil {
		return fail(err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
