package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/tally"
	"github.com/etnz/tally/renderer"
	"github.com/google/subcommands"
)

type snapshotCmd struct{}

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "list the open positions by decreasing value" }
func (*snapshotCmd) Usage() string {
	return `tly snapshot

  Lists the positions with non zero units, valued at their last transaction price.
`
}
func (*snapshotCmd) SetFlags(*flag.FlagSet) {}

func (*snapshotCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	positions, err := a.ledger.Snapshot(ctx)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.Snapshot(positions))
	return subcommands.ExitSuccess
}

type logCmd struct {
	head int
	tail int
}

func (*logCmd) Name() string     { return "log" }
func (*logCmd) Synopsis() string { return "list all transactions in the ledger" }
func (*logCmd) Usage() string {
	return `tly log [-head <n>] [-tail <n>]

  Lists the transactions of the ledger, oldest first.
`
}

func (p *logCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&p.head, "head", 0, "Show only the first N transactions.")
	f.IntVar(&p.tail, "tail", 0, "Show only the last N transactions.")
}

func (p *logCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.head > 0 && p.tail > 0 {
		fmt.Fprintln(os.Stderr, "Error: -head and -tail flags cannot be used together.")
		return subcommands.ExitUsageError
	}
	a, err := openApp(ctx)
	if err != nil {
		return fail(err)
	}
	defer a.Close()

	transactions, err := a.ledger.Transactions(ctx)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.Transactions(limit(transactions, p.head, p.tail)))
	return subcommands.ExitSuccess
}

func limit(transactions []tally.Transaction, head, tail int) []tally.Transaction {
	if head > 0 && len(transactions) > head {
		transactions = transactions[:head]
	}
	if tail > 0 && len(transactions) > tail {
		transactions = transactions[len(transactions)-tail:]
	}
	return transactions
}
