// Package cmd implements the tly command line application.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/tally"
	"github.com/etnz/tally/date"
	"github.com/etnz/tally/eodhd"
	"github.com/etnz/tally/pgstore"
	"github.com/etnz/tally/yahoo"
	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&recordCmd{kind: tally.Buy}, "transactions")
	c.Register(&recordCmd{kind: tally.Sell}, "transactions")
	c.Register(&recordCmd{kind: tally.Deposit}, "transactions")
	c.Register(&recordCmd{kind: tally.Withdraw}, "transactions")

	c.Register(&snapshotCmd{}, "reports")
	c.Register(&logCmd{}, "reports")
	c.Register(&valueCmd{}, "reports")
	c.Register(&sharpeCmd{}, "reports")

	c.Register(&fetchCmd{}, "market data")

	c.Register(&rebuildCmd{}, "maintenance")
	c.Register(&verifyCmd{}, "maintenance")
	c.Register(&migrateCmd{}, "maintenance")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile  = flag.String("config", "tally.yaml", "Path to the configuration file (YAML)")
	dbFile      = flag.String("db", "", "Path to the ledger file, selects the file store")
	dsn         = flag.String("dsn", "", "PostgreSQL connection string, selects the postgres store")
	providerArg = flag.String("provider", "", "Market data provider (yahoo or eodhd)")
	verbose     = flag.Bool("v", false, "Log debug messages")
	metricsFile = flag.String("metrics-file", "", "Write the counters to this file on exit (Prometheus text format)")
	plain       = flag.Bool("plain", false, "Print raw markdown instead of rendering it")
)

// loadConfig reads the configuration file and applies the global flags over it.
func loadConfig() (Config, error) {
	cfg, err := LoadConfig(*configFile)
	if err != nil {
		return cfg, err
	}
	if *dbFile != "" {
		cfg.Store.Driver, cfg.Store.Path = "file", *dbFile
	}
	if *dsn != "" {
		cfg.Store.Driver, cfg.Store.DSN = "postgres", *dsn
	}
	if *providerArg != "" {
		cfg.Provider.Name = *providerArg
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *metricsFile != "" {
		cfg.MetricsFile = *metricsFile
	}
	return cfg, cfg.Validate()
}

// setupLogging sends human readable logs to stderr.
func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
}

// app holds what a command needs, opened from the configuration.
type app struct {
	cfg      Config
	registry *prometheus.Registry
	metrics  *tally.Metrics
	ledger   *tally.Ledger
}

// openApp loads the configuration and opens the ledger.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log.Level)

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	registry := prometheus.NewRegistry()
	metrics := tally.NewMetrics(registry)
	return &app{
		cfg:      cfg,
		registry: registry,
		metrics:  metrics,
		ledger:   tally.NewLedger(store, cfg.Rates(), tally.WithMetrics(metrics)),
	}, nil
}

func openStore(ctx context.Context, cfg StoreConfig) (tally.Store, error) {
	if cfg.Driver == "postgres" {
		return pgstore.Open(ctx, cfg.Config)
	}
	return tally.OpenFileStore(cfg.Path)
}

// Close releases the ledger and writes the metrics file if one is configured.
func (a *app) Close() error {
	err := a.ledger.Close()
	if a.cfg.MetricsFile != "" {
		err = errors.Join(err, prometheus.WriteToTextfile(a.cfg.MetricsFile, a.registry))
	}
	if err != nil {
		log.Error().Err(err).Msg("close")
	}
	return err
}

// provider returns the configured market data provider, rate limited and
// behind a circuit breaker.
func (a *app) provider() tally.PriceProvider {
	p := a.cfg.Provider
	var provider tally.PriceProvider
	switch p.Name {
	case "eodhd":
		c := eodhd.New(p.APIKey)
		c.Currency = p.Currency
		if p.Suffix != "" {
			c.Suffix = p.Suffix
		}
		provider = c
	default:
		c := yahoo.New()
		c.Suffix = p.Suffix
		provider = c
	}
	return tally.Guard(provider, p.Name, p.Rate)
}

// loader returns a price loader on the configured provider.
func (a *app) loader() tally.PriceLoader {
	return tally.PriceLoader{Provider: a.provider(), Rates: a.cfg.Rates(), Metrics: a.metrics}
}

// priceRange returns the range to fetch, from the flags or the configuration.
func (a *app) priceRange(from, to string) (date.Range, error) {
	r := tally.DefaultRange(date.Today())
	if from == "" {
		from = a.cfg.Provider.From
	}
	if from != "" {
		d, err := date.Parse(from)
		if err != nil {
			return r, err
		}
		r.From = d
	}
	if to != "" {
		d, err := date.Parse(to)
		if err != nil {
			return r, err
		}
		r.To = d
	}
	if r.To.Before(r.From) {
		return r, fmt.Errorf("empty range %s to %s", r.From, r.To)
	}
	return r, nil
}

// printMarkdown renders md on the terminal.
func printMarkdown(md string) {
	if *plain {
		fmt.Print(md)
		return
	}
	out, err := glamour.Render(md, "dark")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

// fail prints err and returns the failure status.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", err)
	return subcommands.ExitFailure
}
