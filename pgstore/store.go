// Package pgstore is a PostgreSQL backend for the tally ledger.
//
// The log and the snapshot are two tables, transactions and positions. A
// tally.Session is a database transaction, so the ledger effects of a request
// are committed or rolled back together.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/etnz/tally"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Config holds the connection parameters.
type Config struct {
	DSN          string        `yaml:"dsn"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// DefaultQueryTimeout bounds every statement when the configuration sets none.
const DefaultQueryTimeout = 30 * time.Second

// Store implements tally.Store on a PostgreSQL database.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Open connects to the database described by cfg.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One ledger, one writer.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return New(db, cfg.QueryTimeout), nil
}

// New returns a store on an open database.
func New(db *sqlx.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &Store{db: db, timeout: timeout}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
		id              BIGSERIAL PRIMARY KEY,
		ts              TIMESTAMPTZ NOT NULL,
		kind            TEXT NOT NULL CHECK (kind IN ('BUY', 'SELL', 'DEPOSIT', 'WITHDRAW')),
		symbol          TEXT NOT NULL,
		quantity        NUMERIC NOT NULL,
		unit_price      NUMERIC NOT NULL,
		currency        TEXT NOT NULL,
		amount          NUMERIC NOT NULL,
		source_currency TEXT NOT NULL,
		fx_rate         NUMERIC NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS positions (
		symbol          TEXT PRIMARY KEY,
		net_units       NUMERIC NOT NULL,
		last_unit_price NUMERIC NOT NULL,
		total_value     NUMERIC NOT NULL,
		last_updated    TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Info().Msg("schema is up to date")
	return nil
}

// Begin implements tally.Store.
func (s *Store) Begin(ctx context.Context) (tally.Session, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", explain(err))
	}
	return &session{tx: tx, timeout: s.timeout}, nil
}

// Close implements tally.Store.
func (s *Store) Close() error { return s.db.Close() }

// explain adds a hint to errors caused by a missing schema.
func explain(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "42P01" {
		return fmt.Errorf("%w (run 'tly migrate' to create the tables)", err)
	}
	return err
}

type session struct {
	tx      *sqlx.Tx
	timeout time.Duration
	done    bool
}

const (
	transactionColumns = `id, ts, kind, symbol, quantity, unit_price, currency, amount, source_currency, fx_rate`
	positionColumns    = `symbol, net_units, last_unit_price, total_value, last_updated`
)

func (s *session) Append(ctx context.Context, t *tally.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		INSERT INTO transactions (ts, kind, symbol, quantity, unit_price, currency, amount, source_currency, fx_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := s.tx.QueryRowxContext(ctx, query,
		t.Timestamp, t.Kind, t.Symbol, t.Quantity, t.UnitPrice,
		t.Currency, t.Amount, t.SourceCurrency, t.Rate).
		Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", explain(err))
	}
	return nil
}

func (s *session) Transactions(ctx context.Context) ([]tally.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var txs []tally.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions ORDER BY id`
	if err := s.tx.SelectContext(ctx, &txs, query); err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", explain(err))
	}
	return txs, nil
}

func (s *session) Position(ctx context.Context, symbol string) (tally.Position, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var p tally.Position
	query := `SELECT ` + positionColumns + ` FROM positions WHERE symbol = $1`
	err := s.tx.GetContext(ctx, &p, query, symbol)
	if errors.Is(err, sql.ErrNoRows) {
		return tally.Position{}, false, nil
	}
	if err != nil {
		return tally.Position{}, false, fmt.Errorf("failed to get position %s: %w", symbol, explain(err))
	}
	return p, true, nil
}

func (s *session) Put(ctx context.Context, p tally.Position) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		INSERT INTO positions (symbol, net_units, last_unit_price, total_value, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol) DO UPDATE SET
			net_units = EXCLUDED.net_units,
			last_unit_price = EXCLUDED.last_unit_price,
			total_value = EXCLUDED.total_value,
			last_updated = EXCLUDED.last_updated`
	_, err := s.tx.ExecContext(ctx, query, p.Symbol, p.NetUnits, p.LastUnitPrice, p.TotalValue, p.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to upsert position %s: %w", p.Symbol, explain(err))
	}
	return nil
}

func (s *session) Positions(ctx context.Context) ([]tally.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var positions []tally.Position
	query := `SELECT ` + positionColumns + ` FROM positions ORDER BY symbol`
	if err := s.tx.SelectContext(ctx, &positions, query); err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", explain(err))
	}
	return positions, nil
}

func (s *session) ClearPositions(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.tx.ExecContext(ctx, `DELETE FROM positions`); err != nil {
		return fmt.Errorf("failed to clear positions: %w", explain(err))
	}
	return nil
}

func (s *session) Commit() error {
	s.done = true
	return s.tx.Commit()
}

func (s *session) Rollback() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.tx.Rollback()
}
