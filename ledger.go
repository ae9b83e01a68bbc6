package tally

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Ledger is the append-only transaction log plus the snapshot of current
// positions derived from it.
//
// The Ledger exclusively owns the writes to both. It assumes a single writer:
// every operation runs to completion, inside one Session, before the next
// begins.
type Ledger struct {
	store   Store
	rates   Rates
	now     func() time.Time
	metrics *Metrics
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the clock used to timestamp requests that have none.
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

// WithMetrics sets the counters updated by the ledger.
func WithMetrics(m *Metrics) Option { return func(l *Ledger) { l.metrics = m } }

// NewLedger returns a ledger on store, converting prices with rates.
func NewLedger(store Store, rates Rates, opts ...Option) *Ledger {
	l := &Ledger{store: store, rates: rates, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Close releases the underlying store.
func (l *Ledger) Close() error { return l.store.Close() }

// Status is the business result of Record.
type Status int

const (
	Recorded Status = iota
	InsufficientFunds
)

func (s Status) String() string {
	switch s {
	case Recorded:
		return "recorded"
	case InsufficientFunds:
		return "insufficient funds"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome is the result of a valid request.
//
// When Status is InsufficientFunds nothing was written, Available is the cash
// balance and Transaction.Amount is what was required.
type Outcome struct {
	Status      Status
	Transaction Transaction
	Available   decimal.Decimal
}

// Denied reports whether the request was refused by the liquidity guard.
func (o Outcome) Denied() bool { return o.Status == InsufficientFunds }

// errDenied aborts the session of a request refused by the liquidity guard.
var errDenied = errors.New("insufficient funds")

// Record validates req, appends it to the log and updates the snapshot, atomically.
//
// Structural errors (ErrInvalidArgument, ErrUnsupportedCurrency) are returned
// before anything is written. A BUY or a WITHDRAW whose amount exceeds the
// cash balance is not an error: the returned Outcome is InsufficientFunds and
// the ledger is unchanged. Storage failures are returned wrapped in ErrStorage
// after the session has been rolled back.
func (l *Ledger) Record(ctx context.Context, req Request) (Outcome, error) {
	tx, err := Prepare(req, l.rates, l.now())
	if err != nil {
		return Outcome{}, err
	}

	var available decimal.Decimal
	err = l.within(ctx, func(s Session) error {
		if tx.Kind.needsFunds() {
			cash, _, err := s.Position(ctx, Cash)
			if err != nil {
				return storageErr("read cash balance", err)
			}
			available = cash.NetUnits
			if available.LessThan(tx.Amount) {
				return errDenied
			}
		}
		if err := s.Append(ctx, &tx); err != nil {
			return storageErr("append transaction", err)
		}
		for _, d := range Effects(tx) {
			current, _, err := s.Position(ctx, d.Symbol)
			if err != nil {
				return storageErr("read position "+d.Symbol, err)
			}
			if err := s.Put(ctx, Apply(current, d)); err != nil {
				return storageErr("write position "+d.Symbol, err)
			}
		}
		return nil
	})

	switch {
	case errors.Is(err, errDenied):
		l.metrics.countDenied(tx.Kind)
		log.Warn().
			Stringer("kind", tx.Kind).
			Str("symbol", tx.Symbol).
			Stringer("amount", tx.Amount).
			Stringer("cash", available).
			Msg("transaction denied: insufficient funds")
		return Outcome{Status: InsufficientFunds, Transaction: tx, Available: available}, nil
	case err != nil:
		l.metrics.countStorageFailure()
		log.Error().Err(err).Stringer("kind", tx.Kind).Str("symbol", tx.Symbol).Msg("transaction rolled back")
		return Outcome{}, err
	}

	l.metrics.countRecorded(tx.Kind)
	log.Info().
		Int64("id", tx.ID).
		Stringer("kind", tx.Kind).
		Str("symbol", tx.Symbol).
		Stringer("quantity", tx.Quantity).
		Stringer("unit_price", tx.UnitPrice).
		Stringer("amount", tx.Amount).
		Msg("transaction recorded")
	return Outcome{Status: Recorded, Transaction: tx}, nil
}

// within runs fn in a new session, commits it if fn succeeds and rolls it
// back on every other exit path, panics included.
func (l *Ledger) within(ctx context.Context, fn func(Session) error) (err error) {
	s, err := l.store.Begin(ctx)
	if err != nil {
		return storageErr("begin", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rerr := s.Rollback(); rerr != nil {
			log.Error().Err(rerr).Msg("rollback failed")
		}
	}()

	if err := fn(s); err != nil {
		return err
	}
	if err := s.Commit(); err != nil {
		// Commit ends the session whatever its result.
		committed = true
		return storageErr("commit", err)
	}
	committed = true
	return nil
}

// view runs fn in a read-only session, always rolled back.
func (l *Ledger) view(ctx context.Context, fn func(Session) error) error {
	s, err := l.store.Begin(ctx)
	if err != nil {
		return storageErr("begin", err)
	}
	defer s.Rollback()
	return fn(s)
}

// Snapshot returns the open positions, by decreasing total value. It never
// writes.
func (l *Ledger) Snapshot(ctx context.Context) ([]Position, error) {
	var positions []Position
	err := l.view(ctx, func(s Session) (err error) {
		positions, err = s.Positions(ctx)
		if err != nil {
			return storageErr("read positions", err)
		}
		return nil
	})
	return Open(positions), err
}

// Transactions returns the log, oldest first.
func (l *Ledger) Transactions(ctx context.Context) ([]Transaction, error) {
	var txs []Transaction
	err := l.view(ctx, func(s Session) (err error) {
		txs, err = s.Transactions(ctx)
		if err != nil {
			return storageErr("read transactions", err)
		}
		return nil
	})
	return txs, err
}

// Cash returns the current cash balance.
func (l *Ledger) Cash(ctx context.Context) (decimal.Decimal, error) {
	var cash Position
	err := l.view(ctx, func(s Session) (err error) {
		cash, _, err = s.Position(ctx, Cash)
		if err != nil {
			return storageErr("read cash balance", err)
		}
		return nil
	})
	return cash.NetUnits, err
}

// Rebuild replaces the snapshot by the replay of the whole log, atomically.
func (l *Ledger) Rebuild(ctx context.Context) ([]Position, error) {
	var positions []Position
	err := l.within(ctx, func(s Session) error {
		txs, err := s.Transactions(ctx)
		if err != nil {
			return storageErr("read transactions", err)
		}
		if err := s.ClearPositions(ctx); err != nil {
			return storageErr("clear positions", err)
		}
		positions = Replay(txs)
		for _, p := range positions {
			if err := s.Put(ctx, p); err != nil {
				return storageErr("write position "+p.Symbol, err)
			}
		}
		return nil
	})
	if err != nil {
		l.metrics.countStorageFailure()
		return nil, err
	}
	log.Info().Int("positions", len(positions)).Msg("snapshot rebuilt from the log")
	return positions, nil
}

// Mismatch is a snapshot row that differs from the replay of the log.
// A missing row is reported as a zero Position.
type Mismatch struct {
	Symbol   string
	Stored   Position
	Replayed Position
}

// Verify compares the stored snapshot with the replay of the log. An empty
// result means the snapshot is consistent.
func (l *Ledger) Verify(ctx context.Context) ([]Mismatch, error) {
	var stored []Position
	var txs []Transaction
	err := l.view(ctx, func(s Session) (err error) {
		if stored, err = s.Positions(ctx); err != nil {
			return storageErr("read positions", err)
		}
		if txs, err = s.Transactions(ctx); err != nil {
			return storageErr("read transactions", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return diff(stored, Replay(txs)), nil
}

// diff compares two snapshots sorted by symbol.
func diff(stored, replayed []Position) []Mismatch {
	var mismatches []Mismatch
	i, j := 0, 0
	for i < len(stored) || j < len(replayed) {
		switch {
		case j == len(replayed) || (i < len(stored) && stored[i].Symbol < replayed[j].Symbol):
			mismatches = append(mismatches, Mismatch{Symbol: stored[i].Symbol, Stored: stored[i]})
			i++
		case i == len(stored) || replayed[j].Symbol < stored[i].Symbol:
			mismatches = append(mismatches, Mismatch{Symbol: replayed[j].Symbol, Replayed: replayed[j]})
			j++
		default:
			if !stored[i].Same(replayed[j]) {
				mismatches = append(mismatches, Mismatch{Symbol: stored[i].Symbol, Stored: stored[i], Replayed: replayed[j]})
			}
			i++
			j++
		}
	}
	return mismatches
}
