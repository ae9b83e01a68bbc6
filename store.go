package tally

import "context"

// Store is the relational backend of a Ledger.
type Store interface {
	// Begin opens a session. The caller owns it exclusively and must end it
	// with Commit or Rollback.
	Begin(ctx context.Context) (Session, error)
	Close() error
}

// Session is an atomic unit of work on a Store: either every write made
// through it is committed, or none is.
type Session interface {
	// Append adds tx to the log and sets its ID.
	Append(ctx context.Context, tx *Transaction) error
	// Transactions returns the whole log in ID order.
	Transactions(ctx context.Context) ([]Transaction, error)

	// Position returns the snapshot row of symbol, and false if there is none.
	Position(ctx context.Context, symbol string) (Position, bool, error)
	// Put inserts or overwrites the snapshot row of p.Symbol.
	Put(ctx context.Context, p Position) error
	// Positions returns every snapshot row sorted by symbol, closed ones included.
	Positions(ctx context.Context) ([]Position, error)
	// ClearPositions deletes every snapshot row.
	ClearPositions(ctx context.Context) error

	Commit() error
	// Rollback discards the session. It is a no-op after Commit.
	Rollback() error
}
