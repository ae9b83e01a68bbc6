// Package tally provides the building blocks of a personal, local-first
// portfolio tracker whose home currency is the Swedish krona (SEK).
//
// The core functionalities include:
//   - Ledger: an append-only log of BUY, SELL, DEPOSIT and WITHDRAW
//     transactions, plus a materialized snapshot of current positions that is
//     updated atomically with every recorded transaction. The CASH
//     pseudo-symbol carries the cash balance, always priced at 1.
//   - Position rules: the pure Apply/Effects/Replay functions that define the
//     snapshot as a view over the log, so that it can be rebuilt and verified
//     independently of any storage.
//   - Market data: date-indexed frames of price series assembled by a Forge
//     from PriceProvider outputs.
//   - Valuation: mark-to-market total of the snapshot against the latest row
//     of a price frame, with a stale-price fallback, and a Sharpe ratio.
//
// Storage is abstracted by Store and Session. MemoryStore (optionally backed
// by a JSON file) lives in this package, a PostgreSQL implementation lives in
// the pgstore package.
package tally
