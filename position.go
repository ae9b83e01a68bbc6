package tally

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Position is a row of the snapshot: the aggregate of every transaction on a symbol.
//
// TotalValue is always NetUnits * LastUnitPrice, it is never set on its own.
type Position struct {
	Symbol        string          `db:"symbol" json:"symbol"`
	NetUnits      decimal.Decimal `db:"net_units" json:"net_units"`
	LastUnitPrice decimal.Decimal `db:"last_unit_price" json:"last_unit_price"`
	TotalValue    decimal.Decimal `db:"total_value" json:"total_value"`
	LastUpdated   time.Time       `db:"last_updated" json:"last_updated"`
}

// Delta is the change a transaction brings to one position.
type Delta struct {
	Symbol string
	Units  decimal.Decimal // signed
	Price  decimal.Decimal
	At     time.Time
}

// Apply returns the position p after the change d.
//
// p is the zero Position when the symbol has no row yet. The Cash price is
// pinned to 1.
func Apply(p Position, d Delta) Position {
	price := d.Price
	if d.Symbol == Cash {
		price = one
	}
	units := p.NetUnits.Add(d.Units)
	return Position{
		Symbol:        d.Symbol,
		NetUnits:      units,
		LastUnitPrice: price,
		TotalValue:    units.Mul(price),
		LastUpdated:   d.At,
	}
}

// Effects returns the position changes caused by tx, in the order they are applied:
// the traded symbol first, then the Cash offset of a BUY or a SELL.
func Effects(tx Transaction) []Delta {
	units := tx.Quantity
	if !tx.Kind.inflow() {
		units = units.Neg()
	}
	deltas := []Delta{{Symbol: tx.Symbol, Units: units, Price: tx.UnitPrice, At: tx.Timestamp}}
	if tx.Symbol == Cash {
		return deltas
	}
	switch tx.Kind {
	case Buy:
		deltas = append(deltas, Delta{Symbol: Cash, Units: tx.Amount.Neg(), Price: one, At: tx.Timestamp})
	case Sell:
		deltas = append(deltas, Delta{Symbol: Cash, Units: tx.Amount, Price: one, At: tx.Timestamp})
	}
	return deltas
}

// Replay rebuilds the snapshot from an empty state by applying txs in order.
// Positions are returned sorted by symbol, closed ones included.
func Replay(txs []Transaction) []Position {
	rows := make(map[string]Position)
	for _, tx := range txs {
		for _, d := range Effects(tx) {
			rows[d.Symbol] = Apply(rows[d.Symbol], d)
		}
	}
	return slices.SortedFunc(maps.Values(rows), func(a, b Position) int {
		return cmp.Compare(a.Symbol, b.Symbol)
	})
}

// Open returns the positions with non zero units, by decreasing total value.
func Open(positions []Position) []Position {
	open := make([]Position, 0, len(positions))
	for _, p := range positions {
		if !p.NetUnits.IsZero() {
			open = append(open, p)
		}
	}
	slices.SortStableFunc(open, func(a, b Position) int {
		if c := b.TotalValue.Cmp(a.TotalValue); c != 0 {
			return c
		}
		return cmp.Compare(a.Symbol, b.Symbol)
	})
	return open
}

// Same reports whether two positions hold the same units, price and value.
func (p Position) Same(q Position) bool {
	return p.Symbol == q.Symbol &&
		p.NetUnits.Equal(q.NetUnits) &&
		p.LastUnitPrice.Equal(q.LastUnitPrice) &&
		p.TotalValue.Equal(q.TotalValue)
}
