package tally

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.json")

	store, err := OpenFileStore(path)
	require.NoError(t, err)
	l, _ := newTestLedger(t, store)
	record(t, l, "DEPOSIT", Cash, 1000, 1)
	record(t, l, "BUY", "AAPL", 2, 150.5)

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	l2, _ := newTestLedger(t, reopened)

	txs, err := l2.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, Buy, txs[1].Kind)
	assert.Equal(t, "301", txs[1].Amount.String())

	cash, err := l2.Cash(ctx)
	require.NoError(t, err)
	assert.Equal(t, "699", cash.String())

	// IDs keep increasing after a reload.
	out := record(t, l2, "SELL", "AAPL", 1, 151)
	assert.Equal(t, int64(3), out.Transaction.ID)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file is left behind")
}

func TestFileStore_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err := OpenFileStore(path)
	assert.Error(t, err)
}

func TestMemoryStore_Rollback(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s, err := store.Begin(ctx)
	require.NoError(t, err)
	tx := Transaction{Kind: Deposit, Symbol: Cash, Quantity: D(1), UnitPrice: one, Amount: D(1)}
	require.NoError(t, s.Append(ctx, &tx))
	assert.Equal(t, int64(1), tx.ID)
	require.NoError(t, s.Put(ctx, Position{Symbol: Cash, NetUnits: D(1)}))
	require.NoError(t, s.Rollback())
	assert.ErrorIs(t, s.Append(ctx, &tx), errSessionDone)

	s, err = store.Begin(ctx)
	require.NoError(t, err)
	defer s.Rollback()
	txs, err := s.Transactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)
	_, found, err := s.Position(ctx, Cash)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_SingleSession(t *testing.T) {
	store := NewMemoryStore()
	s, err := store.Begin(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Begin(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, s.Commit())
	assert.NoError(t, s.Rollback(), "rollback after commit is a no-op")
	s, err = store.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Rollback())
}
