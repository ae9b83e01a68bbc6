package tally

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
)

// MemoryStore is a Store held in memory, optionally persisted to a JSON file.
//
// At most one session is open at a time; Begin waits for the previous one to
// end.
type MemoryStore struct {
	path  string        // empty for a volatile store
	lock  chan struct{} // held by the open session
	state memoryState
}

type memoryState struct {
	LastID       int64               `json:"last_id"`
	Transactions []Transaction       `json:"transactions"`
	Positions    map[string]Position `json:"positions"`
}

func (s memoryState) clone() memoryState {
	return memoryState{
		LastID:       s.LastID,
		Transactions: slices.Clone(s.Transactions),
		Positions:    maps.Clone(s.Positions),
	}
}

// NewMemoryStore returns an empty volatile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lock:  make(chan struct{}, 1),
		state: memoryState{Positions: make(map[string]Position)},
	}
}

// OpenFileStore returns a store persisted in the JSON file at path. A missing
// file is an empty store, it is created on the first commit.
func OpenFileStore(path string) (*MemoryStore, error) {
	s := NewMemoryStore()
	s.path = path
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read ledger file %q: %w", path, err)
	}
	if err := json.Unmarshal(content, &s.state); err != nil {
		return nil, fmt.Errorf("invalid ledger file %q: %w", path, err)
	}
	if s.state.Positions == nil {
		s.state.Positions = make(map[string]Position)
	}
	return s, nil
}

// Begin implements Store.
func (s *MemoryStore) Begin(ctx context.Context) (Session, error) {
	select {
	case s.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &memorySession{store: s, state: s.state.clone()}, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// save writes state to the store file, through a temporary file so that the
// previous content survives a failure.
func (s *MemoryStore) save(state memoryState) error {
	content, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name()) // no-op after a successful rename
	if _, err := f.Write(content); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), s.path)
}

type memorySession struct {
	store *MemoryStore
	state memoryState
	done  bool
}

var errSessionDone = errors.New("session already ended")

func (m *memorySession) check(ctx context.Context) error {
	if m.done {
		return errSessionDone
	}
	return ctx.Err()
}

func (m *memorySession) Append(ctx context.Context, tx *Transaction) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	m.state.LastID++
	tx.ID = m.state.LastID
	m.state.Transactions = append(m.state.Transactions, *tx)
	return nil
}

func (m *memorySession) Transactions(ctx context.Context) ([]Transaction, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(m.state.Transactions), nil
}

func (m *memorySession) Position(ctx context.Context, symbol string) (Position, bool, error) {
	if err := m.check(ctx); err != nil {
		return Position{}, false, err
	}
	p, ok := m.state.Positions[symbol]
	return p, ok, nil
}

func (m *memorySession) Put(ctx context.Context, p Position) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	m.state.Positions[p.Symbol] = p
	return nil
}

func (m *memorySession) Positions(ctx context.Context) ([]Position, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	return slices.SortedFunc(maps.Values(m.state.Positions), func(a, b Position) int {
		return cmp.Compare(a.Symbol, b.Symbol)
	}), nil
}

func (m *memorySession) ClearPositions(ctx context.Context) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	clear(m.state.Positions)
	return nil
}

func (m *memorySession) Commit() error {
	if m.done {
		return errSessionDone
	}
	defer m.release()
	if m.store.path != "" {
		if err := m.store.save(m.state); err != nil {
			return fmt.Errorf("cannot save ledger file %q: %w", m.store.path, err)
		}
	}
	m.store.state = m.state
	return nil
}

func (m *memorySession) Rollback() error {
	if !m.done {
		m.release()
	}
	return nil
}

func (m *memorySession) release() {
	m.done = true
	<-m.store.lock
}
