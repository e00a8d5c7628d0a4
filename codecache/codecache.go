// Package codecache persists generated kernel code between runs.
// Symbolic expansion and code generation dominate setup time, so
// computations keyed by a stable cache key can be stored once and
// replayed from disk in later processes.
package codecache

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
)

// Store is a byte-addressed cache. Get reports a miss with a false
// second return rather than an error.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Close() error
}

// ============================================================
// In-memory store
// ============================================================

// Memory is a process-local Store, used in tests and when persistence
// is disabled.
type Memory struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{entries: map[string][]byte{}}
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *Memory) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries[key] = stored
	return nil
}

func (m *Memory) Close() error { return nil }

// Len returns the number of cached entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// ============================================================
// Disk store
// ============================================================

// Disk is a Store backed by a Badger database directory.
type Disk struct {
	db *badger.DB
}

func OpenDisk(dir string) (*Disk, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("codecache: opening %s: %w", dir, err)
	}
	return &Disk{db: db}, nil
}

func (d *Disk) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("codecache: get %q: %w", key, err)
	}
	return value, true, nil
}

func (d *Disk) Put(key string, value []byte) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("codecache: put %q: %w", key, err)
	}
	return nil
}

func (d *Disk) Close() error { return d.db.Close() }

// ============================================================
// Lookup
// ============================================================

// Lookup returns the cached value for key, computing and storing it on
// a miss. Hits and misses are logged so slow cold starts are visible.
func Lookup(store Store, key string, compute func() ([]byte, error)) ([]byte, error) {
	if v, ok, err := store.Get(key); err != nil {
		return nil, err
	} else if ok {
		slog.Debug("code cache hit", "key", key)
		return v, nil
	}
	slog.Info("code cache miss", "key", key)
	v, err := compute()
	if err != nil {
		return nil, err
	}
	if err := store.Put(key, v); err != nil {
		return nil, err
	}
	return v, nil
}
