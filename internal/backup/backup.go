// Package backup keeps a local copy of client state so the UI has something
// to show before the backend answers. It is never authoritative.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Keys under which the stores persist their state.
const (
	KeyQueue       = "mediagrab-queue"
	KeyPreferences = "mediagrab-preferences"
	KeyHistory     = "mediagrab-history"
)

// FileName is the database file created inside the data directory.
const FileName = "backup.db"

var bucketName = []byte("mediagrab")

// Store reads and writes JSON values by key.
type Store interface {
	// Load decodes the value stored at key into v. It reports false when
	// nothing is stored.
	Load(key string, v any) (bool, error)
	Save(key string, v any) error
}

// Bolt is a Store backed by a bbolt database file.
type Bolt struct {
	db *bolt.DB
}

// Open opens (creating if needed) the backup database in dataDir.
func Open(dataDir string) (*Bolt, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dataDir, FileName)
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open backup %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create backup bucket: %w", err)
	}
	return &Bolt{db: db}, nil
}

// Load implements Store.
func (b *Bolt) Load(key string, v any) (bool, error) {
	var raw []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		if data := tx.Bucket(bucketName).Get([]byte(key)); data != nil {
			raw = append([]byte(nil), data...)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Save implements Store.
func (b *Bolt) Save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (b *Bolt) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// FailWith makes every later Save return err. Passing nil clears it.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Load implements Store.
func (m *Memory) Load(key string, v any) (bool, error) {
	m.mu.Lock()
	raw, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Save implements Store.
func (m *Memory) Save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = data
	return nil
}

// Nop discards writes and never finds anything.
type Nop struct{}

// Load implements Store.
func (Nop) Load(string, any) (bool, error) { return false, nil }

// Save implements Store.
func (Nop) Save(string, any) error { return nil }

// Or returns s, or Nop when s is nil.
func Or(s Store) Store {
	if s == nil {
		return Nop{}
	}
	return s
}
