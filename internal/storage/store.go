// Package storage persists encoded tracker snapshots. Every save is a full
// overwrite of the previous snapshot.
package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot saved")

// SnapshotStore loads and saves one encoded snapshot.
type SnapshotStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}

// MemoryStore keeps the snapshot in memory. It is used by tests and by the
// memory backend.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, ErrNoSnapshot
	}
	return append([]byte(nil), s.data...), nil
}

func (s *MemoryStore) Save(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

var (
	_ SnapshotStore = (*MemoryStore)(nil)
	_ SnapshotStore = (*FileStore)(nil)
	_ SnapshotStore = (*SQLiteRepository)(nil)
)
