// Package backend builds the snapshot store and the optional event
// publisher selected by configuration.
package backend

import (
	"context"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Publisher announces expenses materialized from recurring templates.
type Publisher interface {
	PublishMaterialized(ctx context.Context, recurringID string, e core.Expense) error
	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds what the factory built. Publisher is nil when no
// broker is configured or reachable.
type BackendResult struct {
	Type      BackendType
	Store     storage.SnapshotStore
	Publisher Publisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// File backend
	SnapshotPath string

	// SQLite backend
	SQLiteDBPath string

	// AMQP, used by every backend when URL is set
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
