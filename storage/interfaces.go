package storage

import (
	"context"

	"github.com/poiesic/relata/core"
)

// RelatedUpdate carries a replacement related-questions list for one record.
type RelatedUpdate struct {
	ID      string
	Related []core.RelatedEntry
}

// RecordStore provides operations for managing question records.
// Implementations must be thread-safe and support concurrent access.
type RecordStore interface {
	// AddRecords adds one or more question records to storage.
	// Sets InsertedAt timestamp if not already set.
	// Returns the records with timestamps populated.
	AddRecords(ctx context.Context, records ...*core.Record) ([]*core.Record, error)

	// GetRecord retrieves a single record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetRecord(ctx context.Context, id string) (*core.Record, error)

	// GetRecords retrieves multiple records by their IDs.
	// Returns only the records that exist (no error for missing records).
	GetRecords(ctx context.Context, ids ...string) ([]*core.Record, error)

	// GetRecordPage retrieves up to limit records with IDs strictly greater
	// than afterID, ordered by ID ascending. An empty afterID starts from
	// the beginning of the collection.
	GetRecordPage(ctx context.Context, afterID string, limit int) ([]*core.Record, error)

	// DeleteRecords removes records by their IDs.
	// Returns ErrNotFound if any record doesn't exist.
	DeleteRecords(ctx context.Context, ids ...string) error

	// UpdateRelated replaces the related-questions list of a single record
	// and bumps its UpdatedAt timestamp.
	// Returns ErrNotFound if the record doesn't exist.
	UpdateRelated(ctx context.Context, id string, related []core.RelatedEntry) error

	// CommitRelated applies a batch of related-list replacements in a single
	// transaction. Either every update in the batch is applied or none are.
	// Returns ErrNotFound if any referenced record doesn't exist.
	CommitRelated(ctx context.Context, updates []RelatedUpdate) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// CheckpointStore persists sweep progress across process restarts.
type CheckpointStore interface {
	// SaveCheckpoint persists a checkpoint under its key.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for a key.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, key string) (*core.Checkpoint, error)
}
