// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/relata/core"
	"github.com/poiesic/relata/storage"
)

// RecordRepository implements storage.RecordStore for BadgerDB.
type RecordRepository struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.RecordStore = (*RecordRepository)(nil)

// NewRecordRepository creates a new RecordRepository.
func NewRecordRepository(backend *Backend) (*RecordRepository, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	return &RecordRepository{
		backend: backend,
		logger:  slog.Default().With("component", "record-repository"),
	}, nil
}

// AddRecords adds one or more question records to storage.
func (r *RecordRepository) AddRecords(ctx context.Context, records ...*core.Record) ([]*core.Record, error) {
	if len(records) == 0 {
		return nil, nil
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, record := range records {
			if err := core.ValidateRecord(record); err != nil {
				return err
			}
			if record.InsertedAt.IsZero() {
				record.InsertedAt = now
			}
			record.UpdatedAt = now

			data, err := storage.MarshalRecord(record)
			if err != nil {
				return err
			}
			if err := tx.Set(makeRecordKey(record.ID), data); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetRecord retrieves a single record by ID.
func (r *RecordRepository) GetRecord(ctx context.Context, id string) (*core.Record, error) {
	var record *core.Record
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		record, err = getRecord(tx, id)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetRecords retrieves multiple records by their IDs.
// Missing records are skipped without error.
func (r *RecordRepository) GetRecords(ctx context.Context, ids ...string) ([]*core.Record, error) {
	records := make([]*core.Record, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			record, err := getRecord(tx, id)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					continue
				}
				return err
			}
			records = append(records, record)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetRecordPage retrieves up to limit records with IDs strictly greater than
// afterID, ordered by ID ascending.
func (r *RecordRepository) GetRecordPage(ctx context.Context, afterID string, limit int) ([]*core.Record, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	var records []*core.Record
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		start := makeRecordKey(afterID)
		for iter.Seek(start); iter.Valid(); iter.Next() {
			item := iter.Item()
			// Seek lands on afterID itself when it exists; the page starts
			// strictly after it.
			if afterID != "" && bytes.Equal(item.Key(), start) {
				continue
			}

			var record *core.Record
			err := item.Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalRecord(val)
				return err
			})
			if err != nil {
				return err
			}

			records = append(records, record)
			if len(records) >= limit {
				break
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteRecords removes records by their IDs.
func (r *RecordRepository) DeleteRecords(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeRecordKey(id)
			if _, err := tx.Get(key); err != nil {
				if err == badger.ErrKeyNotFound {
					return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
				}
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// UpdateRelated replaces the related-questions list of a single record.
func (r *RecordRepository) UpdateRelated(ctx context.Context, id string, related []core.RelatedEntry) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := setRelated(tx, id, related, time.Now().UTC()); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// CommitRelated applies a batch of related-list replacements atomically.
func (r *RecordRepository) CommitRelated(ctx context.Context, updates []storage.RelatedUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, update := range updates {
			if err := setRelated(tx, update.ID, update.Related, now); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Close closes the underlying backend.
func (r *RecordRepository) Close() error {
	return r.backend.Close()
}

func getRecord(tx *badger.Txn, id string) (*core.Record, error) {
	item, err := tx.Get(makeRecordKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
		}
		return nil, err
	}

	var record *core.Record
	err = item.Value(func(val []byte) error {
		var err error
		record, err = storage.UnmarshalRecord(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func setRelated(tx *badger.Txn, id string, related []core.RelatedEntry, now time.Time) error {
	record, err := getRecord(tx, id)
	if err != nil {
		return err
	}

	record.Related = related
	record.UpdatedAt = now

	data, err := storage.MarshalRecord(record)
	if err != nil {
		return err
	}
	return tx.Set(makeRecordKey(id), data)
}
