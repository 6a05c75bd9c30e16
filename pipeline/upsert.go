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


package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/relata/core"
	"github.com/poiesic/relata/vectorindex"
)

// IndexSource provides a ready index handle on demand.
// vectorindex.Manager satisfies this.
type IndexSource interface {
	EnsureIndex(ctx context.Context) (vectorindex.Index, error)
}

// RecordEmbedding pairs a record with its embedding.
// A nil Vector marks a record that produced no embedding and is skipped.
type RecordEmbedding struct {
	Record *core.Record
	Vector []float32
}

// Upserter writes record embeddings into the vector index in chunks,
// verifying and retrying each chunk independently.
type Upserter struct {
	source IndexSource
	config Config
	logger *slog.Logger
}

// NewUpserter creates an Upserter.
func NewUpserter(source IndexSource, config Config) (*Upserter, error) {
	if source == nil {
		return nil, fmt.Errorf("index source is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	return &Upserter{
		source: source,
		config: config,
		logger: slog.Default().With("component", "upserter"),
	}, nil
}

// UpsertEmbedded writes the given embeddings to the index, tagged with the
// configured tenant. Items with nil vectors or invalid records are skipped.
// Returns the number of vectors written.
//
// Each chunk is verified by reading back its first vector; a chunk that
// fails verification is retried as a whole. Upserts are idempotent, so
// replaying a partially applied chunk is safe.
func (u *Upserter) UpsertEmbedded(ctx context.Context, items []RecordEmbedding) (int, error) {
	vectors := make([]*core.Vector, 0, len(items))
	for _, item := range items {
		if item.Vector == nil {
			continue
		}
		if err := core.ValidateRecord(item.Record); err != nil {
			u.logger.Debug("skipping invalid record", "error", err)
			continue
		}
		vectors = append(vectors, &core.Vector{
			ID:     item.Record.ID,
			Values: item.Vector,
			Meta: core.VectorMeta{
				Title:    item.Record.Title(),
				TenantID: u.config.TenantID,
			},
		})
	}

	if len(vectors) == 0 {
		return 0, nil
	}

	index, err := u.source.EnsureIndex(ctx)
	if err != nil {
		return 0, err
	}

	policy := u.config.retryPolicy()
	written := 0

	for start := 0; start < len(vectors); start += u.config.UpsertChunkSize {
		end := start + u.config.UpsertChunkSize
		if end > len(vectors) {
			end = len(vectors)
		}
		chunk := vectors[start:end]

		err := Retry(ctx, policy, func() error {
			if err := index.Upsert(ctx, chunk...); err != nil {
				return err
			}
			return u.verifyChunk(ctx, index, chunk)
		})
		if err != nil {
			return written, fmt.Errorf("upserting chunk starting at %s: %w", chunk[0].ID, err)
		}

		written += len(chunk)
		u.logger.Debug("upserted chunk", "size", len(chunk), "total", written)
	}

	return written, nil
}

// verifyChunk confirms the chunk landed by fetching its first vector.
func (u *Upserter) verifyChunk(ctx context.Context, index vectorindex.Index, chunk []*core.Vector) error {
	fetched, err := index.Fetch(ctx, chunk[0].ID)
	if err != nil {
		return err
	}
	if len(fetched) == 0 {
		return fmt.Errorf("%w: vector %s not readable after upsert", ErrVerificationFailed, chunk[0].ID)
	}
	return nil
}
