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
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/poiesic/relata/ai"
	"github.com/poiesic/relata/core"
	"github.com/poiesic/relata/storage"
)

// UpdateDiff reports a record's related list before and after an
// on-demand refresh.
type UpdateDiff struct {
	ID       string
	Previous []core.RelatedEntry
	Current  []core.RelatedEntry
}

// Changed reports whether the refresh produced a different list.
func (d *UpdateDiff) Changed() bool {
	return !slices.Equal(d.Previous, d.Current)
}

// OnDemand refreshes a single record's embedding and related list
// outside the batch sweep.
type OnDemand struct {
	store    storage.RecordStore
	embedder ai.Embedder
	upserter *Upserter
	searcher *Searcher
	config   Config
	logger   *slog.Logger

	writes sync.WaitGroup
}

// NewOnDemand creates an OnDemand updater.
func NewOnDemand(
	store storage.RecordStore,
	embedder ai.Embedder,
	upserter *Upserter,
	searcher *Searcher,
	config Config,
) (*OnDemand, error) {
	if store == nil {
		return nil, errors.New("record store is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if upserter == nil || searcher == nil {
		return nil, errors.New("upserter and searcher are required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	return &OnDemand{
		store:    store,
		embedder: embedder,
		upserter: upserter,
		searcher: searcher,
		config:   config,
		logger:   slog.Default().With("component", "ondemand"),
	}, nil
}

// UpdateOne re-embeds the record, refreshes its index entry, recomputes
// its related list, and returns the before/after diff.
//
// The store write is detached: the diff is returned as soon as the new
// list is known, and the persistence of it proceeds in the background.
// Returns storage.ErrNotFound for an unknown ID and ErrMissingText for a
// record with no embeddable text.
func (o *OnDemand) UpdateOne(ctx context.Context, id string) (*UpdateDiff, error) {
	record, err := o.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	text := record.CanonicalText()
	if text == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingText, id)
	}

	previous := slices.Clone(record.Related)

	var vector []float32
	err = Retry(ctx, o.config.retryPolicy(), func() error {
		var embedErr error
		vector, embedErr = o.embedder.EmbedText(ctx, text)
		return embedErr
	})
	if err != nil {
		return nil, fmt.Errorf("embedding record %s: %w", id, err)
	}
	if vector == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingText, id)
	}

	if _, err := o.upserter.UpsertEmbedded(ctx, []RecordEmbedding{{Record: record, Vector: vector}}); err != nil {
		return nil, fmt.Errorf("upserting record %s: %w", id, err)
	}

	related, err := o.searcher.FindRelatedByVector(ctx, record, vector)
	if err != nil {
		return nil, err
	}

	// Detached write: the caller gets the diff immediately, and a failed
	// persist only logs. The next sweep converges the stored list anyway.
	writeCtx := context.WithoutCancel(ctx)
	o.writes.Add(1)
	go func() {
		defer o.writes.Done()
		if err := o.store.UpdateRelated(writeCtx, id, related); err != nil {
			o.logger.Error("failed to persist refreshed related list", "id", id, "error", err)
		}
	}()

	return &UpdateDiff{
		ID:       id,
		Previous: previous,
		Current:  related,
	}, nil
}

// Flush blocks until all detached writes have settled.
func (o *OnDemand) Flush() {
	o.writes.Wait()
}
