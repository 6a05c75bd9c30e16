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
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/relata/ai"
	"github.com/poiesic/relata/core"
	"github.com/poiesic/relata/storage"
)

// SweepResult summarizes one page of a sweep.
type SweepResult struct {
	// Processed is the number of records in the page.
	Processed int

	// Succeeded is the number of records whose related list was committed.
	Succeeded int

	// Failed is the number of records whose search or commit failed.
	Failed int

	// Skipped is the number of records with no embeddable text.
	Skipped int

	// LastProcessedID is the checkpoint cursor after this page.
	LastProcessedID string

	// WrappedAround reports that the sweep reached the end of the
	// collection and restarted from the beginning.
	WrappedAround bool
}

// Orchestrator drives the resumable batch sweep: page by page it embeds,
// upserts, searches, and commits related lists, advancing a checkpoint
// so an interrupted sweep resumes where it left off.
type Orchestrator struct {
	store       storage.RecordStore
	checkpoints storage.CheckpointStore
	embedder    ai.Embedder
	upserter    *Upserter
	searcher    *Searcher
	config      Config
	logger      *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	store storage.RecordStore,
	checkpoints storage.CheckpointStore,
	embedder ai.Embedder,
	upserter *Upserter,
	searcher *Searcher,
	config Config,
) (*Orchestrator, error) {
	if store == nil || checkpoints == nil {
		return nil, errors.New("record and checkpoint stores are required")
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

	return &Orchestrator{
		store:       store,
		checkpoints: checkpoints,
		embedder:    embedder,
		upserter:    upserter,
		searcher:    searcher,
		config:      config,
		logger:      slog.Default().With("component", "orchestrator"),
	}, nil
}

// checkpointKey returns the environment- and tenant-scoped cursor key.
func (o *Orchestrator) checkpointKey() string {
	return core.CheckpointKey(o.config.Environment, o.config.TenantID)
}

// RunOnce processes one page of the sweep.
//
// The cursor record being deleted, an unreadable checkpoint, or reaching
// the end of the collection all restart the sweep from the beginning
// rather than failing it.
func (o *Orchestrator) RunOnce(ctx context.Context) (*SweepResult, error) {
	key := o.checkpointKey()
	result := &SweepResult{}

	cursor, err := o.loadCursor(ctx, key)
	if err != nil {
		return nil, err
	}

	page, err := o.store.GetRecordPage(ctx, cursor, o.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("fetching record page after %q: %w", cursor, err)
	}

	if len(page) == 0 {
		if cursor == "" {
			// Nothing stored at all
			result.WrappedAround = true
			return result, nil
		}

		// End of the collection: wrap around and refetch
		o.logger.Info("sweep reached end of collection, wrapping around")
		result.WrappedAround = true
		cursor = ""
		if err := o.saveCursor(ctx, key, ""); err != nil {
			return nil, err
		}
		page, err = o.store.GetRecordPage(ctx, cursor, o.config.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("refetching first page: %w", err)
		}
		if len(page) == 0 {
			return result, nil
		}
	}

	result.Processed = len(page)
	lastPageID := page[len(page)-1].ID

	// One embedding call per page; blank texts come back as nil slots
	texts := make([]string, len(page))
	for i, record := range page {
		texts[i] = record.CanonicalText()
	}

	var vectors [][]float32
	err = Retry(ctx, o.config.retryPolicy(), func() error {
		var embedErr error
		vectors, embedErr = o.embedder.EmbedTexts(ctx, texts)
		return embedErr
	})
	if err != nil {
		return nil, fmt.Errorf("embedding page: %w", err)
	}
	if len(vectors) != len(page) {
		return nil, fmt.Errorf("embedding result mismatch: expected %d, received %d", len(page), len(vectors))
	}

	items := make([]RecordEmbedding, len(page))
	for i, record := range page {
		items[i] = RecordEmbedding{Record: record, Vector: vectors[i]}
		if vectors[i] == nil {
			result.Skipped++
		}
	}

	if _, err := o.upserter.UpsertEmbedded(ctx, items); err != nil {
		return nil, fmt.Errorf("upserting page: %w", err)
	}

	updates, searchFailures := o.searchPage(ctx, items)
	result.Failed += searchFailures

	committed, advancedTo, commitFailures := o.commitUpdates(ctx, key, updates)
	result.Succeeded = committed
	result.Failed += commitFailures

	// With every chunk committed the whole page is done, including any
	// trailing skipped records past the last update
	if commitFailures == 0 {
		advancedTo = lastPageID
		if err := o.saveCursor(ctx, key, advancedTo); err != nil {
			return nil, err
		}
	}
	result.LastProcessedID = advancedTo

	o.logger.Info("sweep page complete",
		"processed", result.Processed,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"cursor", result.LastProcessedID)

	return result, nil
}

// Run sweeps pages until the collection wraps around or ctx is done.
// Page results are accumulated into a single SweepResult.
func (o *Orchestrator) Run(ctx context.Context, tracker *ProgressTracker) (*SweepResult, error) {
	total := &SweepResult{}

	if tracker != nil {
		tracker.Start()
		defer tracker.Finish()
	}

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		page, err := o.RunOnce(ctx)
		if err != nil {
			return total, err
		}

		total.Processed += page.Processed
		total.Succeeded += page.Succeeded
		total.Failed += page.Failed
		total.Skipped += page.Skipped
		total.LastProcessedID = page.LastProcessedID

		if tracker != nil {
			tracker.Increment(page.Processed)
		}

		if page.WrappedAround {
			total.WrappedAround = true
			return total, nil
		}
	}
}

// loadCursor reads the checkpoint and validates that its record still
// exists. A missing checkpoint, unreadable checkpoint, or deleted cursor
// record restarts from the beginning.
func (o *Orchestrator) loadCursor(ctx context.Context, key string) (string, error) {
	checkpoint, err := o.checkpoints.LoadCheckpoint(ctx, key)
	if err != nil {
		o.logger.Warn("failed to load checkpoint, starting from beginning", "key", key, "error", err)
		return "", nil
	}
	if checkpoint == nil || checkpoint.LastProcessedID == "" {
		return "", nil
	}

	cursor := checkpoint.LastProcessedID
	if _, err := o.store.GetRecord(ctx, cursor); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			o.logger.Warn("checkpoint record no longer exists, starting from beginning", "cursor", cursor)
			return "", nil
		}
		return "", fmt.Errorf("validating checkpoint record %s: %w", cursor, err)
	}
	return cursor, nil
}

func (o *Orchestrator) saveCursor(ctx context.Context, key, cursor string) error {
	err := o.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		Key:             key,
		LastProcessedID: cursor,
	})
	if err != nil {
		return fmt.Errorf("saving checkpoint %s: %w", key, err)
	}
	return nil
}

// searchPage computes related lists for every embedded record in the
// page, bounded by a worker pool. Returns the updates in page order and
// the number of failed searches.
func (o *Orchestrator) searchPage(ctx context.Context, items []RecordEmbedding) ([]storage.RelatedUpdate, int) {
	type outcome struct {
		related []core.RelatedEntry
		err     error
		skipped bool
	}
	outcomes := make([]outcome, len(items))

	pool, err := ants.NewPool(o.config.SearchConcurrency)
	if err != nil {
		// Fall back to sequential execution if the pool can't start
		o.logger.Warn("failed to create worker pool, searching sequentially", "error", err)
		pool = nil
	} else {
		defer pool.Release()
	}

	var wg sync.WaitGroup
	for i := range items {
		if items[i].Vector == nil {
			outcomes[i].skipped = true
			continue
		}

		i := i
		task := func() {
			defer wg.Done()
			related, err := o.searcher.FindRelatedByVector(ctx, items[i].Record, items[i].Vector)
			outcomes[i] = outcome{related: related, err: err}
		}

		wg.Add(1)
		if pool != nil {
			if err := pool.Submit(task); err != nil {
				wg.Done()
				outcomes[i].err = err
			}
		} else {
			task()
		}
	}
	wg.Wait()

	updates := make([]storage.RelatedUpdate, 0, len(items))
	failures := 0
	for i, out := range outcomes {
		if out.skipped {
			continue
		}
		if out.err != nil {
			o.logger.Warn("related search failed", "id", items[i].Record.ID, "error", out.err)
			failures++
			continue
		}
		updates = append(updates, storage.RelatedUpdate{
			ID:      items[i].Record.ID,
			Related: out.related,
		})
	}
	return updates, failures
}

// commitUpdates writes related lists in chunks, advancing the checkpoint
// after each committed chunk. A failed chunk stops checkpoint advancement
// so its records are revisited, but later chunks still commit.
func (o *Orchestrator) commitUpdates(ctx context.Context, key string, updates []storage.RelatedUpdate) (committed int, advancedTo string, failures int) {
	policy := o.config.retryPolicy()
	advance := true

	for start := 0; start < len(updates); start += o.config.CommitChunkSize {
		end := start + o.config.CommitChunkSize
		if end > len(updates) {
			end = len(updates)
		}
		chunk := updates[start:end]

		err := Retry(ctx, policy, func() error {
			return o.store.CommitRelated(ctx, chunk)
		})
		if err != nil {
			o.logger.Error("failed to commit related chunk",
				"first", chunk[0].ID, "size", len(chunk), "error", err)
			failures += len(chunk)
			advance = false
			continue
		}

		committed += len(chunk)
		if advance {
			advancedTo = chunk[len(chunk)-1].ID
			if err := o.saveCursor(ctx, key, advancedTo); err != nil {
				o.logger.Warn("failed to advance checkpoint", "cursor", advancedTo, "error", err)
				advance = false
			}
		}
	}
	return committed, advancedTo, failures
}
