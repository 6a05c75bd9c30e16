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
	"slices"

	"github.com/poiesic/relata/ai"
	"github.com/poiesic/relata/core"
	"github.com/poiesic/relata/vectorindex"
)

// Searcher computes a record's related-questions list from index
// similarity candidates.
type Searcher struct {
	source   IndexSource
	embedder ai.Embedder
	config   Config
	logger   *slog.Logger
}

// NewSearcher creates a Searcher.
func NewSearcher(source IndexSource, embedder ai.Embedder, config Config) (*Searcher, error) {
	if source == nil {
		return nil, fmt.Errorf("index source is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	return &Searcher{
		source:   source,
		embedder: embedder,
		config:   config,
		logger:   slog.Default().With("component", "searcher"),
	}, nil
}

// FindRelated embeds the record's canonical text and returns its related
// list. A record with no embeddable text gets an empty list.
func (s *Searcher) FindRelated(ctx context.Context, record *core.Record) ([]core.RelatedEntry, error) {
	if err := core.ValidateRecord(record); err != nil {
		return nil, err
	}

	var vector []float32
	err := Retry(ctx, s.config.retryPolicy(), func() error {
		var embedErr error
		vector, embedErr = s.embedder.EmbedText(ctx, record.CanonicalText())
		return embedErr
	})
	if err != nil {
		return nil, fmt.Errorf("embedding record %s: %w", record.ID, err)
	}

	return s.FindRelatedByVector(ctx, record, vector)
}

// FindRelatedByVector returns the record's related list given its
// embedding. An empty vector yields an empty list.
//
// Candidates below the similarity threshold, without a title, sharing the
// source record's title, or duplicating an already accepted title are
// dropped. The result is ordered by similarity descending and capped at
// the configured limit.
func (s *Searcher) FindRelatedByVector(ctx context.Context, record *core.Record, vector []float32) ([]core.RelatedEntry, error) {
	if len(vector) == 0 {
		s.logger.Debug("record has no embedding, returning empty related list", "id", record.ID)
		return []core.RelatedEntry{}, nil
	}

	index, err := s.source.EnsureIndex(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []*vectorindex.Candidate
	err = Retry(ctx, s.config.retryPolicy(), func() error {
		var queryErr error
		candidates, queryErr = index.Query(ctx, &vectorindex.QueryRequest{
			Vector:   vector,
			TopK:     s.config.CandidatePoolSize,
			TenantID: s.config.TenantID,
		})
		return queryErr
	})
	if err != nil {
		return nil, fmt.Errorf("querying related for %s: %w", record.ID, err)
	}

	// Most similar first; the index already orders this way, but the
	// dedup pass depends on it
	slices.SortStableFunc(candidates, func(a, b *vectorindex.Candidate) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	sourceTitle := record.Title()
	seenTitles := make(map[string]bool, len(candidates))
	related := make([]core.RelatedEntry, 0, s.config.ResultLimit)

	for _, candidate := range candidates {
		if candidate.ID == record.ID {
			continue
		}
		if candidate.Score < s.config.SimilarityThreshold {
			continue
		}
		if candidate.Title == "" {
			continue
		}
		if candidate.Title == sourceTitle {
			continue
		}
		if seenTitles[candidate.Title] {
			continue
		}
		seenTitles[candidate.Title] = true

		related = append(related, core.RelatedEntry{
			ID:         candidate.ID,
			Title:      candidate.Title,
			Similarity: candidate.Score,
		})
		if len(related) >= s.config.ResultLimit {
			break
		}
	}

	return related, nil
}
