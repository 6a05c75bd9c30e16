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


// Package vecgo implements vectorindex.Provider on an embedded HNSW index.
//
// Indexes are in-process and immediately ready after creation, so the
// provisioning poll in vectorindex.Manager settles on the first describe.
package vecgo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/vecgo"
	"github.com/hupe1980/vecgo/metadata"
	"github.com/poiesic/relata/core"
	"github.com/poiesic/relata/vectorindex"
)

const (
	metaTenantID = "tenant_id"
	metaTitle    = "title"
)

// payload is the per-vector record stored alongside each embedding.
type payload struct {
	ID       string
	Title    string
	TenantID string
}

// Provider implements vectorindex.Provider with embedded vecgo indexes.
type Provider struct {
	mu      sync.RWMutex
	indexes map[string]*indexHandle
}

var _ vectorindex.Provider = (*Provider)(nil)

// NewProvider creates an empty in-process provider.
func NewProvider() *Provider {
	return &Provider{
		indexes: make(map[string]*indexHandle),
	}
}

// ListIndexes returns the names of all existing indexes.
func (p *Provider) ListIndexes(ctx context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.indexes))
	for name := range p.indexes {
		names = append(names, name)
	}
	return names, nil
}

// CreateIndex provisions a new embedded index.
func (p *Provider) CreateIndex(ctx context.Context, spec *vectorindex.IndexSpec) error {
	if spec.Metric != vectorindex.MetricCosine {
		return fmt.Errorf("unsupported metric: %s", spec.Metric)
	}
	if spec.Dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", spec.Dimension)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.indexes[spec.Name]; exists {
		return fmt.Errorf("index %s already exists", spec.Name)
	}

	db, err := vecgo.HNSW[payload](spec.Dimension).Cosine().Build()
	if err != nil {
		return err
	}

	p.indexes[spec.Name] = &indexHandle{
		db:         db,
		dimension:  spec.Dimension,
		byExternal: make(map[string]uint64),
	}
	return nil
}

// DescribeIndex reports the status of an index.
func (p *Provider) DescribeIndex(ctx context.Context, name string) (*vectorindex.IndexStatus, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	handle, ok := p.indexes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vectorindex.ErrIndexNotFound, name)
	}
	return &vectorindex.IndexStatus{
		Ready:     true,
		Dimension: handle.dimension,
		Metric:    vectorindex.MetricCosine,
	}, nil
}

// Index returns a handle for operations on an existing index.
// Operations on a handle for a missing index fail with ErrIndexNotFound.
func (p *Provider) Index(name string) vectorindex.Index {
	return &boundIndex{provider: p, name: name}
}

// indexHandle owns one vecgo instance and the external-to-internal ID map.
type indexHandle struct {
	mu         sync.RWMutex
	db         *vecgo.Vecgo[payload]
	dimension  int
	byExternal map[string]uint64
}

// boundIndex defers index resolution to call time so a handle can be
// obtained before the index exists.
type boundIndex struct {
	provider *Provider
	name     string
}

var _ vectorindex.Index = (*boundIndex)(nil)

func (b *boundIndex) resolve() (*indexHandle, error) {
	b.provider.mu.RLock()
	defer b.provider.mu.RUnlock()

	handle, ok := b.provider.indexes[b.name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", vectorindex.ErrIndexNotFound, b.name)
	}
	return handle, nil
}

// Upsert inserts or replaces vectors by external ID.
func (b *boundIndex) Upsert(ctx context.Context, vectors ...*core.Vector) error {
	handle, err := b.resolve()
	if err != nil {
		return err
	}

	handle.mu.Lock()
	defer handle.mu.Unlock()

	for _, vector := range vectors {
		if vector.ID == "" {
			return errors.New("vector ID is required")
		}
		if len(vector.Values) != handle.dimension {
			return fmt.Errorf("vector %s has dimension %d, index expects %d",
				vector.ID, len(vector.Values), handle.dimension)
		}

		item := vecgo.VectorWithData[payload]{
			Vector: vector.Values,
			Data: payload{
				ID:       vector.ID,
				Title:    vector.Meta.Title,
				TenantID: vector.Meta.TenantID,
			},
			Metadata: metadata.Metadata{
				metaTenantID: metadata.String(vector.Meta.TenantID),
				metaTitle:    metadata.String(vector.Meta.Title),
			},
		}

		if internal, exists := handle.byExternal[vector.ID]; exists {
			if err := handle.db.Update(ctx, internal, item); err != nil {
				return fmt.Errorf("updating vector %s: %w", vector.ID, err)
			}
			continue
		}

		internal, err := handle.db.Insert(ctx, item)
		if err != nil {
			return fmt.Errorf("inserting vector %s: %w", vector.ID, err)
		}
		handle.byExternal[vector.ID] = internal
	}
	return nil
}

// Query returns up to TopK candidates scoped to the request's tenant,
// ordered by similarity descending.
func (b *boundIndex) Query(ctx context.Context, req *vectorindex.QueryRequest) ([]*vectorindex.Candidate, error) {
	handle, err := b.resolve()
	if err != nil {
		return nil, err
	}
	if req.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", req.TopK)
	}

	handle.mu.RLock()
	defer handle.mu.RUnlock()

	// EF must stay >= k for the result heap to fill
	ef := req.TopK * 4
	if ef < 50 {
		ef = 50
	}

	filters := metadata.NewFilterSet(metadata.Filter{
		Key:      metaTenantID,
		Operator: metadata.OpEqual,
		Value:    metadata.String(req.TenantID),
	})

	results, err := handle.db.Search(req.Vector).
		KNN(req.TopK).
		EF(ef).
		WithMetadata(filters).
		Execute(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]*vectorindex.Candidate, 0, len(results))
	for _, result := range results {
		// Cosine distance over normalized vectors; similarity is its complement
		candidates = append(candidates, &vectorindex.Candidate{
			ID:       result.Data.ID,
			Score:    1 - result.Distance,
			Title:    result.Data.Title,
			TenantID: result.Data.TenantID,
		})
	}
	return candidates, nil
}

// Fetch retrieves stored vectors by external ID. Missing IDs are skipped.
// The returned vectors carry metadata only, not raw values.
func (b *boundIndex) Fetch(ctx context.Context, ids ...string) ([]*core.Vector, error) {
	handle, err := b.resolve()
	if err != nil {
		return nil, err
	}

	handle.mu.RLock()
	defer handle.mu.RUnlock()

	vectors := make([]*core.Vector, 0, len(ids))
	for _, id := range ids {
		internal, ok := handle.byExternal[id]
		if !ok {
			continue
		}
		data, err := handle.db.Get(internal)
		if err != nil {
			if errors.Is(err, vecgo.ErrNotFound) {
				continue
			}
			return nil, err
		}
		vectors = append(vectors, &core.Vector{
			ID: data.ID,
			Meta: core.VectorMeta{
				Title:    data.Title,
				TenantID: data.TenantID,
			},
		})
	}
	return vectors, nil
}
