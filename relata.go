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


// Package relata maintains per-record related-questions lists. It embeds
// question text, stores the vectors in a tenant-scoped cosine index, and
// computes each record's closest neighbors either in resumable batch
// sweeps or on demand for a single record.
package relata

import (
	"log/slog"

	"github.com/poiesic/relata/ai"
	"github.com/poiesic/relata/ai/openai"
	"github.com/poiesic/relata/pipeline"
	"github.com/poiesic/relata/storage"
	"github.com/poiesic/relata/storage/badger"
	"github.com/poiesic/relata/vectorindex"
	vecgoprovider "github.com/poiesic/relata/vectorindex/vecgo"
)

// Pipeline wires the stores, embedder, and index manager into the batch
// and on-demand entry points.
type Pipeline struct {
	backend     *badger.Backend
	records     storage.RecordStore
	checkpoints storage.CheckpointStore
	embedder    ai.Embedder
	manager     *vectorindex.Manager
	config      pipeline.Config
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*pipelineOptions)

type pipelineOptions struct {
	aiConfig  *ai.Config
	embedder  ai.Embedder
	provider  vectorindex.Provider
	dimension int
	inMemory  bool
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(config *ai.Config) Option {
	return func(o *pipelineOptions) {
		o.aiConfig = config
	}
}

// WithEmbedder injects a pre-built embedder, bypassing the AI config.
// Pair it with WithDimension when the embedder's output dimension differs
// from the AI config default.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(o *pipelineOptions) {
		o.embedder = embedder
	}
}

// WithDimension sets the vector index dimension explicitly, overriding
// the AI config's dimension.
func WithDimension(dimension int) Option {
	return func(o *pipelineOptions) {
		o.dimension = dimension
	}
}

// WithProvider injects a vector index provider.
func WithProvider(provider vectorindex.Provider) Option {
	return func(o *pipelineOptions) {
		o.provider = provider
	}
}

// WithInMemoryStorage keeps all records in memory. Intended for tests.
func WithInMemoryStorage() Option {
	return func(o *pipelineOptions) {
		o.inMemory = true
	}
}

// NewPipeline opens storage at filePath and wires the pipeline for the
// given tenant and environment scope.
func NewPipeline(filePath string, config pipeline.Config, opts ...Option) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	options := &pipelineOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	records, err := badger.NewRecordRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	checkpoints := badger.NewCheckpointRepository(backend)

	embedder := options.embedder
	if embedder == nil {
		embedder, err = openai.NewEmbedder(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	provider := options.provider
	if provider == nil {
		provider = vecgoprovider.NewProvider()
	}

	dimension := options.dimension
	if dimension <= 0 {
		dimension = options.aiConfig.Dimension
	}

	manager, err := vectorindex.NewManager(provider, vectorindex.ManagerConfig{
		Environment: config.Environment,
		Dimension:   dimension,
	})
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Pipeline{
		backend:     backend,
		records:     records,
		checkpoints: checkpoints,
		embedder:    embedder,
		manager:     manager,
		config:      config,
		logger:      slog.Default(),
	}, nil
}

// Close releases the storage backend.
func (p *Pipeline) Close() error {
	if err := p.backend.Close(); err != nil {
		p.logger.Error("error closing storage backend", "err", err)
		return err
	}
	return nil
}

// Records exposes the record store.
func (p *Pipeline) Records() storage.RecordStore {
	return p.records
}

// Checkpoints exposes the checkpoint store.
func (p *Pipeline) Checkpoints() storage.CheckpointStore {
	return p.checkpoints
}

// IndexManager exposes the index lifecycle manager.
func (p *Pipeline) IndexManager() *vectorindex.Manager {
	return p.manager
}

// NewOrchestrator builds the batch sweep orchestrator.
func (p *Pipeline) NewOrchestrator() (*pipeline.Orchestrator, error) {
	upserter, err := pipeline.NewUpserter(p.manager, p.config)
	if err != nil {
		return nil, err
	}
	searcher, err := pipeline.NewSearcher(p.manager, p.embedder, p.config)
	if err != nil {
		return nil, err
	}
	return pipeline.NewOrchestrator(p.records, p.checkpoints, p.embedder, upserter, searcher, p.config)
}

// NewOnDemand builds the single-record updater.
func (p *Pipeline) NewOnDemand() (*pipeline.OnDemand, error) {
	upserter, err := pipeline.NewUpserter(p.manager, p.config)
	if err != nil {
		return nil, err
	}
	searcher, err := pipeline.NewSearcher(p.manager, p.embedder, p.config)
	if err != nil {
		return nil, err
	}
	return pipeline.NewOnDemand(p.records, p.embedder, upserter, searcher, p.config)
}

// NewSearcher builds a standalone related-questions searcher.
func (p *Pipeline) NewSearcher() (*pipeline.Searcher, error) {
	return pipeline.NewSearcher(p.manager, p.embedder, p.config)
}
