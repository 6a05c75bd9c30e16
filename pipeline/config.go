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
	"errors"
	"strings"
	"time"
)

// Defaults for sweep and search behavior.
const (
	DefaultBatchSize           = 50
	DefaultResultLimit         = 5
	DefaultCandidatePoolSize   = 20
	DefaultSearchConcurrency   = 8
	DefaultSimilarityThreshold = 0.62
	DefaultUpsertChunkSize     = 100
	DefaultCommitChunkSize     = 400
	DefaultMaxRetries          = 3
	DefaultRetryDelay          = time.Second
)

// Config carries the tenant scope and tuning knobs shared by the
// pipeline components.
type Config struct {
	// TenantID scopes every index and store operation. Required.
	TenantID string

	// Environment selects the per-environment index. Required.
	Environment string

	// BatchSize is the page size of a sweep.
	BatchSize int

	// ResultLimit caps each record's related list.
	ResultLimit int

	// CandidatePoolSize is the top-K requested from the index before
	// filtering.
	CandidatePoolSize int

	// SearchConcurrency bounds the parallel related searches within a
	// page.
	SearchConcurrency int

	// SimilarityThreshold is the minimum cosine similarity for a
	// candidate to qualify as related.
	SimilarityThreshold float32

	// UpsertChunkSize bounds vectors per index upsert call.
	UpsertChunkSize int

	// CommitChunkSize bounds related-list updates per store commit.
	CommitChunkSize int

	// MaxRetries and RetryDelay shape the backoff of retried operations.
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with all tuning knobs at their defaults.
// TenantID and Environment must still be set by the caller.
func DefaultConfig() Config {
	return Config{
		BatchSize:           DefaultBatchSize,
		ResultLimit:         DefaultResultLimit,
		CandidatePoolSize:   DefaultCandidatePoolSize,
		SearchConcurrency:   DefaultSearchConcurrency,
		SimilarityThreshold: DefaultSimilarityThreshold,
		UpsertChunkSize:     DefaultUpsertChunkSize,
		CommitChunkSize:     DefaultCommitChunkSize,
		MaxRetries:          DefaultMaxRetries,
		RetryDelay:          DefaultRetryDelay,
	}
}

// setDefaults fills zero-valued tuning knobs.
func (c *Config) setDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.ResultLimit <= 0 {
		c.ResultLimit = DefaultResultLimit
	}
	if c.CandidatePoolSize <= 0 {
		c.CandidatePoolSize = DefaultCandidatePoolSize
	}
	if c.SearchConcurrency <= 0 {
		c.SearchConcurrency = DefaultSearchConcurrency
	}
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if c.UpsertChunkSize <= 0 {
		c.UpsertChunkSize = DefaultUpsertChunkSize
	}
	if c.CommitChunkSize <= 0 {
		c.CommitChunkSize = DefaultCommitChunkSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
}

// Validate checks the required scope fields.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TenantID) == "" {
		return ErrTenantRequired
	}
	if strings.TrimSpace(c.Environment) == "" {
		return errors.New("environment is required")
	}
	return nil
}

// retryPolicy derives the shared retry policy from the config.
func (c *Config) retryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: c.MaxRetries,
		BaseDelay:   c.RetryDelay,
		Transient:   IsTransient,
	}
}
