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


package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	indexNameSuffix = "-related-questions"

	// DefaultPollInterval is how often DescribeIndex is polled while an
	// index is provisioning.
	DefaultPollInterval = 10 * time.Second

	// DefaultReadyTimeout bounds how long EnsureIndex waits for a newly
	// created index to become ready.
	DefaultReadyTimeout = 5 * time.Minute

	// DefaultCloud and DefaultRegion are used when the config leaves the
	// serverless placement unset.
	DefaultCloud  = "aws"
	DefaultRegion = "us-east-1"
)

// ManagerConfig configures index provisioning.
type ManagerConfig struct {
	Environment  string
	Dimension    int
	Cloud        string
	Region       string
	PollInterval time.Duration
	ReadyTimeout time.Duration
}

// Manager lazily provisions the per-environment index and caches the handle.
//
// Only one caller performs initialization at a time; concurrent callers get
// ErrIndexInitializing instead of blocking behind a slow create. A failed
// initialization resets the manager so a later call can retry.
type Manager struct {
	provider Provider
	config   ManagerConfig
	logger   *slog.Logger

	mu           sync.Mutex
	initializing bool
	handle       Index
	activeName   string
}

// NewManager creates a Manager for the given provider.
func NewManager(provider Provider, config ManagerConfig) (*Manager, error) {
	if provider == nil {
		return nil, errors.New("provider is required")
	}
	if strings.TrimSpace(config.Environment) == "" {
		return nil, errors.New("environment is required")
	}
	if config.Dimension <= 0 {
		return nil, errors.New("dimension must be positive")
	}
	if config.Cloud == "" {
		config.Cloud = DefaultCloud
	}
	if config.Region == "" {
		config.Region = DefaultRegion
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.ReadyTimeout <= 0 {
		config.ReadyTimeout = DefaultReadyTimeout
	}

	return &Manager{
		provider: provider,
		config:   config,
		logger:   slog.Default().With("component", "index-manager"),
	}, nil
}

// IndexName returns the environment-scoped index name.
func (m *Manager) IndexName() string {
	return strings.ToLower(m.config.Environment) + indexNameSuffix
}

// EnsureIndex returns a ready index handle, creating the index on first use.
//
// Returns ErrIndexInitializing if another caller is mid-initialization.
func (m *Manager) EnsureIndex(ctx context.Context) (Index, error) {
	m.mu.Lock()
	if m.handle != nil {
		handle := m.handle
		m.mu.Unlock()
		return handle, nil
	}
	if m.initializing {
		m.mu.Unlock()
		return nil, ErrIndexInitializing
	}
	m.initializing = true
	m.mu.Unlock()

	handle, err := m.initialize(ctx)

	m.mu.Lock()
	m.initializing = false
	if err == nil {
		m.handle = handle
		m.activeName = m.IndexName()
	}
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return handle, nil
}

// Reset drops the cached handle so the next EnsureIndex re-validates.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.handle = nil
	m.activeName = ""
	m.mu.Unlock()
}

func (m *Manager) initialize(ctx context.Context) (Index, error) {
	name := m.IndexName()

	names, err := m.provider.ListIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing indexes: %w", err)
	}

	if !slices.Contains(names, name) {
		m.logger.Info("creating vector index", "name", name, "dimension", m.config.Dimension)
		spec := &IndexSpec{
			Name:      name,
			Dimension: m.config.Dimension,
			Metric:    MetricCosine,
			Cloud:     m.config.Cloud,
			Region:    m.config.Region,
		}
		if err := m.provider.CreateIndex(ctx, spec); err != nil {
			return nil, fmt.Errorf("creating index %s: %w", name, err)
		}
	}

	status, err := m.awaitReady(ctx, name)
	if err != nil {
		return nil, err
	}

	if status.Dimension != m.config.Dimension {
		return nil, fmt.Errorf("%w: index %s has dimension %d, want %d",
			ErrDimensionMismatch, name, status.Dimension, m.config.Dimension)
	}
	if status.Metric != MetricCosine {
		return nil, fmt.Errorf("%w: index %s uses metric %q, want %q",
			ErrMetricMismatch, name, status.Metric, MetricCosine)
	}

	m.logger.Info("vector index ready", "name", name)
	return m.provider.Index(name), nil
}

// awaitReady polls DescribeIndex until the index reports ready or the
// ready timeout elapses.
func (m *Manager) awaitReady(ctx context.Context, name string) (*IndexStatus, error) {
	deadline := time.Now().Add(m.config.ReadyTimeout)

	for {
		status, err := m.provider.DescribeIndex(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("describing index %s: %w", name, err)
		}
		if status.Ready {
			return status, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s did not become ready within %s",
				ErrIndexNotReady, name, m.config.ReadyTimeout)
		}

		m.logger.Debug("waiting for index to become ready", "name", name)

		timer := time.NewTimer(m.config.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
