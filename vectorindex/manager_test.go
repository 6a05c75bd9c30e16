package vectorindex

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/relata/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	name string
}

func (f *fakeIndex) Upsert(ctx context.Context, vectors ...*core.Vector) error { return nil }
func (f *fakeIndex) Query(ctx context.Context, req *QueryRequest) ([]*Candidate, error) {
	return nil, nil
}
func (f *fakeIndex) Fetch(ctx context.Context, ids ...string) ([]*core.Vector, error) {
	return nil, nil
}

type fakeProvider struct {
	mu            sync.Mutex
	names         []string
	statuses      map[string]*IndexStatus
	listErr       error
	createErr     error
	describeErr   error
	createCalls   int
	describeCalls int

	// listGate, when non-nil, blocks ListIndexes until closed.
	listGate chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{statuses: map[string]*IndexStatus{}}
}

func (f *fakeProvider) ListIndexes(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	gate := f.listGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]string(nil), f.names...), nil
}

func (f *fakeProvider) CreateIndex(ctx context.Context, spec *IndexSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	f.names = append(f.names, spec.Name)
	f.statuses[spec.Name] = &IndexStatus{Ready: true, Dimension: spec.Dimension, Metric: spec.Metric}
	return nil
}

func (f *fakeProvider) DescribeIndex(ctx context.Context, name string) (*IndexStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.describeCalls++
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	status, ok := f.statuses[name]
	if !ok {
		return nil, ErrIndexNotFound
	}
	return status, nil
}

func (f *fakeProvider) Index(name string) Index {
	return &fakeIndex{name: name}
}

func testManagerConfig() ManagerConfig {
	return ManagerConfig{
		Environment:  "Production",
		Dimension:    3072,
		PollInterval: time.Millisecond,
		ReadyTimeout: 50 * time.Millisecond,
	}
}

func TestManager_IndexName(t *testing.T) {
	manager, err := NewManager(newFakeProvider(), testManagerConfig())
	require.NoError(t, err)
	assert.Equal(t, "production-related-questions", manager.IndexName())
}

func TestManager_EnsureIndex_CreatesMissing(t *testing.T) {
	provider := newFakeProvider()
	manager, err := NewManager(provider, testManagerConfig())
	require.NoError(t, err)

	handle, err := manager.EnsureIndex(context.Background())
	require.NoError(t, err)
	require.NotNil(t, handle)
	assert.Equal(t, 1, provider.createCalls)
}

func TestManager_EnsureIndex_CachesHandle(t *testing.T) {
	provider := newFakeProvider()
	manager, err := NewManager(provider, testManagerConfig())
	require.NoError(t, err)

	first, err := manager.EnsureIndex(context.Background())
	require.NoError(t, err)
	second, err := manager.EnsureIndex(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, provider.createCalls)
}

func TestManager_EnsureIndex_ExistingIndexNotRecreated(t *testing.T) {
	provider := newFakeProvider()
	provider.names = []string{"production-related-questions"}
	provider.statuses["production-related-questions"] = &IndexStatus{
		Ready: true, Dimension: 3072, Metric: MetricCosine,
	}

	manager, err := NewManager(provider, testManagerConfig())
	require.NoError(t, err)

	_, err = manager.EnsureIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, provider.createCalls)
}

func TestManager_EnsureIndex_DimensionMismatch(t *testing.T) {
	provider := newFakeProvider()
	provider.names = []string{"production-related-questions"}
	provider.statuses["production-related-questions"] = &IndexStatus{
		Ready: true, Dimension: 768, Metric: MetricCosine,
	}

	manager, err := NewManager(provider, testManagerConfig())
	require.NoError(t, err)

	_, err = manager.EnsureIndex(context.Background())
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestManager_EnsureIndex_MetricMismatch(t *testing.T) {
	provider := newFakeProvider()
	provider.names = []string{"production-related-questions"}
	provider.statuses["production-related-questions"] = &IndexStatus{
		Ready: true, Dimension: 3072, Metric: "dotproduct",
	}

	manager, err := NewManager(provider, testManagerConfig())
	require.NoError(t, err)

	_, err = manager.EnsureIndex(context.Background())
	assert.ErrorIs(t, err, ErrMetricMismatch)
}

func TestManager_EnsureIndex_ReadyTimeout(t *testing.T) {
	provider := newFakeProvider()
	provider.names = []string{"production-related-questions"}
	provider.statuses["production-related-questions"] = &IndexStatus{
		Ready: false, Dimension: 3072, Metric: MetricCosine,
	}

	manager, err := NewManager(provider, testManagerConfig())
	require.NoError(t, err)

	_, err = manager.EnsureIndex(context.Background())
	assert.ErrorIs(t, err, ErrIndexNotReady)
}

func TestManager_EnsureIndex_RetriesAfterFailure(t *testing.T) {
	provider := newFakeProvider()
	provider.listErr = errors.New("service unavailable")

	manager, err := NewManager(provider, testManagerConfig())
	require.NoError(t, err)

	_, err = manager.EnsureIndex(context.Background())
	require.Error(t, err)

	// Failure clears the in-flight flag so a later call can retry
	provider.mu.Lock()
	provider.listErr = nil
	provider.mu.Unlock()

	handle, err := manager.EnsureIndex(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, handle)
}

func TestManager_EnsureIndex_ConcurrentGuard(t *testing.T) {
	provider := newFakeProvider()
	gate := make(chan struct{})
	provider.listGate = gate

	manager, err := NewManager(provider, testManagerConfig())
	require.NoError(t, err)

	var firstHandle Index
	var firstErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstHandle, firstErr = manager.EnsureIndex(context.Background())
	}()

	// The first caller is parked inside ListIndexes; concurrent callers
	// must be turned away instead of queuing behind it
	var second error
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		_, second = manager.EnsureIndex(context.Background())
		if errors.Is(second, ErrIndexInitializing) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	close(gate)
	wg.Wait()

	assert.ErrorIs(t, second, ErrIndexInitializing)
	require.NoError(t, firstErr)
	assert.NotNil(t, firstHandle)
}

func TestManager_Reset(t *testing.T) {
	provider := newFakeProvider()
	manager, err := NewManager(provider, testManagerConfig())
	require.NoError(t, err)

	_, err = manager.EnsureIndex(context.Background())
	require.NoError(t, err)

	manager.Reset()

	_, err = manager.EnsureIndex(context.Background())
	require.NoError(t, err)
	// Index already exists after the first call, so no second create
	assert.Equal(t, 1, provider.createCalls)
}

func TestNewManager_Validation(t *testing.T) {
	t.Run("nil provider", func(t *testing.T) {
		_, err := NewManager(nil, testManagerConfig())
		assert.Error(t, err)
	})

	t.Run("blank environment", func(t *testing.T) {
		config := testManagerConfig()
		config.Environment = "  "
		_, err := NewManager(newFakeProvider(), config)
		assert.Error(t, err)
	})

	t.Run("non-positive dimension", func(t *testing.T) {
		config := testManagerConfig()
		config.Dimension = 0
		_, err := NewManager(newFakeProvider(), config)
		assert.Error(t, err)
	})

	t.Run("defaults applied", func(t *testing.T) {
		manager, err := NewManager(newFakeProvider(), ManagerConfig{Environment: "dev", Dimension: 8})
		require.NoError(t, err)
		assert.Equal(t, DefaultCloud, manager.config.Cloud)
		assert.Equal(t, DefaultRegion, manager.config.Region)
		assert.Equal(t, DefaultPollInterval, manager.config.PollInterval)
		assert.Equal(t, DefaultReadyTimeout, manager.config.ReadyTimeout)
	})
}
