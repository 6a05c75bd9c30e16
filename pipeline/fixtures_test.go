package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/poiesic/relata/core"
	"github.com/poiesic/relata/vectorindex"
	"github.com/stretchr/testify/require"
)

// fakeIndex is an in-memory vectorindex.Index with injectable behavior.
type fakeIndex struct {
	mu          sync.Mutex
	stored      map[string]*core.Vector
	upsertCalls int
	upsertErr   error
	queryFunc   func(req *vectorindex.QueryRequest) ([]*vectorindex.Candidate, error)
	fetchErr    error
	dropFetches int // pretend this many verification fetches find nothing
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{stored: map[string]*core.Vector{}}
}

func (f *fakeIndex) Upsert(ctx context.Context, vectors ...*core.Vector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, v := range vectors {
		f.stored[v.ID] = v
	}
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, req *vectorindex.QueryRequest) ([]*vectorindex.Candidate, error) {
	f.mu.Lock()
	fn := f.queryFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return nil, nil
}

func (f *fakeIndex) Fetch(ctx context.Context, ids ...string) ([]*core.Vector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.dropFetches > 0 {
		f.dropFetches--
		return nil, nil
	}
	var out []*core.Vector
	for _, id := range ids {
		if v, ok := f.stored[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// staticSource hands out a fixed index handle.
type staticSource struct {
	index vectorindex.Index
	err   error
}

func (s *staticSource) EnsureIndex(ctx context.Context) (vectorindex.Index, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.index, nil
}

func testConfig() Config {
	config := DefaultConfig()
	config.TenantID = "tenant-1"
	config.Environment = "test"
	config.MaxRetries = 2
	config.RetryDelay = 1 // effectively no backoff in tests
	return config
}

func testRecord(t *testing.T, text string) *core.Record {
	t.Helper()
	record := &core.Record{
		ID:   core.IDFromContent(text),
		Text: text,
	}
	require.NoError(t, core.ValidateRecord(record))
	return record
}
