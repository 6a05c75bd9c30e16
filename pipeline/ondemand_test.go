package pipeline

import (
	"context"
	"testing"

	"github.com/poiesic/relata/ai/mock"
	"github.com/poiesic/relata/core"
	"github.com/poiesic/relata/storage"
	storagebadger "github.com/poiesic/relata/storage/badger"
	"github.com/poiesic/relata/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type onDemandFixture struct {
	store    storage.RecordStore
	embedder *mock.MockEmbedder
	index    *fakeIndex
	updater  *OnDemand
}

func setupOnDemand(t *testing.T) *onDemandFixture {
	t.Helper()

	recordStore, _, backend, err := storagebadger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	embedder := mock.NewMockEmbedder()
	embedder.Dimension = 8
	index := newFakeIndex()
	source := &staticSource{index: index}
	config := testConfig()

	upserter, err := NewUpserter(source, config)
	require.NoError(t, err)
	searcher, err := NewSearcher(source, embedder, config)
	require.NoError(t, err)
	updater, err := NewOnDemand(recordStore, embedder, upserter, searcher, config)
	require.NoError(t, err)

	return &onDemandFixture{
		store:    recordStore,
		embedder: embedder,
		index:    index,
		updater:  updater,
	}
}

func TestOnDemand_UnknownRecord(t *testing.T) {
	fixture := setupOnDemand(t)

	_, err := fixture.updater.UpdateOne(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestOnDemand_RefreshReturnsDiff(t *testing.T) {
	fixture := setupOnDemand(t)
	ctx := context.Background()

	record := testRecord(t, "how do I rotate an API key?")
	record.Related = []core.RelatedEntry{
		{ID: "stale", Title: "an outdated neighbor", Similarity: 0.7},
	}
	_, err := fixture.store.AddRecords(ctx, record)
	require.NoError(t, err)

	fixture.index.queryFunc = func(req *vectorindex.QueryRequest) ([]*vectorindex.Candidate, error) {
		return []*vectorindex.Candidate{
			{ID: "fresh", Score: 0.9, Title: "a new neighbor"},
		}, nil
	}

	diff, err := fixture.updater.UpdateOne(ctx, record.ID)
	require.NoError(t, err)

	assert.Equal(t, record.ID, diff.ID)
	require.Len(t, diff.Previous, 1)
	assert.Equal(t, "stale", diff.Previous[0].ID)
	require.Len(t, diff.Current, 1)
	assert.Equal(t, "fresh", diff.Current[0].ID)
	assert.True(t, diff.Changed())

	// Refresh also replaced the index entry
	assert.Contains(t, fixture.index.stored, record.ID)
}

func TestOnDemand_DetachedWritePersists(t *testing.T) {
	fixture := setupOnDemand(t)
	ctx := context.Background()

	record := testRecord(t, "what is a vector index?")
	_, err := fixture.store.AddRecords(ctx, record)
	require.NoError(t, err)

	fixture.index.queryFunc = func(req *vectorindex.QueryRequest) ([]*vectorindex.Candidate, error) {
		return []*vectorindex.Candidate{
			{ID: "neighbor", Score: 0.8, Title: "how are embeddings stored?"},
		}, nil
	}

	diff, err := fixture.updater.UpdateOne(ctx, record.ID)
	require.NoError(t, err)
	fixture.updater.Flush()

	stored, err := fixture.store.GetRecord(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, diff.Current, stored.Related)
}

func TestOnDemand_UnchangedDiff(t *testing.T) {
	fixture := setupOnDemand(t)
	ctx := context.Background()

	record := testRecord(t, "a question with no neighbors")
	record.Related = []core.RelatedEntry{}
	_, err := fixture.store.AddRecords(ctx, record)
	require.NoError(t, err)

	diff, err := fixture.updater.UpdateOne(ctx, record.ID)
	require.NoError(t, err)
	fixture.updater.Flush()

	assert.Empty(t, diff.Current)
	assert.False(t, diff.Changed())
}

func TestOnDemand_EmbeddingReturnsNil(t *testing.T) {
	fixture := setupOnDemand(t)
	ctx := context.Background()

	record := testRecord(t, "a perfectly fine question")
	_, err := fixture.store.AddRecords(ctx, record)
	require.NoError(t, err)

	fixture.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, nil
	}

	_, err = fixture.updater.UpdateOne(ctx, record.ID)
	assert.ErrorIs(t, err, ErrMissingText)
}
