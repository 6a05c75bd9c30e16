package pipeline

import (
	"context"
	"testing"

	"github.com/poiesic/relata/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUpserter_Validation(t *testing.T) {
	t.Run("missing source", func(t *testing.T) {
		_, err := NewUpserter(nil, testConfig())
		assert.Error(t, err)
	})

	t.Run("missing tenant", func(t *testing.T) {
		config := testConfig()
		config.TenantID = " "
		_, err := NewUpserter(&staticSource{index: newFakeIndex()}, config)
		assert.ErrorIs(t, err, ErrTenantRequired)
	})
}

func TestUpserter_WritesTenantTaggedVectors(t *testing.T) {
	index := newFakeIndex()
	upserter, err := NewUpserter(&staticSource{index: index}, testConfig())
	require.NoError(t, err)

	record := testRecord(t, "how do I rotate an API key?")
	written, err := upserter.UpsertEmbedded(context.Background(), []RecordEmbedding{
		{Record: record, Vector: []float32{1, 0, 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	stored := index.stored[record.ID]
	require.NotNil(t, stored)
	assert.Equal(t, "tenant-1", stored.Meta.TenantID)
	assert.Equal(t, record.Title(), stored.Meta.Title)
}

func TestUpserter_SkipsUnembeddable(t *testing.T) {
	index := newFakeIndex()
	upserter, err := NewUpserter(&staticSource{index: index}, testConfig())
	require.NoError(t, err)

	items := []RecordEmbedding{
		{Record: testRecord(t, "embedded fine"), Vector: []float32{1}},
		{Record: testRecord(t, "blank embedding"), Vector: nil},
		{Record: &core.Record{ID: "bad", Text: "  "}, Vector: []float32{1}},
	}

	written, err := upserter.UpsertEmbedded(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.Len(t, index.stored, 1)
}

func TestUpserter_AllSkippedMakesNoIndexCalls(t *testing.T) {
	index := newFakeIndex()
	upserter, err := NewUpserter(&staticSource{index: index}, testConfig())
	require.NoError(t, err)

	written, err := upserter.UpsertEmbedded(context.Background(), []RecordEmbedding{
		{Record: testRecord(t, "no vector"), Vector: nil},
	})
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Zero(t, index.upsertCalls)
}

func TestUpserter_ChunksLargeBatches(t *testing.T) {
	index := newFakeIndex()
	config := testConfig()
	config.UpsertChunkSize = 2

	upserter, err := NewUpserter(&staticSource{index: index}, config)
	require.NoError(t, err)

	items := make([]RecordEmbedding, 5)
	for i := range items {
		items[i] = RecordEmbedding{
			Record: testRecord(t, string(rune('a'+i))+" distinct question"),
			Vector: []float32{float32(i)},
		}
	}

	written, err := upserter.UpsertEmbedded(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, 5, written)
	assert.Equal(t, 3, index.upsertCalls, "5 vectors in chunks of 2")
}

func TestUpserter_RetriesFailedVerification(t *testing.T) {
	index := newFakeIndex()
	index.dropFetches = 1 // first verification read finds nothing

	upserter, err := NewUpserter(&staticSource{index: index}, testConfig())
	require.NoError(t, err)

	written, err := upserter.UpsertEmbedded(context.Background(), []RecordEmbedding{
		{Record: testRecord(t, "verify me"), Vector: []float32{1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.Equal(t, 2, index.upsertCalls, "chunk replayed after failed verification")
}

func TestUpserter_PermanentErrorAborts(t *testing.T) {
	index := newFakeIndex()
	index.upsertErr = core.ErrInvalidRecord

	upserter, err := NewUpserter(&staticSource{index: index}, testConfig())
	require.NoError(t, err)

	_, err = upserter.UpsertEmbedded(context.Background(), []RecordEmbedding{
		{Record: testRecord(t, "doomed"), Vector: []float32{1}},
	})
	assert.ErrorIs(t, err, core.ErrInvalidRecord)
	assert.Equal(t, 1, index.upsertCalls, "permanent errors are not retried")
}

func TestUpserter_SourceFailurePropagates(t *testing.T) {
	upserter, err := NewUpserter(&staticSource{err: assert.AnError}, testConfig())
	require.NoError(t, err)

	_, err = upserter.UpsertEmbedded(context.Background(), []RecordEmbedding{
		{Record: testRecord(t, "anything"), Vector: []float32{1}},
	})
	assert.ErrorIs(t, err, assert.AnError)
}
