package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	embedder := NewMockEmbedder()
	ctx := context.Background()

	first, err := embedder.EmbedText(ctx, "what is a vector index?")
	require.NoError(t, err)
	second, err := embedder.EmbedText(ctx, "what is a vector index?")
	require.NoError(t, err)

	assert.Equal(t, first, second, "same text always embeds to the same vector")
	assert.Len(t, first, 384)
	assert.Equal(t, 2, embedder.CallCount())
}

func TestMockEmbedder_EmptyBatchMakesNoCalls(t *testing.T) {
	embedder := NewMockEmbedder()

	out, err := embedder.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, embedder.CallCount(), "empty input never reaches the service")
}

func TestMockEmbedder_AllBlankBatchMakesNoCalls(t *testing.T) {
	embedder := NewMockEmbedder()

	out, err := embedder.EmbedTexts(context.Background(), []string{"", "   ", "\n\t"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, vec := range out {
		assert.Nil(t, vec, "blank slot %d must stay nil", i)
	}
	assert.Zero(t, embedder.CallCount(), "all-blank input never reaches the service")
}

func TestMockEmbedder_BlankSlotsStayAligned(t *testing.T) {
	embedder := NewMockEmbedder()

	out, err := embedder.EmbedTexts(context.Background(), []string{"first", "  ", "third"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.NotNil(t, out[0])
	assert.Nil(t, out[1], "blank input yields a nil slot, not a shorter slice")
	assert.NotNil(t, out[2])
	assert.Equal(t, 1, embedder.CallCount(), "one batch call for the valid texts")
}

func TestMockEmbedder_BlankSingleTextMakesNoCall(t *testing.T) {
	embedder := NewMockEmbedder()

	vec, err := embedder.EmbedText(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, vec)
	assert.Zero(t, embedder.CallCount())
}

func TestMockEmbedder_BehaviorInjection(t *testing.T) {
	embedder := NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 2, 3}, nil
	}

	vec, err := embedder.EmbedText(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vec)

	embedder.Reset()
	assert.Zero(t, embedder.CallCount())
}
