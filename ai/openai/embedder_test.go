package openai

import (
	"context"
	"testing"

	"github.com/poiesic/relata/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The embedder filters blank inputs before any remote call, so these
// paths are exercisable without a running model server.

func newOfflineEmbedder(t *testing.T) *Embedder {
	t.Helper()
	embedder, err := newEmbedder(ai.DefaultConfig())
	require.NoError(t, err)
	return embedder
}

func TestNewEmbedder_InvalidConfig(t *testing.T) {
	_, err := NewEmbedder(&ai.Config{})
	assert.Error(t, err)
}

func TestEmbedder_BlankTextSkipsRemoteCall(t *testing.T) {
	embedder := newOfflineEmbedder(t)

	vec, err := embedder.EmbedText(context.Background(), "  \n\t ")
	require.NoError(t, err)
	assert.Nil(t, vec)
}

func TestEmbedder_EmptyBatchSkipsRemoteCall(t *testing.T) {
	embedder := newOfflineEmbedder(t)

	out, err := embedder.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEmbedder_AllBlankBatchReturnsAlignedNilSlots(t *testing.T) {
	embedder := newOfflineEmbedder(t)

	out, err := embedder.EmbedTexts(context.Background(), []string{"", "   ", "\n"})
	require.NoError(t, err)
	require.Len(t, out, 3, "result stays positionally aligned with the input")
	for i, vec := range out {
		assert.Nil(t, vec, "blank slot %d must stay nil", i)
	}
}
