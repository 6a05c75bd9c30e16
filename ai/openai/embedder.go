package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/relata/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for embeddings
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	// Literal line breaks collapse to spaces before the text reaches the
	// model; all other characters pass through unescaped.
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		logger:   slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
// A blank text returns (nil, nil) without a remote call.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		e.logger.Debug("no valid input for embedding, skipping remote call")
		return nil, nil
	}

	e.logger.Debug("generating embedding for single text", "length", len(text))

	vecs, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}

	if len(vecs) == 0 {
		e.logger.Warn("embedder returned empty result")
		return nil, nil
	}

	return vecs[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
// The result is positionally aligned with texts; blank inputs yield nil
// vectors and are excluded from the remote call. An all-blank or empty input
// returns without any network round trip.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	valid := make([]string, 0, len(texts))
	slots := make([]int, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		valid = append(valid, text)
		slots = append(slots, i)
	}

	if len(valid) == 0 {
		e.logger.Debug("no valid inputs for batch embedding, skipping remote call", "total", len(texts))
		return out, nil
	}

	e.logger.Debug("generating embeddings for texts", "count", len(valid))

	vecs, err := e.embedder.EmbedDocuments(ctx, valid)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(valid), "err", err)
		return nil, err
	}

	if len(vecs) != len(valid) {
		return nil, fmt.Errorf("embedding result mismatch: expected %d, received %d", len(valid), len(vecs))
	}

	for j, vec := range vecs {
		out[slots[j]] = vec
	}

	return out, nil
}
