package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
//
// Blank input handling is part of the contract: whitespace-only texts are
// filtered out before any remote call is made and reported as "no valid
// input" rather than as an error. EmbedTexts keeps its result positionally
// aligned with its input by returning a nil vector in the slot of every
// filtered text, so callers can pair inputs and outputs by index without
// re-deriving which entries were dropped.
//
// No retry is performed at this layer; remote failures propagate to callers,
// which own the backoff policy appropriate for their batch size.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// A blank text returns (nil, nil) without a remote call.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in
	// a batch. The returned slice has the same length as texts; blank
	// inputs yield nil vectors. An empty or all-blank input returns
	// without any remote call.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
