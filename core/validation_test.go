package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRecord(t *testing.T) {
	t.Run("valid record", func(t *testing.T) {
		err := ValidateRecord(&Record{ID: "abc", Text: "how do embeddings work?"})
		require.NoError(t, err)
	})

	t.Run("nil record", func(t *testing.T) {
		err := ValidateRecord(nil)
		assert.ErrorIs(t, err, ErrInvalidRecord)
	})

	t.Run("missing id", func(t *testing.T) {
		err := ValidateRecord(&Record{Text: "question"})
		assert.ErrorIs(t, err, ErrEmptyID)
	})

	t.Run("whitespace-only text", func(t *testing.T) {
		err := ValidateRecord(&Record{ID: "abc", Text: "   \n"})
		assert.ErrorIs(t, err, ErrEmptyText)
	})
}

func TestValidateRelatedList(t *testing.T) {
	valid := []RelatedEntry{
		{ID: "b", Title: "Second question", Similarity: 0.91},
		{ID: "c", Title: "Third question", Similarity: 0.75},
	}

	t.Run("valid list", func(t *testing.T) {
		require.NoError(t, ValidateRelatedList("a", valid, 0.62, 5))
	})

	t.Run("too many entries", func(t *testing.T) {
		err := ValidateRelatedList("a", valid, 0.62, 1)
		assert.ErrorIs(t, err, ErrInvalidRelatedList)
	})

	t.Run("self reference", func(t *testing.T) {
		entries := []RelatedEntry{{ID: "a", Title: "T", Similarity: 0.8}}
		err := ValidateRelatedList("a", entries, 0.62, 5)
		assert.ErrorIs(t, err, ErrInvalidRelatedList)
	})

	t.Run("similarity below threshold", func(t *testing.T) {
		entries := []RelatedEntry{{ID: "b", Title: "T", Similarity: 0.5}}
		err := ValidateRelatedList("a", entries, 0.62, 5)
		assert.ErrorIs(t, err, ErrInvalidRelatedList)
	})

	t.Run("duplicate titles", func(t *testing.T) {
		entries := []RelatedEntry{
			{ID: "b", Title: "Same", Similarity: 0.9},
			{ID: "c", Title: "Same", Similarity: 0.8},
		}
		err := ValidateRelatedList("a", entries, 0.62, 5)
		assert.ErrorIs(t, err, ErrInvalidRelatedList)
	})

	t.Run("unsorted list", func(t *testing.T) {
		entries := []RelatedEntry{
			{ID: "b", Title: "First", Similarity: 0.7},
			{ID: "c", Title: "Second", Similarity: 0.9},
		}
		err := ValidateRelatedList("a", entries, 0.62, 5)
		assert.ErrorIs(t, err, ErrInvalidRelatedList)
	})
}
