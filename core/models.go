package core

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// TitleMaxLen is the maximum length, in runes, of the title stored in vector
// metadata and in related-list entries.
const TitleMaxLen = 140

// IDFromContent generates a deterministic record ID from text content using
// BLAKE2b hashing. Identical content produces identical IDs, which makes
// seeding and re-seeding idempotent.
func IDFromContent(text string) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Record is a single question/answer record in the corpus.
// Text is immutable once created; RestatedText, when present, is a
// higher-quality paraphrase that takes priority for embedding and search.
// Related is mutated only by this subsystem.
type Record struct {
	ID           string
	Text         string
	RestatedText string
	Related      []RelatedEntry
	InsertedAt   time.Time // When the record was inserted into the store
	UpdatedAt    time.Time // When the record was last updated
}

// CanonicalText returns the text actually embedded and searched for the
// record: the restated form when present, else the original.
func (r *Record) CanonicalText() string {
	if strings.TrimSpace(r.RestatedText) != "" {
		return r.RestatedText
	}
	return r.Text
}

// Title returns the presentation title for the record, truncated to
// TitleMaxLen runes of its canonical text.
func (r *Record) Title() string {
	return TitleOf(r.CanonicalText())
}

// TitleOf truncates text to at most TitleMaxLen runes.
func TitleOf(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= TitleMaxLen {
		return text
	}
	return string(runes[:TitleMaxLen])
}

// RelatedEntry is one entry in a record's ranked related list.
type RelatedEntry struct {
	ID         string
	Title      string
	Similarity float32
}

// Checkpoint marks the last successfully processed record for a sweep,
// enabling resumable paging. An empty LastProcessedID means "start of
// corpus". One checkpoint exists per (environment, tenant) pair.
type Checkpoint struct {
	Key             string
	LastProcessedID string
	UpdatedAt       time.Time
}

// CheckpointKey derives the checkpoint document key for an environment and
// tenant pair.
func CheckpointKey(environment, tenantID string) string {
	return strings.ToLower(environment) + ":" + tenantID
}

// VectorMeta is the metadata stored alongside a vector in the index.
type VectorMeta struct {
	Title    string
	TenantID string
}

// Vector pairs a record's embedding with its identity and metadata.
// The vector ID always equals the record ID; one vector exists per record.
type Vector struct {
	ID     string
	Values []float32
	Meta   VectorMeta
}
