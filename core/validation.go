// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"strings"
)

// ValidateRecord validates a Record according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Text must not be empty or whitespace-only
//
// NOT validated (populated by the pipeline):
//   - RestatedText (optional paraphrase)
//   - Related (can be empty until the orchestrator runs)
func ValidateRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if record.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyID)
	}

	if strings.TrimSpace(record.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyText)
	}

	return nil
}

// ValidateRelatedList checks the invariants of a computed related list:
// no entry references the source record, similarities lie within
// [threshold, 1], titles are unique, the list is sorted by similarity
// descending and does not exceed limit entries.
func ValidateRelatedList(sourceID string, entries []RelatedEntry, threshold float32, limit int) error {
	if len(entries) > limit {
		return fmt.Errorf("%w: %d entries exceeds limit %d", ErrInvalidRelatedList, len(entries), limit)
	}

	titles := make(map[string]bool, len(entries))
	for i, entry := range entries {
		if entry.ID == sourceID {
			return fmt.Errorf("%w: entry %d references source record %q", ErrInvalidRelatedList, i, sourceID)
		}
		if entry.Similarity < threshold || entry.Similarity > 1.0 {
			return fmt.Errorf("%w: entry %d similarity %.4f outside [%.2f, 1.0]", ErrInvalidRelatedList, i, entry.Similarity, threshold)
		}
		if entry.Title == "" {
			return fmt.Errorf("%w: entry %d has no title", ErrInvalidRelatedList, i)
		}
		if titles[entry.Title] {
			return fmt.Errorf("%w: duplicate title %q", ErrInvalidRelatedList, entry.Title)
		}
		titles[entry.Title] = true
		if i > 0 && entries[i-1].Similarity < entry.Similarity {
			return fmt.Errorf("%w: entries not sorted by similarity at index %d", ErrInvalidRelatedList, i)
		}
	}

	return nil
}
