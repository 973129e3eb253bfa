package source

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generate returns n synthetic entries with random ids. They are handy for
// exercising the list with large collections.
func Generate(n int) []Entry {
	entries := make([]Entry, max(0, n))
	now := time.Now()
	for i := range entries {
		id := uuid.NewString()
		rel := fmt.Sprintf("generated/%s", id)
		e := newEntry(rel, int64(i), now, 1)
		e.Name = fmt.Sprintf("item %d", i+1)
		entries[i] = e
	}
	return entries
}
