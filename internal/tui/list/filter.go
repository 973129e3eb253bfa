package list

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"

	"github.com/charmbracelet/scrollkit/internal/source"
	"github.com/sahilm/fuzzy"
)

type entrySource []source.Entry

func (s entrySource) String(i int) string { return s[i].Path }

func (s entrySource) Len() int { return len(s) }

// filtered returns the entries matching query in listing order.
func filtered(all []source.Entry, query string) []source.Entry {
	query = strings.TrimSpace(query)
	if query == "" {
		return all
	}
	matches := fuzzy.FindFrom(query, entrySource(all))
	slices.SortFunc(matches, func(a, b fuzzy.Match) int {
		return cmp.Compare(a.Index, b.Index)
	})
	out := make([]source.Entry, len(matches))
	for i, match := range matches {
		out[i] = all[match.Index]
	}
	return out
}

// applyFilter hands the filtered listing to the collection, which diffs it
// against what is shown so unchanged rows keep their cells.
func (m *Model) applyFilter() {
	items := filtered(m.all, m.filter.Value())
	if err := m.data.SetItems(items, true, true); err != nil {
		slog.Error("Failed to apply listing", "error", err, "entries", len(items))
		m.err = err
	}
}
