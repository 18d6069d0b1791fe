// Package search implements the title typeahead: a substring search across
// every item kind, the keyboard state of the suggestion list, and a debounced
// per-connection session that only ever delivers the latest query's results.
package search

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ddevcap/mcu-rankings/catalog"
)

const (
	// MinQueryLength is the shortest trimmed query that reaches the store.
	MinQueryLength = 2
	// DefaultLimit caps results per item table and in total.
	DefaultLimit = 8
)

// Finder is the title lookup the searcher runs on. catalog.Repository
// implements it.
type Finder interface {
	SearchTitles(ctx context.Context, q string, limit int) ([]catalog.Item, error)
}

// Result is one suggestion.
type Result struct {
	ID           int64        `json:"id"`
	Title        string       `json:"title"`
	Label        string       `json:"label"`
	Year         int          `json:"year"`
	Kind         catalog.Kind `json:"item_type"`
	SeasonNumber int          `json:"season_number,omitempty"`
	Link         string       `json:"link"`
}

// Searcher runs title searches.
type Searcher struct {
	finder Finder
	limit  int
}

// NewSearcher returns a searcher capping results at limit (DefaultLimit when
// limit is not positive).
func NewSearcher(f Finder, limit int) *Searcher {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Searcher{finder: f, limit: limit}
}

// Searchable reports whether q is long enough to be searched.
func Searchable(q string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(q)) >= MinQueryLength
}

// Search returns up to limit items whose title contains q, sorted by title.
// Queries shorter than MinQueryLength return nothing without a lookup.
func (s *Searcher) Search(ctx context.Context, q string) ([]Result, error) {
	if !Searchable(q) {
		return nil, nil
	}
	items, err := s.finder.SearchTitles(ctx, strings.TrimSpace(q), s.limit)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := strings.ToLower(items[i].Title), strings.ToLower(items[j].Title)
		if a != b {
			return a < b
		}
		return items[i].SeasonNumber < items[j].SeasonNumber
	})
	if len(items) > s.limit {
		items = items[:s.limit]
	}

	out := make([]Result, 0, len(items))
	for _, it := range items {
		out = append(out, Result{
			ID:           it.ID,
			Title:        it.Title,
			Label:        it.Label(true),
			Year:         it.Year,
			Kind:         it.Kind,
			SeasonNumber: it.SeasonNumber,
			Link:         it.Path(),
		})
	}
	return out, nil
}
