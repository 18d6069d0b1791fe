package catalog

import (
	"fmt"

	"github.com/ddevcap/mcu-rankings/store"
)

// Layout is the table shape of the backing store.
type Layout string

const (
	// Split keeps films/specials and shows in separate tables, each with its
	// own score table.
	Split Layout = "split"
	// Unified keeps every kind in one items table tagged by item_type.
	Unified Layout = "unified"
)

// ParseLayout validates a configured layout name.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(s); l {
	case Split, Unified:
		return l, nil
	case "":
		return Split, nil
	}
	return "", fmt.Errorf("catalog: unknown layout %q", s)
}

// itemsOf returns the collection holding items of kind k.
func (l Layout) itemsOf(k Kind) store.Collection {
	if l == Unified {
		return store.Items
	}
	if k == Show {
		return store.Shows
	}
	return store.MoviesSpecials
}

// scoresOf returns the collection holding scores of kind k.
func (l Layout) scoresOf(k Kind) store.Collection {
	if l == Unified {
		return store.ItemRankings
	}
	if k == Show {
		return store.ShowRankings
	}
	return store.MovieSpecialRankings
}

// itemSources lists the item collections to read, with the columns each
// exposes.
func (l Layout) itemSources() []source {
	if l == Unified {
		return []source{{
			coll:    store.Items,
			columns: []string{"id", "title", "item_type", "show_key", "season_number", "year", "phase", "phase_order"},
		}}
	}
	return []source{
		{coll: store.MoviesSpecials, columns: []string{"id", "title", "is_special", "year", "phase", "phase_order"}},
		{coll: store.Shows, columns: []string{"id", "title", "show_key", "season_number", "year", "phase", "phase_order"}},
	}
}

type source struct {
	coll    store.Collection
	columns []string
}

// normalize maps a row of coll into an Item. The kind comes from is_special
// in the films table, is implied by the shows table, and is read from
// item_type in the unified table.
func normalize(coll store.Collection, r store.Row) Item {
	it := Item{
		ID:         r.Int("id"),
		Title:      r.String("title"),
		Year:       int(r.Int("year")),
		Phase:      int(r.Int("phase")),
		PhaseOrder: int(r.Int("phase_order")),
	}
	switch coll {
	case store.MoviesSpecials:
		it.Kind = Film
		if r.Bool("is_special") {
			it.Kind = Special
		}
	case store.Shows:
		it.Kind = Show
	default:
		it.Kind = ParseKind(r.String("item_type"))
		if it.Kind == "" {
			it.Kind = Film
		}
	}
	if it.Kind == Show {
		it.ShowKey = r.String("show_key")
		it.SeasonNumber = int(r.Int("season_number"))
	}
	return it
}
