package catalog

import (
	"sort"
	"strconv"

	"github.com/ddevcap/mcu-rankings/score"
)

// Entry is one rendered catalog row.
type Entry struct {
	Item
	Label      string `json:"label"`
	Link       string `json:"link"`
	Score      string `json:"score"`
	Base       string `json:"base"`
	Modifier   string `json:"modifier"`
	Background string `json:"background"`
	Text       string `json:"text"`
	// Solid rows (grades 0, 10, 11) are fully colored.
	Solid bool `json:"solid"`
	// CanModify reports whether the grade takes a +/- modifier.
	CanModify bool `json:"can_modify"`
}

// PhaseGroup is the entries of one release phase, in phase order.
type PhaseGroup struct {
	Phase   int     `json:"phase"`
	Entries []Entry `json:"entries"`
}

// View is the grouped catalog.
type View struct {
	Phases []PhaseGroup `json:"phases"`
	// Year is set when the catalog is filtered to a single release year.
	Year     string      `json:"year,omitempty"`
	Theme    score.Theme `json:"theme"`
	Editable bool        `json:"editable"`
	Bases    []string    `json:"bases"`
}

// ViewOptions shape a catalog build.
type ViewOptions struct {
	Theme    score.Theme
	Year     string
	Editable bool
}

// NewEntry renders it with token under theme.
func NewEntry(it Item, token string, palette score.Palette, theme score.Theme, withSeason bool) Entry {
	base, mod := score.Parse(token)
	tok := score.Compose(base, mod)
	return Entry{
		Item:       it,
		Label:      it.Label(withSeason),
		Link:       it.Path(),
		Score:      tok,
		Base:       base,
		Modifier:   mod,
		Background: palette.Background(tok, theme),
		Text:       palette.Text(tok, theme),
		Solid:      score.Solid(base),
		CanModify:  score.SupportsModifier(base),
	}
}

// BuildView scores items, optionally filters them to one year, and groups
// them by ascending phase, each group sorted by phase order. Shows get a
// season suffix only when their show key has more than one season.
func BuildView(items []Item, scores Scores, palette score.Palette, opts ViewOptions) View {
	seasons := make(map[string]int)
	for _, it := range items {
		if it.IsShow() && it.ShowKey != "" {
			seasons[it.ShowKey]++
		}
	}

	groups := make(map[int]*PhaseGroup)
	var phases []int
	for _, it := range items {
		if opts.Year != "" && strconv.Itoa(it.Year) != opts.Year {
			continue
		}
		g, ok := groups[it.Phase]
		if !ok {
			g = &PhaseGroup{Phase: it.Phase}
			groups[it.Phase] = g
			phases = append(phases, it.Phase)
		}
		withSeason := it.IsShow() && seasons[it.ShowKey] > 1
		g.Entries = append(g.Entries, NewEntry(it, scores.Of(it), palette, opts.Theme, withSeason))
	}

	sort.Ints(phases)
	v := View{
		Phases:   make([]PhaseGroup, 0, len(phases)),
		Year:     opts.Year,
		Theme:    opts.Theme,
		Editable: opts.Editable,
		Bases:    score.BaseOptions(),
	}
	for _, p := range phases {
		g := groups[p]
		sort.SliceStable(g.Entries, func(i, j int) bool {
			return g.Entries[i].PhaseOrder < g.Entries[j].PhaseOrder
		})
		v.Phases = append(v.Phases, *g)
	}
	return v
}

// Find returns the entry for the item with id and kind, if present.
func (v View) Find(id int64, kind Kind) (Entry, bool) {
	for _, g := range v.Phases {
		for _, e := range g.Entries {
			if e.ID == id && (kind == "" || sameTable(e.Kind, kind)) {
				return e, true
			}
		}
	}
	return Entry{}, false
}

// Replace swaps the entry with the same id and table for e.
func (v *View) Replace(e Entry) bool {
	for gi := range v.Phases {
		for ei := range v.Phases[gi].Entries {
			cur := v.Phases[gi].Entries[ei]
			if cur.ID == e.ID && sameTable(cur.Kind, e.Kind) {
				v.Phases[gi].Entries[ei] = e
				return true
			}
		}
	}
	return false
}

// Len is the number of entries across every phase.
func (v View) Len() int {
	n := 0
	for _, g := range v.Phases {
		n += len(g.Entries)
	}
	return n
}

// sameTable reports whether two kinds live in the same split-layout table.
func sameTable(a, b Kind) bool {
	return (a == Show) == (b == Show)
}
