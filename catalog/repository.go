package catalog

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ddevcap/mcu-rankings/score"
	"github.com/ddevcap/mcu-rankings/store"
)

// Repository reads and writes items and scores through a store.Adapter,
// hiding the table layout from its callers.
type Repository struct {
	db     store.Adapter
	layout Layout
	now    func() time.Time
}

// NewRepository returns a repository over db using layout.
func NewRepository(db store.Adapter, layout Layout) *Repository {
	if layout == "" {
		layout = Split
	}
	return &Repository{db: db, layout: layout, now: time.Now}
}

// Layout is the table layout in use.
func (r *Repository) Layout() Layout { return r.layout }

// ScoreColors loads the palette keyed by score token.
func (r *Repository) ScoreColors(ctx context.Context) (score.Palette, error) {
	rows, err := r.db.Select(ctx, store.ScoreColors, store.Query{})
	if err != nil {
		return nil, err
	}
	p := make(score.Palette, len(rows))
	for _, row := range rows {
		p[row.String("score")] = score.Color{
			Light: row.String("hex_color_light"),
			Dark:  row.String("hex_color_dark"),
			Name:  row.String("color_name"),
		}
	}
	return p, nil
}

// ListItems loads every item of every kind, merged into (phase, phase_order)
// order. The item tables are read concurrently.
func (r *Repository) ListItems(ctx context.Context) ([]Item, error) {
	sources := r.layout.itemSources()
	results := make([][]Item, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			rows, err := r.db.Select(gctx, src.coll, store.Query{
				Columns: src.columns,
				Order:   []store.Order{store.Asc("phase"), store.Asc("phase_order")},
			})
			if err != nil {
				return err
			}
			items := make([]Item, 0, len(rows))
			for _, row := range rows {
				items = append(items, normalize(src.coll, row))
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []Item
	for _, items := range results {
		merged = append(merged, items...)
	}
	SortByPhase(merged)
	return merged, nil
}

// SortByPhase orders items by phase, then phase order. Ties keep their
// relative order.
func SortByPhase(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Phase != items[j].Phase {
			return items[i].Phase < items[j].Phase
		}
		return items[i].PhaseOrder < items[j].PhaseOrder
	})
}

// Scores maps items to their stored score token.
type Scores struct {
	layout Layout
	byColl map[store.Collection]map[int64]string
}

// Of returns the token stored for it, or score.Default when none is.
func (s Scores) Of(it Item) string {
	if tok, ok := s.byColl[s.layout.scoresOf(it.Kind)][it.ID]; ok && tok != "" {
		return tok
	}
	return score.Default
}

// Scores loads every score row of every score table.
func (r *Repository) Scores(ctx context.Context) (Scores, error) {
	colls := []store.Collection{r.layout.scoresOf(Film)}
	if r.layout == Split {
		colls = append(colls, r.layout.scoresOf(Show))
	}
	results := make([]map[int64]string, len(colls))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range colls {
		g.Go(func() error {
			rows, err := r.db.Select(gctx, c, store.Query{
				Columns: []string{"item_id", "score"},
				Order:   []store.Order{store.Asc("item_id")},
			})
			if err != nil {
				return err
			}
			m := make(map[int64]string, len(rows))
			for _, row := range rows {
				m[row.Int("item_id")] = row.String("score")
			}
			results[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Scores{}, err
	}

	s := Scores{layout: r.layout, byColl: make(map[store.Collection]map[int64]string, len(colls))}
	for i, c := range colls {
		s.byColl[c] = results[i]
	}
	return s, nil
}

// FindItem loads the item with id. In the split layout films and specials
// are probed first and shows second, unless hint is Show, in which case the
// order is reversed.
func (r *Repository) FindItem(ctx context.Context, id int64, hint Kind) (Item, error) {
	var order []source
	for _, src := range r.layout.itemSources() {
		if hint == Show && src.coll == store.Shows {
			order = append([]source{src}, order...)
			continue
		}
		order = append(order, src)
	}
	for _, src := range order {
		rows, err := r.db.Select(ctx, src.coll, store.Query{
			Filters: []store.Filter{store.Eq("id", id)},
			Limit:   1,
		})
		if err != nil {
			return Item{}, err
		}
		if len(rows) > 0 {
			return normalize(src.coll, rows[0]), nil
		}
	}
	return Item{}, ErrNotFound
}

// ItemScore loads the score of it, defaulting to score.Default.
func (r *Repository) ItemScore(ctx context.Context, it Item) (string, error) {
	rows, err := r.db.Select(ctx, r.layout.scoresOf(it.Kind), store.Query{
		Columns: []string{"item_id", "score"},
		Filters: []store.Filter{store.Eq("item_id", it.ID)},
		Limit:   1,
	})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 || rows[0].String("score") == "" {
		return score.Default, nil
	}
	return rows[0].String("score"), nil
}

// Siblings loads every season sharing its show key, ordered by season
// number. Non-show items have no siblings.
func (r *Repository) Siblings(ctx context.Context, it Item) ([]Item, error) {
	if !it.IsShow() || it.ShowKey == "" {
		return nil, nil
	}
	coll := r.layout.itemsOf(Show)
	rows, err := r.db.Select(ctx, coll, store.Query{
		Filters: []store.Filter{store.Eq("show_key", it.ShowKey)},
		Order:   []store.Order{store.Asc("season_number")},
	})
	if err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(rows))
	for _, row := range rows {
		sib := normalize(coll, row)
		if sib.IsShow() {
			out = append(out, sib)
		}
	}
	return out, nil
}

// SaveScore upserts token as the score of it, keyed by item id.
func (r *Repository) SaveScore(ctx context.Context, it Item, token string) error {
	return r.db.Upsert(ctx, r.layout.scoresOf(it.Kind), store.Row{
		"item_id":    it.ID,
		"score":      token,
		"updated_at": r.now().UTC(),
	}, "item_id")
}

// UpdateItem writes title and year of it.
func (r *Repository) UpdateItem(ctx context.Context, it Item, title string, year int) error {
	row, err := r.db.Update(ctx, r.layout.itemsOf(it.Kind),
		[]store.Filter{store.Eq("id", it.ID)},
		store.Row{"title": title, "year": year},
	)
	if err != nil {
		return err
	}
	if row == nil {
		return ErrNotFound
	}
	return nil
}

// SearchTitles returns up to limit items of each item table whose title
// contains q, case-insensitively, ordered by title.
func (r *Repository) SearchTitles(ctx context.Context, q string, limit int) ([]Item, error) {
	sources := r.layout.itemSources()
	results := make([][]Item, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			rows, err := r.db.Select(gctx, src.coll, store.Query{
				Columns: src.columns,
				Filters: []store.Filter{store.ContainsFold("title", q)},
				Order:   []store.Order{store.Asc("title")},
				Limit:   limit,
			})
			if err != nil {
				return err
			}
			items := make([]Item, 0, len(rows))
			for _, row := range rows {
				items = append(items, normalize(src.coll, row))
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []Item
	for _, items := range results {
		out = append(out, items...)
	}
	return out, nil
}
