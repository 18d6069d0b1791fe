package sqlstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ddevcap/mcu-rankings/score"
	"github.com/ddevcap/mcu-rankings/store"
)

// baseColors maps each base grade to its light color, dark color and name.
// Every modifier of a base shares its colors.
var baseColors = map[string]score.Color{
	"0":  {Light: "#1A1A1A", Dark: "#0B0B0B", Name: "black"},
	"1":  {Light: "#7B1E1E", Dark: "#5C1414", Name: "maroon"},
	"2":  {Light: "#C53030", Dark: "#9B2C2C", Name: "red"},
	"3":  {Light: "#DD6B20", Dark: "#C05621", Name: "orange"},
	"4":  {Light: "#ED8936", Dark: "#DD6B20", Name: "amber"},
	"5":  {Light: "#F6E05E", Dark: "#D69E2E", Name: "yellow"},
	"6":  {Light: "#68D391", Dark: "#38A169", Name: "light green"},
	"7":  {Light: "#38A169", Dark: "#276749", Name: "green"},
	"8":  {Light: "#319795", Dark: "#285E61", Name: "teal"},
	"9":  {Light: "#3182CE", Dark: "#2C5282", Name: "blue"},
	"10": {Light: "#805AD5", Dark: "#553C9A", Name: "purple"},
	"11": {Light: "#FFFFFF", Dark: "#F7FAFC", Name: "white"},
}

type film struct {
	id         int
	title      string
	year       int
	phase      int
	phaseOrder int
}

var infinitySaga = []film{
	{1, "Iron Man", 2008, 1, 1},
	{2, "The Incredible Hulk", 2008, 1, 2},
	{3, "Iron Man 2", 2010, 1, 3},
	{4, "Thor", 2011, 1, 4},
	{5, "Captain America: The First Avenger", 2011, 1, 5},
	{6, "The Avengers", 2012, 1, 6},
	{7, "Iron Man 3", 2013, 2, 1},
	{8, "Thor: The Dark World", 2013, 2, 2},
	{9, "Captain America: The Winter Soldier", 2014, 2, 3},
	{10, "Guardians of the Galaxy", 2014, 2, 4},
	{11, "Avengers: Age of Ultron", 2015, 2, 5},
	{12, "Ant-Man", 2015, 2, 6},
	{13, "Captain America: Civil War", 2016, 3, 1},
	{14, "Doctor Strange", 2016, 3, 2},
	{15, "Guardians of the Galaxy Vol. 2", 2017, 3, 3},
	{16, "Spider-Man: Homecoming", 2017, 3, 4},
	{17, "Thor: Ragnarok", 2017, 3, 5},
	{18, "Black Panther", 2018, 3, 6},
	{19, "Avengers: Infinity War", 2018, 3, 7},
	{20, "Ant-Man and the Wasp", 2018, 3, 8},
	{21, "Captain Marvel", 2019, 3, 9},
	{22, "Avengers: Endgame", 2019, 3, 10},
	{23, "Spider-Man: Far From Home", 2019, 3, 11},
}

// SeedReferenceData fills empty tables with the score palette and the
// Infinity Saga films (into both item layouts). Tables that already hold rows
// are left untouched, so it is safe to call on every start.
func (s *Store) SeedReferenceData(ctx context.Context) error {
	empty, err := s.isEmpty(ctx, store.ScoreColors)
	if err != nil {
		return err
	}
	if empty {
		for _, tok := range score.Tokens() {
			base, _ := score.Parse(tok)
			c := baseColors[base]
			row := store.Row{
				"score":           tok,
				"hex_color_light": c.Light,
				"hex_color_dark":  c.Dark,
				"color_name":      c.Name,
			}
			if err := s.Upsert(ctx, store.ScoreColors, row, "score"); err != nil {
				return fmt.Errorf("sqlstore: seeding score colors: %w", err)
			}
		}
		slog.Info("seed: inserted score colors", "count", len(score.Tokens()))
	}

	for _, target := range []struct {
		coll  store.Collection
		extra store.Row
	}{
		{store.MoviesSpecials, store.Row{"is_special": false}},
		{store.Items, store.Row{"item_type": "film"}},
	} {
		empty, err := s.isEmpty(ctx, target.coll)
		if err != nil {
			return err
		}
		if !empty {
			continue
		}
		for _, f := range infinitySaga {
			row := target.extra.Clone()
			row["id"] = f.id
			row["title"] = f.title
			row["year"] = f.year
			row["phase"] = f.phase
			row["phase_order"] = f.phaseOrder
			if err := s.Upsert(ctx, target.coll, row, "id"); err != nil {
				return fmt.Errorf("sqlstore: seeding %s: %w", target.coll, err)
			}
		}
		slog.Info("seed: inserted films", "collection", target.coll, "count", len(infinitySaga))
	}
	return nil
}

func (s *Store) isEmpty(ctx context.Context, c store.Collection) (bool, error) {
	rows, err := s.Select(ctx, c, store.Query{Limit: 1})
	if err != nil {
		return false, err
	}
	return len(rows) == 0, nil
}
