package catalog

import (
	"strconv"
	"strings"
)

// Year bounds accepted by the edit form.
const (
	MinYear = 1900
	MaxYear = 3000
)

// Season is one entry of the season switcher.
type Season struct {
	ID           int64  `json:"id"`
	SeasonNumber int    `json:"season_number"`
	Link         string `json:"link"`
	Current      bool   `json:"current"`
}

// Detail is the title page of one item.
type Detail struct {
	Entry
	// Seasons is populated only when the show has more than one season.
	Seasons  []Season `json:"seasons,omitempty"`
	Editable bool     `json:"editable"`
	Bases    []string `json:"bases"`
}

// EditForm is the admin edit form of the title page. Year is kept as text so
// that malformed input can be reported rather than silently dropped.
type EditForm struct {
	Title    string `json:"title" form:"title"`
	Year     string `json:"year" form:"year"`
	Base     string `json:"base" form:"base"`
	Modifier string `json:"modifier" form:"modifier"`
}

// ValidateYear parses s as a release year in [MinYear, MaxYear].
func ValidateYear(s string) (int, error) {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || y < MinYear || y > MaxYear {
		return 0, &ValidationError{
			Field:   "year",
			Message: "Year must be a whole number between 1900 and 3000",
		}
	}
	return y, nil
}

// ValidateTitle trims s and rejects an empty title.
func ValidateTitle(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", &ValidationError{Field: "title", Message: "Title cannot be empty"}
	}
	return t, nil
}

func seasonsOf(it Item, siblings []Item) []Season {
	if len(siblings) < 2 {
		return nil
	}
	out := make([]Season, 0, len(siblings))
	for _, s := range siblings {
		out = append(out, Season{
			ID:           s.ID,
			SeasonNumber: s.SeasonNumber,
			Link:         s.Path(),
			Current:      s.ID == it.ID,
		})
	}
	return out
}
