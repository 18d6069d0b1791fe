// Package catalog turns backend rows into the ratable Item model and builds
// the catalog and detail views on top of a store.Adapter.
package catalog

import (
	"errors"
	"fmt"
)

// Kind is the item kind.
type Kind string

const (
	Film    Kind = "film"
	Special Kind = "special"
	Show    Kind = "show"
)

// ParseKind accepts "film", "special" or "show"; anything else yields "".
func ParseKind(s string) Kind {
	switch k := Kind(s); k {
	case Film, Special, Show:
		return k
	}
	return ""
}

// ErrNotFound is returned when no item has the requested identifier.
var ErrNotFound = errors.New("catalog: item not found")

// ValidationError rejects user input before anything is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog: invalid %s: %s", e.Field, e.Message)
}

// Item is one ratable unit regardless of the table it came from.
type Item struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Year       int    `json:"year"`
	Kind       Kind   `json:"item_type"`
	Phase      int    `json:"phase"`
	PhaseOrder int    `json:"phase_order"`
	// ShowKey and SeasonNumber are set for shows only.
	ShowKey      string `json:"show_key,omitempty"`
	SeasonNumber int    `json:"season_number,omitempty"`
}

// IsShow reports whether the item is a television season.
func (i Item) IsShow() bool { return i.Kind == Show }

// Label is the display title. The season suffix is added when withSeason is
// set and the item is a show with a season number.
func (i Item) Label(withSeason bool) string {
	if withSeason && i.IsShow() && i.SeasonNumber > 0 {
		return fmt.Sprintf("%s (S%d)", i.Title, i.SeasonNumber)
	}
	return i.Title
}

// Path is the detail page link. Shows carry a kind hint so that an id shared
// with a film still resolves to the show.
func (i Item) Path() string {
	if i.IsShow() {
		return fmt.Sprintf("/title/%d?kind=show", i.ID)
	}
	return fmt.Sprintf("/title/%d", i.ID)
}
