// Package store defines the persistence contract the application runs on: a
// remote tabular store exposing select, upsert and update against named
// collections. Implementations live in store/rest (hosted PostgREST backend)
// and store/sqlstore (self-hosted Postgres or SQLite).
package store

import (
	"context"
	"errors"
	"fmt"
)

// Collection names a table in the backing store.
type Collection string

// Collections of the split layout.
const (
	MoviesSpecials       Collection = "mcu_movies_specials"
	Shows                Collection = "mcu_shows"
	MovieSpecialRankings Collection = "mcu_movie_special_rankings"
	ShowRankings         Collection = "mcu_show_rankings"
	ScoreColors          Collection = "score_colors"
)

// Collections of the unified layout, where every kind shares one items table.
const (
	Items        Collection = "mcu_items"
	ItemRankings Collection = "mcu_item_rankings"
)

// Op is a filter comparison.
type Op string

const (
	// OpEq matches rows whose column equals the value.
	OpEq Op = "eq"
	// OpContainsFold matches rows whose column contains the value as a
	// case-insensitive substring.
	OpContainsFold Op = "ilike"
)

// Filter restricts the rows a Select or Update touches.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Eq is shorthand for an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// ContainsFold is shorthand for a case-insensitive substring filter.
func ContainsFold(column, sub string) Filter {
	return Filter{Column: column, Op: OpContainsFold, Value: sub}
}

// Order sorts a Select. Orders are ascending unless Descending is set.
type Order struct {
	Column     string
	Descending bool
}

// Asc is shorthand for an ascending order.
func Asc(column string) Order { return Order{Column: column} }

// Query describes a Select. Empty Columns selects every column; a zero Limit
// means no limit.
type Query struct {
	Columns []string
	Filters []Filter
	Order   []Order
	Limit   int
}

// Adapter is the persistence contract.
//
// Every failure is returned as a *FetchError. Adapters never retry; retry
// policy belongs to the caller. Upsert must be idempotent: repeating the same
// row with the same conflict key leaves a single row in the same final state.
type Adapter interface {
	Select(ctx context.Context, c Collection, q Query) ([]Row, error)
	Upsert(ctx context.Context, c Collection, row Row, conflictKey string) error
	// Update applies patch to the rows matching filters and returns the first
	// updated row, or nil when nothing matched.
	Update(ctx context.Context, c Collection, filters []Filter, patch Row) (Row, error)
}

// Pinger is implemented by adapters that can report their availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FetchError is the typed error surfaced by every adapter call.
type FetchError struct {
	Op         string
	Collection Collection
	// Status is the HTTP status of a failed hosted call, 0 otherwise.
	Status int
	// Message is the raw backend message shown to users on write failures.
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Collection == "" {
		return fmt.Sprintf("store: %s: %s", e.Op, msg)
	}
	return fmt.Sprintf("store: %s %s: %s", e.Op, e.Collection, msg)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RawMessage returns the backend's own message for err when it is a
// FetchError, or err's text otherwise.
func RawMessage(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		if fe.Message != "" {
			return fe.Message
		}
		if fe.Err != nil {
			return fe.Err.Error()
		}
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

type accessTokenKey struct{}

// WithAccessToken attaches the signed-in admin's access token to ctx so that
// adapters enforcing row-level auth can authorise writes as that identity.
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessToken returns the token attached by WithAccessToken, if any.
func AccessToken(ctx context.Context) string {
	t, _ := ctx.Value(accessTokenKey{}).(string)
	return t
}
