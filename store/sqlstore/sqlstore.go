// Package sqlstore is the self-hosted store.Adapter. It runs the same
// select/upsert/update contract as the hosted backend against a Postgres
// (lib/pq) or SQLite (modernc.org/sqlite) database, building statements with
// ent's dialect-aware SQL builder.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ddevcap/mcu-rankings/store"
)

// Backend names accepted by Open.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// Store is a store.Adapter over database/sql.
type Store struct {
	drv     *entsql.Driver
	dialect string
}

// Open connects to dsn using backend (Postgres or SQLite). For SQLite the
// dsn is a file path or "file::memory:?cache=shared".
func Open(backend, dsn string) (*Store, error) {
	var driverName, d string
	switch backend {
	case Postgres:
		driverName, d = "postgres", dialect.Postgres
	case SQLite:
		driverName, d = "sqlite", dialect.SQLite
	default:
		return nil, fmt.Errorf("sqlstore: unknown backend %q", backend)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening %s: %w", backend, err)
	}
	if backend == SQLite {
		// One connection keeps in-memory databases alive and serialises writes.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlstore: enabling foreign keys: %w", err)
		}
	}
	return &Store{drv: entsql.OpenDB(d, db), dialect: d}, nil
}

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB { return s.drv.DB() }

// Close closes the database.
func (s *Store) Close() error { return s.drv.Close() }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.DB().PingContext(ctx)
}

func (s *Store) builder() *entsql.DialectBuilder { return entsql.Dialect(s.dialect) }

// Select runs SELECT <columns> FROM <c> WHERE <filters> ORDER BY <order> LIMIT <n>.
func (s *Store) Select(ctx context.Context, c store.Collection, q store.Query) ([]store.Row, error) {
	sel := s.builder().Select(q.Columns...).From(s.builder().Table(string(c)))
	if p := predicate(q.Filters); p != nil {
		sel.Where(p)
	}
	for _, o := range q.Order {
		if o.Descending {
			sel.OrderBy(entsql.Desc(o.Column))
		} else {
			sel.OrderBy(entsql.Asc(o.Column))
		}
	}
	if q.Limit > 0 {
		sel.Limit(q.Limit)
	}

	query, args := sel.Query()
	rows, err := s.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fetchError("select", c, err)
	}
	defer func() { _ = rows.Close() }()
	out, err := scanRows(rows)
	if err != nil {
		return nil, fetchError("select", c, err)
	}
	return out, nil
}

// Upsert runs INSERT ... ON CONFLICT (<conflictKey>) DO UPDATE SET <every
// column> = EXCLUDED.<column>.
func (s *Store) Upsert(ctx context.Context, c store.Collection, row store.Row, conflictKey string) error {
	if len(row) == 0 {
		return fetchError("upsert", c, errors.New("empty row"))
	}
	cols, vals := columnsOf(row)
	ins := s.builder().Insert(string(c)).Columns(cols...).Values(vals...)
	if conflictKey != "" {
		ins.OnConflict(
			entsql.ConflictColumns(conflictKey),
			entsql.ResolveWithNewValues(),
		)
	}
	query, args, err := ins.QueryErr()
	if err != nil {
		return fetchError("upsert", c, err)
	}
	if _, err := s.DB().ExecContext(ctx, query, args...); err != nil {
		return fetchError("upsert", c, err)
	}
	return nil
}

// Update applies patch to the rows matching filters, then reads the first
// matching row back.
func (s *Store) Update(ctx context.Context, c store.Collection, filters []store.Filter, patch store.Row) (store.Row, error) {
	if len(patch) == 0 {
		return nil, fetchError("update", c, errors.New("empty patch"))
	}
	upd := s.builder().Update(string(c))
	cols, vals := columnsOf(patch)
	for i, col := range cols {
		upd.Set(col, vals[i])
	}
	if p := predicate(filters); p != nil {
		upd.Where(p)
	}
	query, args := upd.Query()
	res, err := s.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fetchError("update", c, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, nil
	}

	// Filters may name a patched column; read back by the patched values too.
	readBack := append([]store.Filter(nil), filters...)
	for _, f := range filters {
		if v, ok := patch[f.Column]; ok {
			readBack = replaceFilter(readBack, store.Eq(f.Column, v))
		}
	}
	rows, err := s.Select(ctx, c, store.Query{Filters: readBack, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func predicate(filters []store.Filter) *entsql.Predicate {
	if len(filters) == 0 {
		return nil
	}
	preds := make([]*entsql.Predicate, 0, len(filters))
	for _, f := range filters {
		switch f.Op {
		case store.OpContainsFold:
			preds = append(preds, entsql.ContainsFold(f.Column, fmt.Sprint(f.Value)))
		default:
			preds = append(preds, entsql.EQ(f.Column, f.Value))
		}
	}
	if len(preds) == 1 {
		return preds[0]
	}
	return entsql.And(preds...)
}

func replaceFilter(filters []store.Filter, f store.Filter) []store.Filter {
	for i := range filters {
		if filters[i].Column == f.Column {
			filters[i] = f
		}
	}
	return filters
}

// columnsOf returns the row's columns in a stable order with their values.
func columnsOf(row store.Row) ([]string, []any) {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	vals := make([]any, len(cols))
	for i, k := range cols {
		vals[i] = row[k]
	}
	return cols, vals
}

func scanRows(rows *sql.Rows) ([]store.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []store.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(store.Row, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				r[col] = string(b)
				continue
			}
			r[col] = vals[i]
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func fetchError(op string, c store.Collection, err error) *store.FetchError {
	return &store.FetchError{Op: op, Collection: c, Message: strings.TrimSpace(err.Error()), Err: err}
}
