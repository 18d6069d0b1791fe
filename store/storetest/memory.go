// Package storetest provides an in-memory store.Adapter that follows the same
// call contract as the real adapters and records every call, for use in tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ddevcap/mcu-rankings/store"
)

// Call records one adapter invocation.
type Call struct {
	Op         string
	Collection store.Collection
	Query      store.Query
	Row        store.Row
	Filters    []store.Filter
}

// Memory is a goroutine-safe in-memory adapter.
type Memory struct {
	mu       sync.Mutex
	tables   map[store.Collection][]store.Row
	calls    []Call
	failures map[string]error
	pingErr  error
}

// NewMemory returns an empty adapter.
func NewMemory() *Memory {
	return &Memory{
		tables:   make(map[store.Collection][]store.Row),
		failures: make(map[string]error),
	}
}

// Seed appends rows to collection c without recording a call.
func (m *Memory) Seed(c store.Collection, rows ...store.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.tables[c] = append(m.tables[c], r.Clone())
	}
}

// Rows returns a copy of every row in c.
func (m *Memory) Rows(c store.Collection) []store.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Row, 0, len(m.tables[c]))
	for _, r := range m.tables[c] {
		out = append(out, r.Clone())
	}
	return out
}

// Calls returns the recorded calls in order.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsTo returns the recorded calls of op ("select", "upsert", "update").
func (m *Memory) CallsTo(op string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls forgets recorded calls.
func (m *Memory) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// FailOn makes every op call against c fail with err until cleared with a
// nil err. The error is wrapped in a *store.FetchError like a real adapter.
func (m *Memory) FailOn(op string, c store.Collection, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := op + ":" + string(c)
	if err == nil {
		delete(m.failures, key)
		return
	}
	m.failures[key] = err
}

// SetPingError controls the result of Ping.
func (m *Memory) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

func (m *Memory) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

func (m *Memory) fail(op string, c store.Collection) error {
	if err, ok := m.failures[op+":"+string(c)]; ok {
		return &store.FetchError{Op: op, Collection: c, Message: err.Error(), Err: err}
	}
	return nil
}

func (m *Memory) Select(ctx context.Context, c store.Collection, q store.Query) ([]store.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "select", Collection: c, Query: q})
	if err := ctx.Err(); err != nil {
		return nil, &store.FetchError{Op: "select", Collection: c, Err: err}
	}
	if err := m.fail("select", c); err != nil {
		return nil, err
	}

	var out []store.Row
	for _, r := range m.tables[c] {
		if matches(r, q.Filters) {
			out = append(out, project(r, q.Columns))
		}
	}
	if len(q.Order) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, o := range q.Order {
				cmp := compare(out[i][o.Column], out[j][o.Column])
				if cmp == 0 {
					continue
				}
				if o.Descending {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *Memory) Upsert(ctx context.Context, c store.Collection, row store.Row, conflictKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "upsert", Collection: c, Row: row.Clone()})
	if err := ctx.Err(); err != nil {
		return &store.FetchError{Op: "upsert", Collection: c, Err: err}
	}
	if err := m.fail("upsert", c); err != nil {
		return err
	}
	for i, r := range m.tables[c] {
		if equal(r[conflictKey], row[conflictKey]) {
			merged := r.Clone()
			for k, v := range row {
				merged[k] = v
			}
			m.tables[c][i] = merged
			return nil
		}
	}
	m.tables[c] = append(m.tables[c], row.Clone())
	return nil
}

func (m *Memory) Update(ctx context.Context, c store.Collection, filters []store.Filter, patch store.Row) (store.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "update", Collection: c, Filters: filters, Row: patch.Clone()})
	if err := ctx.Err(); err != nil {
		return nil, &store.FetchError{Op: "update", Collection: c, Err: err}
	}
	if err := m.fail("update", c); err != nil {
		return nil, err
	}
	var first store.Row
	for i, r := range m.tables[c] {
		if !matches(r, filters) {
			continue
		}
		for k, v := range patch {
			r[k] = v
		}
		m.tables[c][i] = r
		if first == nil {
			first = r.Clone()
		}
	}
	return first, nil
}

func matches(r store.Row, filters []store.Filter) bool {
	for _, f := range filters {
		switch f.Op {
		case store.OpEq:
			if !equal(r[f.Column], f.Value) {
				return false
			}
		case store.OpContainsFold:
			if !strings.Contains(strings.ToLower(r.String(f.Column)), strings.ToLower(fmt.Sprint(f.Value))) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func project(r store.Row, columns []string) store.Row {
	if len(columns) == 0 {
		return r.Clone()
	}
	out := make(store.Row, len(columns))
	for _, c := range columns {
		if v, ok := r[c]; ok {
			out[c] = v
		}
	}
	return out
}

func equal(a, b any) bool {
	if x, ok := store.AsInt(a); ok {
		if y, ok := store.AsInt(b); ok {
			return x == y
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func compare(a, b any) int {
	if x, ok := store.AsInt(a); ok {
		if y, ok := store.AsInt(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
