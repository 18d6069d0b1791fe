package search

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period after the last keystroke before a
// query is run.
const DefaultDebounce = 200 * time.Millisecond

// Event is a snapshot of the typeahead sent to the client after every change.
type Event struct {
	// Seq is the query sequence number the snapshot belongs to.
	Seq   uint64 `json:"seq"`
	Query string `json:"query"`
	List
	// Navigate is set when a result was picked.
	Navigate string `json:"navigate,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Session is the typeahead of one client. Every query change bumps a
// sequence number, stops the pending debounce timer and cancels the search
// in flight, and results are only applied when their sequence number is
// still current. A slow response for an old query can therefore never
// overwrite a newer one.
type Session struct {
	searcher *Searcher
	debounce time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	seq      uint64
	query    string
	list     List
	timer    *time.Timer
	inflight context.CancelFunc

	events chan Event
}

// NewSession starts a session bound to ctx. Close it when the client leaves.
func NewSession(ctx context.Context, s *Searcher, debounce time.Duration) *Session {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Session{
		searcher: s,
		debounce: debounce,
		ctx:      ctx,
		cancel:   cancel,
		list:     NewList(),
		events:   make(chan Event, 16),
	}
}

// Events delivers snapshots in order.
func (s *Session) Events() <-chan Event { return s.events }

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// SetQuery handles a change of the input. Short queries clear the list
// immediately with no lookup; others are run after the debounce period.
func (s *Session) SetQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.stopLocked()
	s.query = q
	if !Searchable(q) {
		s.list.Clear()
		s.emitLocked(Event{})
		return
	}
	seq := s.seq
	s.timer = time.AfterFunc(s.debounce, func() { s.run(seq, q) })
}

func (s *Session) run(seq uint64, q string) {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.inflight = cancel
	s.mu.Unlock()

	results, err := s.searcher.Search(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		// Superseded while in flight.
		return
	}
	s.inflight = nil
	if err != nil {
		slog.Warn("search failed", "query", q, "error", err)
		s.list.Clear()
		s.emitLocked(Event{Error: "Search failed"})
		return
	}
	s.list.SetResults(results)
	s.emitLocked(Event{})
}

// Key handles a keyboard key. Enter picks a result and navigates to it.
func (s *Session) Key(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.list.Handle(k); ok {
		s.navigateLocked(r)
		return
	}
	s.emitLocked(Event{})
}

// Select picks the result at index i.
func (s *Session) Select(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.list.Select(i); ok {
		s.navigateLocked(r)
	}
}

// Blur closes the list, as a click outside the search control does.
func (s *Session) Blur() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.Close()
	s.emitLocked(Event{})
}

// Focus reopens the list when the query still has results.
func (s *Session) Focus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if Searchable(s.query) {
		s.list.Focus()
	}
	s.emitLocked(Event{})
}

// State returns the current snapshot.
func (s *Session) State() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(Event{})
}

// Close stops pending work and ends the session.
func (s *Session) Close() {
	// Cancel first so an emit blocked on a full channel lets go of the lock.
	s.cancel()
	s.mu.Lock()
	s.seq++
	s.stopLocked()
	s.mu.Unlock()
}

// navigateLocked clears the query and invalidates pending searches before
// reporting the destination.
func (s *Session) navigateLocked(r Result) {
	s.seq++
	s.stopLocked()
	s.query = ""
	s.list.Clear()
	s.emitLocked(Event{Navigate: r.Link})
}

func (s *Session) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
}

func (s *Session) snapshotLocked(ev Event) Event {
	ev.Seq = s.seq
	ev.Query = s.query
	ev.List = s.list
	ev.List.Results = append([]Result(nil), s.list.Results...)
	return ev
}

func (s *Session) emitLocked(ev Event) {
	select {
	case s.events <- s.snapshotLocked(ev):
	case <-s.ctx.Done():
	}
}
