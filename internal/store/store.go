package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/loykin/taskr/internal/metrics"
	"github.com/loykin/taskr/internal/todo"
)

// Session is one session's records and the time they were last replaced.
type Session struct {
	Key         string
	Todos       []todo.Record
	LastUpdated time.Time
}

// Snapshot is the whole store as handed to a Persister. Sessions keep the
// store's insertion order.
type Snapshot struct {
	Sessions  []Session
	LastSaved time.Time
}

// Persister mirrors the store to durable storage. Save always receives the
// complete store; implementations rewrite rather than append.
type Persister interface {
	Kind() string
	Location() string
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Close() error
}

// Stats are store-wide totals. The breakdowns always carry every enum value.
type Stats struct {
	TotalSessions      int                   `json:"total_sessions"`
	TotalTodos         int                   `json:"total_todos"`
	StatusBreakdown    map[todo.Status]int   `json:"status_breakdown"`
	PriorityBreakdown  map[todo.Priority]int `json:"priority_breakdown"`
	HasFilePersistence bool                  `json:"has_file_persistence"`
	StorageFile        *string               `json:"storage_file"`
}

type entry struct {
	todos       []todo.Record
	lastUpdated time.Time
}

// Store owns every session. The in-memory map is authoritative; the optional
// Persister is written through on each mutation and failures there are only
// logged.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	order    []string

	persister Persister
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Store)

// WithPersister mirrors the store to p and hydrates from it on Open.
func WithPersister(p Persister) Option { return func(s *Store) { s.persister = p } }

func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.logger = l } }

// WithClock replaces time.Now for last-modified stamps.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// Open builds a store and loads the persister's snapshot when one is
// configured. A snapshot that cannot be loaded leaves the store empty.
func Open(ctx context.Context, opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*entry),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.load(ctx)
	s.publishSize()
	return s
}

func (s *Store) load(ctx context.Context) {
	if s.persister == nil {
		return
	}
	snap, err := s.persister.Load(ctx)
	if err != nil {
		metrics.ObservePersist(s.persister.Kind(), "load_error")
		s.logger.Warn("store load failed, starting empty",
			"backend", s.persister.Kind(), "location", s.persister.Location(), "error", err)
		return
	}
	metrics.ObservePersist(s.persister.Kind(), "load_ok")
	if snap == nil {
		return
	}
	for _, sess := range snap.Sessions {
		if _, ok := s.sessions[sess.Key]; !ok {
			s.order = append(s.order, sess.Key)
		}
		s.sessions[sess.Key] = &entry{todos: todo.Clone(sess.Todos), lastUpdated: sess.LastUpdated}
	}
	s.logger.Debug("store loaded", "backend", s.persister.Kind(), "sessions", len(s.order))
}

// Get returns a copy of the session's records, or an empty list for an unknown session.
func (s *Store) Get(key string) []todo.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.sessions[key]; ok {
		return todo.Clone(e.todos)
	}
	return []todo.Record{}
}

// Lookup returns the session and whether it exists.
func (s *Store) Lookup(key string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[key]
	if !ok {
		return Session{Key: key, Todos: []todo.Record{}}, false
	}
	return Session{Key: key, Todos: todo.Clone(e.todos), LastUpdated: e.lastUpdated}, true
}

func (s *Store) LastUpdated(key string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.sessions[key]; ok {
		return e.lastUpdated, true
	}
	return time.Time{}, false
}

// Keys lists every stored session, empty ones included, in insertion order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Sessions returns a copy of every session in insertion order.
func (s *Store) Sessions() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionsLocked()
}

func (s *Store) sessionsLocked() []Session {
	out := make([]Session, 0, len(s.order))
	for _, k := range s.order {
		e := s.sessions[k]
		out = append(out, Session{Key: k, Todos: todo.Clone(e.todos), LastUpdated: e.lastUpdated})
	}
	return out
}

// Set replaces the session's records, stamps it and persists the store.
func (s *Store) Set(ctx context.Context, key string, records []todo.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(ctx, key, records)
}

func (s *Store) setLocked(ctx context.Context, key string, records []todo.Record) {
	e, ok := s.sessions[key]
	if !ok {
		e = &entry{}
		s.sessions[key] = e
		s.order = append(s.order, key)
	}
	e.todos = todo.Clone(records)
	e.lastUpdated = s.now()
	s.persistLocked(ctx)
}

// Update runs fn on a copy of the session's records and stores the result,
// holding the write lock for the whole read-modify-write. When fn returns an
// error nothing is stored.
func (s *Store) Update(ctx context.Context, key string, fn func([]todo.Record) ([]todo.Record, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := []todo.Record{}
	if e, ok := s.sessions[key]; ok {
		current = todo.Clone(e.todos)
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	s.setLocked(ctx, key, next)
	return nil
}

// Delete removes a session and reports whether it existed.
func (s *Store) Delete(ctx context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[key]; !ok {
		return false
	}
	delete(s.sessions, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.persistLocked(ctx)
	return true
}

// LatestActive returns the most recently updated session holding a pending or
// in-progress record. Ties go to the session stored first.
func (s *Store) LatestActive() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		best   string
		bestTS time.Time
		found  bool
	)
	for _, k := range s.order {
		e := s.sessions[k]
		if !hasActive(e.todos) {
			continue
		}
		if !found || e.lastUpdated.After(bestTS) {
			best, bestTS, found = k, e.lastUpdated, true
		}
	}
	return best, found
}

func hasActive(rs []todo.Record) bool {
	for _, r := range rs {
		if r.Status.Active() {
			return true
		}
	}
	return false
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		TotalSessions:     len(s.order),
		StatusBreakdown:   make(map[todo.Status]int, len(todo.Statuses)),
		PriorityBreakdown: make(map[todo.Priority]int, len(todo.Priorities)),
	}
	for _, v := range todo.Statuses {
		st.StatusBreakdown[v] = 0
	}
	for _, v := range todo.Priorities {
		st.PriorityBreakdown[v] = 0
	}
	for _, e := range s.sessions {
		st.TotalTodos += len(e.todos)
		for _, r := range e.todos {
			st.StatusBreakdown[r.Status]++
			st.PriorityBreakdown[r.Priority]++
		}
	}
	if s.persister != nil {
		loc := s.persister.Location()
		st.HasFilePersistence = true
		st.StorageFile = &loc
	}
	return st
}

// Persistent reports whether a persister is configured.
func (s *Store) Persistent() bool { return s.persister != nil }

// Close releases the persister.
func (s *Store) Close() error {
	if s.persister == nil {
		return nil
	}
	return s.persister.Close()
}

func (s *Store) persistLocked(ctx context.Context) {
	defer s.publishSizeLocked()
	if s.persister == nil {
		return
	}
	snap := &Snapshot{Sessions: s.sessionsLocked(), LastSaved: s.now()}
	if err := s.persister.Save(ctx, snap); err != nil {
		metrics.ObservePersist(s.persister.Kind(), "error")
		s.logger.Warn("store persist failed, keeping in-memory state",
			"backend", s.persister.Kind(), "location", s.persister.Location(), "error", err)
		return
	}
	metrics.ObservePersist(s.persister.Kind(), "ok")
}

func (s *Store) publishSize() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.publishSizeLocked()
}

func (s *Store) publishSizeLocked() {
	byStatus := make(map[string]int, len(todo.Statuses))
	for _, v := range todo.Statuses {
		byStatus[string(v)] = 0
	}
	for _, e := range s.sessions {
		for _, r := range e.todos {
			byStatus[string(r.Status)]++
		}
	}
	metrics.SetStoreSize(len(s.order), byStatus)
}
