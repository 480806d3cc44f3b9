package service

import (
	"time"

	"github.com/loykin/taskr/internal/store"
	"github.com/loykin/taskr/internal/todo"
)

// nextPendingLimit caps the pending records returned by FindActiveWork.
const nextPendingLimit = 3

// Queries is the read side. It never writes to the store.
type Queries struct {
	store *store.Store
}

func NewQueries(s *store.Store) *Queries { return &Queries{store: s} }

// Filter narrows Read. Empty fields match everything; values are compared
// exactly and are not validated.
type Filter struct {
	Status       string
	Priority     string
	IncludeStats bool
}

type ReadResult struct {
	SessionID string
	Todos     []todo.Record
	// Count is len(Todos); Total is the session size before filtering.
	Count int
	Total int
	// Stats cover the filtered records and are set only when requested.
	Stats *todo.Summary
	// LastUpdated is nil for a session that was never stored.
	LastUpdated *time.Time
}

type SessionInfo struct {
	SessionID      string
	TodoCount      int
	LastUpdated    time.Time
	CompletionRate float64
	StatusCounts   map[todo.Status]int
}

type Listing struct {
	Sessions []SessionInfo
	Storage  store.Stats
}

// ActiveWork describes the session FindActiveWork picked. Found is false when
// no session has pending or in-progress records.
type ActiveWork struct {
	Found       bool
	SessionID   string
	Total       int
	Pending     int
	InProgress  int
	NextPending []todo.Record
	Current     []todo.Record
	LastUpdated time.Time
}

func (q *Queries) Read(sessionID string, f Filter) (ReadResult, error) {
	if err := checkSession(sessionID); err != nil {
		return ReadResult{}, err
	}
	sess, ok := q.store.Lookup(sessionID)
	records := todo.Filter(sess.Todos, todo.Status(f.Status), todo.Priority(f.Priority))
	res := ReadResult{
		SessionID: sessionID,
		Todos:     records,
		Count:     len(records),
		Total:     len(sess.Todos),
	}
	if f.IncludeStats {
		sum := todo.Summarize(records)
		res.Stats = &sum
	}
	if ok {
		ts := sess.LastUpdated
		res.LastUpdated = &ts
	}
	return res, nil
}

// ListSessions reports every stored session, empty ones included, in
// insertion order, plus store-wide totals.
func (q *Queries) ListSessions() Listing {
	sessions := q.store.Sessions()
	out := Listing{Sessions: make([]SessionInfo, 0, len(sessions)), Storage: q.store.Stats()}
	for _, s := range sessions {
		sum := todo.Summarize(s.Todos)
		out.Sessions = append(out.Sessions, SessionInfo{
			SessionID:      s.Key,
			TodoCount:      len(s.Todos),
			LastUpdated:    s.LastUpdated,
			CompletionRate: sum.CompletionRate,
			StatusCounts:   sum.StatusCounts,
		})
	}
	return out
}

func (q *Queries) FindActiveWork() ActiveWork {
	key, ok := q.store.LatestActive()
	if !ok {
		return ActiveWork{}
	}
	sess, ok := q.store.Lookup(key)
	if !ok {
		// deleted between the two calls
		return ActiveWork{}
	}
	pending := todo.Filter(sess.Todos, todo.StatusPending, "")
	current := todo.Filter(sess.Todos, todo.StatusInProgress, "")
	next := pending
	if len(next) > nextPendingLimit {
		next = next[:nextPendingLimit]
	}
	return ActiveWork{
		Found:       true,
		SessionID:   key,
		Total:       len(sess.Todos),
		Pending:     len(pending),
		InProgress:  len(current),
		NextPending: next,
		Current:     current,
		LastUpdated: sess.LastUpdated,
	}
}
