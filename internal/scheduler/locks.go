package scheduler

import (
	"sync"
	"time"
)

// lockTable serializes booking commits per (mechanicID, date) key.
// Bookings for different mechanics or different days never contend.
// Entries are reference-counted and removed once the last holder
// releases, so the table stays bounded by in-flight requests.
type lockTable struct {
	mu   sync.Mutex
	held map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{held: make(map[string]*lockEntry)}
}

func (t *lockTable) acquire(key string) *lockEntry {
	t.mu.Lock()
	e, ok := t.held[key]
	if !ok {
		e = &lockEntry{}
		t.held[key] = e
	}
	e.refs++
	t.mu.Unlock()

	e.mu.Lock()
	return e
}

func (t *lockTable) release(key string, e *lockEntry) {
	e.mu.Unlock()

	t.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(t.held, key)
	}
	t.mu.Unlock()
}

func bookingKey(mechanicID string, date time.Time) string {
	return mechanicID + "@" + date.Format("2006-01-02")
}
