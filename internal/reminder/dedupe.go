package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultDedupeTTL keeps claims alive long enough to cover the target
// day plus a full retry window.
const DefaultDedupeTTL = 48 * time.Hour

// DedupeStore records which (appointment, day) pairs have already been
// claimed. MarkSent returns true when the caller won the claim and
// must deliver, false when another dispatch already did.
type DedupeStore interface {
	MarkSent(ctx context.Context, appointmentID string, day time.Time) (bool, error)
}

func dedupeKey(appointmentID string, day time.Time) string {
	return "reminder:" + appointmentID + ":" + day.Format("2006-01-02")
}

// RedisDedupe claims reminders with SET NX so the claim survives
// process restarts and is shared across replicas.
type RedisDedupe struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDedupe creates a redis-backed dedupe store. ttl falls back
// to DefaultDedupeTTL when non-positive.
func NewRedisDedupe(client *redis.Client, ttl time.Duration) *RedisDedupe {
	if ttl <= 0 {
		ttl = DefaultDedupeTTL
	}
	return &RedisDedupe{client: client, ttl: ttl}
}

func (d *RedisDedupe) MarkSent(ctx context.Context, appointmentID string, day time.Time) (bool, error) {
	return d.client.SetNX(ctx, dedupeKey(appointmentID, day), "1", d.ttl).Result()
}

// MemoryDedupe is the in-process fallback used when redis is not
// configured. Claims do not survive a restart.
type MemoryDedupe struct {
	mu   sync.Mutex
	sent map[string]time.Time
}

func NewMemoryDedupe() *MemoryDedupe {
	return &MemoryDedupe{sent: make(map[string]time.Time)}
}

func (d *MemoryDedupe) MarkSent(_ context.Context, appointmentID string, day time.Time) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.prune()
	key := dedupeKey(appointmentID, day)
	if _, ok := d.sent[key]; ok {
		return false, nil
	}
	d.sent[key] = time.Now().Add(DefaultDedupeTTL)
	return true, nil
}

// prune drops expired claims. Caller holds the mutex.
func (d *MemoryDedupe) prune() {
	now := time.Now()
	for key, expires := range d.sent {
		if now.After(expires) {
			delete(d.sent, key)
		}
	}
}
