package channels

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// maxTrackedKeys caps the number of tracked rate-limit keys to prevent
	// memory exhaustion from senders rotating identities.
	maxTrackedKeys = 4096

	// idleEvictAfter is how long an unused limiter is kept.
	idleEvictAfter = 10 * time.Minute
)

type senderEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SenderLimiter is a per-sender token bucket with a bounded number of
// tracked senders. Safe for concurrent use. A nil *SenderLimiter allows
// everything.
type SenderLimiter struct {
	mu      sync.Mutex
	entries map[int64]*senderEntry
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewSenderLimiter allows perMinute events per sender, with bursts of up
// to perMinute. perMinute <= 0 disables limiting and returns nil.
func NewSenderLimiter(perMinute int) *SenderLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &SenderLimiter{
		entries: make(map[int64]*senderEntry),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		now:     time.Now,
	}
}

// Allow reports whether sender may send one more event now.
// Automatically prunes idle entries and enforces a hard cap on tracked keys.
func (r *SenderLimiter) Allow(sender int64) bool {
	if r == nil {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	// Prune idle entries when approaching the cap
	if len(r.entries) >= maxTrackedKeys {
		for k, e := range r.entries {
			if now.Sub(e.lastSeen) >= idleEvictAfter {
				delete(r.entries, k)
			}
		}
		// Hard eviction if still at cap (FIFO-ish via map iteration)
		for len(r.entries) >= maxTrackedKeys {
			for k := range r.entries {
				delete(r.entries, k)
				break
			}
		}
	}

	e, ok := r.entries[sender]
	if !ok {
		e = &senderEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.entries[sender] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Len returns the number of tracked senders.
func (r *SenderLimiter) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
