package ledger

import (
	"context"
	"sync"
	"time"
)

// cardLocks serializes ledger mutations per card within this process. The
// database row lock is the real guarantee; this layer exists so SQLite
// deployments (no FOR UPDATE) keep the same per-card mutual exclusion, and
// so a contended card fails fast instead of queueing transactions.
type cardLocks struct {
	mu      sync.Mutex
	entries map[uint64]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func newCardLocks() *cardLocks {
	return &cardLocks{entries: make(map[uint64]*lockEntry)}
}

// acquire takes the lock for cardID, waiting at most timeout. On success the
// returned release function must be called exactly once. On timeout or
// context cancellation it returns false.
func (l *cardLocks) acquire(ctx context.Context, cardID uint64, timeout time.Duration) (release func(), ok bool) {
	l.mu.Lock()
	entry := l.entries[cardID]
	if entry == nil {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[cardID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case entry.sem <- struct{}{}:
		return func() {
			<-entry.sem
			l.put(cardID, entry)
		}, true
	case <-timer.C:
	case <-ctx.Done():
	}
	l.put(cardID, entry)
	return nil, false
}

// put drops one reference and frees the entry when nobody waits on it.
func (l *cardLocks) put(cardID uint64, entry *lockEntry) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, cardID)
	}
	l.mu.Unlock()
}
