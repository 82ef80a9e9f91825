package thread

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// lockEntry holds the per-thread semaphore and its reference count.
type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// Locker serializes turns per thread. Waiters are admitted in arrival
// order and give up when their context ends. Entries are reference
// counted and dropped once no turn holds or waits on them.
type Locker struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

// NewLocker creates an empty Locker.
func NewLocker() *Locker {
	return &Locker{entries: make(map[string]*lockEntry)}
}

// acquire gets or creates the entry and increments its reference count.
func (l *Locker) acquire(threadID string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[threadID]
	if !ok {
		entry = &lockEntry{sem: semaphore.NewWeighted(1)}
		l.entries[threadID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (l *Locker) release(threadID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[threadID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(l.entries, threadID)
	}
}

// Lock blocks until the thread is free or ctx ends. The returned function
// releases the lock and must be called exactly once.
func (l *Locker) Lock(ctx context.Context, threadID string) (func(), error) {
	entry := l.acquire(threadID)
	if err := entry.sem.Acquire(ctx, 1); err != nil {
		l.release(threadID)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.sem.Release(1)
			l.release(threadID)
		})
	}, nil
}

// WithLock runs fn while holding the thread's lock.
func (l *Locker) WithLock(ctx context.Context, threadID string, fn func(ctx context.Context) error) error {
	unlock, err := l.Lock(ctx, threadID)
	if err != nil {
		return err
	}
	defer unlock()
	return fn(ctx)
}

// Waiters returns how many turns hold or await the thread's lock.
func (l *Locker) Waiters(threadID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, ok := l.entries[threadID]; ok {
		return entry.refs
	}
	return 0
}

// Active returns how many threads currently hold or await the lock.
func (l *Locker) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
