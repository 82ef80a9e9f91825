package engine

import (
	"sort"
	"sync"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
)

// DefaultInboxCapacity is how many events a thread's inbox holds.
const DefaultInboxCapacity = 64

// Inbox queues events for a thread between turns. Events pushed while a
// turn is running are picked up by the next one. A failed turn puts the
// events it took back at the front of the queue.
type Inbox struct {
	mu       sync.Mutex
	queues   map[string][]turn.Event
	capacity int
}

// NewInbox creates an inbox holding up to capacity events per thread.
// A non-positive capacity uses DefaultInboxCapacity.
func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = DefaultInboxCapacity
	}
	return &Inbox{
		queues:   make(map[string][]turn.Event),
		capacity: capacity,
	}
}

// Push appends events to a thread's queue. Either all events are queued or,
// if they would not fit, none are and ErrInboxFull is returned.
func (in *Inbox) Push(threadID string, events ...turn.Event) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if len(in.queues[threadID])+len(events) > in.capacity {
		return ErrInboxFull
	}
	in.queues[threadID] = append(in.queues[threadID], events...)
	return nil
}

// Drain removes and returns every queued event for a thread.
func (in *Inbox) Drain(threadID string) []turn.Event {
	in.mu.Lock()
	defer in.mu.Unlock()

	events := in.queues[threadID]
	delete(in.queues, threadID)
	return events
}

// Requeue puts events back at the front of a thread's queue. Capacity is
// not enforced; requeued events were already accepted once.
func (in *Inbox) Requeue(threadID string, events []turn.Event) {
	if len(events) == 0 {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()

	queued := make([]turn.Event, 0, len(events)+len(in.queues[threadID]))
	queued = append(queued, events...)
	in.queues[threadID] = append(queued, in.queues[threadID]...)
}

// Pending returns how many events are queued for a thread.
func (in *Inbox) Pending(threadID string) int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.queues[threadID])
}

// Threads returns the threads with queued events, sorted.
func (in *Inbox) Threads() []string {
	in.mu.Lock()
	defer in.mu.Unlock()

	ids := make([]string, 0, len(in.queues))
	for id := range in.queues {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
