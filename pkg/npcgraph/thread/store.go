// Package thread persists turn state per conversation thread, plus an
// append-only log of compact turn records.
package thread

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
)

// Store persists turn state keyed by thread id.
// Implementations must be safe for concurrent use. Callers serialize
// access per thread with a Locker.
type Store interface {
	// Load retrieves the latest state for a thread.
	// Returns ErrNotFound if the thread has never been saved.
	Load(ctx context.Context, threadID string) (*turn.State, error)

	// Save overwrites the state for a thread.
	Save(ctx context.Context, threadID string, state *turn.State) error

	// AppendRecord adds a turn record to the thread's log. The log is
	// separate from the state snapshot and is never rewritten.
	AppendRecord(ctx context.Context, threadID string, rec Record) error

	// Records returns up to limit of the most recent records, oldest first.
	// A limit <= 0 returns every retained record.
	Records(ctx context.Context, threadID string, limit int) ([]Record, error)

	// Close releases any resources (connections, files).
	Close() error
}

// DefaultMaxRecords is how many turn records a thread retains.
const DefaultMaxRecords = 200

// MaxConsumedEvents caps the events copied into a record.
const MaxConsumedEvents = 5

// Record is the compact, human-readable log entry for one turn.
type Record struct {
	ID             string       `json:"id"`
	Timestamp      time.Time    `json:"timestamp"`
	ThreadID       string       `json:"thread_id"`
	NPCID          string       `json:"npc_id"`
	InputText      string       `json:"input_text"`
	ReplyText      string       `json:"reply_text"`
	Intent         string       `json:"intent,omitempty"`
	ActionSummary  turn.Summary `json:"action_summary"`
	ConsumedEvents []turn.Event `json:"consumed_events,omitempty"`
	Mood           turn.Mood    `json:"mood,omitempty"`
}

// NewRecord builds a record with a fresh time-sortable id. Only the first
// MaxConsumedEvents events are kept.
func NewRecord(threadID, npcID, input, reply, intent string, action *turn.Action, events []turn.Event, mood turn.Mood) Record {
	now := time.Now().UTC()
	if len(events) > MaxConsumedEvents {
		events = events[:MaxConsumedEvents]
	}
	return Record{
		ID:             ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Timestamp:      now,
		ThreadID:       threadID,
		NPCID:          npcID,
		InputText:      input,
		ReplyText:      reply,
		Intent:         intent,
		ActionSummary:  action.Summarize(),
		ConsumedEvents: append([]turn.Event(nil), events...),
		Mood:           mood.Clone(),
	}
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates no state exists for the thread.
	ErrNotFound = errors.New("thread not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("thread store closed")
)

// tail returns the last limit records, or all of them for limit <= 0.
func tail(recs []Record, limit int) []Record {
	if limit > 0 && len(recs) > limit {
		recs = recs[len(recs)-limit:]
	}
	out := make([]Record, len(recs))
	copy(out, recs)
	return out
}
