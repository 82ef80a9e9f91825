package engine

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph"
)

// Sentinel errors for turn processing.
var (
	// ErrNoReply indicates the pipeline finished without any text to say.
	ErrNoReply = errors.New("turn produced no reply")

	// ErrEmptyInput indicates a turn with neither text nor events.
	ErrEmptyInput = errors.New("turn has no input text or events")

	// ErrUnknownNPC indicates a manager has no persona with the given id.
	ErrUnknownNPC = errors.New("unknown npc")

	// ErrInboxFull indicates a thread's event inbox is at capacity.
	ErrInboxFull = errors.New("event inbox full")
)

// TurnFailure is returned by Respond for any failed turn. Nothing is
// persisted for a failed turn.
type TurnFailure struct {
	ThreadID string
	Stage    npcgraph.StageID
	Cause    error
}

// Error implements the error interface.
func (e *TurnFailure) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("turn failed on thread %s: %v", e.ThreadID, e.Cause)
	}
	return fmt.Sprintf("turn failed on thread %s at stage %s: %v", e.ThreadID, e.Stage, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *TurnFailure) Unwrap() error {
	return e.Cause
}

// IsTurnFailure reports whether err is or wraps a *TurnFailure.
func IsTurnFailure(err error) bool {
	var tf *TurnFailure
	return errors.As(err, &tf)
}
