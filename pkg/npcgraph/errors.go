// Package npcgraph provides the stage graph and router that drive one NPC turn.
package npcgraph

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph building and compilation.
var (
	// ErrNoEntryPoint indicates SetEntry() was not called before Compile().
	ErrNoEntryPoint = errors.New("entry point not set")

	// ErrEntryNotFound indicates the entry point references a non-existent stage.
	ErrEntryNotFound = errors.New("entry point stage not found")

	// ErrStageNotFound indicates an edge or route references a non-existent stage.
	ErrStageNotFound = errors.New("stage not found")

	// ErrNoPathToEnd indicates no path exists from the entry point to END.
	ErrNoPathToEnd = errors.New("no path to END from entry")

	// ErrNoOutgoing indicates a stage has no outgoing edge.
	ErrNoOutgoing = errors.New("stage has no outgoing edge")

	// ErrMultipleOutgoing indicates a stage declares more than one outgoing edge.
	ErrMultipleOutgoing = errors.New("stage has more than one outgoing edge")

	// ErrEmptyRouteTable indicates a conditional edge has no routes.
	ErrEmptyRouteTable = errors.New("conditional edge has an empty route table")

	// ErrNoWorldStage indicates detour edges were declared without a world stage.
	ErrNoWorldStage = errors.New("detour edges require a world stage")

	// ErrWorldStageEdges indicates the world stage declares its own outgoing edges.
	ErrWorldStageEdges = errors.New("world stage must not declare outgoing edges")

	// ErrWorldStageTarget indicates a plain or conditional edge targets the world stage.
	ErrWorldStageTarget = errors.New("only detour edges may target the world stage")

	// ErrCycle indicates the logical graph contains a cycle.
	ErrCycle = errors.New("graph contains a cycle")
)

// Sentinel errors for execution.
var (
	// ErrNilContext indicates Run() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrHopLimit indicates the run exceeded its hop bound.
	ErrHopLimit = errors.New("exceeded hop bound")

	// ErrUnknownRouteKey indicates a decision returned a key missing from its route table.
	ErrUnknownRouteKey = errors.New("decision returned unknown route key")

	// ErrRoutingInvariant indicates the world-knowledge handshake was violated.
	ErrRoutingInvariant = errors.New("routing invariant violated")
)

// StageError wraps an error with stage context.
type StageError struct {
	// StageID is the stage that failed.
	StageID StageID
	// Op is the operation that failed ("execute", "routing").
	Op string
	// Err is the underlying error from the stage.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s: %v", e.StageID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StageError) Unwrap() error {
	return e.Err
}

// PanicError captures panic information from stage execution.
type PanicError struct {
	// StageID is the stage that panicked.
	StageID StageID
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("stage %s panicked: %v", e.StageID, e.Value)
}

// CancellationError reports that the run's context ended before END.
type CancellationError struct {
	// StageID is the stage that was about to execute.
	StageID StageID
	// Cause is context.Canceled or context.DeadlineExceeded.
	Cause error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelled before stage %s: %v", e.StageID, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// RouterError wraps errors from conditional edge routing.
type RouterError struct {
	// From is the stage with the conditional edge.
	From StageID
	// Key is the key the decision returned.
	Key RouteKey
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *RouterError) Error() string {
	return fmt.Sprintf("router from %s returned %q: %v", e.From, e.Key, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *RouterError) Unwrap() error {
	return e.Err
}

// RoutingInvariantError reports a handshake violation: a second detour
// while one is live, a return with no request, a leaked continuation, or
// a stage exceeding its detour budget. It always aborts the run.
type RoutingInvariantError struct {
	// Stage is the stage at which the violation was detected.
	Stage StageID
	// Reason describes the violation.
	Reason string
}

// Error implements the error interface.
func (e *RoutingInvariantError) Error() string {
	return fmt.Sprintf("routing invariant violated at %s: %s", e.Stage, e.Reason)
}

// Unwrap returns ErrRoutingInvariant for errors.Is support.
func (e *RoutingInvariantError) Unwrap() error {
	return ErrRoutingInvariant
}

// HopLimitError reports that a run exceeded its hop bound.
type HopLimitError struct {
	// Max is the hop bound in effect.
	Max int
	// StageID is the stage that would have executed next.
	StageID StageID
}

// Error implements the error interface.
func (e *HopLimitError) Error() string {
	return fmt.Sprintf("exceeded hop bound (%d) at stage %s", e.Max, e.StageID)
}

// Unwrap returns ErrHopLimit for errors.Is support.
func (e *HopLimitError) Unwrap() error {
	return ErrHopLimit
}

// FailedStage extracts the stage a run error is attributed to.
// Returns "" when err carries no stage.
func FailedStage(err error) StageID {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.StageID
	}
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		return panicErr.StageID
	}
	var routerErr *RouterError
	if errors.As(err, &routerErr) {
		return routerErr.From
	}
	var invErr *RoutingInvariantError
	if errors.As(err, &invErr) {
		return invErr.Stage
	}
	var cancelErr *CancellationError
	if errors.As(err, &cancelErr) {
		return cancelErr.StageID
	}
	var hopErr *HopLimitError
	if errors.As(err, &hopErr) {
		return hopErr.StageID
	}
	return ""
}
