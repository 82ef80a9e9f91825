package npcgraph

// END is the terminal marker.
// Use it as an edge or route target to indicate the turn is complete.
const END StageID = "__end__"

// StageID names a stage within a graph.
type StageID string

// RouteKey selects a target from a conditional edge's route table.
// Route tables are validated at Compile time, so a decision function can
// only ever return keys the graph knows about.
type RouteKey string

// Route keys used by detour edges.
const (
	// RouteNext continues to the stage's normal successor.
	RouteNext RouteKey = "next"

	// RouteWorld sends control to the world-knowledge stage.
	RouteWorld RouteKey = "world"
)

// State is the constraint satisfied by every graph state.
// The state must expose its routing-control record so the router can run
// the world-knowledge handshake. In practice S is a pointer type; stages
// mutate it in place and return it.
type State interface {
	Routing() *RoutingControl
}

// Stage is a named unit of work in a graph.
//
// Process receives the execution context and the current state and returns
// the (usually same) state. Blocking calls made by a stage should honor ctx.
//
// A stage must only touch the fields it owns and must tolerate being run a
// second time after a world-knowledge detour.
type Stage[S State] interface {
	Process(ctx Context, state S) (S, error)
}

// StageFunc adapts a plain function to the Stage interface.
//
// Example:
//
//	func perceive(ctx npcgraph.Context, s *turn.State) (*turn.State, error) {
//	    s.Scratch.EventSummary = summarize(s.Events)
//	    s.Events = nil
//	    return s, nil
//	}
//
//	graph.AddStage("perception", npcgraph.StageFunc[*turn.State](perceive))
type StageFunc[S State] func(ctx Context, state S) (S, error)

// Process calls f(ctx, state).
func (f StageFunc[S]) Process(ctx Context, state S) (S, error) {
	return f(ctx, state)
}

// DecideFunc picks the route key for a conditional edge.
//
// Decision functions make no external calls and must return a key for every
// reachable state. The only state they may change is the RoutingControl
// record. Returning an error aborts the run; the built-in detour decisions
// return *RoutingInvariantError when the handshake is violated.
type DecideFunc[S State] func(ctx Context, state S) (RouteKey, error)
