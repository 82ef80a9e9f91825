package npcgraph

import (
	"fmt"
	"strings"
)

// Detour is a world-knowledge continuation: the query a stage needs
// answered and the stage that must run again once it is.
type Detour struct {
	Query    string  `json:"query"`
	ReturnTo StageID `json:"return_to"`
}

// RoutingControl carries the world-knowledge handshake for one turn.
//
// A stage asks for knowledge with Request, which stores a Pending
// continuation. After the world stage has run, the router consumes Pending
// and moves it to Resumed before sending control back to the requester.
// When the requester finishes its second run, the router clears Resumed.
//
// Outside a detour both fields are nil. Mid-detour only Pending is set.
// While the requester re-runs only Resumed is set.
type RoutingControl struct {
	Pending *Detour `json:"pending,omitempty"`
	Resumed *Detour `json:"resumed,omitempty"`
}

// Request records a detour to the world-knowledge stage on behalf of stage
// from. It returns a *RoutingInvariantError if a detour is already pending,
// the query is blank, or from is not a real stage.
func (rc *RoutingControl) Request(query string, from StageID) error {
	if from == "" || from == END {
		return &RoutingInvariantError{Stage: from, Reason: "detour requested without a return stage"}
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return &RoutingInvariantError{Stage: from, Reason: "detour requested with an empty query"}
	}
	if rc.Pending != nil {
		return &RoutingInvariantError{
			Stage:  from,
			Reason: fmt.Sprintf("detour %q for %s is still pending", rc.Pending.Query, rc.Pending.ReturnTo),
		}
	}
	rc.Pending = &Detour{Query: query, ReturnTo: from}
	return nil
}

// ResumedFor returns the consumed continuation if stage id is currently
// re-running after a detour.
func (rc *RoutingControl) ResumedFor(id StageID) (Detour, bool) {
	if rc.Resumed == nil || rc.Resumed.ReturnTo != id {
		return Detour{}, false
	}
	return *rc.Resumed, true
}

// Clean reports whether no detour is pending or being resumed.
func (rc *RoutingControl) Clean() bool {
	return rc.Pending == nil && rc.Resumed == nil
}

// Reset drops any continuation.
func (rc *RoutingControl) Reset() {
	rc.Pending = nil
	rc.Resumed = nil
}

// Clone returns a deep copy.
func (rc *RoutingControl) Clone() RoutingControl {
	out := RoutingControl{}
	if rc.Pending != nil {
		p := *rc.Pending
		out.Pending = &p
	}
	if rc.Resumed != nil {
		r := *rc.Resumed
		out.Resumed = &r
	}
	return out
}

// DetourDecision returns the decision function evaluated after every
// detour-eligible stage. Precedence:
//
//  1. A resumed continuation is cleared. If the stage asked for a different
//     query while resuming, that is a fresh request and routes to the world
//     stage; asking again for the same query is a violation.
//  2. A pending request routes to the world stage.
//  3. Otherwise control continues to the normal successor.
func DetourDecision[S State]() DecideFunc[S] {
	return func(ctx Context, state S) (RouteKey, error) {
		rc := state.Routing()
		current := ctx.StageID()

		if rc.Resumed != nil {
			resumed := *rc.Resumed
			if resumed.ReturnTo != current {
				return "", &RoutingInvariantError{
					Stage:  current,
					Reason: fmt.Sprintf("resumed continuation belongs to %s", resumed.ReturnTo),
				}
			}
			rc.Resumed = nil

			if rc.Pending == nil {
				return RouteNext, nil
			}
			if rc.Pending.Query == resumed.Query {
				return "", &RoutingInvariantError{
					Stage:  current,
					Reason: fmt.Sprintf("detour for %q requested again after it was answered", resumed.Query),
				}
			}
		}

		if rc.Pending != nil {
			if rc.Pending.ReturnTo != current {
				return "", &RoutingInvariantError{
					Stage:  current,
					Reason: fmt.Sprintf("pending detour belongs to %s", rc.Pending.ReturnTo),
				}
			}
			return RouteWorld, nil
		}

		return RouteNext, nil
	}
}

// worldReturnDecision routes the world stage back to the requester.
// It consumes the pending continuation exactly once.
func worldReturnDecision[S State](eligible map[StageID]bool) DecideFunc[S] {
	return func(ctx Context, state S) (RouteKey, error) {
		rc := state.Routing()
		if rc.Pending == nil {
			return "", &RoutingInvariantError{
				Stage:  ctx.StageID(),
				Reason: "returned from world stage with no matching request",
			}
		}
		if rc.Resumed != nil {
			return "", &RoutingInvariantError{
				Stage:  ctx.StageID(),
				Reason: fmt.Sprintf("continuation for %s was never cleared", rc.Resumed.ReturnTo),
			}
		}
		target := rc.Pending.ReturnTo
		if !eligible[target] {
			return "", &RoutingInvariantError{
				Stage:  ctx.StageID(),
				Reason: fmt.Sprintf("return target %s is not detour-eligible", target),
			}
		}

		rc.Resumed = rc.Pending
		rc.Pending = nil
		return RouteKey(target), nil
	}
}
