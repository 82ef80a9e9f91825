package npcgraph

import (
	"context"
	"errors"
)

// Test state types used across tests

// testState is a minimal graph state.
type testState struct {
	Progress  []StageID
	Value     int
	Knowledge string
	Queries   []string
	routing   RoutingControl
}

func (s *testState) Routing() *RoutingControl {
	return &s.routing
}

// Helper stages

// increment is a stage that increments the counter.
func increment(ctx Context, s *testState) (*testState, error) {
	s.Value++
	return s, nil
}

// makeTrackingStage creates a stage that records its execution.
func makeTrackingStage(tracker *[]StageID) Stage[*testState] {
	return StageFunc[*testState](func(ctx Context, s *testState) (*testState, error) {
		*tracker = append(*tracker, ctx.StageID())
		s.Progress = append(s.Progress, ctx.StageID())
		return s, nil
	})
}

// makeFailingStage creates a stage that returns the given error.
func makeFailingStage(err error) Stage[*testState] {
	return StageFunc[*testState](func(ctx Context, s *testState) (*testState, error) {
		return s, err
	})
}

// makePanicStage creates a stage that panics with the given value.
func makePanicStage(value any) Stage[*testState] {
	return StageFunc[*testState](func(ctx Context, s *testState) (*testState, error) {
		panic(value)
	})
}

// makeRequester creates a detour-eligible stage that asks for query on its
// first run and records the knowledge it sees when resumed.
func makeRequester(query string, tracker *[]StageID) Stage[*testState] {
	return StageFunc[*testState](func(ctx Context, s *testState) (*testState, error) {
		*tracker = append(*tracker, ctx.StageID())
		if _, resumed := s.Routing().ResumedFor(ctx.StageID()); resumed {
			s.Progress = append(s.Progress, ctx.StageID())
			return s, nil
		}
		if query == "" {
			return s, nil
		}
		return s, s.Routing().Request(query, ctx.StageID())
	})
}

// makeWorld creates a world stage that answers every query with answer.
func makeWorld(answer string, tracker *[]StageID) Stage[*testState] {
	return StageFunc[*testState](func(ctx Context, s *testState) (*testState, error) {
		*tracker = append(*tracker, ctx.StageID())
		if p := s.Routing().Pending; p != nil {
			s.Queries = append(s.Queries, p.Query)
		}
		s.Knowledge = answer
		return s, nil
	})
}

var errTest = errors.New("test error")

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background(), WithThreadID("npc:test"))
}
