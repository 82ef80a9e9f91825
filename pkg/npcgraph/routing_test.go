package npcgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stageCtx returns a context scoped to stage id.
func stageCtx(id StageID) Context {
	return withStage(testCtx(), id)
}

// TestRequest tests the rules for storing a continuation.
func TestRequest(t *testing.T) {
	t.Run("stores pending continuation", func(t *testing.T) {
		var rc RoutingControl
		require.NoError(t, rc.Request("  threat near the bridge ", "planner"))
		require.NotNil(t, rc.Pending)
		assert.Equal(t, Detour{Query: "threat near the bridge", ReturnTo: "planner"}, *rc.Pending)
		assert.False(t, rc.Clean())
	})

	t.Run("rejects a second live request", func(t *testing.T) {
		var rc RoutingControl
		require.NoError(t, rc.Request("first", "context"))

		err := rc.Request("second", "planner")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRoutingInvariant)
		assert.Equal(t, "first", rc.Pending.Query, "live continuation must not be overwritten")
		assert.Equal(t, StageID("context"), rc.Pending.ReturnTo)
	})

	t.Run("rejects empty query", func(t *testing.T) {
		var rc RoutingControl
		assert.ErrorIs(t, rc.Request("   ", "planner"), ErrRoutingInvariant)
		assert.True(t, rc.Clean())
	})

	t.Run("rejects missing return stage", func(t *testing.T) {
		var rc RoutingControl
		assert.ErrorIs(t, rc.Request("q", ""), ErrRoutingInvariant)
		assert.ErrorIs(t, rc.Request("q", END), ErrRoutingInvariant)
	})

	t.Run("allowed while resuming", func(t *testing.T) {
		rc := RoutingControl{Resumed: &Detour{Query: "old", ReturnTo: "planner"}}
		assert.NoError(t, rc.Request("new", "planner"))
	})
}

// TestResumedFor tests the continuation is only visible to its owner.
func TestResumedFor(t *testing.T) {
	rc := RoutingControl{Resumed: &Detour{Query: "q", ReturnTo: "planner"}}

	d, ok := rc.ResumedFor("planner")
	assert.True(t, ok)
	assert.Equal(t, "q", d.Query)

	_, ok = rc.ResumedFor("dialogue")
	assert.False(t, ok)

	rc.Reset()
	assert.True(t, rc.Clean())
}

// TestClone tests clones do not share continuations.
func TestClone(t *testing.T) {
	rc := RoutingControl{
		Pending: &Detour{Query: "a", ReturnTo: "x"},
		Resumed: &Detour{Query: "b", ReturnTo: "y"},
	}
	c := rc.Clone()
	c.Pending.Query = "changed"
	c.Resumed.ReturnTo = "z"

	assert.Equal(t, "a", rc.Pending.Query)
	assert.Equal(t, StageID("y"), rc.Resumed.ReturnTo)
}

// TestDetourDecision tests the router's precedence rules.
func TestDetourDecision(t *testing.T) {
	decide := DetourDecision[*testState]()

	tests := []struct {
		name        string
		routing     RoutingControl
		stage       StageID
		want        RouteKey
		wantErr     bool
		wantRouting RoutingControl
	}{
		{
			name:  "clean routes next",
			stage: "planner",
			want:  RouteNext,
		},
		{
			name:        "pending routes world",
			routing:     RoutingControl{Pending: &Detour{Query: "q", ReturnTo: "planner"}},
			stage:       "planner",
			want:        RouteWorld,
			wantRouting: RoutingControl{Pending: &Detour{Query: "q", ReturnTo: "planner"}},
		},
		{
			name:    "resumed is cleared and routes next",
			routing: RoutingControl{Resumed: &Detour{Query: "q", ReturnTo: "planner"}},
			stage:   "planner",
			want:    RouteNext,
		},
		{
			name: "fresh request after resume routes world",
			routing: RoutingControl{
				Pending: &Detour{Query: "other", ReturnTo: "planner"},
				Resumed: &Detour{Query: "q", ReturnTo: "planner"},
			},
			stage:       "planner",
			want:        RouteWorld,
			wantRouting: RoutingControl{Pending: &Detour{Query: "other", ReturnTo: "planner"}},
		},
		{
			name: "same query after resume is a violation",
			routing: RoutingControl{
				Pending: &Detour{Query: "q", ReturnTo: "planner"},
				Resumed: &Detour{Query: "q", ReturnTo: "planner"},
			},
			stage:   "planner",
			wantErr: true,
		},
		{
			name:    "resumed for another stage is a violation",
			routing: RoutingControl{Resumed: &Detour{Query: "q", ReturnTo: "context"}},
			stage:   "planner",
			wantErr: true,
		},
		{
			name:    "pending for another stage is a violation",
			routing: RoutingControl{Pending: &Detour{Query: "q", ReturnTo: "context"}},
			stage:   "planner",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &testState{routing: tt.routing.Clone()}
			key, err := decide(stageCtx(tt.stage), s)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrRoutingInvariant)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
			assert.Equal(t, tt.wantRouting, s.routing)
		})
	}
}

// TestWorldReturnDecision tests the return decision consumes the
// continuation exactly once.
func TestWorldReturnDecision(t *testing.T) {
	decide := worldReturnDecision[*testState](map[StageID]bool{"planner": true})

	t.Run("routes back to requester", func(t *testing.T) {
		s := &testState{routing: RoutingControl{Pending: &Detour{Query: "q", ReturnTo: "planner"}}}
		key, err := decide(stageCtx("world"), s)
		require.NoError(t, err)
		assert.Equal(t, RouteKey("planner"), key)
		assert.Nil(t, s.routing.Pending)
		require.NotNil(t, s.routing.Resumed)
		assert.Equal(t, "q", s.routing.Resumed.Query)

		_, err = decide(stageCtx("world"), s)
		assert.ErrorIs(t, err, ErrRoutingInvariant, "a consumed continuation cannot be returned twice")
	})

	t.Run("no matching request", func(t *testing.T) {
		_, err := decide(stageCtx("world"), &testState{})
		assert.ErrorIs(t, err, ErrRoutingInvariant)
	})

	t.Run("ineligible return target", func(t *testing.T) {
		s := &testState{routing: RoutingControl{Pending: &Detour{Query: "q", ReturnTo: "dialogue"}}}
		_, err := decide(stageCtx("world"), s)
		assert.ErrorIs(t, err, ErrRoutingInvariant)
	})
}
