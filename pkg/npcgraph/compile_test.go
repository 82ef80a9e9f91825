package npcgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inc() Stage[*testState] { return StageFunc[*testState](increment) }

// detourGraph builds context -> planner -> dialogue with a world stage.
func detourGraph(ctxStage, plannerStage, world Stage[*testState], tracker *[]StageID) *Graph[*testState] {
	return NewGraph[*testState]().
		AddStage("context", ctxStage).
		AddStage("planner", plannerStage).
		AddStage("world", world).
		AddStage("dialogue", makeTrackingStage(tracker)).
		AddDetourEdge("context", "planner").
		AddDetourEdge("planner", "dialogue").
		AddEdge("dialogue", END).
		SetWorldStage("world").
		SetEntry("context")
}

// TestCompile_Valid tests a well-formed detour graph compiles with the
// expected introspection results.
func TestCompile_Valid(t *testing.T) {
	var tracker []StageID
	compiled, err := detourGraph(inc(), inc(), inc(), &tracker).Compile()
	require.NoError(t, err)

	assert.Equal(t, StageID("context"), compiled.EntryPoint())
	assert.Equal(t, StageID("world"), compiled.WorldStage())
	assert.Equal(t, []StageID{"context", "planner", "world", "dialogue"}, compiled.StageIDs())
	assert.Equal(t, []StageID{"context", "planner"}, compiled.DetourEligible())
	assert.True(t, compiled.IsDetourEligible("planner"))
	assert.False(t, compiled.IsDetourEligible("dialogue"))
	assert.True(t, compiled.IsConditional("world"))
	assert.False(t, compiled.IsConditional("dialogue"))
	assert.Equal(t, []StageID{"planner", "world"}, compiled.Successors("context"))
	assert.Equal(t, []StageID{"context", "planner"}, compiled.Successors("world"))
	assert.Equal(t, []StageID{END}, compiled.Successors("dialogue"))
	assert.Nil(t, compiled.Successors(END))
	assert.True(t, compiled.HasStage("world"))
	assert.False(t, compiled.HasStage("nope"))
}

// TestCompile_HopBound tests the hop bound counts stages plus one re-run
// per permitted detour.
func TestCompile_HopBound(t *testing.T) {
	var tracker []StageID

	compiled, err := detourGraph(inc(), inc(), inc(), &tracker).Compile()
	require.NoError(t, err)
	assert.Equal(t, 4+2, compiled.HopBound())
	assert.Equal(t, 1, compiled.DetourBudget())

	compiled, err = detourGraph(inc(), inc(), inc(), &tracker).SetDetourBudget(3).Compile()
	require.NoError(t, err)
	assert.Equal(t, 4+2*3, compiled.HopBound())
}

// TestCompile_Errors tests each validation failure.
func TestCompile_Errors(t *testing.T) {
	always := func(Context, *testState) (RouteKey, error) { return "x", nil }

	tests := []struct {
		name  string
		build func() *Graph[*testState]
		want  error
	}{
		{
			name: "no entry point",
			build: func() *Graph[*testState] {
				return NewGraph[*testState]().AddStage("a", inc()).AddEdge("a", END)
			},
			want: ErrNoEntryPoint,
		},
		{
			name: "entry not found",
			build: func() *Graph[*testState] {
				return NewGraph[*testState]().AddStage("a", inc()).AddEdge("a", END).SetEntry("b")
			},
			want: ErrEntryNotFound,
		},
		{
			name: "edge target missing",
			build: func() *Graph[*testState] {
				return NewGraph[*testState]().AddStage("a", inc()).AddEdge("a", "b").SetEntry("a")
			},
			want: ErrStageNotFound,
		},
		{
			name: "edge source missing",
			build: func() *Graph[*testState] {
				return NewGraph[*testState]().AddStage("a", inc()).AddEdge("a", END).AddEdge("ghost", END).SetEntry("a")
			},
			want: ErrStageNotFound,
		},
		{
			name: "no outgoing edge",
			build: func() *Graph[*testState] {
				return NewGraph[*testState]().AddStage("a", inc()).AddStage("b", inc()).AddEdge("a", "b").SetEntry("a")
			},
			want: ErrNoOutgoing,
		},
		{
			name: "fan out",
			build: func() *Graph[*testState] {
				return NewGraph[*testState]().
					AddStage("a", inc()).AddStage("b", inc()).
					AddEdge("a", "b").AddEdge("a", END).AddEdge("b", END).
					SetEntry("a")
			},
			want: ErrMultipleOutgoing,
		},
		{
			name: "edge and conditional",
			build: func() *Graph[*testState] {
				return NewGraph[*testState]().
					AddStage("a", inc()).
					AddEdge("a", END).
					AddConditionalEdge("a", always, map[RouteKey]StageID{"x": END}).
					SetEntry("a")
			},
			want: ErrMultipleOutgoing,
		},
		{
			name: "empty route table",
			build: func() *Graph[*testState] {
				return NewGraph[*testState]().
					AddStage("a", inc()).
					AddConditionalEdge("a", always, nil).
					SetEntry("a")
			},
			want: ErrEmptyRouteTable,
		},
		{
			name: "route target missing",
			build: func() *Graph[*testState] {
				return NewGraph[*testState]().
					AddStage("a", inc()).
					AddConditionalEdge("a", always, map[RouteKey]StageID{"x": "missing"}).
					SetEntry("a")
			},
			want: ErrStageNotFound,
		},
		{
			name: "detour without world stage",
			build: func() *Graph[*testState] {
				return NewGraph[*testState]().AddStage("a", inc()).AddDetourEdge("a", END).SetEntry("a")
			},
			want: ErrNoWorldStage,
		},
		{
			name: "world stage missing",
			build: func() *Graph[*testState] {
				return NewGraph[*testState]().AddStage("a", inc()).AddDetourEdge("a", END).SetWorldStage("w").SetEntry("a")
			},
			want: ErrStageNotFound,
		},
		{
			name: "world stage with edges",
			build: func() *Graph[*testState] {
				return NewGraph[*testState]().
					AddStage("a", inc()).AddStage("w", inc()).
					AddDetourEdge("a", END).AddEdge("w", END).
					SetWorldStage("w").SetEntry("a")
			},
			want: ErrWorldStageEdges,
		},
		{
			name: "plain edge into world stage",
			build: func() *Graph[*testState] {
				return NewGraph[*testState]().
					AddStage("a", inc()).AddStage("b", inc()).AddStage("w", inc()).
					AddDetourEdge("a", "b").AddEdge("b", "w").
					SetWorldStage("w").SetEntry("a")
			},
			want: ErrWorldStageTarget,
		},
		{
			name: "cycle",
			build: func() *Graph[*testState] {
				return NewGraph[*testState]().
					AddStage("a", inc()).AddStage("b", inc()).
					AddEdge("a", "b").
					AddConditionalEdge("b", always, map[RouteKey]StageID{"x": "a", "y": END}).
					SetEntry("a")
			},
			want: ErrCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := tt.build().Compile()
			require.Error(t, err)
			assert.Nil(t, compiled)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// TestCompile_JoinsErrors tests multiple failures are reported together.
func TestCompile_JoinsErrors(t *testing.T) {
	_, err := NewGraph[*testState]().
		AddStage("a", inc()).
		AddEdge("a", "missing").
		AddDetourEdge("b", END).
		Compile()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoEntryPoint)
	assert.ErrorIs(t, err, ErrNoWorldStage)
	assert.ErrorIs(t, err, ErrStageNotFound)
}

// TestCompile_CycleMessage tests the cycle path is named in the error.
func TestCompile_CycleMessage(t *testing.T) {
	_, err := NewGraph[*testState]().
		AddStage("a", inc()).AddStage("b", inc()).
		AddEdge("a", "b").AddEdge("b", "a").
		SetEntry("a").
		Compile()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "a -> b -> a")
}

// TestCompile_UnreachableIsNotFatal tests unreachable stages only warn.
func TestCompile_UnreachableIsNotFatal(t *testing.T) {
	compiled, err := NewGraph[*testState]().
		AddStage("a", inc()).AddStage("orphan", inc()).
		AddEdge("a", END).AddEdge("orphan", END).
		SetEntry("a").
		Compile()

	require.NoError(t, err)
	assert.True(t, compiled.HasStage("orphan"))
}
