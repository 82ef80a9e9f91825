package stages

import (
	"github.com/randalmurphal/npcgraph/pkg/npcgraph"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
)

// Graph returns the uncompiled pipeline:
//
//	perception -> personality -> mood -> context -> planner -> dialogue -> critic -> relationship -> END
//
// context and planner may detour through world, which returns to whichever
// of them asked.
func (s *Stages) Graph() *npcgraph.Graph[*turn.State] {
	g := npcgraph.NewGraph[*turn.State]()
	for _, st := range s.all() {
		g.AddStage(st.id, st.fn)
	}
	return g.
		AddEdge(Perception, Personality).
		AddEdge(Personality, Mood).
		AddEdge(Mood, Context).
		AddDetourEdge(Context, Planner).
		AddDetourEdge(Planner, Dialogue).
		AddEdge(Dialogue, Critic).
		AddEdge(Critic, Relationship).
		AddEdge(Relationship, npcgraph.END).
		SetWorldStage(World).
		SetEntry(Perception)
}

// BuildGraph compiles the pipeline for deps.
func BuildGraph(deps Deps) (*npcgraph.CompiledGraph[*turn.State], error) {
	s, err := New(deps)
	if err != nil {
		return nil, err
	}
	return s.Graph().Compile()
}
