package stages

import (
	"github.com/randalmurphal/npcgraph/pkg/npcgraph"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
)

// World answers the pending world-knowledge query from lore. It only reads
// the routing record; the router moves the continuation on.
func (s *Stages) World(ctx npcgraph.Context, st *turn.State) (*turn.State, error) {
	pending := st.Routing().Pending
	if pending == nil {
		return st, nil
	}
	knowledge, err := s.search(ctx, pending.Query)
	if err != nil {
		return st, err
	}
	st.Scratch.WorldKnowledge = knowledge
	return st, nil
}
