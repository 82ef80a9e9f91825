package stages

import (
	"strings"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/prompt"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
)

// Critique rewrites the draft into the final reply. Empty model output
// keeps the draft.
func (s *Stages) Critique(ctx npcgraph.Context, st *turn.State) (*turn.State, error) {
	draft := st.Scratch.CandidateReply
	if strings.TrimSpace(draft) == "" {
		st.Scratch.FinalReply = ""
		return st, nil
	}
	raw, err := s.generate(ctx, criticPrompt, prompt.Vars{
		"draft":    draft,
		"feedback": st.Scratch.CriticFeedback,
		"world":    st.Scratch.WorldKnowledge,
	})
	if err != nil {
		return st, err
	}

	final := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "REPLY:"))
	if final == "" {
		final = draft
	}
	st.Scratch.FinalReply = final
	if st.Action != nil && st.Action.Type == turn.ActionTool {
		st.Action.Fallback = final
	}
	return st, nil
}
