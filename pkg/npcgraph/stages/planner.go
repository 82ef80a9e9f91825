package stages

import (
	"regexp"
	"strings"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/prompt"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
)

type plannerOutput struct {
	Intent      string `json:"intent"`
	Plan        string `json:"plan"`
	CurrentGoal string `json:"current_goal"`
	NeedsWorld  bool   `json:"needs_world"`
	WorldQuery  string `json:"world_query"`
}

var intentLine = regexp.MustCompile(`(?im)^\s*INTENT:\s*(.+)$`)

// Plan sets the turn's intent, plan and goal. JSON output is preferred; an
// "INTENT: <text>" line is accepted as a fallback and otherwise the whole
// output becomes the intent. The planner may ask for world knowledge once;
// on its second run the answer is in scratch.WorldKnowledge.
func (s *Stages) Plan(ctx npcgraph.Context, st *turn.State) (*turn.State, error) {
	raw, err := s.generate(ctx, plannerPrompt, prompt.Vars{
		"events":      st.Scratch.EventSummary,
		"mood":        formatMood(st.Mood),
		"personality": st.Scratch.PersonalityAnalysis,
		"context":     st.Scratch.PerceivedContext,
		"cues":        st.Scratch.EnvironmentalCues,
		"memories":    st.Scratch.RelevantMemories,
		"world":       st.Scratch.WorldKnowledge,
		"input":       st.LastUserInput(),
	})
	if err != nil {
		return st, err
	}

	var out plannerOutput
	if err := parseJSON(Planner, raw, plannerSchema, &out); err != nil {
		fallback(ctx, err)
		st.Intent = intentFromText(raw)
		return st, nil
	}
	st.Intent = strings.TrimSpace(out.Intent)
	st.Scratch.Plan = strings.TrimSpace(out.Plan)
	st.Scratch.CurrentGoal = strings.TrimSpace(out.CurrentGoal)

	if out.NeedsWorld {
		if err := s.requestWorld(ctx, st, Planner, out.WorldQuery); err != nil {
			return st, err
		}
	}
	return st, nil
}

func intentFromText(raw string) string {
	if m := intentLine.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}
