package stages

import (
	"strings"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/prompt"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
)

const (
	contextMessages   = 3
	contextSnippetLen = 200
)

type contextOutput struct {
	PerceivedContext  string `json:"perceived_context"`
	EnvironmentalCues string `json:"environmental_cues"`
	NeedsWorld        bool   `json:"needs_world"`
	WorldQuery        string `json:"world_query"`
}

// Context builds the NPC's situational awareness. Local lore hits become
// relevant memories; the model describes the scene and may ask for world
// knowledge, which detours through the world stage once per turn.
func (s *Stages) Context(ctx npcgraph.Context, st *turn.State) (*turn.State, error) {
	recent := st.Recent(contextMessages)

	query := st.Scratch.EventSummary
	for _, m := range recent {
		query += " " + truncate(m.Content, contextSnippetLen)
	}
	if q := strings.TrimSpace(query); q != "" {
		memories, err := s.search(ctx, q)
		if err != nil {
			return st, err
		}
		st.Scratch.RelevantMemories = memories
	}

	raw, err := s.generate(ctx, contextPrompt, prompt.Vars{
		"events":   st.Scratch.EventSummary,
		"messages": formatMessages(recent),
		"mood":     formatMood(st.Mood),
		"lore":     st.Scratch.RelevantMemories,
		"world":    st.Scratch.WorldKnowledge,
	})
	if err != nil {
		return st, err
	}

	var out contextOutput
	if err := parseJSON(Context, raw, contextSchema, &out); err != nil {
		fallback(ctx, err)
		st.Scratch.PerceivedContext = ""
		st.Scratch.EnvironmentalCues = ""
		return st, nil
	}
	st.Scratch.PerceivedContext = strings.TrimSpace(out.PerceivedContext)
	st.Scratch.EnvironmentalCues = strings.TrimSpace(out.EnvironmentalCues)

	if out.NeedsWorld {
		if err := s.requestWorld(ctx, st, Context, out.WorldQuery); err != nil {
			return st, err
		}
	}
	return st, nil
}

// requestWorld asks for a world-knowledge detour on behalf of stage from.
// A stage re-running after its own detour never asks again. A blank query
// falls back to the player's last line; if that is blank too, no detour
// is taken.
func (s *Stages) requestWorld(ctx npcgraph.Context, st *turn.State, from npcgraph.StageID, query string) error {
	if _, resumed := st.Routing().ResumedFor(from); resumed {
		return nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		query = strings.TrimSpace(st.LastUserInput())
	}
	if query == "" {
		return nil
	}
	ctx.Logger().Debug("requesting world knowledge", "query", query)
	return st.Routing().Request(query, from)
}

func formatMessages(msgs []turn.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, string(m.Role)+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}
