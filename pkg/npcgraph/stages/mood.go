package stages

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/prompt"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/thread"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
)

// moodHistory is how many past turn records the mood stage reads.
const moodHistory = 5

type moodOutput struct {
	Emotions      map[string]float64 `json:"emotions"`
	Justification string             `json:"justification"`
}

// Mood asks the model to evolve the NPC's emotions from recent history.
// Returned values are clamped and merged into the mood. Unparsable output
// leaves the mood untouched.
func (s *Stages) Mood(ctx npcgraph.Context, st *turn.State) (*turn.State, error) {
	var records []thread.Record
	if s.deps.History != nil {
		var err error
		records, err = s.deps.History.Records(ctx, st.ThreadID, moodHistory)
		if err != nil {
			return st, fmt.Errorf("mood: load history: %w", err)
		}
	}
	input := st.LastUserInput()
	if len(records) == 0 && input == "" {
		return st, nil
	}

	var previous turn.Mood
	if len(records) > 0 {
		previous = records[len(records)-1].Mood
	}

	raw, err := s.generate(ctx, moodPrompt, prompt.Vars{
		"history":       formatRecords(records),
		"input":         input,
		"mood":          formatMood(st.Mood),
		"previous_mood": formatMood(previous),
	})
	if err != nil {
		return st, err
	}

	var out moodOutput
	if err := parseJSON(Mood, raw, moodSchema, &out); err != nil {
		fallback(ctx, err)
		return st, nil
	}
	if st.Mood == nil {
		st.Mood = turn.Mood{}
	}
	st.Mood.Merge(out.Emotions)
	st.Scratch.EmotionJustification = strings.TrimSpace(out.Justification)
	return st, nil
}

func formatRecords(records []thread.Record) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("[%s] User: %s | NPC: %s",
			r.Timestamp.Format("2006-01-02 15:04"), r.InputText, truncate(r.ReplyText, 100)))
	}
	return strings.Join(lines, "\n")
}

// formatMood renders a mood as "name=0.50" pairs in name order.
func formatMood(m turn.Mood) string {
	parts := make([]string, 0, len(m))
	for _, name := range m.Names() {
		parts = append(parts, fmt.Sprintf("%s=%.2f", name, m[name]))
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
