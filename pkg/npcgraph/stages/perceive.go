package stages

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
)

// Perceive folds the pending events into a one-line summary and consumes
// them. With no events the summary is cleared.
func (s *Stages) Perceive(_ npcgraph.Context, st *turn.State) (*turn.State, error) {
	st.Scratch.EventSummary = summarizeEvents(st.Events)
	st.Events = []turn.Event{}
	return st, nil
}

func summarizeEvents(events []turn.Event) string {
	parts := make([]string, 0, len(events))
	for _, e := range events {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", e.Source, e.Kind, e.Content))
	}
	return strings.Join(parts, "; ")
}

var (
	threatWords = []string{"threat", "danger", "attack", "ambush", "weapon"}
	helpWords   = []string{"help", "please", "wounded", "hurt"}
)

// Personality nudges mood from the event summary and the player's line:
// threats raise vigilance and pleas raise empathy. It also records a short
// trait analysis for later prompts.
func (s *Stages) Personality(_ npcgraph.Context, st *turn.State) (*turn.State, error) {
	if st.Mood == nil {
		st.Mood = turn.Mood{}
	}
	text := strings.ToLower(st.Scratch.EventSummary + " " + st.LastUserInput())
	if containsAny(text, threatWords) {
		st.Mood.Set(turn.Vigilance, st.Mood.Get(turn.Vigilance, 0.3)+0.2)
	}
	if containsAny(text, helpWords) {
		st.Mood.Set(turn.Empathy, st.Mood.Get(turn.Empathy, 0.2)+0.2)
	}
	st.Scratch.PersonalityAnalysis = s.traitSummary()
	return st, nil
}

func (s *Stages) traitSummary() string {
	p := s.deps.Persona
	var parts []string
	add := func(label string, items []string) {
		if len(items) > 0 {
			parts = append(parts, label+": "+strings.Join(items, ", "))
		}
	}
	add("traits", p.Traits)
	add("ideals", p.Ideals)
	add("bonds", p.Bonds)
	add("flaws", p.Flaws)
	return strings.Join(parts, "; ")
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
