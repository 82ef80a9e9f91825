package stages

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/prompt"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/relation"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
)

// DefaultCharacter names the speaker when no name can be found in the input.
const DefaultCharacter = "Player"

var (
	speakerLine    = regexp.MustCompile(`^([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*):\s+(.+)$`)
	capitalizedRun = regexp.MustCompile(`\b[A-Z][a-z]+\b`)
)

type relationshipOutput struct {
	CharacterName string `json:"character_name"`
	Updates       struct {
		Trust          *float64 `json:"trust"`
		Fear           *float64 `json:"fear"`
		Respect        *float64 `json:"respect"`
		Attachment     *float64 `json:"attachment"`
		Hostility      *float64 `json:"hostility"`
		Dependence     *float64 `json:"dependence"`
		BetrayalMemory *string  `json:"betrayal_memory"`
	} `json:"updates"`
	InteractionEvent  string             `json:"interaction_event"`
	InteractionImpact map[string]float64 `json:"interaction_impact"`
}

// Relationship updates the NPC's standing with whoever spoke this turn.
// It is skipped without a relation store or a player line. Unparsable
// output leaves the relationship unchanged.
func (s *Stages) Relationship(ctx npcgraph.Context, st *turn.State) (*turn.State, error) {
	input := st.LastUserInput()
	if s.deps.Relations == nil || strings.TrimSpace(input) == "" {
		return st, nil
	}
	npcID := s.deps.Persona.ID
	character := s.speaker(input)

	current, err := s.deps.Relations.Get(ctx, npcID, character)
	if err != nil {
		return st, fmt.Errorf("relationship: load %s: %w", character, err)
	}

	raw, err := s.generate(ctx, relationshipPrompt, prompt.Vars{
		"character":    character,
		"relationship": describeRelationship(current),
		"input":        input,
		"reply":        st.Reply(),
		"events":       st.Scratch.EventSummary,
		"intent":       st.Intent,
		"mood":         formatMood(st.Mood),
	})
	if err != nil {
		return st, err
	}

	var out relationshipOutput
	if err := parseJSON(Relationship, raw, relationshipSchema, &out); err != nil {
		fallback(ctx, err)
		st.Scratch.RelationshipNote = describeRelationship(current)
		return st, nil
	}

	if name := strings.TrimSpace(out.CharacterName); name != "" && !strings.EqualFold(name, s.deps.Persona.Name) {
		character = name
	}
	updated, err := s.deps.Relations.Update(ctx, npcID, character, relation.Update{
		Trust:          out.Updates.Trust,
		Fear:           out.Updates.Fear,
		Respect:        out.Updates.Respect,
		Attachment:     out.Updates.Attachment,
		Hostility:      out.Updates.Hostility,
		Dependence:     out.Updates.Dependence,
		BetrayalMemory: out.Updates.BetrayalMemory,
		Event:          strings.TrimSpace(out.InteractionEvent),
		Impact:         out.InteractionImpact,
	})
	if err != nil {
		return st, fmt.Errorf("relationship: update %s: %w", character, err)
	}
	st.Scratch.RelationshipNote = describeRelationship(updated)
	return st, nil
}

// speaker finds who is talking: a "Name: message" prefix, else the first
// capitalized word that is not the NPC's own name.
func (s *Stages) speaker(input string) string {
	input = strings.TrimSpace(input)
	if m := speakerLine.FindStringSubmatch(input); m != nil && !s.isNPC(m[1]) {
		return m[1]
	}
	for _, word := range capitalizedRun.FindAllString(input, -1) {
		if !s.isNPC(word) && !commonCapitalized[word] {
			return word
		}
	}
	return DefaultCharacter
}

func (s *Stages) isNPC(name string) bool {
	first := strings.Fields(s.deps.Persona.Name)
	return strings.EqualFold(name, s.deps.Persona.Name) || (len(first) > 0 && strings.EqualFold(name, first[0]))
}

// commonCapitalized are sentence starters that are never names.
var commonCapitalized = map[string]bool{
	"The": true, "What": true, "Who": true, "Where": true, "When": true, "Why": true,
	"How": true, "Hello": true, "Hi": true, "Hey": true, "Please": true, "Yes": true,
	"No": true, "Can": true, "Could": true, "Would": true, "Will": true, "Do": true,
	"Is": true, "Are": true, "My": true, "We": true, "You": true, "This": true,
	"That": true, "Thanks": true, "Greetings": true, "Tell": true, "Give": true,
	"Good": true, "Well": true, "Excuse": true, "Sorry": true, "I": true,
}

func describeRelationship(r relation.Relationship) string {
	note := fmt.Sprintf("%s: trust=%.2f fear=%.2f respect=%.2f attachment=%.2f hostility=%.2f dependence=%.2f",
		r.Character, r.Trust, r.Fear, r.Respect, r.Attachment, r.Hostility, r.Dependence)
	if r.BetrayalMemory != "" {
		note += " betrayal=" + r.BetrayalMemory
	}
	return note
}
