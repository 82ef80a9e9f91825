// Package persona describes who an NPC is and renders the system preamble
// seeded into every new conversation thread.
package persona

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied to personas that leave these fields blank.
const (
	DefaultSpeechStyle    = "Direct and sharp; short sentences, meant to be spoken."
	DefaultSpokenModeHint = "Short, natural replies for speech. Avoid lists."
)

// ErrNoName indicates a persona without a name.
var ErrNoName = errors.New("persona has no name")

// Voice carries text-to-speech hints for a synthesizer.
type Voice struct {
	ID     string `yaml:"id,omitempty" json:"id,omitempty"`
	Gender string `yaml:"gender,omitempty" json:"gender,omitempty"`
	Accent string `yaml:"accent,omitempty" json:"accent,omitempty"`
	Style  string `yaml:"style,omitempty" json:"style,omitempty"`
	Pitch  string `yaml:"pitch,omitempty" json:"pitch,omitempty"`
	Speed  string `yaml:"speed,omitempty" json:"speed,omitempty"`
	Timbre string `yaml:"timbre,omitempty" json:"timbre,omitempty"`
}

// Persona is an NPC's character sheet.
type Persona struct {
	ID             string   `yaml:"id" json:"id"`
	Name           string   `yaml:"name" json:"name"`
	Backstory      string   `yaml:"backstory" json:"backstory"`
	Traits         []string `yaml:"traits" json:"traits"`
	Ideals         []string `yaml:"ideals" json:"ideals"`
	Bonds          []string `yaml:"bonds" json:"bonds"`
	Flaws          []string `yaml:"flaws" json:"flaws"`
	SpeechStyle    string   `yaml:"speech_style" json:"speech_style"`
	Goals          []string `yaml:"goals" json:"goals"`
	SpokenModeHint string   `yaml:"spoken_mode_hint" json:"spoken_mode_hint"`
	Voice          Voice    `yaml:"voice,omitempty" json:"voice,omitempty"`
}

// Normalize fills defaults: the id from the lowercased first name, the
// speech style and the spoken-mode hint.
func (p *Persona) Normalize() {
	if fields := strings.Fields(p.Name); p.ID == "" && len(fields) > 0 {
		p.ID = strings.ToLower(fields[0])
	}
	if p.SpeechStyle == "" {
		p.SpeechStyle = DefaultSpeechStyle
	}
	if p.SpokenModeHint == "" {
		p.SpokenModeHint = DefaultSpokenModeHint
	}
}

// Validate checks the persona can drive a conversation.
func (p Persona) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrNoName
	}
	return nil
}

// Preamble renders the system message that opens every thread.
func (p Persona) Preamble() string {
	var b strings.Builder
	b.WriteString("You are an NPC in a tabletop RPG. Answer in character.\n")
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	fmt.Fprintf(&b, "Traits: %s\n", strings.Join(p.Traits, ", "))
	fmt.Fprintf(&b, "Speech style: %s\n", p.SpeechStyle)
	fmt.Fprintf(&b, "Goals: %s\n", strings.Join(p.Goals, ", "))
	fmt.Fprintf(&b, "Voice mode: %s\n", p.SpokenModeHint)
	b.WriteString("Keep your personality, memories and tone consistent.")
	return b.String()
}

// Sheet renders the name, backstory and traits block used inside stage prompts.
func (p Persona) Sheet() string {
	backstory := p.Backstory
	if backstory == "" {
		backstory = "N/A"
	}
	traits := "N/A"
	if len(p.Traits) > 0 {
		traits = strings.Join(p.Traits, ", ")
	}
	return fmt.Sprintf("Name: %s\nBackstory: %s\nTraits: %s", p.Name, backstory, traits)
}

// VoiceInstructions renders the voice hints as style guidance for a
// speech synthesizer. Returns "" when the persona has none.
func (p Persona) VoiceInstructions() string {
	var parts []string
	add := func(label, v string) {
		if v != "" {
			parts = append(parts, label+": "+v+".")
		}
	}
	add("Overall voice style", p.Voice.Style)
	add("Accent", p.Voice.Accent)
	add("Perceived gender", p.Voice.Gender)
	add("Timbre", p.Voice.Timbre)
	add("Speaking rate", p.Voice.Speed)
	add("Pitch", p.Voice.Pitch)
	if len(parts) > 0 {
		add("Speech style", p.SpeechStyle)
	}
	return strings.Join(parts, " ")
}

// Catalog holds personas keyed by id.
type Catalog struct {
	byID map[string]Persona
}

// NewCatalog builds a catalog, normalizing every persona.
// Fails on a nameless persona or a duplicate id.
func NewCatalog(personas ...Persona) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Persona, len(personas))}
	var errs []error
	for _, p := range personas {
		p.Normalize()
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := c.byID[p.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate persona id %q", p.ID))
			continue
		}
		c.byID[p.ID] = p
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the persona with the given id.
func (c *Catalog) Get(id string) (Persona, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// IDs returns the persona ids, sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadFile reads a YAML (or JSON) file holding either one persona or a
// list of personas.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}

	var list []Persona
	if err := yaml.Unmarshal(data, &list); err != nil {
		var single Persona
		if err2 := yaml.Unmarshal(data, &single); err2 != nil {
			return nil, fmt.Errorf("parse persona file %s: %w", path, err2)
		}
		list = []Persona{single}
	}

	cat, err := NewCatalog(list...)
	if err != nil {
		return nil, fmt.Errorf("persona file %s: %w", path, err)
	}
	return cat, nil
}
