// Package stages implements the NPC turn pipeline: perception, personality,
// mood, context awareness, planning, world knowledge, dialogue, critique and
// relationship tracking, plus the graph that wires them together.
package stages

import (
	"context"
	"errors"
	"fmt"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/llm"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/lore"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/persona"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/prompt"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/relation"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/thread"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/tools"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
)

// Stage identifiers.
const (
	Perception   npcgraph.StageID = "perception"
	Personality  npcgraph.StageID = "personality"
	Mood         npcgraph.StageID = "mood"
	Context      npcgraph.StageID = "context"
	Planner      npcgraph.StageID = "planner"
	World        npcgraph.StageID = "world"
	Dialogue     npcgraph.StageID = "dialogue"
	Critic       npcgraph.StageID = "critic"
	Relationship npcgraph.StageID = "relationship"
)

// HistorySource returns recent turn records for a thread, oldest first.
// thread.Store satisfies it.
type HistorySource interface {
	Records(ctx context.Context, threadID string, limit int) ([]thread.Record, error)
}

// Deps are the services the stages call out to.
// Generator is required. A nil Searcher disables lore lookups, a nil
// Relations disables the relationship stage, a nil History makes the mood
// stage work from the current turn only and nil Tools disables tool actions.
type Deps struct {
	Generator llm.Generator
	Searcher  lore.Searcher
	Persona   persona.Persona
	Relations relation.Store
	History   HistorySource
	Tools     *tools.Registry

	// LoreK is how many lore snippets a lookup returns. Defaults to lore.DefaultK.
	LoreK int
}

// ErrNoGenerator is returned by New when Deps has no Generator.
var ErrNoGenerator = errors.New("stages: generator is required")

// Stages holds the pipeline's stage implementations.
type Stages struct {
	deps     Deps
	expander *prompt.Expander
}

// New validates deps and returns the stage set.
func New(deps Deps) (*Stages, error) {
	if deps.Generator == nil {
		return nil, ErrNoGenerator
	}
	if err := deps.Persona.Validate(); err != nil {
		return nil, fmt.Errorf("stages: %w", err)
	}
	deps.Persona.Normalize()
	if deps.LoreK <= 0 {
		deps.LoreK = lore.DefaultK
	}
	return &Stages{
		deps:     deps,
		expander: prompt.NewExpander(prompt.WithMissingAction(prompt.MissingError), prompt.WithBlank("(none)")),
	}, nil
}

// generate renders t and calls the generator. Generation errors fail the
// stage; they are never treated as parse fallbacks.
func (s *Stages) generate(ctx context.Context, t prompt.Template, vars prompt.Vars) (string, error) {
	vars["preamble"] = s.deps.Persona.Preamble()
	vars["sheet"] = s.deps.Persona.Sheet()
	vars["npc"] = s.deps.Persona.Name
	req, err := s.expander.Render(t, vars)
	if err != nil {
		return "", err
	}
	out, err := s.deps.Generator.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: generate: %w", t.Name, err)
	}
	return out, nil
}

// search runs a lore lookup, returning "" when no searcher is configured.
func (s *Stages) search(ctx context.Context, query string) (string, error) {
	if s.deps.Searcher == nil {
		return "", nil
	}
	hits, err := s.deps.Searcher.Search(ctx, query, s.deps.LoreK)
	if err != nil {
		return "", fmt.Errorf("lore search: %w", err)
	}
	return lore.Join(hits), nil
}

// stage pairs an id with its implementation.
type stage struct {
	id npcgraph.StageID
	fn npcgraph.StageFunc[*turn.State]
}

// all returns every stage in pipeline order.
func (s *Stages) all() []stage {
	return []stage{
		{Perception, s.Perceive},
		{Personality, s.Personality},
		{Mood, s.Mood},
		{Context, s.Context},
		{Planner, s.Plan},
		{World, s.World},
		{Dialogue, s.Dialogue},
		{Critic, s.Critique},
		{Relationship, s.Relationship},
	}
}
