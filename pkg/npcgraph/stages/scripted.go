package stages

import (
	"context"
	"strings"
	"sync"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/errors"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/llm"
)

// promptMarkers identify which stage rendered a request.
var promptMarkers = []struct {
	marker string
	stage  npcgraph.StageID
}{
	{"DYNAMIC EMOTION module", Mood},
	{"CONTEXT AWARENESS module", Context},
	{"INNER PLANNER", Planner},
	{"DIALOGUE module", Dialogue},
	{"INNER CRITIC", Critic},
	{"RELATIONSHIP module", Relationship},
}

// StageOf reports which stage rendered req, or "" if none did.
func StageOf(req llm.Request) npcgraph.StageID {
	for _, m := range promptMarkers {
		if strings.Contains(req.System, m.marker) {
			return m.stage
		}
	}
	return ""
}

// Script maps a stage to the answers it receives, in call order. The last
// answer repeats once the list is exhausted.
type Script map[npcgraph.StageID][]string

// DefaultScript answers every stage with a plausible, well-formed reply.
func DefaultScript() Script {
	return Script{
		Mood:         {`{"emotions": {"curiosity": 0.6, "trust": 0.5}, "justification": "a stranger approaches politely"}`},
		Context:      {`{"perceived_context": "A traveller is speaking to me.", "environmental_cues": "wind over the road", "needs_world": false, "world_query": null}`},
		Planner:      {`{"intent": "answer the traveller", "plan": "listen, then reply", "current_goal": "be helpful", "needs_world": false, "world_query": null}`},
		Dialogue:     {"REPLY:\nWell met, traveller. What brings you here?\n\nCRITIC_NOTE:\n- notes: fine"},
		Critic:       {"Well met, traveller. What brings you to the road today?"},
		Relationship: {`{"character_name": "Player", "updates": {"trust": 0.55}, "interaction_event": "friendly greeting", "interaction_impact": {"trust": 0.05}}`},
	}
}

// Scripted is an offline Generator that answers from a Script.
type Scripted struct {
	mu     sync.Mutex
	script Script
	calls  map[npcgraph.StageID]int
}

// NewScripted returns a generator answering from script, with DefaultScript
// filling any stage script leaves out.
func NewScripted(script Script) *Scripted {
	merged := DefaultScript()
	for id, answers := range script {
		merged[id] = answers
	}
	return &Scripted{script: merged, calls: make(map[npcgraph.StageID]int)}
}

// Generate implements llm.Generator.
func (g *Scripted) Generate(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := StageOf(req)
	g.mu.Lock()
	defer g.mu.Unlock()

	answers := g.script[id]
	if len(answers) == 0 {
		return "", &errors.ProviderError{Provider: "scripted", Message: "no answer scripted for this prompt"}
	}
	n := g.calls[id]
	g.calls[id] = n + 1
	if n >= len(answers) {
		n = len(answers) - 1
	}
	return answers[n], nil
}

// Calls returns how many times stage id has been answered.
func (g *Scripted) Calls(id npcgraph.StageID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[id]
}
