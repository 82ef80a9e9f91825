package stages

import (
	"strings"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/prompt"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/tools"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
)

const dialogueMessages = 8

// Dialogue drafts the NPC's line and a note for the critic. A
// "TOOL: <name> <input>" line naming a registered tool turns the turn's
// action into a tool call with the draft as its fallback.
func (s *Stages) Dialogue(ctx npcgraph.Context, st *turn.State) (*turn.State, error) {
	toolList := ""
	if s.deps.Tools != nil {
		toolList = s.deps.Tools.Describe()
	}
	raw, err := s.generate(ctx, dialoguePrompt, prompt.Vars{
		"tools":       toolList,
		"intent":      st.Intent,
		"plan":        st.Scratch.Plan,
		"goal":        st.Scratch.CurrentGoal,
		"context":     st.Scratch.PerceivedContext,
		"cues":        st.Scratch.EnvironmentalCues,
		"personality": st.Scratch.PersonalityAnalysis,
		"mood":        formatMood(st.Mood),
		"memories":    st.Scratch.RelevantMemories,
		"world":       st.Scratch.WorldKnowledge,
		"feedback":    st.Scratch.CriticFeedback,
		"messages":    formatMessages(st.Recent(dialogueMessages)),
		"input":       st.LastUserInput(),
	})
	if err != nil {
		return st, err
	}

	reply, note := splitDialogue(raw)
	reply, toolName, toolInput := extractTool(reply)
	st.Scratch.CandidateReply = reply
	st.Scratch.CriticFeedback = note

	if toolName != "" && s.deps.Tools != nil {
		if _, ok := s.deps.Tools.Get(toolName); ok {
			st.Action = &turn.Action{
				Type:     turn.ActionTool,
				Name:     toolName,
				Args:     map[string]any{tools.InputKey: toolInput},
				Fallback: reply,
			}
		} else {
			ctx.Logger().Warn("dialogue named an unknown tool", "tool", toolName)
		}
	}
	return st, nil
}

// splitDialogue separates the REPLY: and CRITIC_NOTE: sections. Output
// without a critic note is taken whole as the reply.
func splitDialogue(raw string) (reply, note string) {
	text := strings.TrimSpace(raw)
	if head, tail, ok := strings.Cut(text, "CRITIC_NOTE:"); ok {
		text, note = head, strings.TrimSpace(tail)
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSpace(strings.TrimPrefix(text, "REPLY:"))
	return text, note
}

// extractTool removes the first TOOL: line from reply.
func extractTool(reply string) (rest, name, input string) {
	lines := strings.Split(reply, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if name == "" && strings.HasPrefix(trimmed, "TOOL:") {
			fields := strings.Fields(strings.TrimPrefix(trimmed, "TOOL:"))
			if len(fields) > 0 {
				name = fields[0]
				input = strings.Join(fields[1:], " ")
				continue
			}
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n")), name, input
}
