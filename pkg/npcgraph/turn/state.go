// Package turn defines the state threaded through every stage of one NPC
// turn, its canonical serialization, and history trimming.
package turn

import (
	"strings"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph"
)

// Role tags a message in the conversation log.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in the conversation log.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Event is an externally supplied occurrence the NPC should notice,
// e.g. {source: "GM", kind: "weather", content: "a storm rolls in"}.
type Event struct {
	Source  string `json:"source"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// Scratch is the pipeline's working memory for one turn. Each field is
// owned by the stage that writes it.
type Scratch struct {
	EventSummary         string `json:"event_summary,omitempty"`
	Plan                 string `json:"plan,omitempty"`
	CurrentGoal          string `json:"current_goal,omitempty"`
	PerceivedContext     string `json:"perceived_context,omitempty"`
	EnvironmentalCues    string `json:"environmental_cues,omitempty"`
	PersonalityAnalysis  string `json:"personality_analysis,omitempty"`
	EmotionJustification string `json:"emotion_justification,omitempty"`
	RelevantMemories     string `json:"relevant_memories,omitempty"`
	WorldKnowledge       string `json:"world_knowledge,omitempty"`
	CandidateReply       string `json:"candidate_reply,omitempty"`
	CriticFeedback       string `json:"critic_feedback,omitempty"`
	FinalReply           string `json:"final_reply,omitempty"`
	RelationshipNote     string `json:"relationship_note,omitempty"`

	// Routing carries the world-knowledge handshake.
	Routing npcgraph.RoutingControl `json:"routing"`
}

// ActionType tags the terminal output of a turn.
type ActionType string

// Action types.
const (
	ActionSay  ActionType = "say"
	ActionTool ActionType = "tool"
)

// Action is the terminal output of a turn.
// A say action carries Content and optionally Audio; a tool action carries
// Name, Args and the Fallback text spoken if the tool cannot run.
type Action struct {
	Type       ActionType     `json:"type"`
	Content    string         `json:"content,omitempty"`
	Audio      []byte         `json:"audio,omitempty"`
	Name       string         `json:"name,omitempty"`
	Args       map[string]any `json:"args,omitempty"`
	Fallback   string         `json:"fallback,omitempty"`
	ToolResult string         `json:"tool_result,omitempty"`
}

// Say builds a say action.
func Say(text string) *Action {
	return &Action{Type: ActionSay, Content: text}
}

// Summary is the compact form of an action kept in turn records.
type Summary struct {
	Type    ActionType `json:"type"`
	Name    string     `json:"name,omitempty"`
	Content string     `json:"content,omitempty"`
}

// Summarize returns the record form of a, or a zero Summary for nil.
func (a *Action) Summarize() Summary {
	if a == nil {
		return Summary{}
	}
	return Summary{Type: a.Type, Name: a.Name, Content: a.Content}
}

// State is the mutable record owned by the engine for the duration of a
// turn and handed to each stage by reference.
type State struct {
	ThreadID string    `json:"thread_id"`
	NPCID    string    `json:"npc_id"`
	Messages []Message `json:"messages"`
	Events   []Event   `json:"events"`
	Intent   string    `json:"intent,omitempty"`
	Mood     Mood      `json:"mood"`
	Scratch  Scratch   `json:"scratch"`
	Action   *Action   `json:"action,omitempty"`
}

// Routing implements npcgraph.State.
func (s *State) Routing() *npcgraph.RoutingControl {
	return &s.Scratch.Routing
}

// ThreadID composes a thread id from a conversation owner and a session.
func ThreadID(owner, session string) string {
	return owner + ":" + session
}

// SplitThreadID splits an owner:session thread id. The owner is everything
// before the first colon.
func SplitThreadID(id string) (owner, session string) {
	owner, session, _ = strings.Cut(id, ":")
	return owner, session
}

// Seed returns the state of a brand new thread: the persona preamble as the
// only message, and empty scratch, mood and events.
func Seed(threadID, npcID, preamble string) *State {
	s := &State{
		ThreadID: threadID,
		NPCID:    npcID,
		Messages: []Message{},
		Events:   []Event{},
		Mood:     Mood{},
	}
	if preamble != "" {
		s.Messages = append(s.Messages, Message{Role: RoleSystem, Content: preamble})
	}
	return s
}

// Append adds a message to the log.
func (s *State) Append(role Role, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
}

// LastUserInput returns the most recent user message, or "".
func (s *State) LastUserInput() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// Recent returns up to n trailing messages, excluding system messages.
func (s *State) Recent(n int) []Message {
	var out []Message
	for i := len(s.Messages) - 1; i >= 0 && len(out) < n; i-- {
		if s.Messages[i].Role != RoleSystem {
			out = append(out, s.Messages[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ResetTurnFields clears everything derived from the previous turn's
// output so stale replies can never be mistaken for this turn's.
func (s *State) ResetTurnFields() {
	s.Action = nil
	s.Intent = ""
	s.Scratch.CandidateReply = ""
	s.Scratch.CriticFeedback = ""
	s.Scratch.FinalReply = ""
}

// Reply returns the turn's textual output: the say action's content, then
// the final reply, then the candidate reply.
func (s *State) Reply() string {
	if s.Action != nil && s.Action.Type == ActionSay && s.Action.Content != "" {
		return s.Action.Content
	}
	if s.Scratch.FinalReply != "" {
		return s.Scratch.FinalReply
	}
	return s.Scratch.CandidateReply
}
