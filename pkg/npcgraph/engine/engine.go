// Package engine runs NPC turns: it loads a thread, runs the stage graph
// over it, derives the NPC's action and persists the result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/observability"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/persona"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/thread"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/tools"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
)

// Defaults for engine options.
const (
	DefaultTurnTimeout   = 60 * time.Second
	DefaultMaxConcurrent = 16
	DefaultSession       = "default"
)

// toolFailureText is spoken when a tool fails and the draft left no fallback.
const toolFailureText = "(tool failure)"

// Synthesizer turns reply text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// SynthesizerFunc adapts a plain function to the Synthesizer interface.
type SynthesizerFunc func(ctx context.Context, text string) ([]byte, error)

// Synthesize calls f(ctx, text).
func (f SynthesizerFunc) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return f(ctx, text)
}

// Input is one user turn.
type Input struct {
	// ThreadID addresses the thread directly. When empty it is composed
	// from the NPC id and Session.
	ThreadID string

	// Session scopes the conversation. Defaults to DefaultSession.
	Session string

	// Text is what the user said. May be empty when Events are given.
	Text string

	// Events are occurrences the NPC should notice this turn.
	Events []turn.Event
}

// Result is what the caller gets back from a successful turn.
type Result struct {
	ThreadID  string       `json:"thread_id"`
	Action    *turn.Action `json:"action"`
	ReplyText string       `json:"reply_text"`
}

// Engine runs turns for one NPC.
type Engine struct {
	graph   *npcgraph.CompiledGraph[*turn.State]
	store   thread.Store
	persona persona.Persona

	tools   *tools.Registry
	synth   Synthesizer
	locker  *thread.Locker
	slots   *semaphore.Weighted
	inbox   *Inbox
	logger  *slog.Logger
	metrics observability.MetricsRecorder

	window  int
	timeout time.Duration
	runOpts []npcgraph.RunOption
}

// Option configures an Engine.
type Option func(*Engine)

// WithTools sets the registry tool actions are dispatched through.
func WithTools(r *tools.Registry) Option {
	return func(e *Engine) { e.tools = r }
}

// WithSynthesizer enables audio for say actions.
func WithSynthesizer(s Synthesizer) Option {
	return func(e *Engine) { e.synth = s }
}

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHistoryWindow sets how many messages a thread keeps between turns.
func WithHistoryWindow(n int) Option {
	return func(e *Engine) { e.window = n }
}

// WithTurnTimeout bounds each graph run. Non-positive values are ignored.
func WithTurnTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMaxConcurrent caps how many turns run at once across threads.
func WithMaxConcurrent(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithSlots shares a concurrency limit between engines.
func WithSlots(slots *semaphore.Weighted) Option {
	return func(e *Engine) {
		if slots != nil {
			e.slots = slots
		}
	}
}

// WithLocker shares per-thread serialization between engines.
func WithLocker(l *thread.Locker) Option {
	return func(e *Engine) {
		if l != nil {
			e.locker = l
		}
	}
}

// WithInbox shares an event inbox between engines.
func WithInbox(in *Inbox) Option {
	return func(e *Engine) {
		if in != nil {
			e.inbox = in
		}
	}
}

// WithRunOptions passes options to every graph run, e.g. metrics or tracing.
func WithRunOptions(opts ...npcgraph.RunOption) Option {
	return func(e *Engine) { e.runOpts = append(e.runOpts, opts...) }
}

// WithSnapshotMetrics records the size of every saved thread.
func WithSnapshotMetrics(m observability.MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// New creates an engine for one persona.
func New(graph *npcgraph.CompiledGraph[*turn.State], store thread.Store, p persona.Persona, opts ...Option) (*Engine, error) {
	if graph == nil {
		return nil, errors.New("engine: graph is required")
	}
	if store == nil {
		return nil, errors.New("engine: store is required")
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	p.Normalize()

	e := &Engine{
		graph:   graph,
		store:   store,
		persona: p,
		locker:  thread.NewLocker(),
		slots:   semaphore.NewWeighted(DefaultMaxConcurrent),
		inbox:   NewInbox(0),
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		window:  turn.DefaultWindow,
		timeout: DefaultTurnTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Persona returns the NPC this engine speaks for.
func (e *Engine) Persona() persona.Persona {
	return e.persona
}

// ThreadID composes the thread id for a session of this NPC.
func (e *Engine) ThreadID(session string) string {
	if session == "" {
		session = DefaultSession
	}
	return turn.ThreadID(e.persona.ID, session)
}

// Push queues events for the next turn on a thread.
func (e *Engine) Push(threadID string, events ...turn.Event) error {
	return e.inbox.Push(threadID, events...)
}

// History returns up to limit of a thread's most recent turn records.
func (e *Engine) History(ctx context.Context, threadID string, limit int) ([]thread.Record, error) {
	return e.store.Records(ctx, threadID, limit)
}

// Respond runs one turn. Turns on the same thread run one at a time in
// arrival order. Any failure is returned as a *TurnFailure and leaves the
// stored thread untouched.
func (e *Engine) Respond(ctx context.Context, in Input) (*Result, error) {
	threadID := in.ThreadID
	if threadID == "" {
		threadID = e.ThreadID(in.Session)
	}
	turnID := uuid.NewString()
	logger := observability.EnrichLogger(e.logger, threadID, turnID).With(slog.String("npc_id", e.persona.ID))

	fail := func(stage npcgraph.StageID, cause error) (*Result, error) {
		observability.LogTurnFailed(logger, threadID, string(stage), cause)
		return nil, &TurnFailure{ThreadID: threadID, Stage: stage, Cause: cause}
	}

	if strings.TrimSpace(in.Text) == "" && len(in.Events) == 0 && e.inbox.Pending(threadID) == 0 {
		return fail("", ErrEmptyInput)
	}

	unlock, err := e.locker.Lock(ctx, threadID)
	if err != nil {
		return fail("", err)
	}
	defer unlock()

	if err := e.slots.Acquire(ctx, 1); err != nil {
		return fail("", err)
	}
	defer e.slots.Release(1)

	queued := e.inbox.Drain(threadID)
	if strings.TrimSpace(in.Text) == "" && len(in.Events) == 0 && len(queued) == 0 {
		return fail("", ErrEmptyInput)
	}
	result, stage, err := e.respond(ctx, logger, threadID, turnID, in, queued)
	if err != nil {
		e.inbox.Requeue(threadID, queued)
		return fail(stage, err)
	}
	return result, nil
}

func (e *Engine) respond(ctx context.Context, logger *slog.Logger, threadID, turnID string, in Input, queued []turn.Event) (*Result, npcgraph.StageID, error) {
	st, err := e.load(ctx, logger, threadID)
	if err != nil {
		return nil, "", err
	}

	if text := strings.TrimSpace(in.Text); text != "" {
		st.Append(turn.RoleUser, text)
	}
	consumed := make([]turn.Event, 0, len(st.Events)+len(in.Events)+len(queued))
	consumed = append(consumed, st.Events...)
	consumed = append(consumed, in.Events...)
	consumed = append(consumed, queued...)
	st.Events = consumed
	st.ResetTurnFields()

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	gctx := npcgraph.NewContext(runCtx,
		npcgraph.WithLogger(e.logger.With(slog.String("npc_id", e.persona.ID))),
		npcgraph.WithThreadID(threadID),
		npcgraph.WithTurnID(turnID),
	)
	opts := append([]npcgraph.RunOption{npcgraph.WithObservabilityLogger(logger)}, e.runOpts...)
	st, err = e.graph.Run(gctx, st, opts...)
	if err != nil {
		return nil, npcgraph.FailedStage(err), err
	}
	if !st.Routing().Clean() {
		return nil, "", &npcgraph.RoutingInvariantError{Reason: "turn finished with a live continuation"}
	}

	if err := e.finishAction(ctx, logger, st); err != nil {
		return nil, "", err
	}
	reply := st.Action.Content
	st.Append(turn.RoleAssistant, reply)

	rec := thread.NewRecord(threadID, e.persona.ID, strings.TrimSpace(in.Text), reply, st.Intent, st.Action, consumed, st.Mood)
	if err := e.store.AppendRecord(ctx, threadID, rec); err != nil {
		return nil, "", fmt.Errorf("append record: %w", err)
	}

	st.Messages = turn.Trim(st.Messages, e.window)
	if err := e.store.Save(ctx, threadID, st); err != nil {
		return nil, "", fmt.Errorf("save state: %w", err)
	}
	if data, err := turn.Marshal(st); err == nil {
		e.metrics.RecordSnapshot(ctx, int64(len(data)))
		observability.LogTurnPersisted(logger, threadID, len(st.Messages), len(data))
	}

	return &Result{ThreadID: threadID, Action: st.Action, ReplyText: reply}, "", nil
}

// load returns the stored state or seeds a new thread. A stored state
// carrying a live continuation is reset.
func (e *Engine) load(ctx context.Context, logger *slog.Logger, threadID string) (*turn.State, error) {
	st, err := e.store.Load(ctx, threadID)
	if errors.Is(err, thread.ErrNotFound) {
		return turn.Seed(threadID, e.persona.ID, e.persona.Preamble()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if !st.Routing().Clean() {
		logger.Warn("stored thread had a live continuation, resetting it")
		st.Routing().Reset()
	}
	if st.Mood == nil {
		st.Mood = turn.Mood{}
	}
	return st, nil
}

// finishAction turns the pipeline's output into a say action: the final
// or candidate reply becomes one if no action was set, and a tool action is
// dispatched and spoken.
func (e *Engine) finishAction(ctx context.Context, logger *slog.Logger, st *turn.State) error {
	if st.Action == nil {
		text := st.Scratch.FinalReply
		if strings.TrimSpace(text) == "" {
			text = st.Scratch.CandidateReply
		}
		if strings.TrimSpace(text) == "" {
			return ErrNoReply
		}
		st.Action = turn.Say(strings.TrimSpace(text))
	}

	if st.Action.Type == turn.ActionTool {
		st.Action = e.runTool(ctx, logger, st)
	}
	if strings.TrimSpace(st.Action.Content) == "" {
		return ErrNoReply
	}

	if e.synth != nil {
		audio, err := e.synth.Synthesize(ctx, st.Action.Content)
		if err != nil {
			logger.Warn("speech synthesis failed", slog.String("error", err.Error()))
		} else {
			st.Action.Audio = audio
		}
	}
	return nil
}

// runTool dispatches a tool action and returns the say action replacing it.
// The tool output is logged to the thread as a tool message.
func (e *Engine) runTool(ctx context.Context, logger *slog.Logger, st *turn.State) *turn.Action {
	call := st.Action
	fallback := strings.TrimSpace(call.Fallback)

	var out string
	err := errors.New("no tool registry configured")
	if e.tools != nil {
		out, err = e.tools.Call(ctx, call.Name, call.Args)
	}
	if err != nil {
		logger.Warn("tool call failed", slog.String("tool", call.Name), slog.String("error", err.Error()))
		if fallback == "" {
			fallback = toolFailureText
		}
		return &turn.Action{Type: turn.ActionSay, Content: fallback, Name: call.Name}
	}

	st.Append(turn.RoleTool, fmt.Sprintf("[TOOL %s] %s", call.Name, out))
	content := out
	if fallback != "" {
		content = fallback + "\n" + out
	}
	return &turn.Action{Type: turn.ActionSay, Content: content, Name: call.Name, ToolResult: out}
}
