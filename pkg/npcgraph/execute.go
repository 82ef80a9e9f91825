package npcgraph

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Run executes the graph for one turn with the given state.
// Stages run strictly one after another; each is awaited before the router
// picks the next hop.
//
// On error, the returned state is the state at the point of failure and
// must not be persisted by the caller: it may hold a live detour.
//
// Execution flow:
//  1. Start at the entry stage
//  2. Check the hop bound and cancellation
//  3. Check the handshake is consistent for the stage about to run
//  4. Execute the stage
//  5. Pick the next stage (plain edge, conditional edge, or detour)
//  6. Repeat until END is reached or an error occurs
//
// Example:
//
//	ctx := npcgraph.NewContext(context.Background(), npcgraph.WithThreadID(id))
//	state, err := compiled.Run(ctx, state)
func (cg *CompiledGraph[S]) Run(ctx Context, state S, opts ...RunOption) (result S, runErr error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	bound := cg.HopBound()
	if cfg.maxHops == 0 || cfg.maxHops > bound {
		cfg.maxHops = bound
	}

	startTime := time.Now()
	observability.LogRunStart(cfg.logger, ctx.ThreadID(), ctx.TurnID())

	var tracingCtx context.Context = ctx
	var runSpan trace.Span
	if cfg.tracingEnabled {
		tracingCtx, runSpan = cfg.spans.StartTurnSpan(ctx, ctx.ThreadID(), ctx.TurnID())
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	var stats runStats
	result, stats, runErr = cg.runLoop(tracingCtx, ctx, state, &cfg)

	duration := time.Since(startTime)
	cfg.metrics.RecordRun(ctx, runErr == nil, duration)

	if runErr != nil {
		observability.LogRunError(cfg.logger, ctx.TurnID(), runErr, float64(duration.Milliseconds()), string(FailedStage(runErr)))
	} else {
		observability.LogRunComplete(cfg.logger, ctx.TurnID(), float64(duration.Milliseconds()), stats.hops, stats.detours)
	}

	return result, runErr
}

// runStats summarizes a run for logging.
type runStats struct {
	hops    int
	detours int
}

// runLoop drives stages until END.
// tracingCtx carries span context; gCtx is the npcgraph Context.
func (cg *CompiledGraph[S]) runLoop(tracingCtx context.Context, gCtx Context, state S, cfg *runConfig) (S, runStats, error) {
	var stats runStats
	detours := make(map[StageID]int)
	current := cg.entryPoint

	for current != END {
		if current != cg.worldStage {
			stats.hops++
			if stats.hops > cfg.maxHops {
				return state, stats, &HopLimitError{Max: cfg.maxHops, StageID: current}
			}
		}

		select {
		case <-gCtx.Done():
			return state, stats, &CancellationError{StageID: current, Cause: gCtx.Err()}
		default:
		}

		if err := cg.checkHandshake(current, state); err != nil {
			return state, stats, err
		}

		observability.LogStageStart(cfg.logger, string(current))

		stageTracingCtx := tracingCtx
		var stageSpan trace.Span
		if cfg.tracingEnabled {
			stageTracingCtx, stageSpan = cfg.spans.StartStageSpan(tracingCtx, string(current))
		}

		stageStart := time.Now()
		var stageErr error
		state, stageErr = cg.executeStage(gCtx, current, state)
		stageDuration := time.Since(stageStart)

		cfg.metrics.RecordStageExecution(stageTracingCtx, string(current), stageDuration, stageErr)
		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(stageSpan, stageErr)
		}

		if stageErr != nil {
			observability.LogStageError(cfg.logger, string(current), stageErr)
			return state, stats, stageErr
		}
		observability.LogStageComplete(cfg.logger, string(current), float64(stageDuration.Milliseconds()))

		next, key, err := cg.nextStage(gCtx, state, current)
		if err != nil {
			return state, stats, err
		}

		if key == RouteWorld && cg.eligible[current] {
			detours[current]++
			if detours[current] > cg.detourBudget {
				return state, stats, &RoutingInvariantError{
					Stage:  current,
					Reason: fmt.Sprintf("detour budget of %d exceeded", cg.detourBudget),
				}
			}
			stats.detours++
			query := ""
			if p := state.Routing().Pending; p != nil {
				query = p.Query
			}
			observability.LogDetour(cfg.logger, string(current), query)
			cfg.metrics.RecordDetour(tracingCtx, string(current))
			cfg.spans.AddSpanEvent(tracingCtx, "detour",
				attribute.String("stage.id", string(current)),
				attribute.String("query", query),
			)
		}

		if cfg.onTransition != nil {
			cfg.onTransition(Transition{
				From:    current,
				To:      next,
				Key:     key,
				Routing: state.Routing().Clone(),
			})
		}

		current = next
	}

	return state, stats, nil
}

// checkHandshake enforces the continuation rules before a stage runs: the
// world stage only runs for a pending request, and a resumed continuation
// is only ever visible to the stage it belongs to.
func (cg *CompiledGraph[S]) checkHandshake(current StageID, state S) error {
	rc := state.Routing()
	if current == cg.worldStage {
		if rc.Pending == nil {
			return &RoutingInvariantError{Stage: current, Reason: "world stage entered with no pending request"}
		}
		return nil
	}
	if rc.Resumed != nil && rc.Resumed.ReturnTo != current {
		return &RoutingInvariantError{
			Stage:  current,
			Reason: fmt.Sprintf("continuation for %s leaked into %s", rc.Resumed.ReturnTo, current),
		}
	}
	if rc.Pending != nil {
		return &RoutingInvariantError{
			Stage:  current,
			Reason: fmt.Sprintf("detour %q for %s was never taken", rc.Pending.Query, rc.Pending.ReturnTo),
		}
	}
	return nil
}

// executeStage executes a single stage with panic recovery.
func (cg *CompiledGraph[S]) executeStage(ctx Context, id StageID, state S) (result S, err error) {
	stage, exists := cg.getStage(id)
	if !exists {
		return state, &StageError{
			StageID: id,
			Op:      "lookup",
			Err:     fmt.Errorf("stage not found: %s", id),
		}
	}

	stageCtx := withStage(ctx, id)

	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{
				StageID: id,
				Value:   r,
				Stack:   string(debug.Stack()),
			}
		}
	}()

	result, err = stage.Process(stageCtx, state)
	if err != nil {
		return result, &StageError{
			StageID: id,
			Op:      "execute",
			Err:     err,
		}
	}

	return result, nil
}

// nextStage determines the next stage to execute.
// Checks conditional edges first, then plain edges.
func (cg *CompiledGraph[S]) nextStage(ctx Context, state S, current StageID) (StageID, RouteKey, error) {
	if cond, exists := cg.conditional[current]; exists {
		key, err := cond.decide(withStage(ctx, current), state)
		if err != nil {
			var invErr *RoutingInvariantError
			if errors.As(err, &invErr) {
				return "", key, err
			}
			return "", key, &RouterError{From: current, Key: key, Err: err}
		}

		next, ok := cond.routes[key]
		if !ok {
			return "", key, &RouterError{From: current, Key: key, Err: ErrUnknownRouteKey}
		}
		return next, key, nil
	}

	next, ok := cg.edges[current]
	if !ok {
		return "", "", &StageError{
			StageID: current,
			Op:      "routing",
			Err:     fmt.Errorf("no outgoing edge from stage %s", current),
		}
	}
	return next, "", nil
}
