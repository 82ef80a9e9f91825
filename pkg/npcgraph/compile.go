package npcgraph

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined together.
//
// Validation checks:
//  1. Entry point must be set and reference an existing stage
//  2. Detour edges require a world stage; the world stage declares no edges
//  3. Every edge source and route target must be a stage or END
//  4. Every stage except the world stage has exactly one outgoing declaration
//  5. Only detour edges may target the world stage
//  6. The logical graph (without the world return) is acyclic
//  7. A path to END exists from the entry
//
// Unreachable stages are logged as warnings but do not fail compilation.
func (g *Graph[S]) Compile() (*CompiledGraph[S], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	if g.entryPoint == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, exists := g.stages[g.entryPoint]; !exists {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entryPoint))
	}

	if len(g.detours) > 0 && g.worldStage == "" {
		errs = append(errs, ErrNoWorldStage)
	}
	if g.worldStage != "" {
		if _, exists := g.stages[g.worldStage]; !exists {
			errs = append(errs, fmt.Errorf("%w: world stage '%s' does not exist", ErrStageNotFound, g.worldStage))
		}
		if len(g.edges[g.worldStage])+len(g.conditional[g.worldStage])+len(g.detours[g.worldStage]) > 0 {
			errs = append(errs, fmt.Errorf("%w: %s", ErrWorldStageEdges, g.worldStage))
		}
	}

	errs = append(errs, g.validateSources()...)
	errs = append(errs, g.validateOutgoing()...)
	errs = append(errs, g.validateTargets()...)

	// Graph-shape checks only make sense once every reference resolves.
	if len(errs) == 0 {
		if cycle := g.findCycle(); cycle != nil {
			errs = append(errs, fmt.Errorf("%w: %s", ErrCycle, joinIDs(cycle, " -> ")))
		} else if !g.hasPathToEnd() {
			errs = append(errs, ErrNoPathToEnd)
		}
	}

	g.warnUnreachableStages()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return g.buildCompiledGraph(), nil
}

// validateSources checks every declared edge source is a stage.
func (g *Graph[S]) validateSources() []error {
	var errs []error
	check := func(from StageID, kind string) {
		if _, exists := g.stages[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: %s source '%s' does not exist", ErrStageNotFound, kind, from))
		}
	}
	for _, from := range sortedKeys(g.edges) {
		check(from, "edge")
	}
	for _, from := range sortedKeys(g.conditional) {
		check(from, "conditional edge")
	}
	for _, from := range sortedKeys(g.detours) {
		check(from, "detour edge")
	}
	return errs
}

// validateOutgoing checks every stage but the world stage has exactly one
// outgoing declaration.
func (g *Graph[S]) validateOutgoing() []error {
	var errs []error
	for _, id := range g.order {
		if id == g.worldStage {
			continue
		}
		n := len(g.edges[id]) + len(g.conditional[id]) + len(g.detours[id])
		switch {
		case n == 0:
			errs = append(errs, fmt.Errorf("%w: %s", ErrNoOutgoing, id))
		case n > 1:
			errs = append(errs, fmt.Errorf("%w: %s", ErrMultipleOutgoing, id))
		}
	}
	return errs
}

// validateTargets checks every edge, route and detour target.
func (g *Graph[S]) validateTargets() []error {
	var errs []error
	check := func(from, to StageID, kind string) {
		if to == END {
			return
		}
		if _, exists := g.stages[to]; !exists {
			errs = append(errs, fmt.Errorf("%w: %s target '%s' from '%s' does not exist", ErrStageNotFound, kind, to, from))
			return
		}
		if to == g.worldStage {
			errs = append(errs, fmt.Errorf("%w: %s %s -> %s", ErrWorldStageTarget, kind, from, to))
		}
	}

	for _, from := range sortedKeys(g.edges) {
		for _, to := range g.edges[from] {
			check(from, to, "edge")
		}
	}
	for _, from := range sortedKeys(g.conditional) {
		for _, cond := range g.conditional[from] {
			if len(cond.routes) == 0 {
				errs = append(errs, fmt.Errorf("%w: %s", ErrEmptyRouteTable, from))
				continue
			}
			for _, key := range sortedKeys(cond.routes) {
				check(from, cond.routes[key], fmt.Sprintf("route %q", key))
			}
		}
	}
	for _, from := range sortedKeys(g.detours) {
		for _, next := range g.detours[from] {
			check(from, next, "detour edge")
		}
	}
	return errs
}

// logicalSuccessors returns the targets reachable from id without taking
// a detour. The world stage has none.
func (g *Graph[S]) logicalSuccessors(id StageID) []StageID {
	var out []StageID
	out = append(out, g.edges[id]...)
	for _, cond := range g.conditional[id] {
		for _, key := range sortedKeys(cond.routes) {
			out = append(out, cond.routes[key])
		}
	}
	out = append(out, g.detours[id]...)
	return out
}

// findCycle returns a cycle in the logical graph, or nil.
func (g *Graph[S]) findCycle() []StageID {
	const (
		white = iota
		grey
		black
	)
	color := make(map[StageID]int, len(g.stages))
	var stack []StageID
	var cycle []StageID

	var visit func(id StageID) bool
	visit = func(id StageID) bool {
		color[id] = grey
		stack = append(stack, id)
		for _, next := range g.logicalSuccessors(id) {
			if next == END {
				continue
			}
			switch color[next] {
			case grey:
				for i, s := range stack {
					if s == next {
						cycle = append(append([]StageID{}, stack[i:]...), next)
						break
					}
				}
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, id := range g.order {
		if color[id] == white && visit(id) {
			return cycle
		}
	}
	return nil
}

// hasPathToEnd checks if there's a path from entry to END using reverse
// propagation over the logical edges.
func (g *Graph[S]) hasPathToEnd() bool {
	canReachEnd := map[StageID]bool{END: true}

	changed := true
	for changed {
		changed = false
		for _, id := range g.order {
			if canReachEnd[id] {
				continue
			}
			for _, next := range g.logicalSuccessors(id) {
				if canReachEnd[next] {
					canReachEnd[id] = true
					changed = true
					break
				}
			}
		}
	}

	return canReachEnd[g.entryPoint]
}

// warnUnreachableStages logs warnings for stages not reachable from entry.
func (g *Graph[S]) warnUnreachableStages() {
	if g.entryPoint == "" {
		return
	}

	reachable := g.findReachableStages()
	for _, id := range g.order {
		if !reachable[id] {
			slog.Warn("stage is unreachable from entry", "stage_id", string(id))
		}
	}
}

// findReachableStages returns the set of stages reachable from the entry,
// including the world stage when any reachable stage is detour-eligible.
func (g *Graph[S]) findReachableStages() map[StageID]bool {
	reachable := make(map[StageID]bool)
	if _, ok := g.stages[g.entryPoint]; !ok {
		return reachable
	}

	queue := []StageID{g.entryPoint}
	reachable[g.entryPoint] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		next := g.logicalSuccessors(current)
		if len(g.detours[current]) > 0 && g.worldStage != "" {
			next = append(next, g.worldStage)
		}
		for _, target := range next {
			if target != END && !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}
	}

	return reachable
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
// Called only after validation, so every stage has exactly one declaration.
func (g *Graph[S]) buildCompiledGraph() *CompiledGraph[S] {
	stages := make(map[StageID]Stage[S], len(g.stages))
	for id, st := range g.stages {
		stages[id] = st
	}

	order := make([]StageID, len(g.order))
	copy(order, g.order)

	edges := make(map[StageID]StageID, len(g.edges))
	for from, targets := range g.edges {
		edges[from] = targets[0]
	}

	eligible := make(map[StageID]bool, len(g.detours))
	conditional := make(map[StageID]conditionalEdge[S], len(g.conditional)+len(g.detours)+1)
	for from, conds := range g.conditional {
		conditional[from] = conds[0]
	}
	for from, nexts := range g.detours {
		eligible[from] = true
		conditional[from] = conditionalEdge[S]{
			decide: DetourDecision[S](),
			routes: map[RouteKey]StageID{
				RouteNext:  nexts[0],
				RouteWorld: g.worldStage,
			},
		}
	}

	if g.worldStage != "" {
		back := make(map[RouteKey]StageID, len(eligible))
		for id := range eligible {
			back[RouteKey(id)] = id
		}
		conditional[g.worldStage] = conditionalEdge[S]{
			decide: worldReturnDecision[S](eligible),
			routes: back,
		}
	}

	return &CompiledGraph[S]{
		stages:       stages,
		order:        order,
		edges:        edges,
		conditional:  conditional,
		entryPoint:   g.entryPoint,
		worldStage:   g.worldStage,
		eligible:     eligible,
		detourBudget: g.detourBudget,
	}
}

// sortedKeys returns map keys in a stable order so errors and warnings
// are deterministic.
func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func joinIDs(ids []StageID, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, sep)
}
