package npcgraph

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for a stage graph.
// Use NewGraph to create a new graph, then chain AddStage, AddEdge,
// AddConditionalEdge, AddDetourEdge, SetWorldStage and SetEntry calls.
//
// Graph is NOT thread-safe during building. Use a single goroutine
// to construct the graph, then call Compile() to create an immutable
// CompiledGraph that can be safely shared.
//
// Example:
//
//	graph := npcgraph.NewGraph[*turn.State]().
//	    AddStage("context", contextStage).
//	    AddStage("planner", plannerStage).
//	    AddStage("world", worldStage).
//	    AddStage("dialogue", dialogueStage).
//	    AddDetourEdge("context", "planner").
//	    AddDetourEdge("planner", "dialogue").
//	    AddEdge("dialogue", npcgraph.END).
//	    SetWorldStage("world").
//	    SetEntry("context")
//
//	compiled, err := graph.Compile()
type Graph[S State] struct {
	mu           sync.RWMutex
	stages       map[StageID]Stage[S]
	order        []StageID
	edges        map[StageID][]StageID
	conditional  map[StageID][]conditionalEdge[S]
	detours      map[StageID][]StageID
	worldStage   StageID
	entryPoint   StageID
	detourBudget int
}

// conditionalEdge pairs a decision function with its route table.
type conditionalEdge[S State] struct {
	decide DecideFunc[S]
	routes map[RouteKey]StageID
}

// NewGraph creates a new graph builder for state type S.
func NewGraph[S State]() *Graph[S] {
	return &Graph[S]{
		stages:       make(map[StageID]Stage[S]),
		edges:        make(map[StageID][]StageID),
		conditional:  make(map[StageID][]conditionalEdge[S]),
		detours:      make(map[StageID][]StageID),
		detourBudget: 1,
	}
}

// AddStage adds a named stage to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty
//   - id is the reserved word "END" or "__end__" (case-insensitive)
//   - id contains whitespace (space, tab, newline)
//   - stage is nil
//   - id already exists in the graph
func (g *Graph[S]) AddStage(id StageID, stage Stage[S]) *Graph[S] {
	if id == "" {
		panic("npcgraph: stage ID cannot be empty")
	}

	idLower := strings.ToLower(string(id))
	if idLower == "end" || idLower == string(END) {
		panic("npcgraph: stage ID cannot be reserved word 'END'")
	}

	if strings.ContainsAny(string(id), " \t\n\r") {
		panic("npcgraph: stage ID cannot contain whitespace")
	}

	if stage == nil {
		panic("npcgraph: stage cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.stages[id]; exists {
		panic(fmt.Sprintf("npcgraph: duplicate stage ID: %s", id))
	}

	g.stages[id] = stage
	g.order = append(g.order, id)
	return g
}

// AddEdge adds an unconditional edge from one stage to another.
// The target can be a stage ID or npcgraph.END.
//
// Edge validation happens at Compile() time, so edges may be added in any order.
func (g *Graph[S]) AddEdge(from, to StageID) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge adds a conditional edge. After from completes, decide
// picks a key and control passes to routes[key].
//
// Every route target must be a stage or END; this is checked at Compile().
// A key returned at run time that is missing from routes is a RouterError.
func (g *Graph[S]) AddConditionalEdge(from StageID, decide DecideFunc[S], routes map[RouteKey]StageID) *Graph[S] {
	if decide == nil {
		panic("npcgraph: decision function cannot be nil")
	}

	table := make(map[RouteKey]StageID, len(routes))
	for k, v := range routes {
		table[k] = v
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.conditional[from] = append(g.conditional[from], conditionalEdge[S]{decide: decide, routes: table})
	return g
}

// AddDetourEdge marks from as detour-eligible. After from completes, the
// detour decision either sends control to the world stage or on to next.
// Requires SetWorldStage.
func (g *Graph[S]) AddDetourEdge(from, next StageID) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.detours[from] = append(g.detours[from], next)
	return g
}

// SetWorldStage designates the world-knowledge stage. Its return edge back
// to the requesting stage is generated at Compile() time.
func (g *Graph[S]) SetWorldStage(id StageID) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.worldStage = id
	return g
}

// SetDetourBudget sets how many detours one stage may take per run.
// Default: 1. Values below 1 are ignored. A stage that asks a different
// question after resuming needs a budget above 1.
func (g *Graph[S]) SetDetourBudget(n int) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	if n > 0 {
		g.detourBudget = n
	}
	return g
}

// SetEntry designates the entry point stage.
// Entry point validation happens at Compile() time.
func (g *Graph[S]) SetEntry(id StageID) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
