package npcgraph

import "sort"

// CompiledGraph is an immutable, executable graph.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is safe for concurrent Run() calls as long as each call
// gets its own state value.
type CompiledGraph[S State] struct {
	stages       map[StageID]Stage[S]
	order        []StageID
	edges        map[StageID]StageID
	conditional  map[StageID]conditionalEdge[S]
	entryPoint   StageID
	worldStage   StageID
	eligible     map[StageID]bool
	detourBudget int
}

// EntryPoint returns the entry stage ID.
func (cg *CompiledGraph[S]) EntryPoint() StageID {
	return cg.entryPoint
}

// StageIDs returns all stage identifiers in the order they were added.
func (cg *CompiledGraph[S]) StageIDs() []StageID {
	ids := make([]StageID, len(cg.order))
	copy(ids, cg.order)
	return ids
}

// HasStage checks if a stage exists in the graph.
func (cg *CompiledGraph[S]) HasStage(id StageID) bool {
	_, exists := cg.stages[id]
	return exists
}

// Successors returns every stage (or END) control may pass to after id,
// sorted. For the world stage these are the detour-eligible stages.
func (cg *CompiledGraph[S]) Successors(id StageID) []StageID {
	if id == END {
		return nil
	}
	if to, ok := cg.edges[id]; ok {
		return []StageID{to}
	}
	cond, ok := cg.conditional[id]
	if !ok {
		return nil
	}
	seen := make(map[StageID]bool, len(cond.routes))
	out := make([]StageID, 0, len(cond.routes))
	for _, to := range cond.routes {
		if !seen[to] {
			seen[to] = true
			out = append(out, to)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsConditional returns true if the stage has a conditional or detour edge.
func (cg *CompiledGraph[S]) IsConditional(id StageID) bool {
	_, ok := cg.conditional[id]
	return ok
}

// WorldStage returns the world-knowledge stage, or "" if none is set.
func (cg *CompiledGraph[S]) WorldStage() StageID {
	return cg.worldStage
}

// IsDetourEligible reports whether id may request a world-knowledge detour.
func (cg *CompiledGraph[S]) IsDetourEligible(id StageID) bool {
	return cg.eligible[id]
}

// DetourEligible returns the detour-eligible stages, sorted.
func (cg *CompiledGraph[S]) DetourEligible() []StageID {
	ids := make([]StageID, 0, len(cg.eligible))
	for id := range cg.eligible {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// DetourBudget returns how many detours one stage may take per run.
func (cg *CompiledGraph[S]) DetourBudget() int {
	return cg.detourBudget
}

// HopBound returns the maximum number of hops a run can take:
// one per stage plus one re-run per permitted detour of each eligible stage.
// World stage executions are part of a detour round trip and are not
// counted as hops.
func (cg *CompiledGraph[S]) HopBound() int {
	return len(cg.stages) + len(cg.eligible)*cg.detourBudget
}

// getStage returns the stage for the given ID.
func (cg *CompiledGraph[S]) getStage(id StageID) (Stage[S], bool) {
	st, exists := cg.stages[id]
	return st, exists
}
