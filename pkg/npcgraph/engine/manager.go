package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph/persona"
)

// BuildFunc creates the engine for one persona.
type BuildFunc func(p persona.Persona) (*Engine, error)

// Manager holds one engine per NPC, built on first use. Engines built by
// one manager usually share a store, locker and concurrency limit through
// the BuildFunc.
type Manager struct {
	catalog *persona.Catalog
	build   BuildFunc

	mu      sync.RWMutex
	engines map[string]*Engine
}

// NewManager creates a manager over the personas in catalog.
func NewManager(catalog *persona.Catalog, build BuildFunc) *Manager {
	return &Manager{
		catalog: catalog,
		build:   build,
		engines: make(map[string]*Engine),
	}
}

// Get returns the engine for npcID, building it at most once.
func (m *Manager) Get(npcID string) (*Engine, error) {
	m.mu.RLock()
	e, ok := m.engines[npcID]
	m.mu.RUnlock()
	if ok {
		return e, nil
	}

	p, ok := m.catalog.Get(npcID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNPC, npcID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if e, ok := m.engines[npcID]; ok {
		return e, nil
	}
	e, err := m.build(p)
	if err != nil {
		return nil, fmt.Errorf("build engine for %s: %w", npcID, err)
	}
	m.engines[npcID] = e
	return e, nil
}

// Respond runs a turn for npcID.
func (m *Manager) Respond(ctx context.Context, npcID string, in Input) (*Result, error) {
	e, err := m.Get(npcID)
	if err != nil {
		return nil, err
	}
	return e.Respond(ctx, in)
}

// NPCs returns the ids of every persona the manager can serve, sorted.
func (m *Manager) NPCs() []string {
	return m.catalog.IDs()
}

// Loaded returns how many engines have been built.
func (m *Manager) Loaded() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.engines)
}
