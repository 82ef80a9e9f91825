// Package relation keeps each NPC's ledger of how it feels about the
// characters it talks to.
package relation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MaxHistory caps the interactions kept per relationship.
const MaxHistory = 50

// Interaction is one entry in a relationship's history.
type Interaction struct {
	Event     string             `json:"event"`
	Impact    map[string]float64 `json:"impact,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// Relationship is an NPC's standing with one character. Every dimension
// lies in [0,1].
type Relationship struct {
	Character      string        `json:"character"`
	Trust          float64       `json:"trust"`
	Fear           float64       `json:"fear"`
	Respect        float64       `json:"respect"`
	Attachment     float64       `json:"attachment"`
	Hostility      float64       `json:"hostility"`
	Dependence     float64       `json:"dependence"`
	BetrayalMemory string        `json:"betrayal_memory,omitempty"`
	History        []Interaction `json:"history"`
}

// New returns the starting relationship with a stranger: neutral trust
// and respect, everything else zero.
func New(character string) Relationship {
	return Relationship{
		Character: character,
		Trust:     0.5,
		Respect:   0.5,
		History:   []Interaction{},
	}
}

// Update carries the changes from one interaction. Nil fields are left alone.
type Update struct {
	Trust          *float64           `json:"trust,omitempty"`
	Fear           *float64           `json:"fear,omitempty"`
	Respect        *float64           `json:"respect,omitempty"`
	Attachment     *float64           `json:"attachment,omitempty"`
	Hostility      *float64           `json:"hostility,omitempty"`
	Dependence     *float64           `json:"dependence,omitempty"`
	BetrayalMemory *string            `json:"betrayal_memory,omitempty"`
	Event          string             `json:"event,omitempty"`
	Impact         map[string]float64 `json:"impact,omitempty"`
}

// Apply clamps and applies u, recording the interaction when it has both
// an event and an impact.
func (r *Relationship) Apply(u Update, now time.Time) {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = clamp(*v)
		}
	}
	set(&r.Trust, u.Trust)
	set(&r.Fear, u.Fear)
	set(&r.Respect, u.Respect)
	set(&r.Attachment, u.Attachment)
	set(&r.Hostility, u.Hostility)
	set(&r.Dependence, u.Dependence)
	if u.BetrayalMemory != nil {
		r.BetrayalMemory = *u.BetrayalMemory
	}

	if u.Event != "" && len(u.Impact) > 0 {
		impact := make(map[string]float64, len(u.Impact))
		for k, v := range u.Impact {
			impact[k] = v
		}
		r.History = append(r.History, Interaction{Event: u.Event, Impact: impact, Timestamp: now.UTC()})
		if len(r.History) > MaxHistory {
			r.History = append([]Interaction(nil), r.History[len(r.History)-MaxHistory:]...)
		}
	}
}

// Clone returns a deep copy.
func (r Relationship) Clone() Relationship {
	out := r
	out.History = make([]Interaction, len(r.History))
	for i, in := range r.History {
		cp := in
		if in.Impact != nil {
			cp.Impact = make(map[string]float64, len(in.Impact))
			for k, v := range in.Impact {
				cp.Impact[k] = v
			}
		}
		out.History[i] = cp
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Store persists relationship ledgers per NPC.
type Store interface {
	// Get returns the relationship, or New(character) if there is none.
	Get(ctx context.Context, npcID, character string) (Relationship, error)

	// Update applies u and returns the result.
	Update(ctx context.Context, npcID, character string, u Update) (Relationship, error)

	// All returns every relationship of an NPC, sorted by character.
	All(ctx context.Context, npcID string) ([]Relationship, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	ledger map[string]map[string]Relationship
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ledger: make(map[string]map[string]Relationship),
		now:    time.Now,
	}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, npcID, character string) (Relationship, error) {
	if err := ctx.Err(); err != nil {
		return Relationship{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rel, ok := s.ledger[npcID][character]; ok {
		return rel.Clone(), nil
	}
	return New(character), nil
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, npcID, character string, u Update) (Relationship, error) {
	if err := ctx.Err(); err != nil {
		return Relationship{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.ledger[npcID]
	if book == nil {
		book = make(map[string]Relationship)
		s.ledger[npcID] = book
	}
	rel, ok := book[character]
	if !ok {
		rel = New(character)
	}
	rel.Apply(u, s.now())
	book[character] = rel
	return rel.Clone(), nil
}

// All implements Store.
func (s *MemoryStore) All(ctx context.Context, npcID string) ([]Relationship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.ledger[npcID]), nil
}

func sorted(book map[string]Relationship) []Relationship {
	out := make([]Relationship, 0, len(book))
	for _, rel := range book {
		out = append(out, rel.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Character < out[j].Character })
	return out
}
