package relation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// FileStore keeps one JSON file per NPC, <dir>/<npc>_relationships.json.
// A write whose content digest matches the last one seen is skipped.
type FileStore struct {
	dir     string
	mu      sync.Mutex
	digests map[string][32]byte
	now     func() time.Time
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create relations dir: %w", err)
	}
	return &FileStore{
		dir:     dir,
		digests: make(map[string][32]byte),
		now:     time.Now,
	}, nil
}

// Path returns the ledger file for an NPC.
func (s *FileStore) Path(npcID string) string {
	return filepath.Join(s.dir, npcID+"_relationships.json")
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, npcID, character string) (Relationship, error) {
	if err := ctx.Err(); err != nil {
		return Relationship{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	book, err := s.read(npcID)
	if err != nil {
		return Relationship{}, err
	}
	if rel, ok := book[character]; ok {
		return rel, nil
	}
	return New(character), nil
}

// Update implements Store.
func (s *FileStore) Update(ctx context.Context, npcID, character string, u Update) (Relationship, error) {
	if err := ctx.Err(); err != nil {
		return Relationship{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	book, err := s.read(npcID)
	if err != nil {
		return Relationship{}, err
	}
	rel, ok := book[character]
	if !ok {
		rel = New(character)
	}
	rel.Apply(u, s.now())
	book[character] = rel

	if err := s.write(npcID, book); err != nil {
		return Relationship{}, err
	}
	return rel.Clone(), nil
}

// All implements Store.
func (s *FileStore) All(ctx context.Context, npcID string) ([]Relationship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	book, err := s.read(npcID)
	if err != nil {
		return nil, err
	}
	return sorted(book), nil
}

// read loads an NPC's ledger. A missing file is an empty ledger; a corrupt
// one is an error so it is never silently overwritten.
func (s *FileStore) read(npcID string) (map[string]Relationship, error) {
	data, err := os.ReadFile(s.Path(npcID))
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]Relationship), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read relations for %s: %w", npcID, err)
	}

	book := make(map[string]Relationship)
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("decode relations for %s: %w", npcID, err)
	}
	s.digests[npcID] = blake3.Sum256(data)
	return book, nil
}

func (s *FileStore) write(npcID string, book map[string]Relationship) error {
	data, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return fmt.Errorf("encode relations for %s: %w", npcID, err)
	}

	digest := blake3.Sum256(data)
	if prev, ok := s.digests[npcID]; ok && prev == digest {
		return nil
	}

	tmp := s.Path(npcID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write relations for %s: %w", npcID, err)
	}
	if err := os.Rename(tmp, s.Path(npcID)); err != nil {
		return fmt.Errorf("replace relations for %s: %w", npcID, err)
	}
	s.digests[npcID] = digest
	return nil
}
