// Package lore provides world-knowledge lookup for NPC stages.
package lore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultK is the number of snippets a world-knowledge lookup asks for.
const DefaultK = 3

// Separator joins snippets when they are presented as one block of text.
const Separator = "\n---\n"

// Searcher looks up text snippets relevant to a query.
// An empty result is valid and is not an error.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

// KeywordIndex scores each document by how many query words it contains
// and returns the best k, highest score first. Ties keep document order.
type KeywordIndex struct {
	docs  []string
	lower []string
}

// NewKeywordIndex indexes docs. Blank documents are dropped.
func NewKeywordIndex(docs ...string) *KeywordIndex {
	idx := &KeywordIndex{}
	for _, d := range docs {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		idx.docs = append(idx.docs, d)
		idx.lower = append(idx.lower, strings.ToLower(d))
	}
	return idx
}

// Len returns the number of indexed documents.
func (idx *KeywordIndex) Len() int {
	return len(idx.docs)
}

// Search implements Searcher.
func (idx *KeywordIndex) Search(ctx context.Context, query string, k int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 || k <= 0 {
		return nil, nil
	}

	type hit struct {
		doc   int
		score int
	}
	var hits []hit
	for i, doc := range idx.lower {
		score := 0
		for _, w := range words {
			if strings.Contains(doc, w) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, hit{doc: i, score: score})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })

	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = idx.docs[h.doc]
	}
	return out, nil
}

// Join formats snippets as one block, or returns "" for none.
func Join(snippets []string) string {
	return strings.Join(snippets, Separator)
}

// LoadFile reads lore from a file: YAML or JSON as a list of strings
// (.yaml, .yml, .json), otherwise one snippet per non-empty line.
func LoadFile(path string) (*KeywordIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lore file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		// JSON is a subset of YAML
		var docs []string
		if err := yaml.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("parse lore file %s: %w", path, err)
		}
		return NewKeywordIndex(docs...), nil
	default:
		return NewKeywordIndex(strings.Split(string(data), "\n")...), nil
	}
}
