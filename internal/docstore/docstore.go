// Package docstore holds the fixed handbook corpus and answers ranked
// lexical searches over it.
//
// Retrieval is keyword-overlap scoring, not vector similarity: the scorer
// in score.go is deterministic and explainable, so the same corpus and
// query always produce the same ranking. The corpus is append-only at
// runtime via AddPassages; loaded passages are never mutated.
package docstore

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ErrDuplicateID indicates an AddPassages call tried to reuse an existing
// passage ID.
var ErrDuplicateID = errors.New("duplicate passage id")

// Store is the in-process passage store.
//
// Store is safe for concurrent use. Reads take no exclusive lock; writes
// (AddPassages) are serialized.
type Store struct {
	mu       sync.RWMutex
	passages []Passage
	byID     map[string]int
	logger   *slog.Logger
}

// New creates an empty Store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		byID:   make(map[string]int),
		logger: logger,
	}
}

// AddPassages appends passages to the corpus. Existing entries are never
// mutated. Passages with an empty ID or content are rejected, as are IDs
// already present in the store.
func (s *Store) AddPassages(passages []Passage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before touching the corpus so a failed call
	// leaves the store unchanged.
	seen := make(map[string]struct{}, len(passages))
	for _, p := range passages {
		if p.ID == "" || p.Content == "" {
			return fmt.Errorf("passage %q: id and content are required", p.ID)
		}
		if _, dup := s.byID[p.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: %s (within batch)", ErrDuplicateID, p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	for _, p := range passages {
		s.byID[p.ID] = len(s.passages)
		s.passages = append(s.passages, p)
	}

	s.logger.Debug("added passages", "count", len(passages), "corpus_size", len(s.passages))
	return nil
}

// Get returns the passage with the given ID, or false if absent.
func (s *Store) Get(id string) (*Passage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &s.passages[idx], true
}

// Len reports the number of passages in the corpus.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.passages)
}

// Search returns up to topK sources ordered by descending relevance.
// Only passages scoring above zero are included; an empty result is not an
// error. Ties keep corpus insertion order (stable sort).
func (s *Store) Search(query string, topK int) []RetrievedSource {
	if topK <= 0 {
		return nil
	}

	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []RetrievedSource
	for i := range s.passages {
		p := &s.passages[i]
		sc := score(p, tokens)
		if sc <= 0 {
			continue
		}
		results = append(results, RetrievedSource{
			Passage: p,
			Score:   sc,
			Excerpt: excerpt(p.Content, tokens),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}
