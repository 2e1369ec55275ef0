package session

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store manages all in-memory sessions.
//
// Store is safe for concurrent use. Append stamps turns with the
// server-received time while holding the lock, which serializes ordering
// for concurrent appends to the same session.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*state
	logger   *slog.Logger
	now      func() time.Time
}

type state struct {
	info  Info
	turns []Turn
}

// NewStore creates an empty session store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions: make(map[string]*state),
		logger:   logger,
		now:      time.Now,
	}
}

// GetOrCreate returns the session id to use for a request. An empty or
// unknown id starts a fresh session with a generated opaque id.
func (s *Store) GetOrCreate(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if _, ok := s.sessions[id]; ok {
			return id
		}
	}

	newID := uuid.NewString()
	now := s.now()
	s.sessions[newID] = &state{info: Info{ID: newID, CreatedAt: now, UpdatedAt: now}}
	s.logger.Debug("created session", "id", newID)
	return newID
}

// Append adds turns to a session's history. Each turn gets a generated id
// and the server-received timestamp; client-supplied timestamps are
// ignored so interleaved requests cannot reorder history.
func (s *Store) Append(sessionID string, turns ...Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		now := s.now()
		st = &state{info: Info{ID: sessionID, CreatedAt: now, UpdatedAt: now}}
		s.sessions[sessionID] = st
	}

	now := s.now()
	for _, t := range turns {
		t.ID = uuid.NewString()
		t.Timestamp = now
		st.turns = append(st.turns, t)
	}
	st.info.UpdatedAt = now
	st.info.TurnCount = len(st.turns)
}

// History returns up to limit most recent turns in chronological order.
// limit <= 0 returns the full history. Unknown sessions yield an empty
// slice, not an error.
func (s *Store) History(sessionID string, limit int) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}

	turns := st.turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Reset clears a session's history. Resetting an unknown or already-empty
// session is a no-op, so the operation is idempotent.
func (s *Store) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	st.turns = nil
	st.info.TurnCount = 0
	st.info.UpdatedAt = s.now()
	s.logger.Debug("reset session", "id", sessionID)
}

// List returns summaries of all sessions, most recently updated first.
func (s *Store) List() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Info, 0, len(s.sessions))
	for _, st := range s.sessions {
		out = append(out, st.info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}
