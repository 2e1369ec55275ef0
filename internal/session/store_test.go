package session

import (
	"testing"
	"time"

	"github.com/peeragogy/handbook-ai/internal/log"
)

func TestGetOrCreate_NewAndExisting(t *testing.T) {
	t.Parallel()

	s := NewStore(log.NewNop())

	id := s.GetOrCreate("")
	if id == "" {
		t.Fatal("GetOrCreate() returned empty id")
	}

	// Same id comes back when the session exists.
	if got := s.GetOrCreate(id); got != id {
		t.Errorf("GetOrCreate(%q) = %q, want same id", id, got)
	}

	// Unknown ids are not resurrected; a fresh session is created.
	if got := s.GetOrCreate("unknown-session"); got == "unknown-session" {
		t.Error("GetOrCreate() accepted an unknown id")
	}
}

func TestAppend_ServerTimeOrdering(t *testing.T) {
	t.Parallel()

	s := NewStore(log.NewNop())
	fake := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time {
		fake = fake.Add(time.Second)
		return fake
	}

	id := s.GetOrCreate("")

	// Client-supplied timestamps must be ignored in favor of server time.
	past := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Append(id, Turn{Role: RoleUser, Content: "first", Timestamp: past})
	s.Append(id, Turn{Role: RoleAssistant, Content: "second", Timestamp: past})

	turns := s.History(id, 0)
	if len(turns) != 2 {
		t.Fatalf("History() = %d turns, want 2", len(turns))
	}
	if turns[0].Timestamp.Year() != 2026 {
		t.Errorf("client timestamp was kept: %v", turns[0].Timestamp)
	}
	if !turns[1].Timestamp.After(turns[0].Timestamp) {
		t.Errorf("turns out of order: %v then %v", turns[0].Timestamp, turns[1].Timestamp)
	}
	if turns[0].ID == "" || turns[0].ID == turns[1].ID {
		t.Error("turn ids not assigned uniquely")
	}
}

func TestHistory_Limit(t *testing.T) {
	t.Parallel()

	s := NewStore(log.NewNop())
	id := s.GetOrCreate("")

	for i := 0; i < 5; i++ {
		s.Append(id, Turn{Role: RoleUser, Content: string(rune('a' + i))})
	}

	turns := s.History(id, 2)
	if len(turns) != 2 {
		t.Fatalf("History(limit=2) = %d turns, want 2", len(turns))
	}
	// Most recent turns are kept.
	if turns[0].Content != "d" || turns[1].Content != "e" {
		t.Errorf("History() kept %q,%q, want d,e", turns[0].Content, turns[1].Content)
	}
}

func TestHistory_UnknownSession(t *testing.T) {
	t.Parallel()

	s := NewStore(log.NewNop())
	if got := s.History("missing", 10); len(got) != 0 {
		t.Errorf("History() on unknown session = %d turns, want 0", len(got))
	}
}

func TestReset_Idempotent(t *testing.T) {
	t.Parallel()

	s := NewStore(log.NewNop())
	id := s.GetOrCreate("")
	s.Append(id, Turn{Role: RoleUser, Content: "hello"})

	s.Reset(id)
	first := s.History(id, 0)

	s.Reset(id)
	second := s.History(id, 0)

	if len(first) != 0 || len(second) != 0 {
		t.Errorf("Reset() not idempotent: %d then %d turns", len(first), len(second))
	}

	// Resetting a session that never existed must not panic.
	s.Reset("missing")
}

func TestList_MostRecentFirst(t *testing.T) {
	t.Parallel()

	s := NewStore(log.NewNop())
	fake := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		fake = fake.Add(time.Minute)
		return fake
	}

	a := s.GetOrCreate("")
	b := s.GetOrCreate("")
	s.Append(a, Turn{Role: RoleUser, Content: "bump"})

	infos := s.List()
	if len(infos) != 2 {
		t.Fatalf("List() = %d sessions, want 2", len(infos))
	}
	if infos[0].ID != a {
		t.Errorf("List()[0] = %q, want most recently updated %q", infos[0].ID, a)
	}
	if infos[0].TurnCount != 1 {
		t.Errorf("TurnCount = %d, want 1", infos[0].TurnCount)
	}
	_ = b
}
