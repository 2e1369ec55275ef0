package prompt

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/peeragogy/handbook-ai/internal/docstore"
	"github.com/peeragogy/handbook-ai/internal/persona"
	"github.com/peeragogy/handbook-ai/internal/session"
)

func testPersona() persona.Definition {
	return persona.Definition{
		ID:             "mentor",
		DisplayName:    "Mentor",
		PromptTemplate: "You are a mentor.\n\n{{context}}\n\nAnswer the question.",
		Temperature:    0.4,
		MaxTokens:      1024,
	}
}

func testSources() []docstore.RetrievedSource {
	return []docstore.RetrievedSource{
		{
			Passage: &docstore.Passage{
				ID:      "peeragogy-intro-1",
				Content: "Peeragogy is peer learning and peer production.",
				Meta: docstore.Metadata{
					Title:        "Introduction to Peeragogy",
					ChapterLabel: "Chapter 1",
					Author:       "Howard Rheingold",
					PageRange:    "1-4",
				},
			},
			Score: 0.9,
		},
	}
}

func TestBuild_RendersContextBlock(t *testing.T) {
	t.Parallel()

	a := Build("what is peeragogy?", testSources(), testPersona(), nil)

	if len(a.Messages) != 2 {
		t.Fatalf("got %d messages, want system + user", len(a.Messages))
	}

	system := a.Messages[0]
	if system.Role != "system" {
		t.Errorf("first message role = %q", system.Role)
	}
	if strings.Contains(system.Content, persona.ContextPlaceholder) {
		t.Error("placeholder survived rendering")
	}
	for _, want := range []string{
		"[Introduction to Peeragogy — Chapter 1]",
		"Peeragogy is peer learning and peer production.",
		"(Howard Rheingold, p. 1-4)",
		"cite it by title and chapter",
	} {
		if !strings.Contains(system.Content, want) {
			t.Errorf("system prompt is missing %q:\n%s", want, system.Content)
		}
	}

	user := a.Messages[1]
	if user.Role != "user" || user.Content != "what is peeragogy?" {
		t.Errorf("last message = %+v, want literal query", user)
	}
}

func TestBuild_NoSourcesStatesTheGap(t *testing.T) {
	t.Parallel()

	a := Build("what is peeragogy?", nil, testPersona(), nil)

	system := a.Messages[0].Content
	if !strings.Contains(system, "No matching handbook context was found") {
		t.Errorf("system prompt should state that no context was found:\n%s", system)
	}
	if strings.Contains(system, "cite it by title and chapter") {
		t.Error("citation instruction should be absent without sources")
	}
}

func TestBuild_CarriesGenerationParameters(t *testing.T) {
	t.Parallel()

	p := testPersona()
	p.Temperature = 0.2
	p.MaxTokens = 1536

	a := Build("q", nil, p, nil)

	if a.Temperature != 0.2 || a.MaxTokens != 1536 {
		t.Errorf("Assembled = %+v, want persona parameters", a)
	}

	req := a.Request()
	if req.Temperature != 0.2 || req.MaxTokens != 1536 || len(req.Messages) != len(a.Messages) {
		t.Errorf("Request() = %+v", req)
	}
}

func TestBuild_StyleHintsAppended(t *testing.T) {
	t.Parallel()

	p := testPersona()
	p.StyleHints = "short paragraphs"

	a := Build("q", nil, p, nil)

	if !strings.Contains(a.Messages[0].Content, "Style: short paragraphs") {
		t.Errorf("style hints missing from system prompt:\n%s", a.Messages[0].Content)
	}
}

func TestBuild_HistoryKeepsMostRecentTurns(t *testing.T) {
	t.Parallel()

	var history []session.Turn
	for i := 0; i < 20; i++ {
		role := session.RoleUser
		if i%2 == 1 {
			role = session.RoleAssistant
		}
		history = append(history, session.Turn{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}

	a := Build("q", nil, testPersona(), history)

	// system + 12 history + user query
	if len(a.Messages) != 14 {
		t.Fatalf("got %d messages, want 14", len(a.Messages))
	}
	if a.Messages[1].Content != "turn 8" {
		t.Errorf("oldest kept turn = %q, want turn 8", a.Messages[1].Content)
	}
	if a.Messages[12].Content != "turn 19" {
		t.Errorf("newest kept turn = %q, want turn 19", a.Messages[12].Content)
	}
}

func TestBuild_HistoryDropsSystemTurns(t *testing.T) {
	t.Parallel()

	history := []session.Turn{
		{Role: session.RoleSystem, Content: "internal note"},
		{Role: session.RoleUser, Content: "hello"},
	}

	a := Build("q", nil, testPersona(), history)

	for _, m := range a.Messages[1 : len(a.Messages)-1] {
		if m.Content == "internal note" {
			t.Error("system history turn forwarded to the model")
		}
	}
}

func TestBuild_HistoryRespectsTokenBudget(t *testing.T) {
	t.Parallel()

	big := strings.Repeat("peer learning ", 400) // well over the budget per turn
	history := []session.Turn{
		{Role: session.RoleUser, Content: big},
		{Role: session.RoleAssistant, Content: big},
		{Role: session.RoleUser, Content: "recent short question"},
	}

	a := Build("q", nil, testPersona(), history)

	var kept []string
	for _, m := range a.Messages[1 : len(a.Messages)-1] {
		kept = append(kept, m.Content)
	}
	if len(kept) == 3 {
		t.Fatal("oversized history was not truncated")
	}
	if kept[len(kept)-1] != "recent short question" {
		t.Errorf("most recent turn was dropped, kept %d turns", len(kept))
	}
}

func TestBuild_Deterministic(t *testing.T) {
	t.Parallel()

	history := []session.Turn{{Role: session.RoleUser, Content: "hi"}}

	a := Build("q", testSources(), testPersona(), history)
	b := Build("q", testSources(), testPersona(), history)

	if !reflect.DeepEqual(a, b) {
		t.Error("identical inputs produced different prompts")
	}
}
