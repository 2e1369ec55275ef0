// Package prompt assembles provider-ready requests from a user query,
// retrieved passages, a persona, and recent history.
//
// Build is a pure function of its inputs: no clock, no randomness, no
// hidden state. Identical inputs always produce identical output, which
// is what makes the assembly testable.
package prompt

import (
	"fmt"
	"strings"

	"github.com/peeragogy/handbook-ai/internal/docstore"
	"github.com/peeragogy/handbook-ai/internal/persona"
	"github.com/peeragogy/handbook-ai/internal/provider"
	"github.com/peeragogy/handbook-ai/internal/session"
)

const (
	// maxHistoryTurns caps how many trailing turns are included.
	maxHistoryTurns = 12

	// maxHistoryTokens caps the estimated token cost of included history
	// so long conversations cannot crowd out the context block.
	maxHistoryTokens = 2048

	// citeInstruction is appended under the context block.
	citeInstruction = "When you use a source, cite it by title and chapter."

	// noContextNotice replaces the context block when retrieval found
	// nothing. The model must admit the gap, not fabricate citations.
	noContextNotice = "No matching handbook context was found for this question. " +
		"Say so plainly and do not invent citations."
)

// Assembled is the provider-ready prompt.
type Assembled struct {
	Messages    []provider.Message
	Temperature float64
	MaxTokens   int
}

// Request converts the assembled prompt to a gateway request.
func (a Assembled) Request() provider.Request {
	return provider.Request{
		Messages:    a.Messages,
		Temperature: a.Temperature,
		MaxTokens:   a.MaxTokens,
	}
}

// Build renders the persona template with the retrieved context, then
// appends the trailing conversation history and the literal user query.
// When truncating history the most recent turns win.
func Build(query string, sources []docstore.RetrievedSource, p persona.Definition, history []session.Turn) Assembled {
	system := strings.ReplaceAll(p.PromptTemplate, persona.ContextPlaceholder, contextBlock(sources))
	if p.StyleHints != "" {
		system = strings.TrimRight(system, "\n") + "\n\nStyle: " + p.StyleHints
	}

	messages := []provider.Message{{Role: "system", Content: system}}
	for _, t := range trimHistory(history) {
		messages = append(messages, provider.Message{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, provider.Message{Role: "user", Content: query})

	return Assembled{
		Messages:    messages,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}
}

// contextBlock enumerates each source as
//
//	[title — chapter]
//	content
//	(author, p. pages)
func contextBlock(sources []docstore.RetrievedSource) string {
	if len(sources) == 0 {
		return noContextNotice
	}

	var sb strings.Builder
	for i, src := range sources {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		m := src.Passage.Meta
		fmt.Fprintf(&sb, "[%s — %s]\n%s\n(%s, p. %s)", m.Title, m.ChapterLabel, src.Passage.Content, m.Author, m.PageRange)
	}
	sb.WriteString("\n\n")
	sb.WriteString(citeInstruction)
	return sb.String()
}

// trimHistory keeps the most recent turns within both the turn and the
// estimated token budget, dropping the oldest first. Only user and
// assistant turns are forwarded to the model.
func trimHistory(history []session.Turn) []session.Turn {
	var convo []session.Turn
	for _, t := range history {
		if t.Role == session.RoleUser || t.Role == session.RoleAssistant {
			convo = append(convo, t)
		}
	}

	if len(convo) > maxHistoryTurns {
		convo = convo[len(convo)-maxHistoryTurns:]
	}

	for len(convo) > 0 && totalTokens(convo) > maxHistoryTokens {
		convo = convo[1:]
	}
	return convo
}

func totalTokens(turns []session.Turn) int {
	sum := 0
	for _, t := range turns {
		sum += estimateTokens(t.Content)
	}
	return sum
}

// estimateTokens approximates token count as runes/4, which is close
// enough for an inclusion budget (exact counts are the provider's job).
func estimateTokens(s string) int {
	if s == "" {
		return 0
	}
	n := len([]rune(s)) / 4
	if n == 0 {
		return 1
	}
	return n
}
