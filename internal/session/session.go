// Package session keeps per-conversation chat history in process memory.
//
// A session is identified by an opaque string generated at first use and
// reused for the conversation's lifetime. History is append-only; the
// store stamps every turn with the server-received time under its own
// lock, so two concurrent requests for the same session can never append
// out of timestamp order. Nothing survives a restart by design.
package session

import (
	"time"

	"github.com/peeragogy/handbook-ai/internal/docstore"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// TokenUsage records the token spend of one assistant turn.
type TokenUsage struct {
	Input  int     `json:"input"`
	Output int     `json:"output"`
	Cost   float64 `json:"cost"`
}

// Turn is a single entry in a conversation.
type Turn struct {
	ID        string                     `json:"id"`
	Role      string                     `json:"role"`
	Content   string                     `json:"content"`
	PersonaID string                     `json:"personaId,omitempty"`
	Timestamp time.Time                  `json:"timestamp"`
	Sources   []docstore.RetrievedSource `json:"sources,omitempty"`
	Usage     *TokenUsage                `json:"tokenUsage,omitempty"`
}

// Info is a summary of one session.
type Info struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	TurnCount int       `json:"turnCount"`
}
