// Package orchestrator coordinates one answer: validate, check the
// plan, retrieve context, assemble the prompt, call the gateway, and
// record the exchange.
//
// Rate limiting and authentication sit in front of the orchestrator at
// the HTTP boundary; by the time Answer runs, the request has already
// paid its quota.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/peeragogy/handbook-ai/internal/command"
	"github.com/peeragogy/handbook-ai/internal/credential"
	"github.com/peeragogy/handbook-ai/internal/docstore"
	"github.com/peeragogy/handbook-ai/internal/persona"
	"github.com/peeragogy/handbook-ai/internal/plan"
	"github.com/peeragogy/handbook-ai/internal/prompt"
	"github.com/peeragogy/handbook-ai/internal/provider"
	"github.com/peeragogy/handbook-ai/internal/session"
)

const (
	// maxQueryRunes bounds user input length.
	maxQueryRunes = 4000

	// defaultTopK passages are retrieved per query.
	defaultTopK = 4

	// historyLimit caps how much history is fetched for assembly; the
	// assembler trims further by token budget.
	historyLimit = 24
)

// ValidationError reports malformed or missing input. User-correctable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Gateway is the outbound dependency Answer calls exactly once per
// successful request. *provider.Gateway satisfies it; tests stub it.
type Gateway interface {
	Send(ctx context.Context, providerID, modelID string, req provider.Request) (*provider.Reply, error)
}

// Record is one analytics event per answered query.
type Record struct {
	QueryText    string
	PersonaID    string
	ResponseTime time.Duration
	TokensUsed   int
}

// Recorder receives analytics records. Recording must never fail the
// request it describes.
type Recorder interface {
	Record(ctx context.Context, r Record)
}

// LogRecorder writes analytics records to the structured log. It is the
// default collaborator until a real collector is wired in.
type LogRecorder struct {
	Logger *slog.Logger
}

func (lr *LogRecorder) Record(_ context.Context, r Record) {
	lr.Logger.Info("analytics",
		"persona", r.PersonaID,
		"query_runes", utf8.RuneCountInString(r.QueryText),
		"response_ms", r.ResponseTime.Milliseconds(),
		"tokens_used", r.TokensUsed,
	)
}

// Request is one question from a client.
type Request struct {
	SessionID  string
	Query      string
	PersonaID  string // empty selects the default persona
	ProviderID string // empty falls back to the stored selection
	ModelID    string
	Tier       string // empty falls back to the demo tier

	// QuotaRemaining is supplied by the rate-limit gate and echoed back
	// to the client in the result.
	QuotaRemaining int
}

// Result is a structured answer.
type Result struct {
	SessionID      string                     `json:"sessionId"`
	Text           string                     `json:"text"`
	PersonaID      string                     `json:"personaId"`
	Sources        []docstore.RetrievedSource `json:"sources"`
	Usage          session.TokenUsage         `json:"tokenUsage"`
	QuotaRemaining int                        `json:"quotaRemaining"`
	// Command is true when the input was a slash command answered
	// locally; no model was involved and Sources/Usage are empty.
	Command bool `json:"command,omitempty"`
}

// Orchestrator wires the answer pipeline.
type Orchestrator struct {
	docs     *docstore.Store
	personas *persona.Registry
	gateway  Gateway
	sessions *session.Store
	creds    credential.Store
	commands *command.Interpreter
	recorder Recorder
	logger   *slog.Logger
	topK     int
}

// Options tune optional collaborators.
type Options struct {
	// Recorder receives per-query analytics. Nil installs LogRecorder.
	Recorder Recorder
	// TopK passages retrieved per query. Zero uses the default.
	TopK int
}

// New builds an orchestrator.
func New(docs *docstore.Store, personas *persona.Registry, gateway Gateway, sessions *session.Store, creds credential.Store, commands *command.Interpreter, logger *slog.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = &LogRecorder{Logger: logger}
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Orchestrator{
		docs:     docs,
		personas: personas,
		gateway:  gateway,
		sessions: sessions,
		creds:    creds,
		commands: commands,
		recorder: recorder,
		logger:   logger,
		topK:     topK,
	}
}

// Answer runs the full pipeline for one request.
//
// Failure modes: *ValidationError for bad input, persona.ErrPersonaNotFound
// for an unknown persona, *plan.NotAllowedError when the tier does not
// include the persona (detected before any retrieval or gateway work),
// and the gateway's own error taxonomy for upstream problems.
func (o *Orchestrator) Answer(ctx context.Context, req Request) (*Result, error) {
	query := strings.TrimSpace(req.Query)
	if err := validateQuery(query); err != nil {
		return nil, err
	}

	sessionID := o.sessions.GetOrCreate(req.SessionID)

	if command.IsCommand(query) {
		return o.runCommand(ctx, query, sessionID, req.QuotaRemaining)
	}

	personaID := req.PersonaID
	if personaID == "" {
		personaID = persona.DefaultID
	}
	p, err := o.personas.Get(personaID)
	if err != nil {
		return nil, err
	}

	tier := req.Tier
	if tier == "" {
		tier = plan.TierDemo
	}
	ent, err := plan.Resolve(tier)
	if err != nil {
		return nil, err
	}
	if err := ent.CheckPersona(personaID); err != nil {
		return nil, err
	}

	providerID, modelID, err := o.resolveTarget(req)
	if err != nil {
		return nil, err
	}

	sources := o.docs.Search(query, o.topK)
	history := o.sessions.History(sessionID, historyLimit)
	assembled := prompt.Build(query, sources, p, history)

	start := time.Now()
	reply, err := o.gateway.Send(ctx, providerID, modelID, assembled.Request())
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	usage := session.TokenUsage{
		Input:  reply.Usage.InputTokens,
		Output: reply.Usage.OutputTokens,
	}
	o.sessions.Append(sessionID,
		session.Turn{Role: session.RoleUser, Content: query, PersonaID: personaID},
		session.Turn{
			Role:      session.RoleAssistant,
			Content:   reply.Text,
			PersonaID: personaID,
			Sources:   sources,
			Usage:     &usage,
		},
	)

	o.recorder.Record(ctx, Record{
		QueryText:    query,
		PersonaID:    personaID,
		ResponseTime: elapsed,
		TokensUsed:   usage.Input + usage.Output,
	})

	return &Result{
		SessionID:      sessionID,
		Text:           reply.Text,
		PersonaID:      personaID,
		Sources:        sources,
		Usage:          usage,
		QuotaRemaining: req.QuotaRemaining,
	}, nil
}

// Reset clears a session's history. Idempotent.
func (o *Orchestrator) Reset(sessionID string) {
	o.sessions.Reset(sessionID)
}

func (o *Orchestrator) runCommand(ctx context.Context, query, sessionID string, remaining int) (*Result, error) {
	cmd, err := command.Parse(query)
	if err != nil {
		return nil, err
	}
	text, err := o.commands.Execute(ctx, cmd, sessionID)
	if err != nil {
		return nil, err
	}
	return &Result{
		SessionID:      sessionID,
		Text:           text,
		QuotaRemaining: remaining,
		Command:        true,
	}, nil
}

// resolveTarget picks the provider and model for a request, falling back
// to the stored selection.
func (o *Orchestrator) resolveTarget(req Request) (string, string, error) {
	providerID, modelID := req.ProviderID, req.ModelID
	if providerID == "" {
		providerID, modelID = o.creds.Selection()
	} else if modelID == "" {
		if selProvider, selModel := o.creds.Selection(); selProvider == providerID {
			modelID = selModel
		}
	}
	if providerID == "" {
		return "", "", &ValidationError{
			Field:  "provider",
			Reason: "no provider selected; use /set_api_key or pass a provider id",
		}
	}
	return providerID, modelID, nil
}

func validateQuery(query string) error {
	if query == "" {
		return &ValidationError{Field: "query", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(query) > maxQueryRunes {
		return &ValidationError{
			Field:  "query",
			Reason: fmt.Sprintf("longer than %d characters", maxQueryRunes),
		}
	}
	return nil
}
