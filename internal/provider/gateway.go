package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/peeragogy/handbook-ai/internal/credential"
)

// Message is one turn in the gateway's uniform request shape.
type Message struct {
	Role    string `json:"role"` // system | user | assistant
	Content string `json:"content"`
}

// Request is the normalized request every client understands. Provider
// wire formats are derived from it inside the clients.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Usage is the normalized token accounting of a reply.
type Usage struct {
	InputTokens  int `json:"input"`
	OutputTokens int `json:"output"`
}

// Reply is the normalized upstream answer. Sources are always empty at
// this layer; retrieval happens before the gateway.
type Reply struct {
	Text    string `json:"text"`
	ModelID string `json:"model"`
	Usage   Usage  `json:"tokenUsage"`
}

// client is the per-provider variant. Exactly one outbound request per
// send call; no retries (resilience is a caller policy).
type client interface {
	send(ctx context.Context, def Definition, modelID string, req Request, secret string) (*Reply, error)
}

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	// Timeout bounds every upstream call. Default 60s.
	Timeout time.Duration
	// Referer is sent to OpenRouter as HTTP-Referer (app attribution).
	Referer string
	// PacePerSecond throttles outbound calls across all providers.
	// Zero disables pacing.
	PacePerSecond float64
}

// Gateway validates, paces, and dispatches sends to provider clients.
type Gateway struct {
	registry *Registry
	creds    credential.Store
	clients  map[string]client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewGateway wires a gateway over the registry and credential store.
func NewGateway(registry *Registry, creds credential.Store, cfg GatewayConfig, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	httpc := &http.Client{Timeout: timeout}

	var limiter *rate.Limiter
	if cfg.PacePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.PacePerSecond), 1)
	}

	return &Gateway{
		registry: registry,
		creds:    creds,
		limiter:  limiter,
		logger:   logger,
		clients: map[string]client{
			OpenAI:     &chatCompletionsClient{providerID: OpenAI, httpc: httpc},
			OpenRouter: &chatCompletionsClient{providerID: OpenRouter, httpc: httpc, referer: cfg.Referer},
			Gemini:     &geminiClient{httpc: httpc},
			Anthropic:  &anthropicClient{httpc: httpc},
			Flowise:    &flowiseClient{httpc: httpc},
		},
	}
}

// Registry exposes the catalog backing this gateway.
func (g *Gateway) Registry() *Registry { return g.registry }

// Configured reports whether a credential is present for the provider,
// or true for providers that need none.
func (g *Gateway) Configured(providerID string) bool {
	def, err := g.registry.Get(providerID)
	if err != nil {
		return false
	}
	if !def.RequiresKey {
		return true
	}
	_, ok := g.creds.Secret(providerID)
	return ok
}

// Send issues exactly one outbound request to the selected provider and
// returns the normalized reply.
//
// Failure modes: ErrProviderNotFound / ErrModelNotFound for catalog
// misses, *AuthError for a missing credential, *UpstreamError for
// non-success or timeout, *FormatError for unrecognized response shapes.
func (g *Gateway) Send(ctx context.Context, providerID, modelID string, req Request) (*Reply, error) {
	def, err := g.registry.ResolveModel(providerID, modelID)
	if err != nil {
		return nil, err
	}

	secret, haveSecret := g.creds.Secret(providerID)
	if def.RequiresKey && !haveSecret {
		return nil, &AuthError{ProviderID: providerID, Reason: "no API key configured"}
	}

	c, ok := g.clients[providerID]
	if !ok {
		return nil, fmt.Errorf("%w: no client for %s", ErrProviderNotFound, providerID)
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("pacing wait: %w", err)
		}
	}

	start := time.Now()
	reply, err := c.send(ctx, def, modelID, req, secret)
	if err != nil {
		// The key itself is never logged.
		g.logger.Warn("upstream call failed",
			"provider", providerID,
			"model", modelID,
			"duration", time.Since(start),
			"error", err,
		)
		return nil, err
	}

	g.logger.Debug("upstream call ok",
		"provider", providerID,
		"model", modelID,
		"duration", time.Since(start),
		"input_tokens", reply.Usage.InputTokens,
		"output_tokens", reply.Usage.OutputTokens,
	)
	return reply, nil
}
