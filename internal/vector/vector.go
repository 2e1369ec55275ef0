// Package vector is a thin client for a Pinecone-style vector query
// endpoint, used by the /api/vector/query convenience route.
//
// The client carries an optional fallback policy: when the upstream
// fails, the canned fallback result is returned instead of an error.
// That deliberately masks outages from callers (the response looks
// successful), so every substitution is logged at WARN and production
// deployments can inject a nil fallback to propagate errors instead.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrUpstream indicates the vector endpoint failed and no fallback was
// configured.
var ErrUpstream = errors.New("vector upstream failed")

// Match is one scored vector hit.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// QueryRequest mirrors the Pinecone query body.
type QueryRequest struct {
	Vector          []float64 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

// QueryResult is the normalized response.
type QueryResult struct {
	Matches []Match `json:"matches"`
	// Degraded is true when the fallback replaced a failed upstream call.
	Degraded bool `json:"degraded,omitempty"`
}

// Fallback is the demo-mode policy object holding the canned result.
type Fallback struct {
	Matches []Match
}

// DemoFallback returns the static demo result served when the upstream
// is unreachable.
func DemoFallback() *Fallback {
	return &Fallback{
		Matches: []Match{
			{
				ID:    "peeragogy-intro-1",
				Score: 0.92,
				Metadata: map[string]any{
					"title":   "Introduction to Peeragogy",
					"chapter": "Chapter 1",
					"author":  "Howard Rheingold",
				},
			},
		},
	}
}

// Client queries one vector index host.
type Client struct {
	host     string
	apiKey   string
	httpc    *http.Client
	fallback *Fallback
	logger   *slog.Logger
}

// New creates a client. host is the full index host (scheme included);
// fallback may be nil to propagate upstream errors.
func New(host, apiKey string, timeout time.Duration, fallback *Fallback, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		host:     strings.TrimRight(host, "/"),
		apiKey:   apiKey,
		httpc:    &http.Client{Timeout: timeout},
		fallback: fallback,
		logger:   logger,
	}
}

// Query runs one vector query. With a fallback configured the call never
// fails: any upstream problem yields the canned result with Degraded set.
func (c *Client) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	if req.TopK <= 0 {
		req.TopK = 3
	}

	res, err := c.query(ctx, req)
	if err == nil {
		return res, nil
	}

	// A canceled caller is not an upstream outage; nobody is waiting
	// for the degraded result, so let the cancellation propagate.
	if c.fallback == nil || ctx.Err() != nil {
		return nil, err
	}

	c.logger.Warn("vector upstream failed, serving fallback", "error", err)
	matches := make([]Match, len(c.fallback.Matches))
	copy(matches, c.fallback.Matches)
	if len(matches) > req.TopK {
		matches = matches[:req.TopK]
	}
	return &QueryResult{Matches: matches, Degraded: true}, nil
}

func (c *Client) query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	if c.host == "" {
		return nil, fmt.Errorf("%w: no host configured", ErrUpstream)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var out QueryResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: unexpected body", ErrUpstream)
	}
	return &out, nil
}
