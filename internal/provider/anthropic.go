package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

const anthropicVersion = "2023-06-01"

// anthropicClient speaks the Messages API. System text is a top-level
// field, auth uses x-api-key, and max_tokens is mandatory.
type anthropicClient struct {
	httpc *http.Client
}

type anthropicRequest struct {
	Model       string      `json:"model"`
	System      string      `json:"system,omitempty"`
	Messages    []ccMessage `json:"messages"`
	Temperature float64     `json:"temperature"`
	MaxTokens   int         `json:"max_tokens"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *anthropicClient) send(ctx context.Context, def Definition, modelID string, req Request, secret string) (*Reply, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	payload := anthropicRequest{
		Model:       modelID,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
	}
	for _, m := range req.Messages {
		if m.Role == "system" {
			payload.System = m.Content
			continue
		}
		payload.Messages = append(payload.Messages, ccMessage(m))
	}

	headers := map[string]string{
		"x-api-key":         secret,
		"anthropic-version": anthropicVersion,
	}

	raw, err := postJSON(ctx, c.httpc, Anthropic, strings.TrimRight(def.BaseURL, "/")+"/messages", headers, payload)
	if err != nil {
		return nil, err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(raw, &resp); err != nil || len(resp.Content) == 0 {
		return nil, &FormatError{
			ProviderID:  Anthropic,
			ContentType: "application/json",
			RawBody:     truncate(string(raw), maxErrorBody),
		}
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	model := resp.Model
	if model == "" {
		model = modelID
	}
	return &Reply{
		Text:    text.String(),
		ModelID: model,
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}
