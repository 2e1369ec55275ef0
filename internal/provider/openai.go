package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// chatCompletionsClient speaks the OpenAI chat-completions dialect, which
// OpenRouter shares. OpenRouter additionally wants HTTP-Referer and
// X-Title headers for app attribution.
type chatCompletionsClient struct {
	providerID string
	httpc      *http.Client
	referer    string
}

type ccMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ccRequest struct {
	Model       string      `json:"model"`
	Messages    []ccMessage `json:"messages"`
	Temperature float64     `json:"temperature"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
}

type ccResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *chatCompletionsClient) send(ctx context.Context, def Definition, modelID string, req Request, secret string) (*Reply, error) {
	payload := ccRequest{
		Model:       modelID,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		payload.Messages = append(payload.Messages, ccMessage(m))
	}

	headers := map[string]string{
		"Authorization": "Bearer " + secret,
	}
	if c.providerID == OpenRouter {
		if c.referer != "" {
			headers["HTTP-Referer"] = c.referer
		}
		headers["X-Title"] = "handbook-ai"
	}

	raw, err := postJSON(ctx, c.httpc, c.providerID, strings.TrimRight(def.BaseURL, "/")+"/chat/completions", headers, payload)
	if err != nil {
		return nil, err
	}

	var resp ccResponse
	if err := json.Unmarshal(raw, &resp); err != nil || len(resp.Choices) == 0 {
		return nil, &FormatError{
			ProviderID:  c.providerID,
			ContentType: "application/json",
			RawBody:     truncate(string(raw), maxErrorBody),
		}
	}

	model := resp.Model
	if model == "" {
		model = modelID
	}
	return &Reply{
		Text:    resp.Choices[0].Message.Content,
		ModelID: model,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
