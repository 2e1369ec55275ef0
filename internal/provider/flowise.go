package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// flowiseClient speaks the single-field "question" dialect of a Flowise
// prediction endpoint. The flow behind the endpoint owns model choice and
// generation parameters, so the request collapses to one string.
type flowiseClient struct {
	httpc *http.Client
}

type flowiseRequest struct {
	Question string `json:"question"`
}

type flowiseResponse struct {
	Text   string `json:"text"`
	Answer string `json:"answer"`
}

func (c *flowiseClient) send(ctx context.Context, def Definition, modelID string, req Request, secret string) (*Reply, error) {
	payload := flowiseRequest{Question: flattenToQuestion(req.Messages)}

	headers := map[string]string{}
	if secret != "" {
		headers["Authorization"] = "Bearer " + secret
	}

	raw, err := postJSON(ctx, c.httpc, Flowise, def.BaseURL, headers, payload)
	if err != nil {
		return nil, err
	}

	var resp flowiseResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &FormatError{
			ProviderID:  Flowise,
			ContentType: "application/json",
			RawBody:     truncate(string(raw), maxErrorBody),
		}
	}

	text := resp.Text
	if text == "" {
		text = resp.Answer
	}
	if text == "" {
		return nil, &FormatError{
			ProviderID:  Flowise,
			ContentType: "application/json",
			RawBody:     truncate(string(raw), maxErrorBody),
		}
	}

	return &Reply{Text: text, ModelID: modelID}, nil
}

// flattenToQuestion collapses the uniform message list into one question
// string: system text first, then the most recent user turn.
func flattenToQuestion(messages []Message) string {
	var system, user string
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "user":
			user = m.Content
		}
	}

	if system == "" {
		return user
	}
	return strings.TrimSpace(system + "\n\n" + user)
}
