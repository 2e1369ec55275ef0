package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// maxErrorBody bounds how much of a raw upstream body is carried inside
// an error message.
const maxErrorBody = 512

// postJSON issues one POST with a JSON payload and returns the decoded-
// ready body of a successful structured response.
//
// Every failure is already classified: transport errors become
// *UpstreamError (timeout or network), non-2xx statuses become
// *UpstreamError with the parsed upstream message, and successful
// responses without a JSON content-type become *FormatError.
func postJSON(ctx context.Context, httpc *http.Client, providerID, rawURL string, headers map[string]string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: encoding request: %w", providerID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", providerID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpc.Do(req)
	if err != nil {
		return nil, classifyTransportError(providerID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{ProviderID: providerID, Kind: KindNetwork, Message: "reading response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{
			ProviderID: providerID,
			Kind:       KindStatus,
			Status:     resp.StatusCode,
			Message:    upstreamMessage(raw),
		}
	}

	if !isJSONContentType(resp.Header.Get("Content-Type")) {
		return nil, &FormatError{
			ProviderID:  providerID,
			ContentType: resp.Header.Get("Content-Type"),
			RawBody:     truncate(string(raw), maxErrorBody),
		}
	}

	return raw, nil
}

func classifyTransportError(providerID string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamError{ProviderID: providerID, Kind: KindTimeout}
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return &UpstreamError{ProviderID: providerID, Kind: KindTimeout}
	}
	return &UpstreamError{ProviderID: providerID, Kind: KindNetwork, Message: err.Error()}
}

// upstreamMessage pulls a human-readable message out of an error body.
// Providers disagree on the envelope; if nothing parses, the raw body is
// surfaced (truncated) so no diagnostic is lost.
func upstreamMessage(raw []byte) string {
	var withObject struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &withObject); err == nil && withObject.Error.Message != "" {
		return withObject.Error.Message
	}

	var withString struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &withString); err == nil && withString.Error != "" {
		return withString.Error
	}

	var withMessage struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &withMessage); err == nil && withMessage.Message != "" {
		return withMessage.Message
	}

	return truncate(strings.TrimSpace(string(raw)), maxErrorBody)
}

func isJSONContentType(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
