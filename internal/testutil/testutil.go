// Package testutil holds helpers shared across package tests.
package testutil

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

// DiscardLogger returns a slog.Logger that discards all output.
//
// Note: log.Logger is a type alias for *slog.Logger, so this function
// and log.NewNop() return the same type. Prefer log.NewNop() when the
// internal/log package is already imported.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewChatUpstream starts a chat-completions-shaped stub upstream that
// always answers with the given text. The server is closed when the
// test ends. Point a provider registry base URL override at its URL.
func NewChatUpstream(t *testing.T, text string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "stub-model",
			"choices": [{"message": {"content": ` + jsonString(text) + `}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5}
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// jsonString quotes s as a JSON string literal.
func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
