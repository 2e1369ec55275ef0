package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/peeragogy/handbook-ai/internal/credential"
	"github.com/peeragogy/handbook-ai/internal/log"
)

func newTestGateway(t *testing.T, providerID, baseURL string, secret string) *Gateway {
	t.Helper()

	reg := NewBuiltinRegistry(map[string]string{providerID: baseURL})
	creds := credential.NewMemory()
	if secret != "" {
		if err := creds.SetSecret(providerID, secret); err != nil {
			t.Fatalf("SetSecret() error: %v", err)
		}
	}
	return NewGateway(reg, creds, GatewayConfig{Timeout: 2 * time.Second}, log.NewNop())
}

func chatRequest() Request {
	return Request{
		Messages: []Message{
			{Role: "system", Content: "be helpful"},
			{Role: "user", Content: "what is peeragogy?"},
		},
		Temperature: 0.4,
		MaxTokens:   256,
	}
}

func TestSend_OpenAI_Normalizes(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotBody ccRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4o-2024",
			"choices": [{"message": {"content": "Peer learning."}}],
			"usage": {"prompt_tokens": 42, "completion_tokens": 7}
		}`))
	}))
	defer srv.Close()

	g := newTestGateway(t, OpenAI, srv.URL, "sk-test123")

	reply, err := g.Send(context.Background(), OpenAI, "gpt-4o", chatRequest())
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if gotAuth != "Bearer sk-test123" {
		t.Errorf("Authorization = %q, want bearer key", gotAuth)
	}
	if gotBody.Model != "gpt-4o" || len(gotBody.Messages) != 2 {
		t.Errorf("unexpected wire payload: %+v", gotBody)
	}
	if reply.Text != "Peer learning." {
		t.Errorf("Text = %q", reply.Text)
	}
	if reply.Usage.InputTokens != 42 || reply.Usage.OutputTokens != 7 {
		t.Errorf("Usage = %+v", reply.Usage)
	}
	if reply.ModelID != "gpt-4o-2024" {
		t.Errorf("ModelID = %q, want upstream-reported id", reply.ModelID)
	}
}

func TestSend_MissingCredential(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t, OpenAI, "http://127.0.0.1:1", "")

	_, err := g.Send(context.Background(), OpenAI, "gpt-4o", chatRequest())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Send() error = %v, want *AuthError", err)
	}
	if authErr.ProviderID != OpenAI {
		t.Errorf("AuthError.ProviderID = %q", authErr.ProviderID)
	}
}

func TestSend_UnknownProviderAndModel(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t, OpenAI, "http://127.0.0.1:1", "sk-x")

	if _, err := g.Send(context.Background(), "mystery", "m", chatRequest()); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("unknown provider error = %v, want ErrProviderNotFound", err)
	}
	if _, err := g.Send(context.Background(), OpenAI, "made-up", chatRequest()); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("unknown model error = %v, want ErrModelNotFound", err)
	}
}

func TestSend_UpstreamStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limit exceeded"}}`))
	}))
	defer srv.Close()

	g := newTestGateway(t, OpenAI, srv.URL, "sk-x")

	_, err := g.Send(context.Background(), OpenAI, "gpt-4o", chatRequest())

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("Send() error = %v, want *UpstreamError", err)
	}
	if upErr.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want 429", upErr.Status)
	}
	if upErr.Message != "rate limit exceeded" {
		t.Errorf("Message = %q, want parsed upstream message", upErr.Message)
	}
}

func TestSend_UnparseableErrorBodySurfacesRaw(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	g := newTestGateway(t, OpenAI, srv.URL, "sk-x")

	_, err := g.Send(context.Background(), OpenAI, "gpt-4o", chatRequest())

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("Send() error = %v, want *UpstreamError", err)
	}
	if upErr.Message != "upstream exploded" {
		t.Errorf("Message = %q, want raw body", upErr.Message)
	}
}

func TestSend_NonJSONSuccessIsFormatError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>login page</html>"))
	}))
	defer srv.Close()

	g := newTestGateway(t, OpenAI, srv.URL, "sk-x")

	_, err := g.Send(context.Background(), OpenAI, "gpt-4o", chatRequest())

	var fmtErr *FormatError
	if !errors.As(err, &fmtErr) {
		t.Fatalf("Send() error = %v, want *FormatError", err)
	}
	if fmtErr.RawBody == "" {
		t.Error("FormatError should carry the raw body for diagnostics")
	}
}

func TestSend_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	reg := NewBuiltinRegistry(map[string]string{OpenAI: srv.URL})
	creds := credential.NewMemory()
	_ = creds.SetSecret(OpenAI, "sk-x")
	g := NewGateway(reg, creds, GatewayConfig{Timeout: 50 * time.Millisecond}, log.NewNop())

	_, err := g.Send(context.Background(), OpenAI, "gpt-4o", chatRequest())

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("Send() error = %v, want *UpstreamError", err)
	}
	if upErr.Kind != KindTimeout {
		t.Errorf("Kind = %q, want timeout", upErr.Kind)
	}
}

func TestSend_Anthropic_Normalizes(t *testing.T) {
	t.Parallel()

	var gotKey, gotVersion string
	var gotBody anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "Peers teaching peers."}],
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	g := newTestGateway(t, Anthropic, srv.URL, "sk-ant-x")

	reply, err := g.Send(context.Background(), Anthropic, "claude-sonnet-4-5", chatRequest())
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if gotKey != "sk-ant-x" || gotVersion == "" {
		t.Errorf("auth headers = %q / %q", gotKey, gotVersion)
	}
	// System text moves to the top-level field, not the message list.
	if gotBody.System == "" || len(gotBody.Messages) != 1 {
		t.Errorf("wire payload = %+v", gotBody)
	}
	if reply.Text != "Peers teaching peers." || reply.Usage.InputTokens != 10 {
		t.Errorf("reply = %+v", reply)
	}
}

func TestSend_Gemini_Normalizes(t *testing.T) {
	t.Parallel()

	var gotPath, gotKey string
	var gotBody geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "Learning "}, {"text": "together."}]}}],
			"usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 3}
		}`))
	}))
	defer srv.Close()

	g := newTestGateway(t, Gemini, srv.URL, "AIza-x")

	reply, err := g.Send(context.Background(), Gemini, "gemini-2.5-flash", chatRequest())
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if gotPath != "/models/gemini-2.5-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "AIza-x" {
		t.Errorf("x-goog-api-key = %q", gotKey)
	}
	if gotBody.SystemInstruction == nil || len(gotBody.Contents) != 1 {
		t.Errorf("wire payload = %+v", gotBody)
	}
	if reply.Text != "Learning together." {
		t.Errorf("Text = %q, want concatenated parts", reply.Text)
	}
}

func TestSend_Flowise_QuestionStyle(t *testing.T) {
	t.Parallel()

	var gotBody flowiseRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "From the flow."}`))
	}))
	defer srv.Close()

	// Flowise requires no key.
	g := newTestGateway(t, Flowise, srv.URL, "")

	reply, err := g.Send(context.Background(), Flowise, "default", chatRequest())
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if gotBody.Question == "" {
		t.Error("question field not populated")
	}
	if reply.Text != "From the flow." {
		t.Errorf("Text = %q", reply.Text)
	}
}

func TestSend_PacingThrottles(t *testing.T) {
	t.Parallel()

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4o",
			"choices": [{"message": {"content": "ok"}}],
			"usage": {"prompt_tokens": 1, "completion_tokens": 1}
		}`))
	}))
	defer srv.Close()

	reg := NewBuiltinRegistry(map[string]string{OpenAI: srv.URL})
	creds := credential.NewMemory()
	_ = creds.SetSecret(OpenAI, "sk-x")
	// One call per second, burst 1: the first send drains the burst and
	// the next must wait out the full interval.
	g := NewGateway(reg, creds, GatewayConfig{Timeout: 2 * time.Second, PacePerSecond: 1}, log.NewNop())

	if _, err := g.Send(context.Background(), OpenAI, "gpt-4o", chatRequest()); err != nil {
		t.Fatalf("first Send() error: %v", err)
	}

	// A canceled caller cannot sit out the pacing wait; the call fails
	// before any outbound request is issued.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Send(ctx, OpenAI, "gpt-4o", chatRequest())
	if err == nil || !strings.Contains(err.Error(), "pacing wait") {
		t.Fatalf("second Send() error = %v, want pacing wait failure", err)
	}
	if hits != 1 {
		t.Errorf("upstream hits = %d, want 1 (paced call must not reach the wire)", hits)
	}
}

func TestConfigured(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t, OpenAI, "http://127.0.0.1:1", "")

	if g.Configured(OpenAI) {
		t.Error("Configured(openai) without key should be false")
	}
	if !g.Configured(Flowise) {
		t.Error("Configured(flowise) should be true, no key required")
	}
	if g.Configured("mystery") {
		t.Error("Configured(unknown) should be false")
	}
}
