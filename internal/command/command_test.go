package command

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/peeragogy/handbook-ai/internal/credential"
	"github.com/peeragogy/handbook-ai/internal/log"
	"github.com/peeragogy/handbook-ai/internal/persona"
	"github.com/peeragogy/handbook-ai/internal/provider"
	"github.com/peeragogy/handbook-ai/internal/session"
)

func newTestInterpreter(t *testing.T) (*Interpreter, credential.Store, *session.Store) {
	t.Helper()

	personas, err := persona.NewBuiltin()
	if err != nil {
		t.Fatalf("loading personas: %v", err)
	}
	creds := credential.NewMemory()
	sessions := session.NewStore(log.NewNop())
	in := NewInterpreter(provider.NewBuiltinRegistry(nil), personas, creds, sessions, log.NewNop())
	return in, creds, sessions
}

func TestIsCommand(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input string
		want  bool
	}{
		{"/status", true},
		{"  /help  ", true},
		{"what is peeragogy?", false},
		{"not /a command", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsCommand(tc.input); got != tc.want {
			t.Errorf("IsCommand(%q) = %t, want %t", tc.input, got, tc.want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	t.Parallel()

	cmds := []Command{
		{Name: CmdStatus},
		{Name: CmdHelp},
		{Name: CmdProviders},
		{Name: CmdPersonalities},
		{Name: CmdSetAPIKey, Args: []string{"openai", "gpt-4o", "sk-test123"}},
		{Name: CmdReset},
	}

	for _, want := range cmds {
		got, err := Parse(Format(want))
		if err != nil {
			t.Fatalf("Parse(Format(%+v)) error: %v", want, err)
		}
		if got.Name != want.Name || len(got.Args) != len(want.Args) {
			t.Errorf("round trip = %+v, want %+v", got, want)
			continue
		}
		if len(want.Args) > 0 && !reflect.DeepEqual(got.Args, want.Args) {
			t.Errorf("round trip args = %v, want %v", got.Args, want.Args)
		}
	}
}

func TestParse_Lowercases(t *testing.T) {
	t.Parallel()

	c, err := Parse("/STATUS")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if c.Name != CmdStatus {
		t.Errorf("Name = %q", c.Name)
	}
}

func TestExecute_UnknownCommand(t *testing.T) {
	t.Parallel()

	in, _, _ := newTestInterpreter(t)

	_, err := in.Execute(context.Background(), Command{Name: "teleport"}, "s1")

	var unknown *UnknownCommandError
	if !errors.As(err, &unknown) {
		t.Fatalf("Execute() error = %v, want *UnknownCommandError", err)
	}
	for _, name := range Names() {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error message should list %q: %s", name, err)
		}
	}
}

func TestExecute_SetAPIKeyThenStatus(t *testing.T) {
	t.Parallel()

	in, creds, _ := newTestInterpreter(t)

	out, err := in.Execute(context.Background(), Command{
		Name: CmdSetAPIKey,
		Args: []string{"openai", "gpt-4o", "sk-test123"},
	}, "s1")
	if err != nil {
		t.Fatalf("set_api_key error: %v", err)
	}
	if strings.Contains(out, "sk-test123") {
		t.Error("response echoed the secret")
	}

	status, err := in.Execute(context.Background(), Command{Name: CmdStatus}, "s1")
	if err != nil {
		t.Fatalf("status error: %v", err)
	}
	for _, want := range []string{"OpenAI", "gpt-4o", "Configured: true"} {
		if !strings.Contains(status, want) {
			t.Errorf("status missing %q:\n%s", want, status)
		}
	}
	if strings.Contains(status, "sk-test123") {
		t.Error("status echoed the secret")
	}

	if secret, ok := creds.Secret("openai"); !ok || secret != "sk-test123" {
		t.Errorf("stored secret = %q, %t", secret, ok)
	}
}

func TestExecute_SetAPIKeyValidation(t *testing.T) {
	t.Parallel()

	in, _, _ := newTestInterpreter(t)
	ctx := context.Background()

	if _, err := in.Execute(ctx, Command{Name: CmdSetAPIKey, Args: []string{"openai"}}, "s1"); err == nil {
		t.Error("missing args should fail")
	}

	_, err := in.Execute(ctx, Command{Name: CmdSetAPIKey, Args: []string{"mystery", "m", "k"}}, "s1")
	if !errors.Is(err, provider.ErrProviderNotFound) {
		t.Errorf("unknown provider error = %v", err)
	}

	_, err = in.Execute(ctx, Command{Name: CmdSetAPIKey, Args: []string{"openai", "made-up", "k"}}, "s1")
	if !errors.Is(err, provider.ErrModelNotFound) {
		t.Errorf("unknown model error = %v", err)
	}

	// OpenRouter accepts unlisted model ids.
	if _, err := in.Execute(ctx, Command{Name: CmdSetAPIKey, Args: []string{"openrouter", "some-lab/novel", "sk-or-x"}}, "s1"); err != nil {
		t.Errorf("openrouter unlisted model error: %v", err)
	}
}

func TestExecute_StatusWithoutSelection(t *testing.T) {
	t.Parallel()

	in, _, _ := newTestInterpreter(t)

	out, err := in.Execute(context.Background(), Command{Name: CmdStatus}, "s1")
	if err != nil {
		t.Fatalf("status error: %v", err)
	}
	if !strings.Contains(out, "No provider selected") {
		t.Errorf("status = %q", out)
	}
}

func TestExecute_Listings(t *testing.T) {
	t.Parallel()

	in, _, _ := newTestInterpreter(t)
	ctx := context.Background()

	providers, err := in.Execute(ctx, Command{Name: CmdProviders}, "s1")
	if err != nil {
		t.Fatalf("providers error: %v", err)
	}
	for _, want := range []string{"OpenAI", "Anthropic", "gpt-4o", "key missing", "no key required"} {
		if !strings.Contains(providers, want) {
			t.Errorf("providers listing missing %q:\n%s", want, providers)
		}
	}

	personas, err := in.Execute(ctx, Command{Name: CmdPersonalities}, "s1")
	if err != nil {
		t.Fatalf("personalities error: %v", err)
	}
	for _, want := range []string{"mentor", "scholar", "coach", "skeptic"} {
		if !strings.Contains(personas, want) {
			t.Errorf("personalities listing missing %q:\n%s", want, personas)
		}
	}

	help, err := in.Execute(ctx, Command{Name: CmdHelp}, "s1")
	if err != nil {
		t.Fatalf("help error: %v", err)
	}
	for _, name := range Names() {
		if !strings.Contains(help, Prefix+name) {
			t.Errorf("help missing /%s:\n%s", name, help)
		}
	}
}

func TestExecute_ResetClearsHistory(t *testing.T) {
	t.Parallel()

	in, _, sessions := newTestInterpreter(t)

	id := sessions.GetOrCreate("")
	sessions.Append(id, session.Turn{Role: session.RoleUser, Content: "hi"})

	if _, err := in.Execute(context.Background(), Command{Name: CmdReset}, id); err != nil {
		t.Fatalf("reset error: %v", err)
	}
	if got := sessions.History(id, 0); len(got) != 0 {
		t.Errorf("history after reset has %d turns", len(got))
	}

	// Resetting again is a no-op, not an error.
	if _, err := in.Execute(context.Background(), Command{Name: CmdReset}, id); err != nil {
		t.Fatalf("second reset error: %v", err)
	}
}
