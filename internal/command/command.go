// Package command interprets slash commands typed into the chat input.
//
// Commands never reach a model: the interpreter answers them locally
// against the provider catalog, persona catalog, credential store, and
// session store. An unknown command is a user-facing reply, not a fault.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/peeragogy/handbook-ai/internal/credential"
	"github.com/peeragogy/handbook-ai/internal/persona"
	"github.com/peeragogy/handbook-ai/internal/provider"
	"github.com/peeragogy/handbook-ai/internal/session"
)

// Prefix marks an input line as a command.
const Prefix = "/"

// Command names.
const (
	CmdStatus        = "status"
	CmdHelp          = "help"
	CmdProviders     = "providers"
	CmdPersonalities = "personalities"
	CmdSetAPIKey     = "set_api_key"
	CmdReset         = "reset"
)

// UnknownCommandError reports a command outside the recognized set. The
// message lists every valid command so the user can recover.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q; valid commands: %s", e.Name, strings.Join(Names(), ", "))
}

// Names returns the recognized command names in display order.
func Names() []string {
	return []string{CmdStatus, CmdHelp, CmdProviders, CmdPersonalities, CmdSetAPIKey, CmdReset}
}

// Command is a parsed slash command.
type Command struct {
	Name string
	Args []string
}

// IsCommand reports whether the input should be routed to the
// interpreter instead of the model.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), Prefix)
}

// Parse splits "/name arg..." into a Command. Parsing is lenient about
// the name; Execute rejects unrecognized ones.
func Parse(input string) (Command, error) {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, Prefix) {
		return Command{}, fmt.Errorf("not a command: %q", input)
	}

	fields := strings.Fields(strings.TrimPrefix(trimmed, Prefix))
	if len(fields) == 0 {
		return Command{}, &UnknownCommandError{Name: ""}
	}
	return Command{Name: strings.ToLower(fields[0]), Args: fields[1:]}, nil
}

// Format renders a Command back to its input form. Parse(Format(c))
// reconstructs c for every representable command.
func Format(c Command) string {
	if len(c.Args) == 0 {
		return Prefix + c.Name
	}
	return Prefix + c.Name + " " + strings.Join(c.Args, " ")
}

// Interpreter executes parsed commands.
type Interpreter struct {
	providers *provider.Registry
	personas  *persona.Registry
	creds     credential.Store
	sessions  *session.Store
	logger    *slog.Logger
}

// NewInterpreter wires the interpreter's collaborators.
func NewInterpreter(providers *provider.Registry, personas *persona.Registry, creds credential.Store, sessions *session.Store, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{
		providers: providers,
		personas:  personas,
		creds:     creds,
		sessions:  sessions,
		logger:    logger,
	}
}

// Execute runs one command against the given session and returns the
// response text. Unrecognized names fail with *UnknownCommandError.
func (in *Interpreter) Execute(ctx context.Context, c Command, sessionID string) (string, error) {
	_ = ctx

	switch c.Name {
	case CmdStatus:
		return in.status(), nil
	case CmdHelp:
		return helpText(), nil
	case CmdProviders:
		return in.listProviders(), nil
	case CmdPersonalities:
		return in.listPersonalities(), nil
	case CmdSetAPIKey:
		return in.setAPIKey(c.Args)
	case CmdReset:
		in.sessions.Reset(sessionID)
		in.logger.Info("conversation reset", "session", sessionID)
		return "Conversation history cleared.", nil
	default:
		return "", &UnknownCommandError{Name: c.Name}
	}
}

func (in *Interpreter) status() string {
	providerID, modelID := in.creds.Selection()
	if providerID == "" {
		return "No provider selected. Use /set_api_key <provider> <model> <key> to choose one."
	}

	name := providerID
	configured := false
	if d, err := in.providers.Get(providerID); err == nil {
		name = d.DisplayName
		if d.RequiresKey {
			_, configured = in.creds.Secret(providerID)
		} else {
			configured = true
		}
	}

	return fmt.Sprintf("Provider: %s\nModel: %s\nConfigured: %t", name, modelID, configured)
}

func helpText() string {
	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	sb.WriteString("  /status                                 show current provider, model, and key state\n")
	sb.WriteString("  /help                                   show this text\n")
	sb.WriteString("  /providers                              list available providers and models\n")
	sb.WriteString("  /personalities                          list answer personalities\n")
	sb.WriteString("  /set_api_key <provider> <model> <key>   store a key and select provider+model\n")
	sb.WriteString("  /reset                                  clear the conversation history")
	return sb.String()
}

func (in *Interpreter) listProviders() string {
	var sb strings.Builder
	sb.WriteString("Providers:\n")
	for _, d := range in.providers.List() {
		state := "no key required"
		if d.RequiresKey {
			if _, ok := in.creds.Secret(d.ID); ok {
				state = "configured"
			} else {
				state = "key missing"
			}
		}
		fmt.Fprintf(&sb, "  %s (%s) — %s\n", d.DisplayName, d.ID, state)
		for _, m := range d.Models {
			free := ""
			if m.IsFree {
				free = " [free]"
			}
			fmt.Fprintf(&sb, "    %s%s\n", m.ID, free)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (in *Interpreter) listPersonalities() string {
	var sb strings.Builder
	sb.WriteString("Personalities:\n")
	for _, p := range in.personas.List() {
		fmt.Fprintf(&sb, "  %s (%s) — temperature %.1f\n", p.DisplayName, p.ID, p.Temperature)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// setAPIKey validates the provider and model, stores the secret, and
// makes the pair the current selection. The key itself is never echoed
// or logged.
func (in *Interpreter) setAPIKey(args []string) (string, error) {
	if len(args) != 3 {
		return "", fmt.Errorf("usage: %sset_api_key <provider> <model> <key>", Prefix)
	}
	providerID, modelID, key := args[0], args[1], args[2]

	d, err := in.providers.ResolveModel(providerID, modelID)
	if err != nil {
		return "", err
	}
	if key == "" {
		hint := d.KeyFormatHint
		if hint == "" {
			hint = "a non-empty key"
		}
		return "", fmt.Errorf("missing key for %s (expected %s)", d.DisplayName, hint)
	}

	if err := in.creds.SetSecret(providerID, key); err != nil {
		return "", fmt.Errorf("storing credential: %w", err)
	}
	if err := in.creds.SetSelection(providerID, modelID); err != nil {
		return "", fmt.Errorf("saving selection: %w", err)
	}

	in.logger.Info("credential stored", "provider", providerID, "model", modelID)
	return fmt.Sprintf("Stored API key for %s and selected model %s.", d.DisplayName, modelID), nil
}
