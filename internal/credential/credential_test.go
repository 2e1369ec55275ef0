package credential

import (
	"path/filepath"
	"testing"
)

// Both implementations must satisfy the same contract.
func stores(t *testing.T) map[string]Store {
	t.Helper()

	file, err := NewFile(filepath.Join(t.TempDir(), "credentials.json"))
	if err != nil {
		t.Fatalf("NewFile() error: %v", err)
	}
	return map[string]Store{
		"memory": NewMemory(),
		"file":   file,
	}
}

func TestStore_SecretLifecycle(t *testing.T) {
	t.Parallel()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok := s.Secret("openai"); ok {
				t.Fatal("Secret() on empty store returned a value")
			}

			if err := s.SetSecret("openai", "sk-one"); err != nil {
				t.Fatalf("SetSecret() error: %v", err)
			}
			got, ok := s.Secret("openai")
			if !ok || got != "sk-one" {
				t.Fatalf("Secret() = %q,%v, want sk-one,true", got, ok)
			}

			// Keys are scoped per provider.
			if _, ok := s.Secret("gemini"); ok {
				t.Error("Secret(gemini) leaked the openai key")
			}

			// Updates overwrite.
			if err := s.SetSecret("openai", "sk-two"); err != nil {
				t.Fatalf("SetSecret() error: %v", err)
			}
			if got, _ := s.Secret("openai"); got != "sk-two" {
				t.Errorf("Secret() after update = %q, want sk-two", got)
			}

			// Removal deletes; removing again is a no-op.
			if err := s.RemoveSecret("openai"); err != nil {
				t.Fatalf("RemoveSecret() error: %v", err)
			}
			if _, ok := s.Secret("openai"); ok {
				t.Error("Secret() after removal still present")
			}
			if err := s.RemoveSecret("openai"); err != nil {
				t.Errorf("RemoveSecret() twice error: %v", err)
			}
		})
	}
}

func TestStore_Selection(t *testing.T) {
	t.Parallel()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			p, m := s.Selection()
			if p != "" || m != "" {
				t.Fatalf("Selection() on empty store = %q,%q", p, m)
			}

			if err := s.SetSelection("openai", "gpt-4o"); err != nil {
				t.Fatalf("SetSelection() error: %v", err)
			}
			p, m = s.Selection()
			if p != "openai" || m != "gpt-4o" {
				t.Errorf("Selection() = %q,%q, want openai,gpt-4o", p, m)
			}
		})
	}
}

func TestFile_PersistsAcrossInstances(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials.json")

	first, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile() error: %v", err)
	}
	if err := first.SetSecret("anthropic", "sk-ant"); err != nil {
		t.Fatalf("SetSecret() error: %v", err)
	}
	if err := first.SetSelection("anthropic", "claude-sonnet-4-5"); err != nil {
		t.Fatalf("SetSelection() error: %v", err)
	}

	second, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile() reopen error: %v", err)
	}
	if got, ok := second.Secret("anthropic"); !ok || got != "sk-ant" {
		t.Errorf("reopened Secret() = %q,%v, want sk-ant,true", got, ok)
	}
	if p, m := second.Selection(); p != "anthropic" || m != "claude-sonnet-4-5" {
		t.Errorf("reopened Selection() = %q,%q", p, m)
	}
}
