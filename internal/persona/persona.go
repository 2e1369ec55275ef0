// Package persona holds the static catalog of answer personalities.
//
// Personas are loaded once at process start from the embedded catalog and
// are immutable afterwards. Each persona carries the prompt template and
// generation parameters the assembler and gateway use.
package persona

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ContextPlaceholder is the literal marker inside a prompt template that
// the assembler replaces with the retrieved-context block.
const ContextPlaceholder = "{{context}}"

// DefaultID is the persona used when a request does not name one.
const DefaultID = "mentor"

var (
	// ErrPersonaNotFound indicates the requested persona does not exist.
	ErrPersonaNotFound = errors.New("persona not found")

	// ErrInvalidPersona indicates a catalog entry failed validation.
	ErrInvalidPersona = errors.New("invalid persona definition")
)

// Definition describes one personality.
type Definition struct {
	ID             string  `yaml:"id"`
	DisplayName    string  `yaml:"display_name"`
	PromptTemplate string  `yaml:"prompt_template"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	StyleHints     string  `yaml:"style_hints"`
}

// Registry is the immutable persona catalog.
type Registry struct {
	order []string
	byID  map[string]Definition
}

//go:embed personas.yaml
var builtinCatalog []byte

// NewBuiltin loads the embedded catalog.
func NewBuiltin() (*Registry, error) {
	return Parse(builtinCatalog)
}

// Parse builds a Registry from YAML catalog bytes, validating every entry.
func Parse(src []byte) (*Registry, error) {
	var defs []Definition
	if err := yaml.Unmarshal(src, &defs); err != nil {
		return nil, fmt.Errorf("parsing persona catalog: %w", err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", ErrInvalidPersona)
	}

	r := &Registry{byID: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if err := validate(d); err != nil {
			return nil, err
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidPersona, d.ID)
		}
		r.byID[d.ID] = d
		r.order = append(r.order, d.ID)
	}

	if _, ok := r.byID[DefaultID]; !ok {
		return nil, fmt.Errorf("%w: catalog is missing default persona %q", ErrInvalidPersona, DefaultID)
	}
	return r, nil
}

// Get returns the persona with the given id.
func (r *Registry) Get(id string) (Definition, error) {
	d, ok := r.byID[id]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrPersonaNotFound, id)
	}
	return d, nil
}

// List returns all personas in catalog order.
func (r *Registry) List() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// IDs returns all persona ids in catalog order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func validate(d Definition) error {
	switch {
	case d.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidPersona)
	case d.DisplayName == "":
		return fmt.Errorf("%w: %s: missing display name", ErrInvalidPersona, d.ID)
	case d.Temperature < 0 || d.Temperature > 1:
		return fmt.Errorf("%w: %s: temperature %v out of [0,1]", ErrInvalidPersona, d.ID, d.Temperature)
	case d.MaxTokens <= 0:
		return fmt.Errorf("%w: %s: max_tokens must be positive", ErrInvalidPersona, d.ID)
	case !strings.Contains(d.PromptTemplate, ContextPlaceholder):
		return fmt.Errorf("%w: %s: prompt template is missing the %s placeholder", ErrInvalidPersona, d.ID, ContextPlaceholder)
	}
	return nil
}
