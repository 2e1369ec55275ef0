// Package provider is the gateway between the orchestrator's uniform
// request and each upstream AI service's wire format.
//
// The Registry is the static catalog of reachable providers and models.
// The Gateway dispatches to one client per provider; payload shaping,
// auth header styles, and response normalization are confined to those
// clients so callers never see a provider-specific body.
package provider

import (
	"errors"
	"fmt"
)

// Provider ids. These appear in URLs (/api/ai/{provider}) and credential
// scoping, so they are part of the public surface.
const (
	OpenAI     = "openai"
	Gemini     = "gemini"
	Anthropic  = "anthropic"
	OpenRouter = "openrouter"
	Flowise    = "flowise"
)

var (
	// ErrProviderNotFound indicates an id outside the catalog.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrModelNotFound indicates a model id the provider does not list.
	ErrModelNotFound = errors.New("model not found")
)

// ModelDefinition describes one selectable model.
type ModelDefinition struct {
	ID                  string `json:"id"`
	DisplayName         string `json:"displayName"`
	ContextWindowTokens int    `json:"contextWindowTokens"`
	IsFree              bool   `json:"isFree"`
}

// Definition describes one upstream provider.
type Definition struct {
	ID            string            `json:"id"`
	DisplayName   string            `json:"displayName"`
	BaseURL       string            `json:"baseUrl"`
	Models        []ModelDefinition `json:"supportedModels"`
	RequiresKey   bool              `json:"requiresKey"`
	KeyFormatHint string            `json:"keyFormatHint,omitempty"`

	// OpenModelList marks providers whose catalog is advisory: model ids
	// outside Models are accepted (OpenRouter fronts thousands of models).
	OpenModelList bool `json:"-"`
}

// Registry is the immutable provider catalog.
type Registry struct {
	order []string
	byID  map[string]Definition
}

// NewRegistry builds a registry from definitions, preserving order.
func NewRegistry(defs []Definition) *Registry {
	r := &Registry{byID: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		r.byID[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	return r
}

// NewBuiltinRegistry returns the standard catalog. Base URLs can be
// overridden per provider (tests point them at a local stub); an empty
// override map keeps the defaults.
func NewBuiltinRegistry(baseURLOverrides map[string]string) *Registry {
	defs := []Definition{
		{
			ID:            OpenAI,
			DisplayName:   "OpenAI",
			BaseURL:       "https://api.openai.com/v1",
			RequiresKey:   true,
			KeyFormatHint: "sk-...",
			Models: []ModelDefinition{
				{ID: "gpt-4o", DisplayName: "GPT-4o", ContextWindowTokens: 128000},
				{ID: "gpt-4o-mini", DisplayName: "GPT-4o mini", ContextWindowTokens: 128000},
				{ID: "gpt-4.1", DisplayName: "GPT-4.1", ContextWindowTokens: 1000000},
			},
		},
		{
			ID:            Gemini,
			DisplayName:   "Google Gemini",
			BaseURL:       "https://generativelanguage.googleapis.com/v1beta",
			RequiresKey:   true,
			KeyFormatHint: "AIza...",
			Models: []ModelDefinition{
				{ID: "gemini-2.5-flash", DisplayName: "Gemini 2.5 Flash", ContextWindowTokens: 1048576, IsFree: true},
				{ID: "gemini-2.5-pro", DisplayName: "Gemini 2.5 Pro", ContextWindowTokens: 1048576},
			},
		},
		{
			ID:            Anthropic,
			DisplayName:   "Anthropic",
			BaseURL:       "https://api.anthropic.com/v1",
			RequiresKey:   true,
			KeyFormatHint: "sk-ant-...",
			Models: []ModelDefinition{
				{ID: "claude-sonnet-4-5", DisplayName: "Claude Sonnet 4.5", ContextWindowTokens: 200000},
				{ID: "claude-haiku-4-5", DisplayName: "Claude Haiku 4.5", ContextWindowTokens: 200000},
			},
		},
		{
			ID:            OpenRouter,
			DisplayName:   "OpenRouter",
			BaseURL:       "https://openrouter.ai/api/v1",
			RequiresKey:   true,
			KeyFormatHint: "sk-or-...",
			OpenModelList: true,
			Models: []ModelDefinition{
				{ID: "meta-llama/llama-3.3-70b-instruct:free", DisplayName: "Llama 3.3 70B (free)", ContextWindowTokens: 131072, IsFree: true},
				{ID: "mistralai/mistral-small-3.1-24b-instruct:free", DisplayName: "Mistral Small 3.1 (free)", ContextWindowTokens: 128000, IsFree: true},
			},
		},
		{
			ID:            Flowise,
			DisplayName:   "Flowise",
			BaseURL:       "https://flowise.example.com/api/v1/prediction/default",
			RequiresKey:   false,
			OpenModelList: true,
			Models: []ModelDefinition{
				{ID: "default", DisplayName: "Handbook flow", ContextWindowTokens: 32768, IsFree: true},
			},
		},
	}

	for i := range defs {
		if u, ok := baseURLOverrides[defs[i].ID]; ok && u != "" {
			defs[i].BaseURL = u
		}
	}
	return NewRegistry(defs)
}

// Get returns the definition for a provider id.
func (r *Registry) Get(id string) (Definition, error) {
	d, ok := r.byID[id]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}
	return d, nil
}

// List returns all definitions in catalog order.
func (r *Registry) List() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// ResolveModel validates a model id against a provider's catalog.
// Providers with an open model list accept any non-empty id.
func (r *Registry) ResolveModel(providerID, modelID string) (Definition, error) {
	d, err := r.Get(providerID)
	if err != nil {
		return Definition{}, err
	}
	if modelID == "" {
		return Definition{}, fmt.Errorf("%w: empty model id for %s", ErrModelNotFound, providerID)
	}
	if d.OpenModelList {
		return d, nil
	}
	for _, m := range d.Models {
		if m.ID == modelID {
			return d, nil
		}
	}
	return Definition{}, fmt.Errorf("%w: %s/%s", ErrModelNotFound, providerID, modelID)
}
