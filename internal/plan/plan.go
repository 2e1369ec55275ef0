// Package plan maps account tiers to their entitlements: query quota,
// allowed personas, and feature flags. The table is static; a resolved
// entitlement is attached to a request and never mutated.
package plan

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Known tiers.
const (
	TierDemo = "demo"
	TierPro  = "pro"
)

// Feature flags.
const (
	FeatureVectorQuery = "vector_query"
	FeatureAllModels   = "all_models"
)

// ErrUnknownTier indicates the tier has no entitlement entry.
var ErrUnknownTier = errors.New("unknown plan tier")

// Entitlement is what one plan tier may use.
type Entitlement struct {
	Tier              string   `json:"tier"`
	QueryQuota        int      `json:"queryQuota"` // requests per rate-limit window
	AllowedPersonaIDs []string `json:"allowedPersonaIds"`
	Features          []string `json:"features"`
}

// NotAllowedError reports a persona outside the plan's allowed set. It
// carries the allowed list so callers can show the user their options.
type NotAllowedError struct {
	PersonaID string
	Allowed   []string
}

func (e *NotAllowedError) Error() string {
	return fmt.Sprintf("persona %q is not available on this plan (allowed: %s)",
		e.PersonaID, strings.Join(e.Allowed, ", "))
}

// entitlements is the static tier table.
var entitlements = map[string]Entitlement{
	TierDemo: {
		Tier:              TierDemo,
		QueryQuota:        5,
		AllowedPersonaIDs: []string{"mentor", "coach"},
		Features:          []string{FeatureVectorQuery},
	},
	TierPro: {
		Tier:              TierPro,
		QueryQuota:        60,
		AllowedPersonaIDs: []string{"mentor", "coach", "scholar", "skeptic"},
		Features:          []string{FeatureVectorQuery, FeatureAllModels},
	},
}

// Resolve returns the entitlement for a tier. The returned value is a
// copy; mutating it does not affect the table.
func Resolve(tier string) (Entitlement, error) {
	e, ok := entitlements[tier]
	if !ok {
		return Entitlement{}, fmt.Errorf("%w: %s", ErrUnknownTier, tier)
	}
	e.AllowedPersonaIDs = slices.Clone(e.AllowedPersonaIDs)
	e.Features = slices.Clone(e.Features)
	return e, nil
}

// CheckPersona returns a *NotAllowedError if personaID is outside the
// entitlement's allowed set.
func (e Entitlement) CheckPersona(personaID string) error {
	if slices.Contains(e.AllowedPersonaIDs, personaID) {
		return nil
	}
	return &NotAllowedError{PersonaID: personaID, Allowed: slices.Clone(e.AllowedPersonaIDs)}
}

// HasFeature reports whether the entitlement includes a feature flag.
func (e Entitlement) HasFeature(flag string) bool {
	return slices.Contains(e.Features, flag)
}
