package plan

import (
	"errors"
	"strings"
	"testing"
)

func TestResolve_KnownTiers(t *testing.T) {
	t.Parallel()

	for _, tier := range []string{TierDemo, TierPro} {
		e, err := Resolve(tier)
		if err != nil {
			t.Fatalf("Resolve(%q) error: %v", tier, err)
		}
		if e.QueryQuota <= 0 {
			t.Errorf("Resolve(%q).QueryQuota = %d, want > 0", tier, e.QueryQuota)
		}
		if len(e.AllowedPersonaIDs) == 0 {
			t.Errorf("Resolve(%q) has no allowed personas", tier)
		}
	}
}

func TestResolve_UnknownTier(t *testing.T) {
	t.Parallel()

	_, err := Resolve("platinum")
	if !errors.Is(err, ErrUnknownTier) {
		t.Errorf("Resolve() error = %v, want ErrUnknownTier", err)
	}
}

func TestResolve_ReturnsCopy(t *testing.T) {
	t.Parallel()

	a, _ := Resolve(TierDemo)
	a.AllowedPersonaIDs[0] = "tampered"

	b, _ := Resolve(TierDemo)
	if b.AllowedPersonaIDs[0] == "tampered" {
		t.Error("Resolve() leaked a mutable reference to the tier table")
	}
}

func TestCheckPersona(t *testing.T) {
	t.Parallel()

	e, _ := Resolve(TierDemo)

	if err := e.CheckPersona("mentor"); err != nil {
		t.Errorf("CheckPersona(mentor) = %v, want nil", err)
	}

	err := e.CheckPersona("scholar")
	if err == nil {
		t.Fatal("CheckPersona(scholar) on demo plan should fail")
	}

	var na *NotAllowedError
	if !errors.As(err, &na) {
		t.Fatalf("error type = %T, want *NotAllowedError", err)
	}
	if na.PersonaID != "scholar" {
		t.Errorf("PersonaID = %q, want scholar", na.PersonaID)
	}
	if len(na.Allowed) == 0 {
		t.Error("NotAllowedError carries no allowed list")
	}
	if !strings.Contains(err.Error(), "mentor") {
		t.Errorf("error message should list allowed personas, got %q", err.Error())
	}
}

func TestHasFeature(t *testing.T) {
	t.Parallel()

	demo, _ := Resolve(TierDemo)
	if !demo.HasFeature(FeatureVectorQuery) {
		t.Error("demo plan should include vector query")
	}
	if demo.HasFeature(FeatureAllModels) {
		t.Error("demo plan should not include all models")
	}
}
