package config

import (
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPort, c.Port)
	}

	validEnvs := []string{EnvDev, EnvStaging, EnvProd}
	if !slices.Contains(validEnvs, c.Environment) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidEnvironment, c.Environment, validEnvs)
	}

	if c.RateLimitQuota < 1 {
		return fmt.Errorf("%w: quota must be positive, got %d", ErrInvalidRateLimit, c.RateLimitQuota)
	}
	if c.RateLimitWindow < time.Second {
		return fmt.Errorf("%w: window must be at least 1s, got %s", ErrInvalidRateLimit, c.RateLimitWindow)
	}
	if c.UpstreamPacePerSecond < 0 {
		return fmt.Errorf("%w: upstream pace must not be negative, got %g", ErrInvalidRateLimit, c.UpstreamPacePerSecond)
	}

	// The token is optional (no token disables the static allow-list),
	// but a present token must not be trivially guessable.
	if c.APIToken != "" && len(c.APIToken) < minTokenLength {
		return fmt.Errorf("%w: must be at least %d characters (got %d)",
			ErrInvalidAPIToken, minTokenLength, len(c.APIToken))
	}

	if c.DemoPassword == "" {
		return fmt.Errorf("%w: demo_password must not be empty", ErrInvalidDemoPassword)
	}
	if c.Environment == EnvProd && c.DemoPassword == "peeragogy" {
		slog.Warn("using the default demo password in prod",
			"warning", "set HANDBOOK_DEMO_PASSWORD or swap the demo gate for a real identity provider")
	}

	return nil
}
