// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.handbook-ai/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Security: sensitive fields (API keys, tokens, the demo password) are
// explicitly masked in MarshalJSON and never logged in the clear.
//
// Error handling uses sentinel errors so callers can check with
// errors.Is(); wrap with fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/peeragogy/handbook-ai/internal/provider"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidPort indicates the listen port is out of range.
	ErrInvalidPort = errors.New("invalid port")

	// ErrInvalidEnvironment indicates an unknown deployment environment.
	ErrInvalidEnvironment = errors.New("invalid environment")

	// ErrInvalidRateLimit indicates a non-positive quota or window.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidAPIToken indicates the bearer token is too short to be safe.
	ErrInvalidAPIToken = errors.New("invalid API token")

	// ErrInvalidDemoPassword indicates the demo login password is too weak.
	ErrInvalidDemoPassword = errors.New("invalid demo password")
)

// Deployment environments for Config.Environment.
const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	// DefaultPort is the HTTP listen port.
	DefaultPort = 8080

	// DefaultRateLimitQuota is requests per window per client.
	DefaultRateLimitQuota = 5

	// DefaultRateLimitWindow is the fixed-window size.
	DefaultRateLimitWindow = time.Minute

	// minTokenLength is the shortest accepted static bearer token.
	minTokenLength = 16
)

// TracingConfig holds OTLP trace export configuration.
type TracingConfig struct {
	// Enabled turns trace export on. Off by default.
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Endpoint is the OTLP/HTTP collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// ServiceName tags exported spans.
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields, update MarshalJSON.
type Config struct {
	// HTTP server
	Port        int      `mapstructure:"port" json:"port"`
	Environment string   `mapstructure:"environment" json:"environment"` // dev | staging | prod
	FrontendURL string   `mapstructure:"frontend_url" json:"frontend_url"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // trust X-Real-IP/X-Forwarded-For behind a reverse proxy

	// Upstream credentials, seeded into the credential store at startup.
	OpenAIKey     string `mapstructure:"openai_api_key" json:"openai_api_key"`         // SENSITIVE: masked in MarshalJSON
	GeminiKey     string `mapstructure:"gemini_api_key" json:"gemini_api_key"`         // SENSITIVE
	AnthropicKey  string `mapstructure:"anthropic_api_key" json:"anthropic_api_key"`   // SENSITIVE
	OpenRouterKey string `mapstructure:"openrouter_api_key" json:"openrouter_api_key"` // SENSITIVE
	FlowiseKey    string `mapstructure:"flowise_api_key" json:"flowise_api_key"`       // SENSITIVE

	// Vector endpoint
	PineconeKey  string `mapstructure:"pinecone_api_key" json:"pinecone_api_key"` // SENSITIVE
	PineconeHost string `mapstructure:"pinecone_host" json:"pinecone_host"`

	// Auth gate
	APIToken     string `mapstructure:"api_token" json:"api_token"` // SENSITIVE: static bearer allow-list entry
	DemoUsername string `mapstructure:"demo_username" json:"demo_username"`
	DemoPassword string `mapstructure:"demo_password" json:"demo_password"` // SENSITIVE

	// Rate limiting
	RateLimitQuota  int           `mapstructure:"rate_limit_quota" json:"rate_limit_quota"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window" json:"rate_limit_window"`

	// UpstreamPacePerSecond throttles outbound provider calls across the
	// whole process. Zero disables pacing.
	UpstreamPacePerSecond float64 `mapstructure:"upstream_pace_per_second" json:"upstream_pace_per_second"`

	// Client-local persistence for selected provider/model and keys.
	// Empty keeps credentials in memory only.
	CredentialFile string `mapstructure:"credential_file" json:"credential_file"`

	// Extra corpus directory loaded on top of the embedded handbook.
	CorpusDir string `mapstructure:"corpus_dir" json:"corpus_dir"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"` // debug | info | warn | error
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Observability
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".handbook-ai")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("environment", EnvDev)
	v.SetDefault("cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("trust_proxy", false)

	v.SetDefault("rate_limit_quota", DefaultRateLimitQuota)
	v.SetDefault("rate_limit_window", DefaultRateLimitWindow)

	// The hardcoded demo login pair. A production deployment overrides
	// both or swaps the gate for a real identity provider.
	v.SetDefault("demo_username", "demo")
	v.SetDefault("demo_password", "peeragogy")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "handbook-ai")
}

// bindEnvVariables binds recognized environment variables explicitly.
// Upstream keys keep their conventional unprefixed names; everything
// app-specific uses the HANDBOOK_ prefix.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded strings cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("port", "PORT")
	mustBind("environment", "APP_ENV")
	mustBind("frontend_url", "FRONTEND_URL")

	mustBind("openai_api_key", "OPENAI_API_KEY")
	mustBind("gemini_api_key", "GEMINI_API_KEY")
	mustBind("anthropic_api_key", "ANTHROPIC_API_KEY")
	mustBind("openrouter_api_key", "OPENROUTER_API_KEY")
	mustBind("flowise_api_key", "FLOWISE_API_KEY")
	mustBind("pinecone_api_key", "PINECONE_API_KEY")
	mustBind("pinecone_host", "PINECONE_HOST")

	mustBind("api_token", "API_TOKEN")
	mustBind("demo_username", "HANDBOOK_DEMO_USERNAME")
	mustBind("demo_password", "HANDBOOK_DEMO_PASSWORD")

	mustBind("cors_origins", "HANDBOOK_CORS_ORIGINS")
	mustBind("trust_proxy", "HANDBOOK_TRUST_PROXY")
	mustBind("rate_limit_quota", "HANDBOOK_RATE_LIMIT_QUOTA")
	mustBind("rate_limit_window", "HANDBOOK_RATE_LIMIT_WINDOW")
	mustBind("upstream_pace_per_second", "HANDBOOK_UPSTREAM_PACE_PER_SECOND")
	mustBind("credential_file", "HANDBOOK_CREDENTIAL_FILE")
	mustBind("corpus_dir", "HANDBOOK_CORPUS_DIR")
	mustBind("log_level", "HANDBOOK_LOG_LEVEL")
	mustBind("log_json", "HANDBOOK_LOG_JSON")

	mustBind("tracing.enabled", "HANDBOOK_TRACING_ENABLED")
	mustBind("tracing.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	mustBind("tracing.service_name", "OTEL_SERVICE_NAME")
}

// ProviderKeys returns the env-configured upstream keys keyed by
// provider id, for seeding the credential store. Empty keys are kept;
// the store skips them.
func (c *Config) ProviderKeys() map[string]string {
	return map[string]string{
		provider.OpenAI:     c.OpenAIKey,
		provider.Gemini:     c.GeminiKey,
		provider.Anthropic:  c.AnthropicKey,
		provider.OpenRouter: c.OpenRouterKey,
		provider.Flowise:    c.FlowiseKey,
	}
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) cannot collide with real secret substrings.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8 chars
// or fewer are fully masked; longer ones keep the first and last two
// characters for debug utility.
//
// THREAT MODEL: this defends against accidental logging of real
// secrets. If logs are compromised, rotate the secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field
// masking. When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.OpenAIKey = maskSecret(a.OpenAIKey)
	a.GeminiKey = maskSecret(a.GeminiKey)
	a.AnthropicKey = maskSecret(a.AnthropicKey)
	a.OpenRouterKey = maskSecret(a.OpenRouterKey)
	a.FlowiseKey = maskSecret(a.FlowiseKey)
	a.PineconeKey = maskSecret(a.PineconeKey)
	a.APIToken = maskSecret(a.APIToken)
	a.DemoPassword = maskSecret(a.DemoPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
