// Package app provides application initialization and dependency
// wiring.
//
// App is the container that builds every component once at startup and
// hands them to the CLI commands: corpus store, persona catalog,
// credential store, provider gateway, session store, command
// interpreter, orchestrator, and the vector client. Components receive
// their collaborators through constructors; nothing reads globals.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/peeragogy/handbook-ai/internal/command"
	"github.com/peeragogy/handbook-ai/internal/config"
	"github.com/peeragogy/handbook-ai/internal/credential"
	"github.com/peeragogy/handbook-ai/internal/docstore"
	"github.com/peeragogy/handbook-ai/internal/log"
	"github.com/peeragogy/handbook-ai/internal/observability"
	"github.com/peeragogy/handbook-ai/internal/orchestrator"
	"github.com/peeragogy/handbook-ai/internal/persona"
	"github.com/peeragogy/handbook-ai/internal/provider"
	"github.com/peeragogy/handbook-ai/internal/session"
	"github.com/peeragogy/handbook-ai/internal/vector"
)

// upstreamTimeout bounds every provider call.
const upstreamTimeout = 60 * time.Second

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Docs         *docstore.Store
	Personas     *persona.Registry
	Credentials  credential.Store
	Registry     *provider.Registry
	Gateway      *provider.Gateway
	Sessions     *session.Store
	Commands     *command.Interpreter
	Orchestrator *orchestrator.Orchestrator
	Vector       *vector.Client

	shutdownTracing func(context.Context) error
}

// Setup builds the application container from configuration.
func Setup(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	a := &App{Config: cfg, Logger: logger}

	if cfg.Tracing.Enabled {
		shutdown, err := observability.Setup(ctx, observability.Config{
			Endpoint:    cfg.Tracing.Endpoint,
			Environment: cfg.Environment,
			ServiceName: cfg.Tracing.ServiceName,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("setting up tracing: %w", err)
		}
		a.shutdownTracing = shutdown
	}

	docs, err := buildCorpus(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Docs = docs

	a.Personas, err = persona.NewBuiltin()
	if err != nil {
		return nil, fmt.Errorf("loading persona catalog: %w", err)
	}

	a.Credentials, err = buildCredentials(cfg, logger)
	if err != nil {
		return nil, err
	}

	a.Registry = provider.NewBuiltinRegistry(nil)
	a.Gateway = provider.NewGateway(a.Registry, a.Credentials, provider.GatewayConfig{
		Timeout:       upstreamTimeout,
		Referer:       cfg.FrontendURL,
		PacePerSecond: cfg.UpstreamPacePerSecond,
	}, logger)

	a.Sessions = session.NewStore(logger)
	a.Commands = command.NewInterpreter(a.Registry, a.Personas, a.Credentials, a.Sessions, logger)
	a.Orchestrator = orchestrator.New(a.Docs, a.Personas, a.Gateway, a.Sessions, a.Credentials, a.Commands, logger, orchestrator.Options{})

	a.Vector = vector.New(cfg.PineconeHost, cfg.PineconeKey, 10*time.Second, vector.DemoFallback(), logger)

	logger.Info("application ready",
		"passages", a.Docs.Len(),
		"personas", len(a.Personas.IDs()),
		"environment", cfg.Environment,
	)
	return a, nil
}

// buildCorpus loads the embedded handbook and, when configured, an
// extra markdown directory on top of it.
func buildCorpus(cfg *config.Config, logger log.Logger) (*docstore.Store, error) {
	docs := docstore.New(logger)

	passages, err := docstore.Seed()
	if err != nil {
		return nil, fmt.Errorf("loading embedded corpus: %w", err)
	}
	if err := docs.AddPassages(passages); err != nil {
		return nil, fmt.Errorf("seeding corpus: %w", err)
	}

	if cfg.CorpusDir != "" {
		extra, err := docstore.LoadMarkdownDir(cfg.CorpusDir, docstore.Metadata{
			SourceCorpus: "local",
			Language:     "en",
		})
		if err != nil {
			return nil, fmt.Errorf("loading corpus dir %s: %w", cfg.CorpusDir, err)
		}
		if err := docs.AddPassages(extra); err != nil {
			return nil, fmt.Errorf("adding corpus dir passages: %w", err)
		}
		logger.Info("extra corpus loaded", "dir", cfg.CorpusDir, "passages", len(extra))
	}
	return docs, nil
}

// buildCredentials picks the credential store: flock-guarded file
// persistence when a path is configured, otherwise in-memory. Both are
// seeded with the env-configured provider keys.
func buildCredentials(cfg *config.Config, logger log.Logger) (credential.Store, error) {
	if cfg.CredentialFile == "" {
		return credential.NewMemoryFromEnv(cfg.ProviderKeys()), nil
	}

	store, err := credential.NewFile(cfg.CredentialFile)
	if err != nil {
		return nil, fmt.Errorf("opening credential file: %w", err)
	}
	for id, key := range cfg.ProviderKeys() {
		if key == "" {
			continue
		}
		if err := store.SetSecret(id, key); err != nil {
			return nil, fmt.Errorf("seeding credential for %s: %w", id, err)
		}
	}
	logger.Debug("file credential store opened", "path", cfg.CredentialFile)
	return store, nil
}

// Close flushes tracing and releases resources.
func (a *App) Close(ctx context.Context) error {
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			return fmt.Errorf("shutting down tracing: %w", err)
		}
	}
	return nil
}
