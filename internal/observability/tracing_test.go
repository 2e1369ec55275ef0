package observability

import (
	"context"
	"testing"

	"github.com/peeragogy/handbook-ai/internal/log"
)

func TestSetup_ReturnsWorkingShutdown(t *testing.T) {
	// No collector is listening; the batch exporter only dials on
	// export, so setup still succeeds and shutdown must not hang.
	shutdown, err := Setup(context.Background(), Config{
		Endpoint:    "localhost:1",
		Environment: "dev",
		ServiceName: "handbook-ai-test",
	}, log.NewNop())
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	if shutdown == nil {
		t.Fatal("nil shutdown function")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestTracer_NonNil(t *testing.T) {
	if Tracer("test") == nil {
		t.Fatal("Tracer() returned nil")
	}
}
