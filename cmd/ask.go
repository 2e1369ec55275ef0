package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/peeragogy/handbook-ai/internal/app"
	"github.com/peeragogy/handbook-ai/internal/config"
	"github.com/peeragogy/handbook-ai/internal/orchestrator"
	"github.com/peeragogy/handbook-ai/internal/plan"
)

var (
	askPersona  string
	askProvider string
	askModel    string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question against the handbook corpus",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askPersona, "persona", "", "personality to answer with (default: mentor)")
	askCmd.Flags().StringVar(&askProvider, "provider", "", "provider to use instead of the stored selection")
	askCmd.Flags().StringVar(&askModel, "model", "", "model to use with --provider")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() { _ = a.Close(context.Background()) }()

	question := strings.Join(args, " ")

	result, err := a.Orchestrator.Answer(ctx, orchestrator.Request{
		SessionID:  uuid.NewString(),
		Query:      question,
		PersonaID:  askPersona,
		ProviderID: askProvider,
		ModelID:    askModel,
		// The CLI talks to local credentials; no demo quota applies.
		Tier: plan.TierPro,
	})
	if err != nil {
		return fmt.Errorf("answering: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, result.Text)

	if len(result.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for _, src := range result.Sources {
			meta := src.Passage.Meta
			fmt.Fprintf(out, "  - %s, %s (p. %s)\n", meta.Title, meta.ChapterLabel, meta.PageRange)
		}
	}

	return nil
}
