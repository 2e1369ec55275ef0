package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/peeragogy/handbook-ai/internal/config"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and configuration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		printVersion(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// printVersion writes version and provider credential status. Key
// values themselves are never printed.
func printVersion(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "handbook-ai %s\n", AppVersion)
	fmt.Fprintf(w, "Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", GitCommit)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintf(w, "  Environment: %s\n", cfg.Environment)
	fmt.Fprintf(w, "  Port: %d\n", cfg.Port)

	keys := cfg.ProviderKeys()
	ids := make([]string, 0, len(keys))
	for id := range keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintln(w, "  Provider credentials:")
	for _, id := range ids {
		status := "not set"
		if keys[id] != "" {
			status = "configured"
		}
		fmt.Fprintf(w, "    %s: %s\n", id, status)
	}
}
