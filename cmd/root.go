package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "handbook-ai",
	Short: "handbook-ai - retrieval-augmented Q&A over the Peeragogy Handbook",
	Long: `handbook-ai answers questions about peer learning, grounded in
passages retrieved from the Peeragogy Handbook corpus.

Run "handbook-ai serve" to start the HTTP API, or "handbook-ai ask"
for a one-shot answer in the terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
