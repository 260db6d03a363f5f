// Package cli holds the idcards command tree.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "idcards",
		Short: "Batch ID card generator",
		Long: `idcards composites per-person ID cards from a background template, a layout
file and a table of records, then optionally packs them onto printable pages.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newLayoutCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}
