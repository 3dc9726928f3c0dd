// Command dialogued runs the dialogue orchestration engine: a Postgres-
// backed session/turn store, a Context Processor, a versioned Tool
// Registry/Invoker, and a Relationship Engine, fronted by an illustrative
// HTTP transport. Grounded on the teacher's cmd/alicia — same cobra root
// command plus config/version/serve subcommands, generalized with a
// scan-tools subcommand for this engine's Tool Registry discovery.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcitylucas/dialogengine/internal/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dialogued",
		Short: "Dialogue orchestration engine CLI",
		Long: `dialogued runs the dialogue orchestration engine: memory, context
injection, tool invocation, and relationship tracking behind a single
process(...) turn operation.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		scanToolsCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
