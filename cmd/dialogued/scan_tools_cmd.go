package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcitylucas/dialogengine/internal/tools"
	"github.com/rcitylucas/dialogengine/internal/tools/builtin"
)

// scanToolsCmd runs one Tool Registry discovery pass over the configured
// discovery paths and prints what it finds (spec §4.3 "Dynamic
// discovery"). It registers the builtin tool set first so the printed
// registry reflects what a running server would expose, minus anything a
// connected memory store would additionally contribute.
func scanToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan-tools",
		Short: "Scan configured discovery paths and list registered tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			registry := tools.NewRegistry()
			if err := builtin.RegisterAll(registry, nil); err != nil {
				return fmt.Errorf("failed to register builtin tools: %w", err)
			}

			if len(cfg.DiscoveryPaths) > 0 {
				discovery := tools.NewDiscovery(registry, cfg.DiscoveryPaths)
				discovery.Scan(ctx)
			} else {
				fmt.Println("no discovery paths configured (DIALOGENGINE_DISCOVERY_PATHS); listing builtin tools only")
			}

			for _, tool := range registry.List() {
				fmt.Printf("%-16s v%-10s %-12s %s\n", tool.Name(), tool.Version(), tool.Status(), tool.Description())
			}
			return nil
		},
	}
}
