package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// configCmd shows the current configuration, masking secrets, mirroring
// the teacher's configCmd.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("LLM:")
			fmt.Printf("  URL:         %s\n", cfg.LLM.URL)
			fmt.Printf("  Model:       %s\n", cfg.LLM.Model)
			fmt.Printf("  Max Tokens:  %d\n", cfg.LLM.MaxTokens)
			fmt.Printf("  Temperature: %.2f\n", cfg.LLM.Temperature)
			fmt.Printf("  API Key:     %s\n", maskSecret(cfg.LLM.APIKey))
			fmt.Println()

			fmt.Println("Embedding:")
			fmt.Printf("  URL:        %s\n", cfg.Embedding.URL)
			fmt.Printf("  Model:      %s\n", cfg.Embedding.Model)
			fmt.Printf("  Dimensions: %d\n", cfg.Embedding.Dimensions)
			fmt.Printf("  API Key:    %s\n", maskSecret(cfg.Embedding.APIKey))
			fmt.Printf("  Status:     %s\n", boolStatus(cfg.IsEmbeddingConfigured()))
			fmt.Println()

			fmt.Println("Database:")
			fmt.Printf("  PostgreSQL:           %s\n", maskSecret(cfg.Database.PostgresURL))
			fmt.Printf("  Relationship File:    %s\n", cfg.Database.RelationshipFilePath)
			fmt.Printf("  Memory Snapshot Path: %s\n", cfg.Database.MemorySnapshotPath)
			fmt.Println()

			fmt.Println("Server:")
			fmt.Printf("  Host: %s\n", cfg.Server.Host)
			fmt.Printf("  Port: %d\n", cfg.Server.Port)
			fmt.Println()

			fmt.Println("Context Injection:")
			fmt.Printf("  Enabled:  %v\n", cfg.EnableContextInjection)
			fmt.Printf("  Priority: %s\n", cfg.ContextPriority)
			fmt.Printf("  Position: %s\n", cfg.ContextInjectionPosition)
			fmt.Printf("  Max Tokens: %d\n", cfg.MaxContextTokens)
			fmt.Println()

			fmt.Println("Tools:")
			fmt.Printf("  Decision Mode:     %s\n", cfg.ToolDecisionMode)
			fmt.Printf("  Max Tool Calls:    %d\n", cfg.MaxToolCalls)
			fmt.Printf("  Tool Timeout (ms): %d\n", cfg.ToolTimeoutMS)
			fmt.Printf("  Discovery Paths:   %v\n", cfg.DiscoveryPaths)
			fmt.Println()

			fmt.Println("Memory:")
			fmt.Printf("  Capacity:                  %d\n", cfg.MemoryCapacity)
			fmt.Printf("  Conversation Limit:        %d\n", cfg.ConversationLimit)
			fmt.Printf("  Max Turns Per Conversation: %d\n", cfg.MaxTurnsPerConversation)
			fmt.Println()

			fmt.Println("Relationship:")
			fmt.Printf("  Weights:               interaction=%.2f emotional=%.2f collaboration=%.2f\n",
				cfg.RelationshipWeights.Interaction, cfg.RelationshipWeights.Emotional, cfg.RelationshipWeights.Collaboration)
			fmt.Printf("  Silent Threshold Days: %d\n", cfg.SilentThresholdDays)
			fmt.Printf("  Cooling Threshold Days: %d\n", cfg.CoolingThresholdDays)
			fmt.Printf("  Active Min Rounds/7d:  %d\n", cfg.ActiveMinRounds7d)
			fmt.Println()

			fmt.Println("Environment variables:")
			fmt.Println("  DIALOGENGINE_LLM_URL, DIALOGENGINE_LLM_API_KEY, DIALOGENGINE_LLM_MODEL")
			fmt.Println("  DIALOGENGINE_EMBEDDING_URL, DIALOGENGINE_EMBEDDING_API_KEY, DIALOGENGINE_EMBEDDING_ENABLED")
			fmt.Println("  DIALOGENGINE_POSTGRES_URL, DIALOGENGINE_RELATIONSHIP_FILE, DIALOGENGINE_MEMORY_SNAPSHOT")
			fmt.Println("  DIALOGENGINE_SERVER_HOST, DIALOGENGINE_SERVER_PORT")
			fmt.Println("  DIALOGENGINE_CONFIG (path to a JSON config file overlay)")

			return nil
		},
	}
}
