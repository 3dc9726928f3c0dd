package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/rcitylucas/dialogengine/internal/adapters/embedding"
	dialoguehttp "github.com/rcitylucas/dialogengine/internal/adapters/http"
	"github.com/rcitylucas/dialogengine/internal/adapters/id"
	"github.com/rcitylucas/dialogengine/internal/adapters/model"
	"github.com/rcitylucas/dialogengine/internal/adapters/postgres"
	"github.com/rcitylucas/dialogengine/internal/adapters/relationshipfile"
	"github.com/rcitylucas/dialogengine/internal/adapters/tracing"
	"github.com/rcitylucas/dialogengine/internal/config"
	dctx "github.com/rcitylucas/dialogengine/internal/context"
	"github.com/rcitylucas/dialogengine/internal/dialogue"
	"github.com/rcitylucas/dialogengine/internal/invoker"
	"github.com/rcitylucas/dialogengine/internal/memory"
	"github.com/rcitylucas/dialogengine/internal/metrics"
	"github.com/rcitylucas/dialogengine/internal/ports"
	"github.com/rcitylucas/dialogengine/internal/relationship"
	"github.com/rcitylucas/dialogengine/internal/tools"
	"github.com/rcitylucas/dialogengine/internal/tools/builtin"
)

// serveCmd starts the HTTP API server, wiring every component in the same
// dependency order the teacher's runServer follows: database, then
// repositories, then application services, then the transport.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the dialogue engine's HTTP server.

Required configuration:
  - PostgreSQL database (DIALOGENGINE_POSTGRES_URL)
  - LLM endpoint (DIALOGENGINE_LLM_URL)

Optional:
  - Embedding endpoint (DIALOGENGINE_EMBEDDING_URL, DIALOGENGINE_EMBEDDING_ENABLED)
  - Tool discovery paths (DIALOGENGINE_DISCOVERY_PATHS)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	shutdownTracing, err := tracing.InitTracer("dialogengine")
	if err != nil {
		return fmt.Errorf("failed to init tracer: %w", err)
	}
	defer shutdownTracing(context.Background())

	pool, err := initDB(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	idGen := id.New()

	sessionRepo := postgres.NewSessionRepository(pool)
	turnRepo := postgres.NewTurnRepository(pool)
	messageRepo := postgres.NewMessageRepository(pool)
	memoryItemRepo := postgres.NewMemoryItemRepository(pool)

	recordStore, err := relationshipfile.NewRecordStore(cfg.Database.RelationshipFilePath)
	if err != nil {
		return fmt.Errorf("failed to open relationship record store: %w", err)
	}
	taskStore, err := relationshipfile.NewTaskStore(cfg.Database.RelationshipFilePath + ".tasks")
	if err != nil {
		return fmt.Errorf("failed to open relationship task store: %w", err)
	}

	var embedder ports.EmbeddingService
	if cfg.IsEmbeddingConfigured() {
		embedder = embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)
	}
	modelClient := model.NewClient(cfg.LLM.URL, cfg.LLM.APIKey)

	memoryManager := memory.NewManager()
	if err := memoryManager.Register("short_term", memory.NewSimilarityStore(cfg.MemoryCapacity, embedder, idGen), true); err != nil {
		return fmt.Errorf("failed to register short-term memory store: %w", err)
	}
	if err := memoryManager.Register("long_term", memory.NewPostgresSimilarityStore(memoryItemRepo, embedder, idGen), false); err != nil {
		return fmt.Errorf("failed to register long-term memory store: %w", err)
	}

	registry := tools.NewRegistry()
	if err := builtin.RegisterAll(registry, memoryManager); err != nil {
		return fmt.Errorf("failed to register builtin tools: %w", err)
	}
	if len(cfg.DiscoveryPaths) > 0 {
		discovery := tools.NewDiscovery(registry, cfg.DiscoveryPaths)
		discovery.Scan(ctx)
		go func() {
			interval := time.Duration(cfg.DiscoveryAutoscanIntervalMS) * time.Millisecond
			if err := discovery.Watch(ctx, interval); err != nil {
				log.Printf("tools: discovery watcher stopped: %v", err)
			}
		}()
	}
	versionManager := tools.NewVersionManager(registry)

	decider := buildDecider(cfg, modelClient)
	toolInvoker := invoker.NewInvoker(versionManager, decider, idGen, time.Duration(cfg.ToolTimeoutMS)*time.Millisecond)

	relationshipEngine := relationship.NewEngine(recordStore, taskStore, idGen)

	processor := dctx.NewProcessor()
	injector := dctx.NewInjector(dctx.Config{
		EnableInjection:        cfg.EnableContextInjection,
		MaxContextTokens:       cfg.MaxContextTokens,
		Priority:               dctx.Priority(cfg.ContextPriority),
		HistoryLengthThreshold: 4,
	})

	dialogueManager := dialogue.NewManager(sessionRepo, turnRepo, messageRepo, idGen, processor, injector, relationshipEngine, toolInvoker, modelClient, dialogue.Config{
		SystemPrompt:  "You are a helpful assistant.",
		HistoryWindow: 20,
		MaxToolCalls:  cfg.MaxToolCalls,
	})

	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)
	dialogueManager.SetMetrics(recorder)
	toolInvoker.SetMetrics(recorder)
	relationshipEngine.SetMetrics(recorder)

	broadcaster := dialoguehttp.NewBroadcaster()
	server := dialoguehttp.NewServer(sessionRepo, turnRepo, idGen, dialogueManager, registry, relationshipEngine, broadcaster)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("dialogued: listening on %s", addr)
	server.Start(addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("dialogued: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildDecider selects the Tool Invoker's decision policy per
// cfg.ToolDecisionMode (spec §4.4). The rule-based default triggers the
// calculator on arithmetic-looking utterances and memory_query on
// recall-shaped ones; the model-based mode asks the configured LLM for a
// structured decision.
func buildDecider(cfg *config.Config, modelClient ports.ModelService) invoker.Decider {
	if cfg.ToolDecisionMode == config.ToolDecisionModel {
		return invoker.NewModelDecider(modelClient, cfg.LLM.Model, parseModelDecision)
	}
	return invoker.NewRuleDecider(3, []invoker.RuleCandidate{
		{ToolName: "calculator", Trigger: looksArithmetic},
		{ToolName: "memory_query", Trigger: looksLikeRecall},
	})
}

func looksArithmetic(utterance string) bool {
	hasDigit := false
	for _, r := range utterance {
		if r >= '0' && r <= '9' {
			hasDigit = true
			break
		}
	}
	return hasDigit && strings.ContainsAny(utterance, "+-*/^")
}

func looksLikeRecall(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, phrase := range []string{"remember", "recall", "what did i say", "earlier"} {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// parseModelDecision decodes a ModelDecider's raw model reply into a
// Decision, tolerating a surrounding code fence.
func parseModelDecision(text string) (invoker.Decision, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var raw struct {
		ShouldUseTool bool           `json:"should_use_tool"`
		ToolName      string         `json:"tool_name"`
		ToolArgs      map[string]any `json:"tool_args"`
		Reasoning     string         `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return invoker.Decision{}, err
	}
	return invoker.Decision{
		ShouldUseTool: raw.ShouldUseTool,
		ToolName:      raw.ToolName,
		ToolArgs:      raw.ToolArgs,
		Reasoning:     raw.Reasoning,
	}, nil
}
