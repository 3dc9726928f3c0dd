// Package config loads the orchestration engine's configuration, following
// the teacher's own ambient choice: a plain struct, a JSON file overlay,
// environment variable overrides, and a Validate() aggregating
// human-readable error strings — no third-party config library, since the
// teacher hand-rolls this layer itself everywhere it appears.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ToolDecisionMode selects the Tool Invoker's decision policy (spec §4.4).
type ToolDecisionMode string

const (
	ToolDecisionRule  ToolDecisionMode = "rule"
	ToolDecisionModel ToolDecisionMode = "model"
)

// ContextPriority is the Context Processor's injection aggressiveness
// (spec §4.2).
type ContextPriority string

const (
	ContextPriorityLow    ContextPriority = "low"
	ContextPriorityMedium ContextPriority = "medium"
	ContextPriorityHigh   ContextPriority = "high"
)

// InjectionPosition is where the Context Injector places its prefix
// (spec §4.2).
type InjectionPosition string

const (
	InjectionPrefix InjectionPosition = "prefix"
	InjectionSystem InjectionPosition = "system"
	InjectionInline InjectionPosition = "inline"
)

// RelationshipWeights must sum to 1.0 (spec §6).
type RelationshipWeights struct {
	Interaction   float64 `json:"interaction"`
	Emotional     float64 `json:"emotional"`
	Collaboration float64 `json:"collaboration"`
}

// Config is the enumerated configuration surface of spec §6.
type Config struct {
	LLM       LLMConfig       `json:"llm"`
	Embedding EmbeddingConfig `json:"embedding"`
	Database  DatabaseConfig  `json:"database"`
	Server    ServerConfig    `json:"server"`

	EnableContextInjection       bool              `json:"enable_context_injection"`
	ContextPriority              ContextPriority   `json:"context_priority"`
	MaxContextTokens             int               `json:"max_context_tokens"`
	ContextInjectionPosition     InjectionPosition `json:"context_injection_position"`
	LogContextUsage              bool              `json:"log_context_usage"`

	MaxToolCalls    int              `json:"max_tool_calls"`
	ToolDecisionMode ToolDecisionMode `json:"tool_decision_mode"`
	ToolTimeoutMS   int              `json:"tool_timeout_ms"`

	MemoryCapacity         int `json:"memory_capacity"`
	ConversationLimit      int `json:"conversation_limit"`
	MaxTurnsPerConversation int `json:"max_turns_per_conversation"`

	EmbeddingEnabled             bool     `json:"embedding_enabled"`
	DiscoveryPaths               []string `json:"discovery_paths"`
	DiscoveryAutoscanIntervalMS  int      `json:"discovery_autoscan_interval_ms"`

	RelationshipWeights   RelationshipWeights `json:"relationship_weights"`
	SilentThresholdDays   int                 `json:"silent_threshold_days"`
	CoolingThresholdDays  int                 `json:"cooling_threshold_days"`
	ActiveMinRounds7d     int                 `json:"active_min_rounds_7d"`

	RetryAttempts int `json:"retry_attempts"`
}

type LLMConfig struct {
	URL         string  `json:"url"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type EmbeddingConfig struct {
	URL        string `json:"url"`
	APIKey     string `json:"api_key"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

type DatabaseConfig struct {
	PostgresURL         string `json:"postgres_url"`
	RelationshipFilePath string `json:"relationship_file_path"`
	MemorySnapshotPath  string `json:"memory_snapshot_path"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			URL:         "http://localhost:8000/v1",
			Model:       "Qwen/Qwen3-8B-AWQ",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Embedding: EmbeddingConfig{
			URL:        "",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
		},
		Database: DatabaseConfig{
			RelationshipFilePath: "relationships.json",
			MemorySnapshotPath:   "memory.snapshot",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		EnableContextInjection:      true,
		ContextPriority:             ContextPriorityMedium,
		MaxContextTokens:            2000,
		ContextInjectionPosition:    InjectionSystem,
		LogContextUsage:             false,
		MaxToolCalls:                3,
		ToolDecisionMode:            ToolDecisionRule,
		ToolTimeoutMS:               30000,
		MemoryCapacity:              1000,
		ConversationLimit:           200,
		MaxTurnsPerConversation:     0,
		EmbeddingEnabled:            false,
		DiscoveryPaths:              nil,
		DiscoveryAutoscanIntervalMS: 60000,
		RelationshipWeights: RelationshipWeights{
			Interaction:   0.4,
			Emotional:     0.35,
			Collaboration: 0.25,
		},
		SilentThresholdDays:  14,
		CoolingThresholdDays: 7,
		ActiveMinRounds7d:    21,
		RetryAttempts:        2,
	}
}

func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

func envFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

func envBool(key string, target *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

func envStringSlice(key string, target *[]string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			*target = result
		}
	}
}

// getConfigPath resolves the JSON config file location: DIALOGENGINE_CONFIG
// if set, otherwise ~/.config/dialogengine/config.json.
func getConfigPath() string {
	if path := os.Getenv("DIALOGENGINE_CONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "dialogengine", "config.json")
}

// isValidURL reports whether s parses as an absolute URL with scheme and host.
func isValidURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// Load loads configuration from an optional JSON file overlaid with
// environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := getConfigPath(); path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to parse config file %s: %v\n", path, err)
			}
		}
	}

	envString("DIALOGENGINE_LLM_URL", &cfg.LLM.URL)
	envString("DIALOGENGINE_LLM_API_KEY", &cfg.LLM.APIKey)
	envString("DIALOGENGINE_LLM_MODEL", &cfg.LLM.Model)
	envInt("DIALOGENGINE_LLM_MAX_TOKENS", &cfg.LLM.MaxTokens)
	envFloat("DIALOGENGINE_LLM_TEMPERATURE", &cfg.LLM.Temperature)

	envString("DIALOGENGINE_EMBEDDING_URL", &cfg.Embedding.URL)
	envString("DIALOGENGINE_EMBEDDING_API_KEY", &cfg.Embedding.APIKey)
	envString("DIALOGENGINE_EMBEDDING_MODEL", &cfg.Embedding.Model)
	envInt("DIALOGENGINE_EMBEDDING_DIMENSIONS", &cfg.Embedding.Dimensions)
	envBool("DIALOGENGINE_EMBEDDING_ENABLED", &cfg.EmbeddingEnabled)

	envString("DIALOGENGINE_POSTGRES_URL", &cfg.Database.PostgresURL)
	envString("DIALOGENGINE_RELATIONSHIP_FILE", &cfg.Database.RelationshipFilePath)
	envString("DIALOGENGINE_MEMORY_SNAPSHOT", &cfg.Database.MemorySnapshotPath)

	envString("DIALOGENGINE_SERVER_HOST", &cfg.Server.Host)
	envInt("DIALOGENGINE_SERVER_PORT", &cfg.Server.Port)

	envBool("DIALOGENGINE_ENABLE_CONTEXT_INJECTION", &cfg.EnableContextInjection)
	envInt("DIALOGENGINE_MAX_CONTEXT_TOKENS", &cfg.MaxContextTokens)
	envInt("DIALOGENGINE_MAX_TOOL_CALLS", &cfg.MaxToolCalls)
	envInt("DIALOGENGINE_TOOL_TIMEOUT_MS", &cfg.ToolTimeoutMS)
	envInt("DIALOGENGINE_MEMORY_CAPACITY", &cfg.MemoryCapacity)
	envInt("DIALOGENGINE_CONVERSATION_LIMIT", &cfg.ConversationLimit)
	envStringSlice("DIALOGENGINE_DISCOVERY_PATHS", &cfg.DiscoveryPaths)
	envInt("DIALOGENGINE_DISCOVERY_AUTOSCAN_INTERVAL_MS", &cfg.DiscoveryAutoscanIntervalMS)
	envInt("DIALOGENGINE_SILENT_THRESHOLD_DAYS", &cfg.SilentThresholdDays)
	envInt("DIALOGENGINE_COOLING_THRESHOLD_DAYS", &cfg.CoolingThresholdDays)
	envInt("DIALOGENGINE_ACTIVE_MIN_ROUNDS_7D", &cfg.ActiveMinRounds7d)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration has internally consistent values.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}
	if c.LLM.URL == "" {
		errs = append(errs, "LLM URL is required")
	} else if !isValidURL(c.LLM.URL) {
		errs = append(errs, "LLM URL must be a valid URL")
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, "LLM max_tokens must be positive")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "LLM temperature must be between 0 and 2")
	}
	if c.MaxToolCalls < 1 {
		errs = append(errs, "max_tool_calls must be positive")
	}
	if c.ToolDecisionMode != ToolDecisionRule && c.ToolDecisionMode != ToolDecisionModel {
		errs = append(errs, "tool_decision_mode must be 'rule' or 'model'")
	}
	sum := c.RelationshipWeights.Interaction + c.RelationshipWeights.Emotional + c.RelationshipWeights.Collaboration
	if sum < 0.999 || sum > 1.001 {
		errs = append(errs, fmt.Sprintf("relationship_weights must sum to 1.0, got %f", sum))
	}
	if c.Database.PostgresURL == "" {
		errs = append(errs, "PostgreSQL URL is required")
	} else if !isValidURL(c.Database.PostgresURL) {
		errs = append(errs, "PostgreSQL URL must be a valid URL")
	}
	if c.EmbeddingEnabled {
		if c.Embedding.URL == "" {
			errs = append(errs, "Embedding URL is required when embedding_enabled is true")
		} else if !isValidURL(c.Embedding.URL) {
			errs = append(errs, "Embedding URL must be a valid URL")
		}
		if c.Embedding.Dimensions <= 0 {
			errs = append(errs, "Embedding dimensions must be positive when embedding_enabled is true")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// IsEmbeddingConfigured reports whether an embedding provider URL is set.
func (c *Config) IsEmbeddingConfigured() bool {
	return c.Embedding.URL != ""
}
