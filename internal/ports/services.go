package ports

import "context"

// Role is a message role in a Model Interface request (spec §6).
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ChatMessage is one entry of the ordered message list the Model Interface
// consumes.
type ChatMessage struct {
	Role    Role
	Content string
}

// ModelConfig carries per-call generation knobs (spec §6).
type ModelConfig struct {
	ModelName      string
	Temperature    float64
	MaxOutputTokens int
	Stop           []string
}

// Usage reports token accounting for one generate call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ModelService is the Model Interface (consumed, spec §6): a single
// generate function. Errors are classified via domain.KindOf — transient
// failures carry domain.KindUnavailable/KindTimeout, fatal ones
// domain.KindInternal/domain.KindInvalidArgument.
type ModelService interface {
	Generate(ctx context.Context, messages []ChatMessage, cfg ModelConfig) (text string, usage Usage, err error)
}

// EmbeddingService is the Embedding Interface (consumed, spec §6).
// Embed returns domain.KindUnavailable when the provider is configured but
// down, so the Memory Store can fall back to substring search for that item
// (spec §4.1).
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
