// Package dialogue implements the Dialogue Manager (C6): the
// per-utterance control flow and session/turn state machine that ties
// every other component together (spec §4.6).
package dialogue

import "github.com/rcitylucas/dialogengine/internal/domain/models"

// Config holds the Dialogue Manager's tunables (spec §4.6 "History
// retrieval" K, §5 "per-turn cap" on tool calls).
type Config struct {
	SystemPrompt    string
	HistoryWindow   int // K, default 10-20 per spec §4.6 step 3
	MaxToolCalls    int
	AffectiveTokens []string // closed set scanned for emotional_resonance inference
}

func DefaultConfig() Config {
	return Config{
		SystemPrompt:  "You are a helpful assistant.",
		HistoryWindow: 15,
		MaxToolCalls:  4,
		AffectiveTokens: []string{
			"glad", "grateful", "miss you", "love", "proud of you",
			"i'm sorry", "worried about you", "thank you so much",
		},
	}
}

// ProcessInput is the Dialogue Manager's single primary operation's
// request shape (spec §4.6): process(session_id?, user_id, content,
// content_kind, side_channel).
type ProcessInput struct {
	SessionID   string // empty to bootstrap a new Session
	UserID      string
	Content     string
	ContentKind models.MessageKind
	SideChannel map[string]any // raw context fed to the Context Processor
}

// ToolInvocationSummary is one entry of ProcessOutput's tool-invocation
// summary tags (spec §4.6 step 8).
type ToolInvocationSummary struct {
	ToolName string
	Version  string
	Status   models.InvocationStatus
}

// ProcessOutput is the Dialogue Manager's reply shape (spec §4.6).
type ProcessOutput struct {
	ReplyText        string
	SessionID        string
	TurnID           string
	ToolInvocations  []ToolInvocationSummary
	ProcessingTimeMs int64
	PromptTokens     int
	CompletionTokens int
	RelationshipBand string
	RelationshipRIS  float64
}
