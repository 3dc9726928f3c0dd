package context

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcitylucas/dialogengine/internal/ports"
)

func TestInjector_ContinuityRuleMentionsPriorTopic(t *testing.T) {
	inj := NewInjector(DefaultConfig())

	n := Normalized{Kind: KindGeneral, Fields: map[string]any{}}
	prefix := inj.BuildPrefix(n, "continue", []string{"tell me about Tesla"}, "Tesla is an American electric-vehicle company.")

	assert.Contains(t, prefix, "Tesla")
	assert.NotContains(t, strings.ToLower(prefix), "switch topics")
}

func TestInjector_ContinuityRuleFallsBackToAssistantTail(t *testing.T) {
	inj := NewInjector(DefaultConfig())

	n := Normalized{Kind: KindGeneral, Fields: map[string]any{}}
	prefix := inj.BuildPrefix(n, "go on", nil, "The quick brown fox jumps over the lazy dog and keeps running")

	assert.Contains(t, prefix, "The quick brown fox")
}

func TestInjector_NoContinuityHintWhenNotAMarker(t *testing.T) {
	inj := NewInjector(DefaultConfig())

	n := Normalized{Kind: KindGeneral, Fields: map[string]any{}}
	prefix := inj.BuildPrefix(n, "what's the weather", []string{"tell me about Tesla"}, "")

	assert.NotContains(t, prefix, "continue")
}

func TestInjector_MaxContextTokensCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContextTokens = 10
	inj := NewInjector(cfg)

	n := Normalized{Kind: KindGeneral, Fields: map[string]any{"fact": strings.Repeat("x", 100)}}
	prefix := inj.BuildPrefix(n, "", nil, "")
	assert.LessOrEqual(t, len([]rune(prefix)), 10)
}

func TestInjector_ShouldInjectLowPriorityGate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Priority = PriorityLow
	cfg.HistoryLengthThreshold = 4
	inj := NewInjector(cfg)

	assert.True(t, inj.ShouldInject(1))
	assert.False(t, inj.ShouldInject(10))
}

func TestInjector_InjectToMessagesMergesIntoExistingSystem(t *testing.T) {
	inj := NewInjector(DefaultConfig())
	messages := []ports.ChatMessage{
		{Role: ports.RoleSystem, Content: "base prompt"},
		{Role: ports.RoleUser, Content: "hi"},
	}
	out := inj.InjectToMessages(messages, "extra context")
	require.Len(t, out, 2)
	assert.Equal(t, "extra context\n\nbase prompt", out[0].Content)
}

func TestInjector_InjectToMessagesInsertsNewSystem(t *testing.T) {
	inj := NewInjector(DefaultConfig())
	messages := []ports.ChatMessage{{Role: ports.RoleUser, Content: "hi"}}
	out := inj.InjectToMessages(messages, "extra context")
	require.Len(t, out, 2)
	assert.Equal(t, ports.RoleSystem, out[0].Role)
	assert.Equal(t, "extra context", out[0].Content)
}

func TestInjector_InjectToPrompt(t *testing.T) {
	inj := NewInjector(DefaultConfig())
	out := inj.InjectToPrompt("answer this", "ctx")
	assert.Equal(t, "ctx\n\nanswer this", out)
}

func TestInjector_InjectToHistoryPrepends(t *testing.T) {
	inj := NewInjector(DefaultConfig())
	history := []ports.ChatMessage{{Role: ports.RoleUser, Content: "hi"}}
	out := inj.InjectToHistory(history, "ctx")
	require.Len(t, out, 2)
	assert.Equal(t, ports.RoleSystem, out[0].Role)
}

func TestInjector_LocationRender(t *testing.T) {
	p := NewProcessor()
	n := p.Process(Raw{"type": "location", "city": "Austin", "country": "USA"})
	inj := NewInjector(DefaultConfig())
	prefix := inj.BuildPrefix(n, "", nil, "")
	assert.Contains(t, prefix, "Austin")
	assert.Contains(t, prefix, "USA")
}
