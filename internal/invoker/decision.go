// Package invoker implements the Tool Invoker (C4): deciding whether/which
// tool to call from an utterance, executing it with a per-call timeout,
// and formatting the outcome for the next prompt-assembly stage (spec
// §4.4).
package invoker

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rcitylucas/dialogengine/internal/ports"
)

// DecisionMode selects between the two decision policies of spec §4.4.
type DecisionMode string

const (
	ModeRule  DecisionMode = "rule"
	ModeModel DecisionMode = "model"
)

// Decision is the outcome of one decider invocation: at most one tool
// call, per call (spec §4.4).
type Decision struct {
	ShouldUseTool bool
	ToolName      string
	ToolArgs      map[string]any
	Reasoning     string
}

// TriggerPredicate reports whether a tool is relevant to an utterance,
// used by rule-based decisioning (spec §4.4).
type TriggerPredicate func(utterance string) bool

// RuleCandidate pairs a tool name with its trigger predicate.
type RuleCandidate struct {
	ToolName string
	Trigger  TriggerPredicate
}

// Decider implements one of spec §4.4's two decision policies.
type Decider interface {
	Decide(ctx context.Context, utterance string, hints map[string]any) (Decision, error)
}

// RuleDecider rejects short utterances and pure greetings outright, then
// considers a tool only if its trigger predicate matches (spec §4.4
// "Rule-based").
type RuleDecider struct {
	MinLength  int
	Candidates []RuleCandidate
}

func NewRuleDecider(minLength int, candidates []RuleCandidate) *RuleDecider {
	return &RuleDecider{MinLength: minLength, Candidates: candidates}
}

var greetings = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "yo": {},
	"你好": {}, "嗨": {},
}

func (d *RuleDecider) Decide(ctx context.Context, utterance string, hints map[string]any) (Decision, error) {
	trimmed := strings.TrimSpace(utterance)
	if _, isGreeting := greetings[strings.ToLower(trimmed)]; isGreeting {
		return Decision{}, nil
	}
	if utf8.RuneCountInString(trimmed) < d.MinLength {
		return Decision{}, nil
	}
	for _, c := range d.Candidates {
		if c.Trigger(trimmed) {
			return Decision{ShouldUseTool: true, ToolName: c.ToolName, ToolArgs: map[string]any{"utterance": trimmed}, Reasoning: "rule trigger matched"}, nil
		}
	}
	return Decision{}, nil
}

// ModelDecider asks the Model Interface for a structured JSON decision;
// malformed responses default to no tool use (spec §4.4 "Model-based").
type ModelDecider struct {
	model      ports.ModelService
	modelName  string
	parseReply func(text string) (Decision, error)
}

func NewModelDecider(model ports.ModelService, modelName string, parseReply func(text string) (Decision, error)) *ModelDecider {
	return &ModelDecider{model: model, modelName: modelName, parseReply: parseReply}
}

func (d *ModelDecider) Decide(ctx context.Context, utterance string, hints map[string]any) (Decision, error) {
	prompt := buildDecisionPrompt(utterance, hints)
	text, _, err := d.model.Generate(ctx, []ports.ChatMessage{
		{Role: ports.RoleSystem, Content: "Respond with a single JSON object: {\"should_use_tool\": bool, \"tool_name\": string, \"tool_args\": object, \"reasoning\": string}."},
		{Role: ports.RoleUser, Content: prompt},
	}, ports.ModelConfig{ModelName: d.modelName})
	if err != nil {
		return Decision{}, err
	}
	decision, err := d.parseReply(text)
	if err != nil {
		// Malformed responses default to no tool use (spec §4.4).
		return Decision{}, nil
	}
	return decision, nil
}

func buildDecisionPrompt(utterance string, hints map[string]any) string {
	var b strings.Builder
	b.WriteString("Utterance: ")
	b.WriteString(utterance)
	if len(hints) > 0 {
		b.WriteString("\nHints:")
		for k, v := range hints {
			b.WriteString("\n- ")
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(toString(v))
		}
	}
	return b.String()
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
