package context

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/rcitylucas/dialogengine/internal/ports"
)

// Injector renders a Normalized context into a prefix and attaches it to a
// prompt, message list, or history list per the configured Mode (spec
// §4.2).
type Injector struct {
	cfg Config
}

func NewInjector(cfg Config) *Injector {
	return &Injector{cfg: cfg}
}

// ShouldInject applies the priority gate: at low priority, injection only
// happens when the conversation history is shorter than the configured
// threshold (spec §4.2).
func (inj *Injector) ShouldInject(historyLen int) bool {
	if !inj.cfg.EnableInjection {
		return false
	}
	if inj.cfg.Priority == PriorityLow && historyLen >= inj.cfg.HistoryLengthThreshold {
		return false
	}
	return true
}

// BuildPrefix renders n into the textual block described by spec §4.2's
// kind table, then applies the continuity rule and the max_context_tokens
// cap (by grapheme-count proxy).
func (inj *Injector) BuildPrefix(n Normalized, lastUserMessage string, priorUserMessages []string, lastAssistantMessage string) string {
	var b strings.Builder
	b.WriteString(renderKind(n))

	if hint := continuityHint(lastUserMessage, priorUserMessages, lastAssistantMessage); hint != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(hint)
	}

	out := b.String()
	if inj.cfg.MaxContextTokens > 0 {
		out = truncateGraphemes(out, inj.cfg.MaxContextTokens)
	}
	return out
}

// InjectToPrompt implements the "prefix" mode: concatenate ahead of the
// prompt string.
func (inj *Injector) InjectToPrompt(prompt, prefix string) string {
	if prefix == "" {
		return prompt
	}
	return prefix + "\n\n" + prompt
}

// InjectToMessages implements the "system" mode: merge into the first
// system-role message, or insert a new one at the head.
func (inj *Injector) InjectToMessages(messages []ports.ChatMessage, prefix string) []ports.ChatMessage {
	if prefix == "" {
		return messages
	}
	out := make([]ports.ChatMessage, len(messages))
	copy(out, messages)
	for i := range out {
		if out[i].Role == ports.RoleSystem {
			out[i].Content = prefix + "\n\n" + out[i].Content
			return out
		}
	}
	return append([]ports.ChatMessage{{Role: ports.RoleSystem, Content: prefix}}, out...)
}

// InjectToHistory implements the "inline" mode: prepend a system-role
// message at the head of a history list.
func (inj *Injector) InjectToHistory(history []ports.ChatMessage, prefix string) []ports.ChatMessage {
	if prefix == "" || len(history) == 0 {
		return history
	}
	out := make([]ports.ChatMessage, 0, len(history)+1)
	out = append(out, ports.ChatMessage{Role: ports.RoleSystem, Content: prefix})
	out = append(out, history...)
	return out
}

func renderKind(n Normalized) string {
	switch n.Kind {
	case KindUserProfile:
		return renderUserProfile(n.Fields)
	case KindDomain:
		return renderDomain(n.Fields)
	case KindSystem:
		return renderSystemState(n.Fields)
	case KindDialogueHistory:
		return renderDialogueHistory(n.Fields)
	case KindLocation:
		return renderLocation(n.Fields)
	default:
		return renderGeneral(n.Fields)
	}
}

func renderGeneral(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	keys := sortedKeys(fields)
	var b strings.Builder
	b.WriteString("system: consider the following context when answering:")
	for _, k := range keys {
		switch v := fields[k].(type) {
		case map[string]any:
			b.WriteString(fmt.Sprintf("\n- %s:", k))
			for _, sk := range sortedKeys(v) {
				b.WriteString(fmt.Sprintf("\n  - %s: %v", sk, v[sk]))
			}
		default:
			b.WriteString(fmt.Sprintf("\n- %s: %v", k, v))
		}
	}
	return b.String()
}

func renderUserProfile(fields map[string]any) string {
	var b strings.Builder
	b.WriteString("system: user profile:")
	if info, ok := fields["user_info"].(map[string]any); ok && len(info) > 0 {
		b.WriteString("\nuser info:")
		for _, k := range sortedKeys(info) {
			b.WriteString(fmt.Sprintf("\n- %s: %v", k, info[k]))
		}
	}
	if prefs, ok := fields["preferences"].(map[string]any); ok && len(prefs) > 0 {
		b.WriteString("\npreferences:")
		for _, k := range sortedKeys(prefs) {
			b.WriteString(fmt.Sprintf("\n- %s: %v", k, prefs[k]))
		}
	}
	return b.String()
}

func renderDomain(fields map[string]any) string {
	domain := "general"
	if d, ok := fields["domain"].(string); ok && d != "" {
		domain = d
	}
	var b strings.Builder
	b.WriteString("system: consult the following domain knowledge when answering:")
	b.WriteString(fmt.Sprintf("\ndomain: %s", domain))
	if knowledge, ok := fields["knowledge"].([]string); ok && len(knowledge) > 0 {
		b.WriteString("\nknowledge:")
		for _, item := range knowledge {
			b.WriteString(fmt.Sprintf("\n- %s", item))
		}
	}
	return b.String()
}

func renderSystemState(fields map[string]any) string {
	var b strings.Builder
	b.WriteString("system: current system state:")
	if state, ok := fields["state"].(map[string]any); ok && len(state) > 0 {
		b.WriteString("\nstate:")
		for _, k := range sortedKeys(state) {
			b.WriteString(fmt.Sprintf("\n- %s: %v", k, state[k]))
		}
	}
	if features, ok := fields["features"].([]string); ok && len(features) > 0 {
		b.WriteString("\navailable features:")
		for _, f := range features {
			b.WriteString(fmt.Sprintf("\n- %s", f))
		}
	}
	return b.String()
}

func renderDialogueHistory(fields map[string]any) string {
	history, _ := fields["history"].([]HistoryTurn)
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("system: the following is the dialogue history; reply coherently with it.\n\n")
	b.WriteString("when the user says \"continue\", \"go on\", or similar, you must keep expanding the prior topic, never start a new one.\n\n")
	b.WriteString("dialogue history (pay attention to the most recent topic):\n")

	var lastTopic string
	for _, turn := range history {
		b.WriteString(fmt.Sprintf("%s: %s\n", turn.Role, turn.Content))
		if turn.Role == string(ports.RoleUser) && !isContinuationMarker(turn.Content) {
			lastTopic = turn.Content
		}
	}
	if lastTopic != "" {
		b.WriteString(fmt.Sprintf("\nsystem: if the user asks to continue, keep providing information about: %s\n", lastTopic))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderLocation(fields map[string]any) string {
	var b strings.Builder
	b.WriteString("system: user location:")
	if city, ok := fields["city"].(string); ok && city != "" {
		b.WriteString(fmt.Sprintf("\ncity: %s", city))
	}
	if province, ok := fields["province"].(string); ok && province != "" {
		b.WriteString(fmt.Sprintf("\nprovince/state: %s", province))
	}
	if country, ok := fields["country"].(string); ok && country != "" {
		b.WriteString(fmt.Sprintf("\ncountry: %s", country))
	}
	if coords, ok := fields["coordinates"].(map[string]any); ok {
		lat, latOK := coords["latitude"]
		lng, lngOK := coords["longitude"]
		if latOK && lngOK {
			b.WriteString(fmt.Sprintf("\ncoordinates: lat %v, lng %v", lat, lng))
		}
	}
	return b.String()
}

// isContinuationMarker reports whether s (trimmed, case-folded) is in the
// closed continuation-marker set (spec §4.2).
func isContinuationMarker(s string) bool {
	_, ok := continuationMarkers[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// continuityHint implements spec §4.2's continuity rule: when
// lastUserMessage is a continuation marker, emit an explicit instruction to
// keep expanding the prior topic. The prior topic is the most recent
// message in priorUserMessages of length >1 that is not itself a
// continuation marker; failing that, the first 20 graphemes of
// lastAssistantMessage.
func continuityHint(lastUserMessage string, priorUserMessages []string, lastAssistantMessage string) string {
	if !isContinuationMarker(lastUserMessage) {
		return ""
	}

	var topic string
	for i := len(priorUserMessages) - 1; i >= 0; i-- {
		candidate := priorUserMessages[i]
		if uniseg.GraphemeClusterCount(candidate) > 1 && !isContinuationMarker(candidate) {
			topic = candidate
			break
		}
	}
	if topic == "" && lastAssistantMessage != "" {
		topic = firstGraphemes(lastAssistantMessage, 20)
	}
	if topic == "" {
		return "system: continue expanding the prior topic; do not start a new one."
	}
	return fmt.Sprintf("system: the user is asking to continue. Keep expanding the prior topic (%q); do not begin a new topic or repeat what was already said.", topic)
}

func firstGraphemes(s string, n int) string {
	gr := uniseg.NewGraphemes(s)
	var b strings.Builder
	count := 0
	for count < n && gr.Next() {
		b.WriteString(gr.Str())
		count++
	}
	return b.String()
}

func truncateGraphemes(s string, max int) string {
	if uniseg.GraphemeClusterCount(s) <= max {
		return s
	}
	return firstGraphemes(s, max)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
