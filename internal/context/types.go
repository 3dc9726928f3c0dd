// Package context implements the Context Processor/Injector (C2): it
// normalizes side-channel facts by kind and renders them into a prompt
// prefix, grounded on rainbow_agent's context_processor.py/context_injector.py
// kind-dispatch shape (spec §4.2).
package context

// Kind identifies the shape of a raw side-channel context bag.
type Kind string

const (
	KindGeneral         Kind = "general"
	KindUserProfile     Kind = "user_profile"
	KindDomain          Kind = "domain"
	KindSystem          Kind = "system"
	KindDialogueHistory Kind = "dialogue_history"
	KindLocation        Kind = "location"
)

// Priority gates whether/where injection happens (spec §4.2).
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Mode selects how a rendered prefix is attached to a prompt (spec §4.2).
type Mode string

const (
	ModePrefix Mode = "prefix"
	ModeSystem Mode = "system"
	ModeInline Mode = "inline"
)

// Raw is a side-channel fact bag keyed by the field names documented in
// spec §4.2's kind table (user_info, preferences, domain, knowledge,
// state, features, history, city, province, country, coordinates, ...).
type Raw map[string]any

func (r Raw) kind() Kind {
	if r == nil {
		return KindGeneral
	}
	v, ok := r["type"]
	if !ok {
		return KindGeneral
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return KindGeneral
	}
	return Kind(s)
}

// Normalized is the handler output: the source kind plus a denylist-
// stripped, string-coerced copy of the raw fields.
type Normalized struct {
	Kind   Kind
	Fields map[string]any
}

// HistoryTurn is one entry of a dialogue_history context's transcript.
type HistoryTurn struct {
	Role    string
	Content string
}

// Config mirrors spec §4.2's configuration block and §6's top-level
// config keys of the same name.
type Config struct {
	EnableInjection bool
	MaxContextTokens int
	Priority        Priority
	// HistoryLengthThreshold is the "low priority only injects when
	// history is shorter than a threshold" cutoff (spec §4.2).
	HistoryLengthThreshold int
}

func DefaultConfig() Config {
	return Config{
		EnableInjection:         true,
		MaxContextTokens:        2000,
		Priority:                PriorityMedium,
		HistoryLengthThreshold:  4,
	}
}

// denylist is stripped from every normalized field set regardless of kind
// (spec §4.2).
var denylist = map[string]struct{}{
	"password":   {},
	"token":      {},
	"secret":     {},
	"credential": {},
	"auth":       {},
}

// continuationMarkers is the closed set from spec §4.2's continuity rule.
var continuationMarkers = map[string]struct{}{
	"continue":         {},
	"go on":            {},
	"please continue":  {},
	"keep going":        {},
	"say more":          {},
}

const maxHistoryTurns = 10
