package context

import (
	"fmt"
	"strings"
)

// Handler normalizes one context Kind, per spec §4.2's
// {accepts(kind)→bool, process(raw)→normalized} pair.
type Handler interface {
	Accepts(kind Kind) bool
	Process(raw Raw) Normalized
}

// Processor dispatches a raw side-channel bag to the handler registered for
// its kind, falling back to the general handler for unregistered kinds
// (spec §4.2).
type Processor struct {
	handlers map[Kind]Handler
	general  Handler
}

func NewProcessor() *Processor {
	general := generalHandler{}
	p := &Processor{
		handlers: make(map[Kind]Handler),
		general:  general,
	}
	p.Register(general)
	p.Register(userProfileHandler{})
	p.Register(domainHandler{})
	p.Register(systemHandler{})
	p.Register(dialogueHistoryHandler{})
	p.Register(locationHandler{})
	return p
}

func (p *Processor) Register(h Handler) {
	for _, k := range []Kind{KindGeneral, KindUserProfile, KindDomain, KindSystem, KindDialogueHistory, KindLocation} {
		if h.Accepts(k) {
			p.handlers[k] = h
		}
	}
}

// Process normalizes raw into a Normalized context, applying the denylist
// and history truncation regardless of which handler runs (spec §4.2).
func (p *Processor) Process(raw Raw) Normalized {
	if len(raw) == 0 {
		return Normalized{Kind: KindGeneral, Fields: map[string]any{}}
	}
	kind := raw.kind()
	h, ok := p.handlers[kind]
	if !ok {
		h = p.general
	}
	return h.Process(raw)
}

// stripAndCoerce removes denylisted keys and the "type" discriminator,
// truncates any "history" slice to the last maxHistoryTurns entries, and
// coerces unknown-shape values to strings (spec §4.2).
func stripAndCoerce(raw Raw) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "type" {
			continue
		}
		if _, denied := denylist[strings.ToLower(k)]; denied {
			continue
		}
		if k == "history" {
			out[k] = truncateHistory(v)
			continue
		}
		out[k] = coerce(v)
	}
	return out
}

func truncateHistory(v any) []HistoryTurn {
	var turns []HistoryTurn
	switch t := v.(type) {
	case []HistoryTurn:
		turns = t
	case []map[string]any:
		for _, m := range t {
			turns = append(turns, HistoryTurn{Role: fmt.Sprint(m["role"]), Content: fmt.Sprint(m["content"])})
		}
	default:
		return nil
	}
	if len(turns) > maxHistoryTurns {
		turns = turns[len(turns)-maxHistoryTurns:]
	}
	return turns
}

func coerce(v any) any {
	switch v.(type) {
	case string, map[string]any, []string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

type generalHandler struct{}

func (generalHandler) Accepts(kind Kind) bool { return kind == KindGeneral }
func (generalHandler) Process(raw Raw) Normalized {
	return Normalized{Kind: KindGeneral, Fields: stripAndCoerce(raw)}
}

type userProfileHandler struct{}

func (userProfileHandler) Accepts(kind Kind) bool { return kind == KindUserProfile }
func (userProfileHandler) Process(raw Raw) Normalized {
	return Normalized{Kind: KindUserProfile, Fields: stripAndCoerce(raw)}
}

type domainHandler struct{}

func (domainHandler) Accepts(kind Kind) bool { return kind == KindDomain }
func (domainHandler) Process(raw Raw) Normalized {
	return Normalized{Kind: KindDomain, Fields: stripAndCoerce(raw)}
}

type systemHandler struct{}

func (systemHandler) Accepts(kind Kind) bool { return kind == KindSystem }
func (systemHandler) Process(raw Raw) Normalized {
	return Normalized{Kind: KindSystem, Fields: stripAndCoerce(raw)}
}

type dialogueHistoryHandler struct{}

func (dialogueHistoryHandler) Accepts(kind Kind) bool { return kind == KindDialogueHistory }
func (dialogueHistoryHandler) Process(raw Raw) Normalized {
	return Normalized{Kind: KindDialogueHistory, Fields: stripAndCoerce(raw)}
}

type locationHandler struct{}

func (locationHandler) Accepts(kind Kind) bool { return kind == KindLocation }
func (locationHandler) Process(raw Raw) Normalized {
	return Normalized{Kind: KindLocation, Fields: stripAndCoerce(raw)}
}
