package models

import (
	"time"

	"github.com/rcitylucas/dialogengine/internal/domain"
)

// TurnStatus is the one-way lifecycle of a Turn (spec §3, §4.6).
type TurnStatus string

const (
	TurnPending     TurnStatus = "pending"
	TurnInProgress  TurnStatus = "in_progress"
	TurnCompleted   TurnStatus = "completed"
	TurnFailed      TurnStatus = "failed"
)

// Turn bundles one request/response exchange within a Session (spec §3).
type Turn struct {
	ID              string
	SessionID       string
	Ordinal         int
	InitiatorID     string
	InitiatorKind   ParticipantKind
	ResponderID     string
	ResponderKind   ParticipantKind
	Status          TurnStatus
	StartTime       time.Time
	EndTime         *time.Time
	RequestMessages []*Message
	ResponseMessages []*Message
	ToolInvocations []*ToolInvocation
	Tags            map[string]string
}

func NewTurn(id, sessionID string, ordinal int, initiatorID string, initiatorKind ParticipantKind, responderID string, responderKind ParticipantKind, now time.Time) *Turn {
	return &Turn{
		ID:            id,
		SessionID:     sessionID,
		Ordinal:       ordinal,
		InitiatorID:   initiatorID,
		InitiatorKind: initiatorKind,
		ResponderID:   responderID,
		ResponderKind: responderKind,
		Status:        TurnPending,
		StartTime:     now,
		Tags:          map[string]string{},
	}
}

// AddRequestMessage appends an inbound Message to the Turn.
func (t *Turn) AddRequestMessage(m *Message) {
	t.RequestMessages = append(t.RequestMessages, m)
}

// AddResponseMessage appends an outbound Message to the Turn.
func (t *Turn) AddResponseMessage(m *Message) {
	t.ResponseMessages = append(t.ResponseMessages, m)
}

// AddToolInvocation records a Tool Invocation raised during this Turn.
func (t *Turn) AddToolInvocation(inv *ToolInvocation) {
	t.ToolInvocations = append(t.ToolInvocations, inv)
}

// Start transitions pending → in_progress. Requires at least one request
// message (spec §3 invariant: "every turn has at least one request message").
func (t *Turn) Start() error {
	if t.Status != TurnPending {
		return domain.NewError(domain.KindInternal, "turn must be pending to start", domain.ErrInvalidTurnStatus)
	}
	if len(t.RequestMessages) == 0 {
		return domain.NewError(domain.KindInvalidArgument, "turn has no request message", domain.ErrTurnRequiresRequest)
	}
	t.Status = TurnInProgress
	return nil
}

// Complete transitions in_progress → completed, requiring at least one
// response message and end >= start (spec §8 testable property).
func (t *Turn) Complete(now time.Time) error {
	if t.Status != TurnInProgress {
		return domain.NewError(domain.KindInternal, "turn must be in_progress to complete", domain.ErrInvalidTurnStatus)
	}
	if len(t.ResponseMessages) == 0 {
		return domain.NewError(domain.KindInternal, "completed turn has no response message", domain.ErrInvalidTurnStatus)
	}
	if now.Before(t.StartTime) {
		now = t.StartTime
	}
	t.Status = TurnCompleted
	t.EndTime = &now
	return nil
}

// Fail transitions pending|in_progress → failed. A failed turn still gets a
// response Message (added by the caller) so the transcript stays linear
// (spec §4.6 state machine note).
func (t *Turn) Fail(now time.Time) error {
	if t.Status != TurnPending && t.Status != TurnInProgress {
		return domain.NewError(domain.KindInternal, "turn already terminal", domain.ErrInvalidTurnStatus)
	}
	t.Status = TurnFailed
	t.EndTime = &now
	return nil
}

func (t *Turn) Terminal() bool {
	return t.Status == TurnCompleted || t.Status == TurnFailed
}

// OpenToolInvocations returns invocations still pending or running. Used to
// verify the testable property that no turn is terminal with open
// invocations (spec §8).
func (t *Turn) OpenToolInvocations() []*ToolInvocation {
	var open []*ToolInvocation
	for _, inv := range t.ToolInvocations {
		if !inv.Terminal() {
			open = append(open, inv)
		}
	}
	return open
}
