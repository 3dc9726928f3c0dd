package models

import (
	"time"

	"github.com/rcitylucas/dialogengine/internal/domain"
)

// InvocationStatus is the lifecycle of a Tool Invocation (spec §3).
type InvocationStatus string

const (
	InvocationPending   InvocationStatus = "pending"
	InvocationRunning   InvocationStatus = "running"
	InvocationCompleted InvocationStatus = "completed"
	InvocationFailed    InvocationStatus = "failed"
)

// ToolInvocation records one call through the Tool Invoker (§4.4).
type ToolInvocation struct {
	ID          string
	TurnID      string
	ToolName    string
	ToolVersion string
	Args        map[string]any
	Status      InvocationStatus
	Result      any
	ErrorDesc   string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

func NewToolInvocation(id, turnID, toolName, toolVersion string, args map[string]any, now time.Time) *ToolInvocation {
	return &ToolInvocation{
		ID:          id,
		TurnID:      turnID,
		ToolName:    toolName,
		ToolVersion: toolVersion,
		Args:        args,
		Status:      InvocationPending,
		CreatedAt:   now,
	}
}

// Start transitions pending → running.
func (t *ToolInvocation) Start() error {
	if t.Status != InvocationPending {
		return domain.NewError(domain.KindInternal, "tool invocation must be pending to start", domain.ErrInvalidTurnStatus)
	}
	t.Status = InvocationRunning
	return nil
}

// Complete transitions running → completed, recording the result payload.
func (t *ToolInvocation) Complete(result any, now time.Time) {
	t.Status = InvocationCompleted
	t.Result = result
	t.CompletedAt = &now
}

// Fail transitions running → failed, recording the error descriptor. Never
// returns an error itself: a failed tool invocation is always a valid
// terminal state (spec §7 — tool Timeout/Internal are recovered locally).
func (t *ToolInvocation) Fail(desc string, now time.Time) {
	t.Status = InvocationFailed
	t.ErrorDesc = desc
	t.CompletedAt = &now
}

// Cancel marks the invocation cancelled when the caller cancels the Turn
// while this invocation is still pending or running (spec §5).
func (t *ToolInvocation) Cancel(now time.Time) {
	t.Status = InvocationFailed
	t.ErrorDesc = "cancelled"
	t.CompletedAt = &now
}

func (t *ToolInvocation) Terminal() bool {
	return t.Status == InvocationCompleted || t.Status == InvocationFailed
}
