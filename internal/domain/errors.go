// Package domain holds the core entities and the error taxonomy shared by
// every orchestration component.
package domain

import "errors"

// Kind is one of the seven error kinds the core surfaces to callers.
// Callers branch on Kind, never on a type assertion against a concrete
// error type.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindInvalidArgument      Kind = "invalid_argument"
	KindIncompatibleVersion Kind = "incompatible_version"
	KindUnavailable         Kind = "unavailable"
	KindTimeout             Kind = "timeout"
	KindCancelled           Kind = "cancelled"
	KindInternal            Kind = "internal"
)

// Error wraps an underlying cause with a Kind and a human-facing message.
// The reply Message surfaced to a user carries the error's Error() text
// (Message, then the wrapped cause if any), never a stack trace (spec §7).
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf extracts the Kind of err, walking Unwrap chains. Returns
// KindInternal when err carries no *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsRetryable reports whether a failure of this kind is eligible for the
// bounded exponential backoff retry policy of spec §7.
func IsRetryable(kind Kind) bool {
	return kind == KindUnavailable || kind == KindTimeout
}

// Sentinel errors for conditions that do not need a dynamic message.
var (
	ErrSessionNotFound          = errors.New("session not found")
	ErrTurnNotFound             = errors.New("turn not found")
	ErrMessageNotFound          = errors.New("message not found")
	ErrToolInvocationNotFound   = errors.New("tool invocation not found")
	ErrMemoryItemNotFound       = errors.New("memory item not found")
	ErrRelationshipNotFound     = errors.New("relationship record not found")
	ErrRelationshipTaskNotFound = errors.New("relationship task not found")
	ErrToolNotFound             = errors.New("tool not found")
	ErrStoreNotFound            = errors.New("memory store not found")

	ErrInvalidDialogueKind  = errors.New("invalid dialogue kind")
	ErrInvalidTurnStatus    = errors.New("invalid turn status transition")
	ErrTurnRequiresRequest  = errors.New("turn must have at least one request message")
	ErrDialogueKindImmutable = errors.New("session dialogue kind is immutable after creation")

	ErrIncompatibleVersion = errors.New("no compatible tool version found")
	ErrToolDeprecated      = errors.New("requested tool version is deprecated")

	ErrCancelled = errors.New("operation cancelled")
	ErrTimeout   = errors.New("operation timed out")
)
