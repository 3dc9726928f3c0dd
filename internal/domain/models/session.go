package models

import (
	"time"

	"github.com/rcitylucas/dialogengine/internal/domain"
)

// ParticipantKind distinguishes the three kinds of session participant.
type ParticipantKind string

const (
	ParticipantHuman  ParticipantKind = "human"
	ParticipantAI     ParticipantKind = "ai"
	ParticipantSystem ParticipantKind = "system"
)

// DialogueKind is the single canonical enumeration of session shapes
// (spec §9 open question: the source carries two slightly different forms;
// this is the one canonical form).
type DialogueKind string

const (
	DialogueHumanAIPrivate    DialogueKind = "human_ai_private"
	DialogueAISelfReflection  DialogueKind = "ai_self_reflection"
	DialogueHumanAIGroup      DialogueKind = "human_ai_group"
	DialogueAIMultiHuman      DialogueKind = "ai_multi_human"
	DialogueAIAI              DialogueKind = "ai_ai"
	DialogueHumanHumanPrivate DialogueKind = "human_human_private"
	DialogueHumanHumanGroup   DialogueKind = "human_human_group"
)

func (k DialogueKind) Valid() bool {
	switch k {
	case DialogueHumanAIPrivate, DialogueAISelfReflection, DialogueHumanAIGroup,
		DialogueAIMultiHuman, DialogueAIAI, DialogueHumanHumanPrivate, DialogueHumanHumanGroup:
		return true
	}
	return false
}

// Participant is a member of a Session.
type Participant struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Kind        ParticipantKind `json:"kind"`
}

// Session is the stable root of a conversation (spec §3).
type Session struct {
	ID           string        `json:"id"`
	OwnerID      string        `json:"owner_id"`
	DialogueKind DialogueKind  `json:"dialogue_kind"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
	Tags         map[string]string `json:"tags,omitempty"`
}

// NewSession constructs a Session with its dialogue kind fixed at creation.
// The kind can never change afterward (spec §3 invariant).
func NewSession(id, ownerID string, kind DialogueKind, participants []Participant, now time.Time) (*Session, error) {
	if !kind.Valid() {
		return nil, domain.NewError(domain.KindInvalidArgument, "invalid dialogue kind", domain.ErrInvalidDialogueKind)
	}
	return &Session{
		ID:           id,
		OwnerID:      ownerID,
		DialogueKind: kind,
		Participants: participants,
		CreatedAt:    now,
		LastActivity: now,
		Tags:         map[string]string{},
	}, nil
}

// Touch advances LastActivity. LastActivity is monotonically
// non-decreasing; a stale `now` is ignored rather than rejected.
func (s *Session) Touch(now time.Time) {
	if now.After(s.LastActivity) {
		s.LastActivity = now
	}
}

// SetDialogueKind is intentionally absent: DialogueKind is immutable after
// NewSession constructs the Session (spec §3 invariant). Any attempt to
// change it outside this file is a compile error, which is the point.
