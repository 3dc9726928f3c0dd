package models

import "time"

// MessageKind is the modality of a Message's content.
type MessageKind string

const (
	MessageText     MessageKind = "text"
	MessageImageRef MessageKind = "image_ref"
	MessageAudioRef MessageKind = "audio_ref"
	MessageFileRef  MessageKind = "file_ref"
	MessageMixed    MessageKind = "mixed"
)

// Message is one request or response entry within a Turn (spec §3).
type Message struct {
	ID        string            `json:"id"`
	TurnID    string            `json:"turn_id"`
	Content   string            `json:"content"`
	Kind      MessageKind       `json:"kind"`
	SenderID  string            `json:"sender_id"`
	Sender    ParticipantKind   `json:"sender_kind"`
	Timestamp time.Time         `json:"timestamp"`
	Tags      map[string]string `json:"tags,omitempty"`
}

func NewMessage(id, turnID, content string, kind MessageKind, senderID string, sender ParticipantKind, now time.Time) *Message {
	return &Message{
		ID:        id,
		TurnID:    turnID,
		Content:   content,
		Kind:      kind,
		SenderID:  senderID,
		Sender:    sender,
		Timestamp: now,
		Tags:      map[string]string{},
	}
}
