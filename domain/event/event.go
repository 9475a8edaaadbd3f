// Package event defines the canonical events emitted by the broadcast
// router. Every channel-scoped mutation produces exactly one of these.
package event

import (
	"time"

	"channel-hub/domain"

	"github.com/google/uuid"
)

type Kind string

const (
	KindMessageReceived   Kind = "message_received"
	KindMessageUpdated    Kind = "message_updated"
	KindMessageDeleted    Kind = "message_deleted"
	KindMessageRestored   Kind = "message_restored"
	KindMessageFlagged    Kind = "message_flagged"
	KindMessageUnflagged  Kind = "message_unflagged"
	KindUserJoinedChannel Kind = "user_joined_channel"
	KindUserLeftChannel   Kind = "user_left_channel"
	KindTypingStarted     Kind = "typing_start"
	KindTypingStopped     Kind = "typing_stop"
	KindUserOnline        Kind = "user_online"
	KindUserOffline       Kind = "user_offline"
	KindError             Kind = "error"
)

// Envelope is the single unit delivered to connections and sinks.
// Channel is empty for global presence events.
type Envelope struct {
	Kind    Kind             `json:"type"`
	Channel domain.ChannelID `json:"channel_id,omitempty"`
	Payload any              `json:"payload"`
	At      time.Time        `json:"at"`
}

type MessageReceived struct {
	Message MessagePayload `json:"message"`
}

type MessageUpdated struct {
	Message MessagePayload `json:"message"`
}

type MessageDeleted struct {
	MessageID uuid.UUID     `json:"message_id"`
	DeletedBy domain.UserID `json:"deleted_by"`
}

type MessageRestored struct {
	MessageID  uuid.UUID     `json:"message_id"`
	RestoredBy domain.UserID `json:"restored_by"`
}

type MessageFlagged struct {
	MessageID uuid.UUID         `json:"message_id"`
	Reason    domain.FlagReason `json:"reason"`
	FlaggedBy domain.UserID     `json:"flagged_by"`
}

type MessageUnflagged struct {
	MessageID uuid.UUID     `json:"message_id"`
	ClearedBy domain.UserID `json:"cleared_by"`
}

type ChannelMember struct {
	UserID domain.UserID `json:"user_id"`
}

type Typing struct {
	UserID domain.UserID `json:"user_id"`
}

type Presence struct {
	UserID domain.UserID `json:"user_id"`
	At     time.Time     `json:"at"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MessagePayload is the wire shape of a message inside broadcast events.
// Soft-deleted content is blanked before it crosses the transport.
type MessagePayload struct {
	ID        uuid.UUID          `json:"id"`
	ChannelID domain.ChannelID   `json:"channel_id"`
	AuthorID  domain.UserID      `json:"author_id"`
	Content   string             `json:"content"`
	Type      domain.MessageType `json:"message_type"`
	ReplyTo   *uuid.UUID         `json:"reply_to,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	EditedAt  *time.Time         `json:"edited_at,omitempty"`
	Flagged   bool               `json:"flagged"`
	Deleted   bool               `json:"deleted"`
}

// FromMessage converts a domain message to its broadcast shape.
// Deleted messages keep their metadata but lose their content.
func FromMessage(m domain.Message) MessagePayload {
	p := MessagePayload{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		AuthorID:  m.AuthorID,
		Content:   m.Content,
		Type:      m.Type,
		ReplyTo:   m.ReplyTo,
		CreatedAt: m.CreatedAt,
		EditedAt:  m.EditedAt,
		Flagged:   m.Flagged(),
		Deleted:   m.Deleted(),
	}
	if m.Deleted() {
		p.Content = ""
	}
	return p
}
