package domain

import (
	"time"

	"github.com/google/uuid"
)

// EditWindow is the interval after creation during which the author may
// still change a message's content. The clock starts at CreatedAt and is
// never reset by an edit.
const EditWindow = 5 * time.Minute

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageSystem:
		return true
	}
	return false
}

// FlagReason is the fixed enumeration accepted by FlagMessage.
type FlagReason string

const (
	FlagSpam          FlagReason = "spam"
	FlagHarassment    FlagReason = "harassment"
	FlagInappropriate FlagReason = "inappropriate"
	FlagOffTopic      FlagReason = "off_topic"
	FlagOther         FlagReason = "other"
)

func (r FlagReason) Valid() bool {
	switch r {
	case FlagSpam, FlagHarassment, FlagInappropriate, FlagOffTopic, FlagOther:
		return true
	}
	return false
}

// FlagState records a report against a message. Flagging is a report, not a
// moderation action: any member may set it, only moderators may clear it.
type FlagState struct {
	Reason    FlagReason
	FlaggedBy UserID
	FlaggedAt time.Time
}

// DeletionState marks a message soft-deleted. Content is retained for audit.
type DeletionState struct {
	DeletedBy UserID
	DeletedAt time.Time
}

// Message is the persisted chat entity. The flag and deletion axes are
// orthogonal: a message can be both flagged and soft-deleted at once.
type Message struct {
	ID        uuid.UUID
	ChannelID ChannelID
	AuthorID  UserID
	Content   string
	Type      MessageType
	ReplyTo   *uuid.UUID
	CreatedAt time.Time
	EditedAt  *time.Time
	Flag      *FlagState
	Deletion  *DeletionState

	// Version changes on every update; conditional writes compare it to
	// detect lost updates.
	Version uuid.UUID
}

func (m Message) Flagged() bool { return m.Flag != nil }

func (m Message) Deleted() bool { return m.Deletion != nil }

func (m Message) Edited() bool { return m.EditedAt != nil }

// Editable reports whether the edit window is still open at the given instant.
func (m Message) Editable(now time.Time) bool {
	return now.Sub(m.CreatedAt) <= EditWindow
}
