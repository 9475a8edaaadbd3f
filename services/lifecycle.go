package services

import (
	"context"
	"log/slog"
	"time"

	"channel-hub/contract"
	"channel-hub/domain"
	"channel-hub/errors"
	"channel-hub/moderation"

	"github.com/google/uuid"
)

// Principal is the caller identity resolved at the ingress boundary.
// Role is the global role, refreshed at authentication time; channel
// roles are looked up per operation.
type Principal struct {
	UserID domain.UserID
	Role   domain.Role
}

// CreateInput carries everything needed to author one message.
type CreateInput struct {
	ChannelID  domain.ChannelID
	Content    string
	Type       domain.MessageType
	ReplyTo    *uuid.UUID
	Attachment []byte
}

// Lifecycle owns every transition of a message after it enters the system:
// creation, edit, soft delete, restore, flag, unflag. All transitions go
// through the conditional write of the store, so concurrent mutations of
// the same message surface as ErrConflict instead of silently losing one.
type Lifecycle struct {
	log      *slog.Logger
	store    contract.Store
	oracle   contract.MembershipOracle
	pipeline *moderation.Pipeline
	now      func() time.Time
}

func NewLifecycle(log *slog.Logger, store contract.Store, oracle contract.MembershipOracle,
	pipeline *moderation.Pipeline) *Lifecycle {
	return &Lifecycle{
		log:      log,
		store:    store,
		oracle:   oracle,
		pipeline: pipeline,
		now:      time.Now,
	}
}

// Create validates, moderates, and persists a new message. The reply
// reference, when present, must resolve to a message in the same channel.
func (l *Lifecycle) Create(ctx context.Context, p Principal, in CreateInput) (domain.Message, error) {
	if in.Type == "" {
		in.Type = domain.MessageText
	}
	if !in.Type.Valid() {
		return domain.Message{}, errors.ErrInvalidState
	}

	ch, err := l.store.FindChannel(ctx, in.ChannelID)
	if err != nil {
		return domain.Message{}, err
	}
	if ch.Private {
		info, err := l.oracle.Membership(ctx, in.ChannelID, p.UserID)
		if err != nil {
			return domain.Message{}, err
		}
		if !info.IsMember {
			return domain.Message{}, errors.ErrForbidden
		}
	}

	if in.ReplyTo != nil {
		parent, err := l.store.FindMessage(ctx, *in.ReplyTo)
		if err != nil || parent.ChannelID != in.ChannelID {
			return domain.Message{}, errors.ErrInvalidReference
		}
	}

	if err := l.pipeline.Run(ctx, moderation.Input{
		ChannelID:  in.ChannelID,
		AuthorID:   p.UserID,
		Content:    in.Content,
		Type:       in.Type,
		Attachment: in.Attachment,
	}); err != nil {
		return domain.Message{}, err
	}

	msg := domain.Message{
		ID:        uuid.New(),
		ChannelID: in.ChannelID,
		AuthorID:  p.UserID,
		Content:   in.Content,
		Type:      in.Type,
		ReplyTo:   in.ReplyTo,
		CreatedAt: l.now().UTC(),
		Version:   uuid.New(),
	}
	if err := l.store.InsertMessage(ctx, msg); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// Edit replaces the content of the caller's own message while the edit
// window is open. Edited content goes through the same moderation chain as
// new content. A soft-deleted message cannot be edited.
func (l *Lifecycle) Edit(ctx context.Context, p Principal, messageID uuid.UUID, content string) (domain.Message, error) {
	msg, err := l.store.FindMessage(ctx, messageID)
	if err != nil {
		return domain.Message{}, err
	}
	if msg.AuthorID != p.UserID {
		return domain.Message{}, errors.ErrForbidden
	}
	if msg.Deleted() {
		return domain.Message{}, errors.ErrInvalidState
	}
	if !msg.Editable(l.now()) {
		return domain.Message{}, errors.ErrWindowExpired
	}

	if err := l.pipeline.Run(ctx, moderation.Input{
		ChannelID: msg.ChannelID,
		AuthorID:  p.UserID,
		Content:   content,
		Type:      msg.Type,
		Edit:      true,
	}); err != nil {
		return domain.Message{}, err
	}

	editedAt := l.now().UTC()
	msg.Content = content
	msg.EditedAt = &editedAt
	return l.store.UpdateMessage(ctx, msg)
}

// Delete soft-deletes a message. The content is retained for audit; readers
// see a tombstone. Allowed for the author and for moderators of the channel.
func (l *Lifecycle) Delete(ctx context.Context, p Principal, messageID uuid.UUID) (domain.Message, error) {
	msg, err := l.store.FindMessage(ctx, messageID)
	if err != nil {
		return domain.Message{}, err
	}
	if err := l.requireAuthorOrModerator(ctx, p, msg); err != nil {
		return domain.Message{}, err
	}
	if msg.Deleted() {
		return domain.Message{}, errors.ErrInvalidState
	}

	msg.Deletion = &domain.DeletionState{DeletedBy: p.UserID, DeletedAt: l.now().UTC()}
	return l.store.UpdateMessage(ctx, msg)
}

// Restore undoes a soft delete. Flag state and edit history survive the
// round trip untouched.
func (l *Lifecycle) Restore(ctx context.Context, p Principal, messageID uuid.UUID) (domain.Message, error) {
	msg, err := l.store.FindMessage(ctx, messageID)
	if err != nil {
		return domain.Message{}, err
	}
	if err := l.requireAuthorOrModerator(ctx, p, msg); err != nil {
		return domain.Message{}, err
	}
	if !msg.Deleted() {
		return domain.Message{}, errors.ErrInvalidState
	}

	msg.Deletion = nil
	return l.store.UpdateMessage(ctx, msg)
}

// Flag reports a message. Any member of the channel may flag; a message
// holds at most one flag at a time, so flagging an already-flagged message
// fails rather than overwriting the first report.
func (l *Lifecycle) Flag(ctx context.Context, p Principal, messageID uuid.UUID, reason domain.FlagReason) (domain.Message, error) {
	if !reason.Valid() {
		return domain.Message{}, errors.ErrInvalidState
	}
	msg, err := l.store.FindMessage(ctx, messageID)
	if err != nil {
		return domain.Message{}, err
	}
	info, err := l.oracle.Membership(ctx, msg.ChannelID, p.UserID)
	if err != nil {
		return domain.Message{}, err
	}
	if !info.IsMember {
		return domain.Message{}, errors.ErrForbidden
	}
	if msg.Flagged() {
		return domain.Message{}, errors.ErrInvalidState
	}

	msg.Flag = &domain.FlagState{Reason: reason, FlaggedBy: p.UserID, FlaggedAt: l.now().UTC()}
	return l.store.UpdateMessage(ctx, msg)
}

// Unflag clears a report. Reserved for moderators; the flagging member
// cannot retract their own report.
func (l *Lifecycle) Unflag(ctx context.Context, p Principal, messageID uuid.UUID) (domain.Message, error) {
	msg, err := l.store.FindMessage(ctx, messageID)
	if err != nil {
		return domain.Message{}, err
	}
	ok, err := l.isModerator(ctx, p, msg.ChannelID)
	if err != nil {
		return domain.Message{}, err
	}
	if !ok {
		return domain.Message{}, errors.ErrForbidden
	}
	if !msg.Flagged() {
		return domain.Message{}, errors.ErrInvalidState
	}

	msg.Flag = nil
	return l.store.UpdateMessage(ctx, msg)
}

func (l *Lifecycle) requireAuthorOrModerator(ctx context.Context, p Principal, msg domain.Message) error {
	if msg.AuthorID == p.UserID {
		return nil
	}
	ok, err := l.isModerator(ctx, p, msg.ChannelID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrForbidden
	}
	return nil
}

// isModerator checks the global role first, then the per-channel role.
func (l *Lifecycle) isModerator(ctx context.Context, p Principal, channelID domain.ChannelID) (bool, error) {
	if p.Role.AtLeast(domain.RoleModerator) {
		return true, nil
	}
	return l.store.HasRole(ctx, channelID, p.UserID, domain.RoleModerator)
}
