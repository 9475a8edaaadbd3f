package services

import (
	"context"
	"log/slog"
	"time"

	"channel-hub/contract"
	"channel-hub/domain"
	"channel-hub/domain/event"
	"channel-hub/errors"
	"channel-hub/runtime"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ChatService is the single entry point for every channel-scoped operation.
// It composes the lifecycle state machine with the live runtime: each
// successful mutation is persisted first, then announced through the
// broadcast router. A caller whose write fails never causes an event.
type ChatService struct {
	log       *slog.Logger
	store     contract.Store
	oracle    contract.MembershipOracle
	registry  *runtime.Registry
	router    *runtime.Router
	typing    *runtime.TypingTracker
	lifecycle *Lifecycle
	searcher  contract.Searcher
	now       func() time.Time
}

func NewChatService(log *slog.Logger, store contract.Store, oracle contract.MembershipOracle,
	registry *runtime.Registry, router *runtime.Router, typing *runtime.TypingTracker,
	lifecycle *Lifecycle, searcher contract.Searcher) *ChatService {
	return &ChatService{
		log:       log,
		store:     store,
		oracle:    oracle,
		registry:  registry,
		router:    router,
		typing:    typing,
		lifecycle: lifecycle,
		searcher:  searcher,
		now:       time.Now,
	}
}

// CreateChannel persists a new channel with the caller as creator and
// first admin, then subscribes the creator's live connection if any.
func (s *ChatService) CreateChannel(ctx context.Context, p Principal, name string, private bool) (domain.Channel, error) {
	ch := domain.Channel{
		ID:        domain.NewChannelID(),
		Name:      name,
		CreatorID: p.UserID,
		Private:   private,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateChannel(ctx, ch); err != nil {
		return domain.Channel{}, err
	}
	s.registry.Subscribe(p.UserID, ch.ID)
	s.log.Info("Channel created", "channel", ch.ID, "creator", p.UserID, "private", private)
	return ch, nil
}

// JoinChannel makes the caller a durable member if needed and attaches their
// live connection to the channel's subscriber set. Joining a channel the
// caller is already subscribed to fails; joining a private channel requires
// a pre-existing membership granted out of band.
func (s *ChatService) JoinChannel(ctx context.Context, p Principal, channelID domain.ChannelID) error {
	if _, err := s.store.FindChannel(ctx, channelID); err != nil {
		return err
	}
	info, err := s.oracle.Membership(ctx, channelID, p.UserID)
	if err != nil {
		return err
	}
	if !info.IsMember {
		if info.Private {
			return errors.ErrForbidden
		}
		if err := s.store.AddMember(ctx, channelID, p.UserID, domain.RoleMember); err != nil {
			return err
		}
	}
	if s.registry.Subscribed(p.UserID, channelID) {
		return errors.ErrAlreadyMember
	}
	s.registry.Subscribe(p.UserID, channelID)
	s.router.Broadcast(channelID, event.KindUserJoinedChannel, event.ChannelMember{UserID: p.UserID})
	return nil
}

// LeaveChannel removes the durable membership and the live subscription.
// The creator cannot leave their own channel; channels are never orphaned.
func (s *ChatService) LeaveChannel(ctx context.Context, p Principal, channelID domain.ChannelID) error {
	ch, err := s.store.FindChannel(ctx, channelID)
	if err != nil {
		return err
	}
	member, err := s.store.IsMember(ctx, channelID, p.UserID)
	if err != nil {
		return err
	}
	if !member && !s.registry.Subscribed(p.UserID, channelID) {
		return errors.ErrNotMember
	}
	if ch.CreatorID == p.UserID {
		return errors.ErrCreatorCannotLeave
	}
	if member {
		if err := s.store.RemoveMember(ctx, channelID, p.UserID); err != nil {
			return err
		}
	}
	s.registry.Unsubscribe(p.UserID, channelID)
	s.router.Broadcast(channelID, event.KindUserLeftChannel, event.ChannelMember{UserID: p.UserID})
	return nil
}

// SendMessage runs the full creation path: validation, moderation, persist,
// clear the author's typing indicator, broadcast to subscribers.
func (s *ChatService) SendMessage(ctx context.Context, p Principal, in CreateInput) (domain.Message, error) {
	msg, err := s.lifecycle.Create(ctx, p, in)
	if err != nil {
		return domain.Message{}, err
	}
	s.typing.ClearOnSend(p.UserID, in.ChannelID)
	s.router.Broadcast(msg.ChannelID, event.KindMessageReceived,
		event.MessageReceived{Message: event.FromMessage(msg)})
	return msg, nil
}

func (s *ChatService) EditMessage(ctx context.Context, p Principal, messageID uuid.UUID, content string) (domain.Message, error) {
	msg, err := s.lifecycle.Edit(ctx, p, messageID, content)
	if err != nil {
		return domain.Message{}, err
	}
	s.router.Broadcast(msg.ChannelID, event.KindMessageUpdated,
		event.MessageUpdated{Message: event.FromMessage(msg)})
	return msg, nil
}

func (s *ChatService) DeleteMessage(ctx context.Context, p Principal, messageID uuid.UUID) error {
	msg, err := s.lifecycle.Delete(ctx, p, messageID)
	if err != nil {
		return err
	}
	s.router.Broadcast(msg.ChannelID, event.KindMessageDeleted,
		event.MessageDeleted{MessageID: msg.ID, DeletedBy: p.UserID})
	return nil
}

func (s *ChatService) RestoreMessage(ctx context.Context, p Principal, messageID uuid.UUID) (domain.Message, error) {
	msg, err := s.lifecycle.Restore(ctx, p, messageID)
	if err != nil {
		return domain.Message{}, err
	}
	s.router.Broadcast(msg.ChannelID, event.KindMessageRestored,
		event.MessageRestored{MessageID: msg.ID, RestoredBy: p.UserID})
	return msg, nil
}

func (s *ChatService) FlagMessage(ctx context.Context, p Principal, messageID uuid.UUID, reason domain.FlagReason) error {
	msg, err := s.lifecycle.Flag(ctx, p, messageID, reason)
	if err != nil {
		return err
	}
	s.router.Broadcast(msg.ChannelID, event.KindMessageFlagged,
		event.MessageFlagged{MessageID: msg.ID, Reason: reason, FlaggedBy: p.UserID})
	return nil
}

func (s *ChatService) UnflagMessage(ctx context.Context, p Principal, messageID uuid.UUID) error {
	msg, err := s.lifecycle.Unflag(ctx, p, messageID)
	if err != nil {
		return err
	}
	s.router.Broadcast(msg.ChannelID, event.KindMessageUnflagged,
		event.MessageUnflagged{MessageID: msg.ID, ClearedBy: p.UserID})
	return nil
}

// StartTyping and StopTyping are fire-and-forget; both are silent no-ops
// for users without a live subscription to the channel.
func (s *ChatService) StartTyping(p Principal, channelID domain.ChannelID) {
	s.typing.Start(p.UserID, channelID)
}

func (s *ChatService) StopTyping(p Principal, channelID domain.ChannelID) {
	s.typing.Stop(p.UserID, channelID)
}

// History returns a page of the channel's messages, newest first.
// Soft-deleted entries come back as tombstones with blanked content.
func (s *ChatService) History(ctx context.Context, p Principal, channelID domain.ChannelID,
	cursor *string, limit int) ([]event.MessagePayload, *string, error) {
	if err := s.requireReadAccess(ctx, p, channelID); err != nil {
		return nil, nil, err
	}
	msgs, next, err := s.store.ListMessages(ctx, channelID, cursor, limit)
	if err != nil {
		return nil, nil, err
	}
	page := lo.Map(msgs, func(m domain.Message, _ int) event.MessagePayload {
		return event.FromMessage(m)
	})
	return page, next, nil
}

// SearchMessages runs a full-text query scoped to one channel. Hits that
// were soft-deleted since indexing are filtered out of the result.
func (s *ChatService) SearchMessages(ctx context.Context, p Principal, channelID domain.ChannelID,
	query string, limit int) ([]event.MessagePayload, error) {
	if err := s.requireReadAccess(ctx, p, channelID); err != nil {
		return nil, err
	}
	ids, err := s.searcher.Search(ctx, channelID, query, limit)
	if err != nil {
		return nil, err
	}
	hits := make([]event.MessagePayload, 0, len(ids))
	for _, id := range ids {
		msg, err := s.store.FindMessage(ctx, id)
		if err != nil || msg.Deleted() {
			continue // index may lag behind deletions
		}
		hits = append(hits, event.FromMessage(msg))
	}
	return hits, nil
}

// requireReadAccess gates reads on private channels to their members.
func (s *ChatService) requireReadAccess(ctx context.Context, p Principal, channelID domain.ChannelID) error {
	ch, err := s.store.FindChannel(ctx, channelID)
	if err != nil {
		return err
	}
	if !ch.Private {
		return nil
	}
	info, err := s.oracle.Membership(ctx, channelID, p.UserID)
	if err != nil {
		return err
	}
	if !info.IsMember && !p.Role.AtLeast(domain.RoleModerator) {
		return errors.ErrForbidden
	}
	return nil
}
