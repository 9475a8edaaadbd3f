package runtime

import (
	"channel-hub/domain"
	"channel-hub/domain/event"
)

// TypingTracker maintains the ephemeral per-channel typing sets and emits
// typing_start / typing_stop to the channel's subscribers. A typing entry
// can only exist while the user holds a live subscription to the channel;
// both operations are silent no-ops otherwise.
type TypingTracker struct {
	registry *Registry
	router   *Router
}

func NewTypingTracker(registry *Registry, router *Router) *TypingTracker {
	return &TypingTracker{registry: registry, router: router}
}

func (t *TypingTracker) Start(userID domain.UserID, channelID domain.ChannelID) {
	if !t.registry.startTyping(userID, channelID) {
		return
	}
	t.router.Broadcast(channelID, event.KindTypingStarted, event.Typing{UserID: userID}, userID)
}

func (t *TypingTracker) Stop(userID domain.UserID, channelID domain.ChannelID) {
	if !t.registry.stopTyping(userID, channelID) {
		return
	}
	t.router.Broadcast(channelID, event.KindTypingStopped, event.Typing{UserID: userID}, userID)
}

// ClearOnSend drops the author's typing entry when a message lands, so
// subscribers never see someone "typing" after their message arrived.
func (t *TypingTracker) ClearOnSend(userID domain.UserID, channelID domain.ChannelID) {
	if !t.registry.stopTyping(userID, channelID) {
		return
	}
	t.router.Broadcast(channelID, event.KindTypingStopped, event.Typing{UserID: userID}, userID)
}

// ActiveIn lists the users currently typing in a channel.
func (t *TypingTracker) ActiveIn(channelID domain.ChannelID) []domain.UserID {
	return t.registry.typingIn(channelID)
}
