// Package runtime owns the live, in-memory state of the system: which users
// are connected, which channels they subscribe to, and who is typing where.
// It orchestrates delivery without containing business logic or domain rules.
package runtime

import (
	"sync"

	"channel-hub/contract"
	"channel-hub/domain"
)

type Set map[domain.UserID]struct{}

// Session is the live binding between an authenticated user identity and
// one active transport connection. Owned exclusively by the Registry;
// callers only ever see copies of its data.
type Session struct {
	UserID   domain.UserID
	Conn     contract.Conn
	channels map[domain.ChannelID]struct{}
}

// Registry is the single source of truth mapping user identity to live
// Session and channel ID to subscriber set. All three indices are guarded
// by one mutex so no reader can observe them disagreeing.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[domain.UserID]*Session
	subscribers map[domain.ChannelID]Set
	typing      map[domain.ChannelID]Set
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[domain.UserID]*Session),
		subscribers: make(map[domain.ChannelID]Set),
		typing:      make(map[domain.ChannelID]Set),
	}
}

// Register installs a new Session for userID with an empty subscription set.
// At most one Session may exist per user identity: if one is already
// present, its connection handle is closed first and the prior Conn is
// returned so the caller can log the replacement.
func (r *Registry) Register(userID domain.UserID, conn contract.Conn) (sess *Session, replaced bool) {
	r.mu.Lock()
	prior, had := r.sessions[userID]
	sess = &Session{
		UserID:   userID,
		Conn:     conn,
		channels: make(map[domain.ChannelID]struct{}),
	}
	r.sessions[userID] = sess
	if had {
		r.removeEverywhereLocked(userID)
	}
	r.mu.Unlock()

	// Closing happens outside the critical section; the handle is already
	// unreachable through the registry.
	if had {
		_ = prior.Conn.Close()
	}
	return sess, had
}

// Unregister removes the Session, the user's channel subscriptions, and any
// typing entries, but only while conn is still the session's live handle.
// A replaced connection tearing itself down after a reconnect finds a
// different handle installed and must not evict the replacement session.
// Idempotent: unknown users and stale handles are no-ops.
func (r *Registry) Unregister(userID domain.UserID, conn contract.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[userID]
	if !ok || sess.Conn != conn {
		return false
	}
	delete(r.sessions, userID)
	r.removeEverywhereLocked(userID)
	return true
}

// removeEverywhereLocked clears the user from every channel subscriber set
// and every typing set. Caller holds the write lock.
func (r *Registry) removeEverywhereLocked(userID domain.UserID) {
	for channelID, members := range r.subscribers {
		delete(members, userID)
		if len(members) == 0 {
			delete(r.subscribers, channelID)
		}
	}
	for channelID, typers := range r.typing {
		delete(typers, userID)
		if len(typers) == 0 {
			delete(r.typing, channelID)
		}
	}
}

// Subscribe adds the user's session to a channel's live audience, updating
// both indices atomically. Subscribing twice is a no-op. Returns false if
// the user holds no Session.
func (r *Registry) Subscribe(userID domain.UserID, channelID domain.ChannelID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[userID]
	if !ok {
		return false
	}
	sess.channels[channelID] = struct{}{}

	if _, ok := r.subscribers[channelID]; !ok {
		r.subscribers[channelID] = make(Set)
	}
	r.subscribers[channelID][userID] = struct{}{}
	return true
}

// Unsubscribe removes the subscription from both indices along with any
// typing entry. Unsubscribing a non-subscriber is a no-op.
func (r *Registry) Unsubscribe(userID domain.UserID, channelID domain.ChannelID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[userID]; ok {
		delete(sess.channels, channelID)
	}
	if members, ok := r.subscribers[channelID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(r.subscribers, channelID)
		}
	}
	if typers, ok := r.typing[channelID]; ok {
		delete(typers, userID)
		if len(typers) == 0 {
			delete(r.typing, channelID)
		}
	}
}

// Subscribed reports whether the user currently holds a live subscription.
func (r *Registry) Subscribed(userID domain.UserID, channelID domain.ChannelID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.subscribers[channelID]
	if !ok {
		return false
	}
	_, in := members[userID]
	return in
}

// SubscribersOf snapshots the live connection handles for a channel,
// optionally excluding one user. The snapshot reflects every Subscribe and
// Unsubscribe that happened before this call.
func (r *Registry) SubscribersOf(channelID domain.ChannelID, exclude ...domain.UserID) []contract.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.subscribers[channelID]
	if !ok {
		return nil
	}
	conns := make([]contract.Conn, 0, len(members))
	for userID := range members {
		if len(exclude) > 0 && userID == exclude[0] {
			continue
		}
		if sess, live := r.sessions[userID]; live {
			conns = append(conns, sess.Conn)
		}
	}
	return conns
}

// AllConns snapshots every live connection handle. Used for global
// presence broadcasts.
func (r *Registry) AllConns(exclude ...domain.UserID) []contract.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]contract.Conn, 0, len(r.sessions))
	for userID, sess := range r.sessions {
		if len(exclude) > 0 && userID == exclude[0] {
			continue
		}
		conns = append(conns, sess.Conn)
	}
	return conns
}

// Channels returns the channel IDs the user is subscribed to.
func (r *Registry) Channels(userID domain.UserID) []domain.ChannelID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[userID]
	if !ok {
		return nil
	}
	out := make([]domain.ChannelID, 0, len(sess.channels))
	for channelID := range sess.channels {
		out = append(out, channelID)
	}
	return out
}

// Online reports whether the user currently holds a Session.
func (r *Registry) Online(userID domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[userID]
	return ok
}

// startTyping records a typing entry if and only if the user is subscribed
// to the channel. Returns false otherwise.
func (r *Registry) startTyping(userID domain.UserID, channelID domain.ChannelID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.subscribers[channelID]
	if !ok {
		return false
	}
	if _, in := members[userID]; !in {
		return false
	}
	if _, ok := r.typing[channelID]; !ok {
		r.typing[channelID] = make(Set)
	}
	if _, already := r.typing[channelID][userID]; already {
		return false
	}
	r.typing[channelID][userID] = struct{}{}
	return true
}

// stopTyping clears a typing entry. Returns false if none existed.
func (r *Registry) stopTyping(userID domain.UserID, channelID domain.ChannelID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	typers, ok := r.typing[channelID]
	if !ok {
		return false
	}
	if _, in := typers[userID]; !in {
		return false
	}
	delete(typers, userID)
	if len(typers) == 0 {
		delete(r.typing, channelID)
	}
	return true
}

// typingIn snapshots the typing user IDs for a channel.
func (r *Registry) typingIn(channelID domain.ChannelID) []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	typers, ok := r.typing[channelID]
	if !ok {
		return nil
	}
	out := make([]domain.UserID, 0, len(typers))
	for userID := range typers {
		out = append(out, userID)
	}
	return out
}
