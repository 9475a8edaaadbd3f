package runtime

import (
	"context"
	"sync/atomic"
	"testing"

	"channel-hub/domain"
	"channel-hub/domain/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeConn counts sends and closes so tests can observe delivery and
// replacement behavior.
type fakeConn struct {
	sent   atomic.Int64
	closed atomic.Int64
}

func (f *fakeConn) Send(_ context.Context, _ event.Envelope) error {
	f.sent.Add(1)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed.Add(1)
	return nil
}

func newUserID() domain.UserID { return domain.UserID(uuid.NewString()) }

func TestRegistry_Register_One_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := newUserID()
	conn := &fakeConn{}

	// Given no user is connected
	req.False(registry.Online(userID))

	// When a user registers
	sess, replaced := registry.Register(userID, conn)

	// Then a session exists and nothing was replaced
	req.False(replaced)
	req.Equal(userID, sess.UserID)
	req.True(registry.Online(userID))
	req.Len(registry.AllConns(), 1)
}

func TestRegistry_Register_Same_User_Twice_Closes_Prior_Conn(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := newUserID()
	first := &fakeConn{}
	second := &fakeConn{}

	// Given a registered user subscribed to a channel
	registry.Register(userID, first)
	registry.Subscribe(userID, "general")

	// When the same identity registers again
	_, replaced := registry.Register(userID, second)

	// Then the prior connection is closed and exactly one session survives
	req.True(replaced)
	req.Equal(int64(1), first.closed.Load())
	req.Zero(second.closed.Load())
	req.Len(registry.AllConns(), 1)

	// And the fresh session starts with no subscriptions
	req.False(registry.Subscribed(userID, "general"))
	req.Empty(registry.Channels(userID))
}

func TestRegistry_Unregister_Clears_Subscriptions_And_Typing(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := newUserID()
	other := newUserID()

	// Given two subscribers, one of them typing
	conn := &fakeConn{}
	registry.Register(userID, conn)
	registry.Register(other, &fakeConn{})
	registry.Subscribe(userID, "general")
	registry.Subscribe(other, "general")
	req.True(registry.startTyping(userID, "general"))

	// When the typing user unregisters
	req.True(registry.Unregister(userID, conn))

	// Then their subscription and typing entry are gone
	req.False(registry.Online(userID))
	req.False(registry.Subscribed(userID, "general"))
	req.Empty(registry.typingIn("general"))

	// And the other subscriber is untouched
	req.True(registry.Subscribed(other, "general"))
	req.Len(registry.SubscribersOf("general"), 1)
}

func TestRegistry_Unregister_Unknown_User_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// When unregistering a user that never connected
	// Then nothing happens
	req.False(registry.Unregister(newUserID(), &fakeConn{}))
}

func TestRegistry_Unregister_Stale_Conn_Keeps_Replacement(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := newUserID()
	stale := &fakeConn{}
	fresh := &fakeConn{}

	// Given a user whose first connection was replaced by a reconnect
	registry.Register(userID, stale)
	registry.Register(userID, fresh)
	registry.Subscribe(userID, "general")

	// When the replaced connection's teardown fires late
	req.False(registry.Unregister(userID, stale))

	// Then the replacement session survives untouched
	req.True(registry.Online(userID))
	req.True(registry.Subscribed(userID, "general"))
	req.Zero(fresh.closed.Load())

	// And the live handle still unregisters normally
	req.True(registry.Unregister(userID, fresh))
	req.False(registry.Online(userID))
}

func TestRegistry_Subscribe_Requires_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := newUserID()

	// When subscribing without a live session
	ok := registry.Subscribe(userID, "general")

	// Then the subscription is refused
	req.False(ok)
	req.False(registry.Subscribed(userID, "general"))
}

func TestRegistry_SubscribersOf_Excludes_One_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	author := newUserID()
	reader := newUserID()
	authorConn := &fakeConn{}
	readerConn := &fakeConn{}

	registry.Register(author, authorConn)
	registry.Register(reader, readerConn)
	registry.Subscribe(author, "general")
	registry.Subscribe(reader, "general")

	// When snapshotting the audience without the author
	conns := registry.SubscribersOf("general", author)

	// Then only the reader's handle comes back
	req.Len(conns, 1)
	req.Same(readerConn, conns[0].(*fakeConn))
}

func TestRegistry_Unsubscribe_Clears_Typing_Entry(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := newUserID()

	registry.Register(userID, &fakeConn{})
	registry.Subscribe(userID, "general")
	req.True(registry.startTyping(userID, "general"))

	// When the user unsubscribes
	registry.Unsubscribe(userID, "general")

	// Then the typing entry does not survive the subscription
	req.Empty(registry.typingIn("general"))
	req.False(registry.Subscribed(userID, "general"))
}

func TestRegistry_StartTyping_Requires_Subscription(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := newUserID()

	// Given a session without a subscription
	registry.Register(userID, &fakeConn{})

	// When the user starts typing in a channel they never joined
	// Then the entry is refused
	req.False(registry.startTyping(userID, "general"))
	req.Empty(registry.typingIn("general"))
}

func TestRegistry_StartTyping_Twice_Reports_Once(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := newUserID()

	registry.Register(userID, &fakeConn{})
	registry.Subscribe(userID, "general")

	// When starting twice
	req.True(registry.startTyping(userID, "general"))
	req.False(registry.startTyping(userID, "general"))

	// Then a single entry exists
	req.Len(registry.typingIn("general"), 1)
}
