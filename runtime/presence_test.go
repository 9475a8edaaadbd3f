package runtime

import (
	"context"
	"testing"
	"time"

	"channel-hub/domain/event"
	"channel-hub/mocks"
	"channel-hub/observability"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestPresenceManager_Connected_Announces_Online(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	registry := NewRegistry()
	monitoring := observability.NewManager()
	router := NewRouter(testLogger(), registry, monitoring, 64, 100*time.Millisecond)
	presence := NewPresenceManager(testLogger(), registry, router, store, monitoring)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = router.Run(ctx) }()

	// Given an already-connected observer
	observerID := newUserID()
	observer := &recordingConn{}
	store.EXPECT().TouchLastActivity(gomock.Any(), observerID, gomock.Any()).Return(nil)
	presence.Connected(ctx, observerID, observer)

	// When a new user connects
	userID := newUserID()
	store.EXPECT().TouchLastActivity(gomock.Any(), userID, gomock.Any()).Return(nil)
	presence.Connected(ctx, userID, &recordingConn{})

	// Then the observer sees user_online and the session is live
	req.True(registry.Online(userID))
	req.Eventually(func() bool {
		for _, e := range observer.envelopes() {
			if e.Kind == event.KindUserOnline {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	req.Equal(int64(2), monitoring.Snapshot().ConnectionsOpen)
}

func TestPresenceManager_Disconnected_Announces_Offline_Once(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	registry := NewRegistry()
	monitoring := observability.NewManager()
	router := NewRouter(testLogger(), registry, monitoring, 64, 100*time.Millisecond)
	presence := NewPresenceManager(testLogger(), registry, router, store, monitoring)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = router.Run(ctx) }()

	observerID := newUserID()
	observer := &recordingConn{}
	registry.Register(observerID, observer)

	userID := newUserID()
	conn := &recordingConn{}
	store.EXPECT().TouchLastActivity(gomock.Any(), userID, gomock.Any()).Return(nil).Times(2)
	presence.Connected(ctx, userID, conn)

	// When the user disconnects twice
	presence.Disconnected(ctx, userID, conn)
	presence.Disconnected(ctx, userID, conn)

	// Then exactly one user_offline event goes out
	req.False(registry.Online(userID))
	req.Eventually(func() bool {
		offline := 0
		for _, e := range observer.envelopes() {
			if e.Kind == event.KindUserOffline {
				offline++
			}
		}
		return offline == 1
	}, time.Second, 5*time.Millisecond)
}

func TestPresenceManager_Stale_Teardown_Keeps_Replacement_Online(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	registry := NewRegistry()
	monitoring := observability.NewManager()
	router := NewRouter(testLogger(), registry, monitoring, 64, 100*time.Millisecond)
	presence := NewPresenceManager(testLogger(), registry, router, store, monitoring)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = router.Run(ctx) }()

	observerID := newUserID()
	observer := &recordingConn{}
	registry.Register(observerID, observer)

	userID := newUserID()
	first := &fakeConn{}
	second := &fakeConn{}
	store.EXPECT().TouchLastActivity(gomock.Any(), userID, gomock.Any()).Return(nil).Times(2)

	// Given a reconnect: the registry closed the first handle, and its
	// serving goroutine will still run its deferred teardown
	presence.Connected(ctx, userID, first)
	presence.Connected(ctx, userID, second)

	// When the replaced connection's teardown fires
	presence.Disconnected(ctx, userID, first)

	// Then the user stays online on the new connection
	req.True(registry.Online(userID))
	req.Zero(second.closed.Load())

	// And no offline event went out
	time.Sleep(50 * time.Millisecond)
	for _, e := range observer.envelopes() {
		req.NotEqual(event.KindUserOffline, e.Kind)
	}
}

func TestPresenceManager_Replacement_Keeps_Single_Session(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	registry := NewRegistry()
	monitoring := observability.NewManager()
	router := NewRouter(testLogger(), registry, monitoring, 64, 100*time.Millisecond)
	presence := NewPresenceManager(testLogger(), registry, router, store, monitoring)

	ctx := context.Background()
	userID := newUserID()
	first := &fakeConn{}
	store.EXPECT().TouchLastActivity(gomock.Any(), userID, gomock.Any()).Return(nil).Times(2)

	// Given a connected user
	presence.Connected(ctx, userID, first)

	// When the same identity connects from a second device
	presence.Connected(ctx, userID, &fakeConn{})

	// Then the first handle was closed and one session remains
	req.Equal(int64(1), first.closed.Load())
	req.Len(registry.AllConns(), 1)
}
