package runtime

import (
	"context"
	"testing"
	"time"

	"channel-hub/domain"
	"channel-hub/domain/event"
	"channel-hub/observability"

	"github.com/stretchr/testify/require"
)

func typingFixture(t *testing.T) (*TypingTracker, *Registry, *recordingConn, domain.UserID, domain.UserID) {
	t.Helper()
	registry := NewRegistry()
	router := NewRouter(testLogger(), registry, observability.NewManager(), 64, 100*time.Millisecond)
	tracker := NewTypingTracker(registry, router)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = router.Run(ctx) }()

	typist, observer := newUserID(), newUserID()
	observerConn := &recordingConn{}
	registry.Register(typist, &fakeConn{})
	registry.Register(observer, observerConn)
	registry.Subscribe(typist, "general")
	registry.Subscribe(observer, "general")
	return tracker, registry, observerConn, typist, observer
}

func countKind(conn *recordingConn, kind event.Kind) int {
	n := 0
	for _, e := range conn.envelopes() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func TestTypingTracker_Start_Notifies_Other_Subscribers(t *testing.T) {
	req := require.New(t)
	tracker, _, observerConn, typist, _ := typingFixture(t)

	// When the typist starts typing
	tracker.Start(typist, "general")

	// Then the observer is notified and the typist is listed
	req.Eventually(func() bool {
		return countKind(observerConn, event.KindTypingStarted) == 1
	}, time.Second, 5*time.Millisecond)
	req.Equal([]domain.UserID{typist}, tracker.ActiveIn("general"))
}

func TestTypingTracker_Start_Without_Subscription_Is_Silent(t *testing.T) {
	req := require.New(t)
	tracker, _, observerConn, typist, _ := typingFixture(t)

	// When typing in a channel the typist never joined
	tracker.Start(typist, "other")

	// Then nothing is emitted and nothing is tracked
	req.Empty(tracker.ActiveIn("other"))
	time.Sleep(50 * time.Millisecond)
	req.Zero(countKind(observerConn, event.KindTypingStarted))
}

func TestTypingTracker_ClearOnSend_Emits_Stop(t *testing.T) {
	req := require.New(t)
	tracker, _, observerConn, typist, _ := typingFixture(t)

	// Given an active typing entry
	tracker.Start(typist, "general")

	// When the typist's message lands
	tracker.ClearOnSend(typist, "general")

	// Then the indicator is gone and subscribers got a stop event
	req.Empty(tracker.ActiveIn("general"))
	req.Eventually(func() bool {
		return countKind(observerConn, event.KindTypingStopped) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestTypingTracker_ClearOnSend_Without_Entry_Is_Silent(t *testing.T) {
	req := require.New(t)
	tracker, _, observerConn, typist, _ := typingFixture(t)

	// When clearing without an active entry
	tracker.ClearOnSend(typist, "general")

	// Then no stop event goes out
	time.Sleep(50 * time.Millisecond)
	req.Zero(countKind(observerConn, event.KindTypingStopped))
}
