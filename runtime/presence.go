package runtime

import (
	"context"
	"log/slog"
	"time"

	"channel-hub/contract"
	"channel-hub/domain"
	"channel-hub/domain/event"
	"channel-hub/observability"
)

// PresenceManager translates connect and disconnect into user_online and
// user_offline events broadcast to all live connections. Presence is global:
// there is no per-channel filtering of who may observe it.
type PresenceManager struct {
	log        *slog.Logger
	registry   *Registry
	router     *Router
	store      contract.Store
	monitoring *observability.Manager
}

func NewPresenceManager(log *slog.Logger, registry *Registry, router *Router,
	store contract.Store, monitoring *observability.Manager) *PresenceManager {
	return &PresenceManager{
		log:        log,
		registry:   registry,
		router:     router,
		store:      store,
		monitoring: monitoring,
	}
}

// Connected installs the session and announces the user online. If a prior
// session existed for the same identity its handle has already been closed
// by the registry; only one Session per user survives.
func (p *PresenceManager) Connected(ctx context.Context, userID domain.UserID, conn contract.Conn) {
	_, replaced := p.registry.Register(userID, conn)
	if replaced {
		p.log.Info("Replacing existing session", "user", userID)
	}
	p.monitoring.IncrConnectionsOpened()

	now := time.Now().UTC()
	p.router.BroadcastAll(event.KindUserOnline, event.Presence{UserID: userID, At: now})

	if err := p.store.TouchLastActivity(ctx, userID, now); err != nil {
		p.log.Error("Last-activity update failed", "user", userID, "error", err)
	}
}

// Disconnected tears down the session identified by its connection handle.
// Idempotent: a user with no live session produces no offline event, and a
// stale handle (the one a reconnect already replaced) changes nothing, so
// the replacement session stays registered and no spurious offline event
// goes out.
func (p *PresenceManager) Disconnected(ctx context.Context, userID domain.UserID, conn contract.Conn) {
	if !p.registry.Unregister(userID, conn) {
		return
	}
	p.monitoring.IncrConnectionsClosed()

	now := time.Now().UTC()
	p.router.BroadcastAll(event.KindUserOffline, event.Presence{UserID: userID, At: now})

	if err := p.store.TouchLastActivity(ctx, userID, now); err != nil {
		p.log.Error("Last-activity update failed", "user", userID, "error", err)
	}
}

// RefreshActivity records user activity without any presence transition.
func (p *PresenceManager) RefreshActivity(ctx context.Context, userID domain.UserID) {
	if err := p.store.TouchLastActivity(ctx, userID, time.Now().UTC()); err != nil {
		p.log.Error("Last-activity update failed", "user", userID, "error", err)
	}
}
