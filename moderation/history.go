package moderation

import (
	"context"
	"log/slog"
	"time"

	"channel-hub/contract"
	"channel-hub/errors"
)

const (
	// cooldownWindow is the minimum silence required between two messages
	// from the same author in the same channel.
	cooldownWindow = 5 * time.Minute
	// duplicateWindow is how far back byte-identical content is suppressed.
	duplicateWindow = 60 * time.Minute
)

// HistoryFilter applies the cooldown and duplicate-suppression rules against
// the author's recent message history in the target channel.
//
// A failed history lookup FAILS OPEN: the send proceeds unmoderated. This is
// a deliberate trade-off favoring availability over strict spam suppression;
// the failure is logged so operators can see when the filter is blind.
type HistoryFilter struct {
	store contract.Store
	log   *slog.Logger
	now   func() time.Time
}

func NewHistoryFilter(store contract.Store, log *slog.Logger) *HistoryFilter {
	return &HistoryFilter{store: store, log: log, now: time.Now}
}

func (f *HistoryFilter) Name() string { return "history" }

func (f *HistoryFilter) Check(ctx context.Context, in Input) error {
	// An edit happens inside the author's own cooldown by construction;
	// only fresh sends count against the rate rules.
	if in.Edit {
		return nil
	}
	entries, err := f.store.RecentMessages(ctx, in.AuthorID, in.ChannelID, duplicateWindow)
	if err != nil {
		f.log.Warn("History lookup failed, spam filter disabled for this message",
			"author", in.AuthorID, "channel", in.ChannelID, "error", err)
		return nil
	}

	now := f.now().UTC()
	for _, entry := range entries {
		if now.Sub(entry.At) <= cooldownWindow {
			return errors.ModerationRejected{Reason: errors.ReasonCooldown}
		}
		if entry.Content == in.Content {
			return errors.ModerationRejected{Reason: errors.ReasonDuplicate}
		}
	}
	return nil
}
