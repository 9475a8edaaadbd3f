// Package moderation is the ordered chain of content filters applied to
// every new or edited message body. The chain short-circuits on the first
// failure and performs no writes; only the history filter reads state.
package moderation

import (
	"context"
	"log/slog"

	"channel-hub/domain"
	"channel-hub/observability"
)

// Input is everything a filter may inspect for one candidate message.
// Edit marks re-moderation of existing content; rate rules keyed on the
// author's send history do not apply to it.
type Input struct {
	ChannelID  domain.ChannelID
	AuthorID   domain.UserID
	Content    string
	Type       domain.MessageType
	Attachment []byte
	Edit       bool
}

// Filter checks one aspect of a candidate message. A nil return passes it
// to the next filter; a ModerationRejected return stops the chain.
type Filter interface {
	Name() string
	Check(ctx context.Context, in Input) error
}

// Config enables or disables the optional filters. Length, URL, and
// attachment checks always run.
type Config struct {
	ProfanityEnabled bool
	HistoryEnabled   bool
}

type Pipeline struct {
	log        *slog.Logger
	filters    []Filter
	monitoring *observability.Manager
}

// NewPipeline assembles the filter chain in its fixed order: profanity,
// history (cooldown/duplicate), length/repetition, URL count, attachment.
func NewPipeline(log *slog.Logger, cfg Config, profanity *ProfanityFilter,
	history *HistoryFilter, monitoring *observability.Manager) *Pipeline {
	var filters []Filter
	if cfg.ProfanityEnabled {
		filters = append(filters, profanity)
	}
	if cfg.HistoryEnabled {
		filters = append(filters, history)
	}
	filters = append(filters, LengthFilter{}, URLFilter{}, AttachmentFilter{})

	return &Pipeline{log: log, filters: filters, monitoring: monitoring}
}

// Run applies every filter in order and returns the first rejection.
func (p *Pipeline) Run(ctx context.Context, in Input) error {
	for _, f := range p.filters {
		if err := f.Check(ctx, in); err != nil {
			p.monitoring.IncrModerationRejections()
			p.log.Info("Moderation rejected message",
				"filter", f.Name(),
				"author", in.AuthorID,
				"channel", in.ChannelID,
				"error", err)
			return err
		}
	}
	return nil
}
