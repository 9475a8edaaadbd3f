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

// broadcastJob is one queued emission. A nil channel ID means the event goes
// to every live connection (presence).
type broadcastJob struct {
	env     event.Envelope
	global  bool
	exclude []domain.UserID
}

// Router is the canonical emission point for every channel-scoped event.
// Submissions go through a single serialized queue drained by Run, so all
// subscribers observe events from the same channel in submission order.
// No ordering is guaranteed across channels beyond queue order itself.
type Router struct {
	log         *slog.Logger
	registry    *Registry
	monitoring  *observability.Manager
	queue       chan broadcastJob
	sinks       []contract.EventSink
	sendTimeout time.Duration
}

func NewRouter(log *slog.Logger, registry *Registry, monitoring *observability.Manager,
	queueSize int, sendTimeout time.Duration) *Router {
	return &Router{
		log:         log,
		registry:    registry,
		monitoring:  monitoring,
		queue:       make(chan broadcastJob, queueSize),
		sendTimeout: sendTimeout,
	}
}

// AddSinks attaches permanent sinks. Must be called before Run.
func (r *Router) AddSinks(sinks ...contract.EventSink) {
	r.sinks = append(r.sinks, sinks...)
}

// Broadcast enqueues a channel-scoped event for every current subscriber of
// channelID, excluding at most one user (used when the originator already
// received a differently-shaped confirmation).
func (r *Router) Broadcast(channelID domain.ChannelID, kind event.Kind, payload any, exclude ...domain.UserID) {
	r.enqueue(broadcastJob{
		env: event.Envelope{
			Kind:    kind,
			Channel: channelID,
			Payload: payload,
			At:      time.Now().UTC(),
		},
		exclude: exclude,
	})
}

// BroadcastAll enqueues a global event for every live connection.
// Presence is global by design.
func (r *Router) BroadcastAll(kind event.Kind, payload any, exclude ...domain.UserID) {
	r.enqueue(broadcastJob{
		env: event.Envelope{
			Kind:    kind,
			Payload: payload,
			At:      time.Now().UTC(),
		},
		global:  true,
		exclude: exclude,
	})
}

func (r *Router) enqueue(job broadcastJob) {
	select {
	case r.queue <- job:
	default:
		r.monitoring.IncrEventsDropped()
		r.log.Warn("Broadcast queue full, dropping event",
			"kind", job.env.Kind, "channel", job.env.Channel)
	}
}

// Run drains the queue until the context is cancelled. Implements
// contract.Worker so the supervisor can restart it after a panic.
func (r *Router) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.log.Debug("Context done, stopping broadcast router")
			return nil
		case job := <-r.queue:
			r.dispatch(ctx, job)
		}
	}
}

// dispatch resolves the audience at delivery time and sends the envelope to
// each handle. Resolution happens here, not at enqueue time, so a user who
// unsubscribed between submission and delivery is not contacted.
func (r *Router) dispatch(ctx context.Context, job broadcastJob) {
	var conns []contract.Conn
	if job.global {
		conns = r.registry.AllConns(job.exclude...)
	} else {
		conns = r.registry.SubscribersOf(job.env.Channel, job.exclude...)
	}

	for _, conn := range conns {
		sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
		err := conn.Send(sendCtx, job.env)
		cancel()
		if err != nil {
			// Dead-connection guard: a handle that fails delivery is
			// counted and skipped, never retried here. Disconnect
			// cleanup belongs to the ingress that owns the socket.
			r.monitoring.IncrEventsDropped()
			r.log.Warn("Delivery failed", "kind", job.env.Kind, "error", err)
			continue
		}
		r.monitoring.IncrEventsDelivered()
	}

	for _, sink := range r.sinks {
		if err := sink.Consume(ctx, job.env); err != nil {
			r.log.Error("Sink failed", "kind", job.env.Kind, "error", err)
		}
	}
}
