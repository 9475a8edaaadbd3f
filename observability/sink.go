package observability

import (
	"context"

	"channel-hub/domain/event"
)

// EventRecorder mirrors every broadcast into the Manager's recent-event
// window. Attached to the router as a permanent sink.
type EventRecorder struct {
	Manager *Manager
}

func (r EventRecorder) Consume(_ context.Context, e event.Envelope) error {
	r.Manager.RecordEvent(string(e.Kind), string(e.Channel), e.At)
	return nil
}
