//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"channel-hub/domain"
	"channel-hub/domain/event"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Conn is the opaque transport reference held by the registry for one live
// connection. Send must never block the caller indefinitely; a slow consumer
// is the transport's problem, not the router's.
type Conn interface {
	Send(ctx context.Context, e event.Envelope) error
	Close() error
}

// EventSink receives every broadcast envelope in submission order.
// Sinks serve side concerns (search indexing, telemetry); delivery to
// live connections does not go through them.
type EventSink interface {
	Consume(ctx context.Context, e event.Envelope) error
}

// RecentEntry is the slice of message history the rate filter inspects.
type RecentEntry struct {
	Content string
	At      time.Time
}

// Store is the persistence boundary. Every call may block on I/O and must
// therefore never run under the registry lock.
type Store interface {
	FindChannel(ctx context.Context, id domain.ChannelID) (domain.Channel, error)
	FindMessage(ctx context.Context, id uuid.UUID) (domain.Message, error)
	InsertMessage(ctx context.Context, msg domain.Message) error
	// UpdateMessage writes m only if the stored version matches m.Version.
	// A mismatch surfaces as errors.ErrConflict. The returned message
	// carries the new version.
	UpdateMessage(ctx context.Context, msg domain.Message) (domain.Message, error)
	ListMessages(ctx context.Context, channelID domain.ChannelID, cursor *string, limit int) ([]domain.Message, *string, error)
	CreateChannel(ctx context.Context, ch domain.Channel) error
	FindMembership(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) (domain.Membership, error)
	AddMember(ctx context.Context, channelID domain.ChannelID, userID domain.UserID, role domain.Role) error
	RemoveMember(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) error
	IsMember(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) (bool, error)
	HasRole(ctx context.Context, channelID domain.ChannelID, userID domain.UserID, min domain.Role) (bool, error)
	RecentMessages(ctx context.Context, authorID domain.UserID, channelID domain.ChannelID, since time.Duration) ([]RecentEntry, error)
	TouchLastActivity(ctx context.Context, userID domain.UserID, at time.Time) error
}

// MembershipOracle answers the authorization question for one user in one
// channel, reading through to the latest committed state.
type MembershipOracle interface {
	Membership(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) (domain.MembershipInfo, error)
}

// Searcher answers channel-scoped full-text queries with the IDs of the
// matching messages, best match first.
type Searcher interface {
	Search(ctx context.Context, channelID domain.ChannelID, query string, limit int) ([]uuid.UUID, error)
}

// AuthService maps a credential to an identity and a global role.
// Consulted at connection handshake and at every mutation needing a
// fresh role check.
type AuthService interface {
	Authenticate(ctx context.Context, credential string) (domain.UserID, domain.Role, error)
}
