package ws

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"channel-hub/domain"
	"channel-hub/errors"
	"channel-hub/mocks"
	"channel-hub/moderation"
	"channel-hub/observability"
	"channel-hub/runtime"
	"channel-hub/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type handlerFixture struct {
	handler *Handler
	store   *mocks.MockStore
	oracle  *mocks.MockMembershipOracle
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	oracle := mocks.NewMockMembershipOracle(ctrl)

	registry := runtime.NewRegistry()
	router := runtime.NewRouter(log, registry, observability.NewManager(), 64, 100*time.Millisecond)
	typing := runtime.NewTypingTracker(registry, router)
	pipeline := moderation.NewPipeline(log, moderation.Config{}, nil, nil, observability.NewManager())
	lifecycle := services.NewLifecycle(log, store, oracle, pipeline)
	chat := services.NewChatService(log, store, oracle, registry, router, typing, lifecycle, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = router.Run(ctx) }()
	t.Cleanup(cancel)

	handler := NewHandler(log, nil, nil, chat, 16, 10, 20)
	return &handlerFixture{handler: handler, store: store, oracle: oracle}
}

func storedMessage(author domain.UserID) domain.Message {
	return domain.Message{
		ID:        uuid.New(),
		ChannelID: "general",
		AuthorID:  author,
		Content:   "some content",
		Type:      domain.MessageText,
		CreatedAt: time.Now().UTC().Add(-time.Minute),
		Version:   uuid.New(),
	}
}

func passthroughUpdate(_ context.Context, msg domain.Message) (domain.Message, error) {
	msg.Version = uuid.New()
	return msg, nil
}

func TestHandler_Delete_Message_Action(t *testing.T) {
	req := require.New(t)
	f := newHandlerFixture(t)
	alice := services.Principal{UserID: "alice", Role: domain.RoleMember}
	msg := storedMessage("alice")

	f.store.EXPECT().FindMessage(gomock.Any(), msg.ID).Return(msg, nil)
	f.store.EXPECT().UpdateMessage(gomock.Any(), gomock.Any()).DoAndReturn(passthroughUpdate)

	err := f.handler.apply(context.Background(), alice, clientEvent{
		Action:    actionDeleteMessage,
		MessageID: msg.ID.String(),
	})

	req.NoError(err)
}

func TestHandler_Flag_Message_Action(t *testing.T) {
	req := require.New(t)
	f := newHandlerFixture(t)
	bob := services.Principal{UserID: "bob", Role: domain.RoleMember}
	msg := storedMessage("alice")

	f.store.EXPECT().FindMessage(gomock.Any(), msg.ID).Return(msg, nil)
	f.oracle.EXPECT().Membership(gomock.Any(), domain.ChannelID("general"), domain.UserID("bob")).
		Return(domain.MembershipInfo{IsMember: true}, nil)
	f.store.EXPECT().UpdateMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, m domain.Message) (domain.Message, error) {
			// The reason string from the frame made it into the flag
			require.NotNil(t, m.Flag)
			require.Equal(t, domain.FlagSpam, m.Flag.Reason)
			return passthroughUpdate(ctx, m)
		})

	err := f.handler.apply(context.Background(), bob, clientEvent{
		Action:    actionFlagMessage,
		MessageID: msg.ID.String(),
		Reason:    "spam",
	})

	req.NoError(err)
}

func TestHandler_Unflag_Message_Action(t *testing.T) {
	req := require.New(t)
	f := newHandlerFixture(t)
	mod := services.Principal{UserID: "mod", Role: domain.RoleModerator}
	msg := storedMessage("alice")
	msg.Flag = &domain.FlagState{Reason: domain.FlagSpam, FlaggedBy: "bob", FlaggedAt: time.Now().UTC()}

	f.store.EXPECT().FindMessage(gomock.Any(), msg.ID).Return(msg, nil)
	f.store.EXPECT().UpdateMessage(gomock.Any(), gomock.Any()).DoAndReturn(passthroughUpdate)

	err := f.handler.apply(context.Background(), mod, clientEvent{
		Action:    actionUnflagMessage,
		MessageID: msg.ID.String(),
	})

	req.NoError(err)
}

func TestHandler_Moderation_Actions_Surface_Operation_Errors(t *testing.T) {
	req := require.New(t)
	f := newHandlerFixture(t)
	mallory := services.Principal{UserID: "mallory", Role: domain.RoleMember}
	msg := storedMessage("alice")

	f.store.EXPECT().FindMessage(gomock.Any(), msg.ID).Return(msg, nil)
	f.store.EXPECT().HasRole(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(false, nil)

	err := f.handler.apply(context.Background(), mallory, clientEvent{
		Action:    actionDeleteMessage,
		MessageID: msg.ID.String(),
	})

	req.ErrorIs(err, errors.ErrForbidden)
	req.NotErrorIs(err, errBadFrame)
}

func TestHandler_Malformed_Message_ID_Is_Bad_Frame(t *testing.T) {
	req := require.New(t)
	f := newHandlerFixture(t)
	alice := services.Principal{UserID: "alice", Role: domain.RoleMember}

	for _, action := range []string{actionEditMessage, actionDeleteMessage, actionFlagMessage, actionUnflagMessage} {
		err := f.handler.apply(context.Background(), alice, clientEvent{
			Action:    action,
			MessageID: "not-a-uuid",
		})
		req.ErrorIs(err, errBadFrame, action)
	}
}

func TestHandler_Unknown_Action_Is_Bad_Frame(t *testing.T) {
	req := require.New(t)
	f := newHandlerFixture(t)

	err := f.handler.apply(context.Background(),
		services.Principal{UserID: "alice"}, clientEvent{Action: "self_destruct"})

	req.ErrorIs(err, errBadFrame)
}
