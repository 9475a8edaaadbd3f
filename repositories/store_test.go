package repositories

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"channel-hub/domain"
	"channel-hub/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newMessage(channelID domain.ChannelID, author domain.UserID, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:        uuid.New(),
		ChannelID: channelID,
		AuthorID:  author,
		Content:   content,
		Type:      domain.MessageText,
		CreatedAt: at,
		Version:   uuid.New(),
	}
}

func TestStore_Insert_And_Find_Message(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	ctx := context.Background()

	msg := newMessage("general", "alice", "hello", time.Now().UTC())
	req.NoError(store.InsertMessage(ctx, msg))

	found, err := store.FindMessage(ctx, msg.ID)
	req.NoError(err)
	req.Equal(msg.ID, found.ID)
	req.Equal(msg.Content, found.Content)
	req.Equal(msg.Version, found.Version)
}

func TestStore_Find_Unknown_Message(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)

	_, err := store.FindMessage(context.Background(), uuid.New())

	req.ErrorIs(err, errors.ErrNotFound)
}

func TestStore_Update_With_Stale_Version_Conflicts(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	ctx := context.Background()

	msg := newMessage("general", "alice", "v1", time.Now().UTC())
	req.NoError(store.InsertMessage(ctx, msg))

	// First writer wins and bumps the version
	first := msg
	first.Content = "v2"
	updated, err := store.UpdateMessage(ctx, first)
	req.NoError(err)
	req.NotEqual(msg.Version, updated.Version)

	// Second writer still holds the original version
	second := msg
	second.Content = "v2-competing"
	_, err = store.UpdateMessage(ctx, second)
	req.ErrorIs(err, errors.ErrConflict)

	// The winning write is the one on disk
	found, err := store.FindMessage(ctx, msg.ID)
	req.NoError(err)
	req.Equal("v2", found.Content)
}

func TestStore_List_Messages_Newest_First(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		msg := newMessage("general", "alice", fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Second))
		req.NoError(store.InsertMessage(ctx, msg))
	}

	msgs, _, err := store.ListMessages(ctx, "general", nil, 10)

	req.NoError(err)
	req.Len(msgs, 5)
	req.Equal("m4", msgs[0].Content)
	req.Equal("m0", msgs[4].Content)
}

func TestStore_List_Messages_Paginates_With_Cursor(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		msg := newMessage("general", "alice", fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Second))
		req.NoError(store.InsertMessage(ctx, msg))
	}

	firstPage, cursor, err := store.ListMessages(ctx, "general", nil, 2)
	req.NoError(err)
	req.Len(firstPage, 2)
	req.Equal("m4", firstPage[0].Content)
	req.Equal("m3", firstPage[1].Content)
	req.NotNil(cursor)

	secondPage, _, err := store.ListMessages(ctx, "general", cursor, 2)
	req.NoError(err)
	req.Len(secondPage, 2)
	req.Equal("m2", secondPage[0].Content)
	req.Equal("m1", secondPage[1].Content)
}

func TestStore_List_Messages_Scoped_To_Channel(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	req.NoError(store.InsertMessage(ctx, newMessage("general", "alice", "here", now)))
	req.NoError(store.InsertMessage(ctx, newMessage("random", "alice", "elsewhere", now)))

	msgs, _, err := store.ListMessages(ctx, "general", nil, 10)

	req.NoError(err)
	req.Len(msgs, 1)
	req.Equal("here", msgs[0].Content)
}

func TestStore_Recent_Messages_Respects_Window(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	req.NoError(store.InsertMessage(ctx, newMessage("general", "alice", "fresh", now.Add(-time.Minute))))
	req.NoError(store.InsertMessage(ctx, newMessage("general", "alice", "stale", now.Add(-30*time.Minute))))
	// Another author's history must not leak in
	req.NoError(store.InsertMessage(ctx, newMessage("general", "bob", "not mine", now)))

	entries, err := store.RecentMessages(ctx, "alice", "general", 5*time.Minute)

	req.NoError(err)
	req.Len(entries, 1)
	req.Equal("fresh", entries[0].Content)
}

func TestStore_Create_Channel_Makes_Creator_Admin(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	ctx := context.Background()

	ch := domain.Channel{
		ID:        domain.NewChannelID(),
		Name:      "gardening",
		CreatorID: "alice",
		CreatedAt: time.Now().UTC(),
	}
	req.NoError(store.CreateChannel(ctx, ch))

	found, err := store.FindChannel(ctx, ch.ID)
	req.NoError(err)
	req.Equal("gardening", found.Name)

	m, err := store.FindMembership(ctx, ch.ID, "alice")
	req.NoError(err)
	req.Equal(domain.RoleAdmin, m.Role)
}

func TestStore_Membership_Roundtrip(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	ctx := context.Background()

	ch := domain.Channel{ID: domain.NewChannelID(), CreatorID: "alice", Private: true}
	req.NoError(store.CreateChannel(ctx, ch))
	req.NoError(store.AddMember(ctx, ch.ID, "bob", domain.RoleMember))

	member, err := store.IsMember(ctx, ch.ID, "bob")
	req.NoError(err)
	req.True(member)

	info, err := store.Membership(ctx, ch.ID, "bob")
	req.NoError(err)
	req.True(info.IsMember)
	req.True(info.Private)
	req.Equal(domain.RoleMember, info.Role)

	req.NoError(store.RemoveMember(ctx, ch.ID, "bob"))

	member, err = store.IsMember(ctx, ch.ID, "bob")
	req.NoError(err)
	req.False(member)

	info, err = store.Membership(ctx, ch.ID, "bob")
	req.NoError(err)
	req.False(info.IsMember)
	req.True(info.Private) // channel visibility survives the departure
}

func TestStore_HasRole_Honours_Role_Order(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	ctx := context.Background()

	ch := domain.Channel{ID: domain.NewChannelID(), CreatorID: "alice"}
	req.NoError(store.CreateChannel(ctx, ch))
	req.NoError(store.AddMember(ctx, ch.ID, "mod", domain.RoleModerator))
	req.NoError(store.AddMember(ctx, ch.ID, "bob", domain.RoleMember))

	// Admin creator clears the moderator bar
	ok, err := store.HasRole(ctx, ch.ID, "alice", domain.RoleModerator)
	req.NoError(err)
	req.True(ok)

	ok, err = store.HasRole(ctx, ch.ID, "mod", domain.RoleModerator)
	req.NoError(err)
	req.True(ok)

	ok, err = store.HasRole(ctx, ch.ID, "bob", domain.RoleModerator)
	req.NoError(err)
	req.False(ok)

	// Unknown users simply lack the role, no error
	ok, err = store.HasRole(ctx, ch.ID, "stranger", domain.RoleModerator)
	req.NoError(err)
	req.False(ok)
}

func TestStore_Membership_Of_Unknown_Channel(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)

	_, err := store.Membership(context.Background(), "ghost", "alice")

	req.ErrorIs(err, errors.ErrNotFound)
}
