package repositories

import (
	"testing"

	"channel-hub/domain"
	"channel-hub/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openTestUserRepository(t *testing.T) *UserRepository {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepository(db)
}

func TestUserRepository_Create_And_Lookup(t *testing.T) {
	req := require.New(t)
	users := openTestUserRepository(t)

	id, err := users.CreateUser("alice@example.com", "argon2-hash")
	req.NoError(err)
	req.NotEmpty(id)

	byEmail, err := users.GetUserByEmail("alice@example.com")
	req.NoError(err)
	req.Equal(id, byEmail.ID)
	req.Equal("argon2-hash", byEmail.PasswordHash)
	req.Equal(domain.RoleMember, byEmail.Role)

	byID, err := users.GetUserByID(id)
	req.NoError(err)
	req.Equal(byEmail.Email, byID.Email)
}

func TestUserRepository_Duplicate_Email_Rejected(t *testing.T) {
	req := require.New(t)
	users := openTestUserRepository(t)

	_, err := users.CreateUser("alice@example.com", "hash-1")
	req.NoError(err)

	_, err = users.CreateUser("alice@example.com", "hash-2")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestUserRepository_Unknown_User(t *testing.T) {
	req := require.New(t)
	users := openTestUserRepository(t)

	_, err := users.GetUserByEmail("ghost@example.com")
	req.ErrorIs(err, errors.ErrNotFound)

	_, err = users.GetUserByID("no-such-id")
	req.ErrorIs(err, errors.ErrNotFound)
}
