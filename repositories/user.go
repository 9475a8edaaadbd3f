//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"time"

	"channel-hub/domain"
	"channel-hub/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	userEmailPrefix = "user:email:"
	userIDPrefix    = "user:id:"
)

type IUserRepository interface {
	CreateUser(email, hashedPassword string) (domain.UserID, error)
	GetUserByEmail(email string) (User, error)
	GetUserByID(id domain.UserID) (User, error)
}

// User is the repository-level representation of an account.
type User struct {
	ID           domain.UserID
	Email        string
	PasswordHash string
	Role         domain.Role
	CreatedAt    time.Time
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser persists the account under both the email key (login lookup)
// and the ID key (role refresh). Fails if the email is already taken.
func (u *UserRepository) CreateUser(email, hashedPassword string) (domain.UserID, error) {
	user := User{
		ID:           domain.UserID(uuid.NewString()),
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         domain.RoleMember,
		CreatedAt:    time.Now().UTC(),
	}

	err := u.db.Update(func(txn *badger.Txn) error {
		emailKey := []byte(userEmailPrefix + email)
		if _, err := txn.Get(emailKey); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := setJSON(txn, emailKey, user); err != nil {
			return err
		}
		return setJSON(txn, []byte(userIDPrefix+string(user.ID)), user)
	})
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func (u *UserRepository) GetUserByEmail(email string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(userEmailPrefix+email), &user)
	})
	return user, err
}

func (u *UserRepository) GetUserByID(id domain.UserID) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(userIDPrefix+string(id)), &user)
	})
	return user, err
}
