package services

import (
	"context"
	"fmt"

	"channel-hub/auth"
	"channel-hub/domain"
	"channel-hub/errors"
	"channel-hub/repositories"
)

type IAuthService interface {
	Login(email, password string) (Token, error)
	Register(email, password string) (Token, error)
	Authenticate(ctx context.Context, credential string) (domain.UserID, domain.Role, error)
}

type Token string

// AuthService issues and verifies session credentials. It also implements
// the authentication contract consumed at connection handshake: the role is
// re-read from storage on every call rather than trusted from the token, so
// a demoted moderator loses privileges as soon as the record changes.
type AuthService struct {
	users  repositories.IUserRepository
	tokens *auth.TokenManager
}

func NewAuthService(users repositories.IUserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(email, password string) (Token, error) {
	valReq := auth.RegisterRequest{Email: email, Password: password}

	// Validate business rules before any expensive cryptographic operation.
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// Hashing happens in the service layer to keep the repository unaware
	// of plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	userID, err := s.users.CreateUser(email, hashedPassword)
	if err != nil {
		return "", err // Propagates ErrUserAlreadyExists if the email is taken
	}

	token, err := s.tokens.Generate(userID, domain.RoleMember)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}

func (s *AuthService) Login(email, password string) (Token, error) {
	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		// Generic error to prevent user enumeration attacks.
		return "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}

// Authenticate maps a bearer credential to an identity and a fresh global
// role.
func (s *AuthService) Authenticate(_ context.Context, credential string) (domain.UserID, domain.Role, error) {
	claims, err := s.tokens.Validate(credential)
	if err != nil {
		return "", "", errors.ErrInvalidCredentials
	}
	user, err := s.users.GetUserByID(domain.UserID(claims.UserID))
	if err != nil {
		return "", "", errors.ErrInvalidCredentials
	}
	return user.ID, user.Role, nil
}
