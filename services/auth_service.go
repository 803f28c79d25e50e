package services

import (
	"fmt"
	"time"

	"localchat/auth"
	"localchat/domain"
	"localchat/errors"
	"localchat/repositories"
)

type IAuthService interface {
	Login(username, password string) (domain.Identity, Token, error)
	Register(username, password string) (domain.Identity, Token, error)
}

type Token string

func (t Token) String() string {
	return string(t)
}

// AuthService is the credential boundary of the directory: it is the only
// component that sees plain passwords.
type AuthService struct {
	userRepository repositories.IUserRepository
	tokenDuration  time.Duration
}

func NewAuthService(repo repositories.IUserRepository, tokenDuration time.Duration) IAuthService {
	return &AuthService{userRepository: repo, tokenDuration: tokenDuration}
}

func (s *AuthService) Register(username, password string) (domain.Identity, Token, error) {
	valReq := auth.RegisterRequest{
		Username: username,
		Password: password,
	}

	// 1. Validate business rules (username format, password complexity)
	// before any expensive cryptographic operation. The validator already
	// returns field-specific sentinels; propagate them as-is.
	if err := auth.ValidateRegister(valReq); err != nil {
		return domain.Identity{}, "", err
	}

	// 2. Hash the password with Argon2id, here in the service layer so
	// the repository never sees plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return domain.Identity{}, "", fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Persist the identity.
	userID, err := s.userRepository.CreateUser(username, hashedPassword)
	if err != nil {
		return domain.Identity{}, "", err // Propagates ErrUserAlreadyExists if the name is taken
	}

	identity := domain.Identity{
		ID:        userID,
		Username:  username,
		Roles:     []string{"user"},
		CreatedAt: time.Now().UTC(),
	}

	// 4. Issue the initial session token.
	token, err := auth.GenerateToken(username, identity.Roles, s.tokenDuration)
	if err != nil {
		return domain.Identity{}, "", errors.ErrTokenGeneration
	}

	return identity, Token(token), nil
}

func (s *AuthService) Login(username, password string) (domain.Identity, Token, error) {
	// 1. Retrieve the identity. Unknown-user and wrong-password failures
	// collapse into the same error to prevent user enumeration.
	user, err := s.userRepository.GetUser(username)
	if err != nil {
		return domain.Identity{}, "", errors.ErrInvalidCredentials
	}

	// 2. Compare the provided password against the stored hash.
	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return domain.Identity{}, "", errors.ErrInvalidCredentials
	}

	identity := domain.Identity{
		ID:        user.ID,
		Username:  user.Username,
		Roles:     user.Roles,
		CreatedAt: user.CreatedAt,
	}

	// 3. Issue the session token.
	token, err := auth.GenerateToken(user.Username, user.Roles, s.tokenDuration)
	if err != nil {
		return domain.Identity{}, "", errors.ErrTokenGeneration
	}

	return identity, Token(token), nil
}
