// Package accounts implements user registration and sign-in on top of the
// user repository: argon2id password hashing and JWT session issuance.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/common"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/cryptox"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/auth"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/models"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/repositories/users"
)

type Service struct {
	repo                  users.Repository
	jwtSecret             []byte
	tokenValidityDuration time.Duration
}

func NewService(repo users.Repository, jwtSecret []byte, tokenValidityDuration time.Duration) *Service {
	return &Service{
		repo:                  repo,
		jwtSecret:             jwtSecret,
		tokenValidityDuration: tokenValidityDuration,
	}
}

// Register creates a user and signs them in, returning a session token.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, string, error) {
	if username == "" || password == "" {
		return nil, "", fmt.Errorf("%w: username and password are required", common.ErrValidation)
	}

	hash, salt, err := cryptox.HashPassword([]byte(password))
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, &models.User{
		UserName:     username,
		PasswordHash: hash,
		Salt:         salt,
	})
	if err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenValidityDuration)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	return user, token, nil
}

// Login verifies the password and returns a session token. Unknown users and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, "", common.ErrUnauthorized
		}
		return nil, "", fmt.Errorf("find user: %w", err)
	}

	if !cryptox.VerifyPassword([]byte(password), user.Salt, user.PasswordHash) {
		return nil, "", common.ErrUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenValidityDuration)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	return user, token, nil
}
