package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthService issues and resolves opaque session tokens. The username is
// the owner id that carts and orders are scoped by.
type AuthService struct {
	repo   repository.AuthRepository
	logger *zap.Logger
}

func NewAuthService(repo repository.AuthRepository, logger *zap.Logger) *AuthService {
	return &AuthService{repo: repo, logger: logger}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.Session, error) {
	user, stored, err := s.repo.GetUserWithPassword(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if stored != password {
		return nil, ErrInvalidCredentials
	}

	session := &domain.Session{
		Token:     uuid.New().String(),
		Username:  user.Username,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("user logged in", zap.String("username", username))
	return session, nil
}

// Logout is idempotent: dropping an unknown token succeeds.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.repo.DeleteSession(ctx, token); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return err
	}
	return nil
}

// Resolve maps a bearer token to its owner; repository.ErrSessionNotFound
// means the token is invalid or was logged out.
func (s *AuthService) Resolve(ctx context.Context, token string) (string, error) {
	session, err := s.repo.GetSession(ctx, token)
	if err != nil {
		return "", err
	}
	return session.Username, nil
}
