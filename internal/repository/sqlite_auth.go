package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_shop/internal/domain"
)

func (r *SQLiteRepository) GetUserWithPassword(ctx context.Context, username string) (*domain.User, string, error) {
	query := `SELECT id, username, password FROM users WHERE username = $1`

	u := &domain.User{}
	var password string
	err := r.db.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &password)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrUserNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to query user: %w", err)
	}

	return u, password, nil
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, session *domain.Session) error {
	query := `INSERT INTO sessions (token, username, created_at) VALUES ($1, $2, $3)`

	_, err := r.db.ExecContext(ctx, query, session.Token, session.Username, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	query := `SELECT token, username, created_at FROM sessions WHERE token = $1`

	s := &domain.Session{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(&s.Token, &s.Username, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return s, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
