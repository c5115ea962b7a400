package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mobilerecharge/server/internal/model"
)

// ErrSessionNotFound is returned when no live session matches the given id
var ErrSessionNotFound = errors.New("session not found")

// SessionRepo defines the interface for admin session persistence
type SessionRepo interface {
	Create(ctx context.Context, token model.ProviderToken, expiresAt time.Time) (model.AdminSession, error)
	FindActive(ctx context.Context, id uuid.UUID) (model.AdminSession, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type sessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo instance
func NewSessionRepo(db *sql.DB) SessionRepo {
	return &sessionRepo{db: db}
}

// Create inserts a new admin session and returns it
func (r *sessionRepo) Create(ctx context.Context, token model.ProviderToken, expiresAt time.Time) (model.AdminSession, error) {
	s := model.AdminSession{
		ID:          uuid.New(),
		AccessToken: token.AccessToken,
		InstanceURL: token.InstanceURL,
		ExpiresAt:   expiresAt,
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO admin_sessions (id, access_token, instance_url, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, s.ID, s.AccessToken, s.InstanceURL, s.ExpiresAt).Scan(&s.CreatedAt)
	if err != nil {
		return model.AdminSession{}, fmt.Errorf("insert admin session: %w", err)
	}
	return s, nil
}

// FindActive returns the session if it exists and has not expired
func (r *sessionRepo) FindActive(ctx context.Context, id uuid.UUID) (model.AdminSession, error) {
	var s model.AdminSession
	var idStr string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, access_token, instance_url, created_at, expires_at
		FROM admin_sessions
		WHERE id = $1 AND expires_at > now()
	`, id).Scan(
		&idStr,
		&s.AccessToken,
		&s.InstanceURL,
		&s.CreatedAt,
		&s.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.AdminSession{}, ErrSessionNotFound
		}
		return model.AdminSession{}, fmt.Errorf("find admin session: %w", err)
	}
	s.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.AdminSession{}, fmt.Errorf("parse session ID: %w", err)
	}
	return s, nil
}

// Delete removes the session. Deleting an unknown id is not an error.
func (r *sessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete admin session: %w", err)
	}
	return nil
}

// DeleteExpired purges sessions past their expiry and returns how many were removed
func (r *sessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
