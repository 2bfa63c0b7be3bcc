package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/gitclub-console/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionExists   = errors.New("session already exists")
)

// SessionStore persists console sessions.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error

	// Get returns ErrSessionNotFound for unknown ids and ErrSessionExpired
	// once ExpiresAt has passed.
	Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)

	UpdateLastUsed(ctx context.Context, sessionID uuid.UUID) error

	// Delete removes a single session (logout).
	Delete(ctx context.Context, sessionID uuid.UUID) error

	// DeleteByUsername removes every session of a user (logout everywhere).
	DeleteByUsername(ctx context.Context, username string) (int, error)

	// DeleteExpired removes expired sessions and returns how many were removed.
	DeleteExpired(ctx context.Context) (int, error)
}
