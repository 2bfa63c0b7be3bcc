package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/gitclub-console/internal/models"
	"github.com/wolfeidau/gitclub-console/internal/store"
)

const sessionColumns = `session_id, user_id, username, created_at, expires_at, last_used_at,
	user_agent, COALESCE(host(ip_address), '') AS ip_address`

// sessionRow mirrors the sessions table for pgx.RowToStructByName.
type sessionRow struct {
	SessionID  uuid.UUID `db:"session_id"`
	UserID     int64     `db:"user_id"`
	Username   string    `db:"username"`
	CreatedAt  time.Time `db:"created_at"`
	ExpiresAt  time.Time `db:"expires_at"`
	LastUsedAt time.Time `db:"last_used_at"`
	UserAgent  string    `db:"user_agent"`
	IPAddress  string    `db:"ip_address"`
}

func (r sessionRow) session() *models.Session {
	return &models.Session{
		SessionID:  r.SessionID,
		UserID:     r.UserID,
		Username:   r.Username,
		CreatedAt:  r.CreatedAt,
		ExpiresAt:  r.ExpiresAt,
		LastUsedAt: r.LastUsedAt,
		UserAgent:  r.UserAgent,
		IPAddress:  r.IPAddress,
	}
}

// SessionStore keeps console sessions in the sessions table.
type SessionStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewSessionStore returns a store backed by pool. The schema is created by
// RunMigrations.
func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool, now: time.Now}
}

func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	args := pgx.NamedArgs{
		"id":         session.SessionID,
		"user_id":    session.UserID,
		"username":   session.Username,
		"created":    session.CreatedAt,
		"expires":    session.ExpiresAt,
		"last_used":  session.LastUsedAt,
		"user_agent": session.UserAgent,
		"ip":         nil,
	}
	// inet has no empty value
	if session.IPAddress != "" {
		args["ip"] = session.IPAddress
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, user_id, username, created_at, expires_at,
			last_used_at, user_agent, ip_address)
		VALUES (@id, @user_id, @username, @created, @expires, @last_used, @user_agent, @ip::inet)`,
		args,
	)
	if err != nil {
		if err = mapPostgresError(err); errors.Is(err, store.ErrSessionExists) {
			return err
		}
		return fmt.Errorf("insert session: %w", err)
	}

	log.Debug().Stringer("session_id", session.SessionID).Str("username", session.Username).Msg("session stored")
	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	rows, _ := s.pool.Query(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_id = $1`, sessionID)
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[sessionRow])
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, store.ErrSessionNotFound
	case err != nil:
		return nil, fmt.Errorf("select session: %w", mapPostgresError(err))
	}

	session := row.session()
	if session.ExpiredAt(s.now()) {
		return nil, store.ErrSessionExpired
	}
	return session, nil
}

func (s *SessionStore) UpdateLastUsed(ctx context.Context, sessionID uuid.UUID) error {
	n, err := s.exec(ctx, `UPDATE sessions SET last_used_at = $2 WHERE session_id = $1`, sessionID, s.now())
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if n == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	n, err := s.exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return store.ErrSessionNotFound
	}
	log.Debug().Stringer("session_id", sessionID).Msg("session deleted")
	return nil
}

func (s *SessionStore) DeleteByUsername(ctx context.Context, username string) (int, error) {
	n, err := s.exec(ctx, `DELETE FROM sessions WHERE username = $1`, username)
	if err != nil {
		return 0, fmt.Errorf("delete sessions for %q: %w", username, err)
	}
	log.Info().Str("username", username).Int("count", n).Msg("sessions deleted for user")
	return n, nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int, error) {
	n, err := s.exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	if n > 0 {
		log.Info().Int("count", n).Msg("expired sessions swept")
	}
	return n, nil
}

// exec runs a statement and reports the affected row count.
func (s *SessionStore) exec(ctx context.Context, sql string, args ...any) (int, error) {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, mapPostgresError(err)
	}
	return int(tag.RowsAffected()), nil
}

var _ store.SessionStore = (*SessionStore)(nil)
