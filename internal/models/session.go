package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is a console login. Only SessionID travels in the signed cookie;
// everything else stays in the session store.
type Session struct {
	SessionID uuid.UUID // UUIDv7, so ids sort by creation time
	UserID    int64     // zero when the backend login returned no id
	Username  string    // sent to the backend as x-user-id

	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastUsedAt time.Time

	UserAgent string
	IPAddress string
}

// ExpiredAt reports whether the session is past its expiry at now.
func (s *Session) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// User is the backend identity the console acts as for this session.
func (s *Session) User() User {
	return User{ID: s.UserID, Username: s.Username}
}
