package api

import (
	"context"
	"strings"

	"github.com/wolfeidau/gitclub-console/internal/models"
)

// SessionService manages the backend login session.
type SessionService struct{ c *Client }

type loginRequest struct {
	Username string `json:"username,omitempty"`
}

// Login logs in as username. An empty username asks the backend for a
// random identity.
func (s *SessionService) Login(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.c.post(ctx, "/session/login", loginRequest{Username: strings.TrimSpace(username)}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Current returns the logged in user, or nil when there is none.
func (s *SessionService) Current(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := s.c.get(ctx, "/session", &user); err != nil {
		return nil, err
	}
	if user.Username == "" {
		return nil, nil
	}
	return &user, nil
}

// Logout ends the backend session.
func (s *SessionService) Logout(ctx context.Context) error {
	return s.c.delete(ctx, "/session/logout")
}
