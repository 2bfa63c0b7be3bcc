package login

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/gitclub-console/internal/models"
)

const tokenIssuer = "gitclub-console"

// tokenSigner wraps a session id in an HS256 JWT so cookies cannot be forged.
type tokenSigner struct {
	secret []byte
}

func (s *tokenSigner) sign(session *models.Session) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        session.SessionID.String(),
		Subject:   session.Username,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

func (s *tokenSigner) verify(token string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrExpiredSession
		}
		log.Debug().Err(err).Msg("Session token validation failed")
		return uuid.Nil, ErrInvalidSession
	}

	sessionID, err := uuid.Parse(claims.ID)
	if err != nil {
		return uuid.Nil, ErrInvalidSession
	}

	return sessionID, nil
}
