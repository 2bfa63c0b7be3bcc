package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wolfeidau/gitclub-console/internal/store"
)

// ErrUnavailable marks errors caused by the database being unreachable,
// shutting down or out of resources. Callers may retry these.
var ErrUnavailable = errors.New("session database unavailable")

// mapPostgresError turns a duplicate session id into store.ErrSessionExists
// and tags server availability problems with ErrUnavailable. Errors that
// did not come from the server are returned as is.
func mapPostgresError(err error) error {
	var pgErr *pgconn.PgError
	if err == nil || !errors.As(err, &pgErr) {
		return err
	}

	code := pgErr.Code
	switch {
	case code == pgerrcode.UniqueViolation && pgErr.ConstraintName == "sessions_pkey":
		return store.ErrSessionExists
	case code == pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)
	case pgerrcode.IsConnectionException(code),
		pgerrcode.IsOperatorIntervention(code),
		pgerrcode.IsInsufficientResources(code):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	case pgErr.ConstraintName != "":
		return fmt.Errorf("constraint %s violated: %w", pgErr.ConstraintName, err)
	default:
		return fmt.Errorf("postgres %s: %s: %w", code, pgErr.Message, err)
	}
}

func hasServerError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
