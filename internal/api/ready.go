package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

// Ping checks the backend answers. Any HTTP response, including 401, counts
// as reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Session.Current(ctx)
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
		return nil
	}
	return err
}

// WaitForBackend retries Ping with exponential backoff until the backend
// answers or maxWait elapses. It is used once at startup; requests made
// while serving are never retried.
func (c *Client) WaitForBackend(ctx context.Context, maxWait time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		return struct{}{}, c.Ping(ctx)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(maxWait),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).
				Str("backend", c.BaseURL()).Msg("Backend not ready")
		}),
	)
	if err != nil {
		return fmt.Errorf("backend %s not ready after %d attempts: %w", c.BaseURL(), attempt, err)
	}

	log.Info().Str("backend", c.BaseURL()).Int("attempts", attempt).Msg("Backend ready")
	return nil
}
