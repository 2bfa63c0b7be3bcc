package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/gitclub-console/cmd/console/internal/profile"
	"github.com/wolfeidau/gitclub-console/internal/api"
)

type LoginCmd struct {
	Username string `arg:"" optional:"" help:"Username to log in as; empty logs in as a random user"`
}

func (c *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}

	user, err := s.client.Session.Login(ctx, c.Username)
	if err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}

	p := &profile.Profile{
		Name:       globals.Profile,
		BackendURL: s.client.BaseURL(),
		UserID:     user.ID,
		Username:   user.Username,
	}
	p.SetCookies(s.client.Cookies())

	if err := s.store.Save(p); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	log.Info().Str("username", user.Username).Str("profile", p.Name).Msg("Logged in")
	fmt.Fprintf(globals.out(), "Logged in as %s\n", user.Username)
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}
	if err := s.requireLogin(globals); err != nil {
		return err
	}

	if err := s.client.Session.Logout(ctx); err != nil && !errors.Is(err, api.ErrUnauthorized) {
		return fmt.Errorf("failed to log out: %w", err)
	}

	if err := s.store.Delete(globals.Profile); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	fmt.Fprintf(globals.out(), "Logged out %s\n", s.profile.Username)
	return nil
}

type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}

	user, err := s.client.Session.Current(ctx)
	if err != nil {
		return fmt.Errorf("failed to load current user: %w", err)
	}
	if user == nil {
		fmt.Fprintln(globals.out(), "Not logged in")
		return nil
	}

	fmt.Fprintf(globals.out(), "%s (id %d)\n", user.Username, user.ID)
	return nil
}
