package commands

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/wolfeidau/gitclub-console/internal/models"
)

type UsersCmd struct {
	Show UsersShowCmd `cmd:"" help:"Show a user with their organizations and repositories"`
}

type UsersShowCmd struct {
	Username string `arg:"" help:"Username"`
}

func (c *UsersShowCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}

	var (
		user  *models.User
		orgs  []models.Org
		repos []models.Repo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		user, err = s.client.Users.Get(gctx, c.Username)
		return err
	})
	g.Go(func() (err error) {
		orgs, err = s.client.Users.Orgs(gctx, c.Username)
		return err
	})
	g.Go(func() (err error) {
		repos, err = s.client.Users.Repos(gctx, c.Username)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load user %s: %w", c.Username, err)
	}

	out := globals.out()
	fmt.Fprintf(out, "%s", user.Username)
	if user.Name != "" {
		fmt.Fprintf(out, " (%s)", user.Name)
	}
	if user.Email != "" {
		fmt.Fprintf(out, " <%s>", user.Email)
	}
	fmt.Fprintln(out)

	tw := newTable(out)
	fmt.Fprintln(tw, "KIND\tID\tNAME")
	for _, org := range orgs {
		fmt.Fprintf(tw, "org\t%d\t%s\n", org.ID, org.Name)
	}
	for _, repo := range repos {
		fmt.Fprintf(tw, "repo\t%d\t%s\n", repo.ID, repo.Name)
	}
	return tw.Flush()
}
