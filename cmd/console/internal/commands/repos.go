package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/gitclub-console/internal/models"
)

type ReposCmd struct {
	List   ReposListCmd   `cmd:"" help:"List an organization's repositories"`
	Show   ReposShowCmd   `cmd:"" help:"Show a repository"`
	Create ReposCreateCmd `cmd:"" help:"Create a repository"`
	Delete ReposDeleteCmd `cmd:"" help:"Delete a repository"`

	Members ReposMembersCmd `cmd:"" help:"Manage repository role assignments"`
}

type ReposListCmd struct {
	OrgID int64 `arg:"" help:"Organization ID"`
}

func (c *ReposListCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}

	repos, err := s.client.Repos.List(ctx, c.OrgID)
	if err != nil {
		return fmt.Errorf("failed to list repositories: %w", err)
	}

	tw := newTable(globals.out())
	fmt.Fprintln(tw, "ID\tNAME\tPUBLIC")
	for _, repo := range repos {
		fmt.Fprintf(tw, "%d\t%s\t%t\n", repo.ID, repo.Name, repo.Public)
	}
	return tw.Flush()
}

type ReposShowCmd struct {
	OrgID  int64 `arg:"" help:"Organization ID"`
	RepoID int64 `arg:"" help:"Repository ID"`
}

func (c *ReposShowCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}

	repo, err := s.client.Repos.Get(ctx, c.OrgID, c.RepoID)
	if err != nil {
		return fmt.Errorf("failed to load repository: %w", err)
	}

	out := globals.out()
	name := repo.Name
	if repo.NameWithOwner != "" {
		name = repo.NameWithOwner
	}
	fmt.Fprintf(out, "%s (id %d)\n", name, repo.ID)
	if repo.Description != "" {
		fmt.Fprintln(out, repo.Description)
	}
	fmt.Fprintf(out, "Public: %t  Protected: %t\n", repo.Public, repo.Protected)
	return nil
}

type ReposCreateCmd struct {
	OrgID int64  `arg:"" help:"Organization ID"`
	Name  string `arg:"" help:"Repository name"`
}

func (c *ReposCreateCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}
	if err := s.requireLogin(globals); err != nil {
		return err
	}

	repo, err := s.client.Repos.Create(ctx, c.OrgID, models.RepoParams{Name: c.Name})
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}

	fmt.Fprintf(globals.out(), "Created repository %s (id %d)\n", repo.Name, repo.ID)
	return nil
}

type ReposDeleteCmd struct {
	OrgID  int64 `arg:"" help:"Organization ID"`
	RepoID int64 `arg:"" help:"Repository ID"`
}

func (c *ReposDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}
	if err := s.requireLogin(globals); err != nil {
		return err
	}

	if err := s.client.Repos.Delete(ctx, c.OrgID, c.RepoID); err != nil {
		return fmt.Errorf("failed to delete repository: %w", err)
	}

	fmt.Fprintf(globals.out(), "Deleted repository %d\n", c.RepoID)
	return nil
}
