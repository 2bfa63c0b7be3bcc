package commands

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wolfeidau/gitclub-console/internal/models"
)

type OrgsCmd struct {
	List    OrgsListCmd    `cmd:"" default:"1" help:"List organizations"`
	Show    OrgsShowCmd    `cmd:"" help:"Show an organization and its repositories"`
	Create  OrgsCreateCmd  `cmd:"" help:"Create an organization"`
	Members OrgsMembersCmd `cmd:"" help:"Manage organization role assignments"`
}

type OrgsListCmd struct{}

func (c *OrgsListCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}

	orgs, err := s.client.Orgs.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list organizations: %w", err)
	}

	if len(orgs) == 0 {
		fmt.Fprintln(globals.out(), "No organizations found.")
		return nil
	}

	tw := newTable(globals.out())
	fmt.Fprintln(tw, "ID\tNAME\tREPOS\tROLE")
	for _, org := range orgs {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", org.ID, org.Name, org.RepositoryCount, org.Role)
	}
	return tw.Flush()
}

type OrgsShowCmd struct {
	OrgID int64 `arg:"" help:"Organization ID"`
}

func (c *OrgsShowCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}

	var (
		org   *models.Org
		repos []models.Repo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		org, err = s.client.Orgs.Get(gctx, c.OrgID)
		return err
	})
	g.Go(func() (err error) {
		repos, err = s.client.Repos.List(gctx, c.OrgID)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load organization %d: %w", c.OrgID, err)
	}

	out := globals.out()
	fmt.Fprintf(out, "%s (id %d)\n", org.Name, org.ID)
	if org.Description != "" {
		fmt.Fprintln(out, org.Description)
	}
	fmt.Fprintf(out, "Billing address: %s\n", org.BillingAddress)
	if len(org.Permissions) > 0 {
		fmt.Fprintf(out, "Permissions: %s\n", strings.Join(org.Permissions, ", "))
	}
	fmt.Fprintln(out)

	tw := newTable(out)
	fmt.Fprintln(tw, "REPO ID\tNAME")
	for _, repo := range repos {
		fmt.Fprintf(tw, "%d\t%s\n", repo.ID, repo.Name)
	}
	return tw.Flush()
}

type OrgsCreateCmd struct {
	Name           string `arg:"" help:"Organization name"`
	BillingAddress string `help:"Billing address" default:""`
}

func (c *OrgsCreateCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}
	if err := s.requireLogin(globals); err != nil {
		return err
	}

	org, err := s.client.Orgs.Create(ctx, models.OrgParams{Name: c.Name, BillingAddress: c.BillingAddress})
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	fmt.Fprintf(globals.out(), "Created organization %s (id %d)\n", org.Name, org.ID)
	return nil
}
