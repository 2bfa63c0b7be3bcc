package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/gitclub-console/internal/models"
)

type IssuesCmd struct {
	List   IssuesListCmd   `cmd:"" help:"List a repository's issues"`
	Show   IssuesShowCmd   `cmd:"" help:"Show an issue"`
	Create IssuesCreateCmd `cmd:"" help:"Open an issue"`
}

type IssuesListCmd struct {
	OrgID  int64 `arg:"" help:"Organization ID"`
	RepoID int64 `arg:"" help:"Repository ID"`
}

func (c *IssuesListCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}

	issues, err := s.client.Issues(c.OrgID, c.RepoID).List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list issues: %w", err)
	}

	if len(issues) == 0 {
		fmt.Fprintln(globals.out(), "No issues found.")
		return nil
	}
	for _, issue := range issues {
		fmt.Fprintf(globals.out(), "#%d - %s\n", issue.ID, issue.Title)
	}
	return nil
}

type IssuesShowCmd struct {
	OrgID   int64 `arg:"" help:"Organization ID"`
	RepoID  int64 `arg:"" help:"Repository ID"`
	IssueID int64 `arg:"" help:"Issue ID"`
}

func (c *IssuesShowCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}

	issue, err := s.client.Issues(c.OrgID, c.RepoID).Get(ctx, c.IssueID)
	if err != nil {
		return fmt.Errorf("failed to load issue: %w", err)
	}

	fmt.Fprintf(globals.out(), "#%d %s\n", issue.ID, issue.Title)
	return nil
}

type IssuesCreateCmd struct {
	OrgID  int64  `arg:"" help:"Organization ID"`
	RepoID int64  `arg:"" help:"Repository ID"`
	Title  string `arg:"" help:"Issue title"`
}

func (c *IssuesCreateCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}
	if err := s.requireLogin(globals); err != nil {
		return err
	}

	issue, err := s.client.Issues(c.OrgID, c.RepoID).Create(ctx, models.IssueParams{Title: c.Title})
	if err != nil {
		return fmt.Errorf("failed to create issue: %w", err)
	}

	fmt.Fprintf(globals.out(), "Opened issue #%d\n", issue.ID)
	return nil
}
