package api

import (
	"context"

	"github.com/wolfeidau/gitclub-console/internal/models"
)

// IssueService manages the issues of one repository.
type IssueService struct {
	c      *Client
	orgID  int64
	repoID int64
}

// Issues returns the issue service for a repository.
func (c *Client) Issues(orgID, repoID int64) *IssueService {
	return &IssueService{c: c, orgID: orgID, repoID: repoID}
}

func (s *IssueService) path() string {
	return pathf("/orgs/%d/repos/%d/issues", s.orgID, s.repoID)
}

func (s *IssueService) List(ctx context.Context) ([]models.Issue, error) {
	var issues []models.Issue
	if err := s.c.get(ctx, s.path(), &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

func (s *IssueService) Get(ctx context.Context, issueID int64) (*models.Issue, error) {
	var issue models.Issue
	if err := s.c.get(ctx, s.path()+pathf("/%d", issueID), &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (s *IssueService) Create(ctx context.Context, params models.IssueParams) (*models.Issue, error) {
	var issue models.Issue
	if err := s.c.post(ctx, s.path(), params, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}
