package api

import (
	"context"

	"github.com/wolfeidau/gitclub-console/internal/models"
)

// RepoService manages the repositories of an org.
type RepoService struct{ c *Client }

func (s *RepoService) List(ctx context.Context, orgID int64) ([]models.Repo, error) {
	var repos []models.Repo
	if err := s.c.get(ctx, pathf("/orgs/%d/repos", orgID), &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

func (s *RepoService) Get(ctx context.Context, orgID, repoID int64) (*models.Repo, error) {
	var repo models.Repo
	if err := s.c.get(ctx, pathf("/orgs/%d/repos/%d", orgID, repoID), &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

func (s *RepoService) Create(ctx context.Context, orgID int64, params models.RepoParams) (*models.Repo, error) {
	var repo models.Repo
	if err := s.c.post(ctx, pathf("/orgs/%d/repos", orgID), params, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

func (s *RepoService) Delete(ctx context.Context, orgID, repoID int64) error {
	return s.c.delete(ctx, pathf("/orgs/%d/repos/%d", orgID, repoID))
}
