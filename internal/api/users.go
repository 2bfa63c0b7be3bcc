package api

import (
	"context"

	"github.com/wolfeidau/gitclub-console/internal/models"
)

// UserService looks up users and what they belong to.
type UserService struct{ c *Client }

func (s *UserService) Get(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.c.get(ctx, pathf("/users/%s", username), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) Orgs(ctx context.Context, username string) ([]models.Org, error) {
	var orgs []models.Org
	if err := s.c.get(ctx, pathf("/users/%s/orgs", username), &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

func (s *UserService) Repos(ctx context.Context, username string) ([]models.Repo, error) {
	var repos []models.Repo
	if err := s.c.get(ctx, pathf("/users/%s/repos", username), &repos); err != nil {
		return nil, err
	}
	return repos, nil
}
