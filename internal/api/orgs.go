package api

import (
	"context"

	"github.com/wolfeidau/gitclub-console/internal/models"
)

// OrgService reads and creates organizations.
type OrgService struct{ c *Client }

func (s *OrgService) List(ctx context.Context) ([]models.Org, error) {
	var orgs []models.Org
	if err := s.c.get(ctx, "/orgs", &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

func (s *OrgService) Get(ctx context.Context, orgID int64) (*models.Org, error) {
	var org models.Org
	if err := s.c.get(ctx, pathf("/orgs/%d", orgID), &org); err != nil {
		return nil, err
	}
	return &org, nil
}

func (s *OrgService) Create(ctx context.Context, params models.OrgParams) (*models.Org, error) {
	var org models.Org
	if err := s.c.post(ctx, "/orgs", params, &org); err != nil {
		return nil, err
	}
	return &org, nil
}
