package console

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/wolfeidau/gitclub-console/internal/api"
	"github.com/wolfeidau/gitclub-console/internal/models"
)

func (s *Server) repoCreate(w http.ResponseWriter, r *http.Request) {
	orgID, err := idParam(r, "orgID")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	data, err := s.loadOrg(r, orgID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !data.CanCreateRepo() {
		s.fail(w, r, fmt.Errorf("creating repositories in %s: %w", data.Org.Name, api.ErrForbidden))
		return
	}

	data.RepoName = formValue(r, "name")
	if data.RepoName == "" {
		s.renderForm(w, r, "org", data.Org.Name, data, ErrEmptyName)
		return
	}

	repo, err := s.api.Repos.Create(r.Context(), orgID, models.RepoParams{Name: data.RepoName})
	if err != nil {
		s.renderForm(w, r, "org", data.Org.Name, data, err)
		return
	}

	seeOther(w, r, "/orgs/%d/repos/%d", orgID, repo.ID)
}

type repoData struct {
	Org  *models.Org
	Repo *models.Repo
}

// loadRepo fetches the org and repo concurrently.
func (s *Server) loadRepo(ctx context.Context, g *errgroup.Group, orgID, repoID int64, data *repoData) {
	g.Go(func() error {
		org, err := s.api.Orgs.Get(ctx, orgID)
		data.Org = org
		return err
	})
	g.Go(func() error {
		repo, err := s.api.Repos.Get(ctx, orgID, repoID)
		data.Repo = repo
		return err
	})
}

func (s *Server) repoShow(w http.ResponseWriter, r *http.Request) {
	orgID, repoID, err := repoParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var data repoData
	g, ctx := errgroup.WithContext(r.Context())
	s.loadRepo(ctx, g, orgID, repoID, &data)

	if err := g.Wait(); err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "repo", data.Org.Name+" / "+data.Repo.Name, data)
}
