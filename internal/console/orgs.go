package console

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/wolfeidau/gitclub-console/internal/models"
)

// PermissionCreateRepositories allows creating repos in an org.
const PermissionCreateRepositories = "create_repositories"

type orgIndexData struct {
	Orgs []models.Org
}

func (s *Server) orgIndex(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.api.Orgs.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "orgs", "Organizations", orgIndexData{Orgs: orgs})
}

type orgFormData struct {
	Name           string
	BillingAddress string
}

func (s *Server) orgNew(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "org_new", "New organization", orgFormData{})
}

func (s *Server) orgCreate(w http.ResponseWriter, r *http.Request) {
	form := orgFormData{
		Name:           formValue(r, "name"),
		BillingAddress: formValue(r, "billing_address"),
	}
	if form.Name == "" {
		s.renderForm(w, r, "org_new", "New organization", form, ErrEmptyName)
		return
	}

	org, err := s.api.Orgs.Create(r.Context(), models.OrgParams{
		Name:           form.Name,
		BillingAddress: form.BillingAddress,
	})
	if err != nil {
		s.renderForm(w, r, "org_new", "New organization", form, err)
		return
	}

	seeOther(w, r, "/orgs/%d", org.ID)
}

type orgShowData struct {
	Org      *models.Org
	Repos    []models.Repo
	RepoName string
}

// CanCreateRepo reports whether the repo form should be shown.
func (d orgShowData) CanCreateRepo() bool {
	return d.Org.Can(PermissionCreateRepositories)
}

func (s *Server) loadOrg(r *http.Request, orgID int64) (orgShowData, error) {
	var data orgShowData

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		org, err := s.api.Orgs.Get(ctx, orgID)
		data.Org = org
		return err
	})
	g.Go(func() error {
		repos, err := s.api.Repos.List(ctx, orgID)
		data.Repos = repos
		return err
	})

	return data, g.Wait()
}

func (s *Server) orgShow(w http.ResponseWriter, r *http.Request) {
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
	s.render(w, r, http.StatusOK, "org", data.Org.Name, data)
}
