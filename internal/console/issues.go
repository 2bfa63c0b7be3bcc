package console

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/wolfeidau/gitclub-console/internal/models"
)

type issueIndexData struct {
	repoData
	Issues []models.Issue
}

func (s *Server) issueIndex(w http.ResponseWriter, r *http.Request) {
	orgID, repoID, err := repoParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var data issueIndexData
	g, ctx := errgroup.WithContext(r.Context())
	s.loadRepo(ctx, g, orgID, repoID, &data.repoData)
	g.Go(func() error {
		issues, err := s.api.Issues(orgID, repoID).List(ctx)
		data.Issues = issues
		return err
	})

	if err := g.Wait(); err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "issues", data.Repo.Name+" issues", data)
}

type issueFormData struct {
	repoData
	Title string
}

func (s *Server) issueNew(w http.ResponseWriter, r *http.Request) {
	orgID, repoID, err := repoParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var data issueFormData
	g, ctx := errgroup.WithContext(r.Context())
	s.loadRepo(ctx, g, orgID, repoID, &data.repoData)

	if err := g.Wait(); err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "issue_new", "New issue", data)
}

func (s *Server) issueCreate(w http.ResponseWriter, r *http.Request) {
	orgID, repoID, err := repoParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	data := issueFormData{Title: formValue(r, "title")}

	var createErr error
	if data.Title == "" {
		createErr = ErrEmptyName
	} else {
		issue, err := s.api.Issues(orgID, repoID).Create(r.Context(), models.IssueParams{Title: data.Title})
		if err == nil {
			seeOther(w, r, "/orgs/%d/repos/%d/issues/%d", orgID, repoID, issue.ID)
			return
		}
		createErr = err
	}

	g, ctx := errgroup.WithContext(r.Context())
	s.loadRepo(ctx, g, orgID, repoID, &data.repoData)
	if err := g.Wait(); err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderForm(w, r, "issue_new", "New issue", data, createErr)
}

type issueShowData struct {
	repoData
	Issue *models.Issue
}

func (s *Server) issueShow(w http.ResponseWriter, r *http.Request) {
	orgID, repoID, err := repoParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	issueID, err := idParam(r, "issueID")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var data issueShowData
	g, ctx := errgroup.WithContext(r.Context())
	s.loadRepo(ctx, g, orgID, repoID, &data.repoData)
	g.Go(func() error {
		issue, err := s.api.Issues(orgID, repoID).Get(ctx, issueID)
		data.Issue = issue
		return err
	})

	if err := g.Wait(); err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "issue", data.Issue.Title, data)
}
