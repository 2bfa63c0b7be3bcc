package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/wolfeidau/gitclub-console/internal/api"
	"github.com/wolfeidau/gitclub-console/internal/models"
)

// PermissionManageMembers allows changing the role assignments of an org or repo.
const PermissionManageMembers = "manage_members"

// memberService is the role assignment API of a single org or repo.
type memberService interface {
	RoleAssignments(ctx context.Context) ([]models.RoleAssignment, error)
	UnassignedUsers(ctx context.Context) ([]models.User, error)
	AssignRole(ctx context.Context, params models.RoleAssignmentParams) (*models.RoleAssignment, error)
	UpdateRole(ctx context.Context, params models.RoleAssignmentParams) (*models.RoleAssignment, error)
	RemoveRole(ctx context.Context, userID int64) error
}

type orgMemberService struct {
	orgs  *api.OrgService
	orgID int64
}

func (m orgMemberService) RoleAssignments(ctx context.Context) ([]models.RoleAssignment, error) {
	return m.orgs.RoleAssignments(ctx, m.orgID)
}

func (m orgMemberService) UnassignedUsers(ctx context.Context) ([]models.User, error) {
	return m.orgs.UnassignedUsers(ctx, m.orgID)
}

func (m orgMemberService) AssignRole(ctx context.Context, params models.RoleAssignmentParams) (*models.RoleAssignment, error) {
	return m.orgs.AssignRole(ctx, m.orgID, params)
}

func (m orgMemberService) UpdateRole(ctx context.Context, params models.RoleAssignmentParams) (*models.RoleAssignment, error) {
	return m.orgs.UpdateRole(ctx, m.orgID, params)
}

func (m orgMemberService) RemoveRole(ctx context.Context, userID int64) error {
	return m.orgs.RemoveRole(ctx, m.orgID, userID)
}

type repoMemberService struct {
	repos         *api.RepoService
	orgID, repoID int64
}

func (m repoMemberService) RoleAssignments(ctx context.Context) ([]models.RoleAssignment, error) {
	return m.repos.RoleAssignments(ctx, m.orgID, m.repoID)
}

func (m repoMemberService) UnassignedUsers(ctx context.Context) ([]models.User, error) {
	return m.repos.UnassignedUsers(ctx, m.orgID, m.repoID)
}

func (m repoMemberService) AssignRole(ctx context.Context, params models.RoleAssignmentParams) (*models.RoleAssignment, error) {
	return m.repos.AssignRole(ctx, m.orgID, m.repoID, params)
}

func (m repoMemberService) UpdateRole(ctx context.Context, params models.RoleAssignmentParams) (*models.RoleAssignment, error) {
	return m.repos.UpdateRole(ctx, m.orgID, m.repoID, params)
}

func (m repoMemberService) RemoveRole(ctx context.Context, userID int64) error {
	return m.repos.RemoveRole(ctx, m.orgID, m.repoID, userID)
}

// memberScope is the org, or repo within an org, whose members a page manages.
type memberScope struct {
	Org  *models.Org
	Repo *models.Repo
	svc  memberService
}

// Path is the console path of the org or repo.
func (m memberScope) Path() string {
	if m.Repo != nil {
		return fmt.Sprintf("/orgs/%d/repos/%d", m.Org.ID, m.Repo.ID)
	}
	return fmt.Sprintf("/orgs/%d", m.Org.ID)
}

func (m memberScope) Name() string {
	if m.Repo != nil {
		return m.Org.Name + " / " + m.Repo.Name
	}
	return m.Org.Name
}

// Roles lists the roles that can be granted in the scope.
func (m memberScope) Roles() []string {
	if m.Repo != nil {
		return models.RepoRoles
	}
	return models.OrgRoles
}

// CanManage reports whether the member forms should be shown.
func (m memberScope) CanManage() bool {
	if m.Repo != nil {
		return m.Repo.Can(PermissionManageMembers)
	}
	return m.Org.Can(PermissionManageMembers)
}

func (m memberScope) validRole(role string) error {
	if !slices.Contains(m.Roles(), role) {
		return fmt.Errorf("%w %q", ErrUnknownRole, role)
	}
	return nil
}

// loadMemberScope resolves the org or repo named by the route.
func (s *Server) loadMemberScope(r *http.Request) (memberScope, error) {
	orgID, err := idParam(r, "orgID")
	if err != nil {
		return memberScope{}, err
	}

	if chi.URLParam(r, "repoID") == "" {
		org, err := s.api.Orgs.Get(r.Context(), orgID)
		if err != nil {
			return memberScope{}, err
		}
		return memberScope{Org: org, svc: orgMemberService{orgs: s.api.Orgs, orgID: orgID}}, nil
	}

	_, repoID, err := repoParams(r)
	if err != nil {
		return memberScope{}, err
	}

	var data repoData
	g, ctx := errgroup.WithContext(r.Context())
	s.loadRepo(ctx, g, orgID, repoID, &data)
	if err := g.Wait(); err != nil {
		return memberScope{}, err
	}
	return memberScope{
		Org:  data.Org,
		Repo: data.Repo,
		svc:  repoMemberService{repos: s.api.Repos, orgID: orgID, repoID: repoID},
	}, nil
}

// loadManagedScope is loadMemberScope for requests that change assignments.
func (s *Server) loadManagedScope(r *http.Request) (memberScope, error) {
	scope, err := s.loadMemberScope(r)
	if err != nil {
		return scope, err
	}
	if !scope.CanManage() {
		return scope, fmt.Errorf("managing members of %s: %w", scope.Name(), api.ErrForbidden)
	}
	return scope, nil
}

type membersData struct {
	memberScope
	Members    []models.RoleAssignment
	Unassigned []models.User
	// form values echoed back after a failed assignment
	UserID int64
	Role   string
}

func (s *Server) loadMembers(ctx context.Context, scope memberScope) (membersData, error) {
	data := membersData{memberScope: scope}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		members, err := scope.svc.RoleAssignments(ctx)
		data.Members = members
		return err
	})
	g.Go(func() error {
		users, err := scope.svc.UnassignedUsers(ctx)
		if errors.Is(err, api.ErrForbidden) {
			// viewers without the manage permission only see the current members
			return nil
		}
		data.Unassigned = users
		return err
	})

	return data, g.Wait()
}

func (s *Server) renderMembers(w http.ResponseWriter, r *http.Request, scope memberScope, form membersData, formErr error) {
	data, err := s.loadMembers(r.Context(), scope)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	title := scope.Name() + " members"
	if formErr == nil {
		s.render(w, r, http.StatusOK, "members", title, data)
		return
	}

	data.UserID, data.Role = form.UserID, form.Role
	s.renderForm(w, r, "members", title, data, formErr)
}

func (s *Server) memberIndex(w http.ResponseWriter, r *http.Request) {
	scope, err := s.loadMemberScope(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.renderMembers(w, r, scope, membersData{}, nil)
}

func (s *Server) memberAssign(w http.ResponseWriter, r *http.Request) {
	scope, err := s.loadManagedScope(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	form := membersData{Role: formValue(r, "role")}
	userID, err := strconv.ParseInt(formValue(r, "user_id"), 10, 64)
	if err != nil || userID <= 0 {
		s.renderMembers(w, r, scope, form, ErrNoUser)
		return
	}
	form.UserID = userID

	if err := scope.validRole(form.Role); err != nil {
		s.renderMembers(w, r, scope, form, err)
		return
	}

	if _, err := scope.svc.AssignRole(r.Context(), models.RoleAssignmentParams{UserID: userID, Role: form.Role}); err != nil {
		s.renderMembers(w, r, scope, form, err)
		return
	}

	seeOther(w, r, "%s/members", scope.Path())
}

func (s *Server) memberUpdate(w http.ResponseWriter, r *http.Request) {
	scope, err := s.loadManagedScope(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	userID, err := idParam(r, "userID")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	role := formValue(r, "role")
	if err := scope.validRole(role); err != nil {
		s.renderMembers(w, r, scope, membersData{}, err)
		return
	}

	if _, err := scope.svc.UpdateRole(r.Context(), models.RoleAssignmentParams{UserID: userID, Role: role}); err != nil {
		s.renderMembers(w, r, scope, membersData{}, err)
		return
	}

	seeOther(w, r, "%s/members", scope.Path())
}

func (s *Server) memberRemove(w http.ResponseWriter, r *http.Request) {
	scope, err := s.loadManagedScope(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	userID, err := idParam(r, "userID")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := scope.svc.RemoveRole(r.Context(), userID); err != nil {
		s.renderMembers(w, r, scope, membersData{}, err)
		return
	}

	seeOther(w, r, "%s/members", scope.Path())
}
