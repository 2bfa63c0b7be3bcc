package api

import (
	"context"
	"net/http"

	"github.com/wolfeidau/gitclub-console/internal/models"
)

// members implements role assignment management for the org or repo at base.
type members struct {
	c    *Client
	base string
}

func (m members) list(ctx context.Context) ([]models.RoleAssignment, error) {
	var assignments []models.RoleAssignment
	if err := m.c.get(ctx, m.base+"/role_assignments", &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

func (m members) unassigned(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := m.c.get(ctx, m.base+"/unassigned_users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (m members) assign(ctx context.Context, params models.RoleAssignmentParams) (*models.RoleAssignment, error) {
	var assignment models.RoleAssignment
	if err := m.c.post(ctx, m.base+"/role_assignments", params, &assignment); err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (m members) update(ctx context.Context, params models.RoleAssignmentParams) (*models.RoleAssignment, error) {
	var assignment models.RoleAssignment
	if err := m.c.patch(ctx, m.base+"/role_assignments", params, &assignment); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// remove sends the user id as a DELETE body, which is how the backend
// identifies the assignment.
func (m members) remove(ctx context.Context, userID int64) error {
	return m.c.do(ctx, http.MethodDelete, m.base+"/role_assignments", models.RoleAssignmentParams{UserID: userID}, nil)
}

func (s *OrgService) members(orgID int64) members {
	return members{c: s.c, base: pathf("/orgs/%d", orgID)}
}

// RoleAssignments lists the members of an org and their roles.
func (s *OrgService) RoleAssignments(ctx context.Context, orgID int64) ([]models.RoleAssignment, error) {
	return s.members(orgID).list(ctx)
}

// UnassignedUsers lists users that hold no role in the org.
func (s *OrgService) UnassignedUsers(ctx context.Context, orgID int64) ([]models.User, error) {
	return s.members(orgID).unassigned(ctx)
}

func (s *OrgService) AssignRole(ctx context.Context, orgID int64, params models.RoleAssignmentParams) (*models.RoleAssignment, error) {
	return s.members(orgID).assign(ctx, params)
}

func (s *OrgService) UpdateRole(ctx context.Context, orgID int64, params models.RoleAssignmentParams) (*models.RoleAssignment, error) {
	return s.members(orgID).update(ctx, params)
}

func (s *OrgService) RemoveRole(ctx context.Context, orgID, userID int64) error {
	return s.members(orgID).remove(ctx, userID)
}

func (s *RepoService) members(orgID, repoID int64) members {
	return members{c: s.c, base: pathf("/orgs/%d/repos/%d", orgID, repoID)}
}

// RoleAssignments lists the members of a repo and their roles.
func (s *RepoService) RoleAssignments(ctx context.Context, orgID, repoID int64) ([]models.RoleAssignment, error) {
	return s.members(orgID, repoID).list(ctx)
}

// UnassignedUsers lists users without a repo role. The backend answers
// 403 unless the caller may manage the repo's members.
func (s *RepoService) UnassignedUsers(ctx context.Context, orgID, repoID int64) ([]models.User, error) {
	return s.members(orgID, repoID).unassigned(ctx)
}

func (s *RepoService) AssignRole(ctx context.Context, orgID, repoID int64, params models.RoleAssignmentParams) (*models.RoleAssignment, error) {
	return s.members(orgID, repoID).assign(ctx, params)
}

func (s *RepoService) UpdateRole(ctx context.Context, orgID, repoID int64, params models.RoleAssignmentParams) (*models.RoleAssignment, error) {
	return s.members(orgID, repoID).update(ctx, params)
}

func (s *RepoService) RemoveRole(ctx context.Context, orgID, repoID, userID int64) error {
	return s.members(orgID, repoID).remove(ctx, userID)
}
