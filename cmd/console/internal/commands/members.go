package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/wolfeidau/gitclub-console/internal/api"
	"github.com/wolfeidau/gitclub-console/internal/models"
)

// members is the role assignment API of one org or repo.
type members struct {
	name       string
	list       func(context.Context) ([]models.RoleAssignment, error)
	unassigned func(context.Context) ([]models.User, error)
	assign     func(context.Context, models.RoleAssignmentParams) (*models.RoleAssignment, error)
	update     func(context.Context, models.RoleAssignmentParams) (*models.RoleAssignment, error)
	remove     func(context.Context, int64) error
}

func orgMembers(c *api.Client, orgID int64) members {
	return members{
		name: fmt.Sprintf("organization %d", orgID),
		list: func(ctx context.Context) ([]models.RoleAssignment, error) {
			return c.Orgs.RoleAssignments(ctx, orgID)
		},
		unassigned: func(ctx context.Context) ([]models.User, error) {
			return c.Orgs.UnassignedUsers(ctx, orgID)
		},
		assign: func(ctx context.Context, p models.RoleAssignmentParams) (*models.RoleAssignment, error) {
			return c.Orgs.AssignRole(ctx, orgID, p)
		},
		update: func(ctx context.Context, p models.RoleAssignmentParams) (*models.RoleAssignment, error) {
			return c.Orgs.UpdateRole(ctx, orgID, p)
		},
		remove: func(ctx context.Context, userID int64) error {
			return c.Orgs.RemoveRole(ctx, orgID, userID)
		},
	}
}

func repoMembers(c *api.Client, orgID, repoID int64) members {
	return members{
		name: fmt.Sprintf("repository %d/%d", orgID, repoID),
		list: func(ctx context.Context) ([]models.RoleAssignment, error) {
			return c.Repos.RoleAssignments(ctx, orgID, repoID)
		},
		unassigned: func(ctx context.Context) ([]models.User, error) {
			return c.Repos.UnassignedUsers(ctx, orgID, repoID)
		},
		assign: func(ctx context.Context, p models.RoleAssignmentParams) (*models.RoleAssignment, error) {
			return c.Repos.AssignRole(ctx, orgID, repoID, p)
		},
		update: func(ctx context.Context, p models.RoleAssignmentParams) (*models.RoleAssignment, error) {
			return c.Repos.UpdateRole(ctx, orgID, repoID, p)
		},
		remove: func(ctx context.Context, userID int64) error {
			return c.Repos.RemoveRole(ctx, orgID, repoID, userID)
		},
	}
}

func listMembers(ctx context.Context, globals *Globals, target func(*api.Client) members) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}
	m := target(s.client)

	var (
		assigned   []models.RoleAssignment
		unassigned []models.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		assigned, err = m.list(gctx)
		return err
	})
	g.Go(func() (err error) {
		unassigned, err = m.unassigned(gctx)
		if errors.Is(err, api.ErrForbidden) {
			// only members managers may see who is unassigned
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load members of %s: %w", m.name, err)
	}

	tw := newTable(globals.out())
	fmt.Fprintln(tw, "ID\tUSER\tROLE")
	for _, a := range assigned {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", a.User.ID, a.User.Username, a.Role)
	}
	for _, u := range unassigned {
		fmt.Fprintf(tw, "%d\t%s\t-\n", u.ID, u.Username)
	}
	return tw.Flush()
}

// resolveUser accepts a numeric user id or a username.
func resolveUser(ctx context.Context, c *api.Client, user string) (*models.User, error) {
	if id, err := strconv.ParseInt(user, 10, 64); err == nil && id > 0 {
		return &models.User{ID: id}, nil
	}
	u, err := c.Users.Get(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %q: %w", user, err)
	}
	return u, nil
}

// userLabel names u by username when it is known.
func userLabel(u *models.User) string {
	if u.Username != "" {
		return u.Username
	}
	return fmt.Sprintf("user %d", u.ID)
}

type memberChange int

const (
	memberAssign memberChange = iota
	memberUpdate
	memberRemove
)

func changeMember(ctx context.Context, globals *Globals, target func(*api.Client) members, change memberChange, user, role string) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}
	if err := s.requireLogin(globals); err != nil {
		return err
	}
	m := target(s.client)

	u, err := resolveUser(ctx, s.client, user)
	if err != nil {
		return err
	}
	params := models.RoleAssignmentParams{UserID: u.ID, Role: role}

	out := globals.out()
	switch change {
	case memberAssign:
		if _, err := m.assign(ctx, params); err != nil {
			return fmt.Errorf("failed to assign %s to %s: %w", role, userLabel(u), err)
		}
		fmt.Fprintf(out, "Assigned %s %s in %s\n", userLabel(u), role, m.name)
	case memberUpdate:
		if _, err := m.update(ctx, params); err != nil {
			return fmt.Errorf("failed to change role of %s: %w", userLabel(u), err)
		}
		fmt.Fprintf(out, "Changed %s to %s in %s\n", userLabel(u), role, m.name)
	case memberRemove:
		if err := m.remove(ctx, u.ID); err != nil {
			return fmt.Errorf("failed to remove %s: %w", userLabel(u), err)
		}
		fmt.Fprintf(out, "Removed %s from %s\n", userLabel(u), m.name)
	}
	return nil
}

type OrgsMembersCmd struct {
	List   OrgsMembersListCmd   `cmd:"" default:"withargs" help:"List role assignments and unassigned users"`
	Add    OrgsMembersAddCmd    `cmd:"" help:"Assign a role to a user"`
	Update OrgsMembersUpdateCmd `cmd:"" help:"Change the role of a member"`
	Remove OrgsMembersRemoveCmd `cmd:"" help:"Remove a member's role"`
}

type OrgsMembersListCmd struct {
	OrgID int64 `arg:"" help:"Organization ID"`
}

func (c *OrgsMembersListCmd) Run(ctx context.Context, globals *Globals) error {
	return listMembers(ctx, globals, func(client *api.Client) members { return orgMembers(client, c.OrgID) })
}

type OrgsMembersAddCmd struct {
	OrgID int64  `arg:"" help:"Organization ID"`
	User  string `arg:"" help:"Username or user ID"`
	Role  string `arg:"" enum:"admin,member" help:"Role to assign (${enum})"`
}

func (c *OrgsMembersAddCmd) Run(ctx context.Context, globals *Globals) error {
	return changeMember(ctx, globals, func(client *api.Client) members { return orgMembers(client, c.OrgID) }, memberAssign, c.User, c.Role)
}

type OrgsMembersUpdateCmd struct {
	OrgID int64  `arg:"" help:"Organization ID"`
	User  string `arg:"" help:"Username or user ID"`
	Role  string `arg:"" enum:"admin,member" help:"New role (${enum})"`
}

func (c *OrgsMembersUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	return changeMember(ctx, globals, func(client *api.Client) members { return orgMembers(client, c.OrgID) }, memberUpdate, c.User, c.Role)
}

type OrgsMembersRemoveCmd struct {
	OrgID int64  `arg:"" help:"Organization ID"`
	User  string `arg:"" help:"Username or user ID"`
}

func (c *OrgsMembersRemoveCmd) Run(ctx context.Context, globals *Globals) error {
	return changeMember(ctx, globals, func(client *api.Client) members { return orgMembers(client, c.OrgID) }, memberRemove, c.User, "")
}

type ReposMembersCmd struct {
	List   ReposMembersListCmd   `cmd:"" default:"withargs" help:"List role assignments and unassigned users"`
	Add    ReposMembersAddCmd    `cmd:"" help:"Assign a role to a user"`
	Update ReposMembersUpdateCmd `cmd:"" help:"Change the role of a member"`
	Remove ReposMembersRemoveCmd `cmd:"" help:"Remove a member's role"`
}

type ReposMembersListCmd struct {
	OrgID  int64 `arg:"" help:"Organization ID"`
	RepoID int64 `arg:"" help:"Repository ID"`
}

func (c *ReposMembersListCmd) Run(ctx context.Context, globals *Globals) error {
	return listMembers(ctx, globals, func(client *api.Client) members { return repoMembers(client, c.OrgID, c.RepoID) })
}

type ReposMembersAddCmd struct {
	OrgID  int64  `arg:"" help:"Organization ID"`
	RepoID int64  `arg:"" help:"Repository ID"`
	User   string `arg:"" help:"Username or user ID"`
	Role   string `arg:"" enum:"editor,maintainer" help:"Role to assign (${enum})"`
}

func (c *ReposMembersAddCmd) Run(ctx context.Context, globals *Globals) error {
	return changeMember(ctx, globals, func(client *api.Client) members { return repoMembers(client, c.OrgID, c.RepoID) }, memberAssign, c.User, c.Role)
}

type ReposMembersUpdateCmd struct {
	OrgID  int64  `arg:"" help:"Organization ID"`
	RepoID int64  `arg:"" help:"Repository ID"`
	User   string `arg:"" help:"Username or user ID"`
	Role   string `arg:"" enum:"editor,maintainer" help:"New role (${enum})"`
}

func (c *ReposMembersUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	return changeMember(ctx, globals, func(client *api.Client) members { return repoMembers(client, c.OrgID, c.RepoID) }, memberUpdate, c.User, c.Role)
}

type ReposMembersRemoveCmd struct {
	OrgID  int64  `arg:"" help:"Organization ID"`
	RepoID int64  `arg:"" help:"Repository ID"`
	User   string `arg:"" help:"Username or user ID"`
}

func (c *ReposMembersRemoveCmd) Run(ctx context.Context, globals *Globals) error {
	return changeMember(ctx, globals, func(client *api.Client) members { return repoMembers(client, c.OrgID, c.RepoID) }, memberRemove, c.User, "")
}
