package models

// User is a backend identity. Only Username is guaranteed to be present.
type User struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// RoleAssignment links a user to a role on an org or repo.
type RoleAssignment struct {
	User User   `json:"user"`
	Role string `json:"role"`
}

// RoleAssignmentParams grants, changes or revokes the role of the user
// identified by UserID. Role is omitted when revoking.
type RoleAssignmentParams struct {
	UserID int64  `json:"id"`
	Role   string `json:"role,omitempty"`
}

// Roles offered when managing members. The backend may report others.
var (
	OrgRoles  = []string{"admin", "member"}
	RepoRoles = []string{"editor", "maintainer"}
)
