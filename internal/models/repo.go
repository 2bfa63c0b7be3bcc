package models

// Repo is a repository scoped to an Org. It owns jobs and issues.
type Repo struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	OrgID         int64    `json:"orgId"`
	Description   string   `json:"description,omitempty"`
	NameWithOwner string   `json:"nameWithOwner,omitempty"`
	Public        bool     `json:"public,omitempty"`
	Protected     bool     `json:"protected,omitempty"`
	Permissions   []string `json:"permissions,omitempty"`
}

// Can reports whether the backend granted the given permission on the repo.
func (r *Repo) Can(permission string) bool {
	return hasPermission(r.Permissions, permission)
}

// RepoParams are the fields accepted when creating a repository.
type RepoParams struct {
	Name string `json:"name"`
}
