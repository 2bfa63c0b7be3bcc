package models

// Org represents an organization (tenant) in the backend.
// Each organization owns repositories; permissions and role are only
// populated when the backend evaluates them for the current user.
type Org struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	BillingAddress  string   `json:"billingAddress"`
	RepositoryCount int      `json:"repositoryCount"`
	UserCount       *int     `json:"userCount,omitempty"`
	Permissions     []string `json:"permissions,omitempty"`
	Role            string   `json:"role,omitempty"`
}

// Can reports whether the backend granted the given permission on the org.
func (o *Org) Can(permission string) bool {
	return hasPermission(o.Permissions, permission)
}

// OrgParams are the fields accepted when creating an organization.
type OrgParams struct {
	Name           string `json:"name"`
	BillingAddress string `json:"billingAddress"`
}

func hasPermission(permissions []string, permission string) bool {
	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}
