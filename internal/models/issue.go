package models

// Issue is a tracked item scoped to a Repo.
type Issue struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	RepoID int64  `json:"repoId,omitempty"`
}

type IssueParams struct {
	Title string `json:"title"`
}
