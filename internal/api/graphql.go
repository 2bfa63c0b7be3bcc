package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	graphql "github.com/hasura/go-graphql-client"
	"github.com/wolfeidau/gitclub-console/internal/models"
)

const listJobsQuery = `query ListJobs($orgId: ID!, $repoId: ID!) {
  org(id: $orgId) {
    id
    name
    repo(repoId: $repoId) {
      id
      name
      jobs {
        id
        name
        status
        creatorId
        createdAt
        updatedAt
        cancelable
      }
    }
  }
}`

// JobListing is the result of the ListJobs query.
type JobListing struct {
	Org  models.Org   `json:"org"`
	Repo models.Repo  `json:"repo"`
	Jobs []models.Job `json:"jobs"`
}

type listJobsData struct {
	Org *struct {
		ID   models.ID `json:"id"`
		Name string    `json:"name"`
		Repo *struct {
			ID   models.ID    `json:"id"`
			Name string       `json:"name"`
			Jobs []models.Job `json:"jobs"`
		} `json:"repo"`
	} `json:"org"`
}

// graphqlDoer routes the GraphQL client through the REST transport stack
// and remembers a non-2xx response so it surfaces as *Error.
type graphqlDoer struct {
	c      *Client
	mu     sync.Mutex
	status *Error
}

func (d *graphqlDoer) Do(req *http.Request) (*http.Response, error) {
	resp, err := d.c.send(req)
	var apiErr *Error
	if errors.As(err, &apiErr) {
		d.mu.Lock()
		d.status = apiErr
		d.mu.Unlock()
	}
	return resp, err
}

func (d *graphqlDoer) statusError() *Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// graphql runs query against /graphql and decodes its data into out.
func (c *Client) graphql(ctx context.Context, operation, query string, variables map[string]any, out any) error {
	doer := &graphqlDoer{c: c}
	client := graphql.NewClient(c.baseURL.String()+"/graphql", doer)

	data, err := client.ExecRaw(ctx, query, variables, graphql.OperationName(operation))
	if apiErr := doer.statusError(); apiErr != nil {
		return fmt.Errorf("graphql %s: %w", operation, apiErr)
	}

	var gqlErrs graphql.Errors
	switch {
	case errors.As(err, &gqlErrs):
		gqlErr := &GraphQLError{}
		for _, e := range gqlErrs {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return gqlErr
	case err != nil:
		return fmt.Errorf("graphql %s: %w", operation, err)
	}

	if len(data) == 0 || string(data) == "null" {
		return &GraphQLError{Messages: []string{"empty response"}}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("graphql %s: failed to decode data: %w", operation, err)
	}
	return nil
}

// ListJobs fetches a repository's jobs together with the org and repo names
// in a single round trip.
func (c *Client) ListJobs(ctx context.Context, orgID, repoID int64) (*JobListing, error) {
	var data listJobsData

	vars := map[string]any{
		"orgId":  strconv.FormatInt(orgID, 10),
		"repoId": strconv.FormatInt(repoID, 10),
	}
	if err := c.graphql(ctx, "ListJobs", listJobsQuery, vars, &data); err != nil {
		return nil, err
	}

	if data.Org == nil {
		return nil, &Error{StatusCode: http.StatusNotFound, Method: "QUERY", Path: "ListJobs", Message: "org not found"}
	}
	if data.Org.Repo == nil {
		return nil, &Error{StatusCode: http.StatusNotFound, Method: "QUERY", Path: "ListJobs", Message: "repo not found"}
	}

	listing := &JobListing{
		Org:  models.Org{ID: orgID, Name: data.Org.Name},
		Repo: models.Repo{ID: repoID, Name: data.Org.Repo.Name, OrgID: orgID},
		Jobs: data.Org.Repo.Jobs,
	}
	if listing.Jobs == nil {
		listing.Jobs = []models.Job{}
	}

	return listing, nil
}
