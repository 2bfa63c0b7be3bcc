package api

import (
	"context"
	"fmt"

	"github.com/wolfeidau/gitclub-console/internal/models"
	"github.com/wolfeidau/gitclub-console/internal/telemetry"
)

// JobService manages the jobs of one repository.
type JobService struct {
	c      *Client
	orgID  int64
	repoID int64
}

// Jobs returns the job service for a repository.
func (c *Client) Jobs(orgID, repoID int64) *JobService {
	return &JobService{c: c, orgID: orgID, repoID: repoID}
}

func (s *JobService) path() string {
	return pathf("/orgs/%d/repos/%d/jobs", s.orgID, s.repoID)
}

func (s *JobService) List(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	if err := s.c.get(ctx, s.path(), &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Create schedules a job.
func (s *JobService) Create(ctx context.Context, params models.JobParams) (*models.Job, error) {
	var job models.Job
	if err := s.c.post(ctx, s.path(), params, &job); err != nil {
		return nil, err
	}
	telemetry.GetMetrics().JobsScheduledTotal.Add(ctx, 1)
	return &job, nil
}

// Cancel asks the backend to cancel a job and returns its new state.
func (s *JobService) Cancel(ctx context.Context, jobID models.ID) (*models.Job, error) {
	if jobID == "" {
		return nil, fmt.Errorf("cancel job: %w", ErrBadRequest)
	}

	var job models.Job
	if err := s.c.post(ctx, s.path()+pathf("/%s/cancel", jobID), nil, &job); err != nil {
		return nil, err
	}
	telemetry.GetMetrics().JobsCanceledTotal.Add(ctx, 1)
	return &job, nil
}
