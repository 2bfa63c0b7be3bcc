package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/gitclub-console/internal/api"
	"github.com/wolfeidau/gitclub-console/internal/jobs"
	"github.com/wolfeidau/gitclub-console/internal/models"
)

type JobsCmd struct {
	List     JobsListCmd     `cmd:"" help:"List a repository's jobs"`
	Schedule JobsScheduleCmd `cmd:"" help:"Schedule a job"`
	Cancel   JobsCancelCmd   `cmd:"" help:"Cancel a job"`
	Watch    JobsWatchCmd    `cmd:"" help:"Follow a job's running time until it finishes"`
}

type JobsListCmd struct {
	OrgID    int64         `arg:"" help:"Organization ID"`
	RepoID   int64         `arg:"" help:"Repository ID"`
	Watch    bool          `help:"Keep re-fetching the list" short:"w"`
	Interval time.Duration `help:"Re-fetch interval when watching" default:"2s"`
}

func (c *JobsListCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}

	fetch := func(ctx context.Context) (*api.JobListing, error) {
		return s.client.ListJobs(ctx, c.OrgID, c.RepoID)
	}

	if !c.Watch {
		listing, err := fetch(ctx)
		if err != nil {
			return fmt.Errorf("failed to list jobs: %w", err)
		}
		return printJobs(globals.out(), listing.Jobs, time.Now())
	}

	poller := jobs.NewPoller("cli-jobs", fetch, func(listing *api.JobListing, err error) {
		if err != nil {
			log.Warn().Err(err).Msg("Failed to refresh jobs")
			return
		}
		fmt.Fprintf(globals.out(), "\n%s\n", time.Now().Format(time.TimeOnly))
		if err := printJobs(globals.out(), listing.Jobs, time.Now()); err != nil {
			log.Warn().Err(err).Msg("Failed to print jobs")
		}
	})
	defer poller.Close()

	if err := poller.Refetch(ctx); err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}
	poller.StartPolling(ctx, c.Interval)

	<-ctx.Done()
	return nil
}

func printJobs(w io.Writer, list []models.Job, now time.Time) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tRUNNING\tCANCELABLE")
	for i := range list {
		job := &list[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%ds\t%t\n",
			job.ID, job.Name, job.Status, jobs.RunningTime(job, now), job.Cancelable)
	}
	return tw.Flush()
}

type JobsScheduleCmd struct {
	OrgID   int64         `arg:"" help:"Organization ID"`
	RepoID  int64         `arg:"" help:"Repository ID"`
	Name    string        `arg:"" help:"Job name"`
	Wait    bool          `help:"Wait until the new job shows up in the job list"`
	Timeout time.Duration `help:"How long to wait for the job to show up" default:"30s"`
}

func (c *JobsScheduleCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}
	if err := s.requireLogin(globals); err != nil {
		return err
	}

	var (
		form    *jobs.ScheduleForm
		visible = make(chan struct{})
		created models.ID
	)

	var refresher jobs.Refresher
	if c.Wait {
		// created is assigned before the form starts the poller.
		poller := jobs.NewPoller("cli-schedule", func(ctx context.Context) (*api.JobListing, error) {
			return s.client.ListJobs(ctx, c.OrgID, c.RepoID)
		}, func(listing *api.JobListing, err error) {
			if err != nil {
				log.Debug().Err(err).Msg("Failed to refresh jobs")
				return
			}
			if hasJob(listing.Jobs, created) {
				select {
				case <-visible:
				default:
					close(visible)
				}
			}
		})
		defer poller.Close()
		refresher = poller
	}

	form = jobs.NewScheduleForm(&announcingCreator{next: s.client.Jobs(c.OrgID, c.RepoID), id: &created}, refresher)
	form.SetName(c.Name)

	job, err := form.Submit(ctx)
	if err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}

	fmt.Fprintf(globals.out(), "Scheduled job %s (%s)\n", job.ID, job.Name)
	if !c.Wait {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	select {
	case <-visible:
		fmt.Fprintf(globals.out(), "Job %s is listed\n", job.ID)
		return nil
	case <-waitCtx.Done():
		return fmt.Errorf("job %s did not appear within %s: %w", job.ID, c.Timeout, waitCtx.Err())
	}
}

// announcingCreator records the id of the created job before the form
// switches the listing to the fast cadence.
type announcingCreator struct {
	next jobs.JobCreator
	id   *models.ID
}

func (a *announcingCreator) Create(ctx context.Context, params models.JobParams) (*models.Job, error) {
	job, err := a.next.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	*a.id = job.ID
	return job, nil
}

func hasJob(list []models.Job, id models.ID) bool {
	return slices.ContainsFunc(list, func(job models.Job) bool {
		return job.ID == id
	})
}

type JobsCancelCmd struct {
	OrgID  int64  `arg:"" help:"Organization ID"`
	RepoID int64  `arg:"" help:"Repository ID"`
	JobID  string `arg:"" help:"Job ID"`
}

func (c *JobsCancelCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}
	if err := s.requireLogin(globals); err != nil {
		return err
	}

	job, err := s.client.Jobs(c.OrgID, c.RepoID).Cancel(ctx, models.ID(c.JobID))
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}

	fmt.Fprintf(globals.out(), "Job %s is %s\n", job.ID, job.Status)
	return nil
}

type JobsWatchCmd struct {
	OrgID    int64         `arg:"" help:"Organization ID"`
	RepoID   int64         `arg:"" help:"Repository ID"`
	JobID    string        `arg:"" help:"Job ID"`
	Interval time.Duration `help:"How often to re-fetch the job status" default:"2s"`
}

var errJobNotListed = errors.New("job not found")

func (c *JobsWatchCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, s, err := globals.connect(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	id := models.ID(c.JobID)
	out := globals.out()
	finished := make(chan *models.Job, 1)

	var last int64 = -1
	timer := jobs.NewRunningTimer(func(job *models.Job, seconds int64) {
		if seconds != last {
			last = seconds
			fmt.Fprintf(out, "%s %s %ds\n", job.ID, job.Status, seconds)
		}
		if job.IsTerminal() {
			select {
			case finished <- job:
			default:
			}
		}
	})
	defer timer.Stop()

	started := false
	fetch := func(ctx context.Context) (*models.Job, error) {
		listing, err := s.client.ListJobs(ctx, c.OrgID, c.RepoID)
		if err != nil {
			return nil, err
		}
		for i := range listing.Jobs {
			if listing.Jobs[i].ID == id {
				return &listing.Jobs[i], nil
			}
		}
		return nil, fmt.Errorf("%w: %s", errJobNotListed, id)
	}

	poller := jobs.NewPoller("cli-watch", fetch, func(job *models.Job, err error) {
		if err != nil {
			log.Warn().Err(err).Msg("Failed to refresh job")
			return
		}
		if !started {
			started = true
			timer.Start(ctx, job)
			return
		}
		timer.SetJob(job)
	})
	defer poller.Close()

	if err := poller.Refetch(ctx); err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	poller.StartPolling(ctx, c.Interval)

	select {
	case job := <-finished:
		poller.Close()
		timer.Stop()
		fmt.Fprintf(out, "Job %s finished: %s after %ds\n", job.ID, job.Status, timer.Value())
		return nil
	case <-ctx.Done():
		return nil
	}
}
