package jobs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/gitclub-console/internal/models"
)

// FastPollInterval is the list refresh cadence after a job was scheduled.
const FastPollInterval = 500 * time.Millisecond

// ErrEmptyJobName is returned when a job name is blank once spaces are removed.
var ErrEmptyJobName = errors.New("job name is required")

// JobCreator schedules a job in a repository.
type JobCreator interface {
	Create(ctx context.Context, params models.JobParams) (*models.Job, error)
}

// Refresher switches a job listing to a new re-fetch cadence.
type Refresher interface {
	StartPolling(ctx context.Context, interval time.Duration)
}

// ScheduleForm holds the state of the "schedule job" input: the current
// name and the last submission error.
type ScheduleForm struct {
	creator      JobCreator
	refresher    Refresher
	fastInterval time.Duration

	name string
	err  error
}

// NewScheduleForm creates a form submitting through creator. After a
// successful submission refresher, when set, is switched to FastPollInterval.
func NewScheduleForm(creator JobCreator, refresher Refresher) *ScheduleForm {
	return &ScheduleForm{
		creator:      creator,
		refresher:    refresher,
		fastInterval: FastPollInterval,
	}
}

func (f *ScheduleForm) SetName(name string) { f.name = name }

func (f *ScheduleForm) Name() string { return f.name }

// Err returns the error from the last submission, if any.
func (f *ScheduleForm) Err() error { return f.err }

// InputEmpty reports whether the name is empty once spaces are removed.
func (f *ScheduleForm) InputEmpty() bool {
	return strings.ReplaceAll(f.name, " ", "") == ""
}

// Submit schedules a job with the current name. Blank names are rejected
// without calling the backend. On success the input is cleared and the
// listing is switched to the fast refresh cadence; on failure the input is
// kept and the error retained for display.
func (f *ScheduleForm) Submit(ctx context.Context) (*models.Job, error) {
	if f.InputEmpty() {
		f.err = ErrEmptyJobName
		return nil, ErrEmptyJobName
	}

	job, err := f.creator.Create(ctx, models.JobParams{Name: f.name})
	if err != nil {
		f.err = err
		return nil, err
	}

	log.Info().Stringer("job_id", job.ID).Str("name", job.Name).Msg("Job scheduled")

	f.name = ""
	f.err = nil

	if f.refresher != nil {
		f.refresher.StartPolling(ctx, f.fastInterval)
	}

	return job, nil
}
