package console

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/wolfeidau/gitclub-console/internal/api"
	"github.com/wolfeidau/gitclub-console/internal/jobs"
	"github.com/wolfeidau/gitclub-console/internal/models"

	httputil "github.com/wolfeidau/gitclub-console/internal/http"
)

const (
	jobsEntryPoint = "ui/pages/jobs.ts"

	minPollInterval = 100 * time.Millisecond
	maxPollInterval = time.Minute
)

type jobIndexData struct {
	Org    models.Org
	Repo   models.Repo
	Jobs   []models.Job
	Name   string
	PollMS int64
	Now    time.Time
}

// RunningTime is the running time of job as of page render.
func (d jobIndexData) RunningTime(job models.Job) int64 {
	return jobs.RunningTime(&job, d.Now)
}

func (d jobIndexData) JobsURL() string {
	return fmt.Sprintf("/orgs/%d/repos/%d/jobs", d.Org.ID, d.Repo.ID)
}

func (d jobIndexData) APIURL() string {
	return "/api" + d.JobsURL()
}

// StreamURL is the running time stream for job.
func (d jobIndexData) StreamURL(job models.Job) string {
	return fmt.Sprintf("%s/%s/running-time", d.APIURL(), job.ID)
}

func (s *Server) listJobs(r *http.Request) (jobIndexData, error) {
	orgID, repoID, err := repoParams(r)
	if err != nil {
		return jobIndexData{}, err
	}

	listing, err := s.api.ListJobs(r.Context(), orgID, repoID)
	if err != nil {
		return jobIndexData{}, err
	}

	return jobIndexData{
		Org:  listing.Org,
		Repo: listing.Repo,
		Jobs: listing.Jobs,
		Now:  time.Now(),
	}, nil
}

func (s *Server) jobIndex(w http.ResponseWriter, r *http.Request) {
	data, err := s.listJobs(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data.PollMS = pollParam(r).Milliseconds()

	s.render(w, r, http.StatusOK, "jobs", data.Repo.Name+" jobs", data)
}

// pollParam reads the ?poll= re-fetch interval in milliseconds, ignoring
// values outside the accepted range.
func pollParam(r *http.Request) time.Duration {
	ms, err := strconv.ParseInt(r.URL.Query().Get("poll"), 10, 64)
	if err != nil {
		return 0
	}
	interval := time.Duration(ms) * time.Millisecond
	if interval < minPollInterval || interval > maxPollInterval {
		return 0
	}
	return interval
}

// redirectRefresher records the cadence a listing should switch to so it
// can be handed to the page script in the redirect.
type redirectRefresher struct {
	interval time.Duration
}

func (p *redirectRefresher) StartPolling(_ context.Context, interval time.Duration) {
	p.interval = interval
}

func (s *Server) jobSchedule(w http.ResponseWriter, r *http.Request) {
	orgID, repoID, err := repoParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	refresh := &redirectRefresher{}
	form := jobs.NewScheduleForm(s.api.Jobs(orgID, repoID), refresh)
	form.SetName(r.PostFormValue("name"))

	if _, err := form.Submit(r.Context()); err != nil {
		data, lerr := s.listJobs(r)
		if lerr != nil {
			s.fail(w, r, lerr)
			return
		}
		data.Name = form.Name()
		s.renderForm(w, r, "jobs", data.Repo.Name+" jobs", data, form.Err())
		return
	}

	target := fmt.Sprintf("/orgs/%d/repos/%d/jobs", orgID, repoID)
	if refresh.interval > 0 {
		target += "?poll=" + strconv.FormatInt(refresh.interval.Milliseconds(), 10)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) jobCancel(w http.ResponseWriter, r *http.Request) {
	orgID, repoID, err := repoParams(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	jobID := models.ID(chi.URLParam(r, "jobID"))

	if _, err := s.api.Jobs(orgID, repoID).Cancel(r.Context(), jobID); err != nil {
		s.fail(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Stringer("job_id", jobID).Msg("Job canceled")
	seeOther(w, r, "/orgs/%d/repos/%d/jobs", orgID, repoID)
}

// jobsJSON serves the job listing polled by the jobs page.
func (s *Server) jobsJSON(w http.ResponseWriter, r *http.Request) {
	data, err := s.listJobs(r)
	if err != nil {
		status := statusFor(err)
		if status >= 500 {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to list jobs")
		}
		http.Error(w, err.Error(), status)
		return
	}

	listing := api.JobListing{Org: data.Org, Repo: data.Repo, Jobs: data.Jobs}
	if err := httputil.WriteJSON(w, r, http.StatusOK, listing); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to write job listing")
	}
}
