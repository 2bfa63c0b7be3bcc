// Package jobs holds the live-update logic for job listings: running time
// computation, the ticker that keeps it fresh, list polling and the
// schedule form.
package jobs

import (
	"time"

	"github.com/wolfeidau/gitclub-console/internal/models"
)

// RunningTime returns the whole seconds a job has been running.
//
// Terminal jobs are frozen at updatedAt-createdAt. Everything else is measured
// against now. Halves round up. Negative durations caused by clock skew
// between the backend and this host are clamped to zero; use ClockSkew to
// detect them.
func RunningTime(job *models.Job, now time.Time) int64 {
	secs := roundSeconds(elapsed(job, now))
	if secs < 0 {
		return 0
	}
	return secs
}

// ClockSkew returns true when the raw elapsed time for job is negative.
func ClockSkew(job *models.Job, now time.Time) bool {
	return elapsed(job, now) < 0
}

func elapsed(job *models.Job, now time.Time) time.Duration {
	end := now
	if job.IsTerminal() {
		end = job.UpdatedAt.Time
	}
	return end.Sub(job.CreatedAt.Time)
}

// roundSeconds rounds d to the nearest second, with halves rounding towards
// positive infinity.
func roundSeconds(d time.Duration) int64 {
	ms := d.Milliseconds() + 500
	secs := ms / 1000
	if ms%1000 < 0 {
		secs--
	}
	return secs
}
