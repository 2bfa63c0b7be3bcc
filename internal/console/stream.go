package console

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/tmaxmax/go-sse"

	"github.com/wolfeidau/gitclub-console/internal/api"
	"github.com/wolfeidau/gitclub-console/internal/jobs"
	"github.com/wolfeidau/gitclub-console/internal/models"
	"github.com/wolfeidau/gitclub-console/internal/telemetry"
)

type runningTimeEvent struct {
	ID       models.ID        `json:"id"`
	Status   models.JobStatus `json:"status"`
	Seconds  int64            `json:"seconds"`
	Terminal bool             `json:"terminal"`
}

// runningTimeStream pushes a job's running time as server-sent events. The
// value ticks locally while the job runs and the job itself is re-fetched
// every StatusInterval so the stream ends once it turns terminal.
func (s *Server) runningTimeStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := zerolog.Ctx(ctx)

	orgID, repoID, err := repoParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	jobID := models.ID(chi.URLParam(r, "jobID"))

	fetch := func(ctx context.Context) (*models.Job, error) {
		listing, err := s.api.ListJobs(ctx, orgID, repoID)
		if err != nil {
			return nil, err
		}
		for i := range listing.Jobs {
			if listing.Jobs[i].ID == jobID {
				return &listing.Jobs[i], nil
			}
		}
		return nil, fmt.Errorf("job %s: %w", jobID, api.ErrNotFound)
	}

	job, err := fetch(ctx)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("X-Accel-Buffering", "no")
	sess, err := sse.Upgrade(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	metrics := telemetry.GetMetrics()
	metrics.ActiveRunningTimeStreams.Add(ctx, 1)
	defer metrics.ActiveRunningTimeStreams.Add(context.WithoutCancel(ctx), -1)

	updates := make(chan runningTimeEvent, 1)
	timer := jobs.NewRunningTimer(func(job *models.Job, seconds int64) {
		offerLatest(updates, runningTimeEvent{
			ID:       job.ID,
			Status:   job.Status,
			Seconds:  seconds,
			Terminal: job.IsTerminal(),
		})
	})
	timer.Start(ctx, job)
	defer timer.Stop()

	poller := jobs.NewPoller("running-time", fetch, func(job *models.Job, err error) {
		if err != nil {
			log.Debug().Err(err).Stringer("job_id", jobID).Msg("Failed to refresh job")
			return
		}
		timer.SetJob(job)
	})
	defer poller.Close()

	if !job.IsTerminal() {
		poller.StartPolling(ctx, s.cfg.StatusInterval)
	}

	var last *runningTimeEvent
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-updates:
			if last != nil && *last == ev {
				continue
			}
			last = &ev

			if err := sendEvent(sess, runningTimeEventType, ev); err != nil {
				log.Debug().Err(err).Msg("Running time stream closed")
				return
			}
			if err := sess.Flush(); err != nil {
				log.Debug().Err(err).Msg("Failed to flush running time stream")
				return
			}
			if ev.Terminal {
				return
			}
		}
	}
}

// offerLatest sends v, replacing any value the reader has not taken yet.
func offerLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

var runningTimeEventType = sse.Type("running-time")

func sendEvent(sess *sse.Session, typ sse.EventType, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := &sse.Message{Type: typ}
	msg.AppendData(string(data))
	return sess.Send(msg)
}
