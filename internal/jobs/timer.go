package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/gitclub-console/internal/models"
)

// DefaultTimerPeriod is how often a running job's elapsed time is recomputed.
const DefaultTimerPeriod = 100 * time.Millisecond

// UpdateFunc receives a job's running time in whole seconds.
// It is called with the timer's lock held and must not call back into the timer.
type UpdateFunc func(job *models.Job, seconds int64)

// TimerOption configures a RunningTimer.
type TimerOption func(*RunningTimer)

// WithPeriod overrides DefaultTimerPeriod.
func WithPeriod(period time.Duration) TimerOption {
	return func(rt *RunningTimer) {
		if period > 0 {
			rt.period = period
		}
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) TimerOption {
	return func(rt *RunningTimer) {
		if now != nil {
			rt.now = now
		}
	}
}

// RunningTimer keeps a job's displayed running time current without
// re-fetching the job. While the job is non-terminal a ticker recomputes the
// value every period; the ticker is released as soon as the job turns
// terminal, the bound context is cancelled or Stop is called.
type RunningTimer struct {
	period   time.Duration
	now      func() time.Time
	onUpdate UpdateFunc

	mu      sync.Mutex
	parent  context.Context
	job     *models.Job
	value   int64
	gen     uint64
	stopped bool
	skewed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRunningTimer creates a timer publishing to onUpdate. Nothing runs until Start.
func NewRunningTimer(onUpdate UpdateFunc, opts ...TimerOption) *RunningTimer {
	rt := &RunningTimer{
		period:   DefaultTimerPeriod,
		now:      time.Now,
		onUpdate: onUpdate,
		parent:   context.Background(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Start binds the timer to ctx and publishes job's initial running time.
func (rt *RunningTimer) Start(ctx context.Context, job *models.Job) {
	rt.mu.Lock()
	rt.parent = ctx
	rt.mu.Unlock()

	rt.SetJob(job)
}

// SetJob swaps in a new job reference, for example after the job was
// re-fetched. The previous ticker is released and a new one started if the
// job is still running.
func (rt *RunningTimer) SetJob(job *models.Job) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.stopped || job == nil {
		return
	}

	rt.releaseLocked()
	rt.done = nil
	rt.gen++
	rt.job = job
	rt.skewed = false
	rt.publishLocked()

	if job.IsTerminal() {
		return
	}

	ctx, cancel := context.WithCancel(rt.parent)
	done := make(chan struct{})
	rt.cancel = cancel
	rt.done = done

	go rt.run(ctx, rt.gen, done)
}

// Value returns the last published running time.
func (rt *RunningTimer) Value() int64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.value
}

// Ticking reports whether a ticker is currently active.
func (rt *RunningTimer) Ticking() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.done == nil {
		return false
	}
	select {
	case <-rt.done:
		return false
	default:
		return true
	}
}

// Stop releases the ticker and waits for it to exit. No updates are
// published once Stop returns. Stop is idempotent.
func (rt *RunningTimer) Stop() {
	rt.mu.Lock()
	rt.stopped = true
	done := rt.done
	rt.releaseLocked()
	rt.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (rt *RunningTimer) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(rt.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !rt.tick(gen) {
				return
			}
		}
	}
}

// tick publishes a fresh value, returning false when the loop that owns gen
// has been superseded.
func (rt *RunningTimer) tick(gen uint64) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.stopped || gen != rt.gen {
		return false
	}
	rt.publishLocked()
	return true
}

func (rt *RunningTimer) publishLocked() {
	now := rt.now()
	rt.value = RunningTime(rt.job, now)

	if !rt.skewed && ClockSkew(rt.job, now) {
		rt.skewed = true
		log.Warn().
			Stringer("job_id", rt.job.ID).
			Time("created_at", rt.job.CreatedAt.Time).
			Time("now", now).
			Msg("Job created in the future, clamping running time to zero")
	}

	if rt.onUpdate != nil {
		rt.onUpdate(rt.job, rt.value)
	}
}

func (rt *RunningTimer) releaseLocked() {
	if rt.cancel != nil {
		rt.cancel()
		rt.cancel = nil
	}
}
