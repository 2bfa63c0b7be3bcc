package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/gitclub-console/internal/telemetry"
)

// FetchFunc loads the latest value of a polled resource.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// ResultFunc receives every fetch result that is still current.
// It is called with the poller's lock held and must not call back into the poller.
type ResultFunc[T any] func(value T, err error)

// Poller re-fetches a resource on an interval that can be changed while it
// runs. Results from a poll loop that has been stopped, restarted or closed
// are dropped rather than delivered.
type Poller[T any] struct {
	name     string
	fetch    FetchFunc[T]
	onResult ResultFunc[T]

	mu       sync.Mutex
	interval time.Duration
	cancel   context.CancelFunc
	closed   bool
	wg       sync.WaitGroup
}

// NewPoller creates a poller. The name is only used in logs and metrics.
func NewPoller[T any](name string, fetch FetchFunc[T], onResult ResultFunc[T]) *Poller[T] {
	return &Poller[T]{
		name:     name,
		fetch:    fetch,
		onResult: onResult,
	}
}

// Refetch performs a single fetch and delivers its result unless the poller
// was closed or ctx cancelled in the meantime.
func (p *Poller[T]) Refetch(ctx context.Context) error {
	value, err := p.fetch(ctx)
	p.deliver(ctx, value, err)
	return err
}

// StartPolling (re)starts the poll loop with the given interval, replacing
// any loop already running.
func (p *Poller[T]) StartPolling(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.interval = interval

	p.wg.Add(1)
	go p.loop(loopCtx, interval)

	log.Debug().Str("poller", p.name).Dur("interval", interval).Msg("Polling started")
}

// StopPolling stops the poll loop. In-flight results are discarded.
func (p *Poller[T]) StopPolling() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Interval returns the active poll interval, or zero when not polling.
func (p *Poller[T]) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// Close stops polling for good and waits for the loop to exit.
func (p *Poller[T]) Close() {
	p.mu.Lock()
	p.closed = true
	p.stopLocked()
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Poller[T]) stopLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.interval = 0
}

func (p *Poller[T]) loop(ctx context.Context, interval time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			telemetry.GetMetrics().PollsTotal.Add(ctx, 1)
			value, err := p.fetch(ctx)
			p.deliver(ctx, value, err)
		}
	}
}

func (p *Poller[T]) deliver(ctx context.Context, value T, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || ctx.Err() != nil {
		log.Debug().Str("poller", p.name).Msg("Dropping stale poll result")
		return
	}

	if p.onResult != nil {
		p.onResult(value, err)
	}
}
