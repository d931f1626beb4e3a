// Package scheduler runs callbacks on a fixed interval.  It is the only
// timer abstraction in the service: the cart registry uses it for
// per-second ticks and periodic reconciliation, the sweeper for expiry
// sweeps.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned by Start on a runner that is running.
var ErrAlreadyRunning = errors.New("scheduler: already running")

// Job is the scheduled callback.  It receives the runner's context and
// must return promptly once that context is cancelled.
type Job func(ctx context.Context)

// Runner calls a Job every Interval until stopped.  Calls never overlap.
type Runner struct {
	name      string
	interval  time.Duration
	job       Job
	immediate bool
	log       *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Option customises a Runner.
type Option func(*Runner)

// Immediately makes the runner invoke the job once on Start before waiting
// for the first tick.
func Immediately() Option { return func(r *Runner) { r.immediate = true } }

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(l *zap.Logger) Option { return func(r *Runner) { r.log = l } }

// New builds a runner.  It panics on a non-positive interval or nil job.
func New(name string, interval time.Duration, job Job, opts ...Option) *Runner {
	if interval <= 0 {
		panic("scheduler: non-positive interval for " + name)
	}
	if job == nil {
		panic("scheduler: nil job for " + name)
	}
	r := &Runner{name: name, interval: interval, job: job, log: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Interval returns the configured period.
func (r *Runner) Interval() time.Duration { return r.interval }

// Start launches the loop in a goroutine.  The loop ends when ctx is
// cancelled or Stop is called.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.running = true
	r.stopCh = make(chan struct{})
	stop := r.stopCh
	r.wg.Add(1)
	r.mu.Unlock()

	r.log.Info("scheduler started", zap.String("job", r.name), zap.Duration("interval", r.interval))
	go r.loop(ctx, stop)
	return nil
}

// Stop ends the loop and waits for an in-flight call to return.  Stopping
// a runner that is not running is a no-op.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	r.mu.Unlock()

	r.wg.Wait()
	r.log.Info("scheduler stopped", zap.String("job", r.name))
}

// Running reports whether the loop is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Runner) loop(ctx context.Context, stop chan struct{}) {
	defer r.wg.Done()
	defer r.finish(stop)

	// Cancel the job's context on Stop as well as on parent cancellation.
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-jobCtx.Done():
		}
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if r.immediate {
		r.job(jobCtx)
	}
	for {
		select {
		case <-jobCtx.Done():
			return
		case <-ticker.C:
			r.job(jobCtx)
		}
	}
}

// finish marks the runner idle when the loop ends on its own because the
// parent context was cancelled.  A later Start owns a new stop channel and
// is left alone.
func (r *Runner) finish(stop chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running && r.stopCh == stop {
		r.running = false
		r.log.Info("scheduler stopped", zap.String("job", r.name), zap.String("reason", "context done"))
	}
}
