// Package poller re-fetches snapshot resources on a fixed interval.
package poller

import (
	"context"
	"sync"
	"time"

	applogger "LeoneAI/pkg/logger"
)

const DefaultInterval = 30 * time.Second

// FetchFunc loads one snapshot of a resource.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Observer receives poll outcomes; result is "ok" or "error".
type Observer interface {
	ObservePoll(resource, result string)
}

// Result is the view of a resource after a tick. Value holds the last
// successful fetch, or the fallback until one succeeds. Stale is set while
// the most recent fetch failed.
type Result[T any] struct {
	Value     T
	Err       error
	Stale     bool
	Loaded    bool
	UpdatedAt time.Time
}

// Option configures a Refresher.
type Option func(*options)

type options struct {
	interval time.Duration
	observer Observer
	log      *applogger.Logger
}

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithObserver sets the telemetry sink.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// Refresher fetches a resource immediately on Start and then on every
// interval tick until Stop. A failed tick keeps the previous value and never
// stops the schedule; there is no retry inside an interval.
type Refresher[T any] struct {
	name  string
	fetch FetchFunc[T]
	opts  options
	log   *applogger.Logger

	mu      sync.Mutex
	current Result[T]
	started bool
	stopped bool
	cancel  context.CancelFunc
	updates chan Result[T]
	done    chan struct{}
}

// New builds a Refresher for the named resource.
func New[T any](name string, fetch FetchFunc[T], opts ...Option) *Refresher[T] {
	o := options{interval: DefaultInterval, log: applogger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Refresher[T]{
		name:    name,
		fetch:   fetch,
		opts:    o,
		log:     o.log.Named("poller").With(applogger.String("resource", name)),
		updates: make(chan Result[T], 1),
		done:    make(chan struct{}),
	}
}

// Fallback sets the value reported before the first successful fetch.
func (r *Refresher[T]) Fallback(v T) *Refresher[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.current.Loaded {
		r.current.Value = v
	}
	return r
}

// Start launches the schedule. Later calls are no-ops.
func (r *Refresher[T]) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.stopped {
		return
	}
	r.started = true
	ctx, r.cancel = context.WithCancel(ctx)
	go r.loop(ctx)
}

func (r *Refresher[T]) loop(ctx context.Context) {
	defer close(r.done)
	defer close(r.updates)

	r.tick(ctx)

	ticker := time.NewTicker(r.opts.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick runs one fetch. The request itself is not cancelled by Stop; a
// result that lands after Stop is discarded.
func (r *Refresher[T]) tick(ctx context.Context) {
	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if stopped || ctx.Err() != nil {
		return
	}
	v, err := r.fetch(context.WithoutCancel(ctx))

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	now := time.Now()
	if err != nil {
		r.current.Err = err
		r.current.Stale = true
	} else {
		r.current = Result[T]{Value: v, Loaded: true, UpdatedAt: now}
	}
	snapshot := r.current
	r.mu.Unlock()

	if err != nil {
		r.log.Warn("refresh failed", applogger.Error(err))
		r.observe("error")
	} else {
		r.observe("ok")
	}

	// Keep only the newest result for slow readers.
	select {
	case <-r.updates:
	default:
	}
	select {
	case r.updates <- snapshot:
	default:
	}
}

func (r *Refresher[T]) observe(result string) {
	if r.opts.observer != nil {
		r.opts.observer.ObservePoll(r.name, result)
	}
}

// Latest returns the current view of the resource.
func (r *Refresher[T]) Latest() Result[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Updates delivers the result of every tick; closed once the loop exits.
func (r *Refresher[T]) Updates() <-chan Result[T] {
	return r.updates
}

// Done is closed when the loop has exited.
func (r *Refresher[T]) Done() <-chan struct{} {
	return r.done
}

// Name returns the resource name.
func (r *Refresher[T]) Name() string {
	return r.name
}

// Stop cancels the schedule unconditionally. No fetch starts after Stop
// returns. Safe to call more than once, and before Start.
func (r *Refresher[T]) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	cancel := r.cancel
	started := r.started
	r.mu.Unlock()

	if !started {
		close(r.updates)
		close(r.done)
		return
	}
	cancel()
}
