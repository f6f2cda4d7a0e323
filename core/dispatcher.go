package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/semaphore"
)

// DefaultBlockingPermits is the permit pool size used when none is configured.
const DefaultBlockingPermits = 8

// ErrTaskPanicked wraps the value recovered from a panicking task.
var ErrTaskPanicked = errors.New("blocking task panicked")

// Dispatcher bounds how many CPU-heavy tasks (bcrypt) run at once so request
// goroutines never pile up on hashing work.
type Dispatcher struct {
	sem     *semaphore.Weighted
	permits int
	state   *DispatcherState
	metrics dispatcherMetrics
}

type dispatcherMetrics struct {
	inFlight prometheus.Gauge
	wait     prometheus.Histogram
	total    *prometheus.CounterVec
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherState records task activity into s (published as a heartbeat).
func WithDispatcherState(s *DispatcherState) DispatcherOption {
	return func(d *Dispatcher) { d.state = s }
}

// WithMetricsRegisterer registers the dispatcher collectors on reg.
func WithMetricsRegisterer(reg prometheus.Registerer) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = newDispatcherMetrics(reg) }
}

// NewDispatcher creates a dispatcher with the given number of permits.
func NewDispatcher(permits int, opts ...DispatcherOption) *Dispatcher {
	if permits <= 0 {
		permits = DefaultBlockingPermits
	}
	d := &Dispatcher{
		sem:     semaphore.NewWeighted(int64(permits)),
		permits: permits,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics.inFlight == nil {
		d.metrics = newDispatcherMetrics(nil)
	}
	return d
}

// Permits returns the pool size.
func (d *Dispatcher) Permits() int { return d.permits }

// Run executes task while holding one permit. Acquisition blocks only the
// calling goroutine. The permit is released when task returns or panics,
// even if ctx ends first; in that case the caller gets ctx.Err() and the
// task's result is discarded.
func Run[T any](ctx context.Context, d *Dispatcher, task func() (T, error)) (T, error) {
	var zero T

	waitStart := time.Now()
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}
	d.metrics.wait.Observe(time.Since(waitStart).Seconds())
	d.metrics.inFlight.Inc()
	if d.state != nil {
		d.state.TaskStarted()
	}

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		var out outcome
		defer func() {
			if p := recover(); p != nil {
				out = outcome{err: fmt.Errorf("%w: %v", ErrTaskPanicked, p)}
			}
			d.sem.Release(1)
			d.finish(out.err)
			done <- out
		}()
		out.val, out.err = task()
	}()

	select {
	case out := <-done:
		return out.val, out.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (d *Dispatcher) finish(err error) {
	d.metrics.inFlight.Dec()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	d.metrics.total.WithLabelValues(outcome).Inc()
	if d.state != nil {
		d.state.TaskFinished(err)
	}
}

func newDispatcherMetrics(reg prometheus.Registerer) dispatcherMetrics {
	factory := promauto.With(reg)
	return dispatcherMetrics{
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "accounts",
			Name:      "blocking_tasks_in_flight",
			Help:      "Blocking tasks currently holding a permit.",
		}),
		wait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "accounts",
			Name:      "blocking_task_wait_seconds",
			Help:      "Time spent waiting for a blocking task permit.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		total: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accounts",
			Name:      "blocking_tasks_total",
			Help:      "Blocking tasks completed, by outcome.",
		}, []string{"outcome"}),
	}
}
