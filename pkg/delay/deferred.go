package delay

import (
	"context"
	"iter"
	"time"

	"github.com/getmockd/oasstub/pkg/model"
)

// Deferred is a result that may not be available yet.
type Deferred[T any] interface {
	// Await returns the result, giving up when ctx is done.
	Await(ctx context.Context) (T, error)
}

type value[T any] struct {
	v   T
	err error
}

func (d value[T]) Await(ctx context.Context) (T, error) {
	return d.v, d.err
}

// Value wraps an already computed result.
func Value[T any](v T) Deferred[T] {
	return value[T]{v: v}
}

// Failed wraps an error.
func Failed[T any](err error) Deferred[T] {
	return value[T]{err: err}
}

type future[T any] struct {
	done chan struct{}
	v    T
	err  error
}

// Future starts fn in its own goroutine.
func Future[T any](fn func() (T, error)) Deferred[T] {
	f := &future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.v, f.err = fn()
	}()
	return f
}

func (f *future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.v, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

type syncFn[T any] func(ctx context.Context) (T, error)

func (fn syncFn[T]) Await(ctx context.Context) (T, error) {
	return fn(ctx)
}

// Sync runs fn on the awaiting goroutine.
func Sync[T any](fn func(ctx context.Context) (T, error)) Deferred[T] {
	return syncFn[T](fn)
}

type delayed[T any] struct {
	s      *Scheduler
	start  time.Time
	policy *model.Delay
	inner  Deferred[T]
}

// Delay makes d complete no earlier than the delay of policy counted from
// start. Failures are returned without delay.
func Delay[T any](s *Scheduler, start time.Time, policy *model.Delay, d Deferred[T]) Deferred[T] {
	if policy == nil {
		return d
	}
	return &delayed[T]{s: s, start: start, policy: policy, inner: d}
}

func (d *delayed[T]) Await(ctx context.Context) (T, error) {
	v, err := d.inner.Await(ctx)
	if err != nil {
		return v, err
	}
	if wait, ok := Compute(d.policy, time.Since(d.start)); ok {
		if err := d.s.Wait(ctx, wait); err != nil {
			var zero T
			return zero, err
		}
	}
	return v, nil
}

// DelayStream holds the first element of seq back until the delay of
// policy counted from start has passed. Later elements pass through. When
// ctx is done the stream ends with its error.
func DelayStream[T any](ctx context.Context, s *Scheduler, start time.Time, policy *model.Delay, seq iter.Seq[T]) iter.Seq2[T, error] {
	return pace(ctx, s, seq, func(i int) time.Duration {
		if i > 0 {
			return 0
		}
		wait, _ := Compute(policy, time.Since(start))
		return wait
	})
}

// Paced waits interval before every element of seq.
func Paced[T any](ctx context.Context, s *Scheduler, interval time.Duration, seq iter.Seq[T]) iter.Seq2[T, error] {
	return pace(ctx, s, seq, func(int) time.Duration { return interval })
}

func pace[T any](ctx context.Context, s *Scheduler, seq iter.Seq[T], before func(i int) time.Duration) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		i := 0
		for v := range seq {
			if err := s.Wait(ctx, before(i)); err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !yield(v, nil) {
				return
			}
			i++
		}
	}
}
