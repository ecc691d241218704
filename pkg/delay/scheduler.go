package delay

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultWorkers is the worker count used when none is configured.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// Scheduler runs delayed tasks on a fixed pool of workers.
//
// Timers only enqueue; the work of a fired task runs on a worker, so the
// number of tasks running at once never exceeds the pool size.
type Scheduler struct {
	tasks   chan func()
	quit    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	pending atomic.Int64
}

// NewScheduler starts a scheduler with the given number of workers.
// Values below one use DefaultWorkers.
func NewScheduler(workers int) *Scheduler {
	if workers < 1 {
		workers = DefaultWorkers
	}
	s := &Scheduler{
		tasks: make(chan func(), workers*4),
		quit:  make(chan struct{}),
	}
	s.wg.Add(workers)
	for range workers {
		go s.work()
	}
	return s
}

func (s *Scheduler) work() {
	defer s.wg.Done()
	for {
		select {
		case fn := <-s.tasks:
			fn()
		case <-s.quit:
			s.drain()
			return
		}
	}
}

func (s *Scheduler) drain() {
	for {
		select {
		case fn := <-s.tasks:
			fn()
		default:
			return
		}
	}
}

// Task is a scheduled function.
type Task struct {
	timer *time.Timer
	s     *Scheduler
	state atomic.Int32
}

const (
	taskScheduled int32 = iota
	taskStarted
	taskCancelled
)

// Cancel stops the task. It reports false if the task already started.
func (t *Task) Cancel() bool {
	if !t.state.CompareAndSwap(taskScheduled, taskCancelled) {
		return false
	}
	t.timer.Stop()
	t.s.pending.Add(-1)
	return true
}

// Schedule runs fn on a worker after d.
func (s *Scheduler) Schedule(d time.Duration, fn func()) *Task {
	t := &Task{s: s}
	s.pending.Add(1)
	run := func() {
		if !t.state.CompareAndSwap(taskScheduled, taskStarted) {
			return
		}
		s.pending.Add(-1)
		fn()
	}
	t.timer = time.AfterFunc(d, func() {
		select {
		case <-s.quit:
			run()
			return
		default:
		}
		select {
		case s.tasks <- run:
		case <-s.quit:
			// closed: nobody is left to run it, do it here
			run()
		}
	})
	return t
}

// Wait blocks for d or until ctx is done.
func (s *Scheduler) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	done := make(chan struct{})
	t := s.Schedule(d, func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.Cancel()
		return ctx.Err()
	}
}

// Pending returns the number of tasks waiting to run.
func (s *Scheduler) Pending() int64 {
	return s.pending.Load()
}

// Close stops the workers. Tasks firing afterwards run on their timer's
// goroutine.
func (s *Scheduler) Close() {
	s.once.Do(func() {
		close(s.quit)
		s.wg.Wait()
	})
}
