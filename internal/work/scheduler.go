package work

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler runs tasks from a single time-ordered queue.
type Scheduler struct {
	clock Clock
	log   zerolog.Logger

	mu    sync.Mutex
	queue taskQueue
	seq   uint64

	wake chan struct{}
	wg   sync.WaitGroup
}

// NewScheduler creates a scheduler reading time from clock.
func NewScheduler(clock Clock, log zerolog.Logger) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{
		clock: clock,
		log:   log.With().Str("component", "work_scheduler").Logger(),
		queue: make(taskQueue, 0),
		wake:  make(chan struct{}, 1),
	}
}

// Clock returns the scheduler's clock.
func (s *Scheduler) Clock() Clock {
	return s.clock
}

// Schedule enqueues fn to run at or after at.
func (s *Scheduler) Schedule(id string, at time.Time, fn TaskFunc) {
	s.mu.Lock()
	s.seq++
	heap.Push(&s.queue, &Task{ID: id, At: at, Run: fn, seq: s.seq})
	s.mu.Unlock()

	s.Trigger()
}

// ScheduleAfter enqueues fn to run d after the current clock time.
func (s *Scheduler) ScheduleAfter(id string, d time.Duration, fn TaskFunc) {
	s.Schedule(id, s.clock.Now().Add(d), fn)
}

// Trigger wakes up the run loop to re-check the queue.
// This is non-blocking and can be called from any goroutine.
func (s *Scheduler) Trigger() {
	select {
	case s.wake <- struct{}{}:
	default:
		// Trigger already pending
	}
}

// Len returns the number of queued tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// NextAt returns the time of the earliest queued task.
func (s *Scheduler) NextAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue.Len() == 0 {
		return time.Time{}, false
	}
	return s.queue[0].At, true
}

// popDue removes and returns the earliest task if it is due at now.
func (s *Scheduler) popDue(now time.Time) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue.Len() == 0 || s.queue[0].At.After(now) {
		return nil
	}
	return heap.Pop(&s.queue).(*Task)
}

// RunDue executes every task that is due, synchronously and in time order,
// including tasks that become due while it runs. It returns the number of
// tasks executed.
func (s *Scheduler) RunDue(ctx context.Context) int {
	executed := 0
	for {
		if ctx.Err() != nil {
			return executed
		}
		task := s.popDue(s.clock.Now())
		if task == nil {
			return executed
		}
		s.execute(ctx, task)
		executed++
	}
}

// Run dispatches due tasks concurrently until ctx is cancelled, then waits for
// in-flight tasks to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info().Msg("Work scheduler started")
	defer func() {
		s.wg.Wait()
		s.log.Info().Msg("Work scheduler stopped")
	}()

	for {
		for {
			task := s.popDue(s.clock.Now())
			if task == nil {
				break
			}
			s.wg.Add(1)
			go func(t *Task) {
				defer s.wg.Done()
				s.execute(ctx, t)
			}(task)
		}

		var timer <-chan time.Time
		if next, ok := s.NextAt(); ok {
			timer = s.clock.After(next.Sub(s.clock.Now()))
		}

		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-timer:
		}
	}
}

// Wait blocks until all tasks dispatched by Run have returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) execute(ctx context.Context, task *Task) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Str("task", task.ID).
				Err(fmt.Errorf("panic: %v", r)).
				Msg("Task panicked")
		}
	}()

	s.log.Debug().Str("task", task.ID).Time("due", task.At).Msg("Running task")
	task.Run(ctx)
}
