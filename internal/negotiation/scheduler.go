package negotiation

import (
	"context"
	"sync"
	"time"
)

// Clock creates timers. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the part of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// SystemClock uses the runtime timers.
type SystemClock struct{}

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Scheduler runs delayed tasks keyed by negotiation ID. At most one task is
// pending per key; tasks can be cancelled and awaited.
type Scheduler struct {
	clock Clock

	mu      sync.Mutex
	tasks   map[int64]*task
	running map[*task]int64
	closed  bool
	wg      sync.WaitGroup
}

type task struct {
	timer  Timer
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. A nil clock means SystemClock.
func NewScheduler(clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{
		clock:   clock,
		tasks:   make(map[int64]*task),
		running: make(map[*task]int64),
	}
}

// Schedule runs fn after delay, replacing any task pending for id. The
// context passed to fn is cancelled by Cancel and Close. It reports false
// once the scheduler is closed.
func (s *Scheduler) Schedule(id int64, delay time.Duration, fn func(ctx context.Context)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if old, ok := s.tasks[id]; ok {
		s.stopLocked(id, old)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel}
	s.wg.Add(1)
	t.timer = s.clock.AfterFunc(delay, func() { s.run(ctx, id, t, fn) })
	s.tasks[id] = t
	return true
}

func (s *Scheduler) run(ctx context.Context, id int64, t *task, fn func(context.Context)) {
	defer s.wg.Done()

	s.mu.Lock()
	if s.tasks[id] != t {
		// Cancelled or replaced after the timer fired.
		s.mu.Unlock()
		return
	}
	delete(s.tasks, id)
	s.running[t] = id
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, t)
		s.mu.Unlock()
		t.cancel()
	}()
	fn(ctx)
}

// stopLocked removes t. The caller holds s.mu.
func (s *Scheduler) stopLocked(id int64, t *task) {
	delete(s.tasks, id)
	t.cancel()
	if t.timer.Stop() {
		// The callback will never run, so account for it here.
		s.wg.Done()
	}
}

// Cancel stops the task pending for id and reports whether there was one.
// A task for id that is already running sees its context cancelled.
func (s *Scheduler) Cancel(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for t, runningID := range s.running {
		if runningID == id {
			t.cancel()
		}
	}

	t, ok := s.tasks[id]
	if !ok {
		return false
	}
	s.stopLocked(id, t)
	return true
}

// CancelAll stops every pending task.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.tasks {
		s.stopLocked(id, t)
	}
}

// Pending returns the number of tasks waiting for their timer.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Wait blocks until every scheduled task has finished or been cancelled.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Close cancels pending and running tasks, refuses new ones and waits for
// running tasks to return.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for id, t := range s.tasks {
		s.stopLocked(id, t)
	}
	for t := range s.running {
		t.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
}
