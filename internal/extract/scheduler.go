package extract

import (
	"sort"
	"sync"
	"time"
)

// CancelFunc stops a scheduled callback if it has not fired yet.
type CancelFunc func()

// Scheduler abstracts delayed execution so retry and discovery loops can run
// on simulated time in tests.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) CancelFunc
}

// TimerScheduler schedules on real timers.
type TimerScheduler struct{}

// Schedule runs fn after d on its own goroutine.
func (TimerScheduler) Schedule(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// ManualScheduler queues callbacks and fires them only when time is advanced
// explicitly. Callbacks run synchronously on the advancing goroutine, which
// matches the single-threaded cooperative model the engine assumes.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	nextID int
	tasks  map[int]*manualTask
}

type manualTask struct {
	id  int
	due time.Duration
	fn  func()
}

// NewManualScheduler returns an empty manual scheduler at time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{tasks: make(map[int]*manualTask)}
}

// Schedule queues fn to run once the scheduler has advanced d past now.
func (s *ManualScheduler) Schedule(d time.Duration, fn func()) CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.tasks[id] = &manualTask{id: id, due: s.now + d, fn: fn}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.tasks, id)
	}
}

// Advance moves the clock forward and runs every callback that came due, in
// due order. Callbacks may schedule further work; anything due within the
// same advance window runs too.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var due []*manualTask
		for _, t := range s.tasks {
			if t.due <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			s.now = target
			s.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].due != due[j].due {
				return due[i].due < due[j].due
			}
			return due[i].id < due[j].id
		})
		next := due[0]
		delete(s.tasks, next.id)
		s.now = next.due
		s.mu.Unlock()

		next.fn()
	}
}

// Pending reports how many callbacks are queued.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
