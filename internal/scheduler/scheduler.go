package scheduler

import (
	"sync"
	"time"
)

const (
	// DefaultDebounce is how long after the last edit a quote fetch fires.
	DefaultDebounce = 800 * time.Millisecond

	// DefaultRefreshInterval is the countdown between automatic re-quotes.
	DefaultRefreshInterval = 15 * time.Second
)

// Scheduler coordinates the edit debounce with the periodic refresh countdown.
// At most one of the two is armed at any moment: each edit resets the debounce
// and cancels any running countdown; once the debounce fires, the countdown
// takes over until the next edit. fire is invoked from timer goroutines and
// must be safe for concurrent use.
type Scheduler struct {
	fire     func()
	debounce time.Duration
	interval time.Duration

	mu       sync.Mutex
	gen      uint64
	timer    *time.Timer
	stop     chan struct{}
	nextAt   time.Time
	disposed bool
}

// New creates a scheduler that calls fire after each debounce window and on
// every countdown tick.
func New(fire func(), debounce, interval time.Duration) *Scheduler {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Scheduler{
		fire:     fire,
		debounce: debounce,
		interval: interval,
	}
}

// Update reacts to a change of the trade intent. A valid intent arms the
// debounce; an invalid one cancels everything so no fetch can fire until the
// intent becomes valid again.
func (s *Scheduler) Update(valid bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}

	s.cancelLocked()
	if !valid {
		return
	}

	gen := s.gen
	s.timer = time.AfterFunc(s.debounce, func() { s.debounceFired(gen) })
}

// Remaining reports the time until the next automatic refresh, or zero when
// no countdown is running.
func (s *Scheduler) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nextAt.IsZero() {
		return 0
	}
	if d := time.Until(s.nextAt); d > 0 {
		return d
	}
	return 0
}

// Dispose cancels all pending work. The scheduler is unusable afterwards;
// calling Dispose more than once is harmless.
func (s *Scheduler) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	s.cancelLocked()
}

// cancelLocked invalidates in-flight timer callbacks and stops the countdown.
// Callers must hold s.mu.
func (s *Scheduler) cancelLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.nextAt = time.Time{}
}

func (s *Scheduler) debounceFired(gen uint64) {
	s.mu.Lock()
	if s.disposed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	stop := make(chan struct{})
	s.stop = stop
	s.mu.Unlock()

	s.fire()
	s.restartCountdown(gen)
	go s.countdown(gen, stop)
}

func (s *Scheduler) countdown(gen uint64, stop chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.disposed || gen != s.gen {
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
			s.fire()
			s.restartCountdown(gen)
		}
	}
}

// restartCountdown stamps the next refresh time once a fetch has completed.
// The countdown display never runs while a fetch is still in flight.
func (s *Scheduler) restartCountdown(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || gen != s.gen {
		return
	}
	s.nextAt = time.Now().Add(s.interval)
}
