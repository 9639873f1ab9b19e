// Package refresh runs the periodic issue refresh timer.
package refresh

import (
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/roeyazroel/linear-ide/internal/logger"
)

// Scheduler owns a single recurring timer. Each tick calls trigger when the
// session is authenticated and does nothing otherwise; the timer keeps
// running either way.
type Scheduler struct {
	clock           clock.Clock
	isAuthenticated func() bool
	trigger         func()

	mu       sync.Mutex
	ticker   *clock.Ticker
	done     chan struct{}
	interval time.Duration
}

// New creates a stopped Scheduler. A nil clock uses the wall clock.
func New(c clock.Clock, isAuthenticated func() bool, trigger func()) *Scheduler {
	if c == nil {
		c = clock.New()
	}
	return &Scheduler{clock: c, isAuthenticated: isAuthenticated, trigger: trigger}
}

// Configure replaces the running timer with one firing every seconds.
// Zero or negative seconds leaves the timer stopped. It is safe to call from
// within trigger.
func (s *Scheduler) Configure(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	if seconds <= 0 {
		logger.Debug("refresh.scheduler: auto-refresh disabled")
		return
	}

	s.interval = time.Duration(seconds) * time.Second
	s.ticker = s.clock.Ticker(s.interval)
	s.done = make(chan struct{})
	go s.run(s.ticker, s.done)
	logger.Debug("refresh.scheduler: auto-refresh every %s", s.interval)
}

// Interval returns the active period, or zero when stopped.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Stop cancels the timer.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.done)
	s.ticker = nil
	s.done = nil
	s.interval = 0
}

func (s *Scheduler) run(t *clock.Ticker, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-t.C:
			select {
			case <-done:
				return
			default:
			}
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	if !s.isAuthenticated() {
		logger.Debug("refresh.scheduler: tick skipped, not authenticated")
		return
	}
	s.trigger()
}
