// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package clock drives clock sources from wall clock timers.
package clock

import (
	"context"
	"sync"
	"time"

	"github.com/db47h/logicsim"
	"golang.org/x/sync/errgroup"
)

// A TickFunc is called on every period of a clock. Returning an error stops
// that clock only.
type TickFunc func(id logicsim.ComponentID) error

// Scheduler runs one ticker goroutine per clock source.
type Scheduler struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	g      *errgroup.Group
	tick   TickFunc
	clocks map[logicsim.ComponentID]*ticker
}

type ticker struct {
	stop context.CancelFunc
}

// New returns a new scheduler calling tick for each clock period.
func New(tick TickFunc) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	return &Scheduler{
		ctx:    ctx,
		cancel: cancel,
		g:      g,
		tick:   tick,
		clocks: make(map[logicsim.ComponentID]*ticker),
	}
}

// Start starts ticking clock id every period. A running clock with the same
// id is restarted.
func (s *Scheduler) Start(id logicsim.ComponentID, period time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	if old, ok := s.clocks[id]; ok {
		old.stop()
	}
	ctx, stop := context.WithCancel(s.ctx)
	tk := &ticker{stop: stop}
	s.clocks[id] = tk
	s.g.Go(func() error {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				if err := s.tick(id); err != nil {
					s.remove(id, tk)
					return nil
				}
			}
		}
	})
}

// Stop stops clock id. It reports whether the clock was running.
func (s *Scheduler) Stop(id logicsim.ComponentID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	tk, ok := s.clocks[id]
	if ok {
		tk.stop()
		delete(s.clocks, id)
	}
	return ok
}

// remove stops tk if it is still the ticker of clock id.
func (s *Scheduler) remove(id logicsim.ComponentID, tk *ticker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tk.stop()
	if s.clocks[id] == tk {
		delete(s.clocks, id)
	}
}

// StopAll stops all clocks.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, tk := range s.clocks {
		tk.stop()
		delete(s.clocks, id)
	}
}

// Running returns the number of running clocks.
func (s *Scheduler) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clocks)
}

// Close stops all clocks and waits for their goroutines to exit. Tick
// functions in progress must be able to complete: Close must not be called
// while holding a lock they need.
func (s *Scheduler) Close() error {
	s.StopAll()
	s.cancel()
	return s.g.Wait()
}
