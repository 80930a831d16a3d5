// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package session hosts an editable circuit: it serializes access to the
// circuit, re-simulates it after every edit, drives its clock sources, and
// persists its composite definitions.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/db47h/logicsim"
	"github.com/db47h/logicsim/internal/clock"
	"github.com/db47h/logicsim/internal/store"
	"github.com/db47h/logicsim/logiclib"
	"github.com/pkg/errors"
)

// PasteOffset is the offset between duplicated components.
const PasteOffset = 10

// A Session is safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	set    string
	c      *logicsim.Circuit
	st     store.Store
	clocks *clock.Scheduler
	log    *slog.Logger
	report logicsim.Report
}

// New returns a session whose definitions are loaded from and saved to the
// definition set named set in st. A set that fails to load as a whole is
// discarded: the session starts with no definitions and the set is cleared.
func New(ctx context.Context, st store.Store, set string, log *slog.Logger, opts ...logicsim.Option) (*Session, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("set", set)
	s := &Session{
		set: set,
		c:   logicsim.New(append([]logicsim.Option{logicsim.WithLogger(log)}, opts...)...),
		st:  st,
		log: log,
	}
	s.clocks = clock.New(s.Tick)

	defs, err := st.Load(ctx, set)
	if err == nil {
		err = s.c.LoadDefinitions(defs)
	}
	switch {
	case errors.Is(err, logicsim.ErrCorruptDefinitions):
		log.Warn("discarding corrupted composite definitions", "error", err)
		if err = st.Save(ctx, set, nil); err != nil {
			return nil, errors.Wrap(err, "clear definitions")
		}
	case err != nil:
		return nil, errors.Wrap(err, "load definitions")
	default:
		log.Debug("definitions loaded", "count", len(defs))
	}
	s.report = s.c.Simulate()
	return s, nil
}

// ID returns the name of the definition set of the session.
func (s *Session) ID() string { return s.set }

// View calls fn with the circuit and the report of the last simulation
// pass. fn must not keep references to the circuit or modify it.
func (s *Session) View(fn func(c *logicsim.Circuit, r logicsim.Report)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.c, s.report)
}

// simulate must be called with s.mu held.
func (s *Session) simulate() {
	s.report = s.c.Simulate()
}

// Simulate runs a simulation pass and returns its report.
func (s *Session) Simulate() logicsim.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulate()
	return s.report
}

// AddComponent adds a component. Clock sources start ticking immediately.
func (s *Session) AddComponent(spec logicsim.Spec) (logicsim.ComponentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, err := s.c.AddComponent(spec)
	if err != nil {
		return "", err
	}
	if cp.Kind == logicsim.KindClock {
		s.clocks.Start(cp.ID, cp.Period)
	}
	s.simulate()
	return cp.ID, nil
}

// Remove removes components and their connections.
func (s *Session) Remove(ids ...logicsim.ComponentID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.c.RemoveComponents(ids...)
	for _, cp := range removed {
		if cp.Kind == logicsim.KindClock {
			s.clocks.Stop(cp.ID)
		}
	}
	s.simulate()
	return len(removed)
}

// Duplicate copies gates and terminals (not their connections), placing the
// copies at pos, each one offset from the previous. Other components are
// skipped. It returns the ids of the copies.
func (s *Session) Duplicate(pos logicsim.Point, ids ...logicsim.ComponentID) ([]logicsim.ComponentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var specs []logicsim.Spec
	for _, id := range ids {
		cp := s.c.Component(id)
		if cp == nil {
			return nil, errors.Wrapf(logicsim.ErrUnknownComponent, "%s", id)
		}
		switch cp.Kind {
		case logicsim.KindGate, logicsim.KindInput, logicsim.KindOutput:
			specs = append(specs, logicsim.Spec{Kind: cp.Kind, Gate: cp.Gate, Value: cp.Value})
		}
	}
	var dup []logicsim.ComponentID
	for i, spec := range specs {
		spec.Pos = pos.Add(logicsim.Point{X: float64(i * PasteOffset), Y: float64(i * PasteOffset)})
		cp, err := s.c.AddComponent(spec)
		if err != nil {
			return dup, err
		}
		dup = append(dup, cp.ID)
	}
	s.simulate()
	return dup, nil
}

// Move moves a component.
func (s *Session) Move(id logicsim.ComponentID, pos logicsim.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Move(id, pos)
}

// Connect wires src to dst.
func (s *Session) Connect(src, dst logicsim.NodeID) (logicsim.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cn, err := s.c.AddConnection(src, dst)
	if err != nil {
		return cn, err
	}
	s.simulate()
	return cn, nil
}

// Disconnect removes every connection touching the given nodes.
func (s *Session) Disconnect(nodes ...logicsim.NodeID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.c.RemoveConnectionsTouching(nodes...)
	s.simulate()
	return n
}

// Toggle flips an input terminal.
func (s *Session) Toggle(id logicsim.ComponentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.c.ToggleInput(id); err != nil {
		return err
	}
	s.simulate()
	return nil
}

// Tick flips a clock source. It is called by the clock scheduler on every
// period and fails once the clock has been removed, which stops its ticker.
func (s *Session) Tick(id logicsim.ComponentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.c.TickClock(id); err != nil {
		return err
	}
	s.simulate()
	return nil
}

// Define packages components into a new composite definition and saves the
// definition set. If the set cannot be saved, the definition is dropped.
func (s *Session) Define(ctx context.Context, name string, ids ...logicsim.ComponentID) (*logicsim.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.c.Definitions()
	d, err := s.c.DefineComposite(name, ids...)
	if err != nil {
		return nil, err
	}
	if err = s.commit(ctx, prev); err != nil {
		return nil, err
	}
	return d, nil
}

// Instantiate places an instance of a composite definition.
func (s *Session) Instantiate(name string, pos logicsim.Point) (logicsim.ComponentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, err := s.c.Instantiate(name, pos)
	if err != nil {
		return "", err
	}
	s.simulate()
	return cp.ID, nil
}

// RemoveDefinition removes a definition and its instances, then saves the
// definition set. It returns the number of removed instances. If the set
// cannot be saved, the definition is restored but its instances stay removed.
func (s *Session) RemoveDefinition(ctx context.Context, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.c.Definitions()
	removed, err := s.c.RemoveDefinition(name)
	if err != nil {
		return 0, err
	}
	s.log.Info("composite definition removed", "name", name, "instances", len(removed))
	s.simulate()
	return len(removed), s.commit(ctx, prev)
}

// ImportDefinitions adds definitions built elsewhere and saves the set. The
// batch is added as a whole or not at all.
func (s *Session) ImportDefinitions(ctx context.Context, defs ...*logicsim.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.c.Definitions()
	if err := s.c.AddDefinitions(defs...); err != nil {
		return err
	}
	return s.commit(ctx, prev)
}

// InstallLibrary adds the standard library definitions that are not defined
// yet. It returns the names of the added definitions.
func (s *Session) InstallLibrary(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.c.Definitions()
	names, err := logiclib.Install(s.c)
	if err != nil {
		return nil, err
	}
	if len(names) > 0 {
		if err = s.commit(ctx, prev); err != nil {
			return nil, err
		}
	}
	return names, nil
}

// Reset stops all clocks, clears the circuit and its definitions, and clears
// the saved definition set.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clocks.StopAll()
	s.c.Reset()
	s.simulate()
	s.log.Info("circuit reset")
	if err := s.st.Delete(ctx, s.set); err != nil {
		return errors.Wrap(err, "clear definitions")
	}
	return nil
}

// commit saves the definition set. On failure, the definitions are reset to
// prev so that they match the store. Must be called with s.mu held.
func (s *Session) commit(ctx context.Context, prev []*logicsim.Definition) error {
	err := s.save(ctx)
	if err != nil {
		if lerr := s.c.LoadDefinitions(prev); lerr != nil {
			s.log.Error("cannot restore definitions", "error", lerr)
		}
	}
	return err
}

// save must be called with s.mu held.
func (s *Session) save(ctx context.Context) error {
	if err := s.st.Save(ctx, s.set, s.c.Definitions()); err != nil {
		s.log.Error("cannot save definitions", "error", err)
		return errors.Wrap(err, "save definitions")
	}
	return nil
}

// Close stops all clocks. The store is not closed.
func (s *Session) Close() error {
	return s.clocks.Close()
}
