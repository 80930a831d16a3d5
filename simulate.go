// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package logicsim

import "log/slog"

// Report summarizes a simulation pass.
//
type Report struct {
	// Rounds is the number of rounds of the outer loop.
	Rounds int `json:"rounds"`
	// Stable is false if the outer loop stopped at its iteration cap.
	Stable bool `json:"stable"`
	// Unstable lists the composite instances (including nested ones) whose
	// inner loop hit its iteration cap at least once.
	Unstable []ComponentID `json:"unstable,omitempty"`
}

// reader returns the value arriving on input node n. ok is false if the
// value is not known yet.
//
type reader func(n NodeID) (v bool, ok bool)

type evaluator struct {
	log      *slog.Logger
	maxInner int
	report   *Report
	seen     map[ComponentID]bool
}

// Simulate recomputes every node value of the circuit.
//
// The value table is seeded with the values of input terminals and clock
// sources; gate and composite outputs start at 0, which lets feedback loops
// settle. Rounds are then run until no value changes or the iteration cap is
// reached. In each round, every gate is evaluated in insertion order, then
// every composite instance is evaluated by its own inner fixed-point loop.
// Reaching a cap is not an error: the best effort values are kept, a warning
// is logged, and the returned report tells which loops did not settle.
//
// Finally, output terminals take the value of their source, 0 if they are not
// connected, and composite instances record their output values.
// Input terminals and clock sources are never modified.
//
func (c *Circuit) Simulate() Report {
	values := make(map[NodeID]bool, len(c.owner))
	for _, cp := range c.comps {
		switch cp.Kind {
		case KindInput, KindClock:
			values[cp.Outputs[0].ID] = cp.Value
		case KindGate, KindComposite:
			for _, n := range cp.Outputs {
				values[n.ID] = false
			}
		}
	}

	var r Report
	e := evaluator{log: c.opts.log, maxInner: c.opts.maxInnerRounds, report: &r}
	read := func(n NodeID) (bool, bool) {
		src, ok := c.driver[n]
		if !ok {
			return false, true
		}
		v, ok := values[src]
		return v, ok
	}
	for r.Rounds < c.opts.maxRounds {
		r.Rounds++
		if !e.round(c.comps, values, read) {
			r.Stable = true
			break
		}
	}
	if !r.Stable {
		c.opts.log.Warn("simulation reached max iterations, unstable circuit or feedback loop", "rounds", r.Rounds)
	}

	for _, cp := range c.comps {
		switch cp.Kind {
		case KindOutput:
			v, _ := read(cp.Inputs[0].ID)
			cp.Level = LevelOf(v)
		case KindComposite:
			for i, n := range cp.Outputs {
				cp.Instance.OutputValues[i] = values[n.ID]
			}
		}
	}
	c.values = values
	c.opts.log.Debug("simulation done", "rounds", r.Rounds, "stable", r.Stable)
	return r
}

// round evaluates all gates in parts, then all composite instances. It
// reports whether any value changed.
//
func (e *evaluator) round(parts []*Component, values map[NodeID]bool, read reader) bool {
	changed := false
	for _, p := range parts {
		if p.Kind == KindGate && e.gate(p, values, read) {
			changed = true
		}
	}
	for _, p := range parts {
		if p.Kind == KindComposite && e.instance(p, values, read) {
			changed = true
		}
	}
	return changed
}

func (e *evaluator) gate(g *Component, values map[NodeID]bool, read reader) bool {
	var in [2]bool
	for i, n := range g.Inputs {
		v, ok := read(n.ID)
		if !ok {
			// wait for a later round.
			return false
		}
		in[i] = v
	}
	out := g.Gate.Eval(in[0], in[1])
	id := g.Outputs[0].ID
	if v, ok := values[id]; ok && v == out {
		return false
	}
	values[id] = out
	return true
}

// instance runs the inner fixed-point loop of a composite instance on a fresh
// private value table, then copies the internal source values to the
// instance's external outputs in values. It reports whether any external
// output changed.
//
func (e *evaluator) instance(cp *Component, values map[NodeID]bool, read reader) bool {
	inst := cp.Instance
	if inst == nil {
		return false
	}
	inner := make(map[NodeID]bool, len(inst.parts)+len(cp.Inputs))
	for _, p := range inst.parts {
		for _, n := range p.Outputs {
			inner[n.ID] = false
		}
	}
	for _, n := range cp.Inputs {
		dst, ok := inst.inputTargets[n.ID]
		if !ok {
			continue
		}
		v, ok := read(n.ID)
		inner[dst] = ok && v
	}
	innerRead := func(n NodeID) (bool, bool) {
		if src, ok := inst.driver[n]; ok {
			v, ok := inner[src]
			return v, ok
		}
		// seeded from an external input, or unconnected.
		return inner[n], true
	}

	settled := false
	for i := 0; i < e.maxInner; i++ {
		if !e.round(inst.parts, inner, innerRead) {
			settled = true
			break
		}
	}
	if !settled && !e.seen[cp.ID] {
		if e.seen == nil {
			e.seen = make(map[ComponentID]bool)
		}
		e.seen[cp.ID] = true
		e.report.Unstable = append(e.report.Unstable, cp.ID)
		e.log.Warn("composite instance reached max internal iterations", "instance", cp.ID, "definition", inst.Definition)
	}

	changed := false
	for i, n := range cp.Outputs {
		src := inst.sources[i]
		if src == "" {
			continue
		}
		v, ok := inner[src]
		if !ok {
			continue
		}
		if cur, ok := values[n.ID]; ok && cur == v {
			continue
		}
		values[n.ID] = v
		changed = true
	}
	return changed
}
