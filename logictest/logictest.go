// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package logictest provides utility functions for testing circuits.
package logictest

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/db47h/logicsim"
	"github.com/pkg/errors"
)

// A Probe drives every input of a part from its own input terminal and reads
// every output through its own output terminal.
//
type Probe struct {
	Circuit *logicsim.Circuit
	Part    *logicsim.Component
	Inputs  []*logicsim.Component
	Outputs []*logicsim.Component
}

// Attach adds input and output terminals to c and wires them to part.
//
func Attach(c *logicsim.Circuit, part *logicsim.Component) (*Probe, error) {
	p := &Probe{Circuit: c, Part: part}
	for i, n := range part.Inputs {
		in := c.AddInput(logicsim.Point{X: part.Pos.X - 100, Y: part.Pos.Y + float64(i)*50}, false)
		if _, err := c.AddConnection(in.Outputs[0].ID, n.ID); err != nil {
			return nil, errors.Wrapf(err, "wire input %d", i)
		}
		p.Inputs = append(p.Inputs, in)
	}
	for i, n := range part.Outputs {
		out := c.AddOutput(logicsim.Point{X: part.Pos.X + part.Width + 100, Y: part.Pos.Y + float64(i)*50})
		if _, err := c.AddConnection(n.ID, out.Inputs[0].ID); err != nil {
			return nil, errors.Wrapf(err, "wire output %d", i)
		}
		p.Outputs = append(p.Outputs, out)
	}
	return p, nil
}

// Set sets the input terminals to the bits of v. Input 0 is the most
// significant bit.
//
func (p *Probe) Set(v int) {
	for bit := range p.Inputs {
		p.Inputs[len(p.Inputs)-bit-1].Value = v&(1<<uint(bit)) != 0
	}
}

// SetBools sets the input terminals to the given values.
//
func (p *Probe) SetBools(in []bool) {
	for i := range p.Inputs {
		p.Inputs[i].Value = in[i]
	}
}

// Get returns the output terminal values.
//
func (p *Probe) Get() []bool {
	out := make([]bool, len(p.Outputs))
	for i, o := range p.Outputs {
		out[i] = o.Level == logicsim.High
	}
	return out
}

func (p *Probe) inputString() string {
	var b strings.Builder
	for i, in := range p.Inputs {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "in%d=%v", i, in.Value)
	}
	return b.String()
}

// TruthTable checks every input combination of part against result, where
// result[o][i] is the expected value of output o for the input combination i
// (see Probe.Set).
//
func TruthTable(t *testing.T, c *logicsim.Circuit, part *logicsim.Component, result [][]bool) {
	t.Helper()
	p, err := Attach(c, part)
	if err != nil {
		t.Fatal(err)
	}
	tot := 1 << uint(len(p.Inputs))
	for i := 0; i < tot; i++ {
		p.Set(i)
		c.Simulate()
		for o, out := range p.Get() {
			if exp := result[o][i]; exp != out {
				t.Errorf("%s(%s) out%d = %v, got %v", name(part), p.inputString(), o, exp, out)
			}
		}
	}
}

func name(part *logicsim.Component) string {
	switch part.Kind {
	case logicsim.KindGate:
		return part.Gate.String()
	case logicsim.KindComposite:
		return part.Instance.Definition
	}
	return string(part.ID)
}

func randBool() bool {
	return rand.Int63()&(1<<62) != 0
}

// ComparePart takes two parts of the same circuit and compares their outputs
// given the same inputs. Both parts must have the same number of inputs and
// outputs. Inputs are tested exhaustively up to 12 inputs, then randomly.
//
func ComparePart(t *testing.T, c *logicsim.Circuit, part1, part2 *logicsim.Component) {
	t.Helper()
	if len(part1.Inputs) != len(part2.Inputs) {
		t.Fatalf("len(part1.Inputs) = %d != len(part2.Inputs) = %d", len(part1.Inputs), len(part2.Inputs))
	}
	if len(part1.Outputs) != len(part2.Outputs) {
		t.Fatalf("len(part1.Outputs) = %d != len(part2.Outputs) = %d", len(part1.Outputs), len(part2.Outputs))
	}
	p1, err := Attach(c, part1)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := Attach(c, part2)
	if err != nil {
		t.Fatal(err)
	}

	check := func() {
		t.Helper()
		c.Simulate()
		o1, o2 := p1.Get(), p2.Get()
		for o := range o1 {
			if o1[o] != o2[o] {
				t.Fatalf("\n%s(%s) => out%d=%v\n%s: got %v", name(part1), p1.inputString(), o, o1[o], name(part2), o2[o])
			}
		}
	}

	n := len(p1.Inputs)
	if n <= 12 {
		for i := 0; i < 1<<uint(n); i++ {
			p1.Set(i)
			p2.Set(i)
			check()
		}
		return
	}
	in := make([]bool, n)
	for i := 0; i < 1<<12; i++ {
		for k := range in {
			in[k] = randBool()
		}
		p1.SetBools(in)
		p2.SetBools(in)
		check()
	}
}
