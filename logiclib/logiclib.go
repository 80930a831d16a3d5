// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package logiclib provides a library of reusable composite definitions for
// logicsim.
//
// Every definition is built the way a user would build it: by laying out
// terminals and gates in a scratch circuit, wiring them, and packaging the
// selection with DefineComposite. An interface input drives a single internal
// node, so inputs that feed several gates go through a buffer (an OR gate with
// its second input left unconnected).
package logiclib

import (
	"github.com/db47h/logicsim"
	"github.com/pkg/errors"
)

type builder struct {
	c   *logicsim.Circuit
	sel []logicsim.ComponentID
	x   float64
	err error
}

func newBuilder(deps ...*logicsim.Definition) *builder {
	b := &builder{c: logicsim.New()}
	for _, d := range deps {
		if err := b.c.AddDefinition(d); err != nil && b.err == nil {
			b.err = err
		}
	}
	return b
}

func (b *builder) add(cp *logicsim.Component, err error) *logicsim.Component {
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return nil
	}
	b.sel = append(b.sel, cp.ID)
	b.x += 80
	return cp
}

func (b *builder) pos() logicsim.Point { return logicsim.Point{X: b.x, Y: float64(len(b.sel)%3) * 50} }

func (b *builder) in() *logicsim.Component  { return b.add(b.c.AddInput(b.pos(), false), nil) }
func (b *builder) out() *logicsim.Component { return b.add(b.c.AddOutput(b.pos()), nil) }

func (b *builder) gate(t logicsim.GateType) *logicsim.Component {
	return b.add(b.c.AddGate(t, b.pos()))
}

// buf returns a buffer: an OR gate whose second input stays unconnected.
//
func (b *builder) buf() *logicsim.Component { return b.gate(logicsim.OR) }

func (b *builder) part(name string) *logicsim.Component {
	return b.add(b.c.Instantiate(name, b.pos()))
}

// wire connects output so of src to input di of dst.
//
func (b *builder) wire(src *logicsim.Component, so int, dst *logicsim.Component, di int) {
	if b.err != nil {
		return
	}
	if _, err := b.c.AddConnection(src.Outputs[so].ID, dst.Inputs[di].ID); err != nil {
		b.err = err
	}
}

func (b *builder) define(name string) *logicsim.Definition {
	if b.err != nil {
		panic(errors.Wrap(b.err, name))
	}
	d, err := b.c.DefineComposite(name, b.sel...)
	if err != nil {
		panic(errors.Wrap(err, name))
	}
	return d
}

// Xnor returns the definition of a XNOR gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = a == b
func Xnor() *logicsim.Definition {
	b := newBuilder()
	x, y := b.in(), b.in()
	xor, not := b.gate(logicsim.XOR), b.gate(logicsim.NOT)
	out := b.out()
	b.wire(x, 0, xor, 0)
	b.wire(y, 0, xor, 1)
	b.wire(xor, 0, not, 0)
	b.wire(not, 0, out, 0)
	return b.define("XNOR")
}

// Mux returns the definition of a multiplexer.
//
//	Inputs: a, b, sel
//	Outputs: out
//	Function: if sel == 0 { out = a } else { out = b }
func Mux() *logicsim.Definition {
	b := newBuilder()
	x, y, sel := b.in(), b.in(), b.in()
	bsel, nsel := b.buf(), b.gate(logicsim.NOT)
	a0, a1, or := b.gate(logicsim.AND), b.gate(logicsim.AND), b.gate(logicsim.OR)
	out := b.out()
	b.wire(sel, 0, bsel, 0)
	b.wire(bsel, 0, nsel, 0)
	b.wire(x, 0, a0, 0)
	b.wire(nsel, 0, a0, 1)
	b.wire(y, 0, a1, 0)
	b.wire(bsel, 0, a1, 1)
	b.wire(a0, 0, or, 0)
	b.wire(a1, 0, or, 1)
	b.wire(or, 0, out, 0)
	return b.define("MUX")
}

// DMux returns the definition of a demultiplexer.
//
//	Inputs: in, sel
//	Outputs: a, b
//	Function: if sel == 0 { a = in; b = 0 } else { a = 0; b = in }
func DMux() *logicsim.Definition {
	b := newBuilder()
	in, sel := b.in(), b.in()
	bin, bsel, nsel := b.buf(), b.buf(), b.gate(logicsim.NOT)
	a0, a1 := b.gate(logicsim.AND), b.gate(logicsim.AND)
	oa, ob := b.out(), b.out()
	b.wire(in, 0, bin, 0)
	b.wire(sel, 0, bsel, 0)
	b.wire(bsel, 0, nsel, 0)
	b.wire(bin, 0, a0, 0)
	b.wire(nsel, 0, a0, 1)
	b.wire(bin, 0, a1, 0)
	b.wire(bsel, 0, a1, 1)
	b.wire(a0, 0, oa, 0)
	b.wire(a1, 0, ob, 0)
	return b.define("DMUX")
}

// HalfAdder returns the definition of a half adder.
//
//	Inputs: a, b
//	Outputs: s, c
//	Function: s = lsb(a + b)
//	          c = msb(a + b)
func HalfAdder() *logicsim.Definition {
	b := newBuilder()
	x, y := b.in(), b.in()
	bx, by := b.buf(), b.buf()
	xor, and := b.gate(logicsim.XOR), b.gate(logicsim.AND)
	s, c := b.out(), b.out()
	b.wire(x, 0, bx, 0)
	b.wire(y, 0, by, 0)
	b.wire(bx, 0, xor, 0)
	b.wire(by, 0, xor, 1)
	b.wire(bx, 0, and, 0)
	b.wire(by, 0, and, 1)
	b.wire(xor, 0, s, 0)
	b.wire(and, 0, c, 0)
	return b.define("HalfAdder")
}

// FullAdder returns the definition of a full adder built from two nested half
// adders.
//
//	Inputs: a, b, cin
//	Outputs: s, cout
//	Function: s = lsb(a + b + cin)
//	          cout = msb(a + b + cin)
func FullAdder() *logicsim.Definition {
	ha := HalfAdder()
	b := newBuilder(ha)
	x, y, cin := b.in(), b.in(), b.in()
	h0, h1 := b.part(ha.Name), b.part(ha.Name)
	or := b.gate(logicsim.OR)
	s, cout := b.out(), b.out()
	b.wire(x, 0, h0, 0)
	b.wire(y, 0, h0, 1)
	b.wire(h0, 0, h1, 0)
	b.wire(cin, 0, h1, 1)
	b.wire(h0, 1, or, 0)
	b.wire(h1, 1, or, 1)
	b.wire(h1, 0, s, 0)
	b.wire(or, 0, cout, 0)
	return b.define("FullAdder")
}

// SRLatch returns the definition of a NOR based SR latch.
//
//	Inputs: s, r
//	Outputs: q, nq
//	Function: q = 1 if s, 0 if r
//
// Since every simulation pass starts with gate outputs at 0, the latch does
// not hold its state across passes: with s = r = 0 it settles to q = 1.
//
func SRLatch() *logicsim.Definition {
	b := newBuilder()
	s, r := b.in(), b.in()
	n0, n1 := b.gate(logicsim.NOR), b.gate(logicsim.NOR)
	q, nq := b.out(), b.out()
	b.wire(r, 0, n0, 0)
	b.wire(n1, 0, n0, 1)
	b.wire(s, 0, n1, 0)
	b.wire(n0, 0, n1, 1)
	b.wire(n0, 0, q, 0)
	b.wire(n1, 0, nq, 0)
	return b.define("SRLatch")
}

// All returns every definition of the library.
//
func All() []*logicsim.Definition {
	return []*logicsim.Definition{Xnor(), Mux(), DMux(), HalfAdder(), FullAdder(), SRLatch()}
}

// Install registers the library definitions in c. Definitions whose name is
// already taken are skipped. It returns the names of installed definitions.
// On error, none is installed.
//
func Install(c *logicsim.Circuit) ([]string, error) {
	var (
		names []string
		defs  []*logicsim.Definition
	)
	for _, d := range All() {
		if c.Definition(d.Name) != nil {
			continue
		}
		defs = append(defs, d)
		names = append(names, d.Name)
	}
	if err := c.AddDefinitions(defs...); err != nil {
		return nil, err
	}
	return names, nil
}
