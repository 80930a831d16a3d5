/*
Package logicsim models and evaluates digital logic circuits built from gates,
input and output terminals, clock sources, wires, and composite components.

A Circuit holds the circuit graph. Components are added with AddComponent (or
the AddGate, AddInput, AddOutput and Instantiate shorthands) and wired with
AddConnection, which rejects invalid wiring: an output node may drive any
number of input nodes, an input node accepts a single connection.

Simulate propagates values through the graph with a naive fixed-point
algorithm. Gate outputs start at 0 and are recomputed until no value changes,
so that feedback loops such as latches settle; circuits that never settle
(ring oscillators) stop at an iteration cap with best effort values.

A selection of components including at least one input or output terminal can
be packaged into a reusable Definition with DefineComposite. The terminals
become the definition's interface; gates and nested composite instances become
its private parts. Every instance owns an independent clone of those parts:

	c := logicsim.New()
	a, b := c.AddInput(logicsim.Point{}, false), c.AddInput(logicsim.Point{Y: 50}, false)
	and, _ := c.AddGate(logicsim.AND, logicsim.Point{X: 100})
	out := c.AddOutput(logicsim.Point{X: 200})
	c.AddConnection(a.Outputs[0].ID, and.Inputs[0].ID)
	c.AddConnection(b.Outputs[0].ID, and.Inputs[1].ID)
	c.AddConnection(and.Outputs[0].ID, out.Inputs[0].ID)
	c.DefineComposite("MyAnd", a.ID, b.ID, and.ID, out.ID)
	inst, _ := c.Instantiate("MyAnd", logicsim.Point{X: 400})

Definitions can be persisted with MarshalDefinitions and restored with
UnmarshalDefinitions.
*/
package logicsim
