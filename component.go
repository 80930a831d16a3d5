// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package logicsim

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Component sizes in world units. Node positions are derived from them.
//
const (
	GateWidth  = 60.0
	GateHeight = 40.0
	IOWidth    = 40.0
	IOHeight   = 40.0
)

// ComponentID identifies a component in a circuit.
//
type ComponentID string

// NodeID identifies a connection point. Node ids are unique circuit wide,
// including the private nodes of composite instances.
//
type NodeID string

// Point is a position in world coordinates.
//
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
//
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p translated by -q.
//
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Role tells whether a node receives (input) or drives (output) a value.
//
type Role uint8

// Node roles.
//
const (
	RoleInput Role = iota
	RoleOutput
)

func (r Role) String() string {
	if r == RoleOutput {
		return "output"
	}
	return "input"
}

// MarshalText implements encoding.TextMarshaler.
//
func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
//
func (r *Role) UnmarshalText(b []byte) error {
	switch string(b) {
	case "input":
		*r = RoleInput
	case "output":
		*r = RoleOutput
	default:
		return errors.Errorf("invalid node role %q", b)
	}
	return nil
}

// A Node is a connection point owned by a component. The owner is not
// stored in the node; it is resolved through the circuit (see Circuit.Owner).
//
type Node struct {
	ID   NodeID `json:"id"`
	Role Role   `json:"role"`
	Pos  Point  `json:"pos"`
}

// Kind is the variant of a component.
//
type Kind uint8

// Component kinds.
//
const (
	KindGate Kind = iota + 1
	KindInput
	KindOutput
	KindClock
	KindComposite
)

var kindNames = [...]string{
	KindGate:      "gate",
	KindInput:     "input",
	KindOutput:    "output",
	KindClock:     "clock",
	KindComposite: "composite",
}

func (k Kind) String() string {
	if k < KindGate || k > KindComposite {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// ParseKind returns the kind with the given name.
//
func ParseKind(s string) (Kind, error) {
	for k := KindGate; k <= KindComposite; k++ {
		if kindNames[k] == s {
			return k, nil
		}
	}
	return 0, errors.Wrapf(ErrWrongKind, "%q", s)
}

// MarshalText implements encoding.TextMarshaler.
//
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
//
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Level is the displayed value of an output terminal: unknown until the
// first simulation pass, then Low or High.
//
type Level int8

// Output terminal levels.
//
const (
	Unknown Level = iota
	Low
	High
)

// LevelOf converts a boolean to a Level.
//
func LevelOf(v bool) Level {
	if v {
		return High
	}
	return Low
}

func (l Level) String() string {
	switch l {
	case Low:
		return "0"
	case High:
		return "1"
	}
	return "?"
}

// MarshalJSON encodes l as 0, 1 or null.
//
func (l Level) MarshalJSON() ([]byte, error) {
	switch l {
	case Low:
		return []byte("0"), nil
	case High:
		return []byte("1"), nil
	}
	return []byte("null"), nil
}

// UnmarshalJSON implements json.Unmarshaler.
//
func (l *Level) UnmarshalJSON(b []byte) error {
	var v *int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch {
	case v == nil:
		*l = Unknown
	case *v == 0:
		*l = Low
	default:
		*l = High
	}
	return nil
}

// A Component is an element of a circuit. Kind selects the variant and which
// of the variant specific fields are meaningful:
//
//	KindGate:      Gate
//	KindInput:     Value (set by the user)
//	KindOutput:    Level (set by the simulation)
//	KindClock:     Value, Period
//	KindComposite: Instance
//
// Input and output nodes are created with the component and never change.
//
type Component struct {
	ID       ComponentID   `json:"id"`
	Kind     Kind          `json:"kind"`
	Gate     GateType      `json:"gate,omitempty"`
	Pos      Point         `json:"pos"`
	Width    float64       `json:"width"`
	Height   float64       `json:"height"`
	Inputs   []Node        `json:"inputs"`
	Outputs  []Node        `json:"outputs"`
	Value    bool          `json:"value"`
	Level    Level         `json:"level"`
	Period   time.Duration `json:"period,omitempty"`
	Instance *Instance     `json:"instance,omitempty"`
}

// Spec describes a component to add to a circuit.
//
type Spec struct {
	Kind       Kind
	Gate       GateType      // KindGate
	Pos        Point         // top left corner
	Value      bool          // initial value of KindInput and KindClock
	Period     time.Duration // KindClock
	Definition string        // KindComposite
}

func nodeID(c ComponentID, r Role, i int) NodeID {
	if r == RoleOutput {
		return NodeID(string(c) + "_out" + strconv.Itoa(i))
	}
	return NodeID(string(c) + "_in" + strconv.Itoa(i))
}

func makeNodes(c ComponentID, r Role, n int) []Node {
	if n == 0 {
		return nil
	}
	nodes := make([]Node, n)
	for i := range nodes {
		nodes[i] = Node{ID: nodeID(c, r, i), Role: r}
	}
	return nodes
}

// newGate builds a gate component. The caller is responsible for validating t.
//
func newGate(id ComponentID, t GateType, pos Point) *Component {
	c := &Component{
		ID:      id,
		Kind:    KindGate,
		Gate:    t,
		Pos:     pos,
		Width:   GateWidth,
		Height:  GateHeight,
		Inputs:  makeNodes(id, RoleInput, t.Inputs()),
		Outputs: makeNodes(id, RoleOutput, 1),
	}
	c.layout()
	return c
}

func newTerminal(id ComponentID, k Kind, pos Point) *Component {
	c := &Component{ID: id, Kind: k, Pos: pos, Width: IOWidth, Height: IOHeight}
	if k == KindOutput {
		c.Inputs = makeNodes(id, RoleInput, 1)
	} else {
		c.Outputs = makeNodes(id, RoleOutput, 1)
	}
	c.layout()
	return c
}

// layout recomputes node positions from the component position.
//
func (c *Component) layout() {
	cy := c.Pos.Y + c.Height/2
	right := c.Pos.X + c.Width
	switch c.Kind {
	case KindInput, KindClock:
		c.Outputs[0].Pos = Point{right, cy}
	case KindOutput:
		c.Inputs[0].Pos = Point{c.Pos.X, cy}
	case KindGate:
		if len(c.Inputs) == 1 {
			c.Inputs[0].Pos = Point{c.Pos.X, cy}
		} else {
			c.Inputs[0].Pos = Point{c.Pos.X, c.Pos.Y + c.Height*0.25}
			c.Inputs[1].Pos = Point{c.Pos.X, c.Pos.Y + c.Height*0.75}
		}
		c.Outputs[0].Pos = Point{right, cy}
	case KindComposite:
		d := c.Instance.def
		for i := range c.Inputs {
			c.Inputs[i].Pos = c.Pos.Add(d.Inputs[i].Pos)
		}
		for i := range c.Outputs {
			c.Outputs[i].Pos = c.Pos.Add(d.Outputs[i].Pos)
		}
	}
}

// moveTo moves c and, for composite instances, their private parts.
//
func (c *Component) moveTo(pos Point) {
	delta := pos.Sub(c.Pos)
	c.Pos = pos
	c.layout()
	if c.Instance != nil {
		for _, p := range c.Instance.parts {
			p.moveTo(p.Pos.Add(delta))
		}
	}
}

// node returns the node with the given id, or nil.
//
func (c *Component) node(id NodeID) *Node {
	for i := range c.Inputs {
		if c.Inputs[i].ID == id {
			return &c.Inputs[i]
		}
	}
	for i := range c.Outputs {
		if c.Outputs[i].ID == id {
			return &c.Outputs[i]
		}
	}
	return nil
}

// nodeIDs appends the ids of all nodes of c to ids.
//
func (c *Component) nodeIDs(ids []NodeID) []NodeID {
	for _, n := range c.Inputs {
		ids = append(ids, n.ID)
	}
	for _, n := range c.Outputs {
		ids = append(ids, n.ID)
	}
	return ids
}

// A Connection is a wire from an output node to an input node.
//
type Connection struct {
	ID     string `json:"id"`
	Source NodeID `json:"source"`
	Target NodeID `json:"target"`
}

func newConnection(src, dst NodeID) Connection {
	return Connection{ID: "conn_" + string(src) + "_" + string(dst), Source: src, Target: dst}
}
