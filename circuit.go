// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package logicsim

import (
	"log/slog"
	"strconv"

	"github.com/pkg/errors"
)

// Default iteration caps of the simulation engine.
//
const (
	DefaultMaxRounds      = 100
	DefaultMaxInnerRounds = 50
)

type options struct {
	log            *slog.Logger
	maxRounds      int
	maxInnerRounds int
}

// An Option configures a Circuit.
//
type Option func(*options)

// WithLogger sets the logger used for simulation warnings and tracing.
// The default logger discards everything.
//
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMaxRounds sets the maximum number of rounds of the outer fixed-point
// loop. Values < 1 are ignored.
//
func WithMaxRounds(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRounds = n
		}
	}
}

// WithMaxInnerRounds sets the maximum number of rounds of the loop evaluating
// the internals of a composite instance. Values < 1 are ignored.
//
func WithMaxInnerRounds(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxInnerRounds = n
		}
	}
}

// Circuit is a circuit graph: components, the connections between their
// nodes, and the composite definitions available for instantiation.
//
// A Circuit is not safe for concurrent use. Hosts driving it from several
// goroutines (clock tickers, network handlers) must serialize all calls.
//
type Circuit struct {
	comps  []*Component
	index  map[ComponentID]*Component
	owner  map[NodeID]ComponentID
	conns  []Connection
	driver map[NodeID]NodeID // target -> source
	defs   []*Definition
	values map[NodeID]bool // value table of the last simulation pass
	seq    int

	opts options
}

// New returns a new empty circuit.
//
func New(opts ...Option) *Circuit {
	c := &Circuit{
		opts: options{
			log:            slog.New(slog.DiscardHandler),
			maxRounds:      DefaultMaxRounds,
			maxInnerRounds: DefaultMaxInnerRounds,
		},
	}
	for _, o := range opts {
		o(&c.opts)
	}
	c.Reset()
	return c
}

// Reset removes all components, connections and definitions. Component ids
// are never reused: the id sequence keeps running.
//
func (c *Circuit) Reset() {
	c.comps = nil
	c.index = make(map[ComponentID]*Component)
	c.owner = make(map[NodeID]ComponentID)
	c.conns = nil
	c.driver = make(map[NodeID]NodeID)
	c.defs = nil
	c.values = make(map[NodeID]bool)
}

func (c *Circuit) nextID(prefix string) ComponentID {
	id := ComponentID(prefix + "_" + strconv.Itoa(c.seq))
	c.seq++
	return id
}

// AddComponent creates a new component as described by s and adds it to the
// circuit.
//
func (c *Circuit) AddComponent(s Spec) (*Component, error) {
	var cp *Component
	switch s.Kind {
	case KindGate:
		if !s.Gate.Valid() {
			return nil, errors.Wrapf(ErrInvalidGate, "%d", uint8(s.Gate))
		}
		cp = newGate(c.nextID("gate"), s.Gate, s.Pos)
	case KindInput:
		cp = newTerminal(c.nextID("input"), KindInput, s.Pos)
		cp.Value = s.Value
	case KindOutput:
		cp = newTerminal(c.nextID("output"), KindOutput, s.Pos)
	case KindClock:
		if s.Period <= 0 {
			return nil, errors.Wrapf(ErrInvalidPeriod, "%v", s.Period)
		}
		cp = newTerminal(c.nextID("clock"), KindClock, s.Pos)
		cp.Value = s.Value
		cp.Period = s.Period
	case KindComposite:
		d := c.Definition(s.Definition)
		if d == nil {
			return nil, errors.Wrapf(ErrUnknownDefinition, "%q", s.Definition)
		}
		cp = newInstance(d, c.nextID("custom_"+d.Name), s.Pos, c.opts.log)
	default:
		return nil, errors.Wrapf(ErrWrongKind, "%s", s.Kind)
	}
	c.comps = append(c.comps, cp)
	c.index[cp.ID] = cp
	for _, n := range cp.nodeIDs(nil) {
		c.owner[n] = cp.ID
	}
	c.opts.log.Debug("component added", "id", cp.ID, "kind", cp.Kind)
	return cp, nil
}

// AddGate adds a gate of type t at pos.
//
func (c *Circuit) AddGate(t GateType, pos Point) (*Component, error) {
	return c.AddComponent(Spec{Kind: KindGate, Gate: t, Pos: pos})
}

// AddInput adds an input terminal with initial value v.
//
func (c *Circuit) AddInput(pos Point, v bool) *Component {
	cp, _ := c.AddComponent(Spec{Kind: KindInput, Pos: pos, Value: v})
	return cp
}

// AddOutput adds an output terminal.
//
func (c *Circuit) AddOutput(pos Point) *Component {
	cp, _ := c.AddComponent(Spec{Kind: KindOutput, Pos: pos})
	return cp
}

// Instantiate adds an instance of the named composite definition at pos.
//
func (c *Circuit) Instantiate(name string, pos Point) (*Component, error) {
	return c.AddComponent(Spec{Kind: KindComposite, Definition: name, Pos: pos})
}

// Component returns the component with the given id, or nil.
//
func (c *Circuit) Component(id ComponentID) *Component {
	return c.index[id]
}

// Components returns the components of the circuit in insertion order.
// The returned slice must not be modified.
//
func (c *Circuit) Components() []*Component {
	return c.comps
}

// Connections returns a copy of the connection list.
//
func (c *Circuit) Connections() []Connection {
	return append([]Connection(nil), c.conns...)
}

// Owner returns the id of the component owning node n. Private nodes of
// composite instances have no owner in the circuit.
//
func (c *Circuit) Owner(n NodeID) (ComponentID, bool) {
	id, ok := c.owner[n]
	return id, ok
}

// Driver returns the output node connected to the input node n.
//
func (c *Circuit) Driver(n NodeID) (NodeID, bool) {
	src, ok := c.driver[n]
	return src, ok
}

func (c *Circuit) lookup(n NodeID) (*Component, *Node) {
	id, ok := c.owner[n]
	if !ok {
		return nil, nil
	}
	cp := c.index[id]
	if cp == nil {
		return nil, nil
	}
	return cp, cp.node(n)
}

// AddConnection connects the output node src to the input node dst. It fails
// with an error wrapping ErrInvalidWiring, leaving the circuit unchanged, if
// src is not an output node, dst is not an input node, both belong to the
// same component, or dst is already connected.
//
func (c *Circuit) AddConnection(src, dst NodeID) (Connection, error) {
	sc, sn := c.lookup(src)
	if sn == nil {
		return Connection{}, wiringError(src, dst, "unknown source node")
	}
	dc, dn := c.lookup(dst)
	if dn == nil {
		return Connection{}, wiringError(src, dst, "unknown target node")
	}
	switch {
	case sn.Role != RoleOutput:
		return Connection{}, wiringError(src, dst, "source is not an output node")
	case dn.Role != RoleInput:
		return Connection{}, wiringError(src, dst, "target is not an input node")
	case sc == dc:
		return Connection{}, wiringError(src, dst, "source and target belong to the same component")
	}
	if _, ok := c.driver[dst]; ok {
		return Connection{}, wiringError(src, dst, "target input is already connected")
	}
	cn := newConnection(src, dst)
	c.conns = append(c.conns, cn)
	c.driver[dst] = src
	c.opts.log.Debug("connection added", "id", cn.ID)
	return cn, nil
}

// RemoveConnectionsTouching removes every connection with an endpoint in
// nodes. It returns the number of removed connections.
//
func (c *Circuit) RemoveConnectionsTouching(nodes ...NodeID) int {
	if len(nodes) == 0 {
		return 0
	}
	set := make(map[NodeID]bool, len(nodes))
	for _, n := range nodes {
		set[n] = true
	}
	kept := c.conns[:0]
	removed := 0
	for _, cn := range c.conns {
		if set[cn.Source] || set[cn.Target] {
			delete(c.driver, cn.Target)
			removed++
			continue
		}
		kept = append(kept, cn)
	}
	// clear the tail so that dropped connections can be collected.
	for i := len(kept); i < len(c.conns); i++ {
		c.conns[i] = Connection{}
	}
	c.conns = kept
	return removed
}

// RemoveComponents removes the given components and every connection
// touching any of their nodes. Connections are dropped first so that the
// graph never holds a dangling connection. Unknown ids are ignored. The
// removed components are returned in circuit order.
//
func (c *Circuit) RemoveComponents(ids ...ComponentID) []*Component {
	set := make(map[ComponentID]bool, len(ids))
	var nodes []NodeID
	for _, id := range ids {
		if cp := c.index[id]; cp != nil && !set[id] {
			set[id] = true
			nodes = cp.nodeIDs(nodes)
		}
	}
	if len(set) == 0 {
		return nil
	}
	c.RemoveConnectionsTouching(nodes...)

	var removed []*Component
	kept := make([]*Component, 0, len(c.comps)-len(set))
	for _, cp := range c.comps {
		if set[cp.ID] {
			removed = append(removed, cp)
			continue
		}
		kept = append(kept, cp)
	}
	c.comps = kept
	for _, cp := range removed {
		delete(c.index, cp.ID)
	}
	for _, n := range nodes {
		delete(c.owner, n)
		delete(c.values, n)
	}
	c.opts.log.Debug("components removed", "count", len(removed))
	return removed
}

// Move moves a component to pos, updating its node positions.
//
func (c *Circuit) Move(id ComponentID, pos Point) error {
	cp := c.index[id]
	if cp == nil {
		return errors.Wrapf(ErrUnknownComponent, "%s", id)
	}
	cp.moveTo(pos)
	return nil
}

func (c *Circuit) component(id ComponentID, k Kind) (*Component, error) {
	cp := c.index[id]
	if cp == nil {
		return nil, errors.Wrapf(ErrUnknownComponent, "%s", id)
	}
	if cp.Kind != k {
		return nil, errors.Wrapf(ErrWrongKind, "%s is a %s, not a %s", id, cp.Kind, k)
	}
	return cp, nil
}

// ToggleInput flips the value of an input terminal. The circuit must be
// simulated again for the change to propagate.
//
func (c *Circuit) ToggleInput(id ComponentID) error {
	cp, err := c.component(id, KindInput)
	if err != nil {
		return err
	}
	cp.Value = !cp.Value
	return nil
}

// SetInput sets the value of an input terminal.
//
func (c *Circuit) SetInput(id ComponentID, v bool) error {
	cp, err := c.component(id, KindInput)
	if err != nil {
		return err
	}
	cp.Value = v
	return nil
}

// TickClock flips the value of a clock source. The circuit must be simulated
// again for the change to propagate.
//
func (c *Circuit) TickClock(id ComponentID) error {
	cp, err := c.component(id, KindClock)
	if err != nil {
		return err
	}
	cp.Value = !cp.Value
	return nil
}

// Value returns the value of output node n after the last simulation pass.
//
func (c *Circuit) Value(n NodeID) (v bool, ok bool) {
	v, ok = c.values[n]
	return v, ok
}

// Values returns a copy of the value table of the last simulation pass, keyed
// by output node id.
//
func (c *Circuit) Values() map[NodeID]bool {
	m := make(map[NodeID]bool, len(c.values))
	for k, v := range c.values {
		m[k] = v
	}
	return m
}
