// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package logicsim

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// A Definition is a reusable sub-circuit: the blueprint of composite
// instances. Definitions are immutable once built and are shared by all their
// instances (and by the definitions that nest them).
//
// Node ids in Parts, Connections and ports are the ids the nodes had in the
// circuit the definition was built from. They are only meaningful within the
// definition; instances get fresh ids.
//
type Definition struct {
	Name        string       `json:"name"`
	Width       float64      `json:"width"`
	Height      float64      `json:"height"`
	Parts       []PartDef    `json:"parts"`
	Connections []Connection `json:"connections"`
	Inputs      []Port       `json:"inputs"`
	Outputs     []Port       `json:"outputs"`
}

// A PartDef is an internal part of a definition: a gate or a nested
// composite. Positions are relative to the definition origin.
//
type PartDef struct {
	ID         ComponentID `json:"id"`
	Kind       Kind        `json:"kind"`
	Gate       GateType    `json:"gate,omitempty"`
	Pos        Point       `json:"pos"`
	Inputs     []Node      `json:"inputs"`
	Outputs    []Node      `json:"outputs"`
	Definition *Definition `json:"definition,omitempty"`
}

// A Port is an external input or output of a definition. Node is the internal
// node that receives (inputs) or sources (outputs) the external value, empty
// if the interface terminal was not wired to any internal part.
//
type Port struct {
	ID   string `json:"id"`
	Node NodeID `json:"node,omitempty"`
	Pos  Point  `json:"pos"`
}

// Define builds a composite definition from a selection of components and the
// connections of the circuit they belong to.
//
// Input terminals of the selection become the definition's external inputs,
// output terminals its external outputs, in selection order. Gates and
// composite instances become internal parts. Connections between internal
// parts are kept; a connection from an input terminal to an internal part
// (resp. from an internal part to an output terminal) sets the internal target
// (resp. source) of the matching port. Any other connection is ignored.
//
// Define fails if name is blank, if a component is selected more than once,
// if the selection contains a clock source, or if it has no input or output
// terminal.
//
func Define(name string, sel []*Component, conns []Connection) (*Definition, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}

	var ins, outs, parts []*Component
	seen := make(map[ComponentID]bool, len(sel))
	for _, c := range sel {
		if seen[c.ID] {
			return nil, errors.Wrapf(ErrInvalidSelection, "%s selected twice", c.ID)
		}
		seen[c.ID] = true
		switch c.Kind {
		case KindInput:
			ins = append(ins, c)
		case KindOutput:
			outs = append(outs, c)
		case KindClock:
			return nil, errors.Wrapf(ErrClockInComposite, "%s", c.ID)
		default:
			parts = append(parts, c)
		}
	}
	if len(ins) == 0 && len(outs) == 0 {
		return nil, errors.Wrapf(ErrEmptyInterface, "define %q", name)
	}

	// origin of the selection bounding box.
	org := Point{math.Inf(1), math.Inf(1)}
	for _, c := range sel {
		org.X = math.Min(org.X, c.Pos.X)
		org.Y = math.Min(org.Y, c.Pos.Y)
	}

	// node owner and role within the selection.
	owner := make(map[NodeID]*Component)
	for _, c := range sel {
		for _, n := range c.nodeIDs(nil) {
			owner[n] = c
		}
	}
	internal := func(n NodeID) bool {
		c := owner[n]
		return c != nil && c.Kind != KindInput && c.Kind != KindOutput
	}

	d := &Definition{
		Name:   name,
		Width:  GateWidth,
		Height: GateHeight,
	}

	for _, c := range parts {
		p := PartDef{
			ID:      c.ID,
			Kind:    c.Kind,
			Gate:    c.Gate,
			Pos:     c.Pos.Sub(org),
			Inputs:  relNodes(c.Inputs, org),
			Outputs: relNodes(c.Outputs, org),
		}
		if c.Kind == KindComposite {
			p.Definition = c.Instance.def
		}
		d.Parts = append(d.Parts, p)
	}

	for _, cn := range conns {
		if internal(cn.Source) && internal(cn.Target) {
			d.Connections = append(d.Connections, Connection{ID: cn.ID, Source: cn.Source, Target: cn.Target})
		}
	}

	for i, c := range ins {
		p := Port{
			ID:  name + "_ext_in" + strconv.Itoa(i),
			Pos: Point{0, GateHeight * float64(i+1) / float64(len(ins)+1)},
		}
		src := c.Outputs[0].ID
		for _, cn := range conns {
			if cn.Source == src && internal(cn.Target) {
				p.Node = cn.Target
				break
			}
		}
		d.Inputs = append(d.Inputs, p)
	}
	for i, c := range outs {
		p := Port{
			ID:  name + "_ext_out" + strconv.Itoa(i),
			Pos: Point{GateWidth, GateHeight * float64(i+1) / float64(len(outs)+1)},
		}
		dst := c.Inputs[0].ID
		for _, cn := range conns {
			if cn.Target == dst && internal(cn.Source) {
				p.Node = cn.Source
				break
			}
		}
		d.Outputs = append(d.Outputs, p)
	}
	return d, nil
}

func relNodes(nodes []Node, org Point) []Node {
	if len(nodes) == 0 {
		return nil
	}
	r := make([]Node, len(nodes))
	for i, n := range nodes {
		r[i] = Node{ID: n.ID, Role: n.Role, Pos: n.Pos.Sub(org)}
	}
	return r
}

// Validate checks the internal consistency of a definition, typically after
// decoding it: part shapes, unique node ids, connection and port endpoints.
// Nested definitions are validated recursively.
//
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyName
	}
	if len(d.Inputs) == 0 && len(d.Outputs) == 0 {
		return errors.Wrapf(ErrEmptyInterface, "definition %q", d.Name)
	}
	roles := make(map[NodeID]Role)
	add := func(nodes []Node, r Role) error {
		for _, n := range nodes {
			if n.Role != r {
				return errors.Errorf("node %s: expected %s role", n.ID, r)
			}
			if _, ok := roles[n.ID]; ok || n.ID == "" {
				return errors.Errorf("duplicate or empty node id %q", n.ID)
			}
			roles[n.ID] = r
		}
		return nil
	}
	for _, p := range d.Parts {
		var nIn, nOut int
		switch p.Kind {
		case KindGate:
			if !p.Gate.Valid() {
				return errors.Wrapf(ErrInvalidGate, "part %s", p.ID)
			}
			nIn, nOut = p.Gate.Inputs(), 1
		case KindComposite:
			if p.Definition == nil {
				return errors.Errorf("part %s: missing nested definition", p.ID)
			}
			if err := p.Definition.Validate(); err != nil {
				return errors.Wrapf(err, "part %s", p.ID)
			}
			nIn, nOut = len(p.Definition.Inputs), len(p.Definition.Outputs)
		default:
			return errors.Wrapf(ErrWrongKind, "part %s: %s", p.ID, p.Kind)
		}
		if len(p.Inputs) != nIn || len(p.Outputs) != nOut {
			return errors.Errorf("part %s: expected %d inputs and %d outputs", p.ID, nIn, nOut)
		}
		if err := add(p.Inputs, RoleInput); err != nil {
			return errors.Wrapf(err, "part %s", p.ID)
		}
		if err := add(p.Outputs, RoleOutput); err != nil {
			return errors.Wrapf(err, "part %s", p.ID)
		}
	}
	driven := make(map[NodeID]bool)
	for _, cn := range d.Connections {
		if r, ok := roles[cn.Source]; !ok || r != RoleOutput {
			return errors.Errorf("connection %s: invalid source %s", cn.ID, cn.Source)
		}
		if r, ok := roles[cn.Target]; !ok || r != RoleInput || driven[cn.Target] {
			return errors.Errorf("connection %s: invalid target %s", cn.ID, cn.Target)
		}
		driven[cn.Target] = true
	}
	for _, p := range d.Inputs {
		if p.Node == "" {
			continue
		}
		if r, ok := roles[p.Node]; !ok || r != RoleInput || driven[p.Node] {
			return errors.Errorf("input %s: invalid internal target %s", p.ID, p.Node)
		}
		driven[p.Node] = true
	}
	for _, p := range d.Outputs {
		if p.Node == "" {
			continue
		}
		if r, ok := roles[p.Node]; !ok || r != RoleOutput {
			return errors.Errorf("output %s: invalid internal source %s", p.ID, p.Node)
		}
	}
	return nil
}

// An Instance is the private state of a composite instance component: a
// clone of its definition's parts and connections, re-identified from the
// instance id, and the maps tying the instance's external nodes to the clone.
//
type Instance struct {
	Definition string `json:"definition"`
	// OutputValues holds the value of each external output after the last
	// simulation pass.
	OutputValues []bool `json:"outputValues"`

	def    *Definition
	parts  []*Component
	conns  []Connection
	driver map[NodeID]NodeID // internal target -> internal source
	clones map[NodeID]NodeID // definition node id -> cloned node id

	inputTargets  map[NodeID]NodeID // external input -> internal target
	outputSources map[NodeID]NodeID // internal source -> external output
	sources       []NodeID          // internal source of each external output, "" if none
}

// Def returns the definition of the instance.
//
func (i *Instance) Def() *Definition { return i.def }

// Parts returns the cloned internal parts.
//
func (i *Instance) Parts() []*Component { return i.parts }

// Connections returns the cloned internal connections.
//
func (i *Instance) Connections() []Connection { return i.conns }

// CloneOf returns the id of the clone of the definition node n.
//
func (i *Instance) CloneOf(n NodeID) (NodeID, bool) {
	id, ok := i.clones[n]
	return id, ok
}

// InputTarget returns the internal node driven by the external input ext.
//
func (i *Instance) InputTarget(ext NodeID) (NodeID, bool) {
	id, ok := i.inputTargets[ext]
	return id, ok
}

// OutputFor returns the external output sourced by the internal node n.
//
func (i *Instance) OutputFor(n NodeID) (NodeID, bool) {
	id, ok := i.outputSources[n]
	return id, ok
}

// newInstance clones def into a new composite component. Part ids are derived
// from id, so that they are unique circuit wide as long as id is.
//
func newInstance(def *Definition, id ComponentID, pos Point, log *slog.Logger) *Component {
	inst := &Instance{
		Definition:    def.Name,
		OutputValues:  make([]bool, len(def.Outputs)),
		def:           def,
		driver:        make(map[NodeID]NodeID),
		clones:        make(map[NodeID]NodeID),
		inputTargets:  make(map[NodeID]NodeID),
		outputSources: make(map[NodeID]NodeID),
		sources:       make([]NodeID, len(def.Outputs)),
	}
	c := &Component{
		ID:       id,
		Kind:     KindComposite,
		Pos:      pos,
		Width:    def.Width,
		Height:   def.Height,
		Inputs:   makeNodes(id, RoleInput, len(def.Inputs)),
		Outputs:  makeNodes(id, RoleOutput, len(def.Outputs)),
		Instance: inst,
	}
	c.layout()

	for _, p := range def.Parts {
		pid := ComponentID(string(id) + "_internal_" + string(p.ID))
		var clone *Component
		if p.Kind == KindComposite {
			clone = newInstance(p.Definition, pid, pos.Add(p.Pos), log)
		} else {
			clone = newGate(pid, p.Gate, pos.Add(p.Pos))
		}
		for k, n := range p.Inputs {
			inst.clones[n.ID] = clone.Inputs[k].ID
		}
		for k, n := range p.Outputs {
			inst.clones[n.ID] = clone.Outputs[k].ID
		}
		inst.parts = append(inst.parts, clone)
	}

	for _, cn := range def.Connections {
		src, ok1 := inst.clones[cn.Source]
		dst, ok2 := inst.clones[cn.Target]
		if !ok1 || !ok2 {
			log.Warn("cannot clone internal connection", "instance", id, "source", cn.Source, "target", cn.Target)
			continue
		}
		inst.driver[dst] = src
		inst.conns = append(inst.conns, newConnection(src, dst))
	}

	for k, p := range def.Inputs {
		ext := c.Inputs[k].ID
		if dst, ok := inst.clones[p.Node]; ok {
			inst.inputTargets[ext] = dst
		} else {
			log.Warn("external input drives no internal node", "instance", id, "input", ext, "definition", def.Name)
		}
	}
	for k, p := range def.Outputs {
		ext := c.Outputs[k].ID
		if src, ok := inst.clones[p.Node]; ok {
			inst.outputSources[src] = ext
			inst.sources[k] = src
		} else {
			log.Warn("external output has no internal source", "instance", id, "output", ext, "definition", def.Name)
		}
	}
	return c
}
