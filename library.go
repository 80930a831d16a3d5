// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package logicsim

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Definition returns the composite definition with the given name, or nil.
//
func (c *Circuit) Definition(name string) *Definition {
	for _, d := range c.defs {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// Definitions returns the composite definitions in the order they were added.
//
func (c *Circuit) Definitions() []*Definition {
	return append([]*Definition(nil), c.defs...)
}

// AddDefinition registers a definition built elsewhere (see Define and
// UnmarshalDefinitions).
//
func (c *Circuit) AddDefinition(d *Definition) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if c.Definition(d.Name) != nil {
		return errors.Wrapf(ErrDuplicateDefinition, "%q", d.Name)
	}
	c.defs = append(c.defs, d)
	return nil
}

// AddDefinitions registers a batch of definitions. Either all of them are
// added or none: the batch must be valid, without duplicate names, and none
// of its names may be defined already.
//
func (c *Circuit) AddDefinitions(defs ...*Definition) error {
	if err := checkDefinitions(defs); err != nil {
		return err
	}
	for _, d := range defs {
		if c.Definition(d.Name) != nil {
			return errors.Wrapf(ErrDuplicateDefinition, "%q", d.Name)
		}
	}
	c.defs = append(c.defs, defs...)
	return nil
}

// LoadDefinitions replaces all definitions with defs. Either all of them are
// loaded or none: on error, the current definitions are left untouched.
// Existing instances keep the definition they were built from.
//
func (c *Circuit) LoadDefinitions(defs []*Definition) error {
	if err := checkDefinitions(defs); err != nil {
		return err
	}
	c.defs = append([]*Definition(nil), defs...)
	return nil
}

// DefineComposite builds a definition from the given components (see Define)
// and registers it under name.
//
func (c *Circuit) DefineComposite(name string, ids ...ComponentID) (*Definition, error) {
	if c.Definition(name) != nil {
		return nil, errors.Wrapf(ErrDuplicateDefinition, "%q", name)
	}
	sel := make([]*Component, 0, len(ids))
	for _, id := range ids {
		cp := c.index[id]
		if cp == nil {
			return nil, errors.Wrapf(ErrUnknownComponent, "%s", id)
		}
		sel = append(sel, cp)
	}
	d, err := Define(name, sel, c.conns)
	if err != nil {
		return nil, err
	}
	// must survive a round trip through MarshalDefinitions.
	if err = d.Validate(); err != nil {
		return nil, errors.Wrapf(ErrInvalidSelection, "define %q: %v", name, err)
	}
	for _, p := range d.Inputs {
		if p.Node == "" {
			c.opts.log.Warn("interface input is not connected to any internal part", "definition", name, "port", p.ID)
		}
	}
	for _, p := range d.Outputs {
		if p.Node == "" {
			c.opts.log.Warn("interface output is not driven by any internal part", "definition", name, "port", p.ID)
		}
	}
	c.defs = append(c.defs, d)
	c.opts.log.Info("composite defined", "name", name, "parts", len(d.Parts), "inputs", len(d.Inputs), "outputs", len(d.Outputs))
	return d, nil
}

// RemoveDefinition removes a definition, all its instances, and their
// connections. It returns the removed instances.
//
func (c *Circuit) RemoveDefinition(name string) ([]*Component, error) {
	i := -1
	for k, d := range c.defs {
		if d.Name == name {
			i = k
			break
		}
	}
	if i < 0 {
		return nil, errors.Wrapf(ErrUnknownDefinition, "%q", name)
	}
	c.defs = append(c.defs[:i], c.defs[i+1:]...)

	var ids []ComponentID
	for _, cp := range c.comps {
		if cp.Kind == KindComposite && cp.Instance.Definition == name {
			ids = append(ids, cp.ID)
		}
	}
	return c.RemoveComponents(ids...), nil
}

func checkDefinitions(defs []*Definition) error {
	names := make(map[string]bool, len(defs))
	for i, d := range defs {
		if d == nil {
			return errors.Wrapf(ErrCorruptDefinitions, "definition #%d is null", i)
		}
		if err := d.Validate(); err != nil {
			return errors.Wrapf(ErrCorruptDefinitions, "definition #%d: %v", i, err)
		}
		if names[d.Name] {
			return errors.Wrapf(ErrCorruptDefinitions, "duplicate definition %q", d.Name)
		}
		names[d.Name] = true
	}
	return nil
}

// MarshalDefinitions encodes an ordered list of definitions as JSON.
//
func MarshalDefinitions(defs []*Definition) ([]byte, error) {
	if defs == nil {
		defs = []*Definition{}
	}
	return json.Marshal(defs)
}

// UnmarshalDefinitions decodes definitions encoded by MarshalDefinitions and
// validates them. Any decoding or validation error is reported as
// ErrCorruptDefinitions and no definition is returned.
//
func UnmarshalDefinitions(data []byte) ([]*Definition, error) {
	var defs []*Definition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, errors.Wrapf(ErrCorruptDefinitions, "%v", err)
	}
	if err := checkDefinitions(defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// MarshalDefinition encodes a single definition as JSON.
//
func MarshalDefinition(d *Definition) ([]byte, error) {
	return json.Marshal(d)
}

// DecodeDefinition decodes and validates a single JSON encoded definition.
//
func DecodeDefinition(data []byte) (*Definition, error) {
	d := new(Definition)
	if err := json.Unmarshal(data, d); err != nil {
		return nil, errors.Wrapf(ErrCorruptDefinitions, "%v", err)
	}
	if err := d.Validate(); err != nil {
		return nil, errors.Wrapf(ErrCorruptDefinitions, "definition %q: %v", d.Name, err)
	}
	return d, nil
}
