// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package logicsim

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// GateType identifies the boolean function computed by a gate.
//
type GateType uint8

// Supported gate types.
//
const (
	AND GateType = iota + 1
	OR
	XOR
	NAND
	NOR
	NOT
)

type gateFn func(a, b bool) bool

var gates = [...]struct {
	name string
	in   int
	fn   gateFn
}{
	AND:  {"AND", 2, func(a, b bool) bool { return a && b }},
	OR:   {"OR", 2, func(a, b bool) bool { return a || b }},
	XOR:  {"XOR", 2, func(a, b bool) bool { return a != b }},
	NAND: {"NAND", 2, func(a, b bool) bool { return !(a && b) }},
	NOR:  {"NOR", 2, func(a, b bool) bool { return !(a || b) }},
	NOT:  {"NOT", 1, func(a, _ bool) bool { return !a }},
}

// GateTypes returns all supported gate types.
//
func GateTypes() []GateType {
	return []GateType{AND, OR, XOR, NAND, NOR, NOT}
}

// Valid reports whether t is one of the supported gate types.
//
func (t GateType) Valid() bool {
	return t >= AND && t <= NOT
}

// Inputs returns the number of input nodes of a gate of type t.
//
func (t GateType) Inputs() int {
	if !t.Valid() {
		return 0
	}
	return gates[t].in
}

// Eval applies the gate function to a and b. NOT ignores b.
//
func (t GateType) Eval(a, b bool) bool {
	return gates[t].fn(a, b)
}

func (t GateType) String() string {
	if !t.Valid() {
		return "GateType(" + strconv.Itoa(int(t)) + ")"
	}
	return gates[t].name
}

// ParseGateType returns the gate type with the given name (case insensitive).
//
func ParseGateType(s string) (GateType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, t := range GateTypes() {
		if gates[t].name == s {
			return t, nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidGate, "%q", s)
}

// MarshalText implements encoding.TextMarshaler.
//
func (t GateType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, errors.Wrapf(ErrInvalidGate, "%d", uint8(t))
	}
	return []byte(gates[t].name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
//
func (t *GateType) UnmarshalText(b []byte) error {
	v, err := ParseGateType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
