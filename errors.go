// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package logicsim

import "github.com/pkg/errors"

// Errors returned by circuit operations. They are always wrapped with some
// context; use errors.Is to test for them.
//
var (
	ErrInvalidWiring       = errors.New("invalid wiring")
	ErrUnknownComponent    = errors.New("unknown component")
	ErrUnknownNode         = errors.New("unknown node")
	ErrUnknownDefinition   = errors.New("unknown composite definition")
	ErrWrongKind           = errors.New("wrong component kind")
	ErrInvalidGate         = errors.New("invalid gate type")
	ErrInvalidPeriod       = errors.New("clock period must be positive")
	ErrEmptyName           = errors.New("empty composite name")
	ErrDuplicateDefinition = errors.New("composite definition already exists")
	ErrEmptyInterface      = errors.New("selection has no input or output terminal")
	ErrInvalidSelection    = errors.New("invalid selection")
	ErrClockInComposite    = errors.New("clock sources cannot be packaged into a composite")
	ErrCorruptDefinitions  = errors.New("corrupted composite definitions")
)

func wiringError(src, dst NodeID, reason string) error {
	return errors.Wrapf(ErrInvalidWiring, "%s -> %s: %s", src, dst, reason)
}
