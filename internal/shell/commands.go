// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package shell

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/db47h/logicsim"
	"github.com/pkg/errors"
)

type command struct {
	usage    string
	help     string
	min, max int // argument count; max < 0 means no limit
	fn       func(sh *Shell, args []string) error
}

var commands map[string]*command

func init() {
	commands = map[string]*command{
		"gate":     {"gate <AND|OR|XOR|NAND|NOR|NOT> [x y]", "Adds a gate.", 1, 3, (*Shell).gate},
		"input":    {"input [0|1] [x y]", "Adds an input terminal.", 0, 3, (*Shell).input},
		"output":   {"output [x y]", "Adds an output terminal.", 0, 2, (*Shell).output},
		"clock":    {"clock <period> [x y]", "Adds a clock source ticking every period (e.g. 500ms).", 1, 3, (*Shell).clock},
		"wire":     {"wire <output node> <input node>", "Connects two nodes.", 2, 2, (*Shell).wire},
		"unwire":   {"unwire <node>...", "Removes every connection touching the given nodes.", 1, -1, (*Shell).unwire},
		"rm":       {"rm <id>...", "Removes components and their connections.", 1, -1, (*Shell).rm},
		"dup":      {"dup <x> <y> <id>...", "Duplicates gates and terminals at x, y.", 3, -1, (*Shell).dup},
		"move":     {"move <id> <x> <y>", "Moves a component.", 3, 3, (*Shell).move},
		"toggle":   {"toggle <id>", "Flips an input terminal.", 1, 1, (*Shell).toggle},
		"tick":     {"tick <id>", "Flips a clock source.", 1, 1, (*Shell).tick},
		"sim":      {"sim", "Runs a simulation pass and prints its report.", 0, 0, (*Shell).sim},
		"show":     {"show [id]", "Lists components and connections, or details one component.", 0, 1, (*Shell).show},
		"define":   {"define <name> <id>...", "Packages components into a composite definition.", 2, -1, (*Shell).define},
		"place":    {"place <name> [x y]", "Adds an instance of a composite definition.", 1, 3, (*Shell).place},
		"undefine": {"undefine <name>", "Removes a definition and all its instances.", 1, 1, (*Shell).undefine},
		"defs":     {"defs", "Lists composite definitions.", 0, 0, (*Shell).defs},
		"lib":      {"lib", "Adds the standard library definitions.", 0, 0, (*Shell).lib},
		"reset":    {"reset", "Clears the circuit and all definitions.", 0, 0, (*Shell).reset},
		"help":     {"help [command]", "Shows help.", 0, 1, (*Shell).help},
		"quit":     {"quit", "Leaves the shell.", 0, 0, func(*Shell, []string) error { return ErrQuit }},
	}
	commands["exit"] = commands["quit"]
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parsePos(args []string) (logicsim.Point, error) {
	switch len(args) {
	case 0:
		return logicsim.Point{}, nil
	case 2:
		x, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return logicsim.Point{}, errors.Wrap(err, "x")
		}
		y, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return logicsim.Point{}, errors.Wrap(err, "y")
		}
		return logicsim.Point{X: x, Y: y}, nil
	}
	return logicsim.Point{}, errors.New("position needs both x and y")
}

func parseBit(s string) (bool, error) {
	switch s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, errors.Errorf("invalid value %q, expected 0 or 1", s)
}

func ids(args []string) []logicsim.ComponentID {
	r := make([]logicsim.ComponentID, len(args))
	for i, a := range args {
		r[i] = logicsim.ComponentID(a)
	}
	return r
}

func (sh *Shell) add(spec logicsim.Spec) error {
	id, err := sh.s.AddComponent(spec)
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.out, id)
	return nil
}

func (sh *Shell) gate(args []string) error {
	t, err := logicsim.ParseGateType(args[0])
	if err != nil {
		return err
	}
	pos, err := parsePos(args[1:])
	if err != nil {
		return err
	}
	return sh.add(logicsim.Spec{Kind: logicsim.KindGate, Gate: t, Pos: pos})
}

func (sh *Shell) input(args []string) error {
	var v bool
	if len(args)%2 == 1 {
		var err error
		if v, err = parseBit(args[0]); err != nil {
			return err
		}
		args = args[1:]
	}
	pos, err := parsePos(args)
	if err != nil {
		return err
	}
	return sh.add(logicsim.Spec{Kind: logicsim.KindInput, Value: v, Pos: pos})
}

func (sh *Shell) output(args []string) error {
	pos, err := parsePos(args)
	if err != nil {
		return err
	}
	return sh.add(logicsim.Spec{Kind: logicsim.KindOutput, Pos: pos})
}

func (sh *Shell) clock(args []string) error {
	d, err := time.ParseDuration(args[0])
	if err != nil {
		return err
	}
	pos, err := parsePos(args[1:])
	if err != nil {
		return err
	}
	return sh.add(logicsim.Spec{Kind: logicsim.KindClock, Period: d, Pos: pos})
}

func (sh *Shell) wire(args []string) error {
	cn, err := sh.s.Connect(logicsim.NodeID(args[0]), logicsim.NodeID(args[1]))
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.out, cn.ID)
	return nil
}

func (sh *Shell) unwire(args []string) error {
	nodes := make([]logicsim.NodeID, len(args))
	for i, a := range args {
		nodes[i] = logicsim.NodeID(a)
	}
	fmt.Fprintf(sh.out, "%d connection(s) removed\n", sh.s.Disconnect(nodes...))
	return nil
}

func (sh *Shell) rm(args []string) error {
	fmt.Fprintf(sh.out, "%d component(s) removed\n", sh.s.Remove(ids(args)...))
	return nil
}

func (sh *Shell) dup(args []string) error {
	pos, err := parsePos(args[:2])
	if err != nil {
		return err
	}
	dup, err := sh.s.Duplicate(pos, ids(args[2:])...)
	for _, id := range dup {
		fmt.Fprintln(sh.out, id)
	}
	return err
}

func (sh *Shell) move(args []string) error {
	pos, err := parsePos(args[1:])
	if err != nil {
		return err
	}
	return sh.s.Move(logicsim.ComponentID(args[0]), pos)
}

func (sh *Shell) toggle(args []string) error {
	return sh.s.Toggle(logicsim.ComponentID(args[0]))
}

func (sh *Shell) tick(args []string) error {
	return sh.s.Tick(logicsim.ComponentID(args[0]))
}

func (sh *Shell) sim(_ []string) error {
	r := sh.s.Simulate()
	fmt.Fprintf(sh.out, "rounds: %d, stable: %v\n", r.Rounds, r.Stable)
	for _, id := range r.Unstable {
		fmt.Fprintf(sh.out, "unstable: %s\n", id)
	}
	return nil
}

func bit(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func describe(cp *logicsim.Component) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", cp.ID, cp.Kind)
	switch cp.Kind {
	case logicsim.KindGate:
		fmt.Fprintf(&b, " %s", cp.Gate)
	case logicsim.KindInput:
		fmt.Fprintf(&b, " = %s", bit(cp.Value))
	case logicsim.KindOutput:
		fmt.Fprintf(&b, " = %s", cp.Level)
	case logicsim.KindClock:
		fmt.Fprintf(&b, " %v = %s", cp.Period, bit(cp.Value))
	case logicsim.KindComposite:
		fmt.Fprintf(&b, " %s [", cp.Instance.Definition)
		for i, v := range cp.Instance.OutputValues {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(bit(v))
		}
		b.WriteByte(']')
	}
	fmt.Fprintf(&b, " @ %g,%g", cp.Pos.X, cp.Pos.Y)
	return b.String()
}

func (sh *Shell) show(args []string) error {
	var err error
	sh.s.View(func(c *logicsim.Circuit, _ logicsim.Report) {
		if len(args) == 1 {
			cp := c.Component(logicsim.ComponentID(args[0]))
			if cp == nil {
				err = errors.Wrapf(logicsim.ErrUnknownComponent, "%s", args[0])
				return
			}
			fmt.Fprintln(sh.out, describe(cp))
			for _, n := range cp.Inputs {
				src, ok := c.Driver(n.ID)
				if !ok {
					src = "-"
				}
				fmt.Fprintf(sh.out, "  %s <- %s\n", n.ID, src)
			}
			for _, n := range cp.Outputs {
				v, _ := c.Value(n.ID)
				fmt.Fprintf(sh.out, "  %s = %s\n", n.ID, bit(v))
			}
			return
		}
		for _, cp := range c.Components() {
			fmt.Fprintln(sh.out, describe(cp))
		}
		for _, cn := range c.Connections() {
			fmt.Fprintf(sh.out, "%s -> %s\n", cn.Source, cn.Target)
		}
	})
	return err
}

func (sh *Shell) define(args []string) error {
	d, err := sh.s.Define(sh.ctx, args[0], ids(args[1:])...)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "%s: %d input(s), %d output(s), %d part(s)\n", d.Name, len(d.Inputs), len(d.Outputs), len(d.Parts))
	return nil
}

func (sh *Shell) place(args []string) error {
	pos, err := parsePos(args[1:])
	if err != nil {
		return err
	}
	id, err := sh.s.Instantiate(args[0], pos)
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.out, id)
	return nil
}

func (sh *Shell) undefine(args []string) error {
	n, err := sh.s.RemoveDefinition(sh.ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "%d instance(s) removed\n", n)
	return nil
}

func (sh *Shell) defs(_ []string) error {
	sh.s.View(func(c *logicsim.Circuit, _ logicsim.Report) {
		for _, d := range c.Definitions() {
			fmt.Fprintf(sh.out, "%s: %d input(s), %d output(s)\n", d.Name, len(d.Inputs), len(d.Outputs))
		}
	})
	return nil
}

func (sh *Shell) lib(_ []string) error {
	names, err := sh.s.InstallLibrary(sh.ctx)
	if len(names) > 0 {
		fmt.Fprintf(sh.out, "installed: %s\n", strings.Join(names, ", "))
	}
	return err
}

func (sh *Shell) reset(_ []string) error {
	return sh.s.Reset(sh.ctx)
}

func (sh *Shell) help(args []string) error {
	if len(args) == 1 {
		cmd, ok := commands[args[0]]
		if !ok {
			return errors.Errorf("unknown command: %s", args[0])
		}
		fmt.Fprintf(sh.out, "Syntax: %s\n%s\n", cmd.usage, cmd.help)
		return nil
	}
	fmt.Fprintln(sh.out, "Available commands:")
	for _, name := range commandNames() {
		fmt.Fprintf(sh.out, "  %-9s %s\n", name, commands[name].help)
	}
	return nil
}
