// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package shell implements an interactive command interpreter to edit and
// simulate a circuit session.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/db47h/logicsim/internal/session"
	"github.com/pkg/errors"
)

// ErrQuit is returned by Exec when the user asks to leave.
var ErrQuit = errors.New("quit")

// Shell runs commands against a session.
type Shell struct {
	ctx context.Context
	s   *session.Session
	out io.Writer
}

// New returns a shell writing command output to out.
func New(ctx context.Context, s *session.Session, out io.Writer) *Shell {
	return &Shell{ctx: ctx, s: s, out: out}
}

// ParseArgs splits a command line on spaces. Double quotes group words.
func ParseArgs(input string) []string {
	var args []string
	var cur strings.Builder
	inQuotes := false
	for _, r := range input {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case ' ', '\t':
			if inQuotes {
				cur.WriteRune(r)
			} else if cur.Len() > 0 {
				args = append(args, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		args = append(args, cur.String())
	}
	return args
}

// Exec runs a single command line. Blank lines and lines starting with '#'
// are ignored.
func (sh *Shell) Exec(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	args := ParseArgs(line)
	if len(args) == 0 {
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return errors.Errorf("unknown command: %s", args[0])
	}
	if len(args)-1 < cmd.min || (cmd.max >= 0 && len(args)-1 > cmd.max) {
		return errors.Errorf("usage: %s", cmd.usage)
	}
	return cmd.fn(sh, args[1:])
}

// RunScript executes commands read from r, one per line. It stops at the
// first failing command.
func (sh *Shell) RunScript(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		if err := sh.Exec(sc.Text()); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			return errors.Wrapf(err, "line %d", n)
		}
	}
	return sc.Err()
}

// Run reads and executes commands interactively until EOF or quit. Command
// errors are printed and do not stop the loop.
func (sh *Shell) Run(historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "logicsim> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return errors.Wrap(err, "init readline")
	}
	defer rl.Close()
	sh.out = rl.Stdout()

	fmt.Fprintln(sh.out, "Type 'help' for the list of commands.")
	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if line == "" {
				return nil
			}
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}
		if err = sh.Exec(line); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
	}
}

func completer() *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	for _, name := range commandNames() {
		if name == "gate" {
			items = append(items, readline.PcItem("gate",
				readline.PcItem("AND"), readline.PcItem("OR"), readline.PcItem("XOR"),
				readline.PcItem("NAND"), readline.PcItem("NOR"), readline.PcItem("NOT")))
			continue
		}
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}
