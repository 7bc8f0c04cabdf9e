// Package command implements the console command table: registration of
// verb-path commands and dispatch of typed input lines to their handlers.
package command

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ErrUnknownCommand is returned by Dispatch when no registered command
// matches the input line.
var ErrUnknownCommand = errors.New("unknown command")

// Handler executes a resolved command. args holds the tokens remaining
// after the verb path; output written to out lands on the console.
type Handler func(args []string, out io.Writer) error

// Descriptor declares one command of the table.
type Descriptor struct {
	// Path is the verb path, e.g. ["room", "create"]. Resolution picks
	// the registered command with the longest path matching the input.
	Path []string

	// Help is a one-line description shown by the help command.
	Help string

	// Options registers the command's option schema on a flag set. The
	// handler applies it before parsing and Usage applies it to render
	// per-option help. Nil means the command takes no options.
	Options func(fs *flag.FlagSet)

	// Run handles the command.
	Run Handler
}

func (d *Descriptor) name() string {
	return strings.Join(d.Path, " ")
}

// Registry holds the command table.
type Registry struct {
	commands []*Descriptor
}

// NewRegistry builds an empty command table.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a command. Registering a duplicate or empty path is a
// programming error and panics.
func (r *Registry) Register(d Descriptor) {
	if len(d.Path) == 0 {
		panic("command: empty path")
	}
	for _, existing := range r.commands {
		if existing.name() == d.name() {
			panic("command: duplicate path " + d.name())
		}
	}
	r.commands = append(r.commands, &d)
}

// Dispatch tokenizes line, resolves the deepest matching verb path, and
// runs the command with the remaining tokens as arguments. A blank line is
// a no-op.
func (r *Registry) Dispatch(line string, out io.Writer) error {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil
	}

	var match *Descriptor
	for _, d := range r.commands {
		if len(tokens) < len(d.Path) {
			continue
		}
		if !equalFold(tokens[:len(d.Path)], d.Path) {
			continue
		}
		if match == nil || len(d.Path) > len(match.Path) {
			match = d
		}
	}
	if match == nil {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, strings.Join(tokens, " "))
	}

	return match.Run(tokens[len(match.Path):], out)
}

func equalFold(a, b []string) bool {
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Usage renders the help listing sorted by verb path: each command's path
// and description, then one indented line per option with its help text.
func (r *Registry) Usage() string {
	names := make([]string, 0, len(r.commands))
	byName := make(map[string]*Descriptor, len(r.commands))
	for _, d := range r.commands {
		names = append(names, d.name())
		byName[d.name()] = d
	}
	sort.Strings(names)

	width := 0
	for _, n := range names {
		if len(n) > width {
			width = len(n)
		}
	}

	var b strings.Builder
	for _, n := range names {
		d := byName[n]
		fmt.Fprintf(&b, "  %-*s  %s\n", width, n, d.Help)
		if d.Options == nil {
			continue
		}

		fs := flag.NewFlagSet(n, flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		d.Options(fs)
		fs.VisitAll(func(f *flag.Flag) {
			opt := "--" + f.Name
			arg, usage := flag.UnquoteUsage(f)
			if arg != "" {
				opt += " " + arg
			}
			fmt.Fprintf(&b, "      %s  %s\n", opt, usage)
		})
	}
	return b.String()
}

// NewFlagSet builds a flag set for option parsing inside a handler: errors
// are returned from Parse instead of exiting, and usage output goes to the
// console.
func NewFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}
