// Package shell is an interactive browser over a decoded device tree.
package shell

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/NeilAllavarpu/device-tree/internal/config"
	"github.com/NeilAllavarpu/device-tree/internal/dt"
	"github.com/NeilAllavarpu/device-tree/internal/dump"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNoSuchNode     = errors.New("no such node")
	ErrUsage          = errors.New("usage")
)

type command struct {
	name  string
	args  string
	help  string
	run   func(s *Shell, args []string) error
	alias []string
}

var commands []command

func init() {
	commands = []command{
		{name: "help", help: "show this help", run: (*Shell).help, alias: []string{"?"}},
		{name: "ls", args: "[path]", help: "list child nodes", run: (*Shell).ls},
		{name: "cd", args: "[path]", help: "change the current node", run: (*Shell).cd},
		{name: "pwd", help: "print the current node path", run: (*Shell).pwd},
		{name: "cat", args: "[path]", help: "show a node's properties", run: (*Shell).cat},
		{name: "tree", args: "[path]", help: "show a node and its subtree", run: (*Shell).subtree},
		{name: "cpus", help: "list cpus", run: (*Shell).cpus},
		{name: "memory", help: "list memory and reservations", run: (*Shell).memory},
		{name: "aliases", help: "list aliases", run: (*Shell).aliases},
		{name: "chosen", help: "show boot parameters", run: (*Shell).chosen},
		{name: "reserved", help: "list reserved memory regions", run: (*Shell).reserved},
		{name: "phandle", args: "<n>", help: "find the node with a phandle", run: (*Shell).phandle},
		{name: "exit", help: "leave the shell", alias: []string{"quit", "q"}},
	}
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name || slices.Contains(c.alias, name) {
			return c, true
		}
	}
	return command{}, false
}

// Shell holds the browsing state.
type Shell struct {
	tree *dt.DeviceTree
	cwd  dt.Node
	out  io.Writer
	cfg  config.Config
}

// New returns a shell positioned at the root of tree.
func New(tree *dt.DeviceTree, out io.Writer, cfg config.Config) *Shell {
	return &Shell{tree: tree, cwd: tree.Root(), out: out, cfg: cfg}
}

// Cwd returns the current node.
func (s *Shell) Cwd() dt.Node { return s.cwd }

// Prompt returns the prompt for the current node.
func (s *Shell) Prompt() string { return "dtb:" + s.cwd.Path() + "> " }

// Exec runs one command line. quit reports whether the user asked to leave.
func (s *Shell) Exec(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	name := strings.ToLower(fields[0])
	c, ok := lookupCommand(name)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if c.run == nil {
		return true, nil
	}
	return false, c.run(s, fields[1:])
}

// Run reads commands from the terminal until exit or EOF.
func (s *Shell) Run() error {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for _, c := range commands {
		items = append(items, readline.PcItem(c.name))
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.Prompt(),
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	out := s.out
	s.out = rl.Stdout()
	defer func() { s.out = out }()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return nil
		}
		quit, err := s.Exec(line)
		if err != nil {
			fmt.Fprintf(rl.Stderr(), "error: %v\n", err)
		}
		if quit {
			return nil
		}
		rl.SetPrompt(s.Prompt())
	}
}

// resolve finds the node named by arg relative to the current node. ".."
// steps to the parent, a leading "/" starts at the root and a first segment
// that is not a child may be an alias.
func (s *Shell) resolve(arg string) (dt.Node, error) {
	if arg == "" {
		return s.cwd, nil
	}
	if strings.HasPrefix(arg, "/") {
		if n, ok := s.tree.Lookup(arg); ok {
			return n, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNoSuchNode, arg)
	}
	cur := s.cwd
	for i, seg := range strings.Split(arg, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if p := cur.Parent(); p != nil {
				cur = p
			}
			continue
		}
		next, ok := dt.Lookup(cur, seg)
		if !ok && i == 0 {
			next, ok = s.tree.Alias(seg)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoSuchNode, arg)
		}
		cur = next
	}
	return cur, nil
}

func oneArg(args []string) (string, error) {
	switch len(args) {
	case 0:
		return "", nil
	case 1:
		return args[0], nil
	}
	return "", fmt.Errorf("%w: at most one path", ErrUsage)
}

func (s *Shell) help([]string) error {
	for _, c := range commands {
		usage := strings.TrimSpace(c.name + " " + c.args)
		fmt.Fprintf(s.out, "  %-14s %s\n", usage, c.help)
	}
	return nil
}

func (s *Shell) ls(args []string) error {
	arg, err := oneArg(args)
	if err != nil {
		return err
	}
	n, err := s.resolve(arg)
	if err != nil {
		return err
	}
	for c := range dt.ChildNodes(n) {
		v := dump.NewNodeView(c, dump.Options{})
		fmt.Fprintf(s.out, "%-32s %s\n", v.Name()+"/", v.Kind)
	}
	return nil
}

func (s *Shell) cd(args []string) error {
	arg, err := oneArg(args)
	if err != nil {
		return err
	}
	if arg == "" {
		s.cwd = s.tree.Root()
		return nil
	}
	n, err := s.resolve(arg)
	if err != nil {
		return err
	}
	s.cwd = n
	return nil
}

func (s *Shell) pwd([]string) error {
	fmt.Fprintln(s.out, s.cwd.Path())
	return nil
}

func (s *Shell) render(args []string, depth int) error {
	arg, err := oneArg(args)
	if err != nil {
		return err
	}
	n, err := s.resolve(arg)
	if err != nil {
		return err
	}
	v := dump.NewNodeView(n, dump.Options{Properties: s.cfg.ShowProperties(), Depth: depth})
	return dump.Write(s.out, v, config.FormatText, s.cfg.Output.MaxValueWidth)
}

func (s *Shell) cat(args []string) error { return s.render(args, 0) }

func (s *Shell) subtree(args []string) error { return s.render(args, -1) }

func (s *Shell) cpus([]string) error {
	boot := s.tree.BootCPU()
	for _, c := range s.tree.CPUs() {
		mark := " "
		if c == boot {
			mark = "*"
		}
		method := c.EnableMethod().String()
		if method == "" {
			method = "-"
		}
		fmt.Fprintf(s.out, "%s %-6d %-24s %-10s %s\n", mark, c.ID(), method, c.Status(), c.Path())
	}
	return nil
}

func (s *Shell) memory([]string) error {
	for _, m := range s.tree.Root().MemoryRegions() {
		for _, r := range m.Ranges() {
			fmt.Fprintf(s.out, "memory   %#018x-%#018x %s\n", r.Address, r.End(), m.Path())
		}
	}
	for _, r := range s.tree.Reservations() {
		fmt.Fprintf(s.out, "reserved %#018x-%#018x\n", r.Address, r.End())
	}
	return nil
}

func (s *Shell) aliases([]string) error {
	for name, n := range s.tree.Root().Aliases().All() {
		fmt.Fprintf(s.out, "%-16s %s\n", name, n.Path())
	}
	return nil
}

func (s *Shell) chosen([]string) error {
	c := s.tree.Root().Chosen()
	if c == nil {
		return fmt.Errorf("%w: /chosen", ErrNoSuchNode)
	}
	return s.render([]string{c.Path()}, 0)
}

func (s *Shell) reserved([]string) error {
	regions := s.tree.Root().ReservedMemory()
	if regions == nil {
		return nil
	}
	for m := range regions.Values() {
		r := m.Region()
		var where string
		if r.IsStatic() {
			parts := make([]string, len(r.Static))
			for i, reg := range r.Static {
				parts[i] = reg.String()
			}
			where = strings.Join(parts, " ")
		} else {
			where = fmt.Sprintf("dynamic size=%#x", r.Size)
		}
		fmt.Fprintf(s.out, "%-40s %-10s %s\n", m.Path(), m.Usage(), where)
	}
	return nil
}

func (s *Shell) phandle(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: phandle <n>", ErrUsage)
	}
	ph, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return fmt.Errorf("%w: phandle <n>: %w", ErrUsage, err)
	}
	n, ok := s.tree.PHandle(uint32(ph))
	if !ok {
		return fmt.Errorf("%w: phandle %#x", ErrNoSuchNode, ph)
	}
	fmt.Fprintln(s.out, n.Path())
	return nil
}
