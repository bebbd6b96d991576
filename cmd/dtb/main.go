package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/NeilAllavarpu/device-tree/internal/blob"
	"github.com/NeilAllavarpu/device-tree/internal/config"
	"github.com/NeilAllavarpu/device-tree/internal/dt"
	"github.com/NeilAllavarpu/device-tree/internal/dump"
	"github.com/NeilAllavarpu/device-tree/internal/fdt"
	"github.com/NeilAllavarpu/device-tree/internal/shell"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dtb: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Settings file (YAML)")
	format := flag.String("format", "", "Output format: text, yaml or cbor (default from config, else text)")
	nodePath := flag.String("path", "", "Render only the node at this path or alias")
	tokens := flag.Bool("tokens", false, "Dump the raw structure block tokens instead of the decoded tree")
	reservations := flag.Bool("reservations", false, "Print only the memory reservation block")
	interactive := flag.Bool("shell", false, "Browse the tree interactively")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [blob]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Decode and validate a flattened device tree blob.\n")
		fmt.Fprintf(os.Stderr, "The blob defaults to %s; use - for stdin.\n\n", blob.DefaultPath)
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  %s board.dtb\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -path serial0 -format yaml board.dtb\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -shell\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() > 1 {
		flag.Usage()
		return errors.New("too many arguments")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *format != "" {
		f, err := config.ParseFormat(*format)
		if err != nil {
			return err
		}
		cfg.Output.Format = f
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	path := blob.DefaultPath
	if flag.NArg() == 1 {
		path = flag.Arg(0)
	}
	b, err := blob.Open(path)
	if err != nil {
		return err
	}
	defer b.Close()
	slog.Debug("loaded blob", "path", b.Path(), "size", len(b.Bytes()), "mapped", b.Mapped())

	out := os.Stdout
	tty := term.IsTerminal(int(out.Fd()))
	if tty && cfg.Output.Format == config.FormatCBOR && !*interactive {
		return errors.New("refusing to write CBOR to a terminal")
	}
	if tty && cfg.Output.MaxValueWidth == config.DefaultMaxValueWidth {
		if cols, _, err := term.GetSize(int(out.Fd())); err == nil && cols > 40 {
			cfg.Output.MaxValueWidth = cols - 24
		}
	}

	if *tokens {
		return dumpTokens(out, b.Bytes())
	}

	tree, err := dt.Parse(b.Bytes(), dt.WithLogger(logger))
	if err != nil {
		return err
	}
	slog.Debug("parsed device tree", "version", tree.Version(), "cpus", len(tree.CPUs()))

	switch {
	case *reservations:
		for _, r := range tree.Reservations() {
			fmt.Fprintf(out, "%#018x %#018x\n", r.Address, r.Size)
		}
		return nil
	case *interactive:
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("-shell needs a terminal on stdin")
		}
		return shell.New(tree, out, cfg).Run()
	}

	opts := dump.Options{Properties: cfg.ShowProperties(), Depth: -1}
	var view any
	if *nodePath != "" {
		n, ok := tree.Lookup(*nodePath)
		if !ok {
			return fmt.Errorf("%w: %s", shell.ErrNoSuchNode, *nodePath)
		}
		view = dump.NewNodeView(n, opts)
	} else {
		view = dump.NewTreeView(tree, opts)
	}
	return dump.Write(out, view, cfg.Output.Format, cfg.Output.MaxValueWidth)
}

// dumpTokens prints the structure block one token per line. It only needs
// a valid header, so it also works on blobs the resolver rejects.
func dumpTokens(w io.Writer, data []byte) error {
	b, err := fdt.ParseHeader(data)
	if err != nil {
		return err
	}
	depth := 0
	for tok, err := range fdt.NewDecoder(b.Struct, b.Strings).All() {
		if err != nil {
			return err
		}
		if tok.Kind == fdt.TokenEndNode && depth > 0 {
			depth--
		}
		fmt.Fprintf(w, "%#08x %*s%s", tok.Offset, depth*2, "", tok.Kind)
		switch tok.Kind {
		case fdt.TokenBeginNode:
			fmt.Fprintf(w, " %q", tok.Name.String())
			depth++
		case fdt.TokenProp:
			fmt.Fprintf(w, " %s = %s", tok.Property, dump.FormatValue(tok.Value))
		}
		fmt.Fprintln(w)
	}
	return nil
}
