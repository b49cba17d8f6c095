// Prima CLI - assemble, inspect and run sigils
package main

import (
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/prima/compiler"
	"github.com/chazu/prima/manifest"
	"github.com/chazu/prima/pkg/bytecode"
	"github.com/chazu/prima/pkg/coord"
	"github.com/chazu/prima/pkg/field"
	"github.com/chazu/prima/server"
	"github.com/chazu/prima/vm"

	_ "github.com/tliron/commonlog/simple"
)

//go:embed redemption.prima
var redemptionSource string

var log = commonlog.GetLogger("prima.cli")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// cli holds the resolved configuration and output streams of one
// invocation.
type cli struct {
	cfg    *manifest.Manifest
	output string
	query  *coord.Coord
	stdout io.Writer
	stderr io.Writer
	field  *field.Field
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("prima", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configDir := flags.String("config", ".", "Directory to search upward for prima.toml")
	verbosity := flags.Int("v", 0, "Log verbosity (overrides [log] verbosity)")
	output := flags.String("o", "", "Result output: text or cbor (overrides [vm] output)")
	query := flags.String("query", "", "Report the particle nearest to this coordinate after running, e.g. \"security=9 memory=4\"")

	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: prima [options] <command> [files...]\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		fmt.Fprintf(stderr, "  run <sigil.l7b>...      Execute compiled sigil bytecode\n")
		fmt.Fprintf(stderr, "  asm <source.prima>      Assemble text source, write .l7b and execute\n")
		fmt.Fprintf(stderr, "  info <sigil.l7b>        Print sigil information\n")
		fmt.Fprintf(stderr, "  test                    Run built-in test sigil\n")
		fmt.Fprintf(stderr, "  lsp                     Start the language server on stdio\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		flags.PrintDefaults()
		fmt.Fprintf(stderr, "\nSigil text format (one op per line):\n")
		fmt.Fprintf(stderr, "  invoke capability=8 security=7\n")
		fmt.Fprintf(stderr, "  decompose security=9 detail=9\n")
		fmt.Fprintf(stderr, "  verify security=10\n")
		fmt.Fprintf(stderr, "  complete\n")
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return 1
	}

	cfg, err := manifest.Resolve(*configDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":
			cfg.Log.Verbosity = *verbosity
		case "o":
			cfg.VM.Output = *output
		}
	})
	if cfg.VM.Output != "text" && cfg.VM.Output != "cbor" {
		fmt.Fprintf(stderr, "Error: unknown output %q, want text or cbor\n", cfg.VM.Output)
		return 1
	}
	commonlog.Configure(cfg.Log.Verbosity, cfg.LogPath())

	c := &cli{
		cfg:    cfg,
		output: cfg.VM.Output,
		stdout: stdout,
		stderr: stderr,
		field:  field.New(cfg.FieldOptions()...),
	}
	if *query != "" {
		w, err := compiler.ParseWeights(*query)
		if err != nil {
			fmt.Fprintf(stderr, "Error: -query: %v\n", err)
			return 1
		}
		c.query = &coord.Coord{V: w}
	}

	cmd, files := flags.Arg(0), flags.Args()[1:]
	log.Debug("command", "name", cmd, "files", len(files))

	switch cmd {
	case "run":
		if len(files) == 0 {
			return c.usageError("run requires at least one .l7b file")
		}
		return c.runFiles(files)
	case "asm":
		if len(files) != 1 {
			return c.usageError("asm requires one .prima file")
		}
		return c.assembleFile(files[0])
	case "info":
		if len(files) != 1 {
			return c.usageError("info requires one .l7b file")
		}
		return c.info(files[0])
	case "test":
		return c.test()
	case "lsp":
		checker := server.NewChecker(cfg.FieldOptions(), vm.WithRoot(cfg.Root()))
		if err := server.NewLSP(checker).Run(); err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return 1
		}
		return 0
	default:
		return c.usageError(fmt.Sprintf("unknown command %q", cmd))
	}
}

func (c *cli) usageError(msg string) int {
	fmt.Fprintf(c.stderr, "Error: %s\n", msg)
	return 1
}

func (c *cli) fail(err error) int {
	fmt.Fprintf(c.stderr, "Error: %v\n", err)
	return 1
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

// runFiles decodes and runs every file against the shared Field. It stops
// at the first file that cannot be read or decoded.
func (c *cli) runFiles(paths []string) int {
	code := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return c.fail(err)
		}
		prog, err := bytecode.Decode(data)
		if err != nil {
			return c.fail(fmt.Errorf("%s: %w", path, err))
		}
		if rc := c.execute(prog); rc != 0 {
			code = rc
		}
	}
	return c.finish(code)
}

// assembleFile assembles a .prima source, writes the sibling .l7b file and
// runs it. Nothing is written when assembly fails.
func (c *cli) assembleFile(path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		return c.fail(err)
	}
	data, err := compiler.Assemble(string(src))
	if err != nil {
		return c.fail(fmt.Errorf("%s: %w", path, err))
	}
	c.textf("Assembled: %d bytes\n\n", len(data))

	out := bytecodePath(path)
	if err := os.WriteFile(out, data, 0644); err != nil {
		return c.fail(err)
	}
	c.textf("Wrote: %s\n\n", out)

	return c.runBytes(data)
}

func (c *cli) info(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return c.fail(err)
	}
	prog, err := bytecode.Decode(data)
	if err != nil {
		return c.fail(fmt.Errorf("%s: %w", path, err))
	}
	fmt.Fprint(c.stdout, prog.Describe(path))
	return 0
}

// test assembles and runs the built-in Redemption sigil.
func (c *cli) test() int {
	c.textf("Assembling: The Redemption Sigil\n\n")
	data, err := compiler.Assemble(redemptionSource)
	if err != nil {
		return c.fail(err)
	}
	c.textf("Assembled: %d bytes\n\n", len(data))
	return c.runBytes(data)
}

func (c *cli) runBytes(data []byte) int {
	prog, err := bytecode.Decode(data)
	if err != nil {
		return c.fail(err)
	}
	return c.finish(c.execute(prog))
}

// execute runs one program against the shared Field and reports the result.
func (c *cli) execute(prog *bytecode.Program) int {
	sink := vm.WriterSink{Stdout: c.stdout, Stderr: c.stderr}
	if c.output == "cbor" {
		sink.Stdout = nil
	}
	machine := vm.NewVM(c.field,
		vm.WithSink(sink),
		vm.WithRoot(c.cfg.Root()),
		vm.WithTrace(c.cfg.VM.Trace),
	)

	res, err := machine.Run(prog)
	if res != nil && c.output == "cbor" {
		data, merr := vm.MarshalResult(res)
		if merr != nil {
			return c.fail(merr)
		}
		if _, werr := c.stdout.Write(data); werr != nil {
			return c.fail(werr)
		}
	}
	if err != nil {
		return c.fail(err)
	}
	if res.Failed() {
		return 1
	}
	return 0
}

// finish prints the nearest-particle report when -query was given.
func (c *cli) finish(code int) int {
	if c.query == nil {
		return code
	}
	idx, ok := c.field.FindNearestWith(c.cfg.Root(), *c.query)
	if !ok {
		fmt.Fprintln(c.report(), "Nearest: field is empty")
		return code
	}
	p := c.field.Particle(idx)
	fmt.Fprintf(c.report(), "Nearest: particle %d %s %s (distance %.2f)\n",
		p.ID, p.Domain, p.Pos, c.cfg.Root().Distance(*c.query, p.Pos))
	return code
}

// report is where human-readable reports go; stdout carries CBOR in cbor
// mode.
func (c *cli) report() io.Writer {
	if c.output == "cbor" {
		return c.stderr
	}
	return c.stdout
}

// textf writes progress lines that only belong in text output.
func (c *cli) textf(format string, args ...any) {
	if c.output == "text" {
		fmt.Fprintf(c.stdout, format, args...)
	}
}

// bytecodePath replaces the source extension with .l7b.
func bytecodePath(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + ".l7b"
}
