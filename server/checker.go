package server

import (
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/prima/compiler"
	"github.com/chazu/prima/pkg/field"
	"github.com/chazu/prima/vm"
)

// ErrCheckerStopped is returned by Check after Stop.
var ErrCheckerStopped = errors.New("server: checker stopped")

// checkRequest represents a document waiting to be checked.
type checkRequest struct {
	text string
	done chan checkResult
}

type checkResult struct {
	diags []protocol.Diagnostic
	err   error
}

// Checker serializes document checks through a single goroutine. A check
// assembles the document and, when that succeeds, dry-runs the program
// against a fresh Field so no state leaks between documents.
type Checker struct {
	fieldOpts []field.Option
	vmOpts    []vm.Option

	requests chan checkRequest
	quit     chan struct{}
	stopOnce sync.Once
}

// NewChecker creates a Checker and starts the processing goroutine.
func NewChecker(fieldOpts []field.Option, vmOpts ...vm.Option) *Checker {
	c := &Checker{
		fieldOpts: fieldOpts,
		vmOpts:    vmOpts,
		requests:  make(chan checkRequest, 16),
		quit:      make(chan struct{}),
	}
	go c.loop()
	return c
}

func (c *Checker) loop() {
	for {
		select {
		case req := <-c.requests:
			req.done <- c.execute(req.text)
		case <-c.quit:
			return
		}
	}
}

// execute checks one document, recovering from panics.
func (c *Checker) execute(text string) (result checkResult) {
	defer func() {
		if r := recover(); r != nil {
			result = checkResult{err: fmt.Errorf("server: check panicked: %v", r)}
		}
	}()
	return checkResult{diags: c.diagnose(text)}
}

// Check submits a document and blocks until its diagnostics are ready.
func (c *Checker) Check(text string) ([]protocol.Diagnostic, error) {
	select {
	case <-c.quit:
		return nil, ErrCheckerStopped
	default:
	}

	req := checkRequest{text: text, done: make(chan checkResult, 1)}
	select {
	case c.requests <- req:
	case <-c.quit:
		return nil, ErrCheckerStopped
	}
	select {
	case res := <-req.done:
		return res.diags, res.err
	case <-c.quit:
		return nil, ErrCheckerStopped
	}
}

// Stop shuts down the checker goroutine. It is safe to call more than once
// and from several goroutines.
func (c *Checker) Stop() {
	c.stopOnce.Do(func() { close(c.quit) })
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func (c *Checker) diagnose(text string) []protocol.Diagnostic {
	diags := []protocol.Diagnostic{}

	p := compiler.NewParser(text)
	src := p.ParseSource()
	if errs := p.Errors(); len(errs) > 0 {
		for _, e := range errs {
			diags = append(diags, assemblyDiagnostic(e))
		}
		return diags
	}

	prog, err := compiler.Generate(src)
	if err != nil {
		var ae *compiler.AssemblyError
		if errors.As(err, &ae) {
			diags = append(diags, assemblyDiagnostic(ae))
		}
		return diags
	}

	last := src.Statements[len(src.Statements)-1]
	if len(last.Weights) > 0 {
		w := last.Weights[0]
		diags = append(diags, diagnostic(protocol.DiagnosticSeverityWarning,
			w.Pos, utf8.RuneCountInString(w.Dim.String()),
			"weights on the last operation are never used"))
	}

	res, err := vm.NewVM(field.New(c.fieldOpts...), c.vmOpts...).Run(prog)
	if err != nil {
		pos := src.Statements[0].Pos
		if res != nil && res.Steps > 0 {
			pos = src.Statements[res.Steps-1].Pos
		}
		diags = append(diags, diagnostic(protocol.DiagnosticSeverityError, pos, 0, err.Error()))
		return diags
	}
	if res.Failed() {
		st := src.Statements[res.Steps-1]
		diags = append(diags, diagnostic(protocol.DiagnosticSeverityWarning,
			st.Pos, utf8.RuneCountInString(st.Name),
			fmt.Sprintf("run halts with error at %s (step %d)", st.Name, res.Steps-1)))
	}
	return diags
}

func assemblyDiagnostic(e *compiler.AssemblyError) protocol.Diagnostic {
	msg := e.Err.Error()
	if e.Token != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Token)
	}
	return diagnostic(protocol.DiagnosticSeverityError, e.Pos, utf8.RuneCountInString(e.Token), msg)
}

// diagnostic converts a 1-based source position to an LSP range of width
// characters.
func diagnostic(severity protocol.DiagnosticSeverity, pos compiler.Position, width int, msg string) protocol.Diagnostic {
	source := lspName
	line := protocol.UInteger(max(pos.Line-1, 0))
	col := protocol.UInteger(max(pos.Column-1, 0))
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: col},
			End:   protocol.Position{Line: line, Character: col + protocol.UInteger(width)},
		},
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	}
}
