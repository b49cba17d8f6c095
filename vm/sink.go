package vm

import (
	"fmt"
	"io"
)

// Sink receives the human-readable output of a run, one line at a time.
// Out carries the banner, trace records and result summary. Diag carries
// audit records.
type Sink interface {
	Out(line string)
	Diag(line string)
}

// WriterSink writes Out lines to Stdout and Diag lines to Stderr. A nil
// writer discards its channel.
type WriterSink struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (s WriterSink) Out(line string) {
	if s.Stdout != nil {
		fmt.Fprintln(s.Stdout, line)
	}
}

func (s WriterSink) Diag(line string) {
	if s.Stderr != nil {
		fmt.Fprintln(s.Stderr, line)
	}
}

// Discard drops all output.
var Discard Sink = WriterSink{}
