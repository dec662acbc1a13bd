package value

import (
	"fmt"
	"io"
)

// A Printer lays out the output of an Encoder.
//
//   - Indent and Dedent change the nesting level and start a new line
//   - NewLine starts a new line at the current level
//   - PrintBytes outputs bytes as they are
//   - Reset ends a top-level value
//
// Write failures are not returned.  A Printer panics with a *PrinterError
// instead, and the caller recovers it with CatchPrinterError:
//
//	func print(p Printer, v Value) (err error) {
//	    defer CatchPrinterError(&err)
//	    ...
//	}
type Printer interface {
	Indent()
	Dedent()
	NewLine()
	PrintBytes([]byte)
	Reset()
}

// CatchPrinterError stores in *err the *PrinterError a Printer panicked with.
// Other panics are propagated.
func CatchPrinterError(err *error) {
	r := recover()
	if r == nil {
		return
	}
	perr, ok := r.(*PrinterError)
	if !ok {
		panic(r)
	}
	*err = perr
}

// A PrinterError wraps the error a Printer got from its writer.
type PrinterError struct {
	Err error
}

func (e *PrinterError) Error() string {
	return fmt.Sprintf("printer error: %s", e.Err)
}

func (e *PrinterError) Unwrap() error {
	return e.Err
}

// Flusher is implemented by buffered writers such as *bufio.Writer.
type Flusher interface {
	Flush() error
}

// DefaultPrinter writes to an io.Writer, indenting by IndentSize spaces per
// level.  A negative IndentSize puts each top-level value on a single line
// and 0 keeps line breaks without indentation.
//
// When Flusher is set it is flushed at the end of every top-level value, so
// streamed elements show up as soon as they are printed.
type DefaultPrinter struct {
	io.Writer
	Flusher
	IndentSize  int
	indentLevel int
}

var _ Printer = &DefaultPrinter{}

func (p *DefaultPrinter) NewLine() {
	if p.IndentSize < 0 {
		return
	}
	p.PrintBytes(newLineBytes)
	for i := p.IndentSize * p.indentLevel; i > 0; i -= len(spaces) {
		p.PrintBytes(spaces[:min(i, len(spaces))])
	}
}

func (p *DefaultPrinter) Indent() {
	p.indentLevel++
	p.NewLine()
}

func (p *DefaultPrinter) Dedent() {
	p.indentLevel--
	p.NewLine()
}

func (p *DefaultPrinter) PrintBytes(b []byte) {
	if _, err := p.Write(b); err != nil {
		panic(&PrinterError{Err: err})
	}
}

// Reset ends the current top-level value with a line break, whatever the
// IndentSize, then flushes.
func (p *DefaultPrinter) Reset() {
	p.indentLevel = 0
	p.PrintBytes(newLineBytes)
	if p.Flusher != nil {
		if err := p.Flush(); err != nil {
			panic(&PrinterError{Err: err})
		}
	}
}

var (
	newLineBytes = []byte{'\n'}
	spaces       = []byte("                                ")
)
