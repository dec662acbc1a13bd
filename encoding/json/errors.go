package json

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated is wrapped by syntax errors caused by the input ending
	// before a complete JSON value was read.
	ErrTruncated = errors.New("truncated JSON input")

	// ErrNotArray is wrapped by the syntax error returned when an array
	// decoder is given a top-level value which is not an array.
	ErrNotArray = errors.New("top-level JSON value is not an array")
)

// Pos is a position in the decoded text.  Line and Col start at 0 and Col
// counts characters, not bytes.
type Pos struct {
	Line, Col int
}

// A SyntaxError describes why the input is not valid JSON.
type SyntaxError struct {
	Pos  Pos
	Msg  string
	Char rune // The offending character, unless EOF is true
	EOF  bool
	Err  error // ErrTruncated, ErrNotArray or nil
}

func (e *SyntaxError) Error() string {
	if e.EOF {
		return fmt.Sprintf("syntax error at L%d,C%d: %s: <EOF>", e.Pos.Line+1, e.Pos.Col+1, e.Msg)
	}
	return fmt.Sprintf("syntax error at L%d,C%d: %s: %q", e.Pos.Line+1, e.Pos.Col+1, e.Msg, e.Char)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}
