package json

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/arnodel/jsonhttp/internal/scanner"
	"github.com/arnodel/jsonhttp/value"
)

type state uint8

const (
	stateValue state = iota // Expecting any value
	stateArrayValueOrClose
	stateArrayValue
	stateArrayCommaOrClose
	stateObjectKeyOrClose
	stateObjectKey
	stateObjectColon
	stateObjectCommaOrClose
	stateString
	stateStringEscape
	stateStringUnicode
	stateNumber
	stateLiteral
	stateDone
)

// Position within a number literal, following the JSON grammar
//
//	-? (0 | [1-9][0-9]*) (\.[0-9]+)? ([eE][+-]?[0-9]+)?
type numState uint8

const (
	numMinus numState = iota
	numZero
	numInt
	numDot
	numFrac
	numE
	numESign
	numExp
)

// A frame is a container being built.  Exactly one of array and object is
// non-nil.
type frame struct {
	array  *value.Array
	object *value.Object
	key    string // Key of the value being parsed in object
}

const byteOrderMark = '\uFEFF'

// A Parser builds a JSON value from a sequence of characters fed one at a
// time with Accept.  It holds no reference to the input so it can be driven
// by any source.  The zero value is ready to parse one JSON value.
//
// Errors are sticky: once Accept or End has failed, all subsequent calls
// return the same error.
type Parser struct {
	state state
	stack []frame

	// Token being accumulated.  buf holds the decoded string or the number
	// literal.
	buf       []byte
	isKey     bool
	num       numState
	literal   string
	litIndex  int
	litValue  value.Value
	hex       rune
	hexCount  int
	surrogate rune // Pending high surrogate in a string, or 0

	result value.Value
	pos    Pos
	err    error

	requireArray bool
	onElement    func(value.Value) error
	started      bool
}

// NewArrayParser returns a parser which only accepts an array as top-level
// value.  Each element of that array is passed to onElement as soon as it is
// complete and is not retained in the array.  If onElement returns an error,
// parsing stops with that error.
func NewArrayParser(onElement func(value.Value) error) *Parser {
	return &Parser{requireArray: true, onElement: onElement}
}

// Accept feeds the next character of the input to the parser.
func (p *Parser) Accept(r rune) error {
	if p.err != nil {
		return p.err
	}
	// A byte order mark is allowed before anything else.
	if r == byteOrderMark && !p.started {
		p.started = true
		return nil
	}
	p.started = true
	p.err = p.accept(r)
	if r == '\n' {
		p.pos.Line++
		p.pos.Col = 0
	} else {
		p.pos.Col++
	}
	return p.err
}

// End signals that there is no more input.  It returns an error wrapping
// ErrTruncated if the value is not complete.
func (p *Parser) End() error {
	if p.err != nil {
		return p.err
	}
	if p.state == stateNumber && p.numberComplete() {
		if p.err = p.complete(value.Number(p.buf)); p.err != nil {
			return p.err
		}
	}
	if p.state != stateDone {
		p.err = p.truncated()
	}
	return p.err
}

// IsComplete is true when a whole top-level value has been read.  A top-level
// number is only known to be complete when followed by some other character
// or by the end of input.
func (p *Parser) IsComplete() bool {
	return p.state == stateDone
}

// Result returns the value parsed so far if it is complete, nil otherwise.
// For an array parser, this is the top-level array without its elements.
func (p *Parser) Result() value.Value {
	return p.result
}

// Pos returns the position of the next character to be accepted.
func (p *Parser) Pos() Pos {
	return p.pos
}

// Depth returns the number of containers currently open.
func (p *Parser) Depth() int {
	return len(p.stack)
}

func (p *Parser) accept(r rune) error {
	if p.state == stateNumber {
		if p.acceptNumber(r) {
			return nil
		}
		if !p.numberComplete() {
			return p.unexpected(r, "expected digit")
		}
		if err := p.complete(value.Number(p.buf)); err != nil {
			return err
		}
		// r still needs to be processed in the enclosing state
	}
	switch p.state {
	case stateString:
		return p.acceptString(r)
	case stateStringEscape:
		return p.acceptEscape(r)
	case stateStringUnicode:
		return p.acceptUnicode(r)
	case stateLiteral:
		if r != rune(p.literal[p.litIndex]) {
			return p.unexpected(r, "invalid literal, expected "+p.literal)
		}
		p.litIndex++
		if p.litIndex == len(p.literal) {
			return p.complete(p.litValue)
		}
		return nil
	}

	if scanner.IsSpace(r) {
		return nil
	}

	switch p.state {
	case stateValue:
		if p.requireArray && len(p.stack) == 0 && r != '[' {
			return &SyntaxError{Pos: p.pos, Msg: "expected '['", Char: r, Err: ErrNotArray}
		}
		return p.startValue(r)
	case stateArrayValueOrClose:
		if r == ']' {
			return p.closeContainer()
		}
		return p.startValue(r)
	case stateArrayValue:
		return p.startValue(r)
	case stateArrayCommaOrClose:
		switch r {
		case ',':
			p.state = stateArrayValue
			return nil
		case ']':
			return p.closeContainer()
		}
		return p.unexpected(r, "expected ',' or ']'")
	case stateObjectKeyOrClose:
		if r == '}' {
			return p.closeContainer()
		}
		fallthrough
	case stateObjectKey:
		if r != '"' {
			return p.unexpected(r, "expected string key")
		}
		p.startString(true)
		return nil
	case stateObjectColon:
		if r != ':' {
			return p.unexpected(r, "expected ':'")
		}
		p.state = stateValue
		return nil
	case stateObjectCommaOrClose:
		switch r {
		case ',':
			p.state = stateObjectKey
			return nil
		case '}':
			return p.closeContainer()
		}
		return p.unexpected(r, "expected ',' or '}'")
	case stateDone:
		return p.unexpected(r, "unexpected character after top-level value")
	}
	panic("invalid parser state")
}

func (p *Parser) startValue(r rune) error {
	switch {
	case r == '"':
		p.startString(false)
	case r == '[':
		p.stack = append(p.stack, frame{array: &value.Array{}})
		p.state = stateArrayValueOrClose
	case r == '{':
		p.stack = append(p.stack, frame{object: &value.Object{}})
		p.state = stateObjectKeyOrClose
	case r == 't':
		p.startLiteral("true", value.Bool(true))
	case r == 'f':
		p.startLiteral("false", value.Bool(false))
	case r == 'n':
		p.startLiteral("null", value.Null{})
	case r == '-':
		p.startNumber(r, numMinus)
	case r == '0':
		p.startNumber(r, numZero)
	case scanner.IsNonZeroDigit(r):
		p.startNumber(r, numInt)
	default:
		return p.unexpected(r, "expected value")
	}
	return nil
}

func (p *Parser) startString(isKey bool) {
	p.buf = p.buf[:0]
	p.isKey = isKey
	p.surrogate = 0
	p.state = stateString
}

func (p *Parser) startLiteral(lit string, v value.Value) {
	p.literal = lit
	p.litIndex = 1
	p.litValue = v
	p.state = stateLiteral
}

func (p *Parser) startNumber(r rune, ns numState) {
	p.buf = append(p.buf[:0], byte(r))
	p.num = ns
	p.state = stateNumber
}

// acceptNumber returns true if r extends the current number.
func (p *Parser) acceptNumber(r rune) bool {
	isDigit := scanner.IsDigit(r)
	switch p.num {
	case numMinus:
		switch {
		case r == '0':
			p.num = numZero
		case isDigit:
			p.num = numInt
		default:
			return false
		}
	case numZero, numInt, numFrac:
		switch {
		case isDigit && p.num != numZero:
		case r == '.' && p.num != numFrac:
			p.num = numDot
		case r == 'e' || r == 'E':
			p.num = numE
		default:
			return false
		}
	case numDot:
		if !isDigit {
			return false
		}
		p.num = numFrac
	case numE:
		switch {
		case r == '+' || r == '-':
			p.num = numESign
		case isDigit:
			p.num = numExp
		default:
			return false
		}
	case numESign, numExp:
		if !isDigit {
			return false
		}
		p.num = numExp
	}
	p.buf = append(p.buf, byte(r))
	return true
}

func (p *Parser) numberComplete() bool {
	switch p.num {
	case numZero, numInt, numFrac, numExp:
		return true
	default:
		return false
	}
}

func (p *Parser) acceptString(r rune) error {
	switch {
	case r == '"':
		p.flushSurrogate()
		if p.isKey {
			p.stack[len(p.stack)-1].key = string(p.buf)
			p.state = stateObjectColon
			return nil
		}
		return p.complete(value.String(p.buf))
	case r == '\\':
		p.state = stateStringEscape
	case scanner.IsCtrl(r):
		return p.unexpected(r, "invalid control character in string")
	default:
		p.appendRune(r)
	}
	return nil
}

func (p *Parser) acceptEscape(r rune) error {
	p.state = stateString
	switch r {
	case '"', '\\', '/':
		p.appendRune(r)
	case 'b':
		p.appendRune('\b')
	case 'f':
		p.appendRune('\f')
	case 'n':
		p.appendRune('\n')
	case 'r':
		p.appendRune('\r')
	case 't':
		p.appendRune('\t')
	case 'u':
		p.hex = 0
		p.hexCount = 0
		p.state = stateStringUnicode
	default:
		return p.unexpected(r, "invalid escape sequence")
	}
	return nil
}

func (p *Parser) acceptUnicode(r rune) error {
	h := scanner.HexValue(r)
	if h < 0 {
		return p.unexpected(r, "expected hex digit")
	}
	p.hex = p.hex<<4 | rune(h)
	p.hexCount++
	if p.hexCount < 4 {
		return nil
	}
	p.state = stateString
	switch {
	case p.hex >= 0xD800 && p.hex < 0xDC00:
		p.flushSurrogate()
		p.surrogate = p.hex
	case p.hex >= 0xDC00 && p.hex < 0xE000 && p.surrogate != 0:
		p.buf = utf8.AppendRune(p.buf, utf16.DecodeRune(p.surrogate, p.hex))
		p.surrogate = 0
	default:
		// A lone low surrogate is turned into U+FFFD by utf8.AppendRune.
		p.appendRune(p.hex)
	}
	return nil
}

func (p *Parser) appendRune(r rune) {
	p.flushSurrogate()
	p.buf = utf8.AppendRune(p.buf, r)
}

// flushSurrogate outputs a high surrogate which is not followed by a low
// surrogate as U+FFFD.
func (p *Parser) flushSurrogate() {
	if p.surrogate != 0 {
		p.buf = utf8.AppendRune(p.buf, utf8.RuneError)
		p.surrogate = 0
	}
}

func (p *Parser) closeContainer() error {
	f := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	if f.array != nil {
		return p.complete(f.array)
	}
	return p.complete(f.object)
}

// complete adds v to the current container, or makes it the result if it is
// the top-level value.
func (p *Parser) complete(v value.Value) error {
	if len(p.stack) == 0 {
		p.result = v
		p.state = stateDone
		return nil
	}
	top := &p.stack[len(p.stack)-1]
	if top.array != nil {
		p.state = stateArrayCommaOrClose
		if len(p.stack) == 1 && p.onElement != nil {
			return p.onElement(v)
		}
		top.array.Append(v)
		return nil
	}
	top.object.Set(top.key, v)
	p.state = stateObjectCommaOrClose
	return nil
}

func (p *Parser) unexpected(r rune, msg string) error {
	return &SyntaxError{Pos: p.pos, Msg: msg, Char: r}
}

func (p *Parser) truncated() error {
	msg := "unexpected end of input"
	switch {
	case p.state >= stateString && p.state <= stateStringUnicode:
		msg = "unterminated string"
	case p.state == stateValue && len(p.stack) == 0:
		msg = "empty input"
	}
	return &SyntaxError{Pos: p.pos, Msg: msg, EOF: true, Err: ErrTruncated}
}
