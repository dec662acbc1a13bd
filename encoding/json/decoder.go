// Package json decodes JSON text incrementally.
//
// Input bytes go through a fixed pipeline
//
//	bytes -> charset.Decoder -> Parser -> value (or one value per array element)
//
// Each stage keeps its own partial state so input can be fed in chunks of any
// size, down to a single byte.  A Decoder is meant to be used for a single
// document and then discarded.
package json

import (
	"context"
	"io"
	"unicode/utf8"

	"github.com/arnodel/jsonhttp/encoding/charset"
	"github.com/arnodel/jsonhttp/internal/debug"
	"github.com/arnodel/jsonhttp/internal/scanner"
	"github.com/arnodel/jsonhttp/value"
)

// Options configure a Decoder.
type Options struct {
	// Name of the text encoding of the input.  Defaults to UTF-8.
	Charset string

	// Size of the chunks read from the input by Consume.  Defaults to
	// scanner.DefaultBufSize.
	BufferSize int
}

// A Decoder parses JSON text written to it.  It implements io.Writer so it
// can be the destination of io.Copy, but Consume is usually more convenient.
type Decoder struct {
	charset *charset.Decoder
	parser  Parser

	bufSize int

	// When true, the decoder stops reading as soon as the top-level value is
	// complete and ignores what follows.
	stopAtEnd bool
}

var _ io.WriteCloser = (*Decoder)(nil)

// NewDecoder returns a decoder for a single JSON value.
func NewDecoder(opts Options) (*Decoder, error) {
	cs, err := charset.NewDecoder(opts.Charset)
	if err != nil {
		return nil, err
	}
	return &Decoder{charset: cs, bufSize: opts.BufferSize}, nil
}

// Write feeds p to the decoder.  It fails as soon as the input is known to be
// invalid.
func (d *Decoder) Write(p []byte) (int, error) {
	if d.stopAtEnd && d.parser.IsComplete() {
		return len(p), nil
	}
	text, err := d.charset.Decode(p)
	if err != nil {
		return 0, err
	}
	for len(text) > 0 {
		r, size := utf8.DecodeRune(text)
		if err := d.parser.Accept(r); err != nil {
			return 0, err
		}
		text = text[size:]
		if d.stopAtEnd && d.parser.IsComplete() {
			break
		}
	}
	return len(p), nil
}

// Close signals the end of the input.  It fails if the input ends with an
// incomplete character or an incomplete JSON value.
func (d *Decoder) Close() error {
	if d.stopAtEnd && d.parser.IsComplete() {
		return nil
	}
	if err := d.charset.Close(); err != nil {
		return err
	}
	return d.parser.End()
}

// Consume reads r until it is exhausted (or, for an array decoder, until the
// array is closed) and closes the decoder.  The context is checked before
// each chunk is read.
func (d *Decoder) Consume(ctx context.Context, r io.Reader) error {
	scanr := scanner.NewScannerSize(r, d.bufSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, err := scanr.Next()
		if len(chunk) > 0 {
			if debug.On {
				debug.Printf("json decoder: chunk of %d bytes at offset %d", len(chunk), scanr.Offset()-int64(len(chunk)))
			}
			if _, werr := d.Write(chunk); werr != nil {
				return werr
			}
			if d.stopAtEnd && d.parser.IsComplete() {
				return nil
			}
		}
		switch err {
		case nil:
		case io.EOF:
			return d.Close()
		default:
			return err
		}
	}
}

// IsComplete is true when a whole top-level value has been read.
func (d *Decoder) IsComplete() bool {
	return d.parser.IsComplete()
}

// Value returns the decoded value, or nil if it is not complete yet.
func (d *Decoder) Value() value.Value {
	return d.parser.Result()
}

// Decode reads a single JSON value from r.  All of r is read and anything
// but whitespace after the value is an error.
func Decode(ctx context.Context, r io.Reader, opts Options) (value.Value, error) {
	d, err := NewDecoder(opts)
	if err != nil {
		return nil, err
	}
	if err := d.Consume(ctx, r); err != nil {
		return nil, err
	}
	return d.Value(), nil
}

// Parse parses UTF-8 encoded JSON text.
func Parse(data []byte) (value.Value, error) {
	var p Parser
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			return nil, &SyntaxError{Pos: p.Pos(), Msg: "invalid UTF-8", Char: r}
		}
		if err := p.Accept(r); err != nil {
			return nil, err
		}
		data = data[size:]
	}
	if err := p.End(); err != nil {
		return nil, err
	}
	return p.Result(), nil
}
