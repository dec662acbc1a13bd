// Package charset converts between raw bytes in a given text encoding and
// the UTF-8 text consumed by the JSON parser.
//
// Encoding names are resolved with the WHATWG encoding labels (e.g. "utf-8",
// "latin1", "windows-1252", "utf-16le").
package charset

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Default is the name of the encoding used when none is specified.
const Default = "utf-8"

// ErrEncoding is wrapped by all errors caused by input bytes that are not
// valid in the configured encoding.
var ErrEncoding = errors.New("invalid encoding")

// Lookup returns the encoding with the given name and its canonical name.
// An empty name means Default.
func Lookup(name string) (encoding.Encoding, string, error) {
	if name == "" {
		name = Default
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, "", fmt.Errorf("unsupported charset %q: %w", name, err)
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		return nil, "", fmt.Errorf("unsupported charset %q: %w", name, err)
	}
	return enc, canonical, nil
}

// IsUTF8 reports whether name designates UTF-8.
func IsUTF8(name string) bool {
	_, canonical, err := Lookup(name)
	return err == nil && canonical == Default
}

// A Decoder turns chunks of bytes into UTF-8 text.  Incomplete multi-byte
// sequences at the end of a chunk are kept until the next chunk arrives.
type Decoder struct {
	name    string
	t       transform.Transformer
	pending []byte
	out     []byte

	// Number of input bytes consumed so far
	offset int64
}

// NewDecoder returns a decoder for the named encoding.
func NewDecoder(name string) (*Decoder, error) {
	enc, canonical, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	d := &Decoder{name: canonical}
	if canonical == Default {
		// The UTF-8 decoder of x/text silently replaces invalid bytes, the
		// validator reports them.
		d.t = encoding.UTF8Validator
	} else {
		d.t = enc.NewDecoder()
	}
	return d, nil
}

// Name returns the canonical name of the decoder's encoding.
func (d *Decoder) Name() string {
	return d.name
}

// Decode returns the UTF-8 text for all the complete characters available
// after adding p to the input.  The returned slice is only valid until the
// next call to Decode.
func (d *Decoder) Decode(p []byte) ([]byte, error) {
	src := p
	if len(d.pending) > 0 {
		d.pending = append(d.pending, p...)
		src = d.pending
	}
	d.out = d.out[:0]
	if cap(d.out) < len(src) {
		d.out = make([]byte, 0, len(src)+utf8Slack)
	}
	for {
		nDst, nSrc, err := d.t.Transform(d.out[len(d.out):cap(d.out)], src, false)
		d.out = d.out[:len(d.out)+nDst]
		d.offset += int64(nSrc)
		src = src[nSrc:]
		switch err {
		case nil:
			d.pending = d.pending[:0]
			return d.out, nil
		case transform.ErrShortDst:
			grown := make([]byte, len(d.out), 2*cap(d.out)+utf8Slack)
			copy(grown, d.out)
			d.out = grown
		case transform.ErrShortSrc:
			// src may be a suffix of d.pending, append copies with memmove
			// semantics so the overlap is fine.
			d.pending = append(d.pending[:0], src...)
			return d.out, nil
		default:
			return nil, fmt.Errorf("%w: %s input at byte %d: %s", ErrEncoding, d.name, d.offset, err)
		}
	}
}

// Close signals the end of the input.  It fails if a partial character is
// still buffered.
func (d *Decoder) Close() error {
	if len(d.pending) > 0 {
		return fmt.Errorf("%w: %s input ends with an incomplete character at byte %d", ErrEncoding, d.name, d.offset)
	}
	return nil
}

// Encode converts UTF-8 text to the named encoding.  The text is returned
// unchanged for UTF-8.
func Encode(name string, text []byte) ([]byte, error) {
	enc, canonical, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if canonical == Default {
		return text, nil
	}
	out, err := enc.NewEncoder().Bytes(text)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot encode as %s: %s", ErrEncoding, canonical, err)
	}
	return out, nil
}

// NewWriter returns a writer converting UTF-8 text written to it into the
// named encoding before passing it to w.  The returned writer must be closed
// to flush its output.
func NewWriter(name string, w io.Writer) (io.WriteCloser, error) {
	enc, canonical, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if canonical == Default {
		return nopCloser{w}, nil
	}
	return transform.NewWriter(w, enc.NewEncoder()), nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Extra room so that a few multi-byte characters can be output without
// growing the buffer.
const utf8Slack = 16
