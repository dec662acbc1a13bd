package json

import (
	"context"
	"io"

	"github.com/arnodel/jsonhttp/value"
)

// NewArrayDecoder returns a decoder for a top-level JSON array.  Instead of
// building the array, it passes each element to handler as soon as the
// element is complete, so memory use does not grow with the number of
// elements.  Input after the closing ']' is ignored.
func NewArrayDecoder(opts Options, handler func(value.Value) error) (*Decoder, error) {
	d, err := NewDecoder(opts)
	if err != nil {
		return nil, err
	}
	d.parser.requireArray = true
	d.parser.onElement = handler
	d.stopAtEnd = true
	return d, nil
}

// DecodeArray reads a top-level JSON array from r, calling handler for each
// element in order.  No more input is read until handler returns, and
// decoding stops with the handler's error if it returns one.  Once ctx is
// done, handler is no longer called.
func DecodeArray(ctx context.Context, r io.Reader, opts Options, handler func(context.Context, value.Value) error) error {
	d, err := NewArrayDecoder(opts, func(v value.Value) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return handler(ctx, v)
	})
	if err != nil {
		return err
	}
	return d.Consume(ctx, r)
}
