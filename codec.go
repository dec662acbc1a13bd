package jsonhttp

import (
	"bytes"
	"context"
	"encoding"
	stdjson "encoding/json"
	"fmt"
	"io"
	"mime"
	"reflect"

	jsoniter "github.com/json-iterator/go"

	"github.com/arnodel/jsonhttp/encoding/charset"
	"github.com/arnodel/jsonhttp/encoding/json"
	"github.com/arnodel/jsonhttp/value"
)

// ContentTypeJSON is the content type used when Write is not given one.
const ContentTypeJSON = "application/json"

// A Codec converts Go values to JSON text and back.  It is safe for
// concurrent use.
type Codec struct {
	config Config
	api    jsoniter.API
}

// New returns a Codec with the default configuration modified by opts.
func New(opts ...Option) (*Codec, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	api := jsoniter.Config{
		EscapeHTML:             true,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
	}.Froze()
	api.RegisterExtension(&registryExtension{registry: config.registry})
	return &Codec{config: config, api: api}, nil
}

// Config returns the configuration of the codec.
func (c *Codec) Config() Config {
	return c.config
}

// Content is an outgoing payload.
type Content interface {
	ContentType() string
	WriteTo(w io.Writer) (int64, error)
}

// TextContent is a payload fully rendered in memory.
type TextContent struct {
	Text []byte
	Type string
}

func (c *TextContent) ContentType() string {
	return c.Type
}

func (c *TextContent) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.Text)
	return int64(n), err
}

// StreamContent is a payload rendered when it is written.
type StreamContent struct {
	Type  string
	codec *Codec
	value any
}

func (c *StreamContent) ContentType() string {
	return c.Type
}

func (c *StreamContent) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{Writer: w}
	err := c.codec.Encode(cw, c.value)
	return cw.n, err
}

type countingWriter struct {
	io.Writer
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.Writer.Write(p)
	w.n += int64(n)
	return n, err
}

// Write turns v into an outgoing payload with the given content type
// (ContentTypeJSON if empty).  If v is already a Content it is returned
// unchanged.  Otherwise the result is a *StreamContent if streaming output is
// configured, a *TextContent if not.
func (c *Codec) Write(v any, contentType string) (Content, error) {
	if content, ok := v.(Content); ok {
		return content, nil
	}
	contentType, err := c.contentType(contentType)
	if err != nil {
		return nil, err
	}
	if c.config.StreamOutput {
		return &StreamContent{Type: contentType, codec: c, value: v}, nil
	}
	text, err := c.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &TextContent{Text: text, Type: contentType}, nil
}

// contentType adds the charset parameter to the content type if the codec
// does not use UTF-8.
func (c *Codec) contentType(contentType string) (string, error) {
	if contentType == "" {
		contentType = ContentTypeJSON
	}
	if charset.IsUTF8(c.config.Charset) {
		return contentType, nil
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("invalid content type %q: %w", contentType, err)
	}
	if _, ok := params["charset"]; !ok {
		params["charset"] = c.config.Charset
	}
	return mime.FormatMediaType(mediaType, params), nil
}

// Marshal returns the JSON text for v in the configured charset.
func (c *Codec) Marshal(v any) ([]byte, error) {
	text, err := c.api.Marshal(v)
	if err != nil {
		return nil, err
	}
	return charset.Encode(c.config.Charset, text)
}

// Encode writes the JSON text for v to w in the configured charset.  The
// output is identical to that of Marshal, but it is flushed to w every time
// ReadBufferSize bytes are pending.  Slices and arrays are rendered one
// element at a time so large collections are never fully rendered in memory.
func (c *Codec) Encode(w io.Writer, v any) error {
	cw, err := charset.NewWriter(c.config.Charset, w)
	if err != nil {
		return err
	}
	stream := jsoniter.NewStream(c.api, cw, c.config.ReadBufferSize)
	c.encodeStream(stream, v)
	if stream.Error != nil {
		return stream.Error
	}
	if err := stream.Flush(); err != nil {
		return err
	}
	return cw.Close()
}

func (c *Codec) encodeStream(stream *jsoniter.Stream, v any) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || !c.isStreamable(rv.Type()) {
		stream.WriteVal(v)
		return
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			stream.WriteNil()
			return
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Slice && rv.IsNil() {
		stream.WriteNil()
		return
	}
	stream.WriteArrayStart()
	for i, n := 0, rv.Len(); i < n; i++ {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteVal(rv.Index(i).Interface())
		if stream.Error != nil {
			return
		}
		if stream.Buffered() >= c.config.ReadBufferSize {
			if err := stream.Flush(); err != nil {
				return
			}
		}
	}
	stream.WriteArrayEnd()
}

var (
	marshalerType     = reflect.TypeOf((*stdjson.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// isStreamable is true if values of type t (possibly behind pointers) are
// rendered by json-iterator as a plain JSON array of their elements.
func (c *Codec) isStreamable(t reflect.Type) bool {
	for {
		if c.hasCustomEncoding(t) {
			return false
		}
		if t.Kind() != reflect.Pointer {
			break
		}
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		// []byte is rendered as base64
		return t.Elem().Kind() != reflect.Uint8
	default:
		return false
	}
}

func (c *Codec) hasCustomEncoding(t reflect.Type) bool {
	if c.config.registry.hasToJSON(t) {
		return true
	}
	pt := reflect.PointerTo(t)
	return t.Implements(marshalerType) || pt.Implements(marshalerType) ||
		t.Implements(textMarshalerType) || pt.Implements(textMarshalerType)
}

func (c *Codec) decodeOptions(charsetName string) json.Options {
	if charsetName == "" {
		charsetName = c.config.Charset
	}
	return json.Options{Charset: charsetName, BufferSize: c.config.ReadBufferSize}
}

// ReadValue reads a single JSON value from r.
func (c *Codec) ReadValue(ctx context.Context, r io.Reader) (value.Value, error) {
	return json.Decode(ctx, r, c.decodeOptions(""))
}

// Read reads a single JSON value from r and stores it in target, which must
// be a non-nil pointer.
func (c *Codec) Read(ctx context.Context, r io.Reader, target any) error {
	v, err := c.ReadValue(ctx, r)
	if err != nil {
		return err
	}
	return c.Deserialize(v, target)
}

// ReadArray reads a top-level JSON array from r and calls handler for each of
// its elements, in order, as soon as they are available.
func (c *Codec) ReadArray(ctx context.Context, r io.Reader, handler func(context.Context, value.Value) error) error {
	return json.DecodeArray(ctx, r, c.decodeOptions(""), handler)
}

// ReadAs reads a single JSON value from r as a T.
func ReadAs[T any](ctx context.Context, c *Codec, r io.Reader) (T, error) {
	var x T
	err := c.Read(ctx, r, &x)
	return x, err
}

// Deserialize stores v into target, which must be a non-nil pointer.  It
// fails with ErrNullValue if v is null and the target type has no null value
// (only pointers, interfaces, maps and slices do).
func (c *Codec) Deserialize(v value.Value, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("cannot deserialize into %T: not a non-nil pointer", target)
	}
	t := rv.Type().Elem()
	if v == nil || v.Kind() == value.NullKind {
		if !isNullable(t) {
			return fmt.Errorf("%w: cannot store null in %s", ErrNullValue, t)
		}
	}
	if fromJSON := c.config.registry.fromJSON(t); fromJSON != nil {
		return fromJSON(v, target)
	}
	return c.api.Unmarshal(value.AppendJSON(nil, v), target)
}

func isNullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	default:
		return false
	}
}

// Unmarshal parses JSON text in the configured charset and stores the result
// in target.
func (c *Codec) Unmarshal(data []byte, target any) error {
	return c.Read(context.Background(), bytes.NewReader(data), target)
}
