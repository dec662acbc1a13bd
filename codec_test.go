package jsonhttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/arnodel/jsonhttp/value"
)

type dummy1 struct {
	Field1 string `json:"field1"`
	Field2 int    `json:"field2"`
}

type dummy3 struct {
	Dummy1 dummy1 `json:"dummy1"`
	Text   string `json:"text"`
}

type dummy4 struct {
	Listy  []dummy1 `json:"listy"`
	Colour string   `json:"colour"`
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// Renders the text field of dummy3 reversed.
func dummy3ToJSON(d dummy3) (value.Value, error) {
	return value.NewObject(
		value.Field{Key: "dummy1", Value: value.NewObject(
			value.Field{Key: "field1", Value: value.String(d.Dummy1.Field1)},
			value.Field{Key: "field2", Value: value.Number(fmt.Sprint(d.Dummy1.Field2))},
		)},
		value.Field{Key: "text", Value: value.String(reverse(d.Text))},
	), nil
}

func newCodec(t *testing.T, opts ...Option) *Codec {
	t.Helper()
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %s", err)
	}
	return c
}

func TestReadStruct(t *testing.T) {
	c := newCodec(t)
	got, err := ReadAs[dummy1](context.Background(), c, strings.NewReader(`{"field1":"abc","field2":27}`))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got != (dummy1{"abc", 27}) {
		t.Errorf("unexpected value %+v", got)
	}
}

func TestRoundTrip(t *testing.T) {
	c := newCodec(t)
	tests := []struct {
		name  string
		value any
		read  func(r io.Reader) (any, error)
	}{
		{
			name:  "struct",
			value: dummy3{dummy1{"def", 88}, "OK"},
			read: func(r io.Reader) (any, error) {
				return ReadAs[dummy3](context.Background(), c, r)
			},
		},
		{
			name:  "slice of structs",
			value: []dummy1{{"a", 1}, {"b <&> é", -2}},
			read: func(r io.Reader) (any, error) {
				return ReadAs[[]dummy1](context.Background(), c, r)
			},
		},
		{
			name:  "map",
			value: map[string]float64{"x": 1.5, "y": -3e10},
			read: func(r io.Reader) (any, error) {
				return ReadAs[map[string]float64](context.Background(), c, r)
			},
		},
		{
			name:  "string",
			value: "line\nbreak \"quoted\"   😀",
			read: func(r io.Reader) (any, error) {
				return ReadAs[string](context.Background(), c, r)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := c.Marshal(tt.value)
			if err != nil {
				t.Fatalf("Marshal: %s", err)
			}
			got, err := tt.read(bytes.NewReader(text))
			if err != nil {
				t.Fatalf("read: %s", err)
			}
			if fmt.Sprintf("%#v", got) != fmt.Sprintf("%#v", tt.value) {
				t.Errorf("expected %#v, got %#v", tt.value, got)
			}
		})
	}
}

func TestReadNull(t *testing.T) {
	c := newCodec(t)
	ctx := context.Background()

	_, err := ReadAs[dummy1](ctx, c, strings.NewReader("null"))
	if !errors.Is(err, ErrNullValue) {
		t.Errorf("struct: expected ErrNullValue, got %v", err)
	}
	_, err = ReadAs[int](ctx, c, strings.NewReader(" null "))
	if !errors.Is(err, ErrNullValue) {
		t.Errorf("int: expected ErrNullValue, got %v", err)
	}

	p, err := ReadAs[*dummy1](ctx, c, strings.NewReader("null"))
	if err != nil || p != nil {
		t.Errorf("pointer: got (%v, %v)", p, err)
	}
	s, err := ReadAs[[]int](ctx, c, strings.NewReader("null"))
	if err != nil || s != nil {
		t.Errorf("slice: got (%v, %v)", s, err)
	}
}

func TestReadErrors(t *testing.T) {
	c := newCodec(t)
	ctx := context.Background()
	tests := []struct {
		name     string
		input    string
		expected error
	}{
		{"truncated", `{"field1":"abc"`, ErrTruncated},
		{"unterminated string", `{"a": "unterminated`, ErrTruncated},
		{"empty", ``, ErrTruncated},
		{"bad encoding", "{\"field1\":\"\xff\"}", ErrEncoding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadAs[dummy1](ctx, c, strings.NewReader(tt.input))
			if !errors.Is(err, tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, err)
			}
		})
	}

	if _, err := ReadAs[dummy1](ctx, c, strings.NewReader(`{"field1": 12}`)); err == nil {
		t.Error("expected error for mismatched type")
	}
	if err := c.Read(ctx, strings.NewReader(`1`), dummy1{}); err == nil {
		t.Error("expected error for non-pointer target")
	}
}

func TestReadValue(t *testing.T) {
	c := newCodec(t)
	v, err := ReadAs[value.Value](context.Background(), c, strings.NewReader(`{"b": [1, null], "a": "x"}`))
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != `{"b":[1,null],"a":"x"}` {
		t.Errorf("unexpected value %s", v)
	}

	type withRaw struct {
		ID   int         `json:"id"`
		Data value.Value `json:"data"`
	}
	got, err := ReadAs[withRaw](context.Background(), c, strings.NewReader(`{"id": 3, "data": {"z": [true], "y": 1.50}}`))
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != 3 || got.Data.String() != `{"z":[true],"y":1.50}` {
		t.Errorf("unexpected value %+v", got)
	}
	text, err := c.Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != `{"id":3,"data":{"z":[true],"y":1.50}}` {
		t.Errorf("unexpected output %s", text)
	}
}

func TestCustomToJSON(t *testing.T) {
	c := newCodec(t, WithToJSON(dummy3ToJSON))

	text, err := c.Marshal(dummy3{dummy1{"Hello", 2000}, "WORLD"})
	if err != nil {
		t.Fatal(err)
	}
	expected := `{"dummy1":{"field1":"Hello","field2":2000},"text":"DLROW"}`
	if string(text) != expected {
		t.Errorf("expected %s, got %s", expected, text)
	}

	// Nested use of the type
	text, err = c.Marshal(map[string][]dummy3{"items": {{Text: "abc"}}})
	if err != nil {
		t.Fatal(err)
	}
	expected = `{"items":[{"dummy1":{"field1":"","field2":0},"text":"cba"}]}`
	if string(text) != expected {
		t.Errorf("expected %s, got %s", expected, text)
	}
}

func TestCustomConversionError(t *testing.T) {
	errBad := errors.New("bad value")
	c := newCodec(t, WithToJSON(func(time.Duration) (value.Value, error) {
		return nil, errBad
	}))
	if _, err := c.Marshal([]time.Duration{1}); !errors.Is(err, errBad) {
		t.Errorf("expected conversion error, got %v", err)
	}
}

func TestCustomFromJSON(t *testing.T) {
	c := newCodec(t, WithFromJSON(func(v value.Value) (time.Duration, error) {
		s, ok := v.(value.String)
		if !ok {
			return 0, fmt.Errorf("expected string, got %s", v.Kind())
		}
		return time.ParseDuration(string(s))
	}))
	ctx := context.Background()

	d, err := ReadAs[time.Duration](ctx, c, strings.NewReader(`"1m30s"`))
	if err != nil || d != 90*time.Second {
		t.Errorf("top level: got (%s, %v)", d, err)
	}

	type timeout struct {
		Name    string          `json:"name"`
		Timeout time.Duration   `json:"timeout"`
		Others  []time.Duration `json:"others"`
	}
	got, err := ReadAs[timeout](ctx, c, strings.NewReader(`{"name":"x","timeout":"2s","others":["1ms","1h"]}`))
	if err != nil {
		t.Fatal(err)
	}
	if got.Timeout != 2*time.Second || len(got.Others) != 2 || got.Others[1] != time.Hour {
		t.Errorf("unexpected value %+v", got)
	}

	if _, err := ReadAs[timeout](ctx, c, strings.NewReader(`{"timeout": 12}`)); err == nil {
		t.Error("expected conversion error")
	}
}

type largeItem struct {
	ID      int               `json:"id"`
	Name    string            `json:"name"`
	Tags    []string          `json:"tags"`
	Attrs   map[string]string `json:"attrs"`
	Skipped *int              `json:"skipped,omitempty"`
}

func streamValues() map[string]any {
	large := make([]largeItem, 2000)
	for i := range large {
		large[i] = largeItem{
			ID:    i,
			Name:  fmt.Sprintf("item <%d> é", i),
			Tags:  []string{"a", "b"},
			Attrs: map[string]string{"z": "1", "a": "2"},
		}
	}
	var nilSlice []int
	return map[string]any{
		"struct":          dummy3{dummy1{"Hello", 2000}, "WORLD"},
		"empty slice":     []int{},
		"nil slice":       nilSlice,
		"nil pointer":     (*[]int)(nil),
		"pointer":         &[]string{"x", "y"},
		"array":           [3]int{1, 2, 3},
		"bytes":           []byte("hello"),
		"interface slice": []any{1, "two", nil, map[string]int{"b": 2, "a": 1}},
		"values":          []value.Value{value.NewArray(), nil, value.String("<")},
		"custom elements": []dummy3{{Text: "abc"}, {Text: "def"}},
		"times":           []time.Time{time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)},
		"large":           large,
		"nil":             nil,
	}
}

func TestStreamOutputIdentical(t *testing.T) {
	for _, charset := range []string{"utf-8", "latin1"} {
		buffered := newCodec(t, WithCharset(charset), WithToJSON(dummy3ToJSON))
		streamed := newCodec(t, WithCharset(charset), WithToJSON(dummy3ToJSON), WithStreamOutput(true), WithReadBufferSize(100))

		for name, v := range streamValues() {
			t.Run(charset+"/"+name, func(t *testing.T) {
				bc, err := buffered.Write(v, "")
				if err != nil {
					t.Fatal(err)
				}
				sc, err := streamed.Write(v, "")
				if err != nil {
					t.Fatal(err)
				}
				if _, ok := bc.(*TextContent); !ok {
					t.Errorf("expected text content, got %T", bc)
				}
				if _, ok := sc.(*StreamContent); !ok {
					t.Errorf("expected stream content, got %T", sc)
				}
				if bc.ContentType() != sc.ContentType() {
					t.Errorf("content types differ: %q, %q", bc.ContentType(), sc.ContentType())
				}
				var bb, sb bytes.Buffer
				if _, err := bc.WriteTo(&bb); err != nil {
					t.Fatal(err)
				}
				n, err := sc.WriteTo(&sb)
				if err != nil {
					t.Fatal(err)
				}
				if n != int64(sb.Len()) {
					t.Errorf("reported %d bytes, wrote %d", n, sb.Len())
				}
				if !bytes.Equal(bb.Bytes(), sb.Bytes()) {
					t.Errorf("output differs\nbuffered: %.200s\nstreamed: %.200s", bb.Bytes(), sb.Bytes())
				}
			})
		}
	}
}

// Records the size of each write.
type chunkRecorder struct {
	sizes []int
}

func (r *chunkRecorder) Write(p []byte) (int, error) {
	r.sizes = append(r.sizes, len(p))
	return len(p), nil
}

func TestStreamOutputFlushes(t *testing.T) {
	c := newCodec(t, WithReadBufferSize(256))
	items := make([]int, 10000)
	var rec chunkRecorder
	if err := c.Encode(&rec, items); err != nil {
		t.Fatal(err)
	}
	if len(rec.sizes) < 10 {
		t.Fatalf("expected output in many chunks, got %d", len(rec.sizes))
	}
	for _, size := range rec.sizes {
		if size > 256+10 {
			t.Errorf("chunk of %d bytes exceeds the buffer size", size)
		}
	}
}

func TestStreamOutputWriteError(t *testing.T) {
	errWrite := errors.New("connection closed")
	c := newCodec(t, WithReadBufferSize(16))
	err := c.Encode(failingWriter{errWrite}, make([]int, 100))
	if !errors.Is(err, errWrite) {
		t.Errorf("expected write error, got %v", err)
	}
}

type failingWriter struct {
	err error
}

func (w failingWriter) Write([]byte) (int, error) {
	return 0, w.err
}

func TestWritePassThrough(t *testing.T) {
	c := newCodec(t)
	content := &TextContent{Text: []byte("already rendered"), Type: "text/plain"}
	got, err := c.Write(content, "application/json")
	if err != nil {
		t.Fatal(err)
	}
	if got != Content(content) {
		t.Errorf("expected content to be passed through, got %#v", got)
	}
}

func TestWriteContentType(t *testing.T) {
	content, err := newCodec(t).Write(1, "")
	if err != nil {
		t.Fatal(err)
	}
	if content.ContentType() != "application/json" {
		t.Errorf("unexpected content type %q", content.ContentType())
	}

	content, err = newCodec(t, WithCharset("ISO-8859-1")).Write("é", "application/vnd.api+json")
	if err != nil {
		t.Fatal(err)
	}
	if content.ContentType() != "application/vnd.api+json; charset=windows-1252" {
		t.Errorf("unexpected content type %q", content.ContentType())
	}
	if text := content.(*TextContent).Text; string(text) != "\"\xe9\"" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestCharsetRead(t *testing.T) {
	c := newCodec(t, WithCharset("latin1"))
	got, err := ReadAs[dummy1](context.Background(), c, strings.NewReader("{\"field1\":\"caf\xe9\",\"field2\":1}"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Field1 != "café" {
		t.Errorf("unexpected value %q", got.Field1)
	}
}

func TestReadArray(t *testing.T) {
	c := newCodec(t, WithReadBufferSize(3))
	var got []string
	err := c.ReadArray(context.Background(), strings.NewReader(`[{"a":1},{"a":2}]`), func(_ context.Context, v value.Value) error {
		got = append(got, v.String())
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, " ") != `{"a":1} {"a":2}` {
		t.Errorf("unexpected elements %v", got)
	}
}

func TestInvalidConfig(t *testing.T) {
	if _, err := New(WithCharset("no-such-charset")); err == nil {
		t.Error("expected error for unknown charset")
	}
	if _, err := New(WithReadBufferSize(0)); err == nil {
		t.Error("expected error for zero buffer size")
	}
	c := newCodec(t, WithCharset("UTF8"))
	if c.Config().Charset != "utf-8" || c.Config().ReadBufferSize != DefaultReadBufferSize {
		t.Errorf("unexpected config %+v", c.Config())
	}
}
