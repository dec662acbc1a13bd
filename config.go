package jsonhttp

import (
	"fmt"

	"github.com/arnodel/jsonhttp/encoding/charset"
	"github.com/arnodel/jsonhttp/internal/scanner"
	"github.com/arnodel/jsonhttp/value"
)

const (
	// DefaultCharset is the text encoding used when none is configured.
	DefaultCharset = charset.Default

	// DefaultReadBufferSize is the size of the chunks read from response
	// bodies, and the amount of output buffered before it is flushed in
	// streaming-output mode.
	DefaultReadBufferSize = scanner.DefaultBufSize
)

// Config holds the settings of a Codec.  It cannot be changed once the Codec
// is created.
type Config struct {
	// Text encoding of the JSON text read and written.
	Charset string

	// Size in bytes of the chunks read from the input.
	ReadBufferSize int

	// When true, Write renders values into the outgoing body as it is sent
	// instead of rendering them into memory first.
	StreamOutput bool

	registry *registry
}

// DefaultConfig returns the configuration used by New when no options are
// given.
func DefaultConfig() Config {
	return Config{
		Charset:        DefaultCharset,
		ReadBufferSize: DefaultReadBufferSize,
		registry:       newRegistry(),
	}
}

func (c *Config) validate() error {
	_, name, err := charset.Lookup(c.Charset)
	if err != nil {
		return err
	}
	c.Charset = name
	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("invalid read buffer size %d", c.ReadBufferSize)
	}
	return nil
}

// An Option modifies a Config.
type Option func(*Config)

// WithCharset sets the text encoding, e.g. "utf-8" or "iso-8859-1".
func WithCharset(name string) Option {
	return func(c *Config) {
		c.Charset = name
	}
}

// WithReadBufferSize sets the read buffer size in bytes.
func WithReadBufferSize(size int) Option {
	return func(c *Config) {
		c.ReadBufferSize = size
	}
}

// WithStreamOutput turns streaming output on or off.
func WithStreamOutput(on bool) Option {
	return func(c *Config) {
		c.StreamOutput = on
	}
}

// WithToJSON registers a custom conversion used to render values of type T,
// wherever they appear in the value being written.
func WithToJSON[T any](toJSON func(T) (value.Value, error)) Option {
	return func(c *Config) {
		setToJSON(c.registry, toJSON)
	}
}

// WithFromJSON registers a custom conversion used to build values of type T
// from JSON, wherever they appear in the type being read.
func WithFromJSON[T any](fromJSON func(value.Value) (T, error)) Option {
	return func(c *Config) {
		setFromJSON(c.registry, fromJSON)
	}
}
