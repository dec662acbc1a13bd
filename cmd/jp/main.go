package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/arnodel/jsonhttp"
	"github.com/arnodel/jsonhttp/encoding/json"
	"github.com/arnodel/jsonhttp/value"
)

func main() {
	// Do not handle SIGPIPE, we'll do it ourselves (see error handling at the bottom of run).
	signal.Ignore(syscall.SIGPIPE)

	// Display a stack trace on panic
	defer func() {
		if e := recover(); e != nil {
			fmt.Fprintf(os.Stderr, "%s: %s", e, debug.Stack())
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("jp", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { printUsage(stderr) }

	// Parse the command line arguments
	var method string
	var body string
	var header = make(http.Header)
	var expectedStatus int
	var stream bool
	var charsetName string
	var bufferSize int
	var jsonIndent int
	var jsonCompact bool
	var colorMode string
	var verbose bool

	flags.StringVar(&method, "X", "", "HTTP method (default GET, or POST with -d)")
	flags.StringVar(&body, "d", "", "JSON request body")
	flags.Func("H", "request header 'Name: value' (repeatable)", func(s string) error {
		name, val, ok := strings.Cut(s, ":")
		if !ok {
			return fmt.Errorf("invalid header %q, expected 'Name: value'", s)
		}
		header.Add(strings.TrimSpace(name), strings.TrimSpace(val))
		return nil
	})
	flags.IntVar(&expectedStatus, "status", http.StatusOK, "expected response status with -stream")
	flags.BoolVar(&stream, "stream", false, "print each element of a top-level array as soon as it is received")
	flags.StringVar(&charsetName, "charset", jsonhttp.DefaultCharset, "charset of the input when not given by the server")
	flags.IntVar(&bufferSize, "buffer", jsonhttp.DefaultReadBufferSize, "read buffer size in bytes")
	flags.IntVar(&jsonIndent, "json-indent", 2, "JSON indentation level (only used when -json-compact is false)")
	flags.BoolVar(&jsonCompact, "json-compact", false, "output JSON on a single line")
	flags.StringVar(&colorMode, "color", "auto", "colorize output: auto, always, never")
	flags.BoolVar(&verbose, "v", false, "log HTTP requests to stderr")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if flags.NArg() > 1 {
		return usageError(stderr, "too many arguments")
	}
	source := "-"
	if flags.NArg() == 1 {
		source = flags.Arg(0)
	}

	// Handle color mode
	out, isTerminal := terminal(stdout)
	var colorizer *value.Colorizer
	switch colorMode {
	case "always":
		colorizer = &defaultColorizer
	case "never":
	case "auto":
		if isTerminal {
			colorizer = &defaultColorizer
		}
	default:
		return usageError(stderr, "invalid -color value: %q (use auto, always, or never)", colorMode)
	}
	if colorizer != nil {
		if f, ok := stdout.(*os.File); ok {
			out = colorable.NewColorable(f)
		}
	}

	codec, err := jsonhttp.New(
		jsonhttp.WithCharset(charsetName),
		jsonhttp.WithReadBufferSize(bufferSize),
	)
	if err != nil {
		return fatalError(stderr, "error: %s", err)
	}

	logger := zap.NewNop()
	if verbose {
		logger = zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(stderr),
			zap.DebugLevel,
		))
	}
	defer logger.Sync()

	// Write the output to stdout
	w := bufio.NewWriter(out)
	defer w.Flush()

	// Set up printer with appropriate indentation
	indentSize := jsonIndent
	if jsonCompact {
		indentSize = -1
	}
	printer := &value.DefaultPrinter{
		Writer:     w,
		IndentSize: indentSize,
	}

	// If we are writing to a terminal or streaming, flush after each value so
	// the user gets feedback early.
	if isTerminal || stream {
		printer.Flusher = w
	}
	encoder := &value.Encoder{Printer: printer, Colorizer: colorizer}
	printValue := func(_ context.Context, v value.Value) error {
		return encoder.Encode(v)
	}

	if source == "-" {
		if stream {
			err = codec.ReadArray(ctx, stdin, printValue)
		} else {
			var v value.Value
			v, err = codec.ReadValue(ctx, stdin)
			if err == nil {
				err = printValue(ctx, v)
			}
		}
	} else {
		clientOpts := []jsonhttp.ClientOption{jsonhttp.WithLogger(logger)}
		for name, vals := range header {
			for _, val := range vals {
				clientOpts = append(clientOpts, jsonhttp.WithHeader(name, val))
			}
		}
		client := jsonhttp.NewClient(codec, clientOpts...)
		var reqBody any
		if body != "" {
			if _, err := json.Parse([]byte(body)); err != nil {
				return usageError(stderr, "invalid -d body: %s", err)
			}
			reqBody = &jsonhttp.TextContent{Text: []byte(body), Type: jsonhttp.ContentTypeJSON}
			if method == "" {
				method = http.MethodPost
			}
		}
		if method == "" {
			method = http.MethodGet
		}
		if stream {
			err = client.StreamArray(ctx, jsonhttp.StreamRequest{
				URL:            source,
				Method:         method,
				Body:           reqBody,
				ExpectedStatus: expectedStatus,
			}, printValue)
		} else {
			var v value.Value
			err = client.Do(ctx, method, source, reqBody, &v)
			if err == nil {
				err = printValue(ctx, v)
			}
		}
	}

	if err != nil {
		if errors.Is(err, syscall.EPIPE) {
			// stdout is a pipe and something closed it (e.g. 'head' or 'less').
			// In this case we don't want to complain.
			return 0
		}
		return fatalError(stderr, "error: %s", err)
	}
	return 0
}

// terminal returns the writer to use for stdout and whether it is a terminal.
func terminal(stdout io.Writer) (io.Writer, bool) {
	if f, ok := stdout.(*os.File); ok {
		return f, isatty.IsTerminal(f.Fd())
	}
	return stdout, false
}

func usageError(stderr io.Writer, msg string, args ...any) int {
	fmt.Fprintf(stderr, msg+"\n", args...)
	fmt.Fprintln(stderr, "Run 'jp -h' for usage.")
	return 2
}

func fatalError(stderr io.Writer, msg string, args ...any) int {
	fmt.Fprintf(stderr, msg+"\n", args...)
	return 1
}

// Some color ANSI codes
var (
	Reset = []byte("\033[0m")

	Yellow     = []byte("\033[33m")
	White      = []byte("\033[37m")
	Green      = []byte("\033[32m")
	DimWhite   = []byte("\033[37;2m")
	BrightBlue = []byte("\033[34;1m")
)

// The colors I chose :)
var defaultColorizer = value.Colorizer{
	ScalarColorCodes: [4][]byte{DimWhite, Green, White, Yellow},
	KeyColorCode:     BrightBlue,
	ResetCode:        Reset,
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `jp - fetch and print JSON

USAGE:
  jp [options] [URL | -]

DESCRIPTION:
  jp sends an HTTP request to URL and pretty-prints the JSON response.  The
  response is parsed as it arrives.  Without URL, or with '-', JSON is read
  from stdin.

  With -stream, the input must be a JSON array and each element is printed as
  soon as it has been received, so very large or slow responses can be
  followed without waiting for the end.

REQUEST OPTIONS:
  -X METHOD         HTTP method (default: GET, or POST with -d)
  -d JSON           Request body
  -H 'Name: value'  Add a request header (can be repeated)
  -status CODE      Expected response status with -stream (default: 200)
  -v                Log requests to stderr

INPUT OPTIONS:
  -stream           Print elements of a top-level array one by one
  -charset NAME     Charset of the input when the server does not give one
                    (default: utf-8)
  -buffer N         Read buffer size in bytes (default: 8192)

JSON OUTPUT OPTIONS:
  -json-compact     Output JSON on a single line
  -json-indent N    Indentation level (default: 2, only used when not compact)

COLOR OPTIONS:
  -color MODE       Control color output (default: auto)
                    Modes: auto, always, never

EXAMPLES:
  # Pretty-print a response
  jp https://api.example.com/items/1

  # Follow a large array, one compact element per line
  jp -stream -json-compact https://api.example.com/items | head -20

  # Post a body
  jp -d '{"name": "x"}' -H 'Authorization: Bearer T' https://api.example.com/items

  # Pretty-print a file
  jp < data.json
`)
}
