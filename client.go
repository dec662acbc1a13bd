package jsonhttp

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/arnodel/jsonhttp/encoding/json"
	"github.com/arnodel/jsonhttp/value"
)

// RequestIDHeader is set on every request sent by a Client.
const RequestIDHeader = "X-Request-Id"

// A Client sends HTTP requests with JSON bodies and decodes JSON responses
// with a Codec.  It is safe for concurrent use.
type Client struct {
	codec   *Codec
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	header  http.Header
}

// A ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client (http.DefaultClient by
// default).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRateLimit limits the rate at which requests are sent.
func WithRateLimit(r rate.Limit, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(r, burst)
	}
}

// WithLogger sets the logger requests are logged to at debug level.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, val string) ClientOption {
	return func(c *Client) {
		c.header.Add(key, val)
	}
}

// NewClient returns a client using codec for request and response bodies.
func NewClient(codec *Codec, opts ...ClientOption) *Client {
	c := &Client{
		codec:  codec,
		http:   http.DefaultClient,
		logger: zap.NewNop(),
		header: make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Codec returns the codec of the client.
func (c *Client) Codec() *Codec {
	return c.codec
}

// Do sends a request with body (unless nil) serialized as JSON.  If the
// response status is not 2xx it returns a *StatusError, otherwise the response
// body is decoded into target (unless nil).
func (c *Client) Do(ctx context.Context, method, url string, body, target any) error {
	resp, _, err := c.send(ctx, method, url, body, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, URL: url, StatusCode: resp.StatusCode}
	}
	if target == nil {
		return nil
	}
	v, err := json.Decode(ctx, resp.Body, c.codec.decodeOptions(responseCharset(resp)))
	if err != nil {
		return err
	}
	return c.codec.Deserialize(v, target)
}

// Get is Do with the GET method and no body.
func (c *Client) Get(ctx context.Context, url string, target any) error {
	return c.Do(ctx, http.MethodGet, url, nil, target)
}

// Post is Do with the POST method.
func (c *Client) Post(ctx context.Context, url string, body, target any) error {
	return c.Do(ctx, http.MethodPost, url, body, target)
}

// A StreamRequest describes a request whose response is a JSON array to be
// processed one element at a time.
type StreamRequest struct {
	URL    string
	Method string // GET if empty
	Body   any    // Serialized with the codec unless nil
	Header http.Header

	// Status the response must have, http.StatusOK if 0
	ExpectedStatus int
}

// StreamArray performs req and calls handler for each element of the JSON
// array in the response body, in order.  The next part of the body is not read
// until handler returns.
//
// If the response status is not the expected one, it returns a *StatusError
// matching ErrNotFound for a 404 and ErrUnexpectedStatus otherwise.
func (c *Client) StreamArray(ctx context.Context, req StreamRequest, handler func(context.Context, value.Value) error) error {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	expected := req.ExpectedStatus
	if expected == 0 {
		expected = http.StatusOK
	}
	resp, logger, err := c.send(ctx, method, req.URL, req.Body, req.Header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != expected {
		return &StatusError{Method: method, URL: req.URL, StatusCode: resp.StatusCode, Expected: expected}
	}
	var count int
	err = json.DecodeArray(ctx, resp.Body, c.codec.decodeOptions(responseCharset(resp)), func(ctx context.Context, v value.Value) error {
		count++
		return handler(ctx, v)
	})
	logger.Debug("array streamed",
		zap.Int("elements", count),
		zap.Error(err))
	return err
}

// StreamArrayOf is like Client.StreamArray but deserializes each element
// into a T before passing it to handler.
func StreamArrayOf[T any](ctx context.Context, c *Client, req StreamRequest, handler func(context.Context, T) error) error {
	return c.StreamArray(ctx, req, func(ctx context.Context, v value.Value) error {
		var x T
		if err := c.codec.Deserialize(v, &x); err != nil {
			return err
		}
		return handler(ctx, x)
	})
}

// send performs the request and returns the response with a logger tagged
// with the request id.
func (c *Client) send(ctx context.Context, method, url string, body any, header http.Header) (*http.Response, *zap.Logger, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
	}
	var bodyReader io.Reader
	var contentType string
	if body != nil {
		content, err := c.codec.Write(body, "")
		if err != nil {
			return nil, nil, err
		}
		bodyReader = contentReader(content)
		contentType = content.ContentType()
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		// Stops the goroutine writing a streamed body.
		if rc, ok := bodyReader.(io.Closer); ok {
			rc.Close()
		}
		return nil, nil, err
	}
	for k, vs := range c.header {
		req.Header[k] = append(req.Header[k], vs...)
	}
	for k, vs := range header {
		req.Header[k] = append(req.Header[k], vs...)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", ContentTypeJSON)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	logger := c.logger.With(zap.String("request_id", requestID))
	logger.Debug("sending request", zap.String("method", method), zap.String("url", url))
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Debug("request failed", zap.Error(err))
		return nil, nil, err
	}
	logger.Debug("received response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	return resp, logger, nil
}

// contentReader returns a reader for the bytes of content.  Content that is
// not already in memory is written into a pipe by a goroutine, which stops
// when the reader is closed.
func contentReader(content Content) io.ReadCloser {
	if text, ok := content.(*TextContent); ok {
		return io.NopCloser(bytes.NewReader(text.Text))
	}
	pr, pw := io.Pipe()
	go func() {
		_, err := content.WriteTo(pw)
		pw.CloseWithError(err)
	}()
	return pr
}

// responseCharset returns the charset parameter of the response content type,
// if any.
func responseCharset(resp *http.Response) string {
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return params["charset"]
}
