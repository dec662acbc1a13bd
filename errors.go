package jsonhttp

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/arnodel/jsonhttp/encoding/charset"
	"github.com/arnodel/jsonhttp/encoding/json"
)

var (
	// ErrNullValue is returned when JSON null is read into a type which
	// cannot represent it.
	ErrNullValue = errors.New("null value for non-nullable type")

	// ErrNotFound is matched by a *StatusError for a 404 response.
	ErrNotFound = errors.New("not found")

	// ErrUnexpectedStatus is matched by a *StatusError for any other
	// response status that was not expected.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// Errors of the decoding pipeline, for convenience.
	ErrTruncated = json.ErrTruncated
	ErrNotArray  = json.ErrNotArray
	ErrEncoding  = charset.ErrEncoding
)

// A StatusError is returned when a response does not have the expected
// status.  Use errors.Is with ErrNotFound or ErrUnexpectedStatus to tell the
// cases apart.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int

	// Expected status, or 0 if any 2xx status was acceptable
	Expected int
}

func (e *StatusError) Error() string {
	expected := "2xx"
	if e.Expected != 0 {
		expected = fmt.Sprint(e.Expected)
	}
	return fmt.Sprintf("%s %s: expected status %s, got %d %s", e.Method, e.URL, expected, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *StatusError) Is(target error) bool {
	if e.StatusCode == http.StatusNotFound {
		return target == ErrNotFound
	}
	return target == ErrUnexpectedStatus
}
