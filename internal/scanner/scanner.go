package scanner

import (
	"io"
)

// A Scanner pulls chunks of bytes out of a reader.  The chunk returned by Next
// is only valid until the following call to Next, as the underlying buffer is
// reused.
type Scanner struct {
	reader io.Reader
	buf    []byte

	// Number of bytes handed out so far
	offset int64

	err error
}

func NewScanner(reader io.Reader) *Scanner {
	return NewScannerSize(reader, DefaultBufSize)
}

// NewScannerSize returns a Scanner whose chunks are at most size bytes long.
// A size <= 0 means DefaultBufSize.
func NewScannerSize(reader io.Reader, size int) *Scanner {
	if size <= 0 {
		size = DefaultBufSize
	}
	return &Scanner{
		reader: reader,
		buf:    make([]byte, size),
	}
}

// Next returns the next non-empty chunk of input.  When the input is
// exhausted it returns a nil chunk and io.EOF.  A reader which keeps returning
// no data and no error eventually causes io.ErrNoProgress.
//
// A chunk may be returned together with a non-nil error, in which case the
// chunk should be processed before the error is considered.
func (s *Scanner) Next() ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := maxConsecutiveEmptyReads; i > 0; i-- {
		n, err := s.reader.Read(s.buf)
		s.offset += int64(n)
		if err != nil {
			s.err = err
			if n > 0 {
				return s.buf[:n], err
			}
			return nil, err
		}
		if n > 0 {
			return s.buf[:n], nil
		}
	}
	s.err = io.ErrNoProgress
	return nil, s.err
}

// Offset returns the number of bytes read so far.
func (s *Scanner) Offset() int64 {
	return s.offset
}

const (
	maxConsecutiveEmptyReads = 100
	DefaultBufSize           = 8192
)
