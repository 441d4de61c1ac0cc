package testutil

import (
	"errors"
	"fmt"
	"io"
)

// SeekBuffer is an in-memory io.WriteSeeker. Writes past the end extend the
// buffer; writes before it overwrite in place.
type SeekBuffer struct {
	data []byte
	pos  int
}

func (s *SeekBuffer) Write(p []byte) (int, error) {
	end := s.pos + len(p)
	if end > len(s.data) {
		s.data = append(s.data, make([]byte, end-len(s.data))...)
	}
	copy(s.data[s.pos:], p)
	s.pos = end

	return len(p), nil
}

func (s *SeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(s.pos) + offset
	case io.SeekEnd:
		next = int64(len(s.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if next < 0 {
		return 0, errors.New("seek before start")
	}
	s.pos = int(next)

	return next, nil
}

// Bytes returns the written contents.
func (s *SeekBuffer) Bytes() []byte { return s.data }

// ErrInjected is returned by FailingWriteSeeker once its budget is spent.
var ErrInjected = errors.New("injected write failure")

// FailingWriteSeeker accepts Budget bytes and then fails every write.
type FailingWriteSeeker struct {
	SeekBuffer
	Budget int
}

func (f *FailingWriteSeeker) Write(p []byte) (int, error) {
	if len(p) > f.Budget {
		n, _ := f.SeekBuffer.Write(p[:f.Budget])
		f.Budget = 0
		return n, ErrInjected
	}
	f.Budget -= len(p)

	return f.SeekBuffer.Write(p)
}
