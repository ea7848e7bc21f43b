package albitezip

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// Source provides random access to the archive bytes.
//
// The package never writes through a Source. Implementations must allow
// concurrent ReadAt calls, per the io.ReaderAt contract; *os.File and
// *bytes.Reader qualify as-is. For handles with a single shared seek
// cursor, see NewSeekerSource.
type Source interface {
	io.ReaderAt
	Size() int64
}

// fileSource wraps *os.File to implement Source.
// os.File has ReadAt but not Size, so the size is cached at construction.
type fileSource struct {
	file *os.File
	size int64
}

var _ Source = (*fileSource)(nil)

func newFileSource(f *os.File) (*fileSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive file: %w", err)
	}
	return &fileSource{file: f, size: info.Size()}, nil
}

func (fs *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return fs.file.ReadAt(p, off)
}

func (fs *fileSource) Size() int64 {
	return fs.size
}

func (fs *fileSource) Close() error {
	return fs.file.Close()
}

// NewSeekerSource adapts a handle with a single positional cursor into a
// Source safe for concurrent readers.
//
// Every ReadAt performs its seek and read as one critical section under
// the source's mutex; without that, one reader's seek could be overwritten
// by another's before the paired read executes, corrupting both. All
// consumers of the archive (directory decoding, local header validation,
// entry streams) read through this one serialization point.
//
// The size is taken by seeking to the end once at construction; the
// handle must not change length afterwards.
func NewSeekerSource(rs io.ReadSeeker) (Source, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("seek to end: %w", err)
	}
	return &seekerSource{rs: rs, size: size}, nil
}

type seekerSource struct {
	mu   sync.Mutex
	rs   io.ReadSeeker
	size int64
}

var _ Source = (*seekerSource)(nil)

func (s *seekerSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("read at %d: negative offset", off)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.rs.Seek(off, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek to %d: %w", off, err)
	}
	n, err := io.ReadFull(s.rs, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		// io.ReaderAt reports a short read at end of data as io.EOF.
		err = io.EOF
	}
	return n, err
}

func (s *seekerSource) Size() int64 {
	return s.size
}

// Close closes the underlying handle when it supports closing.
func (s *seekerSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.rs.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
