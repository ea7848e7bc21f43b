package albitezip

import (
	"fmt"
	"hash"
	"io"
	"io/fs"
	"time"
)

// File streams one entry's uncompressed data with incremental CRC-32 and
// size verification. At end of stream the computed checksum and byte count
// are compared against the central directory; a mismatch surfaces as
// ErrChecksum or ErrSizeMismatch instead of io.EOF.
type File struct {
	entry         Entry
	rc            io.ReadCloser
	crc           hash.Hash32
	read          uint64
	verifyOnClose bool

	verified  bool
	verifyErr error
}

// Interface compliance.
var _ fs.File = (*File)(nil)

// Read implements io.Reader with incremental checksum verification.
func (f *File) Read(p []byte) (int, error) {
	if f.verified && f.verifyErr != nil {
		return 0, f.verifyErr
	}

	n, err := f.rc.Read(p)
	if n > 0 {
		f.read += uint64(n)
		if f.read > uint64(f.entry.UncompressedSize) {
			f.verified = true
			f.verifyErr = fmt.Errorf("%w: %q inflates past %d bytes",
				ErrSizeMismatch, f.entry.Name, f.entry.UncompressedSize)
			return n, f.verifyErr
		}
		_, _ = f.crc.Write(p[:n]) //nolint:errcheck // hash writes never fail
	}

	if err == io.EOF {
		if verifyErr := f.verify(); verifyErr != nil {
			return n, verifyErr
		}
		return n, io.EOF
	}
	return n, err
}

// Stat returns file info for the entry.
func (f *File) Stat() (fs.FileInfo, error) {
	return newInfo(f.entry.clone()), nil
}

// Close releases the stream. Unless disabled, remaining data is drained
// first so the checksum can be verified even when the caller stopped
// short of EOF.
func (f *File) Close() error {
	if f.verifyOnClose && !f.verified {
		if _, err := io.Copy(io.Discard, f); err != nil {
			f.rc.Close()
			return err
		}
	}
	closeErr := f.rc.Close()
	if f.verified && f.verifyErr != nil {
		return f.verifyErr
	}
	return closeErr
}

func (f *File) verify() error {
	if f.verified {
		return f.verifyErr
	}
	f.verified = true
	if f.read != uint64(f.entry.UncompressedSize) {
		f.verifyErr = fmt.Errorf("%w: %q: read %d bytes, want %d",
			ErrSizeMismatch, f.entry.Name, f.read, f.entry.UncompressedSize)
	} else if sum := f.crc.Sum32(); sum != f.entry.CRC32 {
		f.verifyErr = fmt.Errorf("%w: %q: got %08x, want %08x",
			ErrChecksum, f.entry.Name, sum, f.entry.CRC32)
	}
	return f.verifyErr
}

// Info implements fs.FileInfo for archive entries.
type Info struct {
	entry Entry
	name  string
}

func newInfo(entry Entry) *Info {
	return &Info{entry: entry, name: baseName(entry.Name)}
}

func (fi *Info) Name() string       { return fi.name }
func (fi *Info) Size() int64        { return int64(fi.entry.UncompressedSize) }
func (fi *Info) ModTime() time.Time { return fi.entry.ModTime() }
func (fi *Info) IsDir() bool        { return fi.entry.IsDir() }
func (fi *Info) Sys() any           { return nil }

func (fi *Info) Mode() fs.FileMode {
	if fi.entry.IsDir() {
		return fs.ModeDir | 0o755
	}
	return 0o644
}

// Entry returns a copy of the underlying entry metadata.
func (fi *Info) Entry() Entry {
	return fi.entry.clone()
}
