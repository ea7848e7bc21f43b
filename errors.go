package albitezip

import (
	"errors"
	"io/fs"
)

var (
	// ErrFormat is returned when the bytes do not conform to the ZIP
	// structure: missing end-of-central-directory record, wrong record
	// signature, or a local header that contradicts the central directory.
	// The operation is never retried internally; malformed data stays
	// malformed.
	ErrFormat = errors.New("zip: not a valid zip archive")

	// ErrTruncated is returned when the source yields fewer bytes than a
	// record requires, indicating a corrupt or partial archive.
	ErrTruncated = errors.New("zip: truncated archive")

	// ErrClosed is returned by any operation on an archive after Close.
	ErrClosed = errors.New("zip: archive closed")

	// ErrAlgorithm is returned when an entry uses a compression method
	// with no registered decompressor.
	ErrAlgorithm = errors.New("zip: unsupported compression method")

	// ErrChecksum is returned when an entry's data does not match the
	// CRC-32 recorded in the central directory.
	ErrChecksum = errors.New("zip: checksum mismatch")

	// ErrSizeMismatch is returned when an entry's decompressed data does
	// not match the uncompressed size recorded in the central directory.
	ErrSizeMismatch = errors.New("zip: uncompressed size mismatch")

	// ErrNotExist is returned when the requested entry name is absent
	// from the archive. It aliases fs.ErrNotExist so callers can test
	// with errors.Is against either.
	ErrNotExist = fs.ErrNotExist
)
