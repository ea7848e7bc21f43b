package albitezip

import (
	"io"

	"github.com/klauspost/compress/flate"
)

// Decompressor returns a reader that decompresses entry data from r.
// The reader r is bounded to the entry's compressed-size window.
type Decompressor func(r io.Reader) io.ReadCloser

// storedDecompressor is the identity pass-through for Stored entries.
func storedDecompressor(r io.Reader) io.ReadCloser {
	return io.NopCloser(r)
}

// deflateDecompressor wraps the window with a raw DEFLATE inflater.
func deflateDecompressor(r io.Reader) io.ReadCloser {
	return flate.NewReader(r)
}
