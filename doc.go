// Package albitezip reads ZIP archives over an arbitrary random-access
// byte source.
//
// The archive's central directory is decoded lazily, exactly once, on the
// first metadata access. Entry payloads are served as bounded,
// decompressing streams that verify the CRC-32 checksum and uncompressed
// size recorded in the central directory. Before any payload is handed
// out, the entry's local header is re-read and cross-checked against the
// central directory, so a stale or forged directory cannot misdirect
// reads.
//
// An Archive is safe for concurrent use: independent entry streams may be
// open and read from different goroutines at the same time, including over
// sources with a single shared cursor (see NewSeekerSource).
//
// Archive implements fs.FS, fs.StatFS, fs.ReadFileFS, and fs.ReadDirFS.
// ZIP64 extensions, encryption, and multi-volume archives are not
// supported.
package albitezip
