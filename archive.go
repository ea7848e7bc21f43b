package albitezip

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dumbledore/albitezip/internal/record"
)

// Interface compliance.
var (
	_ fs.FS         = (*Archive)(nil)
	_ fs.StatFS     = (*Archive)(nil)
	_ fs.ReadFileFS = (*Archive)(nil)
	_ fs.ReadDirFS  = (*Archive)(nil)
)

// Archive reads a ZIP archive over a Source.
//
// The central directory is decoded on first metadata access, exactly once,
// and cached until Close. Opening the archive itself validates nothing: a
// malformed directory surfaces on the first metadata access, and a
// malformed local header only on the first attempt to open that entry's
// stream, leaving other entries usable.
type Archive struct {
	src           Source
	name          string
	verifyOnClose bool
	decompressors map[uint16]Decompressor
	logger        *slog.Logger

	readGroup singleflight.Group // zero value is valid

	mu     sync.Mutex
	idx    *index // nil until the first metadata access
	closed bool
}

// index is the name-keyed entry table, immutable once built.
type index struct {
	byName map[string]*Entry
	names  []string // sorted, for stable enumeration and prefix scans
	// declared is the entry count stated by the end-of-central-directory
	// record. Kept for diagnostics; duplicate names make it exceed
	// len(byName) and that is tolerated, not enforced.
	declared int
}

// New creates an Archive reading from src.
//
// If src implements io.Closer, the archive owns it and Close closes it.
func New(src Source, opts ...Option) *Archive {
	a := &Archive{
		src:           src,
		verifyOnClose: true,
		decompressors: map[uint16]Decompressor{
			Stored:   storedDecompressor,
			Deflated: deflateDecompressor,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// OpenFile opens the ZIP archive at path.
func OpenFile(path string, opts ...Option) (*Archive, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	src, err := newFileSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return New(src, append([]Option{WithName(path)}, opts...)...), nil
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// Name returns the archive's diagnostic name, typically the file path.
func (a *Archive) Name() string {
	return a.name
}

// Close discards the entry index and releases the source when the archive
// owns it (the source implements io.Closer). Repeated closes are safe and
// return nil, but every other operation after the first Close fails with
// ErrClosed. Closing while entry streams are still in use is undefined;
// release streams first.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	a.idx = nil
	a.log().Debug("archive closed", "name", a.name)

	if c, ok := a.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Entries returns all entries sorted by name. Duplicate names in the
// central directory collapse to the last occurrence. The returned entries
// are copies; mutating them does not affect later lookups.
func (a *Archive) Entries() ([]Entry, error) {
	idx, err := a.index()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(idx.names))
	for _, name := range idx.names {
		entries = append(entries, idx.byName[name].clone())
	}
	return entries, nil
}

// Entry returns the entry with the exact given name, or ErrNotExist.
// The returned entry is a copy; mutating it does not affect later lookups.
func (a *Archive) Entry(name string) (Entry, error) {
	idx, err := a.index()
	if err != nil {
		return Entry{}, err
	}
	e, ok := idx.byName[name]
	if !ok {
		return Entry{}, fmt.Errorf("entry %q: %w", name, ErrNotExist)
	}
	return e.clone(), nil
}

// Len returns the number of distinct entry names in the archive.
func (a *Archive) Len() (int, error) {
	idx, err := a.index()
	if err != nil {
		return 0, err
	}
	return len(idx.byName), nil
}

// Open returns a stream of the named entry's uncompressed data,
// implementing fs.FS. The entry's local header is validated against the
// central directory before any payload byte is read. The stream verifies
// the CRC-32 and uncompressed size while reading; Close drains and
// verifies unless disabled with WithVerifyOnClose(false).
//
// For names that are directory prefixes of entries (or "."), Open returns
// a synthetic directory handle supporting ReadDir. Names that do not
// satisfy fs.ValidPath fail with fs.ErrInvalid even when the archive
// stores an entry under that literal name; Entry still resolves such
// names byte-exactly.
func (a *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	idx, err := a.index()
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	e, ok := idx.byName[name]
	if !ok {
		if idx.isDir(name) {
			return &openDir{idx: idx, name: name}, nil
		}
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrNotExist}
	}

	dataOffset, err := a.checkLocalHeader(e)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	decompress, ok := a.decompressors[e.Method]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fmt.Errorf("%w: %d", ErrAlgorithm, e.Method)}
	}

	a.log().Debug("open entry", "name", name, "method", e.Method, "compressed", e.CompressedSize)

	window := io.NewSectionReader(a.src, dataOffset, int64(e.CompressedSize))
	return &File{
		entry:         e.clone(),
		rc:            decompress(window),
		crc:           crc32.NewIEEE(),
		verifyOnClose: a.verifyOnClose,
	}, nil
}

// ReadFile reads the named entry's entire uncompressed content,
// implementing fs.ReadFileFS. Concurrent calls for the same name are
// deduplicated, sharing one decode.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}

	result, err, _ := a.readGroup.Do(name, func() (any, error) {
		f, err := a.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		return content, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil //nolint:errcheck // type assertion always succeeds when err is nil
}

// Stat returns file info for the named entry without reading its content,
// implementing fs.StatFS. For directory prefixes, Stat returns synthetic
// directory info.
func (a *Archive) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}

	idx, err := a.index()
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}

	if e, ok := idx.byName[name]; ok {
		return newInfo(e.clone()), nil
	}
	if idx.isDir(name) {
		return newDirInfo(baseName(name)), nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: ErrNotExist}
}

// index returns the entry index, building it exactly once under the
// archive lock. Competing first callers serialize here; the losers observe
// the already-built index. A failed build is not cached: the next call
// re-runs the decode and fails the same way, since the format has no
// transient-failure concept.
func (a *Archive) index() (*index, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, ErrClosed
	}
	if a.idx != nil {
		return a.idx, nil
	}

	idx, err := a.readEntries()
	if err != nil {
		return nil, err
	}
	a.idx = idx
	return idx, nil
}

// readEntries locates the end-of-central-directory record and decodes the
// central directory into a fresh index.
func (a *Archive) readEntries() (*index, error) {
	end, err := a.findEndOfCentralDir()
	if err != nil {
		return nil, err
	}

	count := int(end.TotalEntries)
	offset := int64(end.CentralDirOffset)
	if offset > a.src.Size() {
		return nil, fmt.Errorf("%w: central directory offset %d beyond archive end", ErrFormat, offset)
	}

	cd := io.NewSectionReader(a.src, offset, a.src.Size()-offset)
	byName := make(map[string]*Entry, count)

	var sig [4]byte
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(cd, sig[:]); err != nil {
			return nil, truncatedErr(err, fmt.Sprintf("central directory entry %d", i))
		}
		if binary.LittleEndian.Uint32(sig[:]) != record.CentralDirSignature {
			return nil, fmt.Errorf("%w: wrong central directory signature at entry %d", ErrFormat, i)
		}

		rec, err := record.ReadCentralDirEntry(cd)
		if err != nil {
			return nil, truncatedErr(err, fmt.Sprintf("central directory entry %d", i))
		}

		e := &Entry{
			Name:             string(rec.Name),
			Method:           rec.Method,
			CRC32:            rec.CRC32,
			CompressedSize:   rec.CompressedSize,
			UncompressedSize: rec.UncompressedSize,
			ModifiedDate:     rec.ModifiedDate,
			ModifiedTime:     rec.ModifiedTime,
			Extra:            rec.Extra,
			Comment:          string(rec.Comment),
			headerOffset:     int64(rec.LocalHeaderOffset),
		}
		// Directory order decides: a later record overwrites an earlier
		// one with the same name.
		byName[e.Name] = e
	}

	if len(byName) != count {
		a.log().Debug("duplicate entry names collapsed",
			"name", a.name, "declared", count, "distinct", len(byName))
	}
	a.log().Debug("central directory decoded", "name", a.name, "entries", len(byName))

	return &index{
		byName:   byName,
		names:    slices.Sorted(maps.Keys(byName)),
		declared: count,
	}, nil
}

// findEndOfCentralDir scans backward from the end of the source for the
// end-of-central-directory signature. The record may be followed by an
// archive comment, so the signature is not necessarily at the very end;
// the scan covers the maximum comment length (65535 bytes) plus the fixed
// record and then fails fast rather than walking the whole file.
func (a *Archive) findEndOfCentralDir() (record.EndOfCentralDir, error) {
	var end record.EndOfCentralDir

	size := a.src.Size()
	if size < record.EndOfCentralDirLen {
		return end, fmt.Errorf("%w: file too small for an end of central directory record", ErrFormat)
	}

	const chunkSize = 1024
	buf := make([]byte, chunkSize+4)

	lo := max(0, size-(record.MaxVariableLen+record.EndOfCentralDirLen))
	pos := size - record.EndOfCentralDirLen

	for pos >= lo {
		chunkStart := max(lo, pos-chunkSize+1)
		// Cover the candidate at pos fully; chunks overlap by up to three
		// bytes so a signature straddling the boundary is still seen.
		n := int(pos + 4 - chunkStart)
		if _, err := a.src.ReadAt(buf[:n], chunkStart); err != nil {
			return end, fmt.Errorf("read at %d: %w", chunkStart, err)
		}

		for p := n - 4; p >= 0; p-- {
			if binary.LittleEndian.Uint32(buf[p:p+4]) != record.EndOfCentralDirSignature {
				continue
			}
			candidate := chunkStart + int64(p)
			var ebuf [record.EndOfCentralDirLen]byte
			if _, err := a.src.ReadAt(ebuf[:], candidate); err != nil {
				return end, truncatedErr(err, "end of central directory record")
			}
			return record.DecodeEndOfCentralDir(ebuf[:]), nil
		}

		pos = chunkStart - 1
	}

	return end, fmt.Errorf("%w: central directory not found, probably not a zip file: %s", ErrFormat, a.name)
}

// checkLocalHeader re-reads the entry's local header and cross-checks it
// against the central directory, returning the absolute offset of the
// entry's (possibly compressed) payload. The central directory is a
// trailer that can be stale or forged relative to the per-entry headers,
// so it is never trusted blindly. The local extra length may legitimately
// differ from the central directory's; the two are independent slots.
func (a *Archive) checkLocalHeader(e *Entry) (int64, error) {
	var buf [record.LocalHeaderLen]byte
	if _, err := a.src.ReadAt(buf[:], e.headerOffset); err != nil {
		return 0, truncatedErr(err, fmt.Sprintf("local header of %q", e.Name))
	}

	hdr := record.DecodeLocalHeader(buf[:])
	if hdr.Signature != record.LocalHeaderSignature {
		return 0, fmt.Errorf("%w: wrong local header signature for %q", ErrFormat, e.Name)
	}
	if hdr.Method != e.Method {
		return 0, fmt.Errorf("%w: compression method mismatch for %q: local %d, central %d",
			ErrFormat, e.Name, hdr.Method, e.Method)
	}
	if int(hdr.NameLen) != len(e.Name) {
		return 0, fmt.Errorf("%w: name length mismatch for %q: local %d, central %d",
			ErrFormat, e.Name, hdr.NameLen, len(e.Name))
	}

	return e.headerOffset + record.LocalHeaderLen + int64(hdr.NameLen) + int64(hdr.ExtraLen), nil
}

// truncatedErr converts an unexpected end of data into ErrTruncated.
func truncatedErr(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s", ErrTruncated, what)
	}
	return fmt.Errorf("%s: %w", what, err)
}
