package albitezip

import (
	"slices"
	"strings"
	"time"
)

// Compression method codes consumed by this package.
const (
	// Stored means the entry payload is uncompressed.
	Stored uint16 = 0

	// Deflated means the entry payload is DEFLATE-compressed.
	Deflated uint16 = 8
)

// Entry describes a single archive entry, decoded from the central
// directory. Size and checksum fields are the central directory's
// unsigned 32-bit values; no field is ever sign-extended.
type Entry struct {
	// Name is the entry's path within the archive, the unique key in the
	// index. Names are at most 65535 bytes. When the central directory
	// lists the same name twice, the later record wins.
	Name string

	// Method is the compression method code (Stored or Deflated).
	Method uint16

	// CRC32 is the checksum of the uncompressed data.
	CRC32 uint32

	// CompressedSize and UncompressedSize are byte counts of the entry
	// payload before and after decompression.
	CompressedSize   uint32
	UncompressedSize uint32

	// ModifiedDate and ModifiedTime hold the modification timestamp in
	// the format's native MS-DOS packed encoding. Use ModTime for a
	// decoded time.Time.
	ModifiedDate uint16
	ModifiedTime uint16

	// Extra is the central directory's raw extra field, if any. The
	// local header carries its own, independent extra field whose length
	// may differ.
	Extra []byte

	// Comment is the entry comment, if any.
	Comment string

	// headerOffset is the absolute offset of the entry's local header,
	// taken verbatim from the central directory. It is re-validated
	// against the local header before any payload read.
	headerOffset int64
}

// ModTime decodes the entry's MS-DOS timestamp. Out-of-range date
// components are clamped to their minimum, matching how the encoding is
// conventionally handled. The result is in UTC; the format records no
// zone.
func (e *Entry) ModTime() time.Time {
	day := e.ModifiedDate & 0x1F
	month := (e.ModifiedDate >> 5) & 0x0F
	year := int((e.ModifiedDate>>9)&0x7F) + 1980
	second := (e.ModifiedTime & 0x1F) * 2
	minute := (e.ModifiedTime >> 5) & 0x3F
	hour := (e.ModifiedTime >> 11) & 0x1F

	if month < 1 || month > 12 {
		month = 1
	}
	if day < 1 {
		day = 1
	}

	return time.Date(year, time.Month(month), int(day), int(hour), int(minute), int(second), 0, time.UTC)
}

// IsDir reports whether the entry is a directory placeholder, following
// the convention that directory entries end in a slash.
func (e *Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/")
}

// clone returns a copy that shares no mutable state with the index, so
// callers cannot corrupt cached metadata through a returned Entry.
func (e *Entry) clone() Entry {
	c := *e
	c.Extra = slices.Clone(e.Extra)
	return c
}
