package record

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEndOfCentralDir(t *testing.T) {
	t.Parallel()

	buf := make([]byte, EndOfCentralDirLen)
	binary.LittleEndian.PutUint32(buf[0:4], EndOfCentralDirSignature)
	binary.LittleEndian.PutUint16(buf[8:10], 3)      // entries on this disk
	binary.LittleEndian.PutUint16(buf[10:12], 3)     // total entries
	binary.LittleEndian.PutUint32(buf[12:16], 138)   // central dir size
	binary.LittleEndian.PutUint32(buf[16:20], 0x400) // central dir offset
	binary.LittleEndian.PutUint16(buf[20:22], 5)     // comment length

	end := DecodeEndOfCentralDir(buf)
	assert.Equal(t, uint16(3), end.DiskEntries)
	assert.Equal(t, uint16(3), end.TotalEntries)
	assert.Equal(t, uint32(138), end.CentralDirSize)
	assert.Equal(t, uint32(0x400), end.CentralDirOffset)
	assert.Equal(t, uint16(5), end.CommentLength)
}

func TestReadCentralDirEntry(t *testing.T) {
	t.Parallel()

	name := []byte("dir/file.txt")
	extra := []byte{0x01, 0x02, 0x03, 0x04}
	comment := []byte("a comment")

	fixed := make([]byte, CentralDirEntryLen-4)
	binary.LittleEndian.PutUint16(fixed[6:8], 8)        // method
	binary.LittleEndian.PutUint16(fixed[8:10], 0x6083)  // mod time
	binary.LittleEndian.PutUint16(fixed[10:12], 0x5b3c) // mod date
	binary.LittleEndian.PutUint32(fixed[12:16], 0xcafebabe)
	binary.LittleEndian.PutUint32(fixed[16:20], 100) // compressed size
	binary.LittleEndian.PutUint32(fixed[20:24], 250) // uncompressed size
	binary.LittleEndian.PutUint16(fixed[24:26], uint16(len(name)))
	binary.LittleEndian.PutUint16(fixed[26:28], uint16(len(extra)))
	binary.LittleEndian.PutUint16(fixed[28:30], uint16(len(comment)))
	binary.LittleEndian.PutUint32(fixed[38:42], 0x1234) // local header offset

	src := bytes.NewReader(bytes.Join([][]byte{fixed, name, extra, comment}, nil))
	entry, err := ReadCentralDirEntry(src)
	require.NoError(t, err)

	assert.Equal(t, uint16(8), entry.Method)
	assert.Equal(t, uint16(0x6083), entry.ModifiedTime)
	assert.Equal(t, uint16(0x5b3c), entry.ModifiedDate)
	assert.Equal(t, uint32(0xcafebabe), entry.CRC32)
	assert.Equal(t, uint32(100), entry.CompressedSize)
	assert.Equal(t, uint32(250), entry.UncompressedSize)
	assert.Equal(t, uint32(0x1234), entry.LocalHeaderOffset)
	assert.Equal(t, name, entry.Name)
	assert.Equal(t, extra, entry.Extra)
	assert.Equal(t, comment, entry.Comment)

	// No bytes beyond the declared fields may be consumed.
	assert.Zero(t, src.Len())
}

func TestReadCentralDirEntryTruncated(t *testing.T) {
	t.Parallel()

	fixed := make([]byte, CentralDirEntryLen-4)
	binary.LittleEndian.PutUint16(fixed[24:26], 10) // name length, but no name follows

	_, err := ReadCentralDirEntry(bytes.NewReader(fixed))
	assert.ErrorIs(t, err, io.EOF)

	_, err = ReadCentralDirEntry(bytes.NewReader(fixed[:20]))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecodeLocalHeader(t *testing.T) {
	t.Parallel()

	buf := make([]byte, LocalHeaderLen)
	binary.LittleEndian.PutUint32(buf[0:4], LocalHeaderSignature)
	binary.LittleEndian.PutUint16(buf[8:10], 0)   // method
	binary.LittleEndian.PutUint16(buf[26:28], 5)  // name length
	binary.LittleEndian.PutUint16(buf[28:30], 12) // extra length

	hdr := DecodeLocalHeader(buf)
	assert.Equal(t, LocalHeaderSignature, hdr.Signature)
	assert.Equal(t, uint16(0), hdr.Method)
	assert.Equal(t, uint16(5), hdr.NameLen)
	assert.Equal(t, uint16(12), hdr.ExtraLen)
}
