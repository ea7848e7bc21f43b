// Package record decodes the fixed-layout records of the ZIP format:
// the end-of-central-directory trailer, central directory file headers,
// and local file headers. All multi-byte integers are little-endian.
package record

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Record signatures. Each begins with the two-byte marker "PK".
const (
	LocalHeaderSignature     uint32 = 0x04034b50
	CentralDirSignature      uint32 = 0x02014b50
	EndOfCentralDirSignature uint32 = 0x06054b50
)

// Fixed record sizes in bytes, signature included.
const (
	LocalHeaderLen     = 30
	CentralDirEntryLen = 46
	EndOfCentralDirLen = 22
)

// MaxVariableLen bounds names, extra fields, comments, and the archive
// comment; every variable-length field in the format has a 16-bit length.
const MaxVariableLen = 0xFFFF

// EndOfCentralDir is the decoded end-of-central-directory record.
type EndOfCentralDir struct {
	DiskNumber       uint16
	CentralDirDisk   uint16
	DiskEntries      uint16
	TotalEntries     uint16
	CentralDirSize   uint32
	CentralDirOffset uint32
	CommentLength    uint16
}

// DecodeEndOfCentralDir decodes the fixed end-of-central-directory record
// from buf, which must hold at least EndOfCentralDirLen bytes starting at
// the signature. The caller is expected to have matched the signature.
func DecodeEndOfCentralDir(buf []byte) EndOfCentralDir {
	return EndOfCentralDir{
		DiskNumber:       binary.LittleEndian.Uint16(buf[4:6]),
		CentralDirDisk:   binary.LittleEndian.Uint16(buf[6:8]),
		DiskEntries:      binary.LittleEndian.Uint16(buf[8:10]),
		TotalEntries:     binary.LittleEndian.Uint16(buf[10:12]),
		CentralDirSize:   binary.LittleEndian.Uint32(buf[12:16]),
		CentralDirOffset: binary.LittleEndian.Uint32(buf[16:20]),
		CommentLength:    binary.LittleEndian.Uint16(buf[20:22]),
	}
}

// CentralDirEntry is one decoded central directory file header, fixed
// fields plus the variable-length name, extra, and comment.
type CentralDirEntry struct {
	VersionMadeBy     uint16
	VersionNeeded     uint16
	Flags             uint16
	Method            uint16
	ModifiedTime      uint16
	ModifiedDate      uint16
	CRC32             uint32
	CompressedSize    uint32
	UncompressedSize  uint32
	NameLen           uint16
	ExtraLen          uint16
	CommentLen        uint16
	DiskNumberStart   uint16
	InternalAttrs     uint16
	ExternalAttrs     uint32
	LocalHeaderOffset uint32
	Name              []byte
	Extra             []byte
	Comment           []byte
}

// ReadCentralDirEntry reads one central directory file header from src,
// positioned just past the record signature. The variable-length fields
// that follow the fixed portion are consumed in order; no field is
// derivable without having consumed the preceding ones.
func ReadCentralDirEntry(src io.Reader) (CentralDirEntry, error) {
	var buf [CentralDirEntryLen - 4]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return CentralDirEntry{}, fmt.Errorf("read central directory header: %w", err)
	}

	entry := CentralDirEntry{
		VersionMadeBy:     binary.LittleEndian.Uint16(buf[0:2]),
		VersionNeeded:     binary.LittleEndian.Uint16(buf[2:4]),
		Flags:             binary.LittleEndian.Uint16(buf[4:6]),
		Method:            binary.LittleEndian.Uint16(buf[6:8]),
		ModifiedTime:      binary.LittleEndian.Uint16(buf[8:10]),
		ModifiedDate:      binary.LittleEndian.Uint16(buf[10:12]),
		CRC32:             binary.LittleEndian.Uint32(buf[12:16]),
		CompressedSize:    binary.LittleEndian.Uint32(buf[16:20]),
		UncompressedSize:  binary.LittleEndian.Uint32(buf[20:24]),
		NameLen:           binary.LittleEndian.Uint16(buf[24:26]),
		ExtraLen:          binary.LittleEndian.Uint16(buf[26:28]),
		CommentLen:        binary.LittleEndian.Uint16(buf[28:30]),
		DiskNumberStart:   binary.LittleEndian.Uint16(buf[30:32]),
		InternalAttrs:     binary.LittleEndian.Uint16(buf[32:34]),
		ExternalAttrs:     binary.LittleEndian.Uint32(buf[34:38]),
		LocalHeaderOffset: binary.LittleEndian.Uint32(buf[38:42]),
	}

	if entry.NameLen > 0 {
		entry.Name = make([]byte, entry.NameLen)
		if _, err := io.ReadFull(src, entry.Name); err != nil {
			return CentralDirEntry{}, fmt.Errorf("read entry name: %w", err)
		}
	}
	if entry.ExtraLen > 0 {
		entry.Extra = make([]byte, entry.ExtraLen)
		if _, err := io.ReadFull(src, entry.Extra); err != nil {
			return CentralDirEntry{}, fmt.Errorf("read extra field: %w", err)
		}
	}
	if entry.CommentLen > 0 {
		entry.Comment = make([]byte, entry.CommentLen)
		if _, err := io.ReadFull(src, entry.Comment); err != nil {
			return CentralDirEntry{}, fmt.Errorf("read entry comment: %w", err)
		}
	}

	return entry, nil
}

// LocalHeader is a decoded local file header. The local header duplicates
// some central directory fields for self-description; its name length and
// extra length are the authoritative inputs for locating the payload.
type LocalHeader struct {
	Signature        uint32
	VersionNeeded    uint16
	Flags            uint16
	Method           uint16
	ModifiedTime     uint16
	ModifiedDate     uint16
	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32
	NameLen          uint16
	ExtraLen         uint16
}

// DecodeLocalHeader decodes the fixed local file header from buf, which
// must hold at least LocalHeaderLen bytes starting at the signature.
// The signature is decoded, not checked; callers validate it.
func DecodeLocalHeader(buf []byte) LocalHeader {
	return LocalHeader{
		Signature:        binary.LittleEndian.Uint32(buf[0:4]),
		VersionNeeded:    binary.LittleEndian.Uint16(buf[4:6]),
		Flags:            binary.LittleEndian.Uint16(buf[6:8]),
		Method:           binary.LittleEndian.Uint16(buf[8:10]),
		ModifiedTime:     binary.LittleEndian.Uint16(buf[10:12]),
		ModifiedDate:     binary.LittleEndian.Uint16(buf[12:14]),
		CRC32:            binary.LittleEndian.Uint32(buf[14:18]),
		CompressedSize:   binary.LittleEndian.Uint32(buf[18:22]),
		UncompressedSize: binary.LittleEndian.Uint32(buf[22:26]),
		NameLen:          binary.LittleEndian.Uint16(buf[26:28]),
		ExtraLen:         binary.LittleEndian.Uint16(buf[28:30]),
	}
}
