package albitezip

import (
	"errors"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"
)

// ReadDir returns the entries of the named directory sorted by name,
// implementing fs.ReadDirFS. Directories are synthesized from entry
// paths; the archive need not store them explicitly.
func (a *Archive) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}

	idx, err := a.index()
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}

	entries := idx.readDir(dirPrefix(name))
	if len(entries) == 0 && name != "." {
		if e, ok := idx.byName[name]; ok && !e.IsDir() {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: errors.New("not a directory")}
		}
		if !idx.isDir(name) {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: ErrNotExist}
		}
	}
	return entries, nil
}

// isDir reports whether name is "." of a non-empty archive, an explicit
// directory entry, or a directory prefix of at least one entry.
func (x *index) isDir(name string) bool {
	if name == "." {
		return len(x.names) > 0
	}
	prefix := name + "/"
	if _, ok := x.byName[prefix]; ok {
		return true
	}
	i, _ := slices.BinarySearch(x.names, prefix)
	return i < len(x.names) && strings.HasPrefix(x.names[i], prefix)
}

// readDir lists the immediate children under prefix. Entry names are
// sorted, so files within one subdirectory are contiguous and deduplicate
// against the previously yielded child. Child names can still come out of
// order relative to full entry names ("a/x" sorts after "a.txt" though
// "a" does not), so the result is sorted again.
func (x *index) readDir(prefix string) []fs.DirEntry {
	start, _ := slices.BinarySearch(x.names, prefix)

	var entries []fs.DirEntry
	lastChild := ""
	for _, name := range x.names[start:] {
		if !strings.HasPrefix(name, prefix) {
			break
		}
		child, isSubDir := childOf(name, prefix)
		if child == "" || child == lastChild {
			continue
		}
		lastChild = child

		if isSubDir {
			entries = append(entries, newDirEntry(newDirInfo(child)))
			continue
		}
		entries = append(entries, newDirEntry(newInfo(x.byName[name].clone())))
	}
	slices.SortFunc(entries, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return entries
}

// dirPrefix converts a directory name to the entry-name prefix below it.
func dirPrefix(name string) string {
	if name == "." {
		return ""
	}
	return name + "/"
}

// childOf returns the first path element of path below prefix and whether
// further elements follow (i.e. the child is a subdirectory).
func childOf(entryPath, prefix string) (string, bool) {
	rest := entryPath[len(prefix):]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i], true
	}
	return rest, false
}

// baseName returns the last element of an entry name, tolerating the
// trailing slash of directory entries.
func baseName(name string) string {
	return path.Base(strings.TrimSuffix(name, "/"))
}

// openDir implements fs.ReadDirFile for synthetic directories.
type openDir struct {
	idx     *index
	name    string
	entries []fs.DirEntry
	listed  bool
	offset  int
}

var _ fs.ReadDirFile = (*openDir)(nil)

func (d *openDir) Read(_ []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *openDir) Stat() (fs.FileInfo, error) {
	return newDirInfo(baseName(d.name)), nil
}

func (d *openDir) Close() error {
	return nil
}

func (d *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if !d.listed {
		d.entries = d.idx.readDir(dirPrefix(d.name))
		d.listed = true
	}

	remaining := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		return remaining, nil
	}
	if len(remaining) == 0 {
		return nil, io.EOF
	}
	if n > len(remaining) {
		n = len(remaining)
	}
	d.offset += n
	return remaining[:n], nil
}

// DirInfo implements fs.FileInfo for synthetic directories.
type DirInfo struct {
	name string
}

func newDirInfo(name string) *DirInfo {
	return &DirInfo{name: name}
}

func (di *DirInfo) Name() string       { return di.name }
func (di *DirInfo) Size() int64        { return 0 }
func (di *DirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o755 }
func (di *DirInfo) ModTime() time.Time { return time.Time{} }
func (di *DirInfo) IsDir() bool        { return true }
func (di *DirInfo) Sys() any           { return nil }

// dirEntry implements fs.DirEntry by wrapping fs.FileInfo.
type dirEntry struct {
	info fs.FileInfo
}

func newDirEntry(info fs.FileInfo) *dirEntry {
	return &dirEntry{info: info}
}

func (de *dirEntry) Name() string               { return de.info.Name() }
func (de *dirEntry) IsDir() bool                { return de.info.IsDir() }
func (de *dirEntry) Type() fs.FileMode          { return de.info.Mode().Type() }
func (de *dirEntry) Info() (fs.FileInfo, error) { return de.info, nil }
