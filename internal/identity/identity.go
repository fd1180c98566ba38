package identity

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Mode selects the identity variant used for a scan.
type Mode string

const (
	ModeMetadata Mode = "metadata"
	ModeChecksum Mode = "checksum"
)

// ParseMode converts a configuration or CLI value into a Mode.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeMetadata:
		return ModeMetadata, nil
	case ModeChecksum:
		return ModeChecksum, nil
	default:
		return "", fmt.Errorf("unknown detection mode %q", value)
	}
}

// Valid reports whether m names a known variant.
func (m Mode) Valid() bool {
	return m == ModeMetadata || m == ModeChecksum
}

// Identity is the classification key of one probed file.
type Identity interface {
	Path() string
	ModTime() time.Time
	Size() int64
	Filename() string
	// ExifDate is the raw EXIF capture date, empty when absent.
	ExifDate() string
	Mode() Mode
	Key() Key
}

// Key is the comparable grouping key derived from one Identity. Two
// identities are the same content exactly when their keys are equal.
//
// Only the fields relevant to the variant are populated:
//   - metadata with EXIF: ExifDate, Size
//   - metadata without EXIF: Filename, ModTimeUnixMicro, Size
//   - checksum: Checksum, Size
//   - checksum that could not be computed: Unresolved (the file path), Size
type Key struct {
	Mode             Mode
	ExifDate         string
	Filename         string
	ModTimeUnixMicro int64
	Size             int64
	Checksum         string
	Unresolved       string
}

// Resolved reports whether the key can match another file. Checksum keys
// whose digest failed never match anything.
func (k Key) Resolved() bool {
	return k.Unresolved == ""
}

func (k Key) String() string {
	switch {
	case k.Mode == ModeChecksum && k.Checksum != "":
		return fmt.Sprintf("checksum=%s size=%d", shortSum(k.Checksum), k.Size)
	case k.Mode == ModeChecksum:
		return fmt.Sprintf("checksum=<none> path=%s size=%d", k.Unresolved, k.Size)
	case k.ExifDate != "":
		return fmt.Sprintf("exif=%q size=%d", k.ExifDate, k.Size)
	default:
		return fmt.Sprintf("file=%s mtime=%d size=%d", k.Filename, k.ModTimeUnixMicro, k.Size)
	}
}

// Equal reports whether a and b describe the same content.
func Equal(a, b Identity) bool {
	if a == nil || b == nil {
		return false
	}
	ka, kb := a.Key(), b.Key()
	if !ka.Resolved() || !kb.Resolved() {
		return false
	}
	return ka == kb
}

type file struct {
	path     string
	modTime  time.Time
	size     int64
	exifDate string
}

func newFile(path string, modTime time.Time, size int64, exifDate string) file {
	return file{
		path:     path,
		modTime:  modTime,
		size:     size,
		exifDate: strings.TrimSpace(exifDate),
	}
}

func (f file) Path() string       { return f.path }
func (f file) ModTime() time.Time { return f.modTime }
func (f file) Size() int64        { return f.size }
func (f file) Filename() string   { return filepath.Base(f.path) }
func (f file) ExifDate() string   { return f.exifDate }

// unixMicro keeps microseconds, the precision a modification time survives
// a JSON export with.
func unixMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func shortSum(sum string) string {
	if len(sum) > 8 {
		return sum[:8] + "..."
	}
	return sum
}
