package identity

import (
	"fmt"
	"time"
)

// Record is the plain, storable form of an Identity.
type Record struct {
	Path     string
	ModTime  time.Time
	Size     int64
	Filename string
	ExifDate string
	Checksum string
	Mode     Mode
}

// ToRecord flattens id. Checksum identities contribute their digest, which is
// computed now if it was still pending.
func ToRecord(id Identity) Record {
	rec := Record{
		Path:     id.Path(),
		ModTime:  id.ModTime(),
		Size:     id.Size(),
		Filename: id.Filename(),
		ExifDate: id.ExifDate(),
		Mode:     id.Mode(),
	}
	if c, ok := id.(interface{ Checksum() string }); ok {
		rec.Checksum = c.Checksum()
	}
	return rec
}

// FromRecord rebuilds an Identity of the record's mode. Checksum records keep
// their stored digest and are never rehashed.
func FromRecord(rec Record) (Identity, error) {
	switch rec.Mode {
	case ModeMetadata:
		return NewMetadata(rec.Path, rec.ModTime, rec.Size, rec.ExifDate), nil
	case ModeChecksum:
		return NewChecksumWithSum(rec.Path, rec.ModTime, rec.Size, rec.ExifDate, rec.Checksum), nil
	default:
		return nil, fmt.Errorf("identity record %s: unknown mode %q", rec.Path, rec.Mode)
	}
}
