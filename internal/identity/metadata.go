package identity

import "time"

// Metadata identifies a file by cheap filesystem and EXIF metadata.
//
// With an EXIF date the key is (exif date, size), so renamed or re-copied
// files still match. Without one the key is (file name, modification time,
// size). A file with an EXIF date never equals one without.
type Metadata struct {
	file
}

// NewMetadata builds a metadata identity. exifDate may be empty.
func NewMetadata(path string, modTime time.Time, size int64, exifDate string) Metadata {
	return Metadata{file: newFile(path, modTime, size, exifDate)}
}

func (m Metadata) Mode() Mode { return ModeMetadata }

func (m Metadata) Key() Key {
	if m.exifDate != "" {
		return Key{Mode: ModeMetadata, ExifDate: m.exifDate, Size: m.size}
	}
	return Key{
		Mode:             ModeMetadata,
		Filename:         m.Filename(),
		ModTimeUnixMicro: unixMicro(m.modTime),
		Size:             m.size,
	}
}

func (m Metadata) String() string {
	return "file:[" + m.Filename() + "], path:[" + m.path + "], " + m.Key().String()
}
