package probe

import (
	"io"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"picsift/internal/placement"
)

// ReadExifDate returns the raw EXIF DateTimeOriginal of the image in r,
// falling back to the DateTime tag. It returns "" when the image carries no
// EXIF block or neither tag holds a real date. Placeholders such as
// "0000:00:00 00:00:00" or a blank "    :  :     :  :  " count as no date.
func ReadExifDate(r io.Reader) string {
	x, err := exif.Decode(r)
	if err != nil {
		return ""
	}
	for _, name := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		value, err := tag.StringVal()
		if err != nil {
			continue
		}
		if value = cleanExifString(value); usableExifDate(value) {
			return value
		}
	}
	return ""
}

// cleanExifString drops the NUL padding and whitespace some cameras write.
func cleanExifString(value string) string {
	return strings.TrimSpace(strings.Trim(value, "\x00"))
}

func usableExifDate(value string) bool {
	t, ok := placement.ParseExifDate(value)
	return ok && t.Year() > 0
}
