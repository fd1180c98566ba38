package testsupport

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteImage encodes a small generated image at path, choosing the format
// from the extension (png, jpg/jpeg, gif). The same seed always produces the
// same bytes; different seeds produce different content.
func WriteImage(t testing.TB, path string, seed uint8) {
	t.Helper()

	var buf bytes.Buffer
	img := pattern(seed)
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(&buf, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case ".gif":
		err = gif.Encode(&buf, img, nil)
	default:
		t.Fatalf("WriteImage: unsupported extension for %s", path)
	}
	if err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	writeBytes(t, path, buf.Bytes())
}

// WriteJPEGWithExif writes a JPEG whose EXIF block carries dateTimeOriginal
// (format "2006:01:02 15:04:05").
func WriteJPEGWithExif(t testing.TB, path, dateTimeOriginal string, seed uint8) {
	t.Helper()

	var enc bytes.Buffer
	if err := jpeg.Encode(&enc, pattern(seed), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	raw := enc.Bytes()

	var out bytes.Buffer
	out.Write(raw[:2]) // SOI
	out.Write(exifSegment(dateTimeOriginal))
	out.Write(raw[2:])
	writeBytes(t, path, out.Bytes())
}

func pattern(seed uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{
				R: seed,
				G: uint8(x*16) ^ seed,
				B: uint8(y*16) + seed,
				A: 0xff,
			})
		}
	}
	return img
}

// exifSegment builds an APP1 segment holding a little-endian TIFF structure
// with IFD0 pointing at an Exif sub-IFD that contains DateTimeOriginal.
func exifSegment(date string) []byte {
	le := binary.LittleEndian
	value := append([]byte(date), 0)

	const (
		ifd0Offset    = 8
		exifIFDOffset = ifd0Offset + 2 + 12 + 4
		valueOffset   = exifIFDOffset + 2 + 12 + 4
	)

	var tiff bytes.Buffer
	tiff.WriteString("II")
	_ = binary.Write(&tiff, le, uint16(42))
	_ = binary.Write(&tiff, le, uint32(ifd0Offset))

	// IFD0: ExifIFDPointer
	_ = binary.Write(&tiff, le, uint16(1))
	_ = binary.Write(&tiff, le, uint16(0x8769))
	_ = binary.Write(&tiff, le, uint16(4))
	_ = binary.Write(&tiff, le, uint32(1))
	_ = binary.Write(&tiff, le, uint32(exifIFDOffset))
	_ = binary.Write(&tiff, le, uint32(0))

	// Exif IFD: DateTimeOriginal
	_ = binary.Write(&tiff, le, uint16(1))
	_ = binary.Write(&tiff, le, uint16(0x9003))
	_ = binary.Write(&tiff, le, uint16(2))
	_ = binary.Write(&tiff, le, uint32(len(value)))
	_ = binary.Write(&tiff, le, uint32(valueOffset))
	_ = binary.Write(&tiff, le, uint32(0))
	tiff.Write(value)

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	return append(seg, payload...)
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
