package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"picsift/internal/identity"
	"picsift/internal/placement"
	"picsift/internal/scanresult"
)

// DocumentVersion is the version written by Encode.
const DocumentVersion = "2.0"

const legacyVersion = "1.0"

// JSONFile stores one scan result as a portable JSON document.
type JSONFile struct {
	Path string
}

type document struct {
	Version    string       `json:"version"`
	Metadata   *docMetadata `json:"metadata,omitempty"`
	Uniques    []docEntry   `json:"uniques"`
	Duplicates []docEntry   `json:"duplicates"`
}

type docMetadata struct {
	ID            string   `json:"id,omitempty"`
	Timestamp     *float64 `json:"timestamp"`
	ScannedPaths  []string `json:"scanned_paths"`
	Extension     string   `json:"extension"`
	DetectionMode string   `json:"detection_mode"`
}

type docEntry struct {
	ImageData docImage `json:"image_data"`
	Paths     []string `json:"paths"`
}

type docImage struct {
	Path     string   `json:"path"`
	Date     *float64 `json:"date"`
	Size     int64    `json:"size"`
	Filename string   `json:"filename"`
	ExifDate *string  `json:"exif_date"`
	Checksum *string  `json:"checksum,omitempty"`
}

// Save writes result to f.Path, replacing the file atomically.
func (f JSONFile) Save(_ context.Context, result *scanresult.Result) error {
	if f.Path == "" {
		return errors.New("json export: no file path")
	}
	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, ".picsift-*.json")
	if err != nil {
		return fmt.Errorf("json export: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := Encode(tmp, result); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("json export: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("json export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("json export: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("json export: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("json export: %w", err)
	}
	return nil
}

// Load reads the document at ref, or at f.Path when ref is empty.
func (f JSONFile) Load(_ context.Context, ref string) (*scanresult.Result, error) {
	path := f.Path
	if ref != "" {
		path = ref
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer file.Close()

	result, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return result, nil
}

// Encode writes result as an indented version 2.0 document.
func Encode(w io.Writer, result *scanresult.Result) error {
	if result == nil {
		return errors.New("encode: nil result")
	}
	ts := epoch(result.CreatedAt)
	doc := document{
		Version: DocumentVersion,
		Metadata: &docMetadata{
			ID:            result.ID,
			Timestamp:     &ts,
			ScannedPaths:  nonNil(result.Roots),
			Extension:     result.Extension(),
			DetectionMode: string(result.Mode),
		},
		Uniques:    make([]docEntry, 0, len(result.Uniques)),
		Duplicates: make([]docEntry, 0, len(result.Duplicates)),
	}
	for _, u := range result.Uniques {
		doc.Uniques = append(doc.Uniques, docEntry{ImageData: encodeImage(u), Paths: []string{u.Path()}})
	}
	for _, g := range result.Duplicates {
		doc.Duplicates = append(doc.Duplicates, docEntry{ImageData: encodeImage(g.Identity), Paths: nonNil(g.Paths)})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

func encodeImage(id identity.Identity) docImage {
	rec := identity.ToRecord(id)
	img := docImage{
		Path:     rec.Path,
		Size:     rec.Size,
		Filename: rec.Filename,
	}
	if !rec.ModTime.IsZero() {
		d := epoch(rec.ModTime)
		img.Date = &d
	}
	if rec.ExifDate != "" {
		img.ExifDate = &rec.ExifDate
	}
	if rec.Mode == identity.ModeChecksum && rec.Checksum != "" {
		img.Checksum = &rec.Checksum
	}
	return img
}

// Decode reads a version 2.0 or legacy 1.0 document. Legacy documents carry
// no metadata, so the result gets mode "unknown", a fresh ID and the current
// time.
func Decode(r io.Reader) (*scanresult.Result, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	switch doc.Version {
	case "", legacyVersion, DocumentVersion:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, doc.Version)
	}

	result := &scanresult.Result{
		Mode:      scanresult.ModeUnknown,
		CreatedAt: time.Now().UTC(),
	}
	if md := doc.Metadata; md != nil {
		result.ID = md.ID
		if md.Timestamp != nil {
			result.CreatedAt = fromEpoch(*md.Timestamp).UTC()
		}
		result.Roots = md.ScannedPaths
		result.Extensions = splitExtensions(md.Extension)
		if mode := strings.TrimSpace(md.DetectionMode); mode != "" {
			result.Mode = scanresult.DetectionMode(strings.ToLower(mode))
		}
	}
	if result.ID == "" {
		result.ID = uuid.NewString()
	}

	for _, e := range doc.Uniques {
		result.Uniques = append(result.Uniques, decodeImage(e.ImageData, result.Mode))
	}
	for _, e := range doc.Duplicates {
		result.Duplicates = append(result.Duplicates, scanresult.Group{
			Identity: decodeImage(e.ImageData, result.Mode),
			Paths:    append([]string(nil), e.Paths...),
		})
	}

	result.Sort()
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

// decodeImage rebuilds an identity. Without a recorded mode the presence of
// a checksum decides the variant.
func decodeImage(img docImage, mode scanresult.DetectionMode) identity.Identity {
	var (
		mtime    time.Time
		exif     string
		checksum string
	)
	if img.Date != nil && *img.Date != 0 {
		mtime = fromEpoch(*img.Date)
	}
	if img.ExifDate != nil {
		exif = *img.ExifDate
	}
	if img.Checksum != nil {
		checksum = *img.Checksum
	}

	useChecksum := mode == identity.ModeChecksum || (mode != identity.ModeMetadata && checksum != "")
	if useChecksum {
		return identity.NewChecksumWithSum(img.Path, mtime, img.Size, exif, checksum)
	}
	return identity.NewMetadata(img.Path, mtime, img.Size, exif)
}

func splitExtensions(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func epoch(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

// fromEpoch undoes epoch; float seconds only carry microseconds reliably.
func fromEpoch(seconds float64) time.Time {
	return placement.FromEpoch(seconds).Round(time.Microsecond)
}
