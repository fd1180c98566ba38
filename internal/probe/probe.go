package probe

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"log/slog"
	"os"

	// Register header decoders with image.DecodeConfig.
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"picsift/internal/identity"
	"picsift/internal/logging"
)

// ErrNotImage marks a file whose header no registered decoder accepts.
var ErrNotImage = errors.New("not a decodable image")

// Options configures a Prober.
type Options struct {
	Mode identity.Mode
	// Cache supplies checksums in checksum mode. A private cache is created
	// when nil.
	Cache *identity.ChecksumCache
	// EagerChecksum hashes each file while probing instead of on first
	// comparison.
	EagerChecksum bool
	Logger        *slog.Logger
}

// Prober builds identities for image files.
type Prober struct {
	mode   identity.Mode
	cache  *identity.ChecksumCache
	eager  bool
	logger *slog.Logger
}

// New returns a prober. The mode defaults to metadata.
func New(opts Options) *Prober {
	mode := opts.Mode
	if !mode.Valid() {
		mode = identity.ModeMetadata
	}
	logger := logging.NewComponentLogger(opts.Logger, "probe")
	cache := opts.Cache
	if cache == nil && mode == identity.ModeChecksum {
		cache = identity.NewChecksumCache(opts.Logger)
	}
	return &Prober{mode: mode, cache: cache, eager: opts.EagerChecksum, logger: logger}
}

func (p *Prober) Mode() identity.Mode { return p.mode }

// Probe returns the identity of the image at absPath, or (nil, nil) when the
// file should be skipped. The only error returned is cancellation of ctx.
func (p *Prober) Probe(ctx context.Context, absPath string) (identity.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := p.probe(absPath)
	switch {
	case err == nil:
		return id, nil
	case IsNotImage(err):
		p.logger.Debug("skipping non-image file",
			logging.String(logging.FieldPath, absPath),
			logging.String("reason", err.Error()),
		)
	default:
		logging.WarnWithContext(p.logger, "probe failed; file skipped", "probe_failed",
			logging.String(logging.FieldPath, absPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the file is readable and not truncated"),
			logging.String(logging.FieldImpact, "file excluded from duplicate detection"),
		)
	}
	return nil, nil
}

func (p *Prober) probe(path string) (identity.Identity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	if _, _, err := image.DecodeConfig(f); err != nil {
		// Decoders report bad headers with their own plain errors ("gif: ...");
		// only a failing read of the open file is an I/O problem.
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, fmt.Errorf("decode header: %w", err)
		}
		return nil, fmt.Errorf("decode header: %w: %w", ErrNotImage, err)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}

	var exifDate string
	if _, err := f.Seek(0, io.SeekStart); err == nil {
		exifDate = ReadExifDate(f)
	}

	switch p.mode {
	case identity.ModeChecksum:
		if p.eager {
			// Failures are memoized by the cache and surface as an
			// unresolved key.
			_, _ = p.cache.Sum(path)
		}
		return identity.NewChecksum(path, info.ModTime(), info.Size(), exifDate, p.cache), nil
	default:
		return identity.NewMetadata(path, info.ModTime(), info.Size(), exifDate), nil
	}
}

// IsNotImage reports whether err means the file is not a decodable image, as
// opposed to an I/O failure.
func IsNotImage(err error) bool {
	if errors.Is(err, ErrNotImage) || errors.Is(err, image.ErrFormat) {
		return true
	}
	var (
		jpegErr jpeg.FormatError
		pngErr  png.FormatError
		tiffErr tiff.FormatError
	)
	return errors.As(err, &jpegErr) || errors.As(err, &pngErr) || errors.As(err, &tiffErr)
}
