package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// maxCollisions bounds the numeric suffix search in CreateUnique.
const maxCollisions = 100000

// ErrNoFreeName is returned when every candidate name is already taken.
var ErrNoFreeName = errors.New("no free file name")

// CollisionName returns name with a numeric suffix before its extension:
// photo.jpg becomes photo_1.jpg for n == 1. Zero returns name unchanged.
func CollisionName(name string, n int) string {
	if n <= 0 {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		base, ext = ext, ""
	}
	return base + "_" + strconv.Itoa(n) + ext
}

// CreateUnique creates a new file for name inside dir. When the name is taken
// it tries name_1, name_2, ... in order. Creation uses O_EXCL so two writers
// never claim the same name. The caller owns the returned file.
func CreateUnique(dir, name string, perm os.FileMode) (*os.File, string, error) {
	for n := 0; n <= maxCollisions; n++ {
		candidate := filepath.Join(dir, CollisionName(name, n))
		f, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
		if err == nil {
			return f, candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("%w for %s in %s", ErrNoFreeName, name, dir)
}

// CopyVerified streams src into the already created dst file with SHA256 and
// size verification. When verify is set dst is read back from disk and its
// digest compared again. dst is closed and removed on any failure.
func CopyVerified(src string, dst *os.File, verify bool) (int64, error) {
	fail := func(err error) (int64, error) {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return 0, err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return fail(fmt.Errorf("stat source: %w", err))
	}
	in, err := os.Open(src)
	if err != nil {
		return fail(err)
	}
	defer in.Close()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(dst, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return fail(err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return 0, err
	}

	if written != srcInfo.Size() {
		_ = os.Remove(dst.Name())
		return 0, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	want := srcHasher.Sum(nil)
	if !bytes.Equal(want, dstHasher.Sum(nil)) {
		_ = os.Remove(dst.Name())
		return 0, fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	if verify {
		got, err := HashFile(dst.Name())
		if err != nil {
			_ = os.Remove(dst.Name())
			return 0, fmt.Errorf("verify copy: %w", err)
		}
		if !bytes.Equal(want, got) {
			_ = os.Remove(dst.Name())
			return 0, fmt.Errorf("copy hash mismatch: %s differs from source on disk", dst.Name())
		}
	}
	return written, nil
}

// HashFile returns the SHA256 digest of path.
func HashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// PreserveAttributes copies the permission bits and modification time of
// info onto path.
func PreserveAttributes(path string, info os.FileInfo) error {
	if err := os.Chmod(path, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	mtime := info.ModTime()
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		return fmt.Errorf("chtimes %s: %w", path, err)
	}
	return nil
}
