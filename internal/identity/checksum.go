package identity

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"picsift/internal/logging"
)

// checksumChunkSize is the read size used when hashing file contents.
const checksumChunkSize = 8 * 1024

// Checksum identifies a file by an MD5 digest of its contents and its size.
// The digest is either known up front or fetched from a ChecksumCache the
// first time it is needed.
type Checksum struct {
	file
	sum   string
	cache *ChecksumCache
}

// NewChecksum builds a checksum identity whose digest is computed lazily
// through cache.
func NewChecksum(path string, modTime time.Time, size int64, exifDate string, cache *ChecksumCache) Checksum {
	return Checksum{file: newFile(path, modTime, size, exifDate), cache: cache}
}

// NewChecksumWithSum builds a checksum identity with a known digest. An empty
// sum marks a digest that could not be computed.
func NewChecksumWithSum(path string, modTime time.Time, size int64, exifDate, sum string) Checksum {
	return Checksum{file: newFile(path, modTime, size, exifDate), sum: sum}
}

func (c Checksum) Mode() Mode { return ModeChecksum }

// Checksum returns the hex MD5 digest, or "" when it could not be computed.
func (c Checksum) Checksum() string {
	if c.sum != "" || c.cache == nil {
		return c.sum
	}
	sum, err := c.cache.Sum(c.path)
	if err != nil {
		return ""
	}
	return sum
}

func (c Checksum) Key() Key {
	sum := c.Checksum()
	if sum == "" {
		return Key{Mode: ModeChecksum, Size: c.size, Unresolved: c.path}
	}
	return Key{Mode: ModeChecksum, Checksum: sum, Size: c.size}
}

func (c Checksum) String() string {
	return "file:[" + c.Filename() + "], path:[" + c.path + "], " + c.Key().String()
}

// ChecksumCache memoizes file digests by path. Concurrent callers asking for
// the same path share one computation; failures are memoized too so a key
// stays stable for the lifetime of a scan.
type ChecksumCache struct {
	logger  *slog.Logger
	mu      sync.Mutex
	entries map[string]*checksumEntry
}

type checksumEntry struct {
	done chan struct{}
	sum  string
	err  error
}

// NewChecksumCache returns an empty cache. logger may be nil.
func NewChecksumCache(logger *slog.Logger) *ChecksumCache {
	return &ChecksumCache{
		logger:  logging.NewComponentLogger(logger, "checksum"),
		entries: make(map[string]*checksumEntry),
	}
}

// Sum returns the digest of the file at path, computing it on first use.
func (c *ChecksumCache) Sum(path string) (string, error) {
	c.mu.Lock()
	entry, ok := c.entries[path]
	if ok {
		c.mu.Unlock()
		<-entry.done
		return entry.sum, entry.err
	}
	entry = &checksumEntry{done: make(chan struct{})}
	c.entries[path] = entry
	c.mu.Unlock()

	entry.sum, entry.err = FileChecksum(path)
	if entry.err != nil {
		logging.WarnWithContext(c.logger, "checksum failed; file treated as unique", "checksum_failed",
			logging.String(logging.FieldPath, path),
			logging.Error(entry.err),
			logging.String(logging.FieldErrorHint, "check that the file is readable"),
			logging.String(logging.FieldImpact, "file cannot match any other file"),
		)
	}
	close(entry.done)
	return entry.sum, entry.err
}

// Prime records a digest computed elsewhere. An existing entry is kept.
func (c *ChecksumCache) Prime(path, sum string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[path]; ok {
		return
	}
	entry := &checksumEntry{done: make(chan struct{}), sum: sum}
	close(entry.done)
	c.entries[path] = entry
}

// Len reports how many paths have a digest or a pending computation.
func (c *ChecksumCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// FileChecksum streams the file at path through MD5 and returns the hex digest.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for checksum: %w", err)
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, checksumChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
