package archive_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"picsift/internal/archive"
	"picsift/internal/identity"
	"picsift/internal/placement"
	"picsift/internal/runctl"
	"picsift/internal/scanresult"
	"picsift/internal/testsupport"
)

var shotAt = time.Date(2023, 4, 5, 12, 0, 0, 0, time.Local)

func writeShot(t *testing.T, path string, size int64) identity.Identity {
	t.Helper()
	testsupport.WriteFile(t, path, size)
	testsupport.SetModTime(t, path, shotAt)
	return identity.NewMetadata(path, shotAt, size, "")
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return info.Size()
}

func TestCopyDistinctRenamesCollisions(t *testing.T) {
	src := t.TempDir()
	target := t.TempDir()
	a := writeShot(t, filepath.Join(src, "a", "photo.jpg"), 10)
	b := writeShot(t, filepath.Join(src, "b", "photo.jpg"), 20)
	result := scanresult.New([]identity.Identity{b, a}, nil, []string{src}, []string{"jpg"}, identity.ModeMetadata)

	var lines []string
	c := archive.New(archive.Options{Verify: true, Log: func(s string) { lines = append(lines, s) }})
	summary, err := c.CopyDistinct(context.Background(), result, target, "", runctl.New(), nil)
	if err != nil {
		t.Fatalf("CopyDistinct: %v", err)
	}
	if summary.Total != 2 || summary.Copied != 2 || summary.Errors != 0 || summary.Bytes != 30 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	day := filepath.Join(target, "2023", "04", "05")
	if got := fileSize(t, filepath.Join(day, "photo.jpg")); got != 10 {
		t.Fatalf("photo.jpg size = %d, want 10", got)
	}
	if got := fileSize(t, filepath.Join(day, "photo_1.jpg")); got != 20 {
		t.Fatalf("photo_1.jpg size = %d, want 20", got)
	}
	info, err := os.Stat(filepath.Join(day, "photo_1.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(shotAt) {
		t.Fatalf("modification time not preserved: %v", info.ModTime())
	}

	if lines[0] != "Starting copy operation to: "+target || lines[1] != "Using pattern: "+placement.DefaultPattern {
		t.Fatalf("unexpected opening lines %q", lines[:2])
	}
	if !slices.Contains(lines, "Total distinct items: 2") {
		t.Fatalf("missing item count in %q", lines)
	}
	if !slices.Contains(lines, "Copied: photo.jpg -> /2023/04/05") {
		t.Fatalf("missing copy line in %q", lines)
	}
	if last := lines[len(lines)-1]; last != "Copy complete! Copied: 2, Errors: 0" {
		t.Fatalf("unexpected final line %q", last)
	}
}

func TestCopyDistinctCopiesOneRepresentativePerGroup(t *testing.T) {
	src := t.TempDir()
	target := t.TempDir()
	first := filepath.Join(src, "x", "dup.jpg")
	second := writeShot(t, filepath.Join(src, "y", "dup.jpg"), 7)
	writeShot(t, first, 7)
	unique := writeShot(t, filepath.Join(src, "solo.jpg"), 3)

	groups := []scanresult.Group{{Identity: second, Paths: []string{second.Path(), first}}}
	result := scanresult.New([]identity.Identity{unique}, groups, []string{src}, []string{"jpg"}, identity.ModeMetadata)

	if got := archive.Items(result); !slices.Equal(got, []string{first, unique.Path()}) {
		t.Fatalf("Items = %v", got)
	}

	var seen []string
	observer := archive.ObserverFunc(func(name string, done, total int) {
		if total != 2 {
			t.Errorf("unexpected total %d", total)
		}
		seen = append(seen, name)
	})
	summary, err := archive.New(archive.Options{}).CopyDistinct(context.Background(), result, target, "/{year}", nil, observer)
	if err != nil {
		t.Fatalf("CopyDistinct: %v", err)
	}
	if summary.Copied != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !slices.Equal(seen, []string{"dup.jpg", "solo.jpg"}) {
		t.Fatalf("observer saw %v", seen)
	}
	entries, err := os.ReadDir(filepath.Join(target, "2023"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected two files in archive, got %d", len(entries))
	}
}

func TestCopyDistinctCountsFailures(t *testing.T) {
	src := t.TempDir()
	target := t.TempDir()
	undated := identity.NewMetadata(filepath.Join(src, "undated.jpg"), time.Time{}, 1, "")
	missing := identity.NewMetadata(filepath.Join(src, "missing.jpg"), shotAt, 1, "")
	ok := writeShot(t, filepath.Join(src, "ok.jpg"), 4)
	result := scanresult.New([]identity.Identity{undated, missing, ok}, nil, []string{src}, []string{"jpg"}, identity.ModeMetadata)

	summary, err := archive.New(archive.Options{}).CopyDistinct(context.Background(), result, target, "", nil, nil)
	if err != nil {
		t.Fatalf("CopyDistinct: %v", err)
	}
	want := archive.Summary{Total: 3, Copied: 1, Errors: 2, Unplaced: 1, Bytes: 4}
	if summary != want {
		t.Fatalf("summary = %+v, want %+v", summary, want)
	}
}

func TestCopyDistinctRejectsBadConfiguration(t *testing.T) {
	result := scanresult.New(nil, nil, nil, []string{"jpg"}, identity.ModeMetadata)
	c := archive.New(archive.Options{})

	if _, err := c.CopyDistinct(context.Background(), result, filepath.Join(t.TempDir(), "missing"), "", nil, nil); !errors.Is(err, archive.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
	if _, err := c.CopyDistinct(context.Background(), nil, t.TempDir(), "", nil, nil); !errors.Is(err, archive.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget for nil result, got %v", err)
	}
	if _, err := c.CopyDistinct(context.Background(), result, t.TempDir(), "/{week}", nil, nil); !errors.Is(err, placement.ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern, got %v", err)
	}
}

func TestCopyDistinctCancelReturnsPartialSummary(t *testing.T) {
	src := t.TempDir()
	target := t.TempDir()
	var ids []identity.Identity
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		ids = append(ids, writeShot(t, filepath.Join(src, name), 2))
	}
	result := scanresult.New(ids, nil, []string{src}, []string{"jpg"}, identity.ModeMetadata)

	ctl := runctl.New()
	var lines []string
	c := archive.New(archive.Options{Log: func(s string) { lines = append(lines, s) }})
	observer := archive.ObserverFunc(func(string, int, int) { ctl.Cancel() })

	summary, err := c.CopyDistinct(context.Background(), result, target, "", ctl, observer)
	if !errors.Is(err, runctl.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if summary.Copied != 1 || summary.Total != 3 {
		t.Fatalf("unexpected partial summary %+v", summary)
	}
	if last := lines[len(lines)-1]; last != "Copy operation cancelled." {
		t.Fatalf("unexpected final line %q", last)
	}
}
