package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCollisionName(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want string
	}{
		{"photo.jpg", 0, "photo.jpg"},
		{"photo.jpg", 1, "photo_1.jpg"},
		{"photo.tar.gz", 2, "photo.tar_2.gz"},
		{"noext", 3, "noext_3"},
		{".hidden", 1, ".hidden_1"},
	}
	for _, tt := range tests {
		if got := CollisionName(tt.name, tt.n); got != tt.want {
			t.Errorf("CollisionName(%q, %d) = %q, want %q", tt.name, tt.n, got, tt.want)
		}
	}
}

func TestCreateUnique(t *testing.T) {
	dir := t.TempDir()
	var names []string
	for range 3 {
		f, path, err := CreateUnique(dir, "photo.jpg", 0o600)
		if err != nil {
			t.Fatal(err)
		}
		_ = f.Close()
		names = append(names, filepath.Base(path))
	}
	want := []string{"photo.jpg", "photo_1.jpg", "photo_2.jpg"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestCreateUnique_MissingDir(t *testing.T) {
	_, _, err := CreateUnique(filepath.Join(t.TempDir(), "nope"), "a.jpg", 0o600)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestCopyVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	content := []byte("verified copy content")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	for _, verify := range []bool{false, true} {
		dst, path, err := CreateUnique(dir, "dst.bin", 0o600)
		if err != nil {
			t.Fatal(err)
		}
		n, err := CopyVerified(src, dst, verify)
		if err != nil {
			t.Fatal(err)
		}
		if n != int64(len(content)) {
			t.Fatalf("copied %d bytes, want %d", n, len(content))
		}
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != string(content) {
			t.Fatalf("content mismatch: got %q, want %q", got, content)
		}
	}
}

func TestCopyVerified_MissingSourceRemovesDst(t *testing.T) {
	dir := t.TempDir()
	dst, path, err := CreateUnique(dir, "dst.bin", 0o600)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := CopyVerified(filepath.Join(dir, "nonexistent"), dst, true); err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected dst to be removed, stat err = %v", err)
	}
}

func TestPreserveAttributes(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	for _, p := range []string{src, dst} {
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	mtime := time.Date(2019, 5, 4, 3, 2, 1, 0, time.UTC)
	if err := os.Chmod(src, 0o640); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(src)
	if err != nil {
		t.Fatal(err)
	}

	if err := PreserveAttributes(dst, info); err != nil {
		t.Fatal(err)
	}
	got, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if got.Mode().Perm() != 0o640 {
		t.Fatalf("mode = %o, want 640", got.Mode().Perm())
	}
	if !got.ModTime().Equal(mtime) {
		t.Fatalf("mtime = %v, want %v", got.ModTime(), mtime)
	}
}
