package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"picsift/internal/identity"
	"picsift/internal/scanresult"
	"picsift/internal/store"
	"picsift/internal/testsupport"
)

var mtime = time.Date(2022, 8, 9, 10, 11, 12, 123456789, time.UTC)

func checksumResult() *scanresult.Result {
	dup := identity.NewChecksumWithSum("/b/dup.jpg", mtime, 40, "2022:08:09 10:11:12", "d41d8cd98f00b204e9800998ecf8427e")
	uniques := []identity.Identity{
		identity.NewChecksumWithSum("/a/one.jpg", mtime, 10, "", "0cc175b9c0f1b6a831c399e269772661"),
		identity.NewChecksumWithSum("/a/broken.jpg", mtime, 11, "", ""),
	}
	groups := []scanresult.Group{{Identity: dup, Paths: []string{"/b/dup.jpg", "/a/dup.jpg", "/c/dup.jpg"}}}
	return scanresult.New(uniques, groups, []string{"/a", "/b", "/c"}, []string{"jpg", "JPG"}, identity.ModeChecksum)
}

func metadataResult() *scanresult.Result {
	uniques := []identity.Identity{
		identity.NewMetadata("/m/x.jpg", mtime, 5, ""),
		identity.NewMetadata("/m/y.jpg", time.Time{}, 6, "2001:02:03 04:05:06"),
	}
	return scanresult.New(uniques, nil, []string{"/m"}, []string{"jpg"}, identity.ModeMetadata)
}

func assertSameResult(t *testing.T, got, want *scanresult.Result) {
	t.Helper()
	if got.ID != want.ID || got.Mode != want.Mode {
		t.Fatalf("header mismatch: got %s/%s want %s/%s", got.ID, got.Mode, want.ID, want.Mode)
	}
	if !got.CreatedAt.Equal(want.CreatedAt.Truncate(time.Microsecond)) && !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("created at %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	if !slices.Equal(got.Roots, want.Roots) || !slices.Equal(got.Extensions, want.Extensions) {
		t.Fatalf("roots/extensions mismatch: %v %v", got.Roots, got.Extensions)
	}
	if len(got.Uniques) != len(want.Uniques) || len(got.Duplicates) != len(want.Duplicates) {
		t.Fatalf("shape mismatch: %d/%d vs %d/%d", len(got.Uniques), len(got.Duplicates), len(want.Uniques), len(want.Duplicates))
	}
	for i := range want.Uniques {
		if got.Uniques[i].Path() != want.Uniques[i].Path() || got.Uniques[i].Key() != want.Uniques[i].Key() {
			t.Fatalf("unique %d: got %v want %v", i, got.Uniques[i], want.Uniques[i])
		}
	}
	for i := range want.Duplicates {
		if got.Duplicates[i].Identity.Key() != want.Duplicates[i].Identity.Key() {
			t.Fatalf("group %d key mismatch", i)
		}
		if !slices.Equal(got.Duplicates[i].Paths, want.Duplicates[i].Paths) {
			t.Fatalf("group %d paths: got %v want %v", i, got.Duplicates[i].Paths, want.Duplicates[i].Paths)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for _, want := range []*scanresult.Result{checksumResult(), metadataResult()} {
		if err := s.Save(ctx, want); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := s.Load(ctx, want.ID)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		assertSameResult(t, got, want)
		if err := got.Validate(); err != nil {
			t.Fatalf("loaded result invalid: %v", err)
		}
	}
}

func TestSaveReplacesSameID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	r := metadataResult()
	if err := s.Save(ctx, r); err != nil {
		t.Fatal(err)
	}
	r.Uniques = r.Uniques[:1]
	if err := s.Save(ctx, r); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Uniques) != 1 {
		t.Fatalf("expected replaced scan, got %d uniques", len(got.Uniques))
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Uniques != 1 {
		t.Fatalf("unexpected history %+v", list)
	}
}

func TestLoadReferences(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := s.Load(ctx, store.LatestRef); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty history, got %v", err)
	}

	older := metadataResult()
	older.ID = "aaaa1111"
	older.CreatedAt = mtime
	newer := checksumResult()
	newer.ID = "aaaa2222"
	newer.CreatedAt = mtime.Add(time.Hour)
	for _, r := range []*scanresult.Result{newer, older} {
		if err := s.Save(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		ref    string
		wantID string
		err    error
	}{
		{"", "aaaa2222", nil},
		{"latest", "aaaa2222", nil},
		{"aaaa1111", "aaaa1111", nil},
		{"aaaa1", "aaaa1111", nil},
		{"aaaa", "", store.ErrAmbiguous},
		{"zzzz", "", store.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := s.Load(ctx, tt.ref)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got.ID != tt.wantID {
				t.Fatalf("loaded %s, want %s", got.ID, tt.wantID)
			}
		})
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "aaaa2222" {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if list[0].Groups != 1 || list[0].Files != 5 || list[0].Mode != identity.ModeChecksum {
		t.Fatalf("unexpected summary %+v", list[0])
	}
}

func TestDeleteAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a, b := metadataResult(), checksumResult()
	for _, r := range []*scanresult.Result{a, b} {
		if err := s.Save(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	id, err := s.Delete(ctx, a.ID)
	if err != nil || id != a.ID {
		t.Fatalf("Delete = %q, %v", id, err)
	}
	if _, err := s.Load(ctx, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected deleted scan to be gone, got %v", err)
	}
	removed, err := s.Clear(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("Clear = %d, %v", removed, err)
	}
	if list, _ := s.List(ctx); len(list) != 0 {
		t.Fatalf("expected empty history, got %d", len(list))
	}
}

func TestWritesFailWhileLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	other := flock.New(cfg.LockPath())
	ok, err := other.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}
	defer other.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := s.Save(ctx, metadataResult()); !errors.Is(err, store.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s, err := store.Open(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	r := metadataResult()
	if err := s.Save(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	again := testsupport.MustOpenStore(t, cfg)
	if _, err := again.Load(context.Background(), r.ID); err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.StateDir, "picsift.db")); err != nil {
		t.Fatalf("expected database in state dir: %v", err)
	}
}
