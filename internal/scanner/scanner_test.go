package scanner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"picsift/internal/identity"
	"picsift/internal/probe"
	"picsift/internal/runctl"
	"picsift/internal/scanner"
	"picsift/internal/testsupport"
)

func TestSuffixes(t *testing.T) {
	got := scanner.Suffixes([]string{"jpg", ".png", "*.gif", " JPG ", "jpg", ""})
	want := []string{".jpg", ".png", ".gif", ".JPG"}
	if !slices.Equal(got, want) {
		t.Fatalf("Suffixes = %v, want %v", got, want)
	}
}

func TestEnumerateMatchesLiterallyAndSkipsVisited(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.jpg", "sub/b.jpg", "c.JPG", "d.png", "e.jpg.txt"} {
		testsupport.WriteFile(t, filepath.Join(root, name), 10)
	}
	if err := os.Symlink(filepath.Join(root, "a.jpg"), filepath.Join(root, "link.jpg")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	visited := scanner.NewVisitedSet()
	paths, err := scanner.Enumerate(context.Background(), root, []string{"jpg"}, visited, nil, nil)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	canonical, _ := filepath.EvalSymlinks(root)
	want := []string{filepath.Join(canonical, "a.jpg"), filepath.Join(canonical, "sub", "b.jpg")}
	slices.Sort(paths)
	if !slices.Equal(paths, want) {
		t.Fatalf("Enumerate = %v, want %v", paths, want)
	}

	again, err := scanner.Enumerate(context.Background(), root, []string{"jpg"}, visited, nil, nil)
	if err != nil {
		t.Fatalf("Enumerate again: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("already visited paths must not be returned twice, got %v", again)
	}
}

func TestEnumerateErrors(t *testing.T) {
	root := t.TempDir()
	if _, err := scanner.Enumerate(context.Background(), root, nil, nil, nil, nil); !errors.Is(err, scanner.ErrNoExtensions) {
		t.Fatalf("expected ErrNoExtensions, got %v", err)
	}
	if _, err := scanner.Enumerate(context.Background(), filepath.Join(root, "missing"), []string{"jpg"}, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestScanGroupsDuplicatesWithinRoot(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteImage(t, filepath.Join(root, "a.png"), 1)
	testsupport.CopyFile(t, filepath.Join(root, "a.png"), filepath.Join(root, "nested", "a-copy.png"))
	testsupport.WriteImage(t, filepath.Join(root, "b.png"), 2)
	testsupport.WriteFile(t, filepath.Join(root, "junk.png"), 64)

	prober := probe.New(probe.Options{Mode: identity.ModeChecksum})
	s := scanner.New(prober, scanner.Options{Workers: 2})

	var calls []int
	var mu sync.Mutex
	res, err := s.Scan(context.Background(), root, []string{"png"}, scanner.NewVisitedSet(), runctl.New(), func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if total != 4 {
			t.Errorf("unexpected total %d", total)
		}
		calls = append(calls, done)
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !slices.Equal(calls, []int{1, 2, 3, 4}) {
		t.Fatalf("progress should report each completion in order, got %v", calls)
	}
	if res.Candidates != 4 || res.Files != 3 {
		t.Fatalf("unexpected counts candidates=%d files=%d", res.Candidates, res.Files)
	}
	if len(res.Uniques) != 1 || filepath.Base(res.Uniques[0].Path()) != "b.png" {
		t.Fatalf("unexpected uniques %v", res.Uniques)
	}
	if len(res.Duplicates) != 1 {
		t.Fatalf("expected one duplicate group, got %d", len(res.Duplicates))
	}
	for key, g := range res.Duplicates {
		if key != g.Identity.Key() || len(g.Paths) != 2 {
			t.Fatalf("unexpected group %v", g)
		}
	}
}

type blockingProber struct {
	started atomic.Int32
	release chan struct{}
}

func (p *blockingProber) Probe(ctx context.Context, path string) (identity.Identity, error) {
	p.started.Add(1)
	select {
	case <-p.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return identity.NewMetadata(path, time.Now(), 1, ""), nil
}

func TestScanCancelledReturnsNoResult(t *testing.T) {
	root := t.TempDir()
	for i := range 8 {
		testsupport.WriteFile(t, filepath.Join(root, string(rune('a'+i))+".jpg"), 5)
	}

	prober := &blockingProber{release: make(chan struct{})}
	s := scanner.New(prober, scanner.Options{Workers: 2})
	ctl := runctl.New()

	type outcome struct {
		res scanner.FolderResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.Scan(context.Background(), root, []string{"jpg"}, nil, ctl, nil)
		done <- outcome{res, err}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for prober.started.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	ctl.Cancel()
	close(prober.release)

	select {
	case out := <-done:
		if !errors.Is(out.err, runctl.ErrCancelled) {
			t.Fatalf("expected ErrCancelled, got %v", out.err)
		}
		if out.res.Uniques != nil || out.res.Duplicates != nil {
			t.Fatal("cancelled scan must not return a result")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not stop after cancel")
	}
}

func TestScanHonoursPause(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteImage(t, filepath.Join(root, "a.png"), 1)

	ctl := runctl.New()
	ctl.Pause()
	s := scanner.New(probe.New(probe.Options{}), scanner.Options{Workers: 1})

	done := make(chan error, 1)
	go func() {
		_, err := s.Scan(context.Background(), root, []string{"png"}, nil, ctl, nil)
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("scan finished while paused: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	ctl.Resume()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not resume")
	}
}

func TestGrouperConcurrentAdds(t *testing.T) {
	g := scanner.NewGrouper()
	mtime := time.Unix(1600000000, 0)
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dir := "/d" + string(rune('a'+i%5))
			g.Add(identity.NewMetadata(dir+"/same.jpg", mtime, 10, ""))
		}(i)
	}
	wg.Wait()

	uniques, groups := g.Partition()
	if len(uniques) != 0 || len(groups) != 1 {
		t.Fatalf("expected one group, got uniques=%d groups=%d", len(uniques), len(groups))
	}
	for _, grp := range groups {
		if len(grp.Paths) != 5 {
			t.Fatalf("expected 5 distinct paths, got %v", grp.Paths)
		}
	}
}
