package scan

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"dupecull/internal/config"
)

func newTestFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return fs
}

func TestScanBucketsBySize(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"/data/a.txt":       "hello",
		"/data/sub/b.txt":   "hello",
		"/data/sub/c.txt":   "world!!",
		"/data/unique.txt":  "only one of this size here",
		"/data/d.txt":       "xxxxx",
		"/data/sub/e/f.txt": "hello",
	})

	cfg := config.DefaultConfig()
	cfg.Root = "/data"

	s := New(fs, cfg, zerolog.Nop(), nil)
	got, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	if s.FilesScanned != 6 {
		t.Errorf("FilesScanned = %d, want 6", s.FilesScanned)
	}
	// Size 5 has four files ("hello" x3 plus "xxxxx"); size 7 and 26 are
	// singletons and must be dropped.
	if len(got) != 1 {
		t.Fatalf("got %d size buckets, want 1: %v", len(got), got)
	}
	bucket, ok := got[5]
	if !ok {
		t.Fatal("missing bucket for size 5")
	}
	if len(bucket) != 4 {
		t.Fatalf("bucket size = %d, want 4", len(bucket))
	}
	for i := 1; i < len(bucket); i++ {
		if bucket[i-1].Path >= bucket[i].Path {
			t.Errorf("bucket not sorted by path: %s before %s", bucket[i-1].Path, bucket[i].Path)
		}
	}
	for _, rec := range bucket {
		if rec.Size != 5 {
			t.Errorf("record %s has size %d, want 5", rec.Path, rec.Size)
		}
		if rec.MTime.IsZero() {
			t.Errorf("record %s has zero mtime", rec.Path)
		}
		if rec.CTime.IsZero() {
			t.Errorf("record %s has zero ctime", rec.Path)
		}
	}
}

func TestScanSizeBounds(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"/data/small1": "ab",
		"/data/small2": "cd",
		"/data/mid1":   "abcdef",
		"/data/mid2":   "ghijkl",
		"/data/big1":   "0123456789012345",
		"/data/big2":   "0123456789012345",
	})

	cfg := config.DefaultConfig()
	cfg.Root = "/data"
	cfg.MinSize = 3
	cfg.MaxSize = 10

	s := New(fs, cfg, zerolog.Nop(), nil)
	got, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("got %d buckets, want 1 (only the size-6 pair)", len(got))
	}
	if _, ok := got[6]; !ok {
		t.Error("expected bucket for size 6")
	}
	if s.FilesSkipped != 4 {
		t.Errorf("FilesSkipped = %d, want 4 (two under min, two over max)", s.FilesSkipped)
	}
}

func TestScanPrunesExcludedDirs(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		"/data/keep/a.txt":                    "same",
		"/data/keep/b.txt":                    "same",
		"/data/games/c.txt":                   "same",
		"/data/_DUPLICATE_QUARANTINE/old.txt": "same",
		"/data/_DUPLICATE_LOGS/run.log":       "same",
	})

	cfg := config.DefaultConfig()
	cfg.Root = "/data"
	cfg.ExcludePaths = []string{"/data/games"}

	s := New(fs, cfg, zerolog.Nop(), nil)
	got, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	bucket := got[4]
	if len(bucket) != 2 {
		t.Fatalf("bucket = %d files, want 2 (excluded and tool dirs pruned): %+v", len(bucket), bucket)
	}
	for _, rec := range bucket {
		if rec.Path != "/data/keep/a.txt" && rec.Path != "/data/keep/b.txt" {
			t.Errorf("unexpected surviving path %s", rec.Path)
		}
	}
}

func TestScanMissingRoot(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Root = "/nope"

	s := New(afero.NewMemMapFs(), cfg, zerolog.Nop(), nil)
	if _, err := s.Scan(context.Background()); err == nil {
		t.Error("Scan() on missing root should fail")
	}
}

func TestScanCanceledContext(t *testing.T) {
	fs := newTestFs(t, map[string]string{"/data/a": "x", "/data/b": "x"})

	cfg := config.DefaultConfig()
	cfg.Root = "/data"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(fs, cfg, zerolog.Nop(), nil)
	if _, err := s.Scan(ctx); err == nil {
		t.Error("Scan() with canceled context should fail")
	}
}
