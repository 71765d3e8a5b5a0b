package disk

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/meigma/imgcache/internal/testutil"
)

func TestMirrorPutGet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	url := "http://x/img.png"
	want := testutil.Image(9)
	if err := m.Put(url, want); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok := m.Get(url)
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if !testutil.SameImage(got, want) {
		t.Fatal("Get() returned a different image")
	}

	sum := sha256.Sum256([]byte(url))
	path := filepath.Join(dir, hex.EncodeToString(sum[:]))
	if m.Path(url) != path {
		t.Fatalf("Path() = %s, want %s", m.Path(url), path)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected mirror file at %s: %v", path, err)
	}
	if m.SizeBytes() != info.Size() {
		t.Fatalf("SizeBytes() = %d, want %d", m.SizeBytes(), info.Size())
	}
	if !m.Contains(url) {
		t.Fatal("Contains() = false, want true")
	}
}

func TestMirrorMiss(t *testing.T) {
	t.Parallel()

	m, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := m.Get("http://x/missing.png"); ok {
		t.Fatal("Get() ok = true for missing file")
	}
}

func TestMirrorShardPrefix(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m, err := New(dir, WithShardPrefixLen(2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	url := "http://x/sharded.png"
	if err := m.Put(url, testutil.Image(1)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	name := Name(url)
	path := filepath.Join(dir, name[:2], name)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected mirror file at %s: %v", path, err)
	}
}

func TestNewInvalid(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Fatal("New(\"\") error = nil, want error")
	}
	if _, err := New(t.TempDir(), WithMaxBytes(-1)); err == nil {
		t.Fatal("New() with negative max bytes error = nil, want error")
	}
	if _, err := New(t.TempDir(), WithShardPrefixLen(-1)); err == nil {
		t.Fatal("New() with negative shard prefix error = nil, want error")
	}
}

func TestMirrorCorruptFileIsRemoved(t *testing.T) {
	t.Parallel()

	m, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	url := "http://x/corrupt.png"
	if err := os.WriteFile(m.Path(url), []byte("garbage"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, ok := m.Get(url); ok {
		t.Fatal("Get() ok = true for corrupt file")
	}
	if m.Contains(url) {
		t.Fatal("corrupt file was not removed")
	}
}

func TestMirrorMaxBytesPrunesOldest(t *testing.T) {
	t.Parallel()

	probe, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := probe.Put("probe", testutil.Image(1)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	one := probe.SizeBytes()

	m, err := New(t.TempDir(), WithMaxBytes(one+one/2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := m.Put("old", testutil.Image(1)); err != nil {
		t.Fatalf("Put(old) error = %v", err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(m.Path("old"), past, past); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	if err := m.Put("new", testutil.Image(1)); err != nil {
		t.Fatalf("Put(new) error = %v", err)
	}
	if m.Contains("old") {
		t.Fatal("oldest file was not pruned")
	}
	if !m.Contains("new") {
		t.Fatal("new file missing")
	}
	if m.SizeBytes() > m.MaxBytes() {
		t.Fatalf("SizeBytes() = %d exceeds MaxBytes() = %d", m.SizeBytes(), m.MaxBytes())
	}
}

func TestMirrorTooLarge(t *testing.T) {
	t.Parallel()

	m, err := New(t.TempDir(), WithMaxBytes(8))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	err = m.Put("big", testutil.Image(1))
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("Put() error = %v, want ErrPersist", err)
	}
	if m.Contains("big") {
		t.Fatal("oversized image was stored")
	}
}

func TestMirrorDeleteAndClear(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, url := range []string{"a", "b", "c"} {
		if err := m.Put(url, testutil.Image(2)); err != nil {
			t.Fatalf("Put(%s) error = %v", url, err)
		}
	}

	if err := m.Delete("a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := m.Delete("a"); err != nil {
		t.Fatalf("Delete() of missing file error = %v", err)
	}

	freed, err := m.Clear()
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if freed <= 0 {
		t.Fatalf("Clear() freed = %d, want > 0", freed)
	}
	if m.SizeBytes() != 0 {
		t.Fatalf("SizeBytes() = %d after Clear, want 0", m.SizeBytes())
	}

	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if reopened.SizeBytes() != 0 {
		t.Fatalf("reopened SizeBytes() = %d, want 0", reopened.SizeBytes())
	}
}

func TestMirrorPutNil(t *testing.T) {
	t.Parallel()

	m, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := m.Put("nil", nil); !errors.Is(err, ErrPersist) {
		t.Fatalf("Put(nil) error = %v, want ErrPersist", err)
	}
	if m.SizeBytes() != 0 {
		t.Fatalf("SizeBytes() = %d, want 0", m.SizeBytes())
	}
}

func TestMirrorIgnoresForeignFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	foreign := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(foreign, []byte("kept"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	partial := filepath.Join(dir, "mirror-123")
	if err := os.WriteFile(partial, []byte("partial write"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	m, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if m.SizeBytes() != 0 {
		t.Fatalf("SizeBytes() = %d, want 0 with only foreign files", m.SizeBytes())
	}
	if err := m.Put("a", testutil.Image(3)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if _, err := m.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if m.Contains("a") {
		t.Fatal("mirror file survived Clear")
	}
	for _, path := range []string{foreign, partial} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("Clear() removed %s: %v", filepath.Base(path), err)
		}
	}
}

func TestIsMirrorName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{Name("http://x/img.png"), true},
		{"mirror-42", false},
		{"notes.txt", false},
		{strings.ToUpper(Name("http://x/img.png")), false},
		{Name("http://x/img.png")[:63], false},
	}
	for _, tt := range tests {
		if got := isMirrorName(tt.name); got != tt.want {
			t.Errorf("isMirrorName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
