package diskcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cindexd/cindex/internal/indexfile"
)

func mustOpen(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func writeSourceFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "widget.cpp")
	if err := os.WriteFile(path, []byte("class Widget {};"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLookupMissOnEmptyCache(t *testing.T) {
	c := mustOpen(t)
	path := writeSourceFile(t)
	_, ok, err := c.Lookup(path, ArgsHash(nil))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Error("expected a miss on an empty cache")
	}
}

func TestStoreThenLookupHits(t *testing.T) {
	c := mustOpen(t)
	path := writeSourceFile(t)
	argsHash := ArgsHash([]string{"-std=c++17"})

	want := indexfile.New(path, indexfile.LangCpp)
	if err := c.Store(path, argsHash, want); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, ok, err := c.Lookup(path, argsHash)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit after Store")
	}
	if got.Path != want.Path || got.Language != want.Language {
		t.Errorf("got = %+v, want %+v", got, want)
	}
}

func TestLookupMissOnArgsHashChange(t *testing.T) {
	c := mustOpen(t)
	path := writeSourceFile(t)
	if err := c.Store(path, ArgsHash([]string{"-std=c++17"}), indexfile.New(path, indexfile.LangCpp)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	_, ok, err := c.Lookup(path, ArgsHash([]string{"-std=c++20"}))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Error("expected a miss after the args hash changed")
	}
}

func TestLookupMissWhenSourceNewerThanArtifact(t *testing.T) {
	c := mustOpen(t)
	path := writeSourceFile(t)
	argsHash := ArgsHash(nil)
	if err := c.Store(path, argsHash, indexfile.New(path, indexfile.LangCpp)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	_, ok, err := c.Lookup(path, argsHash)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Error("expected a miss once the source file is newer than the cached artifact")
	}
}

func TestInvalidate(t *testing.T) {
	c := mustOpen(t)
	path := writeSourceFile(t)
	argsHash := ArgsHash(nil)
	if err := c.Store(path, argsHash, indexfile.New(path, indexfile.LangCpp)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := c.Invalidate(path); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	_, ok, err := c.Lookup(path, argsHash)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Error("expected a miss after Invalidate")
	}
}
