package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cindexd/cindex/internal/fileconsumer"
	"github.com/cindexd/cindex/internal/importpipeline"
	"github.com/cindexd/cindex/internal/querydb"
)

func TestPollInterval(t *testing.T) {
	tests := []struct {
		files    int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{70, 1 * time.Second},
		{499, 1 * time.Second},
		{500, 2 * time.Second},
		{2000, 5 * time.Second},
		{5000, 11 * time.Second},
		{100000, 60 * time.Second},
	}
	for _, tt := range tests {
		got := pollInterval(tt.files)
		if got != tt.expected {
			t.Errorf("pollInterval(%d) = %v, want %v", tt.files, got, tt.expected)
		}
	}
}

func newTestPipeline(t *testing.T) (*querydb.Database, *importpipeline.Pipeline, func()) {
	t.Helper()
	db := querydb.New()
	consumer := fileconsumer.New()
	p := importpipeline.New(db, nil, consumer, importpipeline.Config{QueueDepth: 8, IndexWorkers: 1, MergeWorkers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	return db, p, func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("pipeline did not shut down")
		}
	}
}

func waitForCounts(t *testing.T, db *querydb.Database, wantFiles, wantTypes int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if files, types, _, _ := db.Counts(); files == wantFiles && types == wantTypes {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for files=%d types=%d", wantFiles, wantTypes)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWatcherIndexesNewFile(t *testing.T) {
	db, p, stop := newTestPipeline(t)
	defer stop()

	dir := t.TempDir()
	w := New(dir, p)

	ctx := context.Background()
	w.poll(ctx) // baseline capture of an empty workspace

	if err := os.WriteFile(filepath.Join(dir, "widget.h"), []byte("class Widget { public: Widget(); int count; };"), 0o600); err != nil {
		t.Fatal(err)
	}
	w.poll(ctx) // the new file differs from the baseline and gets submitted

	waitForCounts(t, db, 1, 1)
}

func TestWatcherDetectsModification(t *testing.T) {
	db, p, stop := newTestPipeline(t)
	defer stop()

	dir := t.TempDir()
	w := New(dir, p)
	ctx := context.Background()
	w.poll(ctx) // baseline capture of an empty workspace

	path := filepath.Join(dir, "widget.h")
	if err := os.WriteFile(path, []byte("class Widget { public: Widget(); };"), 0o600); err != nil {
		t.Fatal(err)
	}
	w.poll(ctx) // the new file differs from the baseline and gets submitted
	waitForCounts(t, db, 1, 1)

	time.Sleep(10 * time.Millisecond)
	now := time.Now().Add(time.Second)
	if err := os.WriteFile(path, []byte("class Widget { public: Widget(); int count; };"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, now, now); err != nil {
		t.Fatal(err)
	}

	w.poll(ctx)

	deadline := time.After(2 * time.Second)
	for {
		if _, _, funcs, vars := db.Counts(); funcs == 1 && vars == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the modified file to be re-merged")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWatcherRunStopsOnCancel(t *testing.T) {
	_, p, stop := newTestPipeline(t)
	defer stop()

	w := New(t.TempDir(), p)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop after context cancellation")
	}
}
