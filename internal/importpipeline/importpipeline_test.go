package importpipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cindexd/cindex/internal/diskcache"
	"github.com/cindexd/cindex/internal/fileconsumer"
	"github.com/cindexd/cindex/internal/querydb"
)

func TestPipelineIndexesOneFileEndToEnd(t *testing.T) {
	db := querydb.New()
	consumer := fileconsumer.New()
	p := New(db, nil, consumer, Config{QueueDepth: 8, IndexWorkers: 1, MergeWorkers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	p.Submit(IndexRequest{
		Path:          "widget.h",
		IsInteractive: true,
		Contents:      []byte("class Widget { public: Widget(); int count; };"),
	})

	deadline := time.After(2 * time.Second)
	for {
		if files, types, _, _ := db.Counts(); files == 1 && types == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the file to be applied")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func runAndWait(t *testing.T, p *Pipeline, db *querydb.Database, req IndexRequest, wantFuncs int) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	defer func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after cancel")
		}
	}()

	p.Submit(req)

	deadline := time.After(2 * time.Second)
	for {
		if _, _, funcs, _ := db.Counts(); funcs >= wantFuncs {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d funcs to be applied", wantFuncs)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// TestDiskCacheHitAfterRestartStillMergesAsFirstImport guards against a
// restart losing cross-reference data: a warm on-disk cache must not make
// the id-map worker treat a file as already-seen in a brand new process
// whose in-memory database has never applied it.
func TestDiskCacheHitAfterRestartStillMergesAsFirstImport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calls.cpp")
	source := "void Bar() {}\nvoid Foo() { Bar(); }\n"
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}

	cache, err := diskcache.Open(filepath.Join(dir, "artifacts.db"))
	if err != nil {
		t.Fatalf("diskcache.Open: %v", err)
	}
	defer cache.Close()

	req := IndexRequest{Path: path, IsInteractive: true, WriteToDisk: true}

	db1 := querydb.New()
	p1 := New(db1, cache, fileconsumer.New(), Config{QueueDepth: 8, IndexWorkers: 1, MergeWorkers: 1})
	runAndWait(t, p1, db1, req, 2)

	var bar *querydb.QueryFunc
	for _, m := range db1.FuzzyMatchSymbols("Bar", 10) {
		if m.Ref.Kind == querydb.SymbolFunc {
			bar = db1.Func(m.Ref.FuncID)
		}
	}
	if bar == nil || len(bar.Callers) == 0 {
		t.Fatalf("first run: Bar.Callers = %v, want at least one caller from Foo", bar)
	}

	// Simulate a cindexd restart: a fresh in-memory database and pipeline
	// over the same on-disk cache, which still holds the artifact from
	// the run above. The second run's parse worker will hit that cache
	// and hand the cached artifact straight to the id-map worker as curr.
	db2 := querydb.New()
	p2 := New(db2, cache, fileconsumer.New(), Config{QueueDepth: 8, IndexWorkers: 1, MergeWorkers: 1})
	runAndWait(t, p2, db2, req, 2)

	bar = nil
	for _, m := range db2.FuzzyMatchSymbols("Bar", 10) {
		if m.Ref.Kind == querydb.SymbolFunc {
			bar = db2.Func(m.Ref.FuncID)
		}
	}
	if bar == nil || len(bar.Callers) == 0 {
		t.Fatalf("after restart: Bar.Callers = %v, want at least one caller from Foo, not an empty diff against itself", bar)
	}
}
