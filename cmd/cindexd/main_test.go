package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cindexd/cindex/internal/fileconsumer"
	"github.com/cindexd/cindex/internal/importpipeline"
	"github.com/cindexd/cindex/internal/lru"
	"github.com/cindexd/cindex/internal/querydb"
)

func TestFuzzyMatchSymbolsAttachesURIAndCaches(t *testing.T) {
	db := querydb.New()
	consumer := fileconsumer.New()
	p := importpipeline.New(db, nil, consumer, importpipeline.Config{QueueDepth: 8, IndexWorkers: 1, MergeWorkers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	defer func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("pipeline did not shut down")
		}
	}()

	p.Submit(importpipeline.IndexRequest{
		Path:          "/project/widget.h",
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
			t.Fatal("timed out waiting for the file to be indexed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	s := &server{db: db, pipeline: p, fuzzyCache: lru.New[fuzzyMatchQuery, []querydb.SymbolMatch](fuzzyMatchCacheSize)}

	first := s.fuzzyMatchSymbols("Widget", 10)
	if len(first) == 0 {
		t.Fatal("expected at least one match for \"Widget\"")
	}
	var found bool
	for _, m := range first {
		if strings.Contains(m.Name, "Widget") {
			found = true
			if m.URI == "" {
				t.Errorf("match %q missing a file:// URI", m.Name)
			} else if !strings.HasPrefix(m.URI, "file://") {
				t.Errorf("match %q URI = %q, want file:// prefix", m.Name, m.URI)
			}
		}
	}
	if !found {
		t.Fatal("no match named after Widget found")
	}

	if s.fuzzyCache.Len() != 1 {
		t.Errorf("fuzzyCache.Len() = %d, want 1 after one distinct query", s.fuzzyCache.Len())
	}

	second := s.fuzzyMatchSymbols("Widget", 10)
	if len(second) != len(first) {
		t.Errorf("cached call returned %d matches, want %d", len(second), len(first))
	}
	if s.fuzzyCache.Len() != 1 {
		t.Errorf("fuzzyCache.Len() = %d after a repeat query, want still 1", s.fuzzyCache.Len())
	}
}

func TestScanWorkspaceSubmitsDiscoveredFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "widget.h"), []byte("class Widget { public: Widget(); };"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a source file"), 0o644); err != nil {
		t.Fatal(err)
	}

	db := querydb.New()
	consumer := fileconsumer.New()
	p := importpipeline.New(db, nil, consumer, importpipeline.Config{QueueDepth: 8, IndexWorkers: 1, MergeWorkers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	defer func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("pipeline did not shut down")
		}
	}()

	scanWorkspace(ctx, dir, p)

	deadline := time.After(2 * time.Second)
	for {
		if files, types, _, _ := db.Counts(); files == 1 && types == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the scanned file to be indexed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
