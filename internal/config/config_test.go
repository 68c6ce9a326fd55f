package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultHasSaneValues(t *testing.T) {
	cfg := Default()
	if cfg.IndexWorkers <= 0 {
		t.Errorf("IndexWorkers = %d, want > 0", cfg.IndexWorkers)
	}
	if cfg.IPCRegionSize <= 0 {
		t.Errorf("IPCRegionSize = %d, want > 0", cfg.IPCRegionSize)
	}
	if cfg.Transport != TransportStdio {
		t.Errorf("Transport = %q, want stdio", cfg.Transport)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cindexd.yaml")
	content := "index_workers: 8\ntransport: tcp\ntcp_addr: 127.0.0.1:9123\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	if cfg.IndexWorkers != 8 {
		t.Errorf("IndexWorkers = %d, want 8", cfg.IndexWorkers)
	}
	if cfg.Transport != TransportTCP || cfg.TCPAddr != "127.0.0.1:9123" {
		t.Errorf("Transport/TCPAddr = %q/%q, want tcp/127.0.0.1:9123", cfg.Transport, cfg.TCPAddr)
	}
	// Fields absent from the file keep their defaults.
	if cfg.MergeWorkers != defaultMergeWorkers {
		t.Errorf("MergeWorkers = %d, want default %d", cfg.MergeWorkers, defaultMergeWorkers)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	want := Default()
	if cfg.IndexWorkers != want.IndexWorkers || cfg.Transport != want.Transport {
		t.Errorf("Load(missing) = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadInvalidYAMLFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cindexd.yaml")
	if err := os.WriteFile(path, []byte("not: [valid: yaml"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := Load(path)
	want := Default()
	if cfg.IndexWorkers != want.IndexWorkers {
		t.Errorf("IndexWorkers = %d, want default %d", cfg.IndexWorkers, want.IndexWorkers)
	}
}
