// Package config holds cindexd's runtime settings: worker pool sizes,
// the IPC shared-memory region size, and the on-disk cache directory.
// Every field has a built-in default; an optional YAML file overrides a
// subset of them.
//
// Grounded on store.cacheDir's os.UserHomeDir+filepath.Join(".cache",...)
// convention for the default cache directory, and on httplink.LoadConfig's
// "read yaml.v3, fall back to defaults on any error" pattern for the
// optional config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

const (
	defaultMergeWorkers  = 2
	defaultIPCRegionSize = 16 * 1024 * 1024
	appDirName           = "cindexd"
)

// Transport selects how cindexd talks to its editor client.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportTCP   Transport = "tcp"
)

// Config is cindexd's fully-resolved runtime configuration.
type Config struct {
	// WorkspaceRoot is the directory an initial full-workspace scan
	// (internal/discover) and the fallback file watcher (internal/
	// watcher) operate over. Defaults to the working directory cindexd
	// was started in.
	WorkspaceRoot string `yaml:"workspace_root"`

	// IndexWorkers is the number of concurrent parse workers draining
	// the import pipeline's IndexRequest queue.
	IndexWorkers int `yaml:"index_workers"`

	// MergeWorkers is the number of concurrent merge workers draining
	// the import pipeline's OnIdMapped queue.
	MergeWorkers int `yaml:"merge_workers"`

	// IPCRegionSize bounds how many bytes of encoded messages the IPC
	// queue holds before Push starts backing off.
	IPCRegionSize int `yaml:"ipc_region_size"`

	// CacheDir is where per-file IndexFile artifacts are cached on disk.
	CacheDir string `yaml:"cache_dir"`

	// Transport selects stdio (the default) or a future TCP listener.
	Transport Transport `yaml:"transport"`

	// TCPAddr is only consulted when Transport is TransportTCP.
	TCPAddr string `yaml:"tcp_addr"`
}

// Default returns a Config with every field set to its built-in default.
func Default() *Config {
	dir, err := defaultCacheDir()
	if err != nil {
		dir = filepath.Join(os.TempDir(), appDirName)
	}
	root, err := os.Getwd()
	if err != nil {
		root = "."
	}
	// round(NumCPU * 0.8), at least 1.
	indexWorkers := (runtime.NumCPU()*8 + 5) / 10
	if indexWorkers < 1 {
		indexWorkers = 1
	}
	return &Config{
		WorkspaceRoot: root,
		IndexWorkers:  indexWorkers,
		MergeWorkers:  defaultMergeWorkers,
		IPCRegionSize: defaultIPCRegionSize,
		CacheDir:      dir,
		Transport:     TransportStdio,
	}
}

// Load returns Default(), overridden field-by-field by whatever a YAML
// file at path sets. A missing file or invalid YAML is not an error:
// both cases fall back to the default, matching httplink's LoadConfig.
func Load(path string) *Config {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return Default()
	}
	return cfg
}

func defaultCacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: home dir: %w", err)
	}
	return filepath.Join(home, ".cache", appDirName), nil
}

// EnsureCacheDir creates c.CacheDir if it doesn't already exist.
func (c *Config) EnsureCacheDir() error {
	if err := os.MkdirAll(c.CacheDir, 0o755); err != nil {
		return fmt.Errorf("config: mkdir cache dir: %w", err)
	}
	return nil
}
