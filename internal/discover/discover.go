// Package discover walks a workspace root and returns the C/C++/
// Objective-C source files it should be indexed, for the initial
// full-workspace scan an editor triggers on startup (a supplemented
// feature: spec.md's core takes indexing requests one at a time and
// never itself decides what a "workspace" is, but a real LSP back end
// needs exactly this to answer the first textDocument/didOpen burst
// without waiting for the editor to open every file by hand).
//
// Grounded on the teacher's discover package (directory-skip and
// suffix-skip tables, filepath.Walk traversal, optional ignore-file
// support), narrowed from its original closed set of ~30 languages
// down to the three this index core's front end actually parses.
package discover

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cindexd/cindex/internal/frontend"
	"github.com/cindexd/cindex/internal/indexfile"
)

// ignoreDirs are directory names never descended into.
var ignoreDirs = map[string]bool{
	".git": true, ".hg": true, ".svn": true, ".vs": true, ".vscode": true,
	".idea": true, "build": true, "cmake-build-debug": true, "cmake-build-release": true,
	"out": true, "bin": true, "obj": true, "dist": true, "vendor": true,
	"node_modules": true, "Pods": true, "bazel-bin": true, "bazel-out": true,
}

// FileInfo is one discovered source file.
type FileInfo struct {
	Path     string
	RelPath  string
	Language indexfile.Language
}

// Options configures a Discover call.
type Options struct {
	// IgnoreFile, if set, names an additional gitignore-style pattern
	// file to honor on top of ignoreDirs (defaults to ".cindexignore"
	// in the workspace root when empty).
	IgnoreFile string
}

// Discover walks root and returns every file frontend.LanguageForPath
// maps to a known language, skipping build-output and VCS directories.
func Discover(ctx context.Context, root string, opts *Options) ([]FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ignoreFile := filepath.Join(root, ".cindexignore")
	if opts != nil && opts.IgnoreFile != "" {
		ignoreFile = opts.IgnoreFile
	}
	extraIgnore, _ := loadIgnoreFile(ignoreFile)

	var files []FileInfo
	err = filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			return filepath.SkipDir
		}

		rel, _ := filepath.Rel(root, path)
		if info.IsDir() {
			if shouldSkipDir(info.Name(), rel, extraIgnore) {
				return filepath.SkipDir
			}
			return nil
		}

		lang := frontend.LanguageForPath(path)
		if lang == indexfile.LangUnknown {
			return nil
		}
		files = append(files, FileInfo{Path: path, RelPath: filepath.ToSlash(rel), Language: lang})
		return nil
	})
	return files, err
}

func shouldSkipDir(name, rel string, extraIgnore []string) bool {
	if ignoreDirs[name] {
		return true
	}
	for _, pattern := range extraIgnore {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

func loadIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, scanner.Err()
}
