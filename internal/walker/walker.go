// Package walker discovers ingestable document files under a directory,
// applying include/exclude glob patterns and skipping binary content.
package walker

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultMaxFileSize is the maximum document size to ingest (4 MB).
const DefaultMaxFileSize int64 = 4 << 20

// Source is one document file discovered during traversal.
type Source struct {
	Path    string // Absolute path on disk.
	RelPath string // Path relative to the root directory, slash-separated.
	Size    int64  // File size in bytes.
}

// Options controls the behaviour of Collect.
type Options struct {
	Include     []string // Glob patterns — only matching files are included.
	Exclude     []string // Glob patterns — matching files are excluded.
	MaxFileSize int64    // Files larger than this are skipped (0 = use default).
}

// Collect traverses the directory tree rooted at root and returns every
// document file that passes filtering. Binary files and files matching the
// root's .gitignore are skipped.
func Collect(root string, opts Options) ([]Source, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("walker: resolve root: %w", err)
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	ignorePatterns := loadGitignore(filepath.Join(absRoot, ".gitignore"))

	var sources []Source

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Skip entries we cannot read instead of aborting.
			return nil
		}

		if d.IsDir() {
			if shouldExcludeDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}

		if matchesGitignore(relPath, ignorePatterns) {
			return nil
		}
		if !MatchesInclude(relPath, opts.Include) {
			return nil
		}
		if MatchesExclude(relPath, opts.Exclude) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > maxSize {
			return nil
		}
		if isBinary(path) {
			return nil
		}

		sources = append(sources, Source{
			Path:    path,
			RelPath: filepath.ToSlash(relPath),
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walker: traversal: %w", err)
	}

	return sources, nil
}

// isBinary reads the first 512 bytes of a file and checks for NUL bytes,
// which is a simple but effective heuristic for binary content.
func isBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true // treat unreadable files as binary
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return true
	}

	for i := 0; i < n; i++ {
		if buf[i] == 0 {
			return true
		}
	}
	return false
}
