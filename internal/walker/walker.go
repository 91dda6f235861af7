package walker

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultMaxFileSize is the maximum file size to consider (1 MB).
const DefaultMaxFileSize int64 = 1 << 20

// FileInfo holds metadata about a single file discovered during traversal.
type FileInfo struct {
	Path    string // Absolute path on disk.
	RelPath string // Path relative to the root directory, slash-separated.
	Size    int64  // File size in bytes.
}

// Config controls the behaviour of the Walk function.
type Config struct {
	RootDir     string   // Root directory to walk.
	Include     []string // Glob patterns; only matching files are included.
	Exclude     []string // Glob patterns; matching files are excluded.
	MaxFileSize int64    // Files larger than this are skipped (0 = use default).
}

// Walk traverses the directory tree rooted at cfg.RootDir and returns
// metadata for every text file that passes filtering, in deterministic
// lexical order. Binary files and default-excluded directories are skipped.
func Walk(cfg Config) ([]FileInfo, error) {
	root, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("walker: resolve root: %w", err)
	}

	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	var files []FileInfo

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
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

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if !MatchesInclude(relPath, cfg.Include) {
			return nil
		}
		if MatchesExclude(relPath, cfg.Exclude) {
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

		files = append(files, FileInfo{
			Path:    path,
			RelPath: filepath.ToSlash(relPath),
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walker: %w", err)
	}

	return files, nil
}

// isBinary sniffs the first 512 bytes of a file for a NUL byte.
func isBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return true
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}
