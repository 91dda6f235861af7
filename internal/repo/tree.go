package repo

import (
	"fmt"
	"path"
	"strings"

	"github.com/repoflow-ai/repoflow/internal/walker"
)

// RenderTree walks the repository working tree and renders it as an
// indented listing. Every file line carries a "(path: rel/path)" suffix so
// a downstream model can quote exact repository-relative paths. It also
// returns the flat ordered list of relative file paths.
func RenderTree(rootDir string) (string, []string, error) {
	files, err := walker.Walk(walker.Config{RootDir: rootDir})
	if err != nil {
		return "", nil, err
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Repository: %s", path.Base(rootDir)))
	lines = append(lines, strings.Repeat("=", 40))

	var relPaths []string
	seenDirs := make(map[string]bool)

	for _, f := range files {
		relPaths = append(relPaths, f.RelPath)

		dir := path.Dir(f.RelPath)
		if dir != "." && !seenDirs[dir] {
			// Emit any unseen ancestor directories, outermost first.
			parts := strings.Split(dir, "/")
			for i := range parts {
				prefix := strings.Join(parts[:i+1], "/")
				if seenDirs[prefix] {
					continue
				}
				seenDirs[prefix] = true
				indent := strings.Repeat("|   ", i)
				lines = append(lines, fmt.Sprintf("%s|-- %s/", indent, parts[i]))
			}
		}

		depth := 0
		if dir != "." {
			depth = strings.Count(dir, "/") + 1
		}
		indent := strings.Repeat("|   ", depth)
		lines = append(lines, fmt.Sprintf("%s|-- %s  (path: %s)", indent, path.Base(f.RelPath), f.RelPath))
	}

	return strings.Join(lines, "\n"), relPaths, nil
}
