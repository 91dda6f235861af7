package repo

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Repository describes one acquired repository on local disk.
type Repository struct {
	ID      string // Short unique suffix of the clone directory.
	Name    string // Name derived from the clone URL.
	URL     string
	RootDir string // Absolute path of the working tree.
	Tree    string // Rendered tree listing (see RenderTree).
	Files   []string
	Readme  string // README text, empty when none was found.
}

// Clone clones the repository at repoURL into a unique directory under
// reposDir, then enumerates its files, renders the tree listing, and reads
// the README. The target directory is removed again if anything fails.
func Clone(ctx context.Context, repoURL, reposDir string) (*Repository, error) {
	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		return nil, fmt.Errorf("repo: empty repository URL")
	}

	if err := os.MkdirAll(reposDir, 0o755); err != nil {
		return nil, fmt.Errorf("repo: create repos dir: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(repoURL), ".git")
	id := uuid.NewString()[:8]
	targetDir, err := filepath.Abs(filepath.Join(reposDir, fmt.Sprintf("%s-%s", name, id)))
	if err != nil {
		return nil, fmt.Errorf("repo: resolve target dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", repoURL, targetDir)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.RemoveAll(targetDir)
		return nil, fmt.Errorf("repo: git clone %s: %w: %s", repoURL, err, strings.TrimSpace(string(out)))
	}

	r := &Repository{
		ID:      id,
		Name:    name,
		URL:     repoURL,
		RootDir: targetDir,
	}

	tree, files, err := RenderTree(targetDir)
	if err != nil {
		os.RemoveAll(targetDir)
		return nil, fmt.Errorf("repo: render tree: %w", err)
	}
	r.Tree = tree
	r.Files = files

	r.Readme = FindReadme(targetDir)

	return r, nil
}
