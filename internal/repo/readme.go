package repo

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
)

// readmeCandidates are tried in order at the repository root.
var readmeCandidates = []string{"README.md", "readme.md", "README.txt", "readme.txt"}

// FindReadme returns the text of the first README found at the repository
// root, or empty when none exists.
func FindReadme(rootDir string) string {
	for _, name := range readmeCandidates {
		data, err := os.ReadFile(filepath.Join(rootDir, name))
		if err == nil {
			return string(data)
		}
	}
	return ""
}

var readmeMarkdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(highlighting.WithStyle("github")),
	),
)

// ReadmeHTML renders README markdown to HTML for the frontend.
func ReadmeHTML(readme string) (string, error) {
	var buf bytes.Buffer
	if err := readmeMarkdown.Convert([]byte(readme), &buf); err != nil {
		return "", fmt.Errorf("repo: render readme: %w", err)
	}
	return buf.String(), nil
}

// Describe bundles the tree listing and README into the description blob
// fed to the workspace-partitioning oracle. The preamble pins down path
// relativity so proposed workspaces quote repository-relative paths.
func Describe(r *Repository) string {
	var b strings.Builder

	b.WriteString("IMPORTANT: When creating workspaces, use file paths relative to the repository root.\n")
	b.WriteString("Do NOT include the repository folder name in the paths.\n")
	fmt.Fprintf(&b, "For example, use 'src/app.py' NOT '%s-%s/src/app.py'\n\n", r.Name, r.ID)

	b.WriteString("Repository Tree Structure:\n")
	b.WriteString("--------------------------\n")
	b.WriteString(r.Tree)

	if r.Readme != "" {
		b.WriteString("\n\nREADME Content:\n")
		b.WriteString("------------------\n")
		b.WriteString(r.Readme)
	} else {
		b.WriteString("\n\nNo README or similar file found in the repository root.\n")
	}

	return b.String()
}
