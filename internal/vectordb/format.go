package vectordb

import (
	"fmt"
	"strings"
)

// FormatResults renders retrieval results as human-readable text.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No matching chunks found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d chunk(s):\n\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("--- Chunk %d (distance: %.4f) ---\n", i+1, r.Distance))
		sb.WriteString(fmt.Sprintf("File: %s#%d\n", r.Record.SourceFile, r.Record.Sequence))
		if r.Record.Name != "" {
			sb.WriteString(fmt.Sprintf("Name: %s\n", r.Record.Name))
		}
		sb.WriteString(fmt.Sprintf("Origin: %s\n", r.Record.Origin))
		if r.Record.Description != "" {
			sb.WriteString(fmt.Sprintf("Description: %s\n", r.Record.Description))
		}
		sb.WriteString("\n")
		sb.WriteString(r.Record.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
