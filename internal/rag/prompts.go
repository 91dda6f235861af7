package rag

import (
	"fmt"
	"strings"

	"github.com/repoflow-ai/repoflow/internal/vectordb"
)

// answerSystemPrompt constrains the model to the retrieved chunks.
const answerSystemPrompt = `You are a senior engineer answering questions about a specific code repository.
Answer using ONLY the code chunks provided as context. Reference file paths and
names from the context when they support your answer. If the context does not
contain enough information to answer, say so plainly instead of guessing.`

// NoContextAnswer is returned when retrieval finds nothing to ground an
// answer in.
const NoContextAnswer = "No relevant context was found in the indexed workspace for this question."

// buildAnswerPrompt renders the retrieved chunks and the question into the
// user message for the answer composer.
func buildAnswerPrompt(question string, results []vectordb.Result) string {
	var b strings.Builder
	b.WriteString("Context chunks from the repository:\n\n")

	for i, r := range results {
		fmt.Fprintf(&b, "--- Chunk %d: %s (chunk %d, %s) ---\n", i+1, r.Record.SourceFile, r.Record.Sequence, r.Record.Name)
		if r.Record.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", r.Record.Description)
		}
		b.WriteString(r.Record.Content)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Question: %s\n", question)
	return b.String()
}
