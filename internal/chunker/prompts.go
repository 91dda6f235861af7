package chunker

import "fmt"

// chunkingPrompt instructs the model to split a source file into
// semantically labeled chunks and return them as strict JSON.
const chunkingPrompt = `You are an AI assistant tasked with preparing code for vector-based retrieval. I will give you the contents of a source code file. Your job is to:

Divide the code into meaningful chunks. A chunk should ideally represent a logical unit like a class, function, component, or configuration block. If the file is large or complex, break it down further as necessary.
For each chunk, return the following information in strict JSON format. No text outside the JSON block. Use this schema:
{
  "file": "<full relative file path>",
  "chunk": <chunk_number_starting_from_1>,
  "name": "<function/class/component/section name, or 'misc' if unknown>",
  "description": "<highly detailed description of what this chunk does and how it fits into the project. Use technical language, and include use cases or data flow if applicable.>",
  "code": "<exact code snippet with no modifications>",
  "keywords": ["<relevant>", "<terms>", "<from>", "<code>", "<or>", "<domain>"]
}
Your output must only be JSON - one JSON object per chunk. No prose, markdown, or explanations outside the JSON.
Ensure that:
The "description" is deeply informative (e.g. how it's used, what modules it depends on).
The "keywords" help with semantic search.
The "code" block is unchanged and formatted exactly as-is.
If the file includes unrelated elements, group them under "name": "misc" but still describe them properly.
Avoid redundancy across chunks.
Assume this data will be stored in a vector DB and used later for retrieval-based reasoning by another LLM, which will ask questions to understand or extend the code.`

// buildChunkingMessage combines the instruction template with the file
// path and content into a single prompt.
func buildChunkingMessage(relPath, content string) string {
	return fmt.Sprintf("%s\n\nFile Path: %s\n\nCode:\n%s", chunkingPrompt, relPath, content)
}
