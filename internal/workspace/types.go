package workspace

// Workspace is one proposed file grouping: a named, user-selectable subset
// of a repository's files.
type Workspace struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	FileStructure []string `json:"fileStructure"`
	ReturnPrompt  string   `json:"returnPrompt"`
	Assumptions   string   `json:"assumptions"`
}
