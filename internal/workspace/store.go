package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SaveProposals writes proposed workspaces to a JSON file, creating parent
// directories as needed.
func SaveProposals(path string, workspaces []Workspace) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating workspace directory: %w", err)
	}

	data, err := json.MarshalIndent(workspaces, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling workspaces: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing workspace file: %w", err)
	}
	return nil
}

// LoadProposals reads previously saved workspace proposals. It returns nil
// and no error when the file does not exist yet.
func LoadProposals(path string) ([]Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading workspace file: %w", err)
	}

	var workspaces []Workspace
	if err := json.Unmarshal(data, &workspaces); err != nil {
		return nil, fmt.Errorf("parsing workspace file: %w", err)
	}
	return workspaces, nil
}

// FindByName returns the workspace with the given name, if present.
func FindByName(workspaces []Workspace, name string) (Workspace, bool) {
	for _, w := range workspaces {
		if w.Name == name {
			return w, true
		}
	}
	return Workspace{}, false
}
