package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/repoflow-ai/repoflow/internal/llm"
)

// Proposer invokes the partitioning oracle to derive named workspaces from
// a repository description (tree listing plus README).
type Proposer struct {
	provider llm.Provider
	model    string
}

// NewProposer creates a Proposer.
func NewProposer(provider llm.Provider, model string) *Proposer {
	return &Proposer{provider: provider, model: model}
}

// Propose sends the repository description to the oracle and parses the
// proposed workspaces. The oracle's structured-output guarantee is
// best-effort, so markdown fences are tolerated.
func (p *Proposer) Propose(ctx context.Context, description string) ([]Workspace, error) {
	separator := strings.Repeat("#", 50)
	prompt := fmt.Sprintf("%s\n%s\n%s\n%s", proposalPrompt, separator, description, separator)

	resp, err := p.provider.Complete(ctx, llm.CompletionRequest{
		Model: p.model,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: 0.2,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("workspace proposal: %w", err)
	}

	workspaces, err := parseProposal(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("workspace proposal: %w", err)
	}
	return workspaces, nil
}

// parseProposal parses the oracle payload as a JSON array of workspaces,
// accepting a single bare object as a one-element array.
func parseProposal(raw string) ([]Workspace, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		lines := strings.Split(raw, "\n")
		end := len(lines)
		if end >= 2 && strings.TrimSpace(lines[end-1]) == "```" {
			end--
		}
		raw = strings.Join(lines[1:end], "\n")
	}

	var workspaces []Workspace
	if err := json.Unmarshal([]byte(raw), &workspaces); err != nil {
		var single Workspace
		if err2 := json.Unmarshal([]byte(raw), &single); err2 != nil {
			return nil, fmt.Errorf("payload is not valid JSON: %w", err)
		}
		workspaces = []Workspace{single}
	}

	var valid []Workspace
	for _, w := range workspaces {
		if w.Name == "" || len(w.FileStructure) == 0 {
			continue
		}
		valid = append(valid, w)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("payload contained no usable workspace")
	}
	return valid, nil
}
