package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/repoflow-ai/repoflow/internal/db"
	"github.com/repoflow-ai/repoflow/internal/lifecycle"
	"github.com/repoflow-ai/repoflow/internal/rag"
	"github.com/repoflow-ai/repoflow/internal/repo"
	"github.com/repoflow-ai/repoflow/internal/workspace"
)

type cloneRequest struct {
	URL string `json:"url"`
}

type cloneResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Tree      string `json:"tree"`
	FileCount int    `json:"file_count"`
	Proposal  string `json:"proposal"` // "pending" until workspaces are ready
}

type repoResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Tree       string `json:"tree"`
	ReadmeHTML string `json:"readme_html,omitempty"`
}

type workspacesResponse struct {
	Status     string                `json:"status"` // "none", "pending", "ready", "failed"
	Error      string                `json:"error,omitempty"`
	Workspaces []workspace.Workspace `json:"workspaces,omitempty"`
}

type selectRequest struct {
	Name string `json:"name"`
}

type selectResponse struct {
	Workspace    string   `json:"workspace"`
	ValidFiles   int      `json:"valid_files"`
	InvalidPaths []string `json:"invalid_paths,omitempty"`
}

type statusResponse struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

type queryRequest struct {
	Question string `json:"question"`
}

type queryResponse struct {
	Answer string `json:"answer"`
}

func (s *Server) handleCloneRepo(w http.ResponseWriter, r *http.Request) {
	var req cloneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	rep, err := repo.Clone(r.Context(), req.URL, s.cfg.ReposDir)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if s.store != nil {
		if err := s.store.SaveRepo(db.Repo{
			ID:      rep.ID,
			URL:     rep.URL,
			Name:    rep.Name,
			RootDir: rep.RootDir,
		}); err != nil {
			log.Printf("server: saving repo record: %v", err)
		}
	}

	s.mu.Lock()
	s.current = rep
	s.proposals = nil
	s.propErr = nil
	s.proposing = true
	s.mu.Unlock()

	// Workspace proposal runs in the background; clients poll
	// GET /api/workspaces for the result.
	go s.proposeWorkspaces(rep)

	writeJSON(w, http.StatusCreated, cloneResponse{
		ID:        rep.ID,
		Name:      rep.Name,
		URL:       rep.URL,
		Tree:      rep.Tree,
		FileCount: len(rep.Files),
		Proposal:  "pending",
	})
}

// proposeWorkspaces asks the partitioning oracle for workspaces and stores
// the result, both in memory and on disk.
func (s *Server) proposeWorkspaces(rep *repo.Repository) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	proposals, err := s.proposer.Propose(ctx, repo.Describe(rep))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposing = false
	if err != nil {
		log.Printf("server: workspace proposal for %q failed: %v", rep.Name, err)
		s.propErr = err
		return
	}
	s.proposals = proposals

	if err := workspace.SaveProposals(s.proposalsPath(), proposals); err != nil {
		log.Printf("server: saving workspace proposals: %v", err)
	}
}

func (s *Server) proposalsPath() string {
	return filepath.Join(s.cfg.DataDir, "workspaces.json")
}

func (s *Server) handleCurrentRepo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rep := s.current
	s.mu.Unlock()

	if rep == nil {
		writeError(w, http.StatusNotFound, "no repository cloned yet")
		return
	}

	resp := repoResponse{
		ID:   rep.ID,
		Name: rep.Name,
		URL:  rep.URL,
		Tree: rep.Tree,
	}
	if rep.Readme != "" {
		html, err := repo.ReadmeHTML(rep.Readme)
		if err != nil {
			log.Printf("server: rendering README: %v", err)
		} else {
			resp.ReadmeHTML = html
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	proposals := s.proposals
	proposing := s.proposing
	propErr := s.propErr
	s.mu.Unlock()

	switch {
	case proposing:
		writeJSON(w, http.StatusOK, workspacesResponse{Status: "pending"})
	case propErr != nil:
		writeJSON(w, http.StatusOK, workspacesResponse{Status: "failed", Error: propErr.Error()})
	case len(proposals) == 0:
		writeJSON(w, http.StatusOK, workspacesResponse{Status: "none"})
	default:
		writeJSON(w, http.StatusOK, workspacesResponse{Status: "ready", Workspaces: proposals})
	}
}

func (s *Server) handleSelectWorkspace(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	s.mu.Lock()
	rep := s.current
	proposals := s.proposals
	s.mu.Unlock()

	if rep == nil {
		writeError(w, http.StatusConflict, "no repository cloned yet")
		return
	}

	ws, ok := workspace.FindByName(proposals, req.Name)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown workspace: "+req.Name)
		return
	}

	valid, invalid, err := s.manager.Submit(lifecycle.Selection{
		Name:        ws.Name,
		Description: ws.Description,
		RootDir:     rep.RootDir,
		FilePaths:   ws.FileStructure,
	})
	switch {
	case errors.Is(err, lifecycle.ErrNoValidFiles):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, lifecycle.ErrBuildInFlight):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, selectResponse{
		Workspace:    ws.Name,
		ValidFiles:   len(valid),
		InvalidPaths: invalid,
	})
}

func (s *Server) handleIndexStatus(w http.ResponseWriter, r *http.Request) {
	state, lastErr := s.manager.Status()
	resp := statusResponse{State: string(state)}
	if lastErr != nil {
		resp.Error = lastErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListBuilds(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []db.Build{})
		return
	}
	builds, err := s.store.ListBuilds(r.URL.Query().Get("workspace"), 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if builds == nil {
		builds = []db.Build{}
	}
	writeJSON(w, http.StatusOK, builds)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := s.engine.Answer(r.Context(), req.Question)
	switch {
	case errors.Is(err, rag.ErrEmptyQuestion):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, rag.ErrNotReady):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{Answer: answer})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
