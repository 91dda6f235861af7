package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/repoflow-ai/repoflow/internal/lifecycle"
)

// Repo is a persisted record of a cloned repository.
type Repo struct {
	ID        string
	URL       string
	Name      string
	RootDir   string
	CreatedAt time.Time
}

// Build is a persisted record of an index build.
type Build struct {
	ID         string
	Workspace  string
	State      string
	ChunkCount int
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Store provides persistence for repos and build history. It implements
// lifecycle.BuildRecorder.
type Store struct {
	db *DB
}

// NewStore creates a Store backed by the given database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// SaveRepo inserts a cloned repository record.
func (s *Store) SaveRepo(r Repo) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO repos (id, url, name, root_dir, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.URL, r.Name, r.RootDir, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving repo %s: %w", r.Name, err)
	}
	return nil
}

// GetRepo fetches a repository record by id. Returns sql.ErrNoRows when
// the id is unknown.
func (s *Store) GetRepo(id string) (Repo, error) {
	var r Repo
	err := s.db.QueryRow(
		`SELECT id, url, name, root_dir, created_at FROM repos WHERE id = ?`, id,
	).Scan(&r.ID, &r.URL, &r.Name, &r.RootDir, &r.CreatedAt)
	if err != nil {
		return Repo{}, err
	}
	return r, nil
}

// ListRepos returns all repositories, newest first.
func (s *Store) ListRepos() ([]Repo, error) {
	rows, err := s.db.Query(
		`SELECT id, url, name, root_dir, created_at FROM repos ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing repos: %w", err)
	}
	defer rows.Close()

	var repos []Repo
	for rows.Next() {
		var r Repo
		if err := rows.Scan(&r.ID, &r.URL, &r.Name, &r.RootDir, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning repo row: %w", err)
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

// BuildStarted records a new build in the building state and returns its id.
func (s *Store) BuildStarted(workspace string) string {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO builds (id, workspace, state, started_at) VALUES (?, ?, 'building', ?)`,
		id, workspace, time.Now().UTC(),
	)
	if err != nil {
		// Build history is advisory; a write failure must not abort the build.
		return id
	}
	return id
}

// BuildFinished records the terminal state of a build.
func (s *Store) BuildFinished(id string, state lifecycle.State, chunkCount int, buildErr error) {
	errMsg := ""
	if buildErr != nil {
		errMsg = buildErr.Error()
	}
	s.db.Exec(
		`UPDATE builds SET state = ?, chunk_count = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(state), chunkCount, errMsg, time.Now().UTC(), id,
	)
}

// ListBuilds returns build history for a workspace, newest first. An empty
// workspace returns all builds.
func (s *Store) ListBuilds(workspace string, limit int) ([]Build, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows *sql.Rows
	var err error
	if workspace == "" {
		rows, err = s.db.Query(
			`SELECT id, workspace, state, chunk_count, error, started_at, finished_at
			 FROM builds ORDER BY started_at DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.Query(
			`SELECT id, workspace, state, chunk_count, error, started_at, finished_at
			 FROM builds WHERE workspace = ? ORDER BY started_at DESC LIMIT ?`, workspace, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("listing builds: %w", err)
	}
	defer rows.Close()

	var builds []Build
	for rows.Next() {
		var b Build
		var finished sql.NullTime
		if err := rows.Scan(&b.ID, &b.Workspace, &b.State, &b.ChunkCount, &b.Error, &b.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scanning build row: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			b.FinishedAt = &t
		}
		builds = append(builds, b)
	}
	return builds, rows.Err()
}
