package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/repoflow-ai/repoflow/internal/embeddings"
	"github.com/repoflow-ai/repoflow/internal/indexer"
	"github.com/repoflow-ai/repoflow/internal/vectordb"
)

// State is the lifecycle state of the serving index.
type State string

const (
	StateEmpty    State = "empty"
	StateBuilding State = "building"
	StateReady    State = "ready"
)

var (
	// ErrBuildInFlight is returned when the build queue is full.
	ErrBuildInFlight = errors.New("lifecycle: a build is already queued")
	// ErrNoValidFiles is returned when a selection contains no file that
	// exists under the repository root.
	ErrNoValidFiles = errors.New("lifecycle: selection contains no valid files")
)

// Selection is a workspace selection submitted for indexing: the root of
// the cloned repository plus an ordered list of relative file paths.
type Selection struct {
	Name        string
	Description string
	RootDir     string
	FilePaths   []string
}

// BuildRecorder receives build lifecycle transitions. Implementations must
// tolerate being called from the build worker goroutine.
type BuildRecorder interface {
	BuildStarted(workspace string) string
	BuildFinished(id string, state State, chunkCount int, buildErr error)
}

type noopRecorder struct{}

func (noopRecorder) BuildStarted(string) string              { return "" }
func (noopRecorder) BuildFinished(string, State, int, error) {}

// Manager owns the serving index and its persisted artifacts exclusively.
// Builds run on a single-worker queue, so embedding and persisting never
// overlap between two builds. Readers observe either the fully-old or
// fully-new handle: the handle reference is swapped only after persist and
// reload both succeed.
type Manager struct {
	orchestrator *indexer.Orchestrator
	embedder     embeddings.Embedder
	indexDir     string
	recorder     BuildRecorder

	mu      sync.Mutex
	state   State
	lastErr error
	// gen counts accepted submissions. A build may only publish its result
	// while its generation is still the latest one.
	gen uint64

	active atomic.Pointer[vectordb.Index]

	jobs chan job
	wg   sync.WaitGroup
}

// job is one accepted submission, tagged with the generation it was
// accepted at.
type job struct {
	sel Selection
	gen uint64
}

// NewManager creates a Manager persisting index artifacts under indexDir
// and starts its build worker. recorder may be nil.
func NewManager(orch *indexer.Orchestrator, embedder embeddings.Embedder, indexDir string, recorder BuildRecorder) *Manager {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	m := &Manager{
		orchestrator: orch,
		embedder:     embedder,
		indexDir:     indexDir,
		recorder:     recorder,
		state:        StateEmpty,
		// One pending build may queue behind the running one; anything
		// beyond that is rejected.
		jobs: make(chan job, 1),
	}

	m.wg.Add(1)
	go m.worker()

	return m
}

// Restore attempts to reload previously persisted index artifacts so a
// restarted process resumes serving without a rebuild. A missing index is
// not an error; the manager simply stays EMPTY.
func (m *Manager) Restore(ctx context.Context) error {
	ix, err := vectordb.Load(ctx, m.indexDir, m.embedder)
	if err != nil {
		if errors.Is(err, vectordb.ErrIndexNotBuilt) || errors.Is(err, vectordb.ErrIndexNotReady) {
			return nil
		}
		return fmt.Errorf("restore persisted index: %w", err)
	}
	m.active.Store(ix)
	m.setState(StateReady, nil)
	return nil
}

// Submit validates the selection synchronously and enqueues a build.
// Validation requires at least one path that resolves to a regular file
// under the selection's root; invalid paths are reported back but do not
// abort the submission.
//
// An accepted submission takes effect immediately: the lifecycle enters
// BUILDING and the previous serving handle is withdrawn before Submit
// returns, so no query after a new selection is answered from the
// superseded index.
func (m *Manager) Submit(sel Selection) (valid, invalid []string, err error) {
	valid, invalid = partitionPaths(sel.RootDir, sel.FilePaths)
	if len(valid) == 0 {
		return nil, invalid, ErrNoValidFiles
	}
	sel.FilePaths = valid

	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case m.jobs <- job{sel: sel, gen: m.gen + 1}:
		m.gen++
		m.state = StateBuilding
		m.lastErr = nil
		m.active.Store(nil)
		return valid, invalid, nil
	default:
		return valid, invalid, ErrBuildInFlight
	}
}

// IsReady reports whether a serving index is available. It is exactly
// "current state is READY".
func (m *Manager) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateReady
}

// Status returns the current state and the error from the most recent
// failed build, if any.
func (m *Manager) Status() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.lastErr
}

// Active returns the currently serving index, or nil when none is READY.
func (m *Manager) Active() *vectordb.Index {
	if !m.IsReady() {
		return nil
	}
	return m.active.Load()
}

// Close stops accepting builds and waits for the in-flight one to finish.
func (m *Manager) Close() {
	close(m.jobs)
	m.wg.Wait()
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for j := range m.jobs {
		m.runBuild(j)
	}
}

// runBuild executes one full build: discard old artifacts, chunk, embed,
// persist, reload, swap. Any failure (including a panic anywhere in the
// pipeline) is caught here, logged, and resets the lifecycle to EMPTY.
// The BUILDING transition and handle withdrawal already happened in Submit.
func (m *Manager) runBuild(j job) {
	sel := j.sel
	buildID := m.recorder.BuildStarted(sel.Name)

	var chunkCount int
	var buildErr error
	finalState := StateReady
	defer func() {
		if r := recover(); r != nil {
			buildErr = fmt.Errorf("build panicked: %v", r)
		}
		if buildErr != nil {
			log.Printf("lifecycle: build for workspace %q failed: %v", sel.Name, buildErr)
			// Discard partial artifacts; a later load must not see them.
			if err := os.RemoveAll(m.indexDir); err != nil {
				log.Printf("lifecycle: removing partial artifacts: %v", err)
			}
			finalState = StateEmpty
			m.publish(j.gen, nil, StateEmpty, buildErr)
		}
		m.recorder.BuildFinished(buildID, finalState, chunkCount, buildErr)
	}()

	if err := os.RemoveAll(m.indexDir); err != nil {
		buildErr = fmt.Errorf("discard previous index: %w", err)
		return
	}

	ctx := context.Background()

	result, err := m.orchestrator.Run(ctx, sel.RootDir, sel.FilePaths)
	if err != nil {
		buildErr = fmt.Errorf("chunking: %w", err)
		return
	}
	chunkCount = len(result.Chunks)

	if result.Empty() {
		// Explicit empty-result state: no index is built and downstream
		// must tolerate "no index available".
		log.Printf("lifecycle: workspace %q produced no chunks, no index built", sel.Name)
		finalState = StateEmpty
		m.publish(j.gen, nil, StateEmpty, nil)
		return
	}

	ix, err := vectordb.New(m.embedder)
	if err != nil {
		buildErr = fmt.Errorf("create index: %w", err)
		return
	}
	if err := ix.Build(ctx, result.Chunks); err != nil {
		buildErr = fmt.Errorf("embed chunks: %w", err)
		return
	}
	if err := ix.Persist(ctx, m.indexDir); err != nil {
		buildErr = fmt.Errorf("persist index: %w", err)
		return
	}

	// Serve from a fresh reload of the persisted directory, proving the
	// artifacts round-trip before anything depends on them.
	loaded, err := vectordb.Load(ctx, m.indexDir, m.embedder)
	if err != nil {
		buildErr = fmt.Errorf("reload persisted index: %w", err)
		return
	}

	if !m.publish(j.gen, loaded, StateReady, nil) {
		log.Printf("lifecycle: workspace %q superseded by a newer selection, result discarded", sel.Name)
		return
	}
	log.Printf("lifecycle: workspace %q ready (%d chunks, %d/%d files via fallback)",
		sel.Name, chunkCount, result.FallbackFiles, result.FilesChunked)
}

// publish installs a build outcome, unless a newer submission has been
// accepted since this build's, in which case the outcome is dropped and
// the lifecycle stays BUILDING for the newer job.
func (m *Manager) publish(gen uint64, ix *vectordb.Index, s State, err error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return false
	}
	m.active.Store(ix)
	m.state = s
	m.lastErr = err
	return true
}

func (m *Manager) setState(s State, err error) {
	m.mu.Lock()
	m.state = s
	m.lastErr = err
	m.mu.Unlock()
}

// partitionPaths splits relative paths into those resolving to regular
// files under root and those that do not.
func partitionPaths(root string, relPaths []string) (valid, invalid []string) {
	for _, p := range relPaths {
		full := filepath.Join(root, filepath.FromSlash(p))
		info, err := os.Stat(full)
		if err != nil || !info.Mode().IsRegular() {
			invalid = append(invalid, p)
			continue
		}
		valid = append(valid, p)
	}
	return valid, invalid
}
