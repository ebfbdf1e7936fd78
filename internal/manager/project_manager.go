package manager

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/logger"
	"github.com/duynguyendang/symlog/pkg/project"
)

// ProjectMetadata represents the project information exposed by the API.
type ProjectMetadata struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Targets     int      `json:"targets"`
}

const (
	DefaultMaxOpenProjects = 8
	ProjectListTTL         = 1 * time.Minute
)

// ProjectManager loads the projects found under a base directory. Every subdirectory holding a
// symlog.yaml manifest is a project whose ID is the directory name.
type ProjectManager struct {
	baseDir       string
	projects      *lru.Cache[string, *project.Project]
	mu            sync.RWMutex
	readOnly      bool
	cachedList    []ProjectMetadata
	lastListBuild time.Time
}

// NewProjectManager creates a ProjectManager keeping at most maxOpen projects loaded. Projects
// hold a snapshot of their fact store, so a store can be written while its project is loaded;
// the change is seen once the project is evicted or purged and loaded again.
func NewProjectManager(baseDir string, maxOpen int, readOnly bool) *ProjectManager {
	if maxOpen <= 0 {
		maxOpen = DefaultMaxOpenProjects
	}
	// Only fails for a non-positive size.
	cache, _ := lru.NewWithEvict[string, *project.Project](maxOpen, func(id string, p *project.Project) {
		logger.Logger.Debugw("project evicted", "project", id, "facts", len(p.Program.Facts))
	})

	return &ProjectManager{
		baseDir:  baseDir,
		projects: cache,
		readOnly: readOnly,
	}
}

// Get returns a loaded project, loading it if necessary.
func (pm *ProjectManager) Get(projectID string) (*project.Project, error) {
	if p, ok := pm.projects.Get(projectID); ok {
		return p, nil
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	// Double-check under lock
	if p, ok := pm.projects.Get(projectID); ok {
		return p, nil
	}

	if projectID != filepath.Base(projectID) || projectID == "." || projectID == ".." {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "bad project ID %q", projectID)
	}
	dir := filepath.Join(pm.baseDir, projectID)
	if _, err := os.Stat(filepath.Join(dir, project.ManifestFile)); os.IsNotExist(err) {
		return nil, errors.Wrapf(errors.ErrNotFound, "project %s", projectID)
	}

	var opts []project.Option
	if pm.readOnly {
		opts = append(opts, project.ReadOnly())
	}
	p, err := project.Load(dir, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "load project %s", projectID)
	}

	pm.projects.Add(projectID, p)
	return p, nil
}

// List returns the available projects sorted by ID. The listing is cached for ProjectListTTL.
func (pm *ProjectManager) List() ([]ProjectMetadata, error) {
	pm.mu.RLock()
	if time.Since(pm.lastListBuild) < ProjectListTTL && pm.cachedList != nil {
		list := append([]ProjectMetadata(nil), pm.cachedList...)
		pm.mu.RUnlock()
		return list, nil
	}
	pm.mu.RUnlock()

	pm.mu.Lock()
	defer pm.mu.Unlock()

	// Double-check
	if time.Since(pm.lastListBuild) < ProjectListTTL && pm.cachedList != nil {
		return append([]ProjectMetadata(nil), pm.cachedList...), nil
	}

	entries, err := os.ReadDir(pm.baseDir)
	if err != nil {
		return nil, errors.Wrap(err, "list projects")
	}

	projects := []ProjectMetadata{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()
		m, err := project.LoadManifest(filepath.Join(pm.baseDir, id, project.ManifestFile))
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				logger.Logger.Warnw("skipping project with unreadable manifest", "project", id, "error", err)
			}
			continue
		}
		projects = append(projects, ProjectMetadata{
			ID:          id,
			Name:        m.Name,
			Description: m.Description,
			Tags:        m.Tags,
			Targets:     len(m.Targets),
		})
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })

	pm.cachedList = projects
	pm.lastListBuild = time.Now()

	return append([]ProjectMetadata(nil), projects...), nil
}

// Purge drops every loaded project; the next Get reloads from disk.
func (pm *ProjectManager) Purge() {
	pm.projects.Purge()
}
