// Package project loads a symlog project: a directory with a symlog.yaml manifest naming the
// program files, fact files, an optional persistent fact store and the targets to analyse.
package project

import (
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/datalog"
	"github.com/duynguyendang/symlog/pkg/factstore"
	"github.com/duynguyendang/symlog/pkg/logger"
	"github.com/duynguyendang/symlog/pkg/program"
)

// ManifestFile is the name of the manifest inside a project directory.
const ManifestFile = "symlog.yaml"

// StoreSpec locates the badger fact store of a project.
type StoreSpec struct {
	// Path is relative to the project directory.
	Path    string `yaml:"path"`
	Profile string `yaml:"profile,omitempty"`
}

// Manifest defines the structure of the symlog.yaml file.
type Manifest struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Version     string   `yaml:"version,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
	// Programs and Facts are file paths or glob patterns relative to the project directory.
	Programs   []string   `yaml:"programs"`
	Facts      []string   `yaml:"facts,omitempty"`
	Store      *StoreSpec `yaml:"store,omitempty"`
	Targets    []string   `yaml:"targets,omitempty"`
	SeedPolicy string     `yaml:"seed_policy,omitempty"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read project manifest")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "failed to parse project manifest %s: %v", path, err)
	}
	if m.Name == "" {
		m.Name = filepath.Base(filepath.Dir(path))
	}
	return &m, nil
}

// WriteManifest writes m to dir/symlog.yaml, creating dir if needed.
func WriteManifest(dir string, m *Manifest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create project directory")
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "encode manifest")
	}
	return os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644)
}

// Project is a loaded project. Program holds a snapshot of the fact store taken by Load; the
// store itself is not kept open, so other processes can write to it meanwhile.
type Project struct {
	Dir      string
	Manifest Manifest
	Program  *program.Program
	Targets  []program.Fact
	// StorePath is the fact store directory, empty when the manifest declares none.
	StorePath string
}

type loadOptions struct {
	readOnly bool
}

// Option configures Load.
type Option func(*loadOptions)

// ReadOnly opens the fact store read-only.
func ReadOnly() Option {
	return func(o *loadOptions) { o.readOnly = true }
}

// Load reads the manifest in dir, parses every program and fact file, and adds the facts of the
// project's fact store.
func Load(dir string, opts ...Option) (*Project, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	m, err := LoadManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	p := &Project{Dir: dir, Manifest: *m, Program: &program.Program{}}

	programFiles, err := expand(dir, m.Programs)
	if err != nil {
		return nil, err
	}
	for _, path := range programFiles {
		parsed, err := parseFile(path)
		if err != nil {
			return nil, err
		}
		p.Program.Append(parsed)
	}

	factFiles, err := expand(dir, m.Facts)
	if err != nil {
		return nil, err
	}
	for _, path := range factFiles {
		parsed, err := parseFile(path)
		if err != nil {
			return nil, err
		}
		if len(parsed.Rules) > 0 {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "fact file %s contains rules", path)
		}
		p.Program.Append(parsed)
	}

	if m.Store != nil {
		stored, err := p.readStore(o.readOnly)
		if err != nil {
			return nil, err
		}
		p.Program.Facts = append(p.Program.Facts, stored...)
	}

	for _, t := range m.Targets {
		targets, err := datalog.ParseTargets(t)
		if err != nil {
			return nil, errors.Wrapf(err, "target %q", t)
		}
		p.Targets = append(p.Targets, targets...)
	}

	logger.Logger.Debugw("project loaded",
		"project", m.Name,
		"rules", len(p.Program.Rules),
		"facts", len(p.Program.Facts),
		"targets", len(p.Targets))
	return p, nil
}

// readStore opens the fact store, reads every fact and closes it again.
func (p *Project) readStore(readOnly bool) ([]program.Fact, error) {
	spec := p.Manifest.Store
	path := spec.Path
	if path == "" {
		path = "facts"
	}
	p.StorePath = filepath.Join(p.Dir, path)
	cfg := factstore.DefaultConfig(p.StorePath)
	if spec.Profile != "" {
		cfg.Profile = spec.Profile
	}
	cfg.ReadOnly = readOnly
	s, err := factstore.Open(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "project %s", p.Manifest.Name)
	}
	defer s.Close()

	facts, err := s.All()
	if err != nil {
		return nil, errors.Wrapf(err, "project %s: read fact store", p.Manifest.Name)
	}
	return facts, nil
}

// expand resolves patterns relative to dir. A pattern that matches nothing is an error.
func expand(dir string, patterns []string) ([]string, error) {
	var out []string
	for _, pat := range patterns {
		if !filepath.IsAbs(pat) {
			pat = filepath.Join(dir, pat)
		}
		matches, err := filepath.Glob(pat)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "bad pattern %q", pat)
		}
		if len(matches) == 0 {
			return nil, errors.Wrapf(errors.ErrNotFound, "no file matches %s", pat)
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out, nil
}

func parseFile(path string) (*program.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	p, err := datalog.ParseProgram(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return p, nil
}
