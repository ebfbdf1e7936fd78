package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/factstore"
	"github.com/duynguyendang/symlog/pkg/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ManifestFile, `
name: sample
description: two rules over a partially known base
programs:
  - rules/*.dl
facts:
  - facts.dl
targets:
  - 'q("a", "b")'
`)
	writeFile(t, dir, "rules/a.dl", `p(X, Y) :- r(X, Y).`)
	writeFile(t, dir, "rules/b.dl", `q(X, Y) :- p(X, Y).`)
	writeFile(t, dir, "facts.dl", `r($alpha, "b"). ?r("a", "b").`)

	p, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "sample", p.Manifest.Name)
	require.Len(t, p.Program.Rules, 2)
	assert.Equal(t, "p", p.Program.Rules[0].Head.Name)
	assert.Len(t, p.Program.Facts, 2)
	require.Len(t, p.Targets, 1)
	assert.Equal(t, `q("a", "b").`, p.Targets[0].String())
	assert.Empty(t, p.StorePath)
}

func TestLoadWithStore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.dl", `p(X) :- r(X).`)
	require.NoError(t, WriteManifest(dir, &Manifest{
		Name:     "stored",
		Programs: []string{"main.dl"},
		Store:    &StoreSpec{Path: "db", Profile: "Low-Mem"},
	}))

	s, err := factstore.Open(factstore.DefaultConfig(filepath.Join(dir, "db")))
	require.NoError(t, err)
	_, err = s.Put(program.NewFact("r", program.String("x")))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	p, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "db"), p.StorePath)
	require.Len(t, p.Program.Facts, 1)
	assert.Equal(t, `r("x").`, p.Program.Facts[0].String())
}

func TestLoadReleasesStore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.dl", `p(X) :- r(X).`)
	require.NoError(t, WriteManifest(dir, &Manifest{
		Name:     "shared",
		Programs: []string{"main.dl"},
		Store:    &StoreSpec{Path: "facts"},
	}))
	seed, err := factstore.Open(factstore.DefaultConfig(filepath.Join(dir, "facts")))
	require.NoError(t, err)
	_, err = seed.Put(program.NewFact("r", program.String("x")))
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	p, err := Load(dir, ReadOnly())
	require.NoError(t, err)
	require.Len(t, p.Program.Facts, 1)

	// A writer can open the store while the loaded project is still in use.
	w, err := factstore.Open(factstore.DefaultConfig(p.StorePath))
	require.NoError(t, err)
	_, err = w.Put(program.NewFact("r", program.String("y")))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	reloaded, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, reloaded.Program.Facts, 2)
	assert.Len(t, p.Program.Facts, 1)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		sentinel error
	}{
		{
			name:     "missing manifest",
			files:    map[string]string{},
			sentinel: os.ErrNotExist,
		},
		{
			name:     "bad yaml",
			files:    map[string]string{ManifestFile: "programs: [unclosed"},
			sentinel: errors.ErrInvalidInput,
		},
		{
			name:     "no matching program",
			files:    map[string]string{ManifestFile: "programs: [missing.dl]"},
			sentinel: errors.ErrNotFound,
		},
		{
			name: "rules in fact file",
			files: map[string]string{
				ManifestFile: "programs: []\nfacts: [f.dl]",
				"f.dl":       `p(X) :- r(X).`,
			},
			sentinel: errors.ErrInvalidInput,
		},
		{
			name: "syntax error",
			files: map[string]string{
				ManifestFile: "programs: [p.dl]",
				"p.dl":       `p(X :- r(X).`,
			},
			sentinel: errors.ErrInvalidInput,
		},
		{
			name: "variable target",
			files: map[string]string{
				ManifestFile: "programs: []\ntargets: ['q(X)']",
			},
			sentinel: errors.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, dir, name, content)
			}
			_, err := Load(dir)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
		})
	}
}

func TestManifestDefaultsName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "unnamed")
	writeFile(t, dir, ManifestFile, "programs: []")
	m, err := LoadManifest(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, "unnamed", m.Name)
}
