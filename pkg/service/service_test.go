package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/duynguyendang/symlog/internal/manager"
	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/datalog"
	"github.com/duynguyendang/symlog/pkg/program"
	"github.com/duynguyendang/symlog/pkg/project"
	"github.com/duynguyendang/symlog/pkg/solve"
	"github.com/duynguyendang/symlog/pkg/typeanalysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const joinProgram = `
t(X, Z) :- r(X, Y), s(Y, Z).
?r($alpha, "b").
r("b", "c").
s("b", "c").
?s("c", "d").
`

func parse(t *testing.T, src string) *program.Program {
	t.Helper()
	p, err := datalog.ParseProgram(src)
	require.NoError(t, err)
	return p
}

func targets(t *testing.T, src string) []program.Fact {
	t.Helper()
	ts, err := datalog.ParseTargets(src)
	require.NoError(t, err)
	return ts
}

func newService(t *testing.T, mgr ProjectManager, opts ...Option) *Service {
	t.Helper()
	s, err := New(mgr, opts...)
	require.NoError(t, err)
	return s
}

func TestAnalyze(t *testing.T) {
	s := newService(t, nil)
	r, err := s.Analyze(context.Background(), Request{
		Program: parse(t, joinProgram),
		Targets: targets(t, `t("a", "c"), t("b", "d"), t("z", "z")`),
		Solve:   true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, []program.Type{program.TypeSymbol, program.TypeSymbol}, r.Declarations["t"])
	assert.Contains(t, r.Souffle, ".decl t(a0: symbol, a1: symbol)")

	require.Len(t, r.Targets, 2)
	assert.Equal(t, `t("a", "c").`, r.Targets[0].Target)
	assert.Equal(t, `$alpha = "a" & r("a", "b")`, r.Targets[0].Formula)
	assert.Contains(t, r.Targets[0].SMTLIB, "(declare-const")
	assert.Equal(t, 1, r.Targets[0].Derivations)
	require.NotNil(t, r.Targets[0].Outcome)
	assert.Equal(t, solve.Sat, r.Targets[0].Outcome.Status)

	assert.Equal(t, `t("b", "d").`, r.Targets[1].Target)
	assert.Equal(t, `s("c", "d")`, r.Targets[1].Formula)

	assert.Equal(t, []string{`t("z", "z").`}, r.Missing)
	assert.Empty(t, r.Suggestions)

	cached, err := s.Report(r.ID)
	require.NoError(t, err)
	assert.Same(t, r, cached)
}

func TestAnalyzeSuggestions(t *testing.T) {
	s := newService(t, nil)
	r, err := s.Analyze(context.Background(), Request{
		Program: parse(t, `path(X, Y) :- edge(X, Y). edge("a", "b").`),
		Targets: targets(t, `pth("a", "b")`),
	})
	require.NoError(t, err)
	assert.Empty(t, r.Targets)
	assert.Equal(t, []string{`pth("a", "b").`}, r.Missing)
	assert.Equal(t, map[string][]string{"pth": {"path"}}, r.Suggestions)
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name     string
		program  string
		targets  string
		sentinel error
	}{
		{
			name:     "target type mismatch",
			program:  joinProgram,
			targets:  `t(1, "c")`,
			sentinel: ErrTargetType,
		},
		{
			name:     "inconsistent facts",
			program:  `r("a"). r(1).`,
			sentinel: typeanalysis.ErrTypeConsistency,
		},
		{
			name:     "negation",
			program:  `p(X) :- r(X), !q(X). r("a"). q("b").`,
			sentinel: errors.ErrUnprocessable,
		},
		{
			name:     "target arity",
			program:  joinProgram,
			targets:  `t("a")`,
			sentinel: program.ErrStructural,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newService(t, nil)
			req := Request{Program: parse(t, tt.program)}
			if tt.targets != "" {
				req.Targets = targets(t, tt.targets)
			}
			_, err := s.Analyze(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
		})
	}

	t.Run("missing program", func(t *testing.T) {
		_, err := newService(t, nil).Analyze(context.Background(), Request{})
		assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	})
}

func TestTargetTypeError(t *testing.T) {
	s := newService(t, nil)
	_, err := s.Analyze(context.Background(), Request{
		Program: parse(t, joinProgram),
		Targets: targets(t, `t("a", 3)`),
	})
	var tte *TargetTypeError
	require.True(t, errors.As(err, &tte))
	assert.Equal(t, 1, tte.Position)
	assert.Equal(t, program.TypeSymbol, tte.Want)
	assert.Equal(t, program.TypeNumber, tte.Got)
}

func TestTypes(t *testing.T) {
	s := newService(t, nil, WithSeedPolicy(typeanalysis.SeedLastWriteWins))
	r, err := s.Types(parse(t, `p(X, Y) :- q(X, Y). q("a", 1).`), "")
	require.NoError(t, err)
	assert.Equal(t, []program.Type{program.TypeSymbol, program.TypeNumber}, r.Declarations["p"])
	assert.GreaterOrEqual(t, r.Stats.Passes, 1)

	_, err = s.Types(nil, "")
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestReportCache(t *testing.T) {
	s := newService(t, nil, WithReportCache(1))
	p := parse(t, joinProgram)

	first, err := s.Analyze(context.Background(), Request{Program: p})
	require.NoError(t, err)
	second, err := s.Analyze(context.Background(), Request{Program: p})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = s.Report(first.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	_, err = s.Report(second.ID)
	assert.NoError(t, err)
}

func TestAnalyzeProject(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "demo")
	require.NoError(t, project.WriteManifest(dir, &project.Manifest{
		Name:     "demo",
		Programs: []string{"*.dl"},
		Targets:  []string{`t("a", "c")`},
	}))
	writeProgram(t, dir, "join.dl", joinProgram)

	s := newService(t, manager.NewProjectManager(base, 0, true))

	list, err := s.ListProjects()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "demo", list[0].ID)

	r, err := s.AnalyzeProject(context.Background(), "demo", false)
	require.NoError(t, err)
	assert.Equal(t, "demo", r.Project)
	require.Len(t, r.Targets, 1)
	assert.Nil(t, r.Targets[0].Outcome)

	_, err = s.AnalyzeProject(context.Background(), "nope", false)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	_, err = s.AnalyzeProject(context.Background(), "", false)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestSuggestRelations(t *testing.T) {
	known := []string{"path", "edge", "reachable", "parent_of", "ancestor"}
	tests := []struct {
		query string
		want  []string
	}{
		{"pth", []string{"path"}},
		{"edges", []string{"edge"}},
		{"reachabel", []string{"reachable"}},
		{"parentOf", []string{"parent_of"}},
		{"zzz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := SuggestRelations(tt.query, known, 3)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			require.NotEmpty(t, got)
			assert.Equal(t, tt.want[0], got[0])
		})
	}
}

func writeProgram(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
}
