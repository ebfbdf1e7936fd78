package repl

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/service"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	svc, err := service.New(nil)
	require.NoError(t, err)
	return NewSession(svc, DefaultConfig())
}

func exec(t *testing.T, s *Session, line string) *Output {
	t.Helper()
	out, err := s.Exec(context.Background(), line)
	require.NoError(t, err, line)
	return out
}

func TestSessionFlow(t *testing.T) {
	s := newSession(t)

	assert.Equal(t, "added 1 rule, 0 facts", exec(t, s, `t(X, Z) :- r(X, Y), s(Y, Z).`).Text)
	assert.Equal(t, "added 0 rules, 4 facts", exec(t, s, `?r($alpha, "b"). r("b", "c"). s("b", "c"). ?s("c", "d").`).Text)

	types := exec(t, s, ":types")
	require.Len(t, types.Table, 4)
	assert.Equal(t, []string{"relation", "signature"}, types.Table[0])
	assert.Equal(t, []string{"t", "(symbol, symbol)"}, types.Table[3])

	out := exec(t, s, `:symex t("a", "c"), t("z", "z")`)
	assert.Equal(t, "t(\"a\", \"c\"). <- $alpha = \"a\" & r(\"a\", \"b\")\nt(\"z\", \"z\"). <- false", out.Text)

	solved := exec(t, s, ":solve")
	assert.Contains(t, solved.Text, "  sat: ")

	listed := exec(t, s, ":list")
	assert.True(t, strings.HasPrefix(listed.Text, "t(X, Z) :- r(X, Y), s(Y, Z)."))

	assert.Equal(t, "program cleared", exec(t, s, ":reset").Text)
	assert.Empty(t, s.Program().Facts)

	assert.Empty(t, exec(t, s, "   ").Text)
	assert.Contains(t, exec(t, s, ":help").Text, ":symex <targets>")
}

func TestSessionLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.dl")
	require.NoError(t, os.WriteFile(path, []byte("p(X) :- q(X).\nq(1).\n"), 0o644))

	s := newSession(t)
	assert.Equal(t, "added 1 rule, 1 fact", exec(t, s, ":load "+path).Text)
	assert.Contains(t, exec(t, s, `:symex p(1)`).Text, "p(1). <- true")
}

func TestSessionErrors(t *testing.T) {
	s := newSession(t)
	exec(t, s, `p(X) :- q(X). q("a").`)

	tests := []struct {
		line     string
		sentinel error
	}{
		{":symex", errors.ErrInvalidInput},
		{":symex p(X)", errors.ErrInvalidInput},
		{":load", errors.ErrInvalidInput},
		{":load /does/not/exist.dl", os.ErrNotExist},
		{"p(X :- q(X).", errors.ErrInvalidInput},
		{":tyeps", errors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := s.Exec(context.Background(), tt.line)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
		})
	}

	_, err := s.Exec(context.Background(), ":tyeps")
	assert.Equal(t, []string{"did you mean :types?"}, errors.GetAllHints(err))
}

func TestRun(t *testing.T) {
	pterm.DisableColor()
	defer pterm.EnableColor()

	svc, err := service.New(nil)
	require.NoError(t, err)

	in := strings.NewReader("r(\"a\").\np(X) :- r(X).\n:types\n:symex p(\"a\")\n:bogus\n:quit\n:list\n")
	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), svc, DefaultConfig(), in, &out))

	text := out.String()
	assert.Contains(t, text, "added 0 rules, 1 fact")
	assert.Contains(t, text, "signature")
	assert.Contains(t, text, `p("a"). <- true`)
	assert.Contains(t, text, "error: ")
	assert.NotContains(t, text, "p(X) :- r(X).\nr(\"a\").", ":list after :quit must not run")
}
