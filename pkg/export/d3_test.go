package export

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/datalog"
	"github.com/duynguyendang/symlog/pkg/symex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const src = `
t(X, Z) :- r(X, Y), s(Y, Z).
u(X) :- t(X, "c").
?r($alpha, "b").
r("b", "c").
s("b", "c").
?s("c", "d").
t("q", "c").
`

func analyse(t *testing.T, targets string) (*D3Transformer, *symex.Result) {
	t.Helper()
	p, err := datalog.ParseProgram(src)
	require.NoError(t, err)
	ts, err := datalog.ParseTargets(targets)
	require.NoError(t, err)
	res, err := symex.Symex(context.Background(), p.Rules, p.Facts, ts)
	require.NoError(t, err)
	return NewD3Transformer(p.Rules), res
}

func nodeByID(g *D3Graph, id string) (D3Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return D3Node{}, false
}

func TestD3Transformer(t *testing.T) {
	tr, res := analyse(t, `t("a", "c"), t("q", "c")`)

	graph, err := tr.Transform(context.Background(), res, "")
	require.NoError(t, err)

	target, ok := nodeByID(graph, `target:t("a", "c")`)
	require.True(t, ok)
	assert.Equal(t, KindTarget, target.Kind)
	assert.Equal(t, `$alpha = "a" & r("a", "b")`, target.Metadata["formula"])

	rule, ok := nodeByID(graph, "rule:0")
	require.True(t, ok)
	assert.Equal(t, KindRule, rule.Kind)
	assert.Equal(t, "t(X, Z) :- r(X, Y), s(Y, Z).", rule.Metadata["rule"])

	signed, ok := nodeByID(graph, `fact:?r($alpha:symbol, "b").`)
	require.True(t, ok)
	assert.Equal(t, KindSigned, signed.Kind)

	direct, ok := nodeByID(graph, `fact:t("q", "c").`)
	require.True(t, ok, "direct base fact of a rule-defined relation")
	assert.Equal(t, KindDerived, direct.Kind)

	var derives, matches, body int
	for _, l := range graph.Links {
		switch l.Relation {
		case "derives":
			derives++
			assert.Equal(t, "rule:0", l.Source)
			assert.NotEmpty(t, l.Formula)
		case "matches":
			matches++
			assert.Equal(t, `target:t("q", "c")`, l.Target)
		case "body:0", "body:1":
			body++
			assert.Equal(t, "rule:0", l.Target)
		}
	}
	// t("q", "c") is both a base fact and derivable through $alpha = "q".
	assert.Equal(t, 2, derives)
	assert.Equal(t, 1, matches)
	assert.Equal(t, 4, body)
}

func TestTransformPattern(t *testing.T) {
	tr, res := analyse(t, `t("a", "c"), t("q", "c")`)

	graph, err := tr.Transform(context.Background(), res, `t("q", X)`)
	require.NoError(t, err)
	_, ok := nodeByID(graph, `target:t("a", "c")`)
	assert.False(t, ok)
	_, ok = nodeByID(graph, `target:t("q", "c")`)
	assert.True(t, ok)

	tr.SkipDirect = true
	graph, err = tr.Transform(context.Background(), res, `t("q", X)`)
	require.NoError(t, err)
	_, ok = nodeByID(graph, `fact:t("q", "c").`)
	assert.False(t, ok)
	for _, l := range graph.Links {
		assert.NotEqual(t, "matches", l.Relation)
	}

	_, err = tr.Transform(context.Background(), res, `t("q"`)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestDerivedSupport(t *testing.T) {
	tr, res := analyse(t, `u("a")`)
	graph, err := tr.Transform(context.Background(), res, "")
	require.NoError(t, err)

	// The derived fact keeps the symbolic constant; the derivation pins it.
	support, ok := nodeByID(graph, `fact:t($alpha:symbol, "c").`)
	require.True(t, ok)
	assert.Equal(t, KindDerived, support.Kind)
	_, ok = nodeByID(graph, "rule:1")
	assert.True(t, ok)
}

func TestWriteAndSave(t *testing.T) {
	tr, res := analyse(t, `t("a", "c")`)
	graph, err := tr.Transform(context.Background(), res, "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteD3Graph(&buf, graph))
	var decoded D3Graph
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, len(graph.Nodes), len(decoded.Nodes))

	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, SaveD3Graph(graph, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(data))

	empty, err := ExportD3(context.Background(), nil, nil, "")
	require.NoError(t, err)
	assert.Empty(t, empty.Nodes)
}
