package symex

import (
	"context"
	"testing"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/formula"
	"github.com/duynguyendang/symlog/pkg/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	X = program.Variable("X")
	Y = program.Variable("Y")
	Z = program.Variable("Z")

	alpha = program.Symbolic("alpha", program.TypeSymbol)
)

func str(s string) program.Arg { return program.String(s) }

func lit(name string, args ...program.Arg) program.Literal { return program.NewLiteral(name, args...) }

func fact(name string, args ...program.Arg) program.Fact { return program.NewFact(name, args...) }

func signed(name string, args ...program.Arg) program.Fact {
	return program.Signed(program.NewFact(name, args...))
}

func joinRules() []program.Rule {
	return []program.Rule{program.NewRule(lit("t", X, Z), lit("r", X, Y), lit("s", Y, Z))}
}

func TestSymexScenarios(t *testing.T) {
	tests := []struct {
		name    string
		facts   []program.Fact
		targets []program.Fact
		want    map[string]formula.Formula
	}{
		{
			name: "signed fact on the only path",
			facts: []program.Fact{
				signed("r", str("a"), str("b")),
				fact("r", str("b"), str("c")),
				fact("s", str("b"), str("c")),
				signed("s", str("c"), str("d")),
			},
			targets: []program.Fact{fact("t", str("a"), str("c"))},
			want: map[string]formula.Formula{
				`t("a", "c")`: formula.Sign(lit("r", str("a"), str("b"))),
			},
		},
		{
			name: "symbolic constant path without a join partner",
			facts: []program.Fact{
				fact("r", alpha, str("b")),
				fact("r", str("b"), str("c")),
				fact("s", str("b"), str("c")),
				signed("s", str("c"), str("d")),
			},
			targets: []program.Fact{fact("t", str("b"), str("d"))},
			want: map[string]formula.Formula{
				`t("b", "d")`: formula.Sign(lit("s", str("c"), str("d"))),
			},
		},
		{
			name: "symbolic constant and symbolic sign on one fact",
			facts: []program.Fact{
				signed("r", alpha, str("b")),
				fact("r", str("b"), str("c")),
				fact("s", str("b"), str("c")),
				signed("s", str("c"), str("d")),
			},
			targets: []program.Fact{fact("t", str("a"), str("c"))},
			want: map[string]formula.Formula{
				`t("a", "c")`: formula.And(
					formula.Eq(alpha, str("a")),
					formula.Sign(lit("r", str("a"), str("b"))),
				),
			},
		},
		{
			name: "concrete base omits underivable targets",
			facts: []program.Fact{
				fact("r", str("a"), str("b")),
				fact("r", str("b"), str("c")),
				fact("s", str("b"), str("c")),
				fact("s", str("c"), str("d")),
			},
			targets: []program.Fact{
				fact("t", str("a"), str("c")),
				fact("t", str("e"), str("c")),
			},
			want: map[string]formula.Formula{
				`t("a", "c")`: formula.True(),
			},
		},
		{
			name: "one symbolic constant serves several targets",
			facts: []program.Fact{
				fact("r", alpha, str("b")),
				fact("r", str("b"), str("c")),
				fact("s", str("b"), str("c")),
				signed("s", str("c"), str("d")),
			},
			targets: []program.Fact{
				fact("t", str("a"), str("c")),
				fact("t", str("e"), str("c")),
			},
			want: map[string]formula.Formula{
				`t("a", "c")`: formula.Eq(alpha, str("a")),
				`t("e", "c")`: formula.Eq(alpha, str("e")),
			},
		},
		{
			name: "number typed join",
			facts: []program.Fact{
				fact("r", alpha, program.Number(1)),
				fact("r", str("1"), program.Number(3)),
				fact("s", program.Number(1), program.Number(2)),
				fact("s", program.Number(2), program.Number(3)),
			},
			targets: []program.Fact{fact("t", str("1"), program.Number(2))},
			want: map[string]formula.Formula{
				`t("1", 2)`: formula.Eq(alpha, str("1")),
			},
		},
		{
			name: "symbolic constant of the wrong type never matches",
			facts: []program.Fact{
				fact("r", program.Symbolic("n", program.TypeNumber), str("b")),
				fact("s", str("b"), str("c")),
			},
			targets: []program.Fact{fact("t", str("a"), str("c"))},
			want:    map[string]formula.Formula{},
		},
		{
			name:    "empty target set",
			facts:   []program.Fact{fact("r", str("a"), str("b"))},
			targets: nil,
			want:    map[string]formula.Formula{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Symex(context.Background(), joinRules(), tt.facts, tt.targets)
			require.NoError(t, err)

			got := make(map[string]formula.Formula, res.Len())
			for _, e := range res.Entries {
				got[e.Target.Head.String()] = e.Formula
			}
			require.Len(t, got, len(tt.want))
			for target, want := range tt.want {
				f, ok := got[target]
				require.True(t, ok, "missing %s", target)
				assert.True(t, want.Equal(f), "%s: want %s, got %s", target, want, f)
			}
		})
	}
}

func TestFormulaText(t *testing.T) {
	facts := []program.Fact{
		signed("r", alpha, str("b")),
		fact("s", str("b"), str("c")),
	}
	res, err := Symex(context.Background(), joinRules(), facts, []program.Fact{fact("t", str("a"), str("c"))})
	require.NoError(t, err)

	f, ok := res.Get(fact("t", str("a"), str("c")))
	require.True(t, ok)
	assert.Equal(t, `$alpha = "a" & r("a", "b")`, f.String())
}

func TestOmittedAndOrdering(t *testing.T) {
	facts := []program.Fact{
		fact("r", alpha, str("b")),
		fact("s", str("b"), str("c")),
	}
	targets := []program.Fact{
		fact("t", str("z"), str("c")),
		fact("t", str("a"), str("d")),
		fact("t", str("a"), str("c")),
		fact("t", str("z"), str("c")),
	}
	res, err := Symex(context.Background(), joinRules(), facts, targets)
	require.NoError(t, err)

	require.Equal(t, 2, res.Len())
	assert.Equal(t, `t("z", "c")`, res.Entries[0].Target.Head.String())
	assert.Equal(t, `t("a", "c")`, res.Entries[1].Target.Head.String())
	require.Len(t, res.Omitted, 1)
	assert.Equal(t, `t("a", "d")`, res.Omitted[0].Head.String())

	_, ok := res.Get(fact("t", str("a"), str("d")))
	assert.False(t, ok)
	assert.Len(t, res.Formulas(), 2)
}

func TestDirectFacts(t *testing.T) {
	facts := []program.Fact{
		fact("t", str("a"), str("c")),
		signed("t", str("b"), str("c")),
		fact("t", alpha, str("d")),
	}
	targets := []program.Fact{
		fact("t", str("a"), str("c")),
		fact("t", str("b"), str("c")),
		fact("t", str("q"), str("d")),
	}
	res, err := Symex(context.Background(), joinRules(), facts, targets)
	require.NoError(t, err)
	require.Equal(t, 3, res.Len())

	assert.True(t, res.Entries[0].Formula.IsTrue())
	assert.True(t, res.Entries[1].Formula.Equal(formula.Sign(lit("t", str("b"), str("c")))))
	assert.True(t, res.Entries[2].Formula.Equal(formula.Eq(alpha, str("q"))))

	require.Len(t, res.Entries[0].Derivations, 1)
	assert.Equal(t, DirectFact, res.Entries[0].Derivations[0].Rule)
}

func TestTrueAbsorbsConditionalPaths(t *testing.T) {
	facts := []program.Fact{
		signed("r", str("a"), str("b")),
		fact("r", str("a"), str("x")),
		fact("s", str("b"), str("c")),
		fact("s", str("x"), str("c")),
	}
	res, err := Symex(context.Background(), joinRules(), facts, []program.Fact{fact("t", str("a"), str("c"))})
	require.NoError(t, err)

	e, ok := res.Entry(fact("t", str("a"), str("c")))
	require.True(t, ok)
	assert.True(t, e.Formula.IsTrue())
	assert.Len(t, e.Derivations, 2)
	for _, d := range e.Derivations {
		assert.Equal(t, 0, d.Rule)
		assert.Len(t, d.Support, 2)
	}
}

func TestSymbolicEquality(t *testing.T) {
	a := program.Symbolic("a", program.TypeSymbol)
	b := program.Symbolic("b", program.TypeSymbol)
	rules := []program.Rule{program.NewRule(lit("t", Y), lit("r", X, Y), lit("s", X))}
	facts := []program.Fact{
		fact("r", a, str("x")),
		fact("s", b),
	}
	res, err := Symex(context.Background(), rules, facts, []program.Fact{fact("t", str("x"))})
	require.NoError(t, err)

	f, ok := res.Get(fact("t", str("x")))
	require.True(t, ok)
	assert.Equal(t, "$a = $b", f.String())
}

func TestRecursiveRelations(t *testing.T) {
	rules := []program.Rule{
		program.NewRule(lit("path", X, Y), lit("edge", X, Y)),
		program.NewRule(lit("path", X, Z), lit("edge", X, Y), lit("path", Y, Z)),
	}
	facts := []program.Fact{
		fact("edge", str("a"), str("b")),
		signed("edge", str("b"), str("c")),
		fact("edge", str("c"), str("a")),
	}
	targets := []program.Fact{
		fact("path", str("a"), str("c")),
		fact("path", str("a"), str("b")),
		fact("path", str("c"), str("b")),
		fact("path", str("a"), str("z")),
	}

	res, err := Symex(context.Background(), rules, facts, targets)
	require.NoError(t, err)

	sign := formula.Sign(lit("edge", str("b"), str("c")))
	tests := []struct {
		target program.Fact
		want   formula.Formula
	}{
		{fact("path", str("a"), str("c")), sign},
		{fact("path", str("a"), str("b")), formula.True()},
		{fact("path", str("c"), str("b")), formula.True()},
	}
	for _, tt := range tests {
		t.Run(tt.target.Head.String(), func(t *testing.T) {
			f, ok := res.Get(tt.target)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(f), "want %s, got %s", tt.want, f)
		})
	}

	_, ok := res.Get(fact("path", str("a"), str("z")))
	assert.False(t, ok)
}

func TestSaturationLimit(t *testing.T) {
	rules := []program.Rule{
		program.NewRule(lit("path", X, Y), lit("edge", X, Y)),
		program.NewRule(lit("path", X, Z), lit("edge", X, Y), lit("path", Y, Z)),
	}
	facts := []program.Fact{fact("edge", str("a"), str("b"))}

	_, err := Symex(context.Background(), rules, facts, []program.Fact{fact("path", str("a"), str("b"))}, WithMaxRounds(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSaturationLimit))
}

func TestWithoutDerivations(t *testing.T) {
	facts := []program.Fact{
		fact("r", str("a"), str("b")),
		fact("s", str("b"), str("c")),
	}
	res, err := Symex(context.Background(), joinRules(), facts,
		[]program.Fact{fact("t", str("a"), str("c"))}, WithDerivations(false))
	require.NoError(t, err)
	require.Equal(t, 1, res.Len())
	assert.Empty(t, res.Entries[0].Derivations)
	assert.True(t, res.Entries[0].Formula.IsTrue())
}

func TestSymexErrors(t *testing.T) {
	tests := []struct {
		name     string
		rules    []program.Rule
		facts    []program.Fact
		targets  []program.Fact
		sentinel error
	}{
		{
			name: "negative body literal",
			rules: []program.Rule{program.NewRule(lit("t", X),
				lit("r", X),
				program.Literal{Name: "s", Args: []program.Arg{X}, Positive: false})},
			sentinel: ErrNegation,
		},
		{
			name:     "symbolic target",
			rules:    joinRules(),
			targets:  []program.Fact{fact("t", alpha, str("c"))},
			sentinel: ErrInvalidTarget,
		},
		{
			name:     "target arity",
			rules:    joinRules(),
			targets:  []program.Fact{fact("t", str("a"))},
			sentinel: program.ErrStructural,
		},
		{
			name:     "fact arity",
			rules:    joinRules(),
			facts:    []program.Fact{fact("r", str("a"))},
			sentinel: program.ErrStructural,
		},
		{
			name:     "unsafe rule",
			rules:    []program.Rule{program.NewRule(lit("t", X, Z), lit("r", X, Y))},
			sentinel: program.ErrStructural,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Symex(context.Background(), tt.rules, tt.facts, tt.targets)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "unexpected error: %v", err)
		})
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Symex(ctx, joinRules(), nil, []program.Fact{fact("t", str("a"), str("c"))})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEngineReuse(t *testing.T) {
	e, err := New(joinRules(), []program.Fact{
		fact("r", alpha, str("b")),
		fact("s", str("b"), str("c")),
	})
	require.NoError(t, err)

	for _, v := range []string{"a", "e"} {
		res, err := e.Symex(context.Background(), []program.Fact{fact("t", str(v), str("c"))})
		require.NoError(t, err)
		f, ok := res.Get(fact("t", str(v), str("c")))
		require.True(t, ok)
		assert.True(t, formula.Eq(alpha, str(v)).Equal(f))
	}
}
