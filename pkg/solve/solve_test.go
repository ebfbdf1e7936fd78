package solve

import (
	"testing"

	"github.com/duynguyendang/symlog/pkg/formula"
	"github.com/duynguyendang/symlog/pkg/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alpha = program.Symbolic("alpha", program.TypeSymbol)
	beta  = program.Symbolic("beta", program.TypeSymbol)
	n     = program.Symbolic("n", program.TypeNumber)
)

func sign(name string, args ...program.Arg) formula.Formula {
	return formula.Sign(program.NewLiteral(name, args...))
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		f      formula.Formula
		status Status
		valid  bool
	}{
		{"true", formula.True(), Sat, true},
		{"false", formula.False(), Unsat, false},
		{"single sign", sign("r", program.String("a")), Sat, false},
		{"equality", formula.Eq(alpha, program.String("a")), Sat, false},
		{
			name:   "two alternative values",
			f:      formula.Or(formula.Eq(alpha, program.String("a")), formula.Eq(alpha, program.String("b"))),
			status: Sat,
			valid:  false,
		},
		{
			name:   "symbolic equality",
			f:      formula.Eq(alpha, beta),
			status: Sat,
			valid:  false,
		},
		{
			name: "chained equalities pin both",
			f: formula.And(
				formula.Eq(alpha, beta),
				formula.Eq(alpha, program.String("a")),
				formula.Eq(beta, program.String("a")),
			),
			status: Sat,
		},
		{
			name: "linked symbols cannot take different values",
			f: formula.And(
				formula.Eq(alpha, beta),
				formula.Eq(alpha, program.String("a")),
				formula.Eq(beta, program.String("b")),
			),
			status: Unsat,
		},
		{
			name:   "number symbol",
			f:      formula.And(formula.Eq(n, program.Number(3)), sign("s", program.Number(3))),
			status: Sat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Check(tt.f)
			require.NoError(t, err)
			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, tt.valid, out.Valid)
		})
	}
}

func TestModel(t *testing.T) {
	f := formula.And(formula.Eq(alpha, program.String("a")), sign("r", program.String("a"), program.String("b")))
	out, err := Check(f)
	require.NoError(t, err)
	require.Equal(t, Sat, out.Status)
	require.NotNil(t, out.Model)

	assert.Equal(t, `"a"`, out.Model.Values["alpha"])
	assert.True(t, out.Model.Signs[`r("a", "b").`])
	assert.Equal(t, `sat: $alpha = "a", r("a", "b"). true`, out.String())
}

func TestPlaceholderValues(t *testing.T) {
	// alpha = beta with no constants can only be satisfied by a shared placeholder.
	out, err := Check(formula.Eq(alpha, beta))
	require.NoError(t, err)
	require.Equal(t, Sat, out.Status)
	assert.Equal(t, out.Model.Values["alpha"], out.Model.Values["beta"])
	assert.Equal(t, byte('*'), out.Model.Values["alpha"][0])
}

func TestValidDisjunction(t *testing.T) {
	s := sign("r", program.String("a"))
	f := formula.Or(s, formula.And(formula.Eq(alpha, program.String("x")), s))
	out, err := Check(f)
	require.NoError(t, err)
	assert.Equal(t, Sat, out.Status)
	assert.False(t, out.Valid)
	assert.Equal(t, "unsat", Outcome{Status: Unsat}.String())
}
