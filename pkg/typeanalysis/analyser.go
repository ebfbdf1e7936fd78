// Package typeanalysis infers a monomorphic argument-type signature for every relation of a
// program, purely from how the relation is used.
//
// Inference runs in three phases: seeding from every literal occurrence, resolution from ground
// facts, and a fixpoint over rules that pushes body types into head positions. Contradictions
// abort the whole inference; positions that never meet a typed argument stay unknown.
package typeanalysis

import (
	"sort"

	"github.com/duynguyendang/symlog/pkg/logger"
	"github.com/duynguyendang/symlog/pkg/program"
)

// SeedPolicy selects how repeated occurrences of a relation combine during seeding.
type SeedPolicy string

const (
	// SeedMerge keeps, per position, the concrete type seen at any occurrence. Two occurrences
	// with different concrete types at one position are an *InconsistentFactError.
	SeedMerge SeedPolicy = "merge"
	// SeedLastWriteWins lets the last occurrence of a relation overwrite the earlier ones.
	SeedLastWriteWins SeedPolicy = "last-write-wins"
)

// ParseSeedPolicy validates a policy name. The empty string selects SeedMerge.
func ParseSeedPolicy(s string) (SeedPolicy, bool) {
	switch SeedPolicy(s) {
	case "", SeedMerge:
		return SeedMerge, true
	case SeedLastWriteWins:
		return SeedLastWriteWins, true
	default:
		return "", false
	}
}

// Stats describes the last inference run.
type Stats struct {
	// Passes is the number of rule passes, including the final one that changed nothing.
	Passes int `json:"passes"`
	// UnknownPerPass holds the unknown position count after the fact phase and after each pass.
	UnknownPerPass []int `json:"unknown_per_pass"`
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithSeedPolicy selects the seeding policy.
func WithSeedPolicy(p SeedPolicy) Option {
	return func(a *Analyzer) { a.policy = p }
}

// Analyzer infers declarations. An Analyzer is not safe for concurrent use; each call to Infer
// builds a fresh table.
type Analyzer struct {
	policy SeedPolicy
	stats  Stats
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{policy: SeedMerge}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// InferDeclarations runs a fresh Analyzer over rules and facts.
func InferDeclarations(rules []program.Rule, facts []program.Fact, opts ...Option) (Declarations, error) {
	return New(opts...).Infer(rules, facts)
}

// Stats returns statistics of the last Infer call.
func (a *Analyzer) Stats() Stats { return a.stats }

// Infer builds the declaration table for rules and facts.
func (a *Analyzer) Infer(rules []program.Rule, facts []program.Fact) (Declarations, error) {
	a.stats = Stats{}

	decls, err := a.seed(rules, facts)
	if err != nil {
		return nil, err
	}
	if err := a.resolveFacts(decls, facts); err != nil {
		return nil, err
	}
	a.stats.UnknownPerPass = append(a.stats.UnknownPerPass, decls.Unknowns())

	for {
		changed, err := a.rulePass(decls, rules)
		if err != nil {
			return nil, err
		}
		a.stats.Passes++
		a.stats.UnknownPerPass = append(a.stats.UnknownPerPass, decls.Unknowns())
		if !changed {
			break
		}
	}

	logger.Logger.Debugw("type inference converged",
		"relations", len(decls),
		"passes", a.stats.Passes,
		"unknown", decls.Unknowns())
	return decls, nil
}

// seed records a per-argument type list for every literal occurrence, sized by that literal's arity.
func (a *Analyzer) seed(rules []program.Rule, facts []program.Fact) (Declarations, error) {
	decls := make(Declarations)
	arities := make(program.ArityTable)

	visit := func(l program.Literal) error {
		if err := arities.Check(l); err != nil {
			return err
		}
		types := argTypes(l.Args)
		current, ok := decls[l.Name]
		if !ok || a.policy == SeedLastWriteWins {
			decls[l.Name] = types
			return nil
		}
		for i, t := range types {
			switch {
			case t == program.TypeUnknown:
			case current[i] == program.TypeUnknown:
				current[i] = t
			case current[i] != t:
				return &InconsistentFactError{
					Relation: l.Name,
					Declared: append([]program.Type(nil), current...),
					Inferred: types,
					Source:   "literal " + l.String(),
				}
			}
		}
		return nil
	}

	for _, r := range rules {
		for _, l := range r.Literals() {
			if err := visit(l); err != nil {
				return nil, err
			}
		}
	}
	for _, f := range facts {
		if err := visit(f.Head); err != nil {
			return nil, err
		}
	}
	return decls, nil
}

// resolveFacts requires every fact to be fully typed and forces its signature on the relation.
func (a *Analyzer) resolveFacts(decls Declarations, facts []program.Fact) error {
	for _, f := range facts {
		for i, arg := range f.Head.Args {
			if !arg.IsGround() {
				return &MalformedArgumentError{Fact: f, Position: i, Kind: arg.Kind()}
			}
		}
		types := argTypes(f.Head.Args)
		current := decls[f.Head.Name]
		if !hasUnknown(current) {
			if !sameTypes(current, types) {
				return &InconsistentFactError{
					Relation: f.Head.Name,
					Declared: append([]program.Type(nil), current...),
					Inferred: types,
					Source:   "fact " + f.String(),
				}
			}
			continue
		}
		decls[f.Head.Name] = types
	}
	return nil
}

// rulePass pushes body types into head positions once over every rule. It reports whether any
// position moved from unknown to a concrete type.
func (a *Analyzer) rulePass(decls Declarations, rules []program.Rule) (bool, error) {
	changed := false
	for _, r := range rules {
		head := decls[r.Head.Name]
		for idx, headArg := range r.Head.Args {
			if !headArg.IsVariable() {
				continue
			}
			inferred := bodyTypes(decls, r.Body, headArg)
			if len(inferred) == 0 {
				continue
			}
			if len(inferred) > 1 {
				return false, &AmbiguousTypeError{Rule: r, Position: idx, Types: inferred}
			}
			switch current := head[idx]; {
			case current == program.TypeUnknown:
				head[idx] = inferred[0]
				changed = true
			case current != inferred[0]:
				return false, &AmbiguousTypeError{Rule: r, Position: idx, Types: []program.Type{current, inferred[0]}}
			}
		}
	}
	return changed, nil
}

// bodyTypes collects the distinct concrete types that v carries across the body literals.
func bodyTypes(decls Declarations, body []program.Literal, v program.Arg) []program.Type {
	seen := make(map[program.Type]bool)
	for _, l := range body {
		ts := decls[l.Name]
		for j, arg := range l.Args {
			if arg.SameEntity(v) && j < len(ts) && ts[j] != program.TypeUnknown {
				seen[ts[j]] = true
			}
		}
	}
	out := make([]program.Type, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func argTypes(args []program.Arg) []program.Type {
	types := make([]program.Type, len(args))
	for i, arg := range args {
		types[i] = arg.Type()
	}
	return types
}
