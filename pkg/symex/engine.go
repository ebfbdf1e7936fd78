// Package symex computes, for each target fact, the condition under which a Datalog program
// derives it from a fact base whose facts may carry unknown truth values and unknown constants.
//
// The condition is a formula over equality atoms on symbolic constants and sign atoms standing
// for the truth of symbolically signed facts. Targets are searched top-down: the rule head is
// unified with the target, then the body is joined in order against the fact base. Relations
// defined by rules are served from a table of derived facts saturated bottom-up once per Engine.
package symex

import (
	"context"
	"sync"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/formula"
	"github.com/duynguyendang/symlog/pkg/logger"
	"github.com/duynguyendang/symlog/pkg/program"
)

// DefaultMaxRounds bounds saturation of rule-defined relations.
const DefaultMaxRounds = 256

type options struct {
	maxRounds   int
	derivations bool
}

// Option configures an Engine.
type Option func(*options)

// WithMaxRounds sets the saturation round limit. Zero or less removes the limit.
func WithMaxRounds(n int) Option {
	return func(o *options) { o.maxRounds = n }
}

// WithDerivations controls whether entries keep their individual derivations. Defaults to true.
func WithDerivations(keep bool) Option {
	return func(o *options) { o.derivations = keep }
}

// Engine answers provenance queries over a fixed rule set and fact base. It is safe for
// concurrent use.
type Engine struct {
	rules   []program.Rule
	facts   map[string][]candidate
	heads   map[string]bool
	arities program.ArityTable
	opts    options

	mu        sync.Mutex
	saturated bool
	derived   map[string][]candidate
}

// New validates the program and indexes the fact base.
func New(rules []program.Rule, facts []program.Fact, opts ...Option) (*Engine, error) {
	o := options{maxRounds: DefaultMaxRounds, derivations: true}
	for _, opt := range opts {
		opt(&o)
	}

	p := &program.Program{Rules: rules, Facts: facts}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		rules:   rules,
		facts:   make(map[string][]candidate),
		heads:   make(map[string]bool),
		arities: make(program.ArityTable),
		opts:    o,
	}
	for _, r := range rules {
		for _, l := range r.Literals() {
			if !l.Positive {
				return nil, &NegationError{Rule: r, Literal: l}
			}
			_ = e.arities.Check(l)
		}
		e.heads[r.Head.Name] = true
	}
	for _, f := range facts {
		_ = e.arities.Check(f.Head)
		e.facts[f.Name()] = append(e.facts[f.Name()], baseCandidate(f))
	}
	return e, nil
}

// Symex runs a one-off Engine over rules and facts for targets.
func Symex(ctx context.Context, rules []program.Rule, facts []program.Fact, targets []program.Fact, opts ...Option) (*Result, error) {
	e, err := New(rules, facts, opts...)
	if err != nil {
		return nil, err
	}
	return e.Symex(ctx, targets)
}

// Symex computes the formula of every target. Targets nothing derives are left out of the entries
// and listed in Result.Omitted. Duplicate targets are answered once.
func (e *Engine) Symex(ctx context.Context, targets []program.Fact) (*Result, error) {
	for _, t := range targets {
		if err := e.checkTarget(t); err != nil {
			return nil, err
		}
	}
	if err := e.saturate(ctx); err != nil {
		return nil, err
	}

	res := newResult()
	seen := make(map[program.Key]bool, len(targets))
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t = program.Fact{Head: t.Head}
		if seen[t.Key()] {
			continue
		}
		seen[t.Key()] = true

		entry, err := e.target(ctx, t)
		if err != nil {
			return nil, err
		}
		if entry.Formula.IsFalse() {
			res.Omitted = append(res.Omitted, t)
			continue
		}
		res.add(entry)
	}

	logger.Logger.Debugw("symbolic execution finished",
		"targets", len(seen),
		"derivable", res.Len(),
		"omitted", len(res.Omitted))
	return res, nil
}

func (e *Engine) checkTarget(t program.Fact) error {
	if !t.Head.IsConcrete() {
		return &TargetError{Target: t, Reason: "arguments must be concrete constants"}
	}
	if !t.Head.Positive {
		return &TargetError{Target: t, Reason: "target cannot be negated"}
	}
	if want, ok := e.arities[t.Name()]; ok && want != t.Arity() {
		return &program.ArityError{Relation: t.Name(), Want: want, Got: t.Arity(), Literal: t.Head}
	}
	return nil
}

// target collects every derivation of t: direct matches against base facts, then each rule whose
// head unifies with t.
func (e *Engine) target(ctx context.Context, t program.Fact) (Entry, error) {
	entry := Entry{Target: t}
	var formulas []formula.Formula
	record := func(rule int, b *branch) {
		f := b.formula()
		if f.IsFalse() {
			return
		}
		formulas = append(formulas, f)
		if e.opts.derivations {
			entry.Derivations = append(entry.Derivations, Derivation{
				Rule:     rule,
				Bindings: b.bindings,
				Support:  b.support,
				Formula:  f,
			})
		}
	}

	for _, c := range e.facts[t.Name()] {
		if b := newBranch().match(t.Head, c); b != nil {
			record(DirectFact, b)
		}
	}

	for i, r := range e.rules {
		if r.Head.Name != t.Name() || r.Head.Arity() != t.Arity() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Entry{}, err
		}
		b := newBranch()
		ok := true
		for j, arg := range r.Head.Args {
			if !b.unify(arg, t.Head.Args[j]) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		e.join(r.Body, b, func(done *branch) { record(i, done) })
	}

	entry.Formula = formula.Or(formulas...)
	return entry, nil
}

// join matches body in order, calling emit for every consistent combination.
func (e *Engine) join(body []program.Literal, b *branch, emit func(*branch)) {
	if len(body) == 0 {
		emit(b)
		return
	}
	lit := body[0]
	for _, c := range e.candidates(lit.Name) {
		if nb := b.match(lit, c); nb != nil {
			e.join(body[1:], nb, emit)
		}
	}
}

func (e *Engine) candidates(rel string) []candidate {
	base := e.facts[rel]
	derived := e.derived[rel]
	if len(derived) == 0 {
		return base
	}
	out := make([]candidate, 0, len(base)+len(derived))
	out = append(out, base...)
	return append(out, derived...)
}

// saturate derives the facts of every rule-defined relation that some rule body uses, iterating
// until no derived fact gains a new fact or a weaker condition. It runs at most once per Engine.
func (e *Engine) saturate(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.saturated {
		return nil
	}
	if !e.needsSaturation() {
		e.saturated = true
		return nil
	}

	table := make(map[program.Key]*candidate)
	var order []program.Key
	e.derived = make(map[string][]candidate)

	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			e.derived = nil
			return err
		}
		if e.opts.maxRounds > 0 && round > e.opts.maxRounds {
			e.derived = nil
			return errors.Wrapf(ErrSaturationLimit, "after %d rounds", e.opts.maxRounds)
		}

		updates := make(map[program.Key]*candidate)
		var fresh []program.Key
		for _, r := range e.rules {
			e.join(r.Body, newBranch(), func(done *branch) {
				f := done.formula()
				if f.IsFalse() {
					return
				}
				head := done.ground(r.Head)
				key := head.Key()
				if u, ok := updates[key]; ok {
					u.cond = formula.Or(u.cond, f)
					return
				}
				updates[key] = &candidate{fact: program.Fact{Head: head}, cond: f}
				fresh = append(fresh, key)
			})
		}

		changed := false
		for _, key := range fresh {
			u := updates[key]
			old, ok := table[key]
			if !ok {
				table[key] = u
				order = append(order, key)
				changed = true
				continue
			}
			merged := formula.Or(old.cond, u.cond)
			if !merged.Equal(old.cond) {
				old.cond = merged
				changed = true
			}
		}

		derived := make(map[string][]candidate)
		for _, key := range order {
			c := table[key]
			derived[c.fact.Name()] = append(derived[c.fact.Name()], *c)
		}
		e.derived = derived

		if !changed {
			logger.Logger.Debugw("saturation converged", "rounds", round, "derived", len(order))
			break
		}
	}
	e.saturated = true
	return nil
}

func (e *Engine) needsSaturation() bool {
	for _, r := range e.rules {
		for _, l := range r.Body {
			if e.heads[l.Name] {
				return true
			}
		}
	}
	return false
}
