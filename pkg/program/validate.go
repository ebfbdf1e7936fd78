package program

// ArityTable maps relation names to the arity of their first occurrence.
type ArityTable map[string]int

// Check records the arity of l, returning an *ArityError if it disagrees with an earlier occurrence.
func (t ArityTable) Check(l Literal) error {
	want, ok := t[l.Name]
	if !ok {
		t[l.Name] = l.Arity()
		return nil
	}
	if want != l.Arity() {
		return &ArityError{Relation: l.Name, Want: want, Got: l.Arity(), Literal: l}
	}
	return nil
}

// Validate checks the structural invariants of the program: consistent arities, ground facts and
// range-restricted rules.
func (p *Program) Validate() error {
	arities := make(ArityTable)
	for _, r := range p.Rules {
		for _, l := range r.Literals() {
			if err := arities.Check(l); err != nil {
				return err
			}
		}
		if err := checkSafety(r); err != nil {
			return err
		}
	}
	for _, f := range p.Facts {
		if err := arities.Check(f.Head); err != nil {
			return err
		}
		if err := CheckFact(f); err != nil {
			return err
		}
	}
	return nil
}

// CheckFact rejects facts with variables in the head.
func CheckFact(f Fact) error {
	for i, a := range f.Head.Args {
		if !a.IsGround() {
			return &MalformedFactError{Fact: f, Position: i}
		}
	}
	return nil
}

func checkSafety(r Rule) error {
	bound := make(map[string]bool)
	for _, b := range r.Body {
		if !b.Positive {
			continue
		}
		for _, a := range b.Args {
			if a.IsVariable() {
				bound[a.name] = true
			}
		}
	}
	for _, a := range r.Head.Args {
		if a.IsVariable() && !bound[a.name] {
			return &UnsafeRuleError{Rule: r, Variable: a.name}
		}
	}
	return nil
}
