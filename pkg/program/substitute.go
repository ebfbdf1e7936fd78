package program

// Bindings maps variable names to the values they are bound to.
type Bindings map[string]Arg

// Clone copies the bindings.
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b)+2)
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Substitute replaces bound variables in l by their values.
func Substitute(l Literal, b Bindings) Literal {
	out := l.Clone()
	for i, a := range out.Args {
		if a.IsVariable() {
			if v, ok := b[a.name]; ok {
				out.Args[i] = v
			}
		}
	}
	return out
}

// Resolve replaces symbolic constants in l by the concrete values they are resolved to.
func Resolve(l Literal, resolved map[string]Arg) Literal {
	if len(resolved) == 0 {
		return l
	}
	out := l.Clone()
	for i, a := range out.Args {
		if a.IsSymbolic() {
			if v, ok := resolved[a.name]; ok {
				out.Args[i] = v
			}
		}
	}
	return out
}
