// Package export renders provenance as a D3 force-directed graph: support facts point at the
// rules they feed, and rules point at the targets they derive.
package export

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/datalog"
	"github.com/duynguyendang/symlog/pkg/program"
	"github.com/duynguyendang/symlog/pkg/symex"
)

// Node kinds.
const (
	KindTarget  = "target"
	KindRule    = "rule"
	KindFact    = "fact"
	KindSigned  = "signed"
	KindDerived = "derived"
)

// D3Node represents a node in the D3 force-directed graph.
type D3Node struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Kind     string            `json:"kind"`
	Group    string            `json:"group,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// D3Link represents a link/edge in the D3 force-directed graph.
type D3Link struct {
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Relation string  `json:"relation"`
	Weight   float64 `json:"weight,omitempty"`
	// Formula is the condition of the derivation a rule-to-target link stands for.
	Formula string `json:"formula,omitempty"`
}

// D3Graph represents the full graph structure for D3.js.
type D3Graph struct {
	Nodes []D3Node `json:"nodes"`
	Links []D3Link `json:"links"`
}

// D3Transformer converts symbolic execution results to D3 graphs.
type D3Transformer struct {
	Rules []program.Rule
	// SkipDirect leaves out derivations that match a base fact directly.
	SkipDirect bool

	heads map[string]bool
}

// NewD3Transformer creates a transformer for results computed over rules.
func NewD3Transformer(rules []program.Rule) *D3Transformer {
	heads := make(map[string]bool, len(rules))
	for _, r := range rules {
		heads[r.Head.Name] = true
	}
	return &D3Transformer{Rules: rules, heads: heads}
}

type builder struct {
	graph *D3Graph
	nodes map[string]int
}

func (b *builder) node(n D3Node) string {
	if _, ok := b.nodes[n.ID]; !ok {
		b.nodes[n.ID] = len(b.graph.Nodes)
		b.graph.Nodes = append(b.graph.Nodes, n)
	}
	return n.ID
}

// Transform converts res into a graph. A non-empty pattern such as `t("a", X)` keeps only the
// targets matching one of its atoms.
func (t *D3Transformer) Transform(ctx context.Context, res *symex.Result, pattern string) (*D3Graph, error) {
	var atoms []datalog.Atom
	if pattern != "" {
		var err error
		if atoms, err = datalog.Parse(pattern); err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "export pattern: %v", err)
		}
	}

	b := &builder{graph: &D3Graph{Nodes: []D3Node{}, Links: []D3Link{}}, nodes: make(map[string]int)}
	if res == nil {
		return b.graph, nil
	}

	for _, e := range res.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !selected(atoms, e.Target.Head) {
			continue
		}
		target := b.node(D3Node{
			ID:       "target:" + e.Target.Head.String(),
			Name:     e.Target.Head.Display(),
			Kind:     KindTarget,
			Group:    KindTarget,
			Metadata: map[string]string{"formula": e.Formula.String()},
		})

		for _, d := range e.Derivations {
			if d.Rule == symex.DirectFact {
				if t.SkipDirect {
					continue
				}
				for _, f := range d.Support {
					fact := b.node(t.factNode(f))
					b.graph.Links = append(b.graph.Links, D3Link{
						Source: fact, Target: target, Relation: "matches", Weight: 1, Formula: d.Formula.String(),
					})
				}
				continue
			}

			rule := b.node(t.ruleNode(d.Rule))
			b.graph.Links = append(b.graph.Links, D3Link{
				Source: rule, Target: target, Relation: "derives", Weight: 1, Formula: d.Formula.String(),
			})
			for i, f := range d.Support {
				fact := b.node(t.factNode(f))
				b.graph.Links = append(b.graph.Links, D3Link{
					Source: fact, Target: rule, Relation: "body:" + strconv.Itoa(i), Weight: 0.5,
				})
			}
		}
	}
	return b.graph, nil
}

func selected(atoms []datalog.Atom, l program.Literal) bool {
	if len(atoms) == 0 {
		return true
	}
	for _, a := range atoms {
		if a.Matches(l) {
			return true
		}
	}
	return false
}

func (t *D3Transformer) ruleNode(i int) D3Node {
	n := D3Node{ID: "rule:" + strconv.Itoa(i), Name: "rule " + strconv.Itoa(i), Kind: KindRule, Group: KindRule}
	if i >= 0 && i < len(t.Rules) {
		n.Name = t.Rules[i].Head.Display()
		n.Metadata = map[string]string{"rule": t.Rules[i].String()}
	}
	return n
}

func (t *D3Transformer) factNode(f program.Fact) D3Node {
	kind := KindFact
	switch {
	case t.heads[f.Name()]:
		kind = KindDerived
	case f.SymbolicSign:
		kind = KindSigned
	}
	return D3Node{
		ID:    "fact:" + f.String(),
		Name:  f.Head.Display(),
		Kind:  kind,
		Group: f.Name(),
	}
}

// ExportD3 is a convenience wrapper for D3Transformer.
func ExportD3(ctx context.Context, rules []program.Rule, res *symex.Result, pattern string) (*D3Graph, error) {
	return NewD3Transformer(rules).Transform(ctx, res, pattern)
}

// WriteD3Graph encodes the graph as indented JSON.
func WriteD3Graph(w io.Writer, graph *D3Graph) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(graph)
}

// SaveD3Graph writes the graph to a JSON file.
func SaveD3Graph(graph *D3Graph, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteD3Graph(f, graph)
}
