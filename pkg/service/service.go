// Package service orchestrates type inference, symbolic execution and solving into reports, for
// ad-hoc programs and for the projects of a manager.
package service

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/duynguyendang/symlog/internal/manager"
	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/logger"
	"github.com/duynguyendang/symlog/pkg/program"
	"github.com/duynguyendang/symlog/pkg/project"
	"github.com/duynguyendang/symlog/pkg/solve"
	"github.com/duynguyendang/symlog/pkg/symex"
	"github.com/duynguyendang/symlog/pkg/typeanalysis"
)

// DefaultReportCache is the number of reports kept for lookup by ID.
const DefaultReportCache = 128

// maxSuggestions bounds the "did you mean" list of an unknown target relation.
const maxSuggestions = 3

// ProjectManager abstracts the project cache.
type ProjectManager interface {
	Get(id string) (*project.Project, error)
	List() ([]manager.ProjectMetadata, error)
}

// Request is one analysis.
type Request struct {
	Program *program.Program
	Targets []program.Fact
	// SeedPolicy overrides the service default when set.
	SeedPolicy typeanalysis.SeedPolicy
	// Solve checks every target formula with the SAT solver.
	Solve bool
	// MaxRounds overrides the service default when positive.
	MaxRounds int
}

// TargetReport is the provenance of one derivable target.
type TargetReport struct {
	Target      string         `json:"target"`
	Formula     string         `json:"formula"`
	SMTLIB      string         `json:"smtlib"`
	Derivations int            `json:"derivations"`
	Outcome     *solve.Outcome `json:"outcome,omitempty"`
}

// Report is the outcome of Analyze.
type Report struct {
	ID           string                    `json:"id"`
	Project      string                    `json:"project,omitempty"`
	CreatedAt    time.Time                 `json:"created_at"`
	Declarations typeanalysis.Declarations `json:"declarations"`
	Souffle      string                    `json:"souffle"`
	TypeStats    typeanalysis.Stats        `json:"type_stats"`
	Targets      []TargetReport            `json:"targets"`
	// Missing lists the targets nothing derives.
	Missing []string `json:"missing,omitempty"`
	// Suggestions maps target relations the program never mentions to similar known names.
	Suggestions map[string][]string `json:"suggestions,omitempty"`

	// Result keeps the raw provenance for export.
	Result *symex.Result `json:"-"`
}

// TypesReport is the outcome of Types.
type TypesReport struct {
	Declarations typeanalysis.Declarations `json:"declarations"`
	Souffle      string                    `json:"souffle"`
	Stats        typeanalysis.Stats        `json:"stats"`
}

// Option configures a Service.
type Option func(*Service)

// WithSeedPolicy sets the default seeding policy of type inference.
func WithSeedPolicy(p typeanalysis.SeedPolicy) Option {
	return func(s *Service) { s.seedPolicy = p }
}

// WithMaxRounds sets the default saturation round limit.
func WithMaxRounds(n int) Option {
	return func(s *Service) { s.maxRounds = n }
}

// WithSolveByDefault makes every analysis run the solver.
func WithSolveByDefault(on bool) Option {
	return func(s *Service) { s.solve = on }
}

// WithReportCache sets how many reports are kept for lookup.
func WithReportCache(n int) Option {
	return func(s *Service) { s.cacheSize = n }
}

// Service runs analyses. It is safe for concurrent use.
type Service struct {
	manager    ProjectManager
	reports    *lru.Cache[string, *Report]
	seedPolicy typeanalysis.SeedPolicy
	maxRounds  int
	solve      bool
	cacheSize  int
	log        *zap.SugaredLogger
}

// New creates a Service. mgr may be nil when no project directory is served.
func New(mgr ProjectManager, opts ...Option) (*Service, error) {
	s := &Service{
		manager:    mgr,
		seedPolicy: typeanalysis.SeedMerge,
		maxRounds:  symex.DefaultMaxRounds,
		cacheSize:  DefaultReportCache,
		log:        logger.Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	cache, err := lru.New[string, *Report](max(s.cacheSize, 1))
	if err != nil {
		return nil, errors.Wrap(err, "create report cache")
	}
	s.reports = cache
	return s, nil
}

// Types infers the declarations of p.
func (s *Service) Types(p *program.Program, policy typeanalysis.SeedPolicy) (*TypesReport, error) {
	if p == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "missing program")
	}
	if policy == "" {
		policy = s.seedPolicy
	}
	a := typeanalysis.New(typeanalysis.WithSeedPolicy(policy))
	decls, err := a.Infer(p.Rules, p.Facts)
	if err != nil {
		return nil, err
	}
	return &TypesReport{Declarations: decls, Souffle: decls.Souffle(), Stats: a.Stats()}, nil
}

// Analyze infers declarations and computes target provenance concurrently, then checks the targets
// against the declarations and optionally solves every formula.
func (s *Service) Analyze(ctx context.Context, req Request) (*Report, error) {
	if req.Program == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "missing program")
	}
	policy := req.SeedPolicy
	if policy == "" {
		policy = s.seedPolicy
	}
	rounds := s.maxRounds
	if req.MaxRounds > 0 {
		rounds = req.MaxRounds
	}

	var (
		types  *TypesReport
		result *symex.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		types, err = s.Types(req.Program, policy)
		return err
	})
	g.Go(func() error {
		var err error
		result, err = symex.Symex(gctx, req.Program.Rules, req.Program.Facts, req.Targets,
			symex.WithMaxRounds(rounds))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := checkTargets(types.Declarations, req.Targets); err != nil {
		return nil, err
	}

	report := &Report{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		Declarations: types.Declarations,
		Souffle:      types.Souffle,
		TypeStats:    types.Stats,
		Targets:      make([]TargetReport, len(result.Entries)),
		Result:       result,
	}
	for i, e := range result.Entries {
		report.Targets[i] = TargetReport{
			Target:      e.Target.String(),
			Formula:     e.Formula.String(),
			SMTLIB:      e.Formula.SMTLIB(),
			Derivations: len(e.Derivations),
		}
	}
	s.explainMissing(report, req.Program, result.Omitted)

	if req.Solve || s.solve {
		if err := s.solveTargets(ctx, report); err != nil {
			return nil, err
		}
	}

	s.reports.Add(report.ID, report)
	s.log.Infow("analysis finished",
		"report", report.ID,
		"relations", len(report.Declarations),
		"derivable", len(report.Targets),
		"missing", len(report.Missing))
	return report, nil
}

// checkTargets rejects targets whose constants contradict a concrete declared type.
func checkTargets(decls typeanalysis.Declarations, targets []program.Fact) error {
	for _, t := range targets {
		want, ok := decls[t.Name()]
		if !ok || len(want) != t.Arity() {
			continue
		}
		for i, a := range t.Head.Args {
			if want[i] != program.TypeUnknown && a.Type() != want[i] {
				return &TargetTypeError{Target: t, Position: i, Want: want[i], Got: a.Type()}
			}
		}
	}
	return nil
}

func (s *Service) explainMissing(r *Report, p *program.Program, omitted []program.Fact) {
	if len(omitted) == 0 {
		return
	}
	known := p.Relations()
	mentioned := make(map[string]bool, len(known))
	for _, rel := range known {
		mentioned[rel] = true
	}
	for _, t := range omitted {
		r.Missing = append(r.Missing, t.String())
		if mentioned[t.Name()] {
			continue
		}
		if hint := SuggestRelations(t.Name(), known, maxSuggestions); len(hint) > 0 {
			if r.Suggestions == nil {
				r.Suggestions = make(map[string][]string)
			}
			r.Suggestions[t.Name()] = hint
		}
	}
}

func (s *Service) solveTargets(ctx context.Context, r *Report) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, e := range r.Result.Entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := solve.Check(e.Formula)
			if err != nil {
				return errors.Wrapf(err, "solve %s", e.Target.Head)
			}
			r.Targets[i].Outcome = &out
			return nil
		})
	}
	return g.Wait()
}

// Report returns a cached report by ID.
func (s *Service) Report(id string) (*Report, error) {
	if r, ok := s.reports.Get(id); ok {
		return r, nil
	}
	return nil, errors.Wrapf(errors.ErrNotFound, "report %s", id)
}
