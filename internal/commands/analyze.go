package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/service"
	"github.com/duynguyendang/symlog/pkg/typeanalysis"
)

var (
	jsonOutput bool
	seedPolicy string
	targetArgs []string
	maxRounds  int
)

// TypesCmd prints the inferred relation declarations of a program.
var TypesCmd = &cobra.Command{
	Use:   "types <program-file>... | <project-dir>",
	Short: "Infer relation declarations",
	Long: `Infer the argument types of every relation of a program and print them as
Souffle declarations. Facts fix types directly; rules propagate them to their heads.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTypes,
}

// SymexCmd prints the provenance formula of each target.
var SymexCmd = &cobra.Command{
	Use:   "symex <program-file>... | <project-dir>",
	Short: "Compute the condition under which each target is derived",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalysis(cmd, args, false)
	},
}

// SolveCmd runs symex and checks every formula with the SAT solver.
var SolveCmd = &cobra.Command{
	Use:   "solve <program-file>... | <project-dir>",
	Short: "Check the satisfiability of each target's condition",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalysis(cmd, args, true)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{TypesCmd, SymexCmd, SolveCmd} {
		cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
		cmd.Flags().StringVar(&seedPolicy, "seed-policy", "", "Type seeding policy: merge or last-write-wins")
	}
	for _, cmd := range []*cobra.Command{SymexCmd, SolveCmd} {
		cmd.Flags().StringArrayVarP(&targetArgs, "target", "t", nil, "Target fact, e.g. 't(\"a\", \"b\")' (repeatable)")
		cmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "Saturation round limit (0 keeps the configured value)")
	}
}

func policyFlag() (typeanalysis.SeedPolicy, error) {
	if seedPolicy == "" {
		return "", nil
	}
	p, ok := typeanalysis.ParseSeedPolicy(seedPolicy)
	if !ok {
		return "", errors.WithHint(
			errors.Wrapf(errors.ErrInvalidInput, "unknown seed policy %q", seedPolicy),
			"valid policies: merge, last-write-wins")
	}
	return p, nil
}

func runTypes(cmd *cobra.Command, args []string) error {
	policy, err := policyFlag()
	if err != nil {
		return err
	}
	in, err := loadInput(args, nil)
	if err != nil {
		return err
	}

	svc, err := newService(nil)
	if err != nil {
		return err
	}
	r, err := svc.Types(in.program, policy)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(r)
	}
	pterm.Print(r.Souffle)
	pterm.Debug.Printfln("%d passes", r.Stats.Passes)
	return nil
}

func runAnalysis(cmd *cobra.Command, args []string, solveFormulas bool) error {
	policy, err := policyFlag()
	if err != nil {
		return err
	}
	in, err := loadInput(args, targetArgs)
	if err != nil {
		return err
	}
	if len(in.targets) == 0 {
		return errors.WithHint(
			errors.Wrap(errors.ErrInvalidInput, "no targets given"),
			"pass targets with -t or list them in the project manifest")
	}

	svc, err := newService(nil)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	r, err := svc.Analyze(ctx, service.Request{
		Program:    in.program,
		Targets:    in.targets,
		SeedPolicy: policy,
		Solve:      solveFormulas,
		MaxRounds:  maxRounds,
	})
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(r)
	}
	printReport(r)
	return nil
}
