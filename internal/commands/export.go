package commands

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/export"
	"github.com/duynguyendang/symlog/pkg/service"
)

var (
	exportOut        string
	exportPattern    string
	exportSkipDirect bool
)

// ExportCmd writes the provenance of the targets as a D3 node-link graph.
var ExportCmd = &cobra.Command{
	Use:   "export <program-file>... | <project-dir>",
	Short: "Export target provenance as a D3 graph",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExport,
}

func init() {
	ExportCmd.Flags().StringArrayVarP(&targetArgs, "target", "t", nil, "Target fact (repeatable)")
	ExportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Output file (default stdout)")
	ExportCmd.Flags().StringVar(&exportPattern, "pattern", "", "Only export targets matching these atoms, e.g. 't(X, \"b\")'")
	ExportCmd.Flags().BoolVar(&exportSkipDirect, "skip-direct", false, "Leave out targets matched directly by base facts")
}

func runExport(cmd *cobra.Command, args []string) error {
	in, err := loadInput(args, targetArgs)
	if err != nil {
		return err
	}
	if len(in.targets) == 0 {
		return errors.Wrap(errors.ErrInvalidInput, "no targets given")
	}

	svc, err := newService(nil)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	r, err := svc.Analyze(ctx, service.Request{Program: in.program, Targets: in.targets})
	if err != nil {
		return err
	}

	t := export.NewD3Transformer(in.program.Rules)
	t.SkipDirect = exportSkipDirect
	graph, err := t.Transform(ctx, r.Result, exportPattern)
	if err != nil {
		return err
	}

	if exportOut == "" {
		return export.WriteD3Graph(os.Stdout, graph)
	}
	if err := export.SaveD3Graph(graph, exportOut); err != nil {
		return err
	}
	pterm.Success.Printfln("wrote %d nodes and %d links to %s", len(graph.Nodes), len(graph.Links), exportOut)
	return nil
}
