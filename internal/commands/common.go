// Package commands implements the symlog command line.
package commands

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"

	"github.com/duynguyendang/symlog/internal/manager"
	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/config"
	"github.com/duynguyendang/symlog/pkg/datalog"
	"github.com/duynguyendang/symlog/pkg/program"
	"github.com/duynguyendang/symlog/pkg/project"
	"github.com/duynguyendang/symlog/pkg/service"
)

// cfg is set by Setup before any command runs.
var cfg *config.Config

// Setup installs the process configuration used by every command.
func Setup(c *config.Config) {
	cfg = c
}

func settings() *config.Config {
	if cfg == nil {
		c, err := config.FromViper(config.New())
		if err != nil {
			panic(err)
		}
		cfg = c
	}
	return cfg
}

func newService(mgr service.ProjectManager) (*service.Service, error) {
	c := settings()
	return service.New(mgr,
		service.WithSeedPolicy(c.SeedPolicy()),
		service.WithMaxRounds(c.Analysis.MaxRounds),
		service.WithSolveByDefault(c.Analysis.Solve),
		service.WithReportCache(c.Cache.Reports),
	)
}

func newManager(readOnly bool) *manager.ProjectManager {
	c := settings()
	return manager.NewProjectManager(c.DataDir, c.Cache.Projects, readOnly)
}

// input is a program plus targets, read from program files or from a project directory.
type input struct {
	program *program.Program
	targets []program.Fact
	project *project.Project
}

// loadInput reads args as program files, or as a project when the only argument is a directory
// holding a manifest. Targets from the flag come after the manifest's.
func loadInput(args []string, targets []string) (*input, error) {
	if len(args) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "no program files given")
	}

	in := &input{program: &program.Program{}}
	if len(args) == 1 {
		if st, err := os.Stat(args[0]); err == nil && st.IsDir() {
			p, err := project.Load(args[0], project.ReadOnly())
			if err != nil {
				return nil, err
			}
			in.project = p
			in.program = p.Program
			in.targets = append(in.targets, p.Targets...)
		}
	}
	if in.project == nil {
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, errors.Wrapf(err, "read %s", path)
			}
			p, err := datalog.ParseProgram(string(data))
			if err != nil {
				return nil, errors.Wrapf(err, "parse %s", path)
			}
			in.program.Append(p)
		}
	}

	for _, t := range targets {
		ts, err := datalog.ParseTargets(t)
		if err != nil {
			return nil, err
		}
		in.targets = append(in.targets, ts...)
	}
	return in, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(r *service.Report) {
	for _, t := range r.Targets {
		pterm.Printf("%s %s %s\n", pterm.LightGreen(t.Target), pterm.Gray("<-"), t.Formula)
		if t.Outcome != nil {
			pterm.Printf("  %s %s\n", pterm.Gray("→"), t.Outcome.String())
		}
	}
	for _, m := range r.Missing {
		pterm.Printf("%s %s %s\n", pterm.Yellow(m), pterm.Gray("<-"), "false")
	}
	for rel, hint := range r.Suggestions {
		pterm.Warning.Printf("unknown relation %s, did you mean %v?\n", rel, hint)
	}
}
