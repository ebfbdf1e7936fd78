package repl

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/datalog"
	"github.com/duynguyendang/symlog/pkg/program"
	"github.com/duynguyendang/symlog/pkg/service"
)

// Output is the result of one input line. Table is set for tabular answers.
type Output struct {
	Text  string
	Table pterm.TableData
}

// Session accumulates a program across input lines and answers commands about it.
type Session struct {
	svc     *service.Service
	cfg     Config
	program *program.Program
	// targets of the last :symex, reused by a bare :solve.
	targets []program.Fact
}

// NewSession creates an empty session.
func NewSession(svc *service.Service, cfg Config) *Session {
	return &Session{svc: svc, cfg: cfg, program: &program.Program{}}
}

// Program returns the accumulated program.
func (s *Session) Program() *program.Program { return s.program }

// Exec runs one input line: a command starting with ":" or program text to add.
func (s *Session) Exec(ctx context.Context, line string) (*Output, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return &Output{}, nil
	}
	if !strings.HasPrefix(line, ":") {
		return s.add(line)
	}

	name, arg, _ := strings.Cut(line[1:], " ")
	cmd, ok := commands[name]
	if !ok {
		err := errors.Wrapf(errors.ErrInvalidInput, "unknown command :%s", name)
		if hint := service.SuggestRelations(name, commandNames(), 1); len(hint) > 0 {
			err = errors.WithHintf(err, "did you mean :%s?", hint[0])
		}
		return nil, err
	}
	return cmd.run(ctx, s, strings.TrimSpace(arg))
}

func (s *Session) add(src string) (*Output, error) {
	p, err := datalog.ParseProgram(src)
	if err != nil {
		return nil, err
	}
	s.program.Append(p)
	return &Output{Text: "added " + plural(len(p.Rules), "rule") + ", " + plural(len(p.Facts), "fact")}, nil
}

func (s *Session) load(path string) (*Output, error) {
	if path == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "usage: :load <file>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return s.add(string(data))
}

func (s *Session) types() (*Output, error) {
	r, err := s.svc.Types(s.program, "")
	if err != nil {
		return nil, err
	}
	table := pterm.TableData{{"relation", "signature"}}
	for _, rel := range r.Declarations.Relations() {
		types := make([]string, len(r.Declarations[rel]))
		for i, t := range r.Declarations[rel] {
			types[i] = t.String()
		}
		table = append(table, []string{rel, "(" + strings.Join(types, ", ") + ")"})
	}
	return &Output{Table: table}, nil
}

func (s *Session) symex(ctx context.Context, arg string, solve bool) (*Output, error) {
	targets := s.targets
	if arg != "" {
		var err error
		if targets, err = datalog.ParseTargets(arg); err != nil {
			return nil, err
		}
	}
	if len(targets) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "no targets given")
	}
	s.targets = targets

	report, err := s.svc.Analyze(ctx, service.Request{
		Program: s.program,
		Targets: targets,
		Solve:   solve || s.cfg.Solve,
	})
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, t := range report.Targets {
		sb.WriteString(t.Target + " <- " + t.Formula + "\n")
		if t.Outcome != nil {
			sb.WriteString("  " + t.Outcome.String() + "\n")
		}
	}
	for _, m := range report.Missing {
		sb.WriteString(m + " <- false\n")
	}
	for rel, hint := range report.Suggestions {
		sb.WriteString("unknown relation " + rel + ", did you mean " + strings.Join(hint, ", ") + "?\n")
	}
	return &Output{Text: strings.TrimRight(sb.String(), "\n")}, nil
}

func (s *Session) reset() *Output {
	s.program = &program.Program{}
	s.targets = nil
	return &Output{Text: "program cleared"}
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
