package repl

import (
	"context"
	"sort"
	"strings"
)

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, s *Session, arg string) (*Output, error)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"types": {
			usage: ":types",
			help:  "infer the argument types of every relation",
			run:   func(_ context.Context, s *Session, _ string) (*Output, error) { return s.types() },
		},
		"symex": {
			usage: ":symex <targets>",
			help:  "show the condition under which each target is derived",
			run: func(ctx context.Context, s *Session, arg string) (*Output, error) {
				return s.symex(ctx, arg, false)
			},
		},
		"solve": {
			usage: ":solve [targets]",
			help:  "solve the target conditions (defaults to the last targets)",
			run: func(ctx context.Context, s *Session, arg string) (*Output, error) {
				return s.symex(ctx, arg, true)
			},
		},
		"list": {
			usage: ":list",
			help:  "print the program",
			run: func(_ context.Context, s *Session, _ string) (*Output, error) {
				return &Output{Text: strings.TrimRight(s.program.String(), "\n")}, nil
			},
		},
		"load": {
			usage: ":load <file>",
			help:  "add the rules and facts of a file",
			run:   func(_ context.Context, s *Session, arg string) (*Output, error) { return s.load(arg) },
		},
		"reset": {
			usage: ":reset",
			help:  "clear the program",
			run:   func(_ context.Context, s *Session, _ string) (*Output, error) { return s.reset(), nil },
		},
		"help": {
			usage: ":help",
			help:  "show this help",
			run:   func(context.Context, *Session, string) (*Output, error) { return &Output{Text: helpText()}, nil },
		},
	}
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func helpText() string {
	var sb strings.Builder
	sb.WriteString("Enter rules and facts, e.g. t(X, Z) :- r(X, Y), s(Y, Z).  or  ?r($alpha, \"b\").\n")
	for _, n := range commandNames() {
		c := commands[n]
		sb.WriteString("  " + c.usage + strings.Repeat(" ", max(1, 20-len(c.usage))) + c.help + "\n")
	}
	sb.WriteString("  :quit               leave")
	return sb.String()
}
