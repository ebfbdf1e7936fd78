// Package repl is an interactive session: program text typed at the prompt accumulates into a
// program, and colon commands analyse it.
package repl

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/service"
)

// Run reads lines from in until EOF or :quit, writing answers to out.
func Run(ctx context.Context, svc *service.Service, cfg Config, in io.Reader, out io.Writer) error {
	session := NewSession(svc, cfg)

	pterm.Fprintln(out, pterm.LightCyan("symlog interactive mode"), pterm.Gray("(:help for commands)"))
	scanner := bufio.NewScanner(in)
	for {
		pterm.Fprint(out, cfg.Prompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == ":quit" || line == "exit" || line == "quit" {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := session.Exec(ctx, line)
		if err != nil {
			printError(out, err)
			continue
		}
		render(out, res)
	}
	return scanner.Err()
}

func render(out io.Writer, res *Output) {
	if len(res.Table) > 0 {
		table, err := pterm.DefaultTable.WithHasHeader().WithData(res.Table).Srender()
		if err != nil {
			printError(out, err)
			return
		}
		pterm.Fprintln(out, table)
	}
	if res.Text != "" {
		pterm.Fprintln(out, res.Text)
	}
}

func printError(out io.Writer, err error) {
	pterm.Fprintln(out, pterm.Red("error: ")+err.Error())
	for _, h := range errors.GetAllHints(err) {
		pterm.Fprintln(out, pterm.Yellow("hint: ")+h)
	}
}
