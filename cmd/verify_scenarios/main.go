// Command verify_scenarios runs the reference join scenarios end to end through the service and
// reports any formula that differs from the expected one.
package main

import (
	"context"
	"os"

	"github.com/pterm/pterm"

	"github.com/duynguyendang/symlog/pkg/datalog"
	"github.com/duynguyendang/symlog/pkg/logger"
	"github.com/duynguyendang/symlog/pkg/service"
)

const joinRule = `t(X, Z) :- r(X, Y), s(Y, Z).`

type scenario struct {
	name    string
	facts   string
	targets string
	// want maps each derivable target to its formula; targets not listed must be omitted.
	want map[string]string
}

var scenarios = []scenario{
	{
		name:    "signed fact on the only path",
		facts:   `?r("a", "b"). r("b", "c"). s("b", "c"). ?s("c", "d").`,
		targets: `t("a", "c")`,
		want:    map[string]string{`t("a", "c").`: `r("a", "b")`},
	},
	{
		name:    "symbolic constant without a join partner",
		facts:   `r($alpha, "b"). r("b", "c"). s("b", "c"). ?s("c", "d").`,
		targets: `t("b", "d")`,
		want:    map[string]string{`t("b", "d").`: `s("c", "d")`},
	},
	{
		name:    "symbolic constant and sign on one fact",
		facts:   `?r($alpha, "b"). r("b", "c"). s("b", "c"). ?s("c", "d").`,
		targets: `t("a", "c")`,
		want:    map[string]string{`t("a", "c").`: `$alpha = "a" & r("a", "b")`},
	},
	{
		name:    "concrete base",
		facts:   `r("a", "b"). r("b", "c"). s("b", "c"). s("c", "d").`,
		targets: `t("a", "c"). t("e", "c")`,
		want:    map[string]string{`t("a", "c").`: `true`},
	},
}

func main() {
	if err := logger.Initialize("warn", false); err != nil {
		pterm.Fatal.Println(err)
	}
	defer logger.Cleanup()

	svc, err := service.New(nil, service.WithSolveByDefault(true))
	if err != nil {
		pterm.Fatal.Println(err)
	}

	failed := 0
	for _, sc := range scenarios {
		if err := run(svc, sc); err != nil {
			pterm.Error.Printfln("%s: %v", sc.name, err)
			failed++
			continue
		}
		pterm.Success.Println(sc.name)
	}
	if failed > 0 {
		pterm.Error.Printfln("%d of %d scenarios failed", failed, len(scenarios))
		os.Exit(1)
	}
}

func run(svc *service.Service, sc scenario) error {
	prog, err := datalog.ParseProgram(joinRule + "\n" + sc.facts)
	if err != nil {
		return err
	}
	targets, err := datalog.ParseTargets(sc.targets)
	if err != nil {
		return err
	}
	r, err := svc.Analyze(context.Background(), service.Request{Program: prog, Targets: targets})
	if err != nil {
		return err
	}

	got := make(map[string]string, len(r.Targets))
	for _, t := range r.Targets {
		got[t.Target] = t.Formula
		pterm.Printfln("  %s <- %s  [%s]", t.Target, t.Formula, t.Outcome)
	}
	for target, want := range sc.want {
		if got[target] != want {
			return &mismatch{target: target, want: want, got: got[target]}
		}
	}
	if len(got) != len(sc.want) {
		return &mismatch{target: "result", want: pterm.Sprint(len(sc.want), " targets"), got: pterm.Sprint(len(got), " targets")}
	}
	return nil
}

type mismatch struct {
	target, want, got string
}

func (m *mismatch) Error() string {
	return m.target + ": want " + m.want + ", got " + m.got
}
