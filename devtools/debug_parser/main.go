package main

import (
	"fmt"
	"log"
	"os"

	"github.com/duynguyendang/symlog/pkg/datalog"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <program-file>", os.Args[0])
	}
	content, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to read file: %v", err)
	}

	prog, err := datalog.ParseProgram(string(content))
	if err != nil {
		log.Fatalf("Failed to parse program: %v", err)
	}

	fmt.Printf("Parsed %d rules and %d facts from %s\n", len(prog.Rules), len(prog.Facts), os.Args[1])
	for i, r := range prog.Rules {
		fmt.Printf("rule %d: %s\n", i, r)
		for _, v := range r.Variables() {
			fmt.Printf("  var %s\n", v.Display())
		}
	}
	for _, f := range prog.Facts {
		fmt.Printf("fact: %s\n", f)
		fmt.Printf("  Signed: %v, Concrete: %v\n", f.SymbolicSign, f.Head.IsConcrete())
		for _, s := range f.Head.Symbolics() {
			fmt.Printf("  symbolic %s\n", s)
		}
		fmt.Printf("  Key: %x\n", string(f.Key()))
	}
	fmt.Printf("Relations: %v\n", prog.Relations())
}
