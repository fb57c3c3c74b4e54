// Command reel is the CLI entry point: a file runs if given as the single
// positional argument, otherwise the REPL starts. Grounded in the
// teacher's cmd_run.go / cmd_emit_bytecode.go, collapsed from subcommand
// dispatch into flags since the base contract takes no flags for the
// common path.
package main

import (
	"flag"
	"fmt"
	"os"

	"reel/compiler"
	"reel/internal/frontend"
	"reel/internal/loader"
	"reel/internal/natives"
	"reel/internal/repl"
	"reel/vm"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("reel", flag.ContinueOnError)
	dump := fs.Bool("dump", false, "print a disassembly listing before running")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	positional := fs.Args()
	if len(positional) == 0 {
		if err := repl.Run(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	return runFile(positional[0], *dump)
}

func runFile(path string, dump bool) int {
	source, err := loader.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	bc, err := compiler.Compile(source)
	if err != nil {
		fmt.Fprintln(os.Stderr, frontend.FormatCompileError(err, source))
		return 1
	}

	if dump {
		fmt.Fprint(os.Stdout, bc.Disassemble())
	}

	machine := vm.New()
	natives.Register(machine.Globals(), os.Stdout, os.Stdin)

	if _, err := machine.Run(bc); err != nil {
		fmt.Fprintln(os.Stderr, frontend.FormatRuntimeError(err))
		return 1
	}
	return 0
}
