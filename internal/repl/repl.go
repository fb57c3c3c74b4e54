// Package repl implements reel's interactive read-eval-print loop: a
// readline-backed prompt that compiles and runs one line at a time against
// a persistent VM, the way the teacher's cmd_repl.go drives its
// scanner-over-stdin loop, upgraded to the real line editor the teacher
// already declared as a dependency.
package repl

import (
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"

	"reel/compiler"
	"reel/internal/frontend"
	"reel/internal/natives"
	"reel/vm"
)

const prompt = ">>> "

// Run drives the loop until EOF (ctrl-D) or an interrupt (ctrl-C on an
// empty line). It prints the top-of-stack result of every successful
// evaluation and reports, then recovers from, every compile or runtime
// error without losing previously declared globals.
func Run() error {
	rl, err := readline.New(prompt)
	if err != nil {
		return fmt.Errorf("failed to start line editor: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(os.Stdout, "reel")

	machine := vm.New()
	natives.Register(machine.Globals(), os.Stdout, os.Stdin)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if line == "" {
				return nil
			}
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}

		eval(machine, line)
	}
}

func eval(machine *vm.VM, line string) {
	bc, err := compiler.Compile(line)
	if err != nil {
		fmt.Fprintln(os.Stderr, frontend.FormatCompileError(err, line))
		return
	}

	result, err := machine.Run(bc)
	if err != nil {
		fmt.Fprintln(os.Stderr, frontend.FormatRuntimeError(err))
		machine.ResetToTopLevel()
		return
	}

	fmt.Fprintln(os.Stdout, result.Display())
	machine.ResetToTopLevel()
}
