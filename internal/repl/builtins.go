package repl

import (
	"fmt"
	"os"
	"strconv"

	"myshell/internal/eval"
)

// builtin runs in the interpreter process itself; it cannot be a child
// because it changes the interpreter's own state.
type builtin func(s *Session, args []string) eval.Status

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"cd":   builtinCD,
		"exit": builtinExit,
	}
}

func builtinCD(s *Session, args []string) eval.Status {
	var dir string
	if len(args) > 1 {
		dir = args[1]
	} else {
		h, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(s.Stderr, "cd: %v\n", err)
			return eval.Continue
		}
		dir = h
	}
	if err := os.Chdir(dir); err != nil {
		fmt.Fprintf(s.Stderr, "cd: %v\n", err)
	}
	return eval.Continue
}

func builtinExit(s *Session, args []string) eval.Status {
	code := 0
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(s.Stderr, "exit: %s: numeric argument required\n", args[1])
			n = 2
		}
		code = n
	}
	s.exitRequested = true
	s.exitCode = code
	return eval.Stop
}
