// Package repl reads command lines, splits them into tokens and hands them
// to the execution engine.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/anmitsu/go-shlex"
	"github.com/peterh/liner"

	"myshell/internal/eval"
)

// Session drives an Engine with lines read from a script or a terminal.
type Session struct {
	Engine *eval.Engine
	Prompt string
	// PrintPlan writes each plan to Stderr before it runs.
	PrintPlan bool
	// NoExec builds plans without running them.
	NoExec bool
	Stderr io.Writer

	exitRequested bool
	exitCode      int
}

// Exited reports whether the exit builtin ended the session.
func (s *Session) Exited() bool {
	return s.exitRequested
}

// ExitCode returns the code requested by the exit builtin.
func (s *Session) ExitCode() int {
	return s.exitCode
}

// Tokenize splits a command line the way a POSIX shell splits words.
// Operators must be separate words.
func Tokenize(line string) ([]string, error) {
	return shlex.Split(line, true)
}

// Eval runs one command line and reports whether another should be read.
func (s *Session) Eval(line string) eval.Status {
	if s.Stderr == nil {
		s.Stderr = os.Stderr
	}
	if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
		return eval.Continue
	}
	tokens, err := Tokenize(line)
	if err != nil {
		fmt.Fprintf(s.Stderr, "myshell: %v\n", err)
		return eval.Continue
	}
	if len(tokens) == 0 {
		return eval.Continue
	}
	if b, ok := builtins[tokens[0]]; ok {
		if shape := eval.Classify(tokens); shape != eval.ShapePlain {
			fmt.Fprintf(s.Stderr, "myshell: %s: builtin cannot run as %s\n", tokens[0], shape)
			return eval.Continue
		}
		return b(s, tokens)
	}
	if s.PrintPlan || s.NoExec {
		plan, err := eval.BuildPlan(tokens, s.Engine.MaxStages)
		if err != nil {
			fmt.Fprintf(s.Stderr, "myshell: %v\n", err)
			return eval.Continue
		}
		if s.PrintPlan {
			fmt.Fprint(s.Stderr, eval.DumpPlan(plan))
		}
		if s.NoExec {
			return eval.Continue
		}
	}
	return s.Engine.Dispatch(tokens)
}

// RunScript evaluates every line of rd until EOF or a Stop.
func (s *Session) RunScript(rd io.Reader) error {
	sc := bufio.NewScanner(rd)
	for sc.Scan() {
		if s.Eval(sc.Text()) == eval.Stop {
			if s.exitRequested {
				return nil
			}
			return fmt.Errorf("engine stopped")
		}
	}
	return sc.Err()
}

// RunInteractive prompts for lines on the terminal until EOF, exit or a
// Stop. History is loaded from and saved to historyPath when it is set.
func (s *Session) RunInteractive(historyPath string) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}

	var runErr error
	for {
		input, err := line.Prompt(s.Prompt)
		if err == liner.ErrPromptAborted {
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			runErr = err
			break
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)
		if s.Eval(input) == eval.Stop {
			if !s.exitRequested {
				runErr = fmt.Errorf("engine stopped")
			}
			break
		}
	}

	if historyPath != "" {
		if f, err := os.Create(historyPath); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}
	return runErr
}
