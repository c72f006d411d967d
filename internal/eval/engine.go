package eval

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Status tells the caller whether to read another command line.
type Status int

const (
	Stop Status = iota
	Continue
)

func (s Status) String() string {
	if s == Continue {
		return "continue"
	}
	return "stop"
}

var errNotPrepared = errors.New("engine used before Prepare")

// Engine runs tokenized command lines as OS processes.
//
// The zero value is usable once Prepare has been called: nil streams
// default to the process's own stdio and a nil Sig to a SignalManager.
type Engine struct {
	Stdin       *os.File
	Stdout      *os.File
	Stderr      *os.File
	Sig         Dispositions
	MaxStages   int
	Trace       bool
	TraceWriter io.Writer
	// Color enables coloured diagnostics on Stderr.
	Color bool

	mu       sync.Mutex
	prepared bool
	errColor *color.Color
}

// Prepare installs the signal dispositions. It must succeed before
// Dispatch is called.
func (e *Engine) Prepare() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.prepared {
		return nil
	}
	if e.Stdin == nil {
		e.Stdin = os.Stdin
	}
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	if e.Stderr == nil {
		e.Stderr = os.Stderr
	}
	e.MaxStages = stageLimit(e.MaxStages)
	if e.Trace && e.TraceWriter == nil {
		e.TraceWriter = e.Stderr
	}
	if e.Sig == nil {
		e.Sig = NewSignalManager()
	}
	if sm, ok := e.Sig.(*SignalManager); ok && e.Trace {
		r := sm.reaper()
		if r.OnDone == nil {
			r.OnDone = func(job *Job) { e.tracef("%s\n", formatJob(job)) }
		}
	}
	e.errColor = color.New(color.FgRed)
	if e.Color {
		e.errColor.EnableColor()
	} else {
		e.errColor.DisableColor()
	}
	if err := e.Sig.Install(); err != nil {
		return fmt.Errorf("install signal dispositions: %w", err)
	}
	e.prepared = true
	return nil
}

// Finalize restores the signal dispositions. Failures are ignored.
func (e *Engine) Finalize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.prepared {
		return nil
	}
	e.Sig.Restore()
	e.prepared = false
	return nil
}

// Dispatch classifies tokens and runs them. It returns Stop only when the
// engine itself failed; failures of the command being run, and command
// lines that are rejected before anything is spawned, return Continue.
func (e *Engine) Dispatch(tokens []string) Status {
	e.mu.Lock()
	ok := e.prepared
	e.mu.Unlock()
	if !ok {
		e.report(errNotPrepared)
		return Stop
	}
	plan, err := BuildPlan(tokens, e.MaxStages)
	if err != nil {
		e.report(err)
		if Recoverable(err) {
			return Continue
		}
		return Stop
	}
	if err := e.Run(plan); err != nil {
		e.report(err)
		return Stop
	}
	return Continue
}

// Run executes a plan built by BuildPlan. The returned error is always
// engine-fatal; command-local failures are reported on Stderr.
func (e *Engine) Run(p *Plan) error {
	e.mu.Lock()
	ok := e.prepared
	e.mu.Unlock()
	if !ok {
		return errNotPrepared
	}
	if p == nil || len(p.Stages) == 0 {
		return nil
	}
	argv := p.Stages[0].Argv
	switch p.Shape {
	case ShapePipeline:
		return e.runPipeline(p.Stages)
	case ShapeBackground:
		return e.launch(argv, false, nil)
	case ShapeRedirIn, ShapeRedirOut:
		if p.Redir == nil {
			return e.launch(argv, true, nil)
		}
		return e.launch(argv, true, p.Redir)
	default:
		return e.launch(argv, true, nil)
	}
}

func (e *Engine) report(err error) {
	var w io.Writer = e.Stderr
	if e.Stderr == nil {
		w = os.Stderr
	}
	if e.errColor == nil {
		fmt.Fprintf(w, "myshell: %v\n", err)
		return
	}
	e.errColor.Fprintf(w, "myshell: %v\n", err)
}

func (e *Engine) tracef(format string, args ...any) {
	if !e.Trace || e.TraceWriter == nil {
		return
	}
	fmt.Fprintf(e.TraceWriter, format, args...)
}
