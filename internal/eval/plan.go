package eval

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultMaxStages is the largest pipeline accepted by default.
const DefaultMaxStages = 10

// Recoverable conditions. The command line is dropped and the interpreter
// keeps going.
var (
	ErrTooManyStages  = errors.New("too many pipeline stages")
	ErrEmptyCommand   = errors.New("missing command")
	ErrMixedOperators = errors.New("more than one special operator")
)

// Recoverable reports whether err only discards the current command line.
func Recoverable(err error) bool {
	return errors.Is(err, ErrTooManyStages) ||
		errors.Is(err, ErrEmptyCommand) ||
		errors.Is(err, ErrMixedOperators)
}

// Stage is one command of a plan with its own argument list.
type Stage struct {
	Argv []string
}

// Plan is the execution plan for one command line. Argument lists are
// fresh copies; the token array it was built from is left untouched.
type Plan struct {
	Shape  Shape
	Stages []Stage
	Redir  *Redirect
}

// Foreground reports whether dispatch waits for the plan to finish.
func (p *Plan) Foreground() bool {
	return p != nil && p.Shape != ShapeBackground
}

// BuildPlan classifies tokens and produces the argument lists for each
// process to be spawned. Pipelines with more than maxStages stages are
// rejected with ErrTooManyStages. maxStages is capped at DefaultMaxStages;
// zero or less means the cap itself.
func BuildPlan(tokens []string, maxStages int) (*Plan, error) {
	if len(tokens) == 0 {
		return nil, ErrEmptyCommand
	}
	maxStages = stageLimit(maxStages)
	matches := shapeMatches(tokens)
	if len(matches) > 1 {
		return nil, fmt.Errorf("%w: %s", ErrMixedOperators, shapeList(matches))
	}
	shape := Classify(tokens)
	plan := &Plan{Shape: shape}
	n := len(tokens)
	switch shape {
	case ShapePipeline:
		bounds := PipeBoundaries(tokens)
		if len(bounds)+1 > maxStages {
			return nil, fmt.Errorf("%w: %d stages, limit is %d", ErrTooManyStages, len(bounds)+1, maxStages)
		}
		start := 0
		for _, end := range append(bounds, n) {
			argv, err := stageArgv(tokens[start:end])
			if err != nil {
				return nil, fmt.Errorf("stage %d: %w", len(plan.Stages)+1, err)
			}
			plan.Stages = append(plan.Stages, Stage{Argv: argv})
			start = end + 1
		}
	case ShapeBackground:
		argv, err := stageArgv(tokens[:n-1])
		if err != nil {
			return nil, err
		}
		plan.Stages = []Stage{{Argv: argv}}
	case ShapeRedirIn, ShapeRedirOut:
		argv, err := stageArgv(tokens[:n-2])
		if err != nil {
			return nil, err
		}
		plan.Stages = []Stage{{Argv: argv}}
		plan.Redir = &Redirect{Op: tokens[n-2], Path: tokens[n-1]}
	default:
		argv, _ := stageArgv(tokens)
		plan.Stages = []Stage{{Argv: argv}}
	}
	return plan, nil
}

func stageLimit(n int) int {
	if n <= 0 || n > DefaultMaxStages {
		return DefaultMaxStages
	}
	return n
}

func stageArgv(toks []string) ([]string, error) {
	if len(toks) == 0 {
		return nil, ErrEmptyCommand
	}
	return append([]string(nil), toks...), nil
}

func shapeList(shapes []Shape) string {
	names := make([]string, 0, len(shapes))
	for _, s := range shapes {
		names = append(names, s.String())
	}
	return strings.Join(names, ", ")
}
