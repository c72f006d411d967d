package eval

// Operator tokens recognised on a command line.
const (
	OpPipe       = "|"
	OpBackground = "&"
	OpRedirIn    = "<"
	OpRedirOut   = ">"
)

// Shape is the execution shape of one command line.
type Shape int

const (
	ShapePlain Shape = iota
	ShapeBackground
	ShapeRedirIn
	ShapeRedirOut
	ShapePipeline
)

func (s Shape) String() string {
	switch s {
	case ShapePlain:
		return "plain"
	case ShapeBackground:
		return "background"
	case ShapeRedirIn:
		return "redir-in"
	case ShapeRedirOut:
		return "redir-out"
	case ShapePipeline:
		return "pipeline"
	default:
		return "unknown"
	}
}

// Classify returns the execution shape of tokens. Rules are checked in
// precedence order: pipeline, background, input redirection, output
// redirection, plain. tokens is not modified.
func Classify(tokens []string) Shape {
	matches := shapeMatches(tokens)
	if len(matches) == 0 {
		return ShapePlain
	}
	return matches[0]
}

// shapeMatches lists every shape rule that tokens satisfies, highest
// precedence first.
func shapeMatches(tokens []string) []Shape {
	var out []Shape
	n := len(tokens)
	for _, tok := range tokens {
		if tok == OpPipe {
			out = append(out, ShapePipeline)
			break
		}
	}
	if n > 0 && tokens[n-1] == OpBackground {
		out = append(out, ShapeBackground)
	}
	if n >= 2 && tokens[n-2] == OpRedirIn {
		out = append(out, ShapeRedirIn)
	}
	if n >= 2 && tokens[n-2] == OpRedirOut {
		out = append(out, ShapeRedirOut)
	}
	return out
}

// PipeBoundaries returns the indices of the pipe operators in tokens.
func PipeBoundaries(tokens []string) []int {
	var idx []int
	for i, tok := range tokens {
		if tok == OpPipe {
			idx = append(idx, i)
		}
	}
	return idx
}
