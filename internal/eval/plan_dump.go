package eval

import (
	"fmt"
	"strings"
)

// DumpPlan returns a readable representation of an execution plan.
func DumpPlan(p *Plan) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "- %s\n", planLine(p))
	for i, st := range p.Stages {
		if i > 0 {
			b.WriteString("  PIPE->\n")
		}
		fmt.Fprintf(&b, "    argv=%s\n", strings.Join(st.Argv, " "))
	}
	return b.String()
}

func planLine(p *Plan) string {
	parts := []string{p.Shape.String()}
	if len(p.Stages) > 1 {
		parts = append(parts, fmt.Sprintf("stages=%d", len(p.Stages)))
	}
	if !p.Foreground() {
		parts = append(parts, "bg")
	}
	if p.Redir != nil {
		parts = append(parts, "redir="+p.Redir.String())
	}
	return strings.Join(parts, " ")
}
