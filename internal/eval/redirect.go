package eval

import (
	"fmt"
	"os"
)

// Streams holds the descriptors installed as fd 0, 1 and 2 of a child.
type Streams struct {
	Stdin  uintptr
	Stdout uintptr
	Stderr uintptr
}

func (s Streams) files() []uintptr {
	return []uintptr{s.Stdin, s.Stdout, s.Stderr}
}

// Preparation adjusts a child's streams before its program starts. The
// returned func releases whatever Prepare acquired and is called once the
// child has been spawned.
type Preparation interface {
	Prepare(s *Streams) (func(), error)
}

// Redirect binds a file to the standard input or output of a command.
type Redirect struct {
	Op   string
	Path string
}

// Prepare opens the target file and installs it in s. The engine's handle
// is closed by the returned func; the child keeps its own copy.
func (r *Redirect) Prepare(s *Streams) (func(), error) {
	var (
		f   *os.File
		err error
	)
	switch r.Op {
	case OpRedirIn:
		f, err = os.Open(r.Path)
	case OpRedirOut:
		f, err = os.OpenFile(r.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	default:
		return nil, fmt.Errorf("unknown redirection %q", r.Op)
	}
	if err != nil {
		return nil, err
	}
	if r.Op == OpRedirIn {
		s.Stdin = f.Fd()
	} else {
		s.Stdout = f.Fd()
	}
	return func() { _ = f.Close() }, nil
}

func (r *Redirect) String() string {
	return r.Op + " " + r.Path
}
