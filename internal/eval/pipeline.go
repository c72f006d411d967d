package eval

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// pipeEnds is one link between adjacent stages. A value of -1 means the
// end is not open in this process.
type pipeEnds struct {
	r, w int
}

var noPipe = pipeEnds{r: -1, w: -1}

// newPipe creates a close-on-exec pipe. Children only ever see the ends
// installed as their stdin or stdout.
func newPipe() (pipeEnds, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return noPipe, err
	}
	return pipeEnds{r: fds[0], w: fds[1]}, nil
}

func closeFD(fd *int) {
	if *fd < 0 {
		return
	}
	_ = unix.Close(*fd)
	*fd = -1
}

// runPipeline spawns one process per stage, left to right, connecting
// stage i's stdout to stage i+1's stdin, then waits for all of them.
//
// The engine never moves pipeline bytes itself. After each spawn it closes
// the read end the new stage inherited and the write end the new stage
// owns, so every pipe has exactly one writer and one reader left and EOF
// propagates once the writer exits.
func (e *Engine) runPipeline(stages []Stage) error {
	base := e.streams()
	pids := make([]int, 0, len(stages))
	prevRead := -1

	for i, st := range stages {
		last := i == len(stages)-1
		next := noPipe
		if !last {
			var err error
			next, err = newPipe()
			if err != nil {
				closeFD(&prevRead)
				return e.abortPipeline(pids, fmt.Errorf("pipe: %w", err))
			}
		}

		streams := base
		if i > 0 {
			streams.Stdin = uintptr(prevRead)
		}
		if !last {
			streams.Stdout = uintptr(next.w)
		}
		pid, err := e.spawn(st.Argv, streams, true)

		closeFD(&prevRead)
		closeFD(&next.w)
		prevRead = next.r

		if err != nil {
			var se *StepError
			if errors.As(err, &se) {
				// The stage never ran: its neighbours see EOF or EPIPE.
				e.report(fmt.Errorf("stage %d: %w", i+1, se))
				continue
			}
			closeFD(&prevRead)
			return e.abortPipeline(pids, fmt.Errorf("stage %d: %w", i+1, err))
		}
		pids = append(pids, pid)
	}
	return waitAll(pids)
}

// abortPipeline collects the stages already started so they do not linger
// as zombies, then returns cause.
func (e *Engine) abortPipeline(pids []int, cause error) error {
	if err := waitAll(pids); err != nil {
		return fmt.Errorf("%w (while aborting: %v)", cause, err)
	}
	return cause
}

// waitAll waits for every pid, returning the first unrecoverable wait
// error.
func waitAll(pids []int) error {
	var first error
	for _, pid := range pids {
		if err := waitPID(pid); err != nil && first == nil {
			first = err
		}
	}
	return first
}
