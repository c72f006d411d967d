package eval

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// Job tracks a background process until it has been reaped.
type Job struct {
	ID    int
	Pid   int
	Cmd   string
	State string
	Exit  int
}

// Reaper collects the exit status of background processes so they do not
// remain in the process table. Only adopted pids are waited for; foreground
// and pipeline children are waited for by the code that spawned them.
type Reaper struct {
	// OnDone, if set, is called for every job reaped by Sweep.
	OnDone func(*Job)

	mu        sync.Mutex
	jobs      map[int]*Job
	nextJobID int
}

// NewReaper returns an empty Reaper.
func NewReaper() *Reaper {
	return &Reaper{jobs: make(map[int]*Job)}
}

// Adopt starts tracking pid.
func (r *Reaper) Adopt(pid int, cmd string) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.jobs == nil {
		r.jobs = make(map[int]*Job)
	}
	r.nextJobID++
	job := &Job{
		ID:    r.nextJobID,
		Pid:   pid,
		Cmd:   cmd,
		State: "running",
	}
	r.jobs[pid] = job
	return job
}

// Sweep reaps every adopted process that has already terminated without
// blocking, and returns how many were reaped.
func (r *Reaper) Sweep() int {
	r.mu.Lock()
	var done []*Job
	for pid, job := range r.jobs {
		var ws unix.WaitStatus
		got, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)
		switch {
		case err != nil && errors.Is(err, unix.ECHILD):
			job.State = "gone"
		case err != nil:
			continue
		case got == 0:
			continue
		default:
			job.State = "done"
			job.Exit = exitCode(ws)
		}
		delete(r.jobs, pid)
		done = append(done, job)
	}
	onDone := r.OnDone
	r.mu.Unlock()

	sort.Slice(done, func(i, j int) bool { return done[i].ID < done[j].ID })
	if onDone != nil {
		for _, job := range done {
			onDone(job)
		}
	}
	return len(done)
}

// Pending returns the jobs not yet reaped, oldest first.
func (r *Reaper) Pending() []*Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].ID < jobs[j].ID
	})
	return jobs
}

func exitCode(ws unix.WaitStatus) int {
	switch {
	case ws.Exited():
		return ws.ExitStatus()
	case ws.Signaled():
		return 128 + int(ws.Signal())
	default:
		return -1
	}
}

func formatJob(job *Job) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(strconv.Itoa(job.ID))
	b.WriteString("] ")
	b.WriteString(job.State)
	b.WriteString(" ")
	b.WriteString(strconv.Itoa(job.Pid))
	b.WriteString(" ")
	b.WriteString(job.Cmd)
	return b.String()
}
