package interp

import (
	"fmt"
	"sync"
)

// JobState tracks where a job sits in its lifecycle.
type JobState int

const (
	JobRunning JobState = iota
	JobStopped
	JobReaped
)

func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "Running"
	case JobStopped:
		return "Stopped"
	case JobReaped:
		return "Reaped"
	}
	return "?"
}

// Job is one job-table entry: a process-group leader pid, the
// command text it was spawned from, and whether it was launched in
// the background.
type Job struct {
	ID          int
	PGID        int
	CommandText string
	Background  bool
	State       JobState
	ExitStatus  int // last wait status: exit code once Reaped, 128+stopsig while Stopped

	// done is closed when the job transitions to Reaped.
	done chan struct{}
}

// JobTable tracks foreground and background jobs. IDs are small
// positive integers assigned monotonically and reused once a slot
// frees.
type JobTable struct {
	mu     sync.Mutex
	cond   *sync.Cond
	jobs   map[int]*Job
	nextID int
	freed  []int

	// notices queues human-readable completion lines for background
	// jobs, drained by the REPL before each prompt so a finished job
	// is reported once and then gone from `jobs`.
	notices []string
}

// NewJobTable returns an empty job table.
func NewJobTable() *JobTable {
	t := &JobTable{jobs: make(map[int]*Job), nextID: 1}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Add registers a new job and returns its assigned ID.
func (t *JobTable) Add(pgid int, cmdText string, background bool) *Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	var id int
	if n := len(t.freed); n > 0 {
		id = t.freed[n-1]
		t.freed = t.freed[:n-1]
	} else {
		id = t.nextID
		t.nextID++
	}

	j := &Job{ID: id, PGID: pgid, CommandText: cmdText, Background: background, State: JobRunning, done: make(chan struct{})}
	t.jobs[id] = j
	return j
}

// Remove transitions a job to Reaped and frees its ID slot for reuse,
// unblocking anyone waiting on WaitDone.
func (t *JobTable) Remove(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[id]
	if !ok {
		return
	}
	j.State = JobReaped
	delete(t.jobs, id)
	t.freed = append(t.freed, id)
	t.cond.Broadcast()
	close(j.done)
}

// Finish records status, transitions the job to Reaped, and removes
// it in one step -- the combination every call site that reaps a job
// performs. A background job's completion is queued as a notice for
// the next prompt.
func (t *JobTable) Finish(id, status int) {
	t.mu.Lock()
	j, ok := t.jobs[id]
	if ok {
		j.State = JobReaped
		j.ExitStatus = status
		delete(t.jobs, id)
		t.freed = append(t.freed, id)
		if j.Background {
			what := "Done"
			if status != 0 {
				what = fmt.Sprintf("Exit %d", status)
			}
			t.notices = append(t.notices, fmt.Sprintf("[%d]  %s\t%s", id, what, j.CommandText))
		}
		t.cond.Broadcast()
	}
	t.mu.Unlock()
	if ok {
		close(j.done)
	}
}

// SetStopped records that the job's process group stopped (the
// RUNNING->STOPPED edge, observed by the waiter as WIFSTOPPED), along
// with the 128+stopsig status the suspended foreground wait reports.
func (t *JobTable) SetStopped(id, status int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if j, ok := t.jobs[id]; ok {
		j.State = JobStopped
		j.ExitStatus = status
		t.cond.Broadcast()
	}
}

// WaitNotRunning blocks until j leaves the Running state and returns
// the state it settled in plus its recorded status. It backs every
// foreground wait: an initial spawn, and each `fg` after a resume.
func (t *JobTable) WaitNotRunning(j *Job) (JobState, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for j.State == JobRunning {
		t.cond.Wait()
	}
	return j.State, j.ExitStatus
}

// WaitDone returns a channel closed once job id is reaped. If id is
// already unknown (reaped or never existed), it returns a closed
// channel so callers don't block forever on a stale ID.
func (t *JobTable) WaitDone(id int) <-chan struct{} {
	t.mu.Lock()
	j, ok := t.jobs[id]
	t.mu.Unlock()
	if !ok {
		done := make(chan struct{})
		close(done)
		return done
	}
	return j.done
}

// SetState transitions a job's recorded state without removing it
// (e.g. Stopped -> Running on bg/fg resume).
func (t *JobTable) SetState(id int, s JobState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if j, ok := t.jobs[id]; ok {
		j.State = s
		t.cond.Broadcast()
	}
}

// Get returns the job registered under id.
func (t *JobTable) Get(id int) (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[id]
	return j, ok
}

// ByPGID finds the job whose process group leader pid is pgid.
func (t *JobTable) ByPGID(pgid int) (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, j := range t.jobs {
		if j.PGID == pgid {
			return j, true
		}
	}
	return nil, false
}

// List returns a snapshot of all current jobs ordered by ID, for the
// `jobs` built-in.
func (t *JobTable) List() []*Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Job, 0, len(t.jobs))
	for _, j := range t.jobs {
		out = append(out, j)
	}
	// simple insertion sort by ID; job tables stay small
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].ID > out[j].ID; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// DrainNotices returns and clears the queued background-completion
// lines.
func (t *JobTable) DrainNotices() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.notices
	t.notices = nil
	return n
}
