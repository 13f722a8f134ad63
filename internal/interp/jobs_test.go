package interp_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/razzshell/razzshell/internal/interp"
)

func TestJobTableAddAssignsMonotonicIDs(t *testing.T) {
	c := qt.New(t)
	jt := interp.NewJobTable()
	j1 := jt.Add(100, "sleep 1", true)
	j2 := jt.Add(200, "sleep 2", true)
	c.Assert(j1.ID, qt.Equals, 1)
	c.Assert(j2.ID, qt.Equals, 2)
	c.Assert(j1.State, qt.Equals, interp.JobRunning)
}

func TestJobTableRemoveFreesIDForReuse(t *testing.T) {
	c := qt.New(t)
	jt := interp.NewJobTable()
	j1 := jt.Add(100, "a", true)
	jt.Remove(j1.ID)

	_, ok := jt.Get(j1.ID)
	c.Assert(ok, qt.IsFalse)

	j2 := jt.Add(200, "b", true)
	c.Assert(j2.ID, qt.Equals, j1.ID, qt.Commentf("freed IDs must be reused"))
}

func TestJobTableFinishRecordsStatusAndReaps(t *testing.T) {
	c := qt.New(t)
	jt := interp.NewJobTable()
	j := jt.Add(100, "false", false)
	jt.Finish(j.ID, 1)

	_, ok := jt.Get(j.ID)
	c.Assert(ok, qt.IsFalse, qt.Commentf("Finish removes the job from the live table"))

	select {
	case <-jt.WaitDone(j.ID):
	default:
		t.Fatal("WaitDone channel should already be closed after Finish")
	}
}

func TestJobTableWaitDoneOnUnknownIDIsImmediatelyClosed(t *testing.T) {
	c := qt.New(t)
	jt := interp.NewJobTable()
	select {
	case <-jt.WaitDone(999):
	default:
		t.Fatal("WaitDone on an unknown id must return an already-closed channel")
	}
	_ = c
}

func TestJobTableByPGIDFindsTheRightJob(t *testing.T) {
	c := qt.New(t)
	jt := interp.NewJobTable()
	jt.Add(100, "a", true)
	want := jt.Add(200, "b", true)

	got, ok := jt.ByPGID(200)
	c.Assert(ok, qt.IsTrue)
	c.Assert(got.ID, qt.Equals, want.ID)

	_, ok = jt.ByPGID(999)
	c.Assert(ok, qt.IsFalse)
}

func TestJobTableListIsOrderedByID(t *testing.T) {
	c := qt.New(t)
	jt := interp.NewJobTable()
	jt.Add(300, "c", true)
	jt.Add(100, "a", true)
	jt.Add(200, "b", true)

	list := jt.List()
	c.Assert(list, qt.HasLen, 3)
	c.Assert(list[0].ID, qt.Equals, 1)
	c.Assert(list[1].ID, qt.Equals, 2)
	c.Assert(list[2].ID, qt.Equals, 3)
}

func TestJobTableSetStateTransitionsRunningToStopped(t *testing.T) {
	c := qt.New(t)
	jt := interp.NewJobTable()
	j := jt.Add(100, "a", true)
	jt.SetState(j.ID, interp.JobStopped)

	got, ok := jt.Get(j.ID)
	c.Assert(ok, qt.IsTrue)
	c.Assert(got.State, qt.Equals, interp.JobStopped)
}

// SetStopped records the 128+stopsig status alongside the Stopped
// state, and the job stays in the table for a later fg/bg.
func TestJobTableSetStoppedRecordsStatusAndKeepsJob(t *testing.T) {
	c := qt.New(t)
	jt := interp.NewJobTable()
	j := jt.Add(100, "sleep 100", false)
	jt.SetStopped(j.ID, 148)

	got, ok := jt.Get(j.ID)
	c.Assert(ok, qt.IsTrue)
	c.Assert(got.State, qt.Equals, interp.JobStopped)
	c.Assert(got.ExitStatus, qt.Equals, 148)
}

// WaitNotRunning unblocks on both of the Running-exiting edges: a stop
// and a reap.
func TestWaitNotRunningUnblocksOnStopAndOnFinish(t *testing.T) {
	c := qt.New(t)
	jt := interp.NewJobTable()

	j := jt.Add(100, "a", false)
	go jt.SetStopped(j.ID, 148)
	state, status := jt.WaitNotRunning(j)
	c.Assert(state, qt.Equals, interp.JobStopped)
	c.Assert(status, qt.Equals, 148)

	jt.SetState(j.ID, interp.JobRunning)
	go jt.Finish(j.ID, 7)
	state, status = jt.WaitNotRunning(j)
	c.Assert(state, qt.Equals, interp.JobReaped)
	c.Assert(status, qt.Equals, 7)
}

// Finishing a background job queues a one-shot notice for the next
// prompt; foreground jobs stay silent.
func TestFinishQueuesNoticeForBackgroundJobsOnly(t *testing.T) {
	c := qt.New(t)
	jt := interp.NewJobTable()

	fgJob := jt.Add(100, "fast", false)
	jt.Finish(fgJob.ID, 0)
	c.Assert(jt.DrainNotices(), qt.HasLen, 0)

	bgJob := jt.Add(200, "sleep 2", true)
	jt.Finish(bgJob.ID, 0)
	notes := jt.DrainNotices()
	c.Assert(notes, qt.HasLen, 1)
	c.Assert(notes[0], qt.Contains, "Done")
	c.Assert(notes[0], qt.Contains, "sleep 2")
	c.Assert(jt.DrainNotices(), qt.HasLen, 0, qt.Commentf("notices drain once"))

	failed := jt.Add(300, "false", true)
	jt.Finish(failed.ID, 1)
	notes = jt.DrainNotices()
	c.Assert(notes, qt.HasLen, 1)
	c.Assert(notes[0], qt.Contains, "Exit 1")
}
