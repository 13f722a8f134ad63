package history_test

import (
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/razzshell/razzshell/internal/history"
)

func TestAddSkipsBlankLines(t *testing.T) {
	c := qt.New(t)
	h := history.New()
	h.Add("echo hi")
	h.Add("   ")
	h.Add("")
	h.Add("ls")
	c.Assert(h.Lines(), qt.DeepEquals, []string{"echo hi", "ls"})
}

func TestAtIsOneIndexed(t *testing.T) {
	c := qt.New(t)
	h := history.New()
	h.Add("first")
	h.Add("second")

	line, ok := h.At(1)
	c.Assert(ok, qt.IsTrue)
	c.Assert(line, qt.Equals, "first")

	_, ok = h.At(0)
	c.Assert(ok, qt.IsFalse)
	_, ok = h.At(3)
	c.Assert(ok, qt.IsFalse)
}

func TestClearEmptiesHistory(t *testing.T) {
	c := qt.New(t)
	h := history.New()
	h.Add("a")
	h.Clear()
	c.Assert(h.Lines(), qt.HasLen, 0)
}

// Save then load round-trips the recorded lines through an on-disk
// session file.
func TestSaveLoadRoundTrip(t *testing.T) {
	c := qt.New(t)
	h := history.New()
	h.Add("echo hi")
	h.Add("echo hi")
	h.Add("echo hi")

	path := filepath.Join(t.TempDir(), "session.save")
	c.Assert(history.Save(path, h), qt.IsNil)

	loaded := history.New()
	c.Assert(history.Load(path, loaded), qt.IsNil)
	c.Assert(loaded.Lines(), qt.DeepEquals, h.Lines())
}

// Loading a session file that doesn't exist succeeds silently.
func TestLoadMissingFileIsNotAnError(t *testing.T) {
	c := qt.New(t)
	h := history.New()
	h.Add("stays untouched only if load fails silently without erroring")
	err := history.Load(filepath.Join(t.TempDir(), "nope.save"), history.New())
	c.Assert(err, qt.IsNil)
	_ = h
}

func TestLoadReplacesExistingContents(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(t.TempDir(), "session.save")
	seed := history.New()
	seed.Add("one")
	seed.Add("two")
	c.Assert(history.Save(path, seed), qt.IsNil)

	h := history.New()
	h.Add("stale entry that must be replaced, not appended to")
	c.Assert(history.Load(path, h), qt.IsNil)
	c.Assert(h.Lines(), qt.DeepEquals, []string{"one", "two"})
}
