package shellopts_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/razzshell/razzshell/internal/shellopts"
)

func TestNewDefaultsEverythingOff(t *testing.T) {
	c := qt.New(t)
	o := shellopts.New()
	c.Assert(o.Mode, qt.Equals, shellopts.Native)
	c.Assert(o.ErrExit, qt.IsFalse)
	c.Assert(o.PipeFail, qt.IsFalse)
	c.Assert(o.NoUnset, qt.IsFalse)
	c.Assert(o.Verbose, qt.IsFalse)
	c.Assert(o.XTrace, qt.IsFalse)
}

func TestApplyTogglesFlagsOnAndOff(t *testing.T) {
	c := qt.New(t)
	o := shellopts.New()

	c.Assert(o.Apply([]string{"-e", "-u", "-x"}), qt.IsNil)
	c.Assert(o.ErrExit, qt.IsTrue)
	c.Assert(o.NoUnset, qt.IsTrue)
	c.Assert(o.XTrace, qt.IsTrue)

	c.Assert(o.Apply([]string{"+e"}), qt.IsNil)
	c.Assert(o.ErrExit, qt.IsFalse)
	c.Assert(o.NoUnset, qt.IsTrue, qt.Commentf("+e must not clear unrelated flags"))
}

func TestApplyPipefail(t *testing.T) {
	c := qt.New(t)
	o := shellopts.New()
	c.Assert(o.Apply([]string{"-o", "pipefail"}), qt.IsNil)
	c.Assert(o.PipeFail, qt.IsTrue)
	c.Assert(o.Apply([]string{"+o", "pipefail"}), qt.IsNil)
	c.Assert(o.PipeFail, qt.IsFalse)
}

func TestApplyUnknownFlagErrors(t *testing.T) {
	c := qt.New(t)
	o := shellopts.New()
	c.Assert(o.Apply([]string{"-q"}), qt.Not(qt.IsNil))
	c.Assert(o.Apply([]string{"-o", "nonsense"}), qt.Not(qt.IsNil))
	c.Assert(o.Apply([]string{"nope"}), qt.Not(qt.IsNil))
}

func TestParseMode(t *testing.T) {
	c := qt.New(t)
	for _, tc := range []struct {
		in   string
		want shellopts.Mode
	}{
		{"razzshell", shellopts.Native},
		{"native", shellopts.Native},
		{"posix", shellopts.POSIX},
		{"bash", shellopts.Bash},
	} {
		got, err := shellopts.ParseMode(tc.in)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, tc.want)
	}
	_, err := shellopts.ParseMode("huh")
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestModeString(t *testing.T) {
	c := qt.New(t)
	c.Assert(shellopts.Native.String(), qt.Equals, "razzshell")
	c.Assert(shellopts.POSIX.String(), qt.Equals, "posix")
	c.Assert(shellopts.Bash.String(), qt.Equals, "bash")
}
