// Command razzshell is the RazzShell interactive command-line shell:
// a custom command vocabulary, a Bourne-style lexer/parser, job
// control, dynamic plugin loading, and a POSIX/BASH compatibility
// layer, built on top of the internal/interp execution engine.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/razzshell/razzshell/internal/builtin"
	"github.com/razzshell/razzshell/internal/history"
	"github.com/razzshell/razzshell/internal/interp"
	"github.com/razzshell/razzshell/internal/registry"
	"github.com/razzshell/razzshell/internal/repl"
	"github.com/razzshell/razzshell/internal/shellopts"
	"github.com/razzshell/razzshell/internal/termctl"
)

// Version is RazzShell's semantic version, published to the running
// shell as RAZZSHELL_VERSION.
const Version = "2.0.0"

var (
	posixFlag   = flag.Bool("posix", false, "start in POSIX mode")
	bashFlag    = flag.BoolP("bash", "b", false, "start in BASH mode")
	helpFlag    = flag.BoolP("help", "h", false, "print help and exit")
	versionFlag = flag.Bool("version", false, "print version and exit")
)

func main() {
	os.Exit(main1())
}

// main1 is main's body factored out to a plain int-returning function
// so the test binary can re-exec it as a subcommand through
// testscript.RunMain instead of spawning a separately built binary.
func main1() int {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: razzshell [--posix] [-b|--bash]")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *helpFlag {
		flag.Usage()
		return 0
	}
	if *versionFlag {
		fmt.Println("razzshell", Version)
		return 0
	}

	return run()
}

func run() int {
	opts := shellopts.New()
	switch {
	case *posixFlag:
		opts.Mode = shellopts.POSIX
	case *bashFlag:
		opts.Mode = shellopts.Bash
	}

	reg := registry.New(opts)
	builtin.RegisterAll(reg)
	builtin.RegisterCosmeticStubs(reg)

	jobs := interp.NewJobTable()
	hist := history.New()
	term := termctl.New(os.Stdin)

	rt := interp.New(opts, reg, jobs, term, hist)
	rt.ShellPath = selfPath()
	rt.Env["SHELL"] = rt.ShellPath
	rt.Env["RAZZSHELL_VERSION"] = Version
	rt.Env["RAZZSHELL_MODE"] = opts.Mode.String()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()

	session := repl.New(rt, os.Stdin, os.Stdout)

	// SIGINT clears the pending line wait and reprompts instead of
	// terminating the shell.
	if err := term.Start(session.Interrupt); err != nil {
		fmt.Fprintf(os.Stderr, "razzshell: %s\n", err)
	}
	defer term.Shutdown()

	return session.Run(ctx)
}

func selfPath() string {
	p, err := os.Executable()
	if err != nil {
		return os.Args[0]
	}
	return p
}
