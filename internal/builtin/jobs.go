package builtin

import (
	"context"
	"fmt"
	"strconv"

	"github.com/razzshell/razzshell/internal/interp"
)

func jobsBuiltin(_ context.Context, rt *interp.Runner, _ []string) int {
	for _, j := range rt.Jobs.List() {
		mark := "-"
		if j.Background {
			mark = "&"
		}
		fmt.Fprintf(rt.Stdout, "[%d] %s\t%s %s\n", j.ID, j.State, j.CommandText, mark)
	}
	return 0
}

// fgBuiltin brings job id to the foreground: it resumes the job with
// SIGCONT, hands terminal ownership to the job's pgrp, waits for it
// to stop again or finish, then reclaims the terminal. The protocol
// itself lives on the Runner; this wrapper only parses the argument
// and reports.
func fgBuiltin(_ context.Context, rt *interp.Runner, args []string) int {
	id, job, ok := lookupJob(rt, args)
	if !ok {
		return 1
	}
	fmt.Fprintln(rt.Stdout, job.CommandText)
	status, err := rt.ForegroundJob(id)
	if err != nil {
		fmt.Fprintf(rt.Stderr, "fg: %s\n", err)
		return 1
	}
	return status
}

// bgBuiltin resumes a stopped job in the background without taking
// the terminal.
func bgBuiltin(_ context.Context, rt *interp.Runner, args []string) int {
	id, _, ok := lookupJob(rt, args)
	if !ok {
		return 1
	}
	if err := rt.ResumeJob(id); err != nil {
		fmt.Fprintf(rt.Stderr, "bg: %s\n", err)
		return 1
	}
	return 0
}

// killBuiltin issues SIGTERM to a named pid. The argument is a raw
// pid, not a job table id.
func killBuiltin(_ context.Context, rt *interp.Runner, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(rt.Stderr, "kill: usage: kill PID")
		return 1
	}
	pid, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintf(rt.Stderr, "kill: %q is not a pid\n", args[1])
		return 1
	}
	if err := terminatePID(pid); err != nil {
		fmt.Fprintf(rt.Stderr, "kill: %s\n", err)
		return 1
	}
	return 0
}

func lookupJob(rt *interp.Runner, args []string) (int, *interp.Job, bool) {
	if len(args) < 2 {
		fmt.Fprintf(rt.Stderr, "%s: usage: %s ID\n", args[0], args[0])
		return 0, nil, false
	}
	id, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintf(rt.Stderr, "%s: %q is not a job id\n", args[0], args[1])
		return 0, nil, false
	}
	job, ok := rt.Jobs.Get(id)
	if !ok {
		fmt.Fprintf(rt.Stderr, "%s: no such job %d\n", args[0], id)
		return 0, nil, false
	}
	return id, job, true
}
