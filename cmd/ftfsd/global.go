package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/filetypefs/ftfs/internal/debug"
)

var version = "0.1.0-dev (compiled manually)"

// GlobalOptions hold options used by all commands.
type GlobalOptions struct {
	Quiet   bool
	Verbose bool

	stdout *os.File
	stderr *os.File
}

var globalOptions = GlobalOptions{
	stdout: os.Stdout,
	stderr: os.Stderr,
}

func init() {
	f := cmdRoot.PersistentFlags()
	f.BoolVarP(&globalOptions.Quiet, "quiet", "q", false, "do not print the ready message or verbose output")
	f.BoolVarP(&globalOptions.Verbose, "verbose", "v", false, "be verbose")
}

// Printf writes the message to the configured stdout stream.
func Printf(format string, args ...interface{}) {
	fmt.Fprintf(globalOptions.stdout, format, args...)
}

// Verbosef calls Printf to write the message when the verbose flag is set.
func Verbosef(format string, args ...interface{}) {
	if globalOptions.Verbose && !globalOptions.Quiet {
		Printf(format, args...)
	}
}

// Warnf writes the message to the configured stderr stream.
func Warnf(format string, args ...interface{}) {
	fmt.Fprintf(globalOptions.stderr, format, args...)
}

// createGlobalContext returns a context that is canceled on SIGINT or
// SIGTERM. A second signal exits immediately.
func createGlobalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

	go func() {
		s := <-ch
		debug.Log("signal %v received, shutting down", s)
		cancel()

		s = <-ch
		debug.Log("signal %v received, forcing exit", s)
		Exit(130)
	}()

	return ctx
}

// Exit terminates the process with the given exit code.
func Exit(code int) {
	debug.Log("exiting with status %d", code)
	os.Exit(code)
}
