// Package main is the entry point for spfedit, a command line editor for
// shared parameter definition files.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dshills/sharedparams/internal/codec"
	"github.com/dshills/sharedparams/internal/vfs"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Exit codes.
const (
	exitOK      = 0
	exitError   = 1
	exitInvalid = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{fs: vfs.NewOSFS(), out: stdout, errOut: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

// exitCode maps a command error to the process exit status. A file that
// does not parse exits with exitInvalid so scripts can tell it apart from
// usage and I/O failures.
func exitCode(err error) int {
	var fe *codec.FormatError
	if errors.As(err, &fe) {
		return exitInvalid
	}
	return exitError
}
