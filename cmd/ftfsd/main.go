package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/filetypefs/ftfs/internal/debug"
	"github.com/filetypefs/ftfs/internal/errors"
)

func init() {
	// don't import `go.uber.org/automaxprocs` to disable the log output
	_, _ = maxprocs.Set()
}

// cmdRoot is the base command when no other command has been specified.
var cmdRoot = &cobra.Command{
	Use:   "ftfsd",
	Short: "Node daemon of the type-sharded distributed file store",
	Long: `
ftfsd runs one node of the four-node distributed file store. Node n1 is the
front door that clients connect to; n2, n3 and n4 are storage backends that
only the front door dials. Files are sharded across the nodes by file type.
`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,
}

func main() {
	debug.Log("main %#v", os.Args)
	debug.Log("ftfsd %s compiled with %v on %v/%v",
		version, runtime.Version(), runtime.GOOS, runtime.GOARCH)

	ctx := createGlobalContext()
	err := cmdRoot.ExecuteContext(ctx)

	if err == nil {
		err = ctx.Err()
	}

	var exitCode int
	switch {
	case err == nil:
		exitCode = 0
	case errors.IsFatal(err):
		fmt.Fprintf(os.Stderr, "%v\n", err)
		exitCode = 1
	case errors.Is(err, context.Canceled):
		exitCode = 130
	default:
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		exitCode = 1
	}

	Exit(exitCode)
}
