package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/filetypefs/ftfs/internal/debug"
	"github.com/filetypefs/ftfs/internal/errors"
)

var version = "0.1.0-dev (compiled manually)"

// ClientOptions hold the options of the client.
type ClientOptions struct {
	Server string
}

var clientOptions ClientOptions

var cmdRoot = &cobra.Command{
	Use:   "ftfs",
	Short: "Interactive client for the type-sharded distributed file store",
	Long: `
ftfs connects to the front-door node and reads commands from standard input,
one per line:

    uploadf <localfile> [destpath]
    downlf <logicalpath>
    removef <logicalpath>
    downltar <filetype>
    dispfnames [dirpath]
    exit

Paths are anchored at the front door's namespace (~/S1). Where the files
physically live is not the client's business.
`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return errors.Fatal("this command does not accept additional arguments")
		}
		return runClient(clientOptions)
	},
}

var cmdVersion = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("ftfs %v compiled with %v on %v/%v\n",
			version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	cmdRoot.AddCommand(cmdVersion)

	f := cmdRoot.PersistentFlags()
	f.StringVarP(&clientOptions.Server, "server", "s", "127.0.0.1:9401", "`address` of the front-door node")
}

func main() {
	debug.Log("main %#v", os.Args)

	err := cmdRoot.Execute()
	if err != nil {
		if errors.IsFatal(err) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "%+v\n", err)
		}
		os.Exit(1)
	}
}
