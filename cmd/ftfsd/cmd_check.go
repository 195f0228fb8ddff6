package main

import (
	"github.com/spf13/cobra"

	"github.com/filetypefs/ftfs/internal/errors"
	"github.com/filetypefs/ftfs/internal/routing"
	"github.com/filetypefs/ftfs/internal/wire"
)

var cmdCheck = &cobra.Command{
	Use:   "check [flags]",
	Short: "Check that every node of the cluster is reachable",
	Long: `
The "check" command dials every node of the configured topology and sends a
ping request. It reports each node's reachability and fails when at least one
node does not answer.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(checkOptions, args)
	},
}

// CheckOptions collect the options of the check command.
type CheckOptions struct {
	Config string
	Peers  peerList
}

var checkOptions CheckOptions

func init() {
	cmdRoot.AddCommand(cmdCheck)

	f := cmdCheck.Flags()
	f.StringVarP(&checkOptions.Config, "config", "c", "", "read the cluster topology from `file`")
	f.Var(&checkOptions.Peers, "peer", "peer address as name=host:port (repeatable)")
}

func runCheck(opts CheckOptions, args []string) error {
	if len(args) > 0 {
		return errors.Fatal("this command does not accept additional arguments")
	}

	topo, err := buildTopology(routing.NodeN1, RunOptions{Config: opts.Config, Peers: opts.Peers}, nil)
	if err != nil {
		return err
	}

	down := 0
	for _, id := range routing.AllNodes {
		addr := topo.Get(id).Addr
		if err := ping(addr); err != nil {
			Warnf("%v %v unreachable: %v\n", id, addr, err)
			down++
			continue
		}
		Printf("%v %v ok\n", id, addr)
	}

	if down > 0 {
		return errors.Fatalf("%d of %d nodes unreachable", down, len(routing.AllNodes))
	}
	return nil
}

func ping(addr string) error {
	conn, err := wire.Dial(addr)
	if err != nil {
		return err
	}
	defer func() {
		_ = conn.Close()
	}()

	resp, err := conn.Exchange(wire.Request{Command: wire.CmdPing})
	if err != nil {
		return err
	}
	return resp.Err()
}
