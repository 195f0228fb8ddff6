package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/filetypefs/ftfs/internal/cluster"
	"github.com/filetypefs/ftfs/internal/dispatch"
	"github.com/filetypefs/ftfs/internal/errors"
	"github.com/filetypefs/ftfs/internal/node"
	"github.com/filetypefs/ftfs/internal/routing"
	"github.com/filetypefs/ftfs/internal/store"
)

var cmdRun = &cobra.Command{
	Use:   "run [flags] [port [peer-ports...]]",
	Short: "Run one node of the cluster",
	Long: `
The "run" command starts one node. The node name selects the role: n1 serves
clients and dispatches to the backends, n2/n3/n4 serve storage requests from
the front door only.

The listen port may be given as the first positional argument. On n1, further
positional arguments are the ports of n2, n3 and n4 on localhost. Flags and a
config file can express the same topology for non-local setups.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNode(cmd.Context(), runOptions, args)
	},
}

// RunOptions collect the topology overrides for one node.
type RunOptions struct {
	Name   string
	Listen string
	Root   string
	Config string
	Peers  peerList
}

// peerList parses repeated name=host:port flag values.
type peerList []string

var _ pflag.Value = (*peerList)(nil)

func (p *peerList) String() string {
	return strings.Join(*p, ",")
}

func (p *peerList) Set(s string) error {
	if _, _, ok := splitPeer(s); !ok {
		return errors.Errorf("invalid peer %q, want name=host:port", s)
	}
	*p = append(*p, s)
	return nil
}

func (p *peerList) Type() string {
	return "name=host:port"
}

var runOptions RunOptions

func init() {
	cmdRoot.AddCommand(cmdRun)

	f := cmdRun.Flags()
	f.StringVarP(&runOptions.Name, "name", "n", "n1", "node `name` (n1, n2, n3 or n4)")
	f.StringVarP(&runOptions.Listen, "listen", "l", "", "listen `address` (overrides the topology)")
	f.StringVar(&runOptions.Root, "root", "", "storage root `directory` (overrides the topology)")
	f.StringVarP(&runOptions.Config, "config", "c", "", "read the cluster topology from `file`")
	f.Var(&runOptions.Peers, "peer", "peer address as name=host:port (repeatable)")
}

func runNode(ctx context.Context, opts RunOptions, args []string) error {
	id := routing.NodeID(opts.Name)
	if routing.Segment(id) == "" {
		return errors.Fatalf("unknown node name %q", opts.Name)
	}

	topo, err := buildTopology(id, opts, args)
	if err != nil {
		return err
	}

	st, err := store.New(id, topo.Get(id).Root)
	if err != nil {
		return err
	}

	var handler node.Handler
	if id == routing.NodeN1 {
		handler = dispatch.NewDispatcher(topo, st)
	} else {
		handler = node.NewBackend(st)
	}

	Verbosef("node %v: listening on %v, storing under %v\n", id, topo.Get(id).Addr, st.Root())
	if !globalOptions.Quiet {
		Printf("ftfsd %v ready\n", id)
	}

	return node.NewServer(id, handler).ListenAndServe(ctx, topo.Get(id).Addr)
}

// buildTopology layers the configuration sources: defaults, then the config
// file, then positional ports, then flags.
func buildTopology(id routing.NodeID, opts RunOptions, args []string) (*cluster.Cluster, error) {
	topo := cluster.Default()

	if opts.Config != "" {
		var err error
		topo, err = cluster.Load(opts.Config)
		if err != nil {
			return nil, err
		}
	}

	if len(args) > 0 {
		port, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, errors.Fatalf("invalid port %q", args[0])
		}
		topo.SetAddr(id, fmt.Sprintf("127.0.0.1:%d", port))

		peers := routing.AllNodes[1:]
		if len(args)-1 > len(peers) {
			return nil, errors.Fatal("too many peer ports")
		}
		for i, a := range args[1:] {
			port, err := strconv.Atoi(a)
			if err != nil {
				return nil, errors.Fatalf("invalid port %q", a)
			}
			topo.SetAddr(peers[i], fmt.Sprintf("127.0.0.1:%d", port))
		}
	}

	for _, p := range opts.Peers {
		name, addr, _ := splitPeer(p)
		if routing.Segment(routing.NodeID(name)) == "" {
			return nil, errors.Fatalf("unknown node name %q in --peer", name)
		}
		topo.SetAddr(routing.NodeID(name), addr)
	}

	if opts.Listen != "" {
		topo.SetAddr(id, opts.Listen)
	}
	if opts.Root != "" {
		topo.SetRoot(id, opts.Root)
	}

	return topo, nil
}

func splitPeer(s string) (name, addr string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], i > 0 && i < len(s)-1
		}
	}
	return "", "", false
}
