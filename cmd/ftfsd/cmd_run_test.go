package main

import (
	"testing"

	"github.com/filetypefs/ftfs/internal/routing"
	rtest "github.com/filetypefs/ftfs/internal/test"
)

func TestBuildTopologyDefaults(t *testing.T) {
	topo, err := buildTopology(routing.NodeN1, RunOptions{}, nil)
	rtest.OK(t, err)
	rtest.Equals(t, "127.0.0.1:9401", topo.Get(routing.NodeN1).Addr)
	rtest.Equals(t, "~/S1", topo.Get(routing.NodeN1).Root)
}

func TestBuildTopologyPositionalPorts(t *testing.T) {
	topo, err := buildTopology(routing.NodeN1, RunOptions{}, []string{"7001", "7002", "7003", "7004"})
	rtest.OK(t, err)
	rtest.Equals(t, "127.0.0.1:7001", topo.Get(routing.NodeN1).Addr)
	rtest.Equals(t, "127.0.0.1:7002", topo.Get(routing.NodeN2).Addr)
	rtest.Equals(t, "127.0.0.1:7003", topo.Get(routing.NodeN3).Addr)
	rtest.Equals(t, "127.0.0.1:7004", topo.Get(routing.NodeN4).Addr)

	_, err = buildTopology(routing.NodeN1, RunOptions{}, []string{"7001", "x"})
	rtest.Assert(t, err != nil, "expected error for invalid port")

	_, err = buildTopology(routing.NodeN1, RunOptions{}, []string{"1", "2", "3", "4", "5"})
	rtest.Assert(t, err != nil, "expected error for too many ports")
}

func TestBuildTopologyFlags(t *testing.T) {
	opts := RunOptions{
		Listen: ":7777",
		Root:   "/srv/S2",
		Peers:  peerList{"n3=10.0.0.3:7003"},
	}

	topo, err := buildTopology(routing.NodeN2, opts, nil)
	rtest.OK(t, err)
	rtest.Equals(t, ":7777", topo.Get(routing.NodeN2).Addr)
	rtest.Equals(t, "/srv/S2", topo.Get(routing.NodeN2).Root)
	rtest.Equals(t, "10.0.0.3:7003", topo.Get(routing.NodeN3).Addr)

	_, err = buildTopology(routing.NodeN2, RunOptions{Peers: peerList{"n9=10.0.0.9:1"}}, nil)
	rtest.Assert(t, err != nil, "expected error for unknown peer name")
}

func TestPeerListSet(t *testing.T) {
	var p peerList
	rtest.OK(t, p.Set("n2=127.0.0.1:9402"))
	rtest.Equals(t, "n2=127.0.0.1:9402", p.String())

	rtest.Assert(t, p.Set("n2") != nil, "expected error for missing address")
	rtest.Assert(t, p.Set("=addr") != nil, "expected error for missing name")
}

func TestSplitPeer(t *testing.T) {
	name, addr, ok := splitPeer("n2=host:1")
	rtest.Assert(t, ok, "expected ok")
	rtest.Equals(t, "n2", name)
	rtest.Equals(t, "host:1", addr)

	_, _, ok = splitPeer("n2")
	rtest.Assert(t, !ok, "expected not ok")
}
