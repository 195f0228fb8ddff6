// Package cluster describes the four-node topology: which node listens where
// and which directory it stores under.
package cluster

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/filetypefs/ftfs/internal/errors"
	"github.com/filetypefs/ftfs/internal/routing"
)

// Node is one entry of the topology.
type Node struct {
	Addr string `yaml:"addr"`
	Root string `yaml:"root"`
}

// Cluster maps node ids to their network address and storage root.
type Cluster struct {
	Nodes map[routing.NodeID]Node `yaml:"nodes"`
}

// Default returns the local four-node topology: n1..n4 on consecutive ports
// with roots ~/S1..~/S4.
func Default() *Cluster {
	c := &Cluster{Nodes: make(map[routing.NodeID]Node)}
	for i, id := range routing.AllNodes {
		c.Nodes[id] = Node{
			Addr: fmt.Sprintf("127.0.0.1:%d", 9401+i),
			Root: "~/" + routing.Segment(id),
		}
	}
	return c
}

// Load initializes a topology from the YAML file at path. Entries missing
// from the file keep their defaults.
func Load(path string) (*Cluster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrapf(err, "parse %v", path)
	}

	for id, n := range c.Nodes {
		if !known(id) {
			return nil, errors.Errorf("unknown node %q in %v", id, path)
		}
		def := Default().Nodes[id]
		if n.Addr == "" {
			n.Addr = def.Addr
		}
		if n.Root == "" {
			n.Root = def.Root
		}
		c.Nodes[id] = n
	}

	return c, nil
}

func known(id routing.NodeID) bool {
	for _, n := range routing.AllNodes {
		if n == id {
			return true
		}
	}
	return false
}

// Get returns the entry for id.
func (c *Cluster) Get(id routing.NodeID) Node {
	return c.Nodes[id]
}

// Owner returns the entry for the node owning files of type t.
func (c *Cluster) Owner(t routing.FileType) (routing.NodeID, Node) {
	id := routing.Owner(t)
	return id, c.Nodes[id]
}

// SetAddr overrides the address of one node, as set from command line flags.
func (c *Cluster) SetAddr(id routing.NodeID, addr string) {
	n := c.Nodes[id]
	n.Addr = addr
	c.Nodes[id] = n
}

// SetRoot overrides the storage root of one node.
func (c *Cluster) SetRoot(id routing.NodeID, root string) {
	n := c.Nodes[id]
	n.Root = root
	c.Nodes[id] = n
}
