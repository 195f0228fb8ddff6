package node_test

import (
	"context"
	"net"
	"testing"

	"github.com/filetypefs/ftfs/internal/node"
	"github.com/filetypefs/ftfs/internal/routing"
	"github.com/filetypefs/ftfs/internal/store"
	rtest "github.com/filetypefs/ftfs/internal/test"
	"github.com/filetypefs/ftfs/internal/wire"
)

// startBackend runs a storage node on a loopback listener and returns its
// address and root.
func startBackend(t *testing.T, id routing.NodeID) (addr string, st *store.Store) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st, err := store.New(id, rtest.TempDir(t))
	rtest.OK(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	rtest.OK(t, err)

	srv := node.NewServer(id, node.NewBackend(st))
	go func() {
		_ = srv.Serve(ctx, ln)
	}()

	return ln.Addr().String(), st
}

func dial(t *testing.T, addr string) *wire.Conn {
	t.Helper()

	conn, err := wire.Dial(addr)
	rtest.OK(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

func TestBackendPing(t *testing.T) {
	addr, _ := startBackend(t, routing.NodeN2)
	conn := dial(t, addr)

	resp, err := conn.Exchange(wire.Request{Command: wire.CmdPing})
	rtest.OK(t, err)
	rtest.Equals(t, wire.StatusOK, resp.Status)
}

func TestBackendStoreFetchDelete(t *testing.T) {
	addr, st := startBackend(t, routing.NodeN2)
	conn := dial(t, addr)

	data := rtest.Random(5, 8192)

	// one connection may carry several sequential operations
	resp, err := conn.Exchange(wire.Request{Command: wire.CmdStore, Arg: "~/S2/a/x.pdf", Payload: data})
	rtest.OK(t, err)
	rtest.Equals(t, wire.StatusOK, resp.Status)

	back, err := st.Fetch("~/S2/a/x.pdf")
	rtest.OK(t, err)
	rtest.Equals(t, data, back)

	resp, err = conn.Exchange(wire.Request{Command: wire.CmdFetch, Arg: "~/S2/a/x.pdf"})
	rtest.OK(t, err)
	rtest.Equals(t, wire.StatusOK, resp.Status)
	rtest.Equals(t, data, resp.Payload)

	resp, err = conn.Exchange(wire.Request{Command: wire.CmdDelete, Arg: "~/S2/a/x.pdf"})
	rtest.OK(t, err)
	rtest.Equals(t, wire.StatusOK, resp.Status)

	resp, err = conn.Exchange(wire.Request{Command: wire.CmdFetch, Arg: "~/S2/a/x.pdf"})
	rtest.OK(t, err)
	rtest.Equals(t, wire.StatusNotFound, resp.Status)
}

func TestBackendList(t *testing.T) {
	addr, st := startBackend(t, routing.NodeN3)
	conn := dial(t, addr)

	rtest.OK(t, st.Save("~/S3/b.txt", []byte("b")))
	rtest.OK(t, st.Save("~/S3/a.txt", []byte("a")))

	resp, err := conn.Exchange(wire.Request{Command: wire.CmdList, Arg: "~/S3"})
	rtest.OK(t, err)
	rtest.Equals(t, wire.StatusOK, resp.Status)
	rtest.Equals(t, "a.txt\nb.txt", string(resp.Payload))

	resp, err = conn.Exchange(wire.Request{Command: wire.CmdList, Arg: "~/S3/absent"})
	rtest.OK(t, err)
	rtest.Equals(t, wire.StatusNotFound, resp.Status)
}

func TestBackendArchive(t *testing.T) {
	addr, st := startBackend(t, routing.NodeN3)
	conn := dial(t, addr)

	rtest.OK(t, st.Save("~/S3/a/note.txt", []byte("note")))

	resp, err := conn.Exchange(wire.Request{Command: wire.CmdArchive, Arg: "txt"})
	rtest.OK(t, err)
	rtest.Equals(t, wire.StatusOK, resp.Status)
	rtest.Assert(t, len(resp.Payload) > 0, "empty archive")

	resp, err = conn.Exchange(wire.Request{Command: wire.CmdArchive, Arg: "zip"})
	rtest.OK(t, err)
	rtest.Equals(t, wire.StatusUnsupported, resp.Status)
}

func TestBackendUnknownCommand(t *testing.T) {
	addr, _ := startBackend(t, routing.NodeN2)
	conn := dial(t, addr)

	resp, err := conn.Exchange(wire.Request{Command: "frobnicate"})
	rtest.OK(t, err)
	rtest.Equals(t, wire.StatusUnsupported, resp.Status)

	// the connection survives unknown commands
	resp, err = conn.Exchange(wire.Request{Command: wire.CmdPing})
	rtest.OK(t, err)
	rtest.Equals(t, wire.StatusOK, resp.Status)
}

func TestServerShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	st, err := store.New(routing.NodeN2, rtest.TempDir(t))
	rtest.OK(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	rtest.OK(t, err)

	srv := node.NewServer(routing.NodeN2, node.NewBackend(st))
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, ln)
	}()

	cancel()
	rtest.OK(t, <-done)
}
