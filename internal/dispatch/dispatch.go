// Package dispatch implements the front door: it parses each client command,
// executes it locally or against the owning backend, and relays the response.
// Backend sharding stays invisible to the client; every path the client sees
// is anchored at the front door's root.
package dispatch

import (
	"context"
	"io"
	"os"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/filetypefs/ftfs/internal/cluster"
	"github.com/filetypefs/ftfs/internal/debug"
	"github.com/filetypefs/ftfs/internal/errors"
	"github.com/filetypefs/ftfs/internal/routing"
	"github.com/filetypefs/ftfs/internal/store"
	"github.com/filetypefs/ftfs/internal/wire"
)

// ErrBackendUnavailable reports a backend that could not be dialed or died
// mid-exchange. There is no retry.
var ErrBackendUnavailable = errors.New("backend unavailable")

// defaultRoot is the client-visible namespace anchor.
const defaultRoot = "~/S1"

// Dispatcher serves client connections on the front door. One Serve call is
// one client worker; backend connections are opened per operation and closed
// at operation end.
type Dispatcher struct {
	topo  *cluster.Cluster
	local *store.Store
}

// NewDispatcher returns a dispatcher backed by the cluster topology and the
// front door's own store for files it owns locally.
func NewDispatcher(topo *cluster.Cluster, local *store.Store) *Dispatcher {
	return &Dispatcher{topo: topo, local: local}
}

// Serve executes client commands strictly sequentially until the client
// disconnects or sends exit.
func (d *Dispatcher) Serve(ctx context.Context, conn *wire.Conn) {
	for {
		req, err := conn.ReadRequest()
		if err == io.EOF {
			return
		}
		if err != nil {
			debug.Log("read from client %v: %v", conn.RemoteAddr(), err)
			_ = conn.WriteError(err)
			return
		}

		if req.Command == CmdExit {
			return
		}
		if req.Command == wire.CmdPing {
			if err := conn.WriteResponse(wire.Response{Status: wire.StatusOK}); err != nil {
				return
			}
			continue
		}

		resp := d.dispatch(ctx, req)
		if err := conn.WriteResponse(resp); err != nil {
			debug.Log("write to client %v: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, req wire.Request) wire.Response {
	line := req.Command
	if req.Arg != "" {
		line += " " + req.Arg
	}

	cmd, err := ParseCommand(line)
	if err != nil {
		return errResponse(err)
	}

	switch cmd.Name {
	case CmdUploadf:
		return d.uploadf(cmd, req.Payload)
	case CmdDownlf:
		return d.downlf(cmd)
	case CmdRemovef:
		return d.removef(cmd)
	case CmdDownltar:
		return d.downltar(cmd)
	case CmdDispfnames:
		return d.dispfnames(ctx, cmd)
	default:
		return wire.Response{Status: wire.StatusUnsupported, Detail: "unknown command " + cmd.Name}
	}
}

// uploadf stores the transmitted bytes at the destination, which defaults to
// the front door's root. The file type picks the owning backend; .c files
// never leave the front door.
func (d *Dispatcher) uploadf(cmd Command, payload []byte) wire.Response {
	name := path.Base(cmd.Args[0])
	dest := defaultRoot
	if len(cmd.Args) == 2 {
		dest = cmd.Args[1]
	}

	t, err := routing.TypeOf(name)
	if err != nil {
		return errResponse(err)
	}

	logical := strings.TrimSuffix(dest, "/") + "/" + name
	owner, peer := d.topo.Owner(t)

	physical, err := routing.Rewrite(logical, owner)
	if err != nil {
		return errResponse(err)
	}

	if owner == d.local.NodeID() {
		return errResponse(d.local.Save(physical, payload))
	}

	return d.forward(peer, wire.Request{Command: wire.CmdStore, Arg: physical, Payload: payload})
}

// downlf fetches the file at the logical path and streams it back unchanged.
func (d *Dispatcher) downlf(cmd Command) wire.Response {
	physical, owner, peer, err := d.route(cmd.Args[0])
	if err != nil {
		return errResponse(err)
	}

	if owner == d.local.NodeID() {
		data, err := d.local.Fetch(physical)
		if err != nil {
			return errResponse(err)
		}
		return wire.Response{Status: wire.StatusOK, Payload: data}
	}

	return d.forward(peer, wire.Request{Command: wire.CmdFetch, Arg: physical})
}

// removef deletes the file at the logical path.
func (d *Dispatcher) removef(cmd Command) wire.Response {
	physical, owner, peer, err := d.route(cmd.Args[0])
	if err != nil {
		return errResponse(err)
	}

	if owner == d.local.NodeID() {
		return errResponse(d.local.Remove(physical))
	}

	return d.forward(peer, wire.Request{Command: wire.CmdDelete, Arg: physical})
}

// downltar relays the tar archive of one file type. The zip type was already
// rejected during validation, before any backend traffic.
func (d *Dispatcher) downltar(cmd Command) wire.Response {
	t, err := routing.ParseType(cmd.Args[0])
	if err != nil {
		return errResponse(err)
	}

	owner, peer := d.topo.Owner(t)
	if owner == d.local.NodeID() {
		tmpfile, err := d.local.Archive(t)
		if err != nil {
			return errResponse(err)
		}
		defer func() {
			_ = os.Remove(tmpfile)
		}()

		data, err := os.ReadFile(tmpfile)
		if err != nil {
			return errResponse(err)
		}
		return wire.Response{Status: wire.StatusOK, Payload: data}
	}

	return d.forward(peer, wire.Request{Command: wire.CmdArchive, Arg: string(t)})
}

// dispfnames presents the unified listing for one logical directory. The four
// per-node listings are queried concurrently but always concatenated in the
// fixed node order, which yields the global class order: .c files first, then
// .pdf, .txt, .zip, each class already sorted by its backend. A node where the
// directory does not exist contributes nothing; any other backend failure
// aborts the command.
func (d *Dispatcher) dispfnames(ctx context.Context, cmd Command) wire.Response {
	dir := defaultRoot
	if len(cmd.Args) == 1 {
		dir = cmd.Args[0]
	}

	parts := make([][]string, len(routing.AllNodes))
	wg, _ := errgroup.WithContext(ctx)

	for i, id := range routing.AllNodes {
		i, id := i, id

		physical, err := routing.Rewrite(dir, id)
		if err != nil {
			return errResponse(err)
		}

		wg.Go(func() error {
			names, err := d.listOn(id, physical)
			if err != nil {
				return err
			}
			parts[i] = names
			return nil
		})
	}

	if err := wg.Wait(); err != nil {
		return errResponse(err)
	}

	var names []string
	for _, part := range parts {
		names = append(names, part...)
	}

	return wire.Response{Status: wire.StatusOK, Payload: []byte(strings.Join(names, "\n"))}
}

// listOn lists one directory on one node. An absent directory is not an
// error, the node simply contributes nothing.
func (d *Dispatcher) listOn(id routing.NodeID, physical string) ([]string, error) {
	if id == d.local.NodeID() {
		names, err := d.local.List(physical)
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return names, err
	}

	peer := d.topo.Get(id)
	resp, err := d.exchange(peer, wire.Request{Command: wire.CmdList, Arg: physical})
	if err != nil {
		return nil, err
	}

	switch resp.Status {
	case wire.StatusOK:
		if len(resp.Payload) == 0 {
			return nil, nil
		}
		return strings.Split(string(resp.Payload), "\n"), nil
	case wire.StatusNotFound:
		return nil, nil
	default:
		return nil, errors.Wrapf(ErrBackendUnavailable, "%v: %v", id, resp.Detail)
	}
}

// route resolves a logical path to its physical form and owning node.
func (d *Dispatcher) route(logical string) (string, routing.NodeID, cluster.Node, error) {
	t, err := routing.TypeOf(logical)
	if err != nil {
		return "", "", cluster.Node{}, err
	}

	owner, peer := d.topo.Owner(t)
	physical, err := routing.Rewrite(logical, owner)
	if err != nil {
		return "", "", cluster.Node{}, err
	}

	return physical, owner, peer, nil
}

// forward performs one operation against a backend over a fresh connection
// and passes the response through verbatim: backend error kinds are never
// translated on the way to the client.
func (d *Dispatcher) forward(peer cluster.Node, req wire.Request) wire.Response {
	resp, err := d.exchange(peer, req)
	if err != nil {
		return errResponse(err)
	}
	return resp
}

// exchange dials, performs one round trip, and closes. Dial failure and
// mid-exchange disconnects both surface as ErrBackendUnavailable.
func (d *Dispatcher) exchange(peer cluster.Node, req wire.Request) (wire.Response, error) {
	conn, err := wire.Dial(peer.Addr)
	if err != nil {
		return wire.Response{}, errors.Wrap(ErrBackendUnavailable, err.Error())
	}
	defer func() {
		_ = conn.Close()
	}()

	resp, err := conn.Exchange(req)
	if err != nil {
		return wire.Response{}, errors.Wrap(ErrBackendUnavailable, err.Error())
	}

	return resp, nil
}

func errResponse(err error) wire.Response {
	if errors.Is(err, ErrMalformedCommand) {
		// syntax errors have no status of their own on the wire
		return wire.Response{Status: wire.StatusUnsupported, Detail: err.Error()}
	}

	status, detail := wire.StatusOf(err)
	return wire.Response{Status: status, Detail: detail}
}
