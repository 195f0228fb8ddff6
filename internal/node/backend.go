package node

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/filetypefs/ftfs/internal/debug"
	"github.com/filetypefs/ftfs/internal/routing"
	"github.com/filetypefs/ftfs/internal/store"
	"github.com/filetypefs/ftfs/internal/wire"
)

// Backend serves the storage operations of one node. The front door dials it
// with one short-lived connection per operation, but nothing here depends on
// that: a connection may carry any number of sequential requests.
type Backend struct {
	store *store.Store
}

// NewBackend returns the storage service for st.
func NewBackend(st *store.Store) *Backend {
	return &Backend{store: st}
}

// Serve reads request frames until the peer disconnects and answers each one
// synchronously.
func (b *Backend) Serve(_ context.Context, conn *wire.Conn) {
	for {
		req, err := conn.ReadRequest()
		if err == io.EOF {
			return
		}
		if err != nil {
			debug.Log("read from %v: %v", conn.RemoteAddr(), err)
			_ = conn.WriteError(err)
			return
		}

		if err := conn.WriteResponse(b.handle(req)); err != nil {
			debug.Log("write to %v: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

func (b *Backend) handle(req wire.Request) wire.Response {
	switch req.Command {
	case wire.CmdPing:
		return wire.Response{Status: wire.StatusOK}

	case wire.CmdStore:
		return errResponse(b.store.Save(req.Arg, req.Payload))

	case wire.CmdFetch:
		data, err := b.store.Fetch(req.Arg)
		if err != nil {
			return errResponse(err)
		}
		return wire.Response{Status: wire.StatusOK, Payload: data}

	case wire.CmdDelete:
		return errResponse(b.store.Remove(req.Arg))

	case wire.CmdList:
		names, err := b.store.List(req.Arg)
		if err != nil {
			return errResponse(err)
		}
		return wire.Response{Status: wire.StatusOK, Payload: []byte(strings.Join(names, "\n"))}

	case wire.CmdArchive:
		return b.archive(req.Arg)

	default:
		return wire.Response{Status: wire.StatusUnsupported, Detail: "unknown command " + req.Command}
	}
}

func (b *Backend) archive(arg string) wire.Response {
	t, err := routing.ParseType(arg)
	if err != nil {
		return errResponse(err)
	}

	tmpfile, err := b.store.Archive(t)
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

func errResponse(err error) wire.Response {
	status, detail := wire.StatusOf(err)
	return wire.Response{Status: status, Detail: detail}
}
