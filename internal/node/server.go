// Package node runs one node of the cluster: a TCP listener that hands every
// accepted client to its own worker goroutine. Workers are fully isolated,
// each one owns its connection, its buffers and any backend connections it
// opens; a panic inside a worker kills that worker only.
package node

import (
	"context"
	"net"

	"github.com/filetypefs/ftfs/internal/debug"
	"github.com/filetypefs/ftfs/internal/errors"
	"github.com/filetypefs/ftfs/internal/routing"
	"github.com/filetypefs/ftfs/internal/wire"
)

// A Handler serves one accepted connection until the peer disconnects.
type Handler interface {
	Serve(ctx context.Context, conn *wire.Conn)
}

// Server accepts connections and spawns a worker per client.
type Server struct {
	id      routing.NodeID
	handler Handler
}

// NewServer returns a server for node id that hands connections to handler.
func NewServer(id routing.NodeID, handler Handler) *Server {
	return &Server{id: id, handler: handler}
}

// ListenAndServe listens on addr and accepts until ctx is canceled. It only
// returns a non-nil error when the listener itself fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen %v", addr)
	}

	debug.Log("node %v listening on %v", s.id, ln.Addr())
	return s.Serve(ctx, ln)
}

// Serve accepts from ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				// listener closed during shutdown
				return nil
			}
			return errors.Wrap(err, "accept")
		}

		go s.serveConn(ctx, nc)
	}
}

func (s *Server) serveConn(ctx context.Context, nc net.Conn) {
	conn := wire.NewConn(nc)
	defer func() {
		// a worker panic must not take down the listener or other workers
		if r := recover(); r != nil {
			debug.Log("worker for %v panicked: %v", conn.RemoteAddr(), r)
		}
		_ = conn.Close()
	}()

	debug.Log("node %v: new connection from %v", s.id, conn.RemoteAddr())
	s.handler.Serve(ctx, conn)
	debug.Log("node %v: connection from %v done", s.id, conn.RemoteAddr())
}
