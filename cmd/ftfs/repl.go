package main

import (
	"bufio"
	"fmt"
	"os"
	"path"

	"golang.org/x/term"

	"github.com/filetypefs/ftfs/internal/debug"
	"github.com/filetypefs/ftfs/internal/dispatch"
	"github.com/filetypefs/ftfs/internal/errors"
	"github.com/filetypefs/ftfs/internal/wire"
)

// runClient connects to the front door and executes commands from stdin until
// exit or end of input. Every error yields a single diagnostic line; the
// session continues unless the connection to the front door is lost.
func runClient(opts ClientOptions) error {
	conn, err := wire.Dial(opts.Server)
	if err != nil {
		return errors.Fatalf("cannot reach front door at %v: %v", opts.Server, err)
	}
	defer func() {
		_ = conn.Close()
	}()

	// probe before the first command so a dead front door is reported now
	resp, err := conn.Exchange(wire.Request{Command: wire.CmdPing})
	if err != nil {
		return errors.Fatalf("front door at %v did not answer: %v", opts.Server, err)
	}
	if err := resp.Err(); err != nil {
		return errors.Fatalf("front door at %v: %v", opts.Server, err)
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Printf("connected to %v, type help for the command list\n", opts.Server)
	}

	sc := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print("ftfs> ")
		}
		if !sc.Scan() {
			// end of input behaves like exit
			_ = conn.WriteRequest(wire.Request{Command: dispatch.CmdExit})
			return sc.Err()
		}

		line := sc.Text()
		if done, err := execute(conn, line); err != nil {
			diag(err)
		} else if done {
			return nil
		}
	}
}

// execute validates and runs one command line. It reports done == true after
// exit.
func execute(conn *wire.Conn, line string) (done bool, err error) {
	if line == "" {
		return false, nil
	}
	if line == "help" {
		printHelp()
		return false, nil
	}

	cmd, err := dispatch.ParseCommand(line)
	if err != nil {
		// invalid commands never reach the network
		return false, err
	}

	switch cmd.Name {
	case dispatch.CmdExit:
		_ = conn.WriteRequest(wire.Request{Command: dispatch.CmdExit})
		return true, nil

	case dispatch.CmdUploadf:
		return false, uploadf(conn, cmd)

	case dispatch.CmdDownlf:
		return false, downlf(conn, cmd)

	case dispatch.CmdRemovef:
		return false, removef(conn, cmd)

	case dispatch.CmdDownltar:
		return false, downltar(conn, cmd)

	case dispatch.CmdDispfnames:
		return false, dispfnames(conn, cmd)
	}

	return false, nil
}

func uploadf(conn *wire.Conn, cmd dispatch.Command) error {
	localfile := cmd.Args[0]
	data, err := os.ReadFile(localfile)
	if err != nil {
		return errors.Wrapf(err, "read %v", localfile)
	}

	args := append([]string{path.Base(localfile)}, cmd.Args[1:]...)
	_, err = exchange(conn, wire.Request{
		Command: cmd.Name,
		Arg:     dispatch.Command{Name: cmd.Name, Args: args}.Arg(),
		Payload: data,
	})
	if err != nil {
		return err
	}

	fmt.Printf("uploaded %v (%d bytes)\n", path.Base(localfile), len(data))
	return nil
}

func downlf(conn *wire.Conn, cmd dispatch.Command) error {
	resp, err := exchange(conn, wire.Request{Command: cmd.Name, Arg: cmd.Arg()})
	if err != nil {
		return err
	}

	// the download lands in the current directory under the path's basename
	name := path.Base(cmd.Args[0])
	if err := os.WriteFile(name, resp.Payload, 0644); err != nil {
		return errors.WithStack(err)
	}

	fmt.Printf("downloaded %v (%d bytes)\n", name, len(resp.Payload))
	return nil
}

func removef(conn *wire.Conn, cmd dispatch.Command) error {
	if _, err := exchange(conn, wire.Request{Command: cmd.Name, Arg: cmd.Arg()}); err != nil {
		return err
	}

	fmt.Printf("removed %v\n", cmd.Args[0])
	return nil
}

func downltar(conn *wire.Conn, cmd dispatch.Command) error {
	resp, err := exchange(conn, wire.Request{Command: cmd.Name, Arg: cmd.Arg()})
	if err != nil {
		return err
	}

	name := cmd.Args[0] + ".tar"
	if err := os.WriteFile(name, resp.Payload, 0644); err != nil {
		return errors.WithStack(err)
	}

	fmt.Printf("downloaded %v (%d bytes)\n", name, len(resp.Payload))
	return nil
}

func dispfnames(conn *wire.Conn, cmd dispatch.Command) error {
	resp, err := exchange(conn, wire.Request{Command: cmd.Name, Arg: cmd.Arg()})
	if err != nil {
		return err
	}

	if len(resp.Payload) > 0 {
		fmt.Printf("%s\n", resp.Payload)
	}
	return nil
}

// exchange performs one round trip and folds error statuses into errors. A
// broken connection is fatal for the session, everything else only fails the
// single command.
func exchange(conn *wire.Conn, req wire.Request) (wire.Response, error) {
	debug.Log("sending %v %q (%d payload bytes)", req.Command, req.Arg, len(req.Payload))

	resp, err := conn.Exchange(req)
	if err != nil {
		return wire.Response{}, errors.Fatalf("connection to front door lost: %v", err)
	}

	return resp, resp.Err()
}

func diag(err error) {
	if errors.IsFatal(err) {
		// connection gone, give up on the session
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}

func printHelp() {
	fmt.Print(`commands:
  uploadf <localfile> [destpath]   upload a file (c, pdf, txt or zip)
  downlf <logicalpath>             download a file into the current directory
  removef <logicalpath>            delete a file
  downltar <filetype>              download a tar of all c, pdf or txt files
  dispfnames [dirpath]             list file names in a directory
  exit                             leave
`)
}
