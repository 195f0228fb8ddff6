package dispatch

import (
	"strings"

	"github.com/filetypefs/ftfs/internal/errors"
	"github.com/filetypefs/ftfs/internal/routing"
)

// The client-facing command keywords.
const (
	CmdUploadf    = "uploadf"
	CmdDownlf     = "downlf"
	CmdRemovef    = "removef"
	CmdDownltar   = "downltar"
	CmdDispfnames = "dispfnames"
	CmdExit       = "exit"
)

// ErrMalformedCommand rejects a command line before any bytes go on the wire.
var ErrMalformedCommand = errors.New("malformed command")

// Command is one parsed client command.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a command line on whitespace and validates keyword,
// arity and, where the command demands one, the file type. The client runs
// this before transmitting; the dispatcher runs it again on receipt.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, errors.Wrap(ErrMalformedCommand, "empty command")
	}

	cmd := Command{Name: fields[0], Args: fields[1:]}
	return cmd, cmd.validate()
}

func (c Command) validate() error {
	switch c.Name {
	case CmdUploadf:
		if len(c.Args) < 1 || len(c.Args) > 2 {
			return errors.Wrap(ErrMalformedCommand, "usage: uploadf <localfile> [destpath]")
		}
		if _, err := routing.TypeOf(c.Args[0]); err != nil {
			return err
		}

	case CmdDownlf, CmdRemovef:
		if len(c.Args) != 1 {
			return errors.Wrapf(ErrMalformedCommand, "usage: %v <path>", c.Name)
		}
		if _, err := routing.TypeOf(c.Args[0]); err != nil {
			return err
		}

	case CmdDownltar:
		if len(c.Args) != 1 {
			return errors.Wrap(ErrMalformedCommand, "usage: downltar <filetype>")
		}
		t, err := routing.ParseType(c.Args[0])
		if err != nil {
			return err
		}
		if !routing.Archivable(t) {
			return errors.Wrapf(routing.ErrUnsupportedArchive, "%v", t)
		}

	case CmdDispfnames:
		if len(c.Args) > 1 {
			return errors.Wrap(ErrMalformedCommand, "usage: dispfnames [dirpath]")
		}

	case CmdExit:
		if len(c.Args) != 0 {
			return errors.Wrap(ErrMalformedCommand, "exit takes no arguments")
		}

	default:
		return errors.Wrapf(ErrMalformedCommand, "unknown command %q", c.Name)
	}

	return nil
}

// Arg joins the arguments back into the single wire argument line.
func (c Command) Arg() string {
	return strings.Join(c.Args, " ")
}
