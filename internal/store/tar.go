package store

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/filetypefs/ftfs/internal/debug"
	"github.com/filetypefs/ftfs/internal/errors"
	"github.com/filetypefs/ftfs/internal/routing"
)

// Archive produces a tar archive of every file of type t under the node's
// root, preserving paths relative to the root. The archive is staged in a
// temporary file whose name is unique per worker; the caller must remove it.
// Zip files are stored as-is and never re-archived.
func (s *Store) Archive(t routing.FileType) (tmpfile string, err error) {
	if !routing.Archivable(t) {
		return "", errors.Wrapf(routing.ErrUnsupportedArchive, "%v", t)
	}

	tmpfile = filepath.Join(os.TempDir(), fmt.Sprintf("ftfs-%v-%v-%v.tar", s.node, t, uuid.New()))
	f, err := os.OpenFile(tmpfile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, fileMode)
	if err != nil {
		return "", errors.WithStack(err)
	}

	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmpfile)
		}
	}()

	tw := tar.NewWriter(f)
	count := 0

	err = filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ft, err := routing.TypeOf(d.Name()); err != nil || ft != t {
			return nil
		}

		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		src, err := os.Open(p)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, src)
		_ = src.Close()
		if err != nil {
			return err
		}

		count++
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "walk")
	}

	if err = tw.Close(); err != nil {
		return "", errors.WithStack(err)
	}
	if err = f.Close(); err != nil {
		return "", errors.WithStack(err)
	}

	debug.Log("archived %d %v files from %v into %v", count, t, s.root, tmpfile)
	return tmpfile, nil
}
