// Package store implements the five storage operations every node serves
// against its local root directory.
package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/filetypefs/ftfs/internal/debug"
	"github.com/filetypefs/ftfs/internal/errors"
	"github.com/filetypefs/ftfs/internal/routing"
)

const (
	dirMode  = 0755
	fileMode = 0644
)

// Store is the storage backend of one node, rooted at a local directory.
type Store struct {
	node routing.NodeID
	root string
}

// New opens the store for node id at root. A leading ~ in root is expanded
// against the node's home directory. The root is created if it does not exist
// yet; creation is idempotent.
func New(id routing.NodeID, root string) (*Store, error) {
	expanded, err := homedir.Expand(root)
	if err != nil {
		return nil, errors.Wrap(err, "expand root")
	}

	if err := os.MkdirAll(expanded, dirMode); err != nil {
		return nil, errors.WithStack(err)
	}

	debug.Log("node %v storing under %v", id, expanded)
	return &Store{node: id, root: expanded}, nil
}

// NodeID returns the node this store belongs to.
func (s *Store) NodeID() routing.NodeID {
	return s.node
}

// Root returns the expanded root directory.
func (s *Store) Root() string {
	return s.root
}

// Resolve maps a wire path ("~/S2/a/b/x.pdf") onto the local filesystem. The
// segment must name this node's root; everything below it is preserved
// verbatim.
func (s *Store) Resolve(wirePath string) (string, error) {
	p := strings.TrimPrefix(wirePath, "~/")
	if p == "" || strings.HasPrefix(p, "/") {
		return "", errors.Wrap(routing.ErrMalformedPath, wirePath)
	}

	segs := strings.Split(p, "/")
	if segs[0] != routing.Segment(s.node) {
		return "", errors.Wrapf(routing.ErrMalformedPath, "%v is not anchored at %v", wirePath, routing.Segment(s.node))
	}

	return filepath.Join(append([]string{s.root}, segs[1:]...)...), nil
}

// Save writes data to the file at wirePath, truncating any prior content.
// Missing parent directories are created first; creation is idempotent. The
// data is written to a temporary sibling and renamed into place.
func (s *Store) Save(wirePath string, data []byte) error {
	finalname, err := s.Resolve(wirePath)
	if err != nil {
		return err
	}

	dir := filepath.Dir(finalname)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return errors.WithStack(err)
	}

	f, err := os.CreateTemp(dir, filepath.Base(finalname)+"-tmp-")
	if err != nil {
		return errors.WithStack(err)
	}

	defer func() {
		if err != nil {
			_ = f.Close() // Double Close is harmless.
			_ = os.Remove(f.Name())
		}
	}()

	if _, err = f.Write(data); err != nil {
		return errors.WithStack(err)
	}

	// Ignore sync errors from filesystems that do not support it.
	_ = f.Sync()

	// Close, then rename. Windows doesn't like the reverse order.
	if err = f.Close(); err != nil {
		return errors.WithStack(err)
	}
	if err = os.Rename(f.Name(), finalname); err != nil {
		return errors.WithStack(err)
	}

	if err = os.Chmod(finalname, fileMode); err != nil && !os.IsPermission(err) {
		return errors.WithStack(err)
	}

	debug.Log("saved %d bytes at %v", len(data), finalname)
	return nil
}

// Fetch reads and returns the full contents of the file at wirePath.
func (s *Store) Fetch(wirePath string) ([]byte, error) {
	fn, err := s.Resolve(wirePath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fn)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return data, nil
}

// Remove unlinks the file at wirePath. Now-empty parent directories are left
// in place.
func (s *Store) Remove(wirePath string) error {
	fn, err := s.Resolve(wirePath)
	if err != nil {
		return err
	}

	return errors.WithStack(os.Remove(fn))
}

// List enumerates the regular files directly in the directory at wirePath,
// ordered by extension class (c, pdf, txt, zip) and lexicographically within
// each class. Hidden entries, subdirectories and files of unrecognized types
// are omitted. An empty existing directory yields an empty list.
func (s *Store) List(wirePath string) ([]string, error) {
	dir, err := s.Resolve(wirePath)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	byClass := make(map[routing.FileType][]string)
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}

		t, err := routing.TypeOf(e.Name())
		if err != nil {
			continue
		}

		byClass[t] = append(byClass[t], e.Name())
	}

	var names []string
	for _, t := range routing.ClassOrder {
		class := byClass[t]
		sort.Strings(class)
		names = append(names, class...)
	}

	return names, nil
}
