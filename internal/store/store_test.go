package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/filetypefs/ftfs/internal/errors"
	"github.com/filetypefs/ftfs/internal/routing"
	"github.com/filetypefs/ftfs/internal/store"
	rtest "github.com/filetypefs/ftfs/internal/test"
)

func newStore(t *testing.T, id routing.NodeID) *store.Store {
	t.Helper()

	st, err := store.New(id, filepath.Join(rtest.TempDir(t), "root"))
	rtest.OK(t, err)
	return st
}

func TestNewCreatesRoot(t *testing.T) {
	st := newStore(t, routing.NodeN2)

	fi, err := os.Stat(st.Root())
	rtest.OK(t, err)
	rtest.Assert(t, fi.IsDir(), "root is not a directory")

	// opening the same root again must succeed
	_, err = store.New(routing.NodeN2, st.Root())
	rtest.OK(t, err)
}

func TestResolve(t *testing.T) {
	st := newStore(t, routing.NodeN2)

	fn, err := st.Resolve("~/S2/a/b/x.pdf")
	rtest.OK(t, err)
	rtest.Equals(t, filepath.Join(st.Root(), "a", "b", "x.pdf"), fn)

	fn, err = st.Resolve("S2/x.pdf")
	rtest.OK(t, err)
	rtest.Equals(t, filepath.Join(st.Root(), "x.pdf"), fn)

	_, err = st.Resolve("~/S3/x.txt")
	rtest.Assert(t, errors.Is(err, routing.ErrMalformedPath), "expected ErrMalformedPath, got %v", err)

	_, err = st.Resolve("")
	rtest.Assert(t, errors.Is(err, routing.ErrMalformedPath), "expected ErrMalformedPath, got %v", err)
}

func TestSaveFetch(t *testing.T) {
	st := newStore(t, routing.NodeN2)

	data := rtest.Random(23, 2048)
	rtest.OK(t, st.Save("~/S2/a/b/c/report.pdf", data))

	back, err := st.Fetch("~/S2/a/b/c/report.pdf")
	rtest.OK(t, err)
	rtest.Equals(t, data, back)

	// parent directories were created on demand
	fi, err := os.Stat(filepath.Join(st.Root(), "a", "b", "c"))
	rtest.OK(t, err)
	rtest.Assert(t, fi.IsDir(), "parent is not a directory")

	// storing into the same directory again must not fail
	rtest.OK(t, st.Save("~/S2/a/b/c/other.pdf", data))
}

func TestSaveOverwrites(t *testing.T) {
	st := newStore(t, routing.NodeN3)

	rtest.OK(t, st.Save("~/S3/note.txt", []byte("first version, rather long")))
	rtest.OK(t, st.Save("~/S3/note.txt", []byte("second")))

	back, err := st.Fetch("~/S3/note.txt")
	rtest.OK(t, err)
	rtest.Equals(t, []byte("second"), back)
}

func TestFetchMissing(t *testing.T) {
	st := newStore(t, routing.NodeN3)

	_, err := st.Fetch("~/S3/absent.txt")
	rtest.Assert(t, errors.Is(err, os.ErrNotExist), "expected ErrNotExist, got %v", err)
}

func TestRemove(t *testing.T) {
	st := newStore(t, routing.NodeN3)

	rtest.OK(t, st.Save("~/S3/a/note.txt", []byte("data")))
	rtest.OK(t, st.Remove("~/S3/a/note.txt"))

	_, err := st.Fetch("~/S3/a/note.txt")
	rtest.Assert(t, errors.Is(err, os.ErrNotExist), "expected ErrNotExist, got %v", err)

	// the parent directory stays in place
	fi, statErr := os.Stat(filepath.Join(st.Root(), "a"))
	rtest.OK(t, statErr)
	rtest.Assert(t, fi.IsDir(), "parent was removed")

	err = st.Remove("~/S3/a/note.txt")
	rtest.Assert(t, errors.Is(err, os.ErrNotExist), "expected ErrNotExist, got %v", err)
}

func TestList(t *testing.T) {
	st := newStore(t, routing.NodeN1)

	for _, name := range []string{"zz.c", "aa.c", "m.txt", "b.pdf", "a.zip", "k.txt"} {
		rtest.OK(t, st.Save("~/S1/"+name, []byte(name)))
	}

	// entries the listing must skip
	rtest.OK(t, st.Save("~/S1/sub/inner.c", []byte("inner")))
	rtest.OK(t, st.Save("~/S1/.hidden.c", []byte("hidden")))
	rtest.OK(t, os.WriteFile(filepath.Join(st.Root(), "stray.log"), []byte("x"), 0644))

	names, err := st.List("~/S1")
	rtest.OK(t, err)

	want := []string{"aa.c", "zz.c", "b.pdf", "k.txt", "m.txt", "a.zip"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("wrong listing (-want +got):\n%s", diff)
	}
}

func TestListEmptyDir(t *testing.T) {
	st := newStore(t, routing.NodeN2)

	rtest.OK(t, os.MkdirAll(filepath.Join(st.Root(), "empty"), 0755))

	names, err := st.List("~/S2/empty")
	rtest.OK(t, err)
	rtest.Equals(t, 0, len(names))
}

func TestListMissingDir(t *testing.T) {
	st := newStore(t, routing.NodeN2)

	_, err := st.List("~/S2/absent")
	rtest.Assert(t, errors.Is(err, os.ErrNotExist), "expected ErrNotExist, got %v", err)
}
