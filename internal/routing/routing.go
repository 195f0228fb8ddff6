// Package routing decides which node owns a file and rewrites client-visible
// paths into node-local ones. Both operations are pure functions of the fixed
// type table, there is no state and no I/O here.
package routing

import (
	"strings"

	"github.com/filetypefs/ftfs/internal/errors"
)

// FileType is the lowercased extension of a file name, without the dot.
type FileType string

// The recognized file types. Every other extension is rejected at the front
// door.
const (
	TypeC   FileType = "c"
	TypePDF FileType = "pdf"
	TypeTXT FileType = "txt"
	TypeZIP FileType = "zip"
)

// NodeID identifies one of the four nodes.
type NodeID string

const (
	NodeN1 NodeID = "n1"
	NodeN2 NodeID = "n2"
	NodeN3 NodeID = "n3"
	NodeN4 NodeID = "n4"
)

// ErrUnsupportedType is returned for file names whose extension is not in the
// routing table, or which have no extension at all.
var ErrUnsupportedType = errors.New("unsupported file type")

// ErrUnsupportedArchive is returned when an archive is requested for a type
// that cannot be archived.
var ErrUnsupportedArchive = errors.New("archive not supported for this file type")

// ErrMalformedPath is returned for absolute paths that are not anchored at a
// recognized storage root.
var ErrMalformedPath = errors.New("malformed path")

// The routing table is fixed at build time.
var owners = map[FileType]NodeID{
	TypeC:   NodeN1,
	TypePDF: NodeN2,
	TypeTXT: NodeN3,
	TypeZIP: NodeN4,
}

var segments = map[NodeID]string{
	NodeN1: "S1",
	NodeN2: "S2",
	NodeN3: "S3",
	NodeN4: "S4",
}

// AllNodes lists the node ids in their fixed aggregation order. The order
// matters: dispfnames concatenates per-node listings in exactly this sequence,
// which yields the global c, pdf, txt, zip class order.
var AllNodes = []NodeID{NodeN1, NodeN2, NodeN3, NodeN4}

// ClassOrder lists the file types in the order directory listings are
// presented.
var ClassOrder = []FileType{TypeC, TypePDF, TypeTXT, TypeZIP}

// ParseType validates a literal type argument, as used by downltar.
func ParseType(s string) (FileType, error) {
	t := FileType(strings.ToLower(s))
	if _, ok := owners[t]; !ok {
		return "", errors.Wrap(ErrUnsupportedType, s)
	}
	return t, nil
}

// TypeOf derives the FileType from a file name. The extension is everything
// after the final dot, lowercased.
func TypeOf(filename string) (FileType, error) {
	base := filename
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}

	idx := strings.LastIndexByte(base, '.')
	if idx < 0 || idx == len(base)-1 {
		return "", errors.Wrap(ErrUnsupportedType, filename)
	}

	t := FileType(strings.ToLower(base[idx+1:]))
	if _, ok := owners[t]; !ok {
		return "", errors.Wrap(ErrUnsupportedType, filename)
	}

	return t, nil
}

// Owner returns the node owning files of type t. It must only be called with
// one of the recognized types.
func Owner(t FileType) NodeID {
	return owners[t]
}

// Segment returns the root directory segment for a node ("S1" for n1 and so
// on).
func Segment(id NodeID) string {
	return segments[id]
}

// Archivable reports whether downltar accepts the type. Zip archives are
// stored as-is and never re-archived.
func Archivable(t FileType) bool {
	return t == TypeC || t == TypePDF || t == TypeTXT
}

// Rewrite translates a client-visible path into the path on the target node.
// The first segment matching a recognized root ("S1".."S4") is replaced with
// the target's segment; every other segment passes through verbatim. A bare
// file name (no slash) is placed directly below the target's root. No
// normalization and no traversal defense happens here, callers are trusted.
func Rewrite(logical string, target NodeID) (string, error) {
	if logical == "" {
		return "", errors.Wrap(ErrMalformedPath, "empty path")
	}

	if !strings.ContainsRune(logical, '/') {
		// bare file name, relative to the default root
		return "~/" + segments[target] + "/" + logical, nil
	}

	segs := strings.Split(logical, "/")

	// locate the anchor: "~/S1/..." has it at index 1, "S1/..." at index 0
	anchor := -1
	switch {
	case segs[0] == "~" && len(segs) > 1:
		anchor = 1
	case segs[0] == "":
		// absolute path: only recognized when some segment is a known root
		for i, s := range segs {
			if isRootSegment(s) {
				anchor = i
				break
			}
		}
		if anchor < 0 {
			return "", errors.Wrap(ErrMalformedPath, logical)
		}
	default:
		anchor = 0
	}

	if !isRootSegment(segs[anchor]) {
		if segs[0] == "~" {
			return "", errors.Wrap(ErrMalformedPath, logical)
		}
		// relative path without a root anchor, resolved against the default
		// root
		return "~/" + segments[target] + "/" + logical, nil
	}

	segs[anchor] = segments[target]
	return strings.Join(segs, "/"), nil
}

func isRootSegment(s string) bool {
	for _, seg := range segments {
		if s == seg {
			return true
		}
	}
	return false
}
