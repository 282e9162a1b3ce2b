package halfedge

import "github.com/chazu/facet/pkg/arena"

// VertexID identifies a vertex. The zero value means "no vertex".
type VertexID arena.Handle

// HalfEdgeID identifies a halfedge. The zero value means "no halfedge".
type HalfEdgeID arena.Handle

// FaceID identifies a face. The zero value means "no face", which on a
// halfedge marks it as a boundary halfedge.
type FaceID arena.Handle

func (id VertexID) String() string   { return "VertexID(" + arena.Handle(id).String() + ")" }
func (id HalfEdgeID) String() string { return "HalfEdgeID(" + arena.Handle(id).String() + ")" }
func (id FaceID) String() string     { return "FaceID(" + arena.Handle(id).String() + ")" }

func (id VertexID) IsZero() bool   { return arena.Handle(id).IsZero() }
func (id HalfEdgeID) IsZero() bool { return arena.Handle(id).IsZero() }
func (id FaceID) IsZero() bool     { return arena.Handle(id).IsZero() }

func (id VertexID) Less(o VertexID) bool     { return arena.Handle(id).Less(arena.Handle(o)) }
func (id HalfEdgeID) Less(o HalfEdgeID) bool { return arena.Handle(id).Less(arena.Handle(o)) }
func (id FaceID) Less(o FaceID) bool         { return arena.Handle(id).Less(arena.Handle(o)) }

// ElementKind names one of the three element arenas.
type ElementKind int

const (
	KindVertex ElementKind = iota
	KindHalfEdge
	KindFace
)

func (k ElementKind) String() string {
	switch k {
	case KindVertex:
		return "vertex"
	case KindHalfEdge:
		return "halfedge"
	case KindFace:
		return "face"
	}
	return "unknown"
}

// ParseElementKind accepts "vertex", "halfedge" or "face".
func ParseElementKind(s string) (ElementKind, bool) {
	switch s {
	case "vertex", "vertices":
		return KindVertex, true
	case "halfedge", "halfedges", "edge", "edges":
		return KindHalfEdge, true
	case "face", "faces":
		return KindFace, true
	}
	return 0, false
}

// Key is the set of element handle types.
type Key interface {
	VertexID | HalfEdgeID | FaceID
	String() string
}

func kindOf[K Key]() ElementKind {
	var k K
	switch any(k).(type) {
	case VertexID:
		return KindVertex
	case HalfEdgeID:
		return KindHalfEdge
	default:
		return KindFace
	}
}

func cmpHandle(a, b arena.Handle) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}
