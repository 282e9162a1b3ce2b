package halfedge

import "github.com/chazu/facet/pkg/arena"

// Vertex stores one outgoing halfedge. Any of the vertex's outgoing
// halfedges may be chosen. Isolated vertices have none.
type Vertex struct {
	HalfEdge HalfEdgeID
}

// HalfEdge is one directed side of an edge.
type HalfEdge struct {
	Next   HalfEdgeID // successor around the face or boundary loop
	Twin   HalfEdgeID // opposite direction along the same edge
	Vertex VertexID   // origin
	Face   FaceID     // zero on boundary halfedges
}

// Face stores one halfedge of its loop.
type Face struct {
	HalfEdge HalfEdgeID
}

// Connectivity owns the three element arenas. It only stores and looks up;
// the operations that populate it are responsible for the invariants.
//
// Pointers returned by the accessors are invalidated by the next element
// allocation of the same kind.
type Connectivity struct {
	vertices  *arena.Arena[Vertex]
	halfEdges *arena.Arena[HalfEdge]
	faces     *arena.Arena[Face]
}

func newConnectivity() *Connectivity {
	return &Connectivity{
		vertices:  arena.New[Vertex]("vertex"),
		halfEdges: arena.New[HalfEdge]("halfedge"),
		faces:     arena.New[Face]("face"),
	}
}

// successor returns empty storage that never reissues one of c's handles.
func (c *Connectivity) successor() *Connectivity {
	return &Connectivity{
		vertices:  c.vertices.Successor(),
		halfEdges: c.halfEdges.Successor(),
		faces:     c.faces.Successor(),
	}
}

func (c *Connectivity) clone() *Connectivity {
	return &Connectivity{
		vertices:  c.vertices.Clone(),
		halfEdges: c.halfEdges.Clone(),
		faces:     c.faces.Clone(),
	}
}

// Vertex returns the vertex for id, or false if id is stale.
func (c *Connectivity) Vertex(id VertexID) (*Vertex, bool) {
	return c.vertices.Get(arena.Handle(id))
}

// HalfEdge returns the halfedge for id, or false if id is stale.
func (c *Connectivity) HalfEdge(id HalfEdgeID) (*HalfEdge, bool) {
	return c.halfEdges.Get(arena.Handle(id))
}

// Face returns the face for id, or false if id is stale.
func (c *Connectivity) Face(id FaceID) (*Face, bool) {
	return c.faces.Get(arena.Handle(id))
}

// MustVertex is Vertex for callers that hold a handle they know is live.
// It panics with *InvalidHandleError otherwise.
func (c *Connectivity) MustVertex(id VertexID) *Vertex {
	v, ok := c.Vertex(id)
	if !ok {
		panic(&InvalidHandleError{Kind: "vertex", Handle: id})
	}
	return v
}

// MustHalfEdge panics with *InvalidHandleError if id is stale.
func (c *Connectivity) MustHalfEdge(id HalfEdgeID) *HalfEdge {
	h, ok := c.HalfEdge(id)
	if !ok {
		panic(&InvalidHandleError{Kind: "halfedge", Handle: id})
	}
	return h
}

// MustFace panics with *InvalidHandleError if id is stale.
func (c *Connectivity) MustFace(id FaceID) *Face {
	f, ok := c.Face(id)
	if !ok {
		panic(&InvalidHandleError{Kind: "face", Handle: id})
	}
	return f
}

func (c *Connectivity) HasVertex(id VertexID) bool     { return c.vertices.Contains(arena.Handle(id)) }
func (c *Connectivity) HasHalfEdge(id HalfEdgeID) bool { return c.halfEdges.Contains(arena.Handle(id)) }
func (c *Connectivity) HasFace(id FaceID) bool         { return c.faces.Contains(arena.Handle(id)) }

func (c *Connectivity) NumVertices() int  { return c.vertices.Len() }
func (c *Connectivity) NumHalfEdges() int { return c.halfEdges.Len() }
func (c *Connectivity) NumFaces() int     { return c.faces.Len() }

// VertexIDs returns the live vertices in arena order.
func (c *Connectivity) VertexIDs() []VertexID {
	return convertHandles[VertexID](c.vertices.Handles())
}

// HalfEdgeIDs returns the live halfedges in arena order.
func (c *Connectivity) HalfEdgeIDs() []HalfEdgeID {
	return convertHandles[HalfEdgeID](c.halfEdges.Handles())
}

// FaceIDs returns the live faces in arena order.
func (c *Connectivity) FaceIDs() []FaceID {
	return convertHandles[FaceID](c.faces.Handles())
}

func (c *Connectivity) contains(kind ElementKind, h arena.Handle) bool {
	switch kind {
	case KindVertex:
		return c.vertices.Contains(h)
	case KindHalfEdge:
		return c.halfEdges.Contains(h)
	default:
		return c.faces.Contains(h)
	}
}

func convertHandles[K Key](hs []arena.Handle) []K {
	out := make([]K, len(hs))
	for i, h := range hs {
		out[i] = K(h)
	}
	return out
}
