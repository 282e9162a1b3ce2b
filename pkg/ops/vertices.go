package ops

import (
	"fmt"

	"github.com/chazu/facet/pkg/halfedge"
)

// DissolveVertex removes v and every edge at it, joining the faces around
// v into one face, which is returned. The joined face keeps the handle and
// channel values of the face left of v's first outgoing halfedge. v must be
// an interior vertex.
func DissolveVertex(m *halfedge.Mesh, v halfedge.VertexID) (halfedge.FaceID, error) {
	if !m.Connectivity().HasVertex(v) {
		return halfedge.FaceID{}, deadHandle(v)
	}
	var f halfedge.FaceID
	err := m.Edit(func(tmp *halfedge.Mesh) error {
		var err error
		if f, err = dissolveVertex(tmp, v); err != nil {
			return err
		}
		if err := tmp.Check(); err != nil {
			return fmt.Errorf("dissolve %v: %w", v, err)
		}
		return refreshNormals(tmp)
	})
	if err != nil {
		return halfedge.FaceID{}, err
	}
	return f, nil
}

// spoke is an edge at a dissolved vertex, captured before relinking.
type spoke struct {
	h, twin    halfedge.HalfEdgeID
	next, prev halfedge.HalfEdgeID // around the far end
	face       halfedge.FaceID
	far        halfedge.VertexID
}

func dissolveVertex(m *halfedge.Mesh, v halfedge.VertexID) (halfedge.FaceID, error) {
	c := m.Connectivity()
	out, err := c.OutgoingHalfEdges(v)
	if err != nil {
		return halfedge.FaceID{}, err
	}
	if len(out) == 0 {
		return halfedge.FaceID{}, invalid("%v has no edges to dissolve", v)
	}

	spokes := make([]spoke, len(out))
	faces := make(map[halfedge.FaceID]bool, len(out))
	for i, h := range out {
		if c.IsBoundaryEdge(h) {
			return halfedge.FaceID{}, invalid("cannot dissolve boundary vertex %v", v)
		}
		he := c.MustHalfEdge(h)
		if faces[he.Face] {
			return halfedge.FaceID{}, invalid("%v meets %v more than once", v, he.Face)
		}
		faces[he.Face] = true
		prev, err := c.Previous(he.Twin)
		if err != nil {
			return halfedge.FaceID{}, err
		}
		spokes[i] = spoke{h: h, twin: he.Twin, next: he.Next, prev: prev, face: he.Face, far: c.Destination(h)}
	}

	for _, s := range spokes {
		m.SetNext(s.prev, s.next)
		if c.MustVertex(s.far).HalfEdge == s.twin {
			m.SetOutgoing(s.far, s.next)
		}
	}

	loop, err := c.HalfEdgeLoop(spokes[0].next)
	if err != nil {
		return halfedge.FaceID{}, err
	}
	if len(loop) < 3 {
		return halfedge.FaceID{}, invalid("dissolving %v leaves a face with %d sides", v, len(loop))
	}
	inLoop := make(map[halfedge.HalfEdgeID]bool, len(loop))
	for _, h := range loop {
		inLoop[h] = true
	}
	corners := make(map[halfedge.VertexID]bool, len(loop))
	for _, h := range loop {
		he := c.MustHalfEdge(h)
		if corners[he.Vertex] || inLoop[he.Twin] {
			return halfedge.FaceID{}, invalid("dissolving %v would make a face touch %v twice", v, he.Vertex)
		}
		corners[he.Vertex] = true
	}

	face := spokes[0].face
	for _, h := range loop {
		m.SetFace(h, face)
	}
	m.SetFaceHalfEdge(face, loop[0])
	for _, s := range spokes {
		m.RemoveHalfEdge(s.h)
		m.RemoveHalfEdge(s.twin)
		if s.face != face {
			m.RemoveFace(s.face)
		}
	}
	m.RemoveVertex(v)
	return face, nil
}

// ChamferVertex cuts the corner at v: every edge at v is divided at t from
// v, the new points are joined across each face around v, and v is
// dissolved into the face they bound. That face is returned. v must be an
// interior vertex.
func ChamferVertex(m *halfedge.Mesh, v halfedge.VertexID, t float64) (halfedge.FaceID, error) {
	if !m.Connectivity().HasVertex(v) {
		return halfedge.FaceID{}, deadHandle(v)
	}
	if t <= 0 || t >= 1 {
		return halfedge.FaceID{}, invalid("chamfer amount must be in (0, 1), got %g", t)
	}
	var f halfedge.FaceID
	err := m.Edit(func(tmp *halfedge.Mesh) error {
		var err error
		if f, err = chamferVertex(tmp, v, t); err != nil {
			return err
		}
		if err := tmp.Check(); err != nil {
			return fmt.Errorf("chamfer %v: %w", v, err)
		}
		return refreshNormals(tmp)
	})
	if err != nil {
		return halfedge.FaceID{}, err
	}
	return f, nil
}

func chamferVertex(m *halfedge.Mesh, v halfedge.VertexID, t float64) (halfedge.FaceID, error) {
	c := m.Connectivity()
	if onBoundary, err := c.IsBoundaryVertex(v); err != nil {
		return halfedge.FaceID{}, err
	} else if onBoundary {
		return halfedge.FaceID{}, invalid("cannot chamfer boundary vertex %v", v)
	}
	out, err := c.OutgoingHalfEdges(v)
	if err != nil {
		return halfedge.FaceID{}, err
	}
	if len(out) < 3 {
		return halfedge.FaceID{}, invalid("cannot chamfer %v with %d edges", v, len(out))
	}

	// out is in rotation order, so consecutive points share a face.
	points := make([]halfedge.VertexID, len(out))
	for i, h := range out {
		if points[i], err = divideEdge(m, h, t); err != nil {
			return halfedge.FaceID{}, err
		}
	}
	for i, p := range points {
		if _, err := cutFace(m, p, points[(i+1)%len(points)]); err != nil {
			return halfedge.FaceID{}, err
		}
	}
	return dissolveVertex(m, v)
}
