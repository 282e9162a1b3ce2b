package ops

import (
	"fmt"

	"github.com/chazu/facet/pkg/halfedge"
)

// DivideEdge splits the edge of h at parameter t in [0, 1] from h's origin
// and returns the new vertex. With v->w the endpoints of h, h becomes the
// x->w half and a new halfedge carries v->x.
func DivideEdge(m *halfedge.Mesh, h halfedge.HalfEdgeID, t float64) (halfedge.VertexID, error) {
	if !m.Connectivity().HasHalfEdge(h) {
		return halfedge.VertexID{}, deadHandle(h)
	}
	if t < 0 || t > 1 {
		return halfedge.VertexID{}, invalid("divide parameter must be in [0, 1], got %g", t)
	}
	var x halfedge.VertexID
	err := m.Edit(func(tmp *halfedge.Mesh) error {
		var err error
		x, err = divideEdge(tmp, h, t)
		if err != nil {
			return err
		}
		return refreshNormals(tmp)
	})
	if err != nil {
		return halfedge.VertexID{}, err
	}
	return x, nil
}

func divideEdge(m *halfedge.Mesh, h halfedge.HalfEdgeID, t float64) (halfedge.VertexID, error) {
	c := m.Connectivity()
	he := *c.MustHalfEdge(h)
	r := he.Twin
	re := *c.MustHalfEdge(r)
	prev, err := c.Previous(h)
	if err != nil {
		return halfedge.VertexID{}, err
	}
	v, w := he.Vertex, re.Vertex

	x := m.AddVertex(m.Position(v).Lerp(m.Position(w), t))
	h2 := m.AddHalfEdge(halfedge.HalfEdge{Next: h, Vertex: v, Face: he.Face})
	r2 := m.AddHalfEdge(halfedge.HalfEdge{Next: re.Next, Vertex: x, Face: re.Face})
	if re.Next == h {
		// v is the end of a wire: the walk turns around at v.
		m.SetNext(r2, h2)
	}

	m.SetNext(prev, h2)
	m.SetNext(r, r2)
	m.SetTwins(h2, r2)
	m.SetOrigin(h, x)
	m.SetOutgoing(x, h)
	m.SetOutgoing(v, h2)
	if err := halfedge.CopyChannelValues(m, m, h, h2); err != nil {
		return halfedge.VertexID{}, err
	}
	if err := halfedge.CopyChannelValues(m, m, r, r2); err != nil {
		return halfedge.VertexID{}, err
	}
	return x, nil
}

// DissolveEdge removes the edge of h and merges the faces on its two sides
// into h's face. Both sides must be distinct faces.
func DissolveEdge(m *halfedge.Mesh, h halfedge.HalfEdgeID) error {
	c := m.Connectivity()
	if !c.HasHalfEdge(h) {
		return deadHandle(h)
	}
	r := c.MustHalfEdge(h).Twin
	fl, fr := c.MustHalfEdge(h).Face, c.MustHalfEdge(r).Face
	if fl.IsZero() || fr.IsZero() {
		return invalid("cannot dissolve boundary edge %v", h)
	}
	if fl == fr {
		return invalid("%v has %v on both sides", h, fl)
	}
	return m.Edit(func(tmp *halfedge.Mesh) error {
		if err := dissolveEdge(tmp, h); err != nil {
			return err
		}
		if err := tmp.Check(); err != nil {
			return fmt.Errorf("dissolve %v: %w", h, err)
		}
		return refreshNormals(tmp)
	})
}

func dissolveEdge(m *halfedge.Mesh, hl halfedge.HalfEdgeID) error {
	c := m.Connectivity()
	hr := c.MustHalfEdge(hl).Twin
	fl, fr := c.MustHalfEdge(hl).Face, c.MustHalfEdge(hr).Face
	v, w := c.Endpoints(hl)

	lNext, rNext := c.MustHalfEdge(hl).Next, c.MustHalfEdge(hr).Next
	lPrev, err := c.Previous(hl)
	if err != nil {
		return err
	}
	rPrev, err := c.Previous(hr)
	if err != nil {
		return err
	}
	rLoop, err := c.HalfEdgeLoop(hr)
	if err != nil {
		return err
	}

	m.SetNext(rPrev, lNext)
	m.SetNext(lPrev, rNext)
	for _, h := range rLoop {
		m.SetFace(h, fl)
	}
	if c.MustFace(fl).HalfEdge == hl {
		m.SetFaceHalfEdge(fl, lPrev)
	}
	if c.MustVertex(v).HalfEdge == hl {
		m.SetOutgoing(v, rNext)
	}
	if c.MustVertex(w).HalfEdge == hr {
		m.SetOutgoing(w, lNext)
	}

	m.RemoveHalfEdge(hl)
	m.RemoveHalfEdge(hr)
	m.RemoveFace(fr)
	return nil
}

// CutFace splits the face shared by v and w with a new edge from v to w and
// returns the new halfedge running v->w. The vertices must share a face of
// at least four sides but must not already share an edge. The part of the
// face after w keeps the face handle; the part after v gets a new face.
func CutFace(m *halfedge.Mesh, v, w halfedge.VertexID) (halfedge.HalfEdgeID, error) {
	c := m.Connectivity()
	if !c.HasVertex(v) {
		return halfedge.HalfEdgeID{}, deadHandle(v)
	}
	if !c.HasVertex(w) {
		return halfedge.HalfEdgeID{}, deadHandle(w)
	}
	var cut halfedge.HalfEdgeID
	err := m.Edit(func(tmp *halfedge.Mesh) error {
		var err error
		cut, err = cutFace(tmp, v, w)
		if err != nil {
			return err
		}
		return refreshNormals(tmp)
	})
	if err != nil {
		return halfedge.HalfEdgeID{}, err
	}
	return cut, nil
}

func cutFace(m *halfedge.Mesh, v, w halfedge.VertexID) (halfedge.HalfEdgeID, error) {
	c := m.Connectivity()
	if v == w {
		return halfedge.HalfEdgeID{}, invalid("cannot cut a face from %v to itself", v)
	}
	if _, ok, err := c.HalfEdgeBetween(v, w); err != nil {
		return halfedge.HalfEdgeID{}, err
	} else if ok {
		return halfedge.HalfEdgeID{}, invalid("%v and %v already share an edge", v, w)
	}

	faces, err := c.AdjacentFaces(v)
	if err != nil {
		return halfedge.HalfEdgeID{}, err
	}
	var face halfedge.FaceID
	var loop []halfedge.HalfEdgeID
	vi, wi := -1, -1
	for _, f := range faces {
		hs, err := c.FaceHalfEdges(f)
		if err != nil {
			return halfedge.HalfEdgeID{}, err
		}
		vi, wi = -1, -1
		for i, h := range hs {
			switch c.MustHalfEdge(h).Vertex {
			case v:
				vi = i
			case w:
				wi = i
			}
		}
		if vi >= 0 && wi >= 0 {
			face, loop = f, hs
			break
		}
	}
	if face.IsZero() {
		return halfedge.HalfEdgeID{}, invalid("%v and %v do not share a face", v, w)
	}
	n := len(loop)
	if n <= 3 {
		return halfedge.HalfEdgeID{}, invalid("cannot cut %v with %d sides", face, n)
	}

	vPrev, vNext := loop[(vi+n-1)%n], loop[vi]
	wPrev, wNext := loop[(wi+n-1)%n], loop[wi]

	hvw := m.AddHalfEdge(halfedge.HalfEdge{Next: wNext, Vertex: v, Face: face})
	hwv := m.AddHalfEdge(halfedge.HalfEdge{Next: vNext, Vertex: w})
	split := m.AddFace(hwv)
	m.SetFace(hwv, split)
	m.SetTwins(hvw, hwv)
	m.SetNext(vPrev, hvw)
	m.SetNext(wPrev, hwv)
	m.SetFaceHalfEdge(face, hvw)

	for i := vi; i != wi; i = (i + 1) % n {
		m.SetFace(loop[i], split)
	}
	if err := halfedge.CopyChannelValues(m, m, face, split); err != nil {
		return halfedge.HalfEdgeID{}, err
	}
	return hvw, nil
}
