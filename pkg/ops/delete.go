package ops

import (
	"fmt"

	"github.com/chazu/facet/pkg/halfedge"
)

// DeleteFaces removes faces, then every edge left with no face on either
// side, then every vertex left with no edges. Boundary loops are relinked
// around the hole.
func DeleteFaces(m *halfedge.Mesh, faces []halfedge.FaceID) error {
	faces, err := uniqueFaces(m.Connectivity(), faces)
	if err != nil {
		return err
	}
	if len(faces) == 0 {
		return nil
	}
	return m.Edit(func(tmp *halfedge.Mesh) error {
		if err := deleteFaces(tmp, faces, nil); err != nil {
			return err
		}
		return refreshNormals(tmp)
	})
}

// DeleteVertex removes v together with its incident faces and edges.
func DeleteVertex(m *halfedge.Mesh, v halfedge.VertexID) error {
	if !m.Connectivity().HasVertex(v) {
		return deadHandle(v)
	}
	return m.Edit(func(tmp *halfedge.Mesh) error {
		c := tmp.Connectivity()
		outs, err := c.OutgoingHalfEdges(v)
		if err != nil {
			return err
		}
		faces, err := c.AdjacentFaces(v)
		if err != nil {
			return err
		}
		if err := deleteFaces(tmp, faces, outs); err != nil {
			return err
		}
		if c.HasVertex(v) {
			if !c.MustVertex(v).HalfEdge.IsZero() {
				return fmt.Errorf("%w: %v still has edges after deleting its faces", halfedge.ErrMalformedMesh, v)
			}
			tmp.RemoveVertex(v)
		}
		return refreshNormals(tmp)
	})
}

// deleteFaces removes faces and then tries to remove the edges of those
// faces and the extra edges. An edge goes only when both of its halfedges
// are boundary.
func deleteFaces(m *halfedge.Mesh, faces []halfedge.FaceID, extra []halfedge.HalfEdgeID) error {
	c := m.Connectivity()
	var candidates []halfedge.HalfEdgeID
	for _, f := range faces {
		hs, err := c.FaceHalfEdges(f)
		if err != nil {
			return err
		}
		for _, h := range hs {
			m.SetFace(h, halfedge.FaceID{})
		}
		m.RemoveFace(f)
		candidates = append(candidates, hs...)
	}
	candidates = append(candidates, extra...)

	var touched []halfedge.VertexID
	for _, h := range candidates {
		if !c.HasHalfEdge(h) {
			continue
		}
		twin := c.MustHalfEdge(h).Twin
		if !c.IsBoundary(h) || !c.IsBoundary(twin) {
			continue
		}
		v, w := c.Endpoints(h)
		if err := removeEdge(m, h); err != nil {
			return err
		}
		touched = append(touched, v, w)
	}
	for _, v := range touched {
		if c.HasVertex(v) && c.MustVertex(v).HalfEdge.IsZero() {
			m.RemoveVertex(v)
		}
	}
	return nil
}

// removeEdge unlinks the bare edge h from the boundary loops it sits on and
// frees both halfedges. An endpoint left without edges gets a zero
// outgoing halfedge.
func removeEdge(m *halfedge.Mesh, h halfedge.HalfEdgeID) error {
	c := m.Connectivity()
	t := c.MustHalfEdge(h).Twin
	v, w := c.MustHalfEdge(h).Vertex, c.MustHalfEdge(t).Vertex
	ph, err := c.Previous(h)
	if err != nil {
		return err
	}
	pt, err := c.Previous(t)
	if err != nil {
		return err
	}
	nh, nt := c.MustHalfEdge(h).Next, c.MustHalfEdge(t).Next

	m.SetNext(ph, nt)
	m.SetNext(pt, nh)
	if c.MustVertex(v).HalfEdge == h {
		if nt == h {
			m.SetOutgoing(v, halfedge.HalfEdgeID{})
		} else {
			m.SetOutgoing(v, nt)
		}
	}
	if c.MustVertex(w).HalfEdge == t {
		if nh == t {
			m.SetOutgoing(w, halfedge.HalfEdgeID{})
		} else {
			m.SetOutgoing(w, nh)
		}
	}
	m.RemoveHalfEdge(h)
	m.RemoveHalfEdge(t)
	return nil
}
