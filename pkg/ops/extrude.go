package ops

import (
	"fmt"

	"github.com/chazu/facet/pkg/halfedge"
	"github.com/chazu/facet/pkg/vecmath"
)

// ExtrudeFaces pushes faces out along their normals by amount and joins
// them to the surrounding surface with a ring of quads. Faces that share an
// edge move together. The extruded faces keep their handles; the new side
// faces are returned in creation order.
//
// A vertex shared by several extruded faces moves by the sum of their
// distinct normals times amount.
func ExtrudeFaces(m *halfedge.Mesh, faces []halfedge.FaceID, amount float64) ([]halfedge.FaceID, error) {
	var sides []halfedge.FaceID
	err := m.Edit(func(tmp *halfedge.Mesh) error {
		var err error
		if sides, err = extrude(tmp, faces, amount); err != nil {
			return err
		}
		return refreshNormals(tmp)
	})
	if err != nil {
		return nil, err
	}
	return sides, nil
}

// ExtrudeWithCaps extrudes faces like ExtrudeFaces after leaving a
// reversed copy of each one behind, so an open sheet becomes a closed
// solid. The caps are separate faces and do not share vertices with the
// extrusion; weld them with MergeByDistance.
func ExtrudeWithCaps(m *halfedge.Mesh, faces []halfedge.FaceID, amount float64) ([]halfedge.FaceID, error) {
	var sides []halfedge.FaceID
	err := m.Edit(func(tmp *halfedge.Mesh) error {
		c := tmp.Connectivity()
		faces, err := uniqueFaces(c, faces)
		if err != nil {
			return err
		}
		for _, f := range faces {
			fv, err := c.FaceVertices(f)
			if err != nil {
				return err
			}
			pos := make([]vecmath.Vec3, len(fv))
			poly := make([]int, len(fv))
			for i := range fv {
				pos[i] = tmp.Position(fv[len(fv)-1-i])
				poly[i] = i
			}
			lid, err := halfedge.FromPolygons(pos, [][]int{poly})
			if err != nil {
				return fmt.Errorf("cap %v: %w", f, err)
			}
			if _, err := tmp.Merge(lid); err != nil {
				return err
			}
		}
		if sides, err = extrude(tmp, faces, amount); err != nil {
			return err
		}
		return refreshNormals(tmp)
	})
	if err != nil {
		return nil, err
	}
	return sides, nil
}

// wall is a region boundary halfedge h together with its outside twin.
type wall struct {
	h, twin halfedge.HalfEdgeID
	face    halfedge.FaceID
	a, b    halfedge.VertexID // bottom endpoints, shared with the outside
}

func extrude(m *halfedge.Mesh, faces []halfedge.FaceID, amount float64) ([]halfedge.FaceID, error) {
	c := m.Connectivity()
	faces, err := uniqueFaces(c, faces)
	if err != nil || len(faces) == 0 {
		return nil, err
	}
	region := make(map[halfedge.FaceID]bool, len(faces))
	for _, f := range faces {
		region[f] = true
	}

	normals := make(map[halfedge.FaceID]vecmath.Vec3, len(faces))
	for _, f := range faces {
		n, err := m.FaceNormal(f)
		if err != nil {
			return nil, fmt.Errorf("extrude %v: %w", f, err)
		}
		normals[f] = n
	}

	var walls []wall
	var touched []halfedge.VertexID
	seen := make(map[halfedge.VertexID]bool)
	for _, f := range faces {
		hs, err := c.FaceHalfEdges(f)
		if err != nil {
			return nil, err
		}
		for _, h := range hs {
			twin := c.MustHalfEdge(h).Twin
			if region[c.MustHalfEdge(twin).Face] {
				continue
			}
			a, b := c.Endpoints(h)
			walls = append(walls, wall{h: h, twin: twin, face: f, a: a, b: b})
			for _, v := range []halfedge.VertexID{a, b} {
				if !seen[v] {
					seen[v] = true
					touched = append(touched, v)
				}
			}
		}
	}

	for _, v := range touched {
		if err := splitSectors(m, v, region); err != nil {
			return nil, err
		}
	}

	// Side edges pair up at their top vertex: the up edge of one wall with
	// the down edge of the next wall around the region boundary.
	ups := make(map[halfedge.VertexID]halfedge.HalfEdgeID, len(walls))
	downs := make(map[halfedge.VertexID]halfedge.HalfEdgeID, len(walls))
	sides := make([]halfedge.FaceID, 0, len(walls))
	for _, w := range walls {
		topA, topB := c.MustHalfEdge(w.h).Vertex, c.MustHalfEdge(c.MustHalfEdge(w.h).Next).Vertex

		w0 := m.AddHalfEdge(halfedge.HalfEdge{Vertex: w.a})
		w1 := m.AddHalfEdge(halfedge.HalfEdge{Vertex: w.b})
		w2 := m.AddHalfEdge(halfedge.HalfEdge{Vertex: topB})
		w3 := m.AddHalfEdge(halfedge.HalfEdge{Vertex: topA})
		side := m.AddFace(w0)
		loop := []halfedge.HalfEdgeID{w0, w1, w2, w3}
		for i, h := range loop {
			m.SetNext(h, loop[(i+1)%4])
			m.SetFace(h, side)
		}
		m.SetTwins(w0, w.twin)
		m.SetTwins(w2, w.h)
		ups[topB] = w1
		downs[topA] = w3

		if err := halfedge.CopyChannelValues(m, m, w.face, side); err != nil {
			return nil, err
		}
		sides = append(sides, side)
	}
	for top, up := range ups {
		down, ok := downs[top]
		if !ok {
			return nil, fmt.Errorf("%w: extrude left an open side at %v", halfedge.ErrMalformedMesh, top)
		}
		m.SetTwins(up, down)
	}

	pushes := make(map[halfedge.VertexID][]vecmath.Vec3)
	var order []halfedge.VertexID
	for _, f := range faces {
		verts, err := c.FaceVertices(f)
		if err != nil {
			return nil, err
		}
		for _, v := range verts {
			if _, ok := pushes[v]; !ok {
				order = append(order, v)
			}
			pushes[v] = appendDistinct(pushes[v], normals[f])
		}
	}
	for _, v := range order {
		var sum vecmath.Vec3
		for _, n := range pushes[v] {
			sum = sum.Add(n)
		}
		m.SetPosition(v, m.Position(v).Add(sum.Scale(amount)))
	}
	return sides, nil
}

func appendDistinct(ns []vecmath.Vec3, n vecmath.Vec3) []vecmath.Vec3 {
	for _, x := range ns {
		if x.ApproxEqual(n, 1e-9) {
			return ns
		}
	}
	return append(ns, n)
}

// splitSectors gives every run of region faces around v its own copy of v,
// leaving v itself to the faces outside the region.
func splitSectors(m *halfedge.Mesh, v halfedge.VertexID, region map[halfedge.FaceID]bool) error {
	c := m.Connectivity()
	outs, err := c.OutgoingHalfEdges(v)
	if err != nil {
		return err
	}
	inRegion := func(h halfedge.HalfEdgeID) bool { return region[c.MustHalfEdge(h).Face] }

	outside := -1
	for i, h := range outs {
		if !inRegion(h) {
			outside = i
			break
		}
	}
	if outside < 0 {
		return nil
	}

	var sector []halfedge.HalfEdgeID
	flush := func() error {
		if len(sector) == 0 {
			return nil
		}
		nv := m.AddVertex(m.Position(v))
		if err := halfedge.CopyChannelValues(m, m, v, nv); err != nil {
			return err
		}
		for _, h := range sector {
			m.SetOrigin(h, nv)
		}
		m.SetOutgoing(nv, sector[0])
		sector = nil
		return nil
	}
	for i := 1; i <= len(outs); i++ {
		h := outs[(outside+i)%len(outs)]
		if inRegion(h) {
			sector = append(sector, h)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
	}
	m.SetOutgoing(v, outs[outside])
	return nil
}
