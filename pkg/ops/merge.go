package ops

import (
	"math"

	"github.com/chazu/facet/pkg/halfedge"
	"github.com/chazu/facet/pkg/vecmath"
	"github.com/dhconnelly/rtreego"
)

// Merge appends a copy of src to dst and returns the handle mapping from
// src to dst.
func Merge(dst, src *halfedge.Mesh) (halfedge.Remap, error) {
	return dst.Merge(src)
}

// vertexEntry is a vertex stored in the spatial index.
type vertexEntry struct {
	index int
	rect  rtreego.Rect
}

func (e *vertexEntry) Bounds() rtreego.Rect { return e.rect }

// MergeByDistance welds vertices closer than tolerance and returns how many
// vertices were removed. Each cluster collapses onto its first vertex in
// arena order. Faces that lose all but two distinct vertices are dropped.
//
// The mesh is rebuilt, so every handle issued before the call is invalid
// afterwards. Vertex and face channel values follow the surviving
// elements; halfedge channel values are dropped. The mesh must not have wire
// edges.
func MergeByDistance(m *halfedge.Mesh, tolerance float64) (int, error) {
	if tolerance < 0 {
		return 0, invalid("merge tolerance must not be negative, got %g", tolerance)
	}
	if err := requireFaceEdges(m, "merge by distance"); err != nil {
		return 0, err
	}

	c := m.Connectivity()
	verts := c.VertexIDs()
	if len(verts) == 0 {
		return 0, nil
	}

	// Index every vertex as a tiny box; query with a box of half-width
	// tolerance and confirm candidates with the exact distance.
	entries := make([]rtreego.Spatial, len(verts))
	for i, v := range verts {
		entries[i] = &vertexEntry{index: i, rect: paddedRect(m.Position(v), 0)}
	}
	tree := rtreego.NewTree(3, 4, 16, entries...)

	rep := make([]int, len(verts))
	for i := range rep {
		rep[i] = -1
	}
	for i, v := range verts {
		if rep[i] >= 0 {
			continue
		}
		rep[i] = i
		p := m.Position(v)
		for _, s := range tree.SearchIntersect(paddedRect(p, tolerance)) {
			j := s.(*vertexEntry).index
			if rep[j] < 0 && m.Position(verts[j]).Distance(p) <= tolerance {
				rep[j] = i
			}
		}
	}

	err := m.Edit(func(tmp *halfedge.Mesh) error {
		if err := rebuildWelded(tmp, verts, rep); err != nil {
			return err
		}
		return refreshNormals(tmp)
	})
	if err != nil {
		return 0, err
	}
	return len(verts) - m.NumVertices(), nil
}

// CollapseEdges fuses the endpoints of each edge into one vertex placed at
// parameter t from the halfedge's origin. Edges are collapsed in order, so
// a chain of edges ends up as a single vertex. Faces left with fewer than
// three corners are dropped.
//
// Like MergeByDistance the mesh is rebuilt: handles issued before the call
// stop resolving, halfedge channel values are dropped and wire edges are
// rejected.
func CollapseEdges(m *halfedge.Mesh, edges []halfedge.HalfEdgeID, t float64) error {
	c := m.Connectivity()
	for _, h := range edges {
		if !c.HasHalfEdge(h) {
			return deadHandle(h)
		}
	}
	if t < 0 || t > 1 {
		return invalid("collapse parameter must be in [0, 1], got %g", t)
	}
	if len(edges) == 0 {
		return nil
	}
	if err := requireFaceEdges(m, "collapse"); err != nil {
		return err
	}

	verts := c.VertexIDs()
	index := make(map[halfedge.VertexID]int, len(verts))
	parent := make([]int, len(verts))
	pos := make([]vecmath.Vec3, len(verts))
	for i, v := range verts {
		index[v] = i
		parent[i] = i
		pos[i] = m.Position(v)
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for _, h := range edges {
		a, b := c.Endpoints(h)
		ra, rb := find(index[a]), find(index[b])
		if ra == rb {
			continue
		}
		p := pos[ra].Lerp(pos[rb], t)
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[rb] = ra
		pos[ra] = p
	}
	rep := make([]int, len(verts))
	for i := range rep {
		rep[i] = find(i)
	}

	return m.Edit(func(tmp *halfedge.Mesh) error {
		for i, v := range verts {
			if rep[i] == i {
				tmp.SetPosition(v, pos[i])
			}
		}
		if err := rebuildWelded(tmp, verts, rep); err != nil {
			return err
		}
		return refreshNormals(tmp)
	})
}

// paddedRect returns a box reaching at least half past p on every axis.
// rtreego only reports strictly overlapping boxes, so the padding scales
// with p's magnitude to stay wider than the float64 spacing around it.
func paddedRect(p vecmath.Vec3, half float64) rtreego.Rect {
	mag := math.Max(1, math.Max(math.Abs(p.X), math.Max(math.Abs(p.Y), math.Abs(p.Z))))
	return rtreego.Point{p.X, p.Y, p.Z}.ToRect(half + 1e-9*mag)
}

// rebuildWelded replaces m with the mesh whose vertex i is verts[rep[i]].
func rebuildWelded(m *halfedge.Mesh, verts []halfedge.VertexID, rep []int) error {
	c := m.Connectivity()
	newIndex := make([]int, len(verts))
	positions := m.Positions()
	var kept []halfedge.VertexID
	for i, v := range verts {
		if rep[i] == i {
			newIndex[i] = len(kept)
			kept = append(kept, v)
		}
	}
	pos := make([]vecmath.Vec3, 0, len(kept))
	for _, v := range kept {
		pos = append(pos, positions.Value(v))
	}
	old := make(map[halfedge.VertexID]int, len(verts))
	for i, v := range verts {
		old[v] = i
	}

	var polys [][]int
	var polyFaces []halfedge.FaceID
	for _, f := range c.FaceIDs() {
		fv, err := c.FaceVertices(f)
		if err != nil {
			return err
		}
		var poly []int
		for _, v := range fv {
			idx := newIndex[rep[old[v]]]
			if len(poly) > 0 && poly[len(poly)-1] == idx {
				continue
			}
			poly = append(poly, idx)
		}
		if len(poly) > 1 && poly[0] == poly[len(poly)-1] {
			poly = poly[:len(poly)-1]
		}
		if len(poly) < 3 {
			continue
		}
		polys = append(polys, poly)
		polyFaces = append(polyFaces, f)
	}

	out, err := m.Rebuild(pos, polys)
	if err != nil {
		return err
	}
	out.Config = m.Config

	remap := halfedge.Remap{
		Vertices: make(map[halfedge.VertexID]halfedge.VertexID, len(kept)),
		Faces:    make(map[halfedge.FaceID]halfedge.FaceID, len(polyFaces)),
	}
	for i, v := range out.Connectivity().VertexIDs() {
		remap.Vertices[kept[i]] = v
	}
	for i, f := range out.Connectivity().FaceIDs() {
		remap.Faces[polyFaces[i]] = f
	}
	if err := out.ImportChannels(m, remap); err != nil {
		return err
	}
	m.Replace(out)
	return nil
}
