package ops

import (
	"fmt"
	"strings"

	"github.com/chazu/facet/pkg/halfedge"
	"github.com/chazu/facet/pkg/vecmath"
)

// Technique selects the subdivision scheme.
type Technique int

const (
	// Linear splits faces without moving any point off the original surface.
	Linear Technique = iota
	// CatmullClark splits faces and smooths the result.
	CatmullClark
)

func (t Technique) String() string {
	if t == CatmullClark {
		return "catmull-clark"
	}
	return "linear"
}

// ParseTechnique parses "linear" or "catmull-clark".
func ParseTechnique(s string) (Technique, error) {
	switch strings.ReplaceAll(strings.ToLower(s), "_", "-") {
	case "linear":
		return Linear, nil
	case "catmull-clark", "catmullclark", "smooth":
		return CatmullClark, nil
	}
	return 0, invalid("unknown subdivision technique %q", s)
}

// Subdivide splits every n-sided face into n quads, iterations times. Each
// quad joins an original corner, the midpoints of the two edges at that
// corner and the face centre.
//
// The mesh is rebuilt, so handles issued before the call are invalid
// afterwards. Original vertices keep their vertex channel values and every
// new face inherits its parent's face channel values.
func Subdivide(m *halfedge.Mesh, iterations int, technique Technique) error {
	if iterations < 0 {
		return invalid("subdivision iterations must not be negative, got %d", iterations)
	}
	if iterations == 0 {
		return nil
	}
	if err := requireFaceEdges(m, "subdivide"); err != nil {
		return err
	}
	return m.Edit(func(tmp *halfedge.Mesh) error {
		for i := 0; i < iterations; i++ {
			if err := subdivideOnce(tmp, technique); err != nil {
				return fmt.Errorf("subdivision pass %d: %w", i+1, err)
			}
		}
		return refreshNormals(tmp)
	})
}

func subdivideOnce(m *halfedge.Mesh, technique Technique) error {
	c := m.Connectivity()
	verts := c.VertexIDs()
	edges := c.Edges()
	faces := c.FaceIDs()
	nv, ne := len(verts), len(edges)

	vIdx := make(map[halfedge.VertexID]int, nv)
	for i, v := range verts {
		vIdx[v] = i
	}
	eIdx := make(map[halfedge.HalfEdgeID]int, 2*ne)
	for i, h := range edges {
		eIdx[h] = i
		eIdx[c.MustHalfEdge(h).Twin] = i
	}
	fIdx := make(map[halfedge.FaceID]int, len(faces))
	facePts := make([]vecmath.Vec3, len(faces))
	for i, f := range faces {
		fIdx[f] = i
		p, err := m.FaceCentroid(f)
		if err != nil {
			return err
		}
		facePts[i] = p
	}

	pos := make([]vecmath.Vec3, nv+ne+len(faces))
	for i, h := range edges {
		a, b := c.Endpoints(h)
		mid := m.Position(a).Add(m.Position(b)).Scale(0.5)
		twin := c.MustHalfEdge(h).Twin
		if technique == CatmullClark && !c.IsBoundaryEdge(h) {
			fa := facePts[fIdx[c.MustHalfEdge(h).Face]]
			fb := facePts[fIdx[c.MustHalfEdge(twin).Face]]
			mid = m.Position(a).Add(m.Position(b)).Add(fa).Add(fb).Scale(0.25)
		}
		pos[nv+i] = mid
	}
	for i, v := range verts {
		p := m.Position(v)
		if technique == CatmullClark {
			var err error
			if p, err = smoothedVertex(m, v, facePts, fIdx); err != nil {
				return err
			}
		}
		pos[i] = p
	}
	copy(pos[nv+ne:], facePts)

	var polys [][]int
	var parents []halfedge.FaceID
	for fi, f := range faces {
		hs, err := c.FaceHalfEdges(f)
		if err != nil {
			return err
		}
		k := len(hs)
		for i, h := range hs {
			prev := hs[(i+k-1)%k]
			polys = append(polys, []int{
				vIdx[c.MustHalfEdge(h).Vertex],
				nv + eIdx[h],
				nv + ne + fi,
				nv + eIdx[prev],
			})
			parents = append(parents, f)
		}
	}

	out, err := m.Rebuild(pos, polys)
	if err != nil {
		return err
	}
	out.Config = m.Config

	oc := out.Connectivity()
	outVerts := oc.VertexIDs()
	remap := halfedge.Remap{Vertices: make(map[halfedge.VertexID]halfedge.VertexID, nv)}
	for i, v := range verts {
		remap.Vertices[v] = outVerts[i]
	}
	if err := out.ImportChannels(m, remap); err != nil {
		return err
	}
	for i := 0; i < nv; i++ {
		out.SetPosition(outVerts[i], pos[i])
	}
	for i, f := range oc.FaceIDs() {
		if err := halfedge.CopyChannelValues(out, m, parents[i], f); err != nil {
			return err
		}
	}
	m.Replace(out)
	return nil
}

// smoothedVertex returns the Catmull-Clark position of an original vertex.
// Boundary vertices follow the boundary curve rule; corners where the
// boundary is not a simple curve stay put.
func smoothedVertex(m *halfedge.Mesh, v halfedge.VertexID, facePts []vecmath.Vec3, fIdx map[halfedge.FaceID]int) (vecmath.Vec3, error) {
	c := m.Connectivity()
	p := m.Position(v)
	outs, err := c.OutgoingHalfEdges(v)
	if err != nil || len(outs) == 0 {
		return p, err
	}

	var rim []vecmath.Vec3
	var faceSum, edgeSum vecmath.Vec3
	faces := 0
	for _, h := range outs {
		q := m.Position(c.Destination(h))
		if c.IsBoundaryEdge(h) {
			rim = append(rim, q)
		}
		edgeSum = edgeSum.Add(p.Add(q).Scale(0.5))
		if f := c.MustHalfEdge(h).Face; !f.IsZero() {
			faceSum = faceSum.Add(facePts[fIdx[f]])
			faces++
		}
	}
	if len(rim) > 0 {
		if len(rim) != 2 {
			return p, nil
		}
		return p.Scale(6).Add(rim[0]).Add(rim[1]).Scale(1.0 / 8), nil
	}

	n := float64(len(outs))
	favg := faceSum.Scale(1 / float64(faces))
	ravg := edgeSum.Scale(1 / n)
	return favg.Add(ravg.Scale(2)).Add(p.Scale(n - 3)).Scale(1 / n), nil
}
