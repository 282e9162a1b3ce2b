package halfedge

import (
	"fmt"
	"math"

	"github.com/chazu/facet/pkg/kernel"
	"github.com/chazu/facet/pkg/vecmath"
)

// FromPolygons builds a mesh from vertex positions and polygons given as
// loops of indices into positions, counter-clockwise seen from the front.
// Open edges get boundary halfedges. Positions no polygon uses become
// isolated vertices, in input order like all others.
//
// It fails if a polygon has fewer than three corners or repeats a corner,
// if an index is out of range, if two polygons use the same directed edge,
// or if a vertex is shared by faces that do not form a single fan.
func FromPolygons(positions []vecmath.Vec3, polygons [][]int) (*Mesh, error) {
	return buildPolygons(New(), positions, polygons, false)
}

// Rebuild is FromPolygons for operations that replace m with the result.
// The new mesh never issues a handle m has issued, so handles held from
// before the rebuild stop resolving instead of naming new elements.
func (m *Mesh) Rebuild(positions []vecmath.Vec3, polygons [][]int) (*Mesh, error) {
	return buildPolygons(newMesh(m.conn.successor()), positions, polygons, false)
}

// FromTriangles welds a triangle soup such as a marching-cubes result into a
// mesh. Vertices closer than tolerance on every axis are merged. Triangles
// that collapse after welding or that would break manifoldness are
// dropped, and vertices shared by separate fans are split.
func FromTriangles(soup *kernel.Mesh, tolerance float64) (*Mesh, error) {
	if tolerance <= 0 {
		return nil, fmt.Errorf("%w: weld tolerance must be positive, got %g", ErrInvalidParameter, tolerance)
	}
	if len(soup.Vertices)%3 != 0 || len(soup.Indices)%3 != 0 {
		return nil, fmt.Errorf("%w: buffer lengths must be multiples of 3", ErrInvalidParameter)
	}

	type cell [3]int64
	welded := make(map[cell]int)
	remap := make([]int, soup.VertexCount())
	var positions []vecmath.Vec3
	for i := range remap {
		p := vecmath.Vec3{
			X: float64(soup.Vertices[i*3]),
			Y: float64(soup.Vertices[i*3+1]),
			Z: float64(soup.Vertices[i*3+2]),
		}
		key := cell{
			int64(math.Round(p.X / tolerance)),
			int64(math.Round(p.Y / tolerance)),
			int64(math.Round(p.Z / tolerance)),
		}
		idx, ok := welded[key]
		if !ok {
			idx = len(positions)
			welded[key] = idx
			positions = append(positions, p)
		}
		remap[i] = idx
	}

	var polygons [][]int
	for t := 0; t+2 < len(soup.Indices); t += 3 {
		var tri [3]int
		for j := 0; j < 3; j++ {
			src := int(soup.Indices[t+j])
			if src >= len(remap) {
				return nil, fmt.Errorf("%w: index %d out of range", ErrInvalidParameter, src)
			}
			tri[j] = remap[src]
		}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
			continue
		}
		polygons = append(polygons, tri[:])
	}
	return buildPolygons(New(), positions, polygons, true)
}

type edgeKey [2]int

type polygonBuilder struct {
	m        *Mesh
	verts    []VertexID
	edges    map[edgeKey]HalfEdgeID
	order    []edgeKey
	outgoing map[VertexID][]HalfEdgeID
	lenient  bool
}

func buildPolygons(m *Mesh, positions []vecmath.Vec3, polygons [][]int, lenient bool) (*Mesh, error) {
	b := &polygonBuilder{
		m:        m,
		edges:    make(map[edgeKey]HalfEdgeID),
		outgoing: make(map[VertexID][]HalfEdgeID),
		lenient:  lenient,
	}
	for _, p := range positions {
		b.verts = append(b.verts, b.m.AddVertex(p))
	}
	for i, poly := range polygons {
		if err := b.checkPolygon(poly); err != nil {
			if lenient {
				continue
			}
			return nil, fmt.Errorf("polygon %d: %w", i, err)
		}
		b.addPolygon(poly)
	}
	b.linkTwins()
	if err := b.linkBoundary(); err != nil {
		return nil, err
	}
	if err := b.checkFans(); err != nil {
		return nil, err
	}
	return b.m, nil
}

func (b *polygonBuilder) checkPolygon(poly []int) error {
	if len(poly) < 3 {
		return fmt.Errorf("%w: %d corners", ErrDegenerateGeometry, len(poly))
	}
	seen := make(map[int]bool, len(poly))
	for _, idx := range poly {
		if idx < 0 || idx >= len(b.verts) {
			return fmt.Errorf("%w: vertex index %d out of range [0, %d)", ErrInvalidParameter, idx, len(b.verts))
		}
		if seen[idx] {
			return fmt.Errorf("%w: vertex index %d repeated", ErrDegenerateGeometry, idx)
		}
		seen[idx] = true
	}
	for i := range poly {
		e := edgeKey{poly[i], poly[(i+1)%len(poly)]}
		if _, dup := b.edges[e]; dup {
			return fmt.Errorf("%w: edge %d->%d already used by another polygon in the same direction",
				ErrMalformedMesh, e[0], e[1])
		}
	}
	return nil
}

func (b *polygonBuilder) addPolygon(poly []int) {
	m := b.m
	f := m.AddFace(HalfEdgeID{})
	hs := make([]HalfEdgeID, len(poly))
	for i, idx := range poly {
		v := b.verts[idx]
		h := m.AddHalfEdge(HalfEdge{Vertex: v, Face: f})
		hs[i] = h
		e := edgeKey{idx, poly[(i+1)%len(poly)]}
		b.edges[e] = h
		b.order = append(b.order, e)
		b.outgoing[v] = append(b.outgoing[v], h)
		if m.conn.MustVertex(v).HalfEdge.IsZero() {
			m.SetOutgoing(v, h)
		}
	}
	for i, h := range hs {
		m.SetNext(h, hs[(i+1)%len(hs)])
	}
	m.SetFaceHalfEdge(f, hs[0])
}

// linkTwins pairs opposite directed edges and gives every unpaired one a
// boundary twin.
func (b *polygonBuilder) linkTwins() {
	m := b.m
	for _, e := range b.order {
		h := b.edges[e]
		if !m.conn.MustHalfEdge(h).Twin.IsZero() {
			continue
		}
		if t, ok := b.edges[edgeKey{e[1], e[0]}]; ok {
			m.SetTwins(h, t)
			continue
		}
		origin := b.verts[e[1]]
		bh := m.AddHalfEdge(HalfEdge{Vertex: origin})
		m.SetTwins(h, bh)
		b.outgoing[origin] = append(b.outgoing[origin], bh)
	}
}

// linkBoundary sets Next on boundary halfedges. The successor of a boundary
// halfedge ending at v is found by rotating around v through the faces of
// the same fan until the next open edge.
func (b *polygonBuilder) linkBoundary() error {
	c := b.m.conn
	for _, e := range b.order {
		bh := c.MustHalfEdge(b.edges[e]).Twin
		if !c.IsBoundary(bh) {
			continue
		}
		cur := c.MustHalfEdge(bh).Twin
		found := false
		for i := 0; i < MaxLoopIterations; i++ {
			prev, err := c.Previous(cur)
			if err != nil {
				return err
			}
			cand := c.MustHalfEdge(prev).Twin
			if c.IsBoundary(cand) {
				b.m.SetNext(bh, cand)
				found = true
				break
			}
			cur = cand
		}
		if !found {
			return fmt.Errorf("%w: no boundary successor for %v", ErrMalformedMesh, bh)
		}
	}
	return nil
}

// checkFans makes sure each vertex's outgoing halfedges form one rotation.
// In lenient mode extra fans are moved onto copies of the vertex.
func (b *polygonBuilder) checkFans() error {
	m := b.m
	for _, v := range b.verts {
		out := b.outgoing[v]
		if len(out) == 0 {
			continue
		}
		rot, err := m.conn.OutgoingHalfEdges(v)
		if err != nil {
			return err
		}
		if len(rot) == len(out) {
			continue
		}
		if !b.lenient {
			return fmt.Errorf("%w: %v is shared by more than one fan of faces", ErrMalformedMesh, v)
		}
		visited := make(map[HalfEdgeID]bool, len(out))
		for _, h := range rot {
			visited[h] = true
		}
		for _, h := range out {
			if visited[h] {
				continue
			}
			fan, err := m.conn.Rotation(h)
			if err != nil {
				return err
			}
			nv := m.AddVertex(m.Position(v))
			m.SetOutgoing(nv, h)
			for _, fh := range fan {
				m.SetOrigin(fh, nv)
				visited[fh] = true
			}
		}
	}
	return nil
}
