// Package primitives builds fresh halfedge meshes from numeric parameters.
// Every constructor either returns a mesh satisfying all halfedge
// invariants or an error wrapping halfedge.ErrInvalidParameter; no
// partially built mesh is ever returned.
package primitives

import (
	"fmt"
	"math"

	"github.com/chazu/facet/pkg/halfedge"
	"github.com/chazu/facet/pkg/vecmath"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", halfedge.ErrInvalidParameter, fmt.Sprintf(format, args...))
}

// Box builds an axis-aligned box of 8 vertices and 6 quads. Faces wind
// counter-clockwise seen from outside.
func Box(center, size vecmath.Vec3) (*halfedge.Mesh, error) {
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, invalid("box size must be positive, got %v", size)
	}
	h := size.Scale(0.5)
	corner := func(sx, sy, sz float64) vecmath.Vec3 {
		return center.Add(vecmath.Vec3{X: sx * h.X, Y: sy * h.Y, Z: sz * h.Z})
	}
	positions := []vecmath.Vec3{
		corner(-1, -1, -1), corner(1, -1, -1), corner(1, -1, 1), corner(-1, -1, 1),
		corner(-1, 1, -1), corner(-1, 1, 1), corner(1, 1, 1), corner(1, 1, -1),
	}
	return halfedge.FromPolygons(positions, [][]int{
		{0, 1, 2, 3}, // bottom
		{4, 5, 6, 7}, // top
		{4, 7, 1, 0}, // back
		{3, 2, 6, 5}, // front
		{5, 4, 0, 3}, // left
		{6, 2, 1, 7}, // right
	})
}

// Quad builds a single quad facing normal. size.X spans the right axis and
// size.Y spans normal x right; size.Z is ignored.
func Quad(center, normal, right, size vecmath.Vec3) (*halfedge.Mesh, error) {
	n := normal.Normalize()
	r := right.Normalize()
	if n.IsZero() || r.IsZero() {
		return nil, invalid("quad normal and right must be non-zero")
	}
	forward := n.Cross(r)
	if forward.Length() < 1e-9 {
		return nil, invalid("quad normal %v and right %v are parallel", normal, right)
	}
	forward = forward.Normalize()
	if size.X <= 0 || size.Y <= 0 {
		return nil, invalid("quad size must be positive, got %v", size)
	}
	hx, hy := size.X*0.5, size.Y*0.5
	positions := []vecmath.Vec3{
		center.Add(r.Scale(hx)).Add(forward.Scale(hy)),
		center.Sub(r.Scale(hx)).Add(forward.Scale(hy)),
		center.Sub(r.Scale(hx)).Sub(forward.Scale(hy)),
		center.Add(r.Scale(hx)).Sub(forward.Scale(hy)),
	}
	return halfedge.FromPolygons(positions, [][]int{{0, 1, 2, 3}})
}

// Circle builds an open circle in the XZ plane: numVertices vertices joined
// by boundary edges, with no face.
func Circle(center vecmath.Vec3, radius float64, numVertices int) (*halfedge.Mesh, error) {
	if numVertices < 3 {
		return nil, invalid("circle needs at least 3 vertices, got %d", numVertices)
	}
	if radius <= 0 {
		return nil, invalid("circle radius must be positive, got %g", radius)
	}
	step := 2 * math.Pi / float64(numVertices)
	positions := make([]vecmath.Vec3, numVertices)
	loop := make([]int, numVertices)
	for i := range positions {
		a := step * float64(i)
		positions[i] = center.Add(vecmath.Vec3{X: radius * math.Sin(a), Z: radius * math.Cos(a)})
		loop[i] = i
	}
	m, err := halfedge.FromPolygons(positions, [][]int{loop})
	if err != nil {
		return nil, err
	}
	c := m.Connectivity()
	f := c.FaceIDs()[0]
	hs, err := c.FaceHalfEdges(f)
	if err != nil {
		return nil, err
	}
	for _, h := range hs {
		m.SetFace(h, halfedge.FaceID{})
	}
	m.RemoveFace(f)
	return m, nil
}

// UVSphere builds a latitude/longitude sphere: a pole vertex at each end of
// the Y axis, rings-1 rings of segments vertices, quads between rings and
// triangle fans at the poles.
func UVSphere(center vecmath.Vec3, radius float64, segments, rings int) (*halfedge.Mesh, error) {
	if segments < 3 {
		return nil, invalid("sphere needs at least 3 segments, got %d", segments)
	}
	if rings < 2 {
		return nil, invalid("sphere needs at least 2 rings, got %d", rings)
	}
	if radius <= 0 {
		return nil, invalid("sphere radius must be positive, got %g", radius)
	}

	positions := []vecmath.Vec3{center.Add(vecmath.UnitY.Scale(radius))}
	for i := 0; i < rings-1; i++ {
		phi := math.Pi * float64(i+1) / float64(rings)
		for j := 0; j < segments; j++ {
			theta := 2 * math.Pi * float64(j) / float64(segments)
			positions = append(positions, center.Add(vecmath.Vec3{
				X: math.Sin(phi) * math.Cos(theta) * radius,
				Y: math.Cos(phi) * radius,
				Z: math.Sin(phi) * math.Sin(theta) * radius,
			}))
		}
	}
	bottom := len(positions)
	positions = append(positions, center.Sub(vecmath.UnitY.Scale(radius)))

	var polygons [][]int
	for i := 0; i < segments; i++ {
		i0 := i + 1
		i1 := (i+1)%segments + 1
		polygons = append(polygons, []int{0, i1, i0})
	}
	last := segments*(rings-2) + 1
	for i := 0; i < segments; i++ {
		i0 := last + i
		i1 := last + (i+1)%segments
		polygons = append(polygons, []int{bottom, i0, i1})
	}
	for j := 0; j < rings-2; j++ {
		j0 := j*segments + 1
		j1 := (j+1)*segments + 1
		for i := 0; i < segments; i++ {
			polygons = append(polygons, []int{
				j0 + i,
				j0 + (i+1)%segments,
				j1 + (i+1)%segments,
				j1 + i,
			})
		}
	}
	return halfedge.FromPolygons(positions, polygons)
}

// Grid builds a plane of xSegments by zSegments quads in the XZ plane,
// facing +Y.
func Grid(center vecmath.Vec3, sizeX, sizeZ float64, xSegments, zSegments int) (*halfedge.Mesh, error) {
	if xSegments < 1 || zSegments < 1 {
		return nil, invalid("grid needs at least one segment per axis, got %dx%d", xSegments, zSegments)
	}
	if sizeX <= 0 || sizeZ <= 0 {
		return nil, invalid("grid size must be positive, got %gx%g", sizeX, sizeZ)
	}
	idx := func(i, j int) int { return i*(zSegments+1) + j }
	var positions []vecmath.Vec3
	for i := 0; i <= xSegments; i++ {
		for j := 0; j <= zSegments; j++ {
			positions = append(positions, center.Add(vecmath.Vec3{
				X: -sizeX/2 + sizeX*float64(i)/float64(xSegments),
				Z: -sizeZ/2 + sizeZ*float64(j)/float64(zSegments),
			}))
		}
	}
	var polygons [][]int
	for i := 0; i < xSegments; i++ {
		for j := 0; j < zSegments; j++ {
			polygons = append(polygons, []int{idx(i, j), idx(i, j+1), idx(i+1, j+1), idx(i+1, j)})
		}
	}
	return halfedge.FromPolygons(positions, polygons)
}
