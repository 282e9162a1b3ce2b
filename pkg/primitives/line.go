package primitives

import (
	"github.com/chazu/facet/pkg/halfedge"
	"github.com/chazu/facet/pkg/vecmath"
)

// Line builds a polyline from start to end split into segments equal
// parts: segments+1 vertices joined by wire edges with no faces.
func Line(start, end vecmath.Vec3, segments int) (*halfedge.Mesh, error) {
	if segments < 1 {
		return nil, invalid("line needs at least 1 segment, got %d", segments)
	}
	points := make([]vecmath.Vec3, segments+1)
	for i := range points {
		points[i] = start.Lerp(end, float64(i)/float64(segments))
	}
	return polyline(points), nil
}

// LineFromPoints builds a polyline through points in order.
func LineFromPoints(points []vecmath.Vec3) (*halfedge.Mesh, error) {
	if len(points) < 2 {
		return nil, invalid("polyline needs at least 2 points, got %d", len(points))
	}
	return polyline(points), nil
}

// polyline links the forward halfedges into a chain, the backward ones
// into the reverse chain, and joins both ends so the whole line is one
// closed Next loop.
func polyline(points []vecmath.Vec3) *halfedge.Mesh {
	m := halfedge.New()
	var forward, backward []halfedge.HalfEdgeID

	v := m.AddVertex(points[0])
	for _, p := range points[1:] {
		w := m.AddVertex(p)
		fwd := m.AddHalfEdge(halfedge.HalfEdge{Vertex: v})
		bwd := m.AddHalfEdge(halfedge.HalfEdge{Vertex: w})
		m.SetTwins(fwd, bwd)
		m.SetOutgoing(v, fwd)
		m.SetOutgoing(w, bwd)
		forward = append(forward, fwd)
		backward = append(backward, bwd)
		v = w
	}
	for i := 0; i+1 < len(forward); i++ {
		m.SetNext(forward[i], forward[i+1])
	}
	for i := len(backward) - 1; i > 0; i-- {
		m.SetNext(backward[i], backward[i-1])
	}
	m.SetNext(forward[len(forward)-1], backward[len(backward)-1])
	m.SetNext(backward[0], forward[0])
	return m
}
