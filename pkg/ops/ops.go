// Package ops implements edit operations on halfedge meshes.
//
// Topology-changing operations run inside (*halfedge.Mesh).Edit: they work
// on a clone and commit only when every step succeeds, so a failed call
// leaves the mesh exactly as it was. Handle arguments are checked up front
// and a dead handle fails with halfedge.ErrInvalidHandle.
package ops

import (
	"fmt"

	"github.com/chazu/facet/pkg/halfedge"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", halfedge.ErrInvalidParameter, fmt.Sprintf(format, args...))
}

func deadHandle(id fmt.Stringer) error {
	return fmt.Errorf("%w: %v", halfedge.ErrInvalidHandle, id)
}

// uniqueFaces checks that every face is live and drops repeats, keeping
// first-seen order.
func uniqueFaces(c *halfedge.Connectivity, faces []halfedge.FaceID) ([]halfedge.FaceID, error) {
	seen := make(map[halfedge.FaceID]bool, len(faces))
	out := make([]halfedge.FaceID, 0, len(faces))
	for _, f := range faces {
		if !c.HasFace(f) {
			return nil, deadHandle(f)
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, nil
}

// requireFaceEdges fails if m has an edge with no face on either side.
// Operations that rebuild the mesh from its polygons cannot carry such
// edges through.
func requireFaceEdges(m *halfedge.Mesh, op string) error {
	c := m.Connectivity()
	for _, h := range c.Edges() {
		if c.IsBoundary(h) && c.IsBoundary(c.MustHalfEdge(h).Twin) {
			return invalid("%s needs every edge to touch a face; %v is a wire edge", op, h)
		}
	}
	return nil
}
