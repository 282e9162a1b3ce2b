package halfedge

import "fmt"

// FaceHalfEdges returns the halfedges of f's loop in Next order, starting at
// the face's stored halfedge.
func (c *Connectivity) FaceHalfEdges(f FaceID) ([]HalfEdgeID, error) {
	return c.HalfEdgeLoop(c.MustFace(f).HalfEdge)
}

// HalfEdgeLoop follows Next from h until it returns to h.
func (c *Connectivity) HalfEdgeLoop(h HalfEdgeID) ([]HalfEdgeID, error) {
	var loop []HalfEdgeID
	cur := h
	for i := 0; i < MaxLoopIterations; i++ {
		loop = append(loop, cur)
		cur = c.MustHalfEdge(cur).Next
		if cur == h {
			return loop, nil
		}
	}
	return nil, fmt.Errorf("%w: loop from %v does not close", ErrMalformedMesh, h)
}

// FaceVertices returns the origin vertices of f's loop in Next order.
func (c *Connectivity) FaceVertices(f FaceID) ([]VertexID, error) {
	loop, err := c.FaceHalfEdges(f)
	if err != nil {
		return nil, err
	}
	out := make([]VertexID, len(loop))
	for i, h := range loop {
		out[i] = c.MustHalfEdge(h).Vertex
	}
	return out, nil
}

// FaceEdgeCount returns the number of halfedges in f's loop.
func (c *Connectivity) FaceEdgeCount(f FaceID) (int, error) {
	loop, err := c.FaceHalfEdges(f)
	if err != nil {
		return 0, err
	}
	return len(loop), nil
}

// Previous returns the halfedge whose Next is h.
func (c *Connectivity) Previous(h HalfEdgeID) (HalfEdgeID, error) {
	cur := h
	for i := 0; i < MaxLoopIterations; i++ {
		next := c.MustHalfEdge(cur).Next
		if next == h {
			return cur, nil
		}
		cur = next
	}
	return HalfEdgeID{}, fmt.Errorf("%w: loop through %v does not close", ErrMalformedMesh, h)
}

// Destination returns the vertex h points to.
func (c *Connectivity) Destination(h HalfEdgeID) VertexID {
	return c.MustHalfEdge(c.MustHalfEdge(h).Twin).Vertex
}

// Endpoints returns the origin and destination of h.
func (c *Connectivity) Endpoints(h HalfEdgeID) (VertexID, VertexID) {
	return c.MustHalfEdge(h).Vertex, c.Destination(h)
}

// IsBoundary reports whether h has no face.
func (c *Connectivity) IsBoundary(h HalfEdgeID) bool {
	return c.MustHalfEdge(h).Face.IsZero()
}

// IsBoundaryEdge reports whether either side of h's edge has no face.
func (c *Connectivity) IsBoundaryEdge(h HalfEdgeID) bool {
	return c.IsBoundary(h) || c.IsBoundary(c.MustHalfEdge(h).Twin)
}

// OutgoingHalfEdges returns the halfedges leaving v, rotating with
// Next(Twin(h)). Isolated vertices have none.
func (c *Connectivity) OutgoingHalfEdges(v VertexID) ([]HalfEdgeID, error) {
	start := c.MustVertex(v).HalfEdge
	if start.IsZero() {
		return nil, nil
	}
	return c.Rotation(start)
}

// Rotation returns the halfedges visited by repeatedly applying
// Next(Twin(h)) from start until it comes back around.
func (c *Connectivity) Rotation(start HalfEdgeID) ([]HalfEdgeID, error) {
	var out []HalfEdgeID
	cur := start
	for i := 0; i < MaxLoopIterations; i++ {
		out = append(out, cur)
		cur = c.MustHalfEdge(c.MustHalfEdge(cur).Twin).Next
		if cur == start {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: rotation from %v does not close", ErrMalformedMesh, start)
}

// AdjacentFaces returns the distinct faces around v in rotation order.
func (c *Connectivity) AdjacentFaces(v VertexID) ([]FaceID, error) {
	out, err := c.OutgoingHalfEdges(v)
	if err != nil {
		return nil, err
	}
	var faces []FaceID
	seen := make(map[FaceID]bool)
	for _, h := range out {
		f := c.MustHalfEdge(h).Face
		if f.IsZero() || seen[f] {
			continue
		}
		seen[f] = true
		faces = append(faces, f)
	}
	return faces, nil
}

// IsBoundaryVertex reports whether any outgoing halfedge of v lies on an open
// edge. Isolated vertices count as boundary.
func (c *Connectivity) IsBoundaryVertex(v VertexID) (bool, error) {
	out, err := c.OutgoingHalfEdges(v)
	if err != nil {
		return false, err
	}
	if len(out) == 0 {
		return true, nil
	}
	for _, h := range out {
		if c.IsBoundaryEdge(h) {
			return true, nil
		}
	}
	return false, nil
}

// HalfEdgeBetween returns the halfedge from a to b, if one exists.
func (c *Connectivity) HalfEdgeBetween(a, b VertexID) (HalfEdgeID, bool, error) {
	out, err := c.OutgoingHalfEdges(a)
	if err != nil {
		return HalfEdgeID{}, false, err
	}
	for _, h := range out {
		if c.Destination(h) == b {
			return h, true, nil
		}
	}
	return HalfEdgeID{}, false, nil
}

// Edges returns one halfedge per undirected edge in arena order, preferring
// the side that has a face.
func (c *Connectivity) Edges() []HalfEdgeID {
	var out []HalfEdgeID
	for _, h := range c.HalfEdgeIDs() {
		he := c.MustHalfEdge(h)
		faced := !he.Face.IsZero()
		twinFaced := !c.MustHalfEdge(he.Twin).Face.IsZero()
		switch {
		case faced && twinFaced, !faced && !twinFaced:
			if he.Twin.Less(h) {
				continue
			}
		case twinFaced:
			continue
		}
		out = append(out, h)
	}
	return out
}
