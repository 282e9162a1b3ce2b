package ops

import (
	"fmt"
	"math"
	"slices"

	"github.com/chazu/facet/pkg/halfedge"
)

// MakeFace adds a face through verts in order and returns it. Each vertex
// must be isolated or on a boundary, and any existing edge between
// consecutive vertices must still be open on the side the face takes.
// Missing edges are created.
func MakeFace(m *halfedge.Mesh, verts []halfedge.VertexID) (halfedge.FaceID, error) {
	for _, v := range verts {
		if !m.Connectivity().HasVertex(v) {
			return halfedge.FaceID{}, deadHandle(v)
		}
	}
	var f halfedge.FaceID
	err := m.Edit(func(tmp *halfedge.Mesh) error {
		var err error
		if f, err = makeFace(tmp, verts); err != nil {
			return err
		}
		if err := tmp.Check(); err != nil {
			return fmt.Errorf("make face: %w", err)
		}
		return refreshNormals(tmp)
	})
	if err != nil {
		return halfedge.FaceID{}, err
	}
	return f, nil
}

// MakeQuad adds the quad a->b->c->d.
func MakeQuad(m *halfedge.Mesh, a, b, c, d halfedge.VertexID) (halfedge.FaceID, error) {
	return MakeFace(m, []halfedge.VertexID{a, b, c, d})
}

// link is a Next assignment applied once every halfedge of a new face
// exists.
type link struct{ h, next halfedge.HalfEdgeID }

func makeFace(m *halfedge.Mesh, verts []halfedge.VertexID) (halfedge.FaceID, error) {
	c := m.Connectivity()
	n := len(verts)
	if n < 3 {
		return halfedge.FaceID{}, invalid("a face needs at least 3 vertices, got %d", n)
	}

	inner := make([]halfedge.HalfEdgeID, n)
	isNew := make([]bool, n)
	gap := make([]halfedge.HalfEdgeID, n) // an open outgoing halfedge per vertex
	seen := make(map[halfedge.VertexID]bool, n)
	for i, v := range verts {
		if seen[v] {
			return halfedge.FaceID{}, invalid("face repeats %v", v)
		}
		seen[v] = true
		out, err := c.OutgoingHalfEdges(v)
		if err != nil {
			return halfedge.FaceID{}, err
		}
		for _, h := range out {
			if c.IsBoundary(h) {
				gap[i] = h
				break
			}
		}
		if len(out) > 0 && gap[i].IsZero() {
			return halfedge.FaceID{}, invalid("%v is surrounded by faces", v)
		}
		h, ok, err := c.HalfEdgeBetween(v, verts[(i+1)%n])
		if err != nil {
			return halfedge.FaceID{}, err
		}
		if ok && !c.IsBoundary(h) {
			return halfedge.FaceID{}, invalid("%v already has a face", h)
		}
		inner[i], isNew[i] = h, !ok
	}

	// Where two consecutive existing edges are not yet consecutive on their
	// boundary, move the boundary stretch between them to another gap at
	// the shared vertex.
	for i := 0; i < n; i++ {
		ii := (i + 1) % n
		if isNew[i] || isNew[ii] {
			continue
		}
		innerPrev, innerNext := inner[i], inner[ii]
		if c.MustHalfEdge(innerPrev).Next == innerNext {
			continue
		}
		outerPrev := c.MustHalfEdge(innerNext).Twin
		boundaryPrev := outerPrev
		for k := 0; ; k++ {
			if k == halfedge.MaxLoopIterations {
				return halfedge.FaceID{}, fmt.Errorf("%w: rotation at %v does not close", halfedge.ErrMalformedMesh, verts[ii])
			}
			boundaryPrev = c.MustHalfEdge(c.MustHalfEdge(boundaryPrev).Next).Twin
			if c.IsBoundary(boundaryPrev) && boundaryPrev != innerPrev {
				break
			}
			if boundaryPrev == outerPrev {
				return halfedge.FaceID{}, invalid("no room for a face at %v", verts[ii])
			}
		}
		boundaryNext := c.MustHalfEdge(boundaryPrev).Next
		if boundaryNext == innerNext {
			return halfedge.FaceID{}, invalid("no room for a face at %v", verts[ii])
		}
		patchStart := c.MustHalfEdge(innerPrev).Next
		patchEnd, err := c.Previous(innerNext)
		if err != nil {
			return halfedge.FaceID{}, err
		}
		m.SetNext(boundaryPrev, patchStart)
		m.SetNext(patchEnd, boundaryNext)
		m.SetNext(innerPrev, innerNext)
	}

	for i := range verts {
		if !isNew[i] {
			continue
		}
		h := m.AddHalfEdge(halfedge.HalfEdge{Vertex: verts[i]})
		t := m.AddHalfEdge(halfedge.HalfEdge{Vertex: verts[(i+1)%n]})
		m.SetTwins(h, t)
		inner[i] = h
	}
	face := m.AddFace(inner[n-1])

	var links []link
	for i := 0; i < n; i++ {
		ii := (i + 1) % n
		v := verts[ii]
		innerPrev, innerNext := inner[i], inner[ii]
		outerPrev := c.MustHalfEdge(innerNext).Twin
		outerNext := c.MustHalfEdge(innerPrev).Twin
		switch {
		case isNew[i] && !isNew[ii]:
			boundaryPrev, err := c.Previous(innerNext)
			if err != nil {
				return halfedge.FaceID{}, err
			}
			links = append(links, link{boundaryPrev, outerNext})
			m.SetOutgoing(v, outerNext)
		case !isNew[i] && isNew[ii]:
			boundaryNext := c.MustHalfEdge(innerPrev).Next
			links = append(links, link{outerPrev, boundaryNext})
			m.SetOutgoing(v, boundaryNext)
		case isNew[i] && isNew[ii]:
			if gap[ii].IsZero() {
				links = append(links, link{outerPrev, outerNext})
				m.SetOutgoing(v, innerNext)
				break
			}
			boundaryNext := gap[ii]
			boundaryPrev, err := c.Previous(boundaryNext)
			if err != nil {
				return halfedge.FaceID{}, err
			}
			links = append(links, link{boundaryPrev, outerNext}, link{outerPrev, boundaryNext})
		}
		if isNew[i] || isNew[ii] {
			links = append(links, link{innerPrev, innerNext})
		}
		m.SetFace(innerPrev, face)
	}
	for _, l := range links {
		m.SetNext(l.h, l.next)
	}
	return face, nil
}

// BridgeChains joins two vertex chains of equal length with a strip of
// quads and returns the new faces. Each chain must run along boundary
// edges in the direction of its open side, so the chains face opposite
// ways. With closed set, both chains are loops and chain1 is rotated to the
// alignment that minimizes the summed squared distance between paired
// vertices.
func BridgeChains(m *halfedge.Mesh, chain1, chain2 []halfedge.VertexID, closed bool) ([]halfedge.FaceID, error) {
	c := m.Connectivity()
	n := len(chain1)
	if n != len(chain2) {
		return nil, invalid("chains to bridge must have the same length, got %d and %d", n, len(chain2))
	}
	least := 2
	if closed {
		least = 3
	}
	if n < least {
		return nil, invalid("chains to bridge need at least %d vertices, got %d", least, n)
	}
	inFirst := make(map[halfedge.VertexID]bool, n)
	for _, v := range chain1 {
		if !c.HasVertex(v) {
			return nil, deadHandle(v)
		}
		inFirst[v] = true
	}
	for _, v := range chain2 {
		if !c.HasVertex(v) {
			return nil, deadHandle(v)
		}
		if inFirst[v] {
			return nil, invalid("%v is in both chains", v)
		}
	}
	for _, chain := range [][]halfedge.VertexID{chain1, chain2} {
		for i := 0; i < n; i++ {
			if i == n-1 && !closed {
				break
			}
			h, ok, err := c.HalfEdgeBetween(chain[i], chain[(i+1)%n])
			if err != nil {
				return nil, err
			}
			if !ok || !c.IsBoundary(h) {
				return nil, invalid("%v->%v is not an open boundary edge", chain[i], chain[(i+1)%n])
			}
		}
	}

	shift := 0
	if closed {
		best := math.Inf(1)
		for s := 0; s < n; s++ {
			sum := 0.0
			for j := 0; j < n; j++ {
				d := m.Position(chain1[(j+s)%n]).Distance(m.Position(chain2[n-1-j]))
				sum += d * d
			}
			if sum < best {
				best, shift = sum, s
			}
		}
	}

	quads := n - 1
	if closed {
		quads = n
	}
	var faces []halfedge.FaceID
	err := m.Edit(func(tmp *halfedge.Mesh) error {
		for j := 0; j < quads; j++ {
			v1, v2 := chain1[(j+shift)%n], chain1[(j+1+shift)%n]
			v3, v4 := chain2[n-1-j], chain2[(2*n-2-j)%n]
			f, err := makeFace(tmp, []halfedge.VertexID{v1, v2, v4, v3})
			if err != nil {
				return fmt.Errorf("bridge quad %d: %w", j, err)
			}
			faces = append(faces, f)
		}
		if err := tmp.Check(); err != nil {
			return fmt.Errorf("bridge: %w", err)
		}
		return refreshNormals(tmp)
	})
	if err != nil {
		return nil, err
	}
	return faces, nil
}

// SortChain orders the undirected edges of hs into a chain of vertices and
// reports whether it closes into a loop. The chain runs along open boundary
// halfedges where it has a choice. Branching or disconnected edges are
// rejected.
func SortChain(c *halfedge.Connectivity, hs []halfedge.HalfEdgeID) ([]halfedge.VertexID, bool, error) {
	adj := make(map[halfedge.VertexID][]halfedge.VertexID)
	var order []halfedge.VertexID
	seen := make(map[halfedge.HalfEdgeID]bool, len(hs))
	for _, h := range hs {
		if !c.HasHalfEdge(h) {
			return nil, false, deadHandle(h)
		}
		if seen[h] {
			continue
		}
		seen[h] = true
		seen[c.MustHalfEdge(h).Twin] = true
		a, b := c.Endpoints(h)
		for _, v := range []halfedge.VertexID{a, b} {
			if _, ok := adj[v]; !ok {
				order = append(order, v)
			}
		}
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}
	if len(order) == 0 {
		return nil, false, invalid("chain has no edges")
	}

	start := order[0]
	closed := true
	for _, v := range order {
		switch n := len(adj[v]); {
		case n > 2:
			return nil, false, invalid("chain branches at %v", v)
		case n == 1 && closed:
			start, closed = v, false
		}
	}

	chain := []halfedge.VertexID{start}
	prev, cur := halfedge.VertexID{}, start
	for {
		var next halfedge.VertexID
		for _, w := range adj[cur] {
			if w != prev {
				next = w
				break
			}
		}
		if next.IsZero() || next == start {
			break
		}
		chain = append(chain, next)
		prev, cur = cur, next
	}
	if len(chain) != len(order) {
		return nil, false, invalid("chain edges are not connected")
	}

	h, _, err := c.HalfEdgeBetween(chain[0], chain[1])
	if err != nil {
		return nil, false, err
	}
	if !c.IsBoundary(h) {
		slices.Reverse(chain)
	}
	return chain, closed, nil
}
