package ops

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/facet/pkg/halfedge"
	"github.com/chazu/facet/pkg/primitives"
	"github.com/chazu/facet/pkg/vecmath"
)

func TestDissolveVertex(t *testing.T) {
	m := newBox(t)
	v := m.Connectivity().VertexIDs()[0]

	f, err := DissolveVertex(m, v)
	if err != nil {
		t.Fatalf("DissolveVertex: %v", err)
	}
	assertValid(t, m)
	assertCounts(t, m, 7, 9, 4)
	c := m.Connectivity()
	if c.HasVertex(v) {
		t.Errorf("%v still resolves", v)
	}
	if n, err := c.FaceEdgeCount(f); err != nil || n != 6 {
		t.Errorf("joined face has %d sides (%v), want 6", n, err)
	}
}

func TestDissolveVertexErrors(t *testing.T) {
	tests := []struct {
		name string
		mesh func(t *testing.T) *halfedge.Mesh
		want error
	}{
		{"boundary vertex", func(t *testing.T) *halfedge.Mesh { return newSquare(t, 0) }, halfedge.ErrInvalidParameter},
		{"wire vertex", func(t *testing.T) *halfedge.Mesh {
			m, err := primitives.Line(vecmath.Zero, vecmath.UnitX, 2)
			if err != nil {
				t.Fatal(err)
			}
			return m
		}, halfedge.ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.mesh(t)
			before := m.NumHalfEdges()
			_, err := DissolveVertex(m, m.Connectivity().VertexIDs()[1])
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if m.NumHalfEdges() != before {
				t.Errorf("failed dissolve changed the mesh")
			}
		})
	}

	m := newBox(t)
	v := m.Connectivity().VertexIDs()[0]
	if _, err := DissolveVertex(m, v); err != nil {
		t.Fatal(err)
	}
	if _, err := DissolveVertex(m, v); !errors.Is(err, halfedge.ErrInvalidHandle) {
		t.Errorf("dead vertex: err = %v", err)
	}
}

func TestChamferVertex(t *testing.T) {
	m := newBox(t)
	v := m.Connectivity().VertexIDs()[0]
	corner := m.Position(v)

	f, err := ChamferVertex(m, v, 0.25)
	if err != nil {
		t.Fatalf("ChamferVertex: %v", err)
	}
	assertValid(t, m)
	assertCounts(t, m, 10, 15, 7)
	fv, err := m.Connectivity().FaceVertices(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(fv) != 3 {
		t.Fatalf("chamfer face has %d corners, want 3", len(fv))
	}
	for _, w := range fv {
		if d := m.Position(w).Distance(corner); math.Abs(d-0.25) > 1e-9 {
			t.Errorf("%v is %g from the old corner, want 0.25", w, d)
		}
	}
	n, err := m.FaceNormal(f)
	if err != nil {
		t.Fatal(err)
	}
	// The corner sits at (-0.5, -0.5, -0.5), so the cut faces away from the
	// box center.
	if n.Dot(corner) <= 0 {
		t.Errorf("chamfer face normal %v points inward", n)
	}
}

func TestChamferVertexErrors(t *testing.T) {
	box := newBox(t)
	square := newSquare(t, 0)
	tests := []struct {
		name   string
		mesh   *halfedge.Mesh
		amount float64
	}{
		{"boundary vertex", square, 0.25},
		{"zero amount", box, 0},
		{"full amount", box, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.mesh.Connectivity().VertexIDs()[0]
			if _, err := ChamferVertex(tt.mesh, v, tt.amount); !errors.Is(err, halfedge.ErrInvalidParameter) {
				t.Errorf("err = %v, want ErrInvalidParameter", err)
			}
		})
	}
	assertCounts(t, box, 8, 12, 6)
}

func TestCollapseEdges(t *testing.T) {
	t.Run("box edge", func(t *testing.T) {
		m := newBox(t)
		c := m.Connectivity()
		verts := c.VertexIDs()
		h, ok, err := c.HalfEdgeBetween(verts[4], verts[5])
		if err != nil || !ok {
			t.Fatalf("no edge between top corners: %v", err)
		}
		want := m.Position(verts[4]).Lerp(m.Position(verts[5]), 0.5)

		if err := CollapseEdges(m, []halfedge.HalfEdgeID{h}, 0.5); err != nil {
			t.Fatalf("CollapseEdges: %v", err)
		}
		assertValid(t, m)
		assertCounts(t, m, 7, 11, 6)
		found := false
		for _, v := range m.Connectivity().VertexIDs() {
			if m.Position(v).ApproxEqual(want, 1e-12) {
				found = true
			}
		}
		if !found {
			t.Errorf("no vertex at the collapse point %v", want)
		}
	})

	t.Run("triangle becomes an edge", func(t *testing.T) {
		m, err := halfedge.FromPolygons([]vecmath.Vec3{
			vecmath.V3(0, 0, 0), vecmath.V3(1, 0, 0), vecmath.V3(1, 1, 0), vecmath.V3(0, 1, 0),
		}, [][]int{{0, 1, 2}, {0, 2, 3}})
		if err != nil {
			t.Fatal(err)
		}
		c := m.Connectivity()
		verts := c.VertexIDs()
		h, _, _ := c.HalfEdgeBetween(verts[1], verts[2])
		if err := CollapseEdges(m, []halfedge.HalfEdgeID{h}, 0); err != nil {
			t.Fatalf("CollapseEdges: %v", err)
		}
		assertValid(t, m)
		assertCounts(t, m, 3, 3, 1)
	})

	t.Run("errors", func(t *testing.T) {
		m := newBox(t)
		h := m.Connectivity().HalfEdgeIDs()[0]
		if err := CollapseEdges(m, []halfedge.HalfEdgeID{h}, 2); !errors.Is(err, halfedge.ErrInvalidParameter) {
			t.Errorf("t out of range: err = %v", err)
		}
		line, err := primitives.Line(vecmath.Zero, vecmath.UnitX, 2)
		if err != nil {
			t.Fatal(err)
		}
		wire := line.Connectivity().HalfEdgeIDs()[0]
		if err := CollapseEdges(line, []halfedge.HalfEdgeID{wire}, 0.5); !errors.Is(err, halfedge.ErrInvalidParameter) {
			t.Errorf("wire edge: err = %v", err)
		}
		if err := CollapseEdges(m, []halfedge.HalfEdgeID{h}, 0.5); err != nil {
			t.Fatal(err)
		}
		if err := CollapseEdges(m, []halfedge.HalfEdgeID{h}, 0.5); !errors.Is(err, halfedge.ErrInvalidHandle) {
			t.Errorf("handle from before the rebuild: err = %v", err)
		}
	})
}

func TestMakeQuad(t *testing.T) {
	m := halfedge.New()
	a := m.AddVertex(vecmath.V3(0, 0, 0))
	b := m.AddVertex(vecmath.V3(1, 0, 0))
	c := m.AddVertex(vecmath.V3(1, 1, 0))
	d := m.AddVertex(vecmath.V3(0, 1, 0))

	f, err := MakeQuad(m, a, b, c, d)
	if err != nil {
		t.Fatalf("MakeQuad: %v", err)
	}
	assertValid(t, m)
	assertCounts(t, m, 4, 4, 1)
	if n, _ := m.FaceNormal(f); !n.ApproxEqual(vecmath.UnitZ, 1e-12) {
		t.Errorf("normal = %v, want +Z", n)
	}

	e := m.AddVertex(vecmath.V3(2, 0, 0))
	g := m.AddVertex(vecmath.V3(2, 1, 0))
	if _, err := MakeQuad(m, b, e, g, c); err != nil {
		t.Fatalf("adjacent MakeQuad: %v", err)
	}
	assertValid(t, m)
	assertCounts(t, m, 6, 7, 2)
	if n := boundaryHalfEdges(m); n != 6 {
		t.Errorf("%d boundary halfedges, want 6", n)
	}

	if _, err := MakeQuad(m, a, b, c, d); !errors.Is(err, halfedge.ErrInvalidParameter) {
		t.Errorf("occupied side: err = %v", err)
	}
	if _, err := MakeFace(m, []halfedge.VertexID{a, b}); !errors.Is(err, halfedge.ErrInvalidParameter) {
		t.Errorf("two vertices: err = %v", err)
	}
	if _, err := MakeFace(m, []halfedge.VertexID{a, e, a}); !errors.Is(err, halfedge.ErrInvalidParameter) {
		t.Errorf("repeated vertex: err = %v", err)
	}
	assertCounts(t, m, 6, 7, 2)
}

func TestMakeFaceFillsHole(t *testing.T) {
	m := newBox(t)
	c := m.Connectivity()
	top, err := c.FaceVertices(boxTop(m))
	if err != nil {
		t.Fatal(err)
	}
	if err := DeleteFaces(m, []halfedge.FaceID{boxTop(m)}); err != nil {
		t.Fatal(err)
	}
	if _, err := MakeFace(m, top); err != nil {
		t.Fatalf("MakeFace: %v", err)
	}
	assertValid(t, m)
	assertCounts(t, m, 8, 12, 6)
	if n := boundaryHalfEdges(m); n != 0 {
		t.Errorf("%d boundary halfedges after filling, want 0", n)
	}

	// Every corner is now surrounded.
	if _, err := MakeFace(m, top[:3]); !errors.Is(err, halfedge.ErrInvalidParameter) {
		t.Errorf("closed mesh: err = %v", err)
	}
}

// twoLines returns a mesh holding two parallel polylines, one along y=0 and
// one along y=1, with the vertices of each in order.
func twoLines(t *testing.T, segments int) (*halfedge.Mesh, []halfedge.VertexID, []halfedge.VertexID) {
	t.Helper()
	a, err := primitives.Line(vecmath.Zero, vecmath.V3(float64(segments), 0, 0), segments)
	if err != nil {
		t.Fatal(err)
	}
	b, err := primitives.Line(vecmath.UnitY, vecmath.V3(float64(segments), 1, 0), segments)
	if err != nil {
		t.Fatal(err)
	}
	av := a.Connectivity().VertexIDs()
	remap, err := Merge(a, b)
	if err != nil {
		t.Fatal(err)
	}
	var bv []halfedge.VertexID
	for _, v := range b.Connectivity().VertexIDs() {
		bv = append(bv, remap.Vertices[v])
	}
	return a, av, bv
}

func reversed(vs []halfedge.VertexID) []halfedge.VertexID {
	out := make([]halfedge.VertexID, len(vs))
	for i, v := range vs {
		out[len(vs)-1-i] = v
	}
	return out
}

func TestBridgeChainsOpen(t *testing.T) {
	m, a, b := twoLines(t, 2)
	faces, err := BridgeChains(m, a, reversed(b), false)
	if err != nil {
		t.Fatalf("BridgeChains: %v", err)
	}
	assertValid(t, m)
	if len(faces) != 2 {
		t.Fatalf("got %d faces, want 2", len(faces))
	}
	assertCounts(t, m, 6, 7, 2)
	for _, f := range faces {
		if n, _ := m.FaceNormal(f); !n.ApproxEqual(vecmath.UnitZ, 1e-12) {
			t.Errorf("%v normal = %v, want +Z", f, n)
		}
	}
}

func TestBridgeChainsClosed(t *testing.T) {
	m, err := primitives.Circle(vecmath.Zero, 1, 8)
	if err != nil {
		t.Fatal(err)
	}
	upper, err := primitives.Circle(vecmath.UnitY, 1, 8)
	if err != nil {
		t.Fatal(err)
	}
	lower := m.Connectivity().VertexIDs()
	remap, err := Merge(m, upper)
	if err != nil {
		t.Fatal(err)
	}
	var top []halfedge.VertexID
	for _, v := range upper.Connectivity().VertexIDs() {
		top = append(top, remap.Vertices[v])
	}

	faces, err := BridgeChains(m, lower, reversed(top), true)
	if err != nil {
		t.Fatalf("BridgeChains: %v", err)
	}
	assertValid(t, m)
	if len(faces) != 8 {
		t.Errorf("got %d faces, want 8", len(faces))
	}
	assertCounts(t, m, 16, 24, 8)
	if n := boundaryHalfEdges(m); n != 16 {
		t.Errorf("%d boundary halfedges, want 16", n)
	}
}

func TestBridgeChainsErrors(t *testing.T) {
	m, a, b := twoLines(t, 2)
	tests := []struct {
		name   string
		c1, c2 []halfedge.VertexID
		closed bool
	}{
		{"length mismatch", a, b[:2], false},
		{"shared vertex", a, []halfedge.VertexID{b[0], b[1], a[2]}, false},
		{"too short", a[:1], b[:1], false},
		{"not a loop", a, reversed(b), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := BridgeChains(m, tt.c1, tt.c2, tt.closed); !errors.Is(err, halfedge.ErrInvalidParameter) {
				t.Errorf("err = %v, want ErrInvalidParameter", err)
			}
		})
	}
	assertCounts(t, m, 6, 4, 0)
}

func TestSortChain(t *testing.T) {
	line, err := primitives.Line(vecmath.Zero, vecmath.V3(3, 0, 0), 3)
	if err != nil {
		t.Fatal(err)
	}
	circle, err := primitives.Circle(vecmath.Zero, 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	box := newBox(t)
	bottom, err := box.Connectivity().FaceHalfEdges(box.Connectivity().FaceIDs()[0])
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name       string
		mesh       *halfedge.Mesh
		hs         []halfedge.HalfEdgeID
		wantLen    int
		wantClosed bool
	}{
		{"open polyline", line, line.Connectivity().HalfEdgeIDs(), 4, false},
		{"closed circle", circle, circle.Connectivity().HalfEdgeIDs(), 5, true},
		{"face loop", box, bottom, 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.mesh.Connectivity()
			chain, closed, err := SortChain(c, tt.hs)
			if err != nil {
				t.Fatalf("SortChain: %v", err)
			}
			if len(chain) != tt.wantLen || closed != tt.wantClosed {
				t.Fatalf("got %d vertices closed=%v, want %d closed=%v", len(chain), closed, tt.wantLen, tt.wantClosed)
			}
			for i := 0; i+1 < len(chain); i++ {
				if _, ok, _ := c.HalfEdgeBetween(chain[i], chain[i+1]); !ok {
					t.Errorf("%v and %v are not adjacent", chain[i], chain[i+1])
				}
			}
		})
	}

	// The closed box has no open side to follow.
	c := box.Connectivity()
	chain, _, _ := SortChain(c, bottom)
	h, _, _ := c.HalfEdgeBetween(chain[0], chain[1])
	if c.IsBoundary(h) {
		t.Errorf("box edge %v reported open", h)
	}

	if _, _, err := SortChain(c, nil); !errors.Is(err, halfedge.ErrInvalidParameter) {
		t.Errorf("empty chain: err = %v", err)
	}
}

func TestExtrudeWithCaps(t *testing.T) {
	m := newSquare(t, 0)
	f := m.Connectivity().FaceIDs()[0]

	sides, err := ExtrudeWithCaps(m, []halfedge.FaceID{f}, 1)
	if err != nil {
		t.Fatalf("ExtrudeWithCaps: %v", err)
	}
	if len(sides) != 4 {
		t.Errorf("got %d sides, want 4", len(sides))
	}
	assertValid(t, m)
	if m.NumFaces() != 6 || m.NumVertices() != 12 {
		t.Errorf("got %d faces, %d vertices; want 6, 12", m.NumFaces(), m.NumVertices())
	}
	downward := 0
	for _, g := range m.Connectivity().FaceIDs() {
		if n, _ := m.FaceNormal(g); n.ApproxEqual(vecmath.UnitZ.Neg(), 1e-12) {
			downward++
		}
	}
	if downward != 1 {
		t.Errorf("%d faces point down, want the single cap", downward)
	}
}
