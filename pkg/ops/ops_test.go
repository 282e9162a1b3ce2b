package ops

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/facet/pkg/halfedge"
	"github.com/chazu/facet/pkg/primitives"
	"github.com/chazu/facet/pkg/selection"
	"github.com/chazu/facet/pkg/vecmath"
)

func newBox(t *testing.T) *halfedge.Mesh {
	t.Helper()
	m, err := primitives.Box(vecmath.Zero, vecmath.One)
	if err != nil {
		t.Fatalf("Box: %v", err)
	}
	return m
}

func newSquare(t *testing.T, x0 float64) *halfedge.Mesh {
	t.Helper()
	m, err := halfedge.FromPolygons([]vecmath.Vec3{
		{X: x0, Y: 0, Z: 0},
		{X: x0 + 1, Y: 0, Z: 0},
		{X: x0 + 1, Y: 1, Z: 0},
		{X: x0, Y: 1, Z: 0},
	}, [][]int{{0, 1, 2, 3}})
	if err != nil {
		t.Fatalf("FromPolygons: %v", err)
	}
	return m
}

func assertValid(t *testing.T, m *halfedge.Mesh) {
	t.Helper()
	for _, e := range halfedge.Validate(m) {
		if e.Severity == halfedge.SeverityError {
			t.Errorf("validation: %v", e)
		}
	}
}

func assertCounts(t *testing.T, m *halfedge.Mesh, verts, edges, faces int) {
	t.Helper()
	if m.NumVertices() != verts || m.NumEdges() != edges || m.NumFaces() != faces {
		t.Errorf("got %d vertices, %d edges, %d faces; want %d, %d, %d",
			m.NumVertices(), m.NumEdges(), m.NumFaces(), verts, edges, faces)
	}
}

func boundaryHalfEdges(m *halfedge.Mesh) int {
	c := m.Connectivity()
	n := 0
	for _, h := range c.HalfEdgeIDs() {
		if c.IsBoundary(h) {
			n++
		}
	}
	return n
}

// boxTop is the +Y face of a box built by primitives.Box.
func boxTop(m *halfedge.Mesh) halfedge.FaceID {
	return m.Connectivity().FaceIDs()[1]
}

func TestExtrudeBoxFace(t *testing.T) {
	m := newBox(t)
	top := boxTop(m)

	sides, err := ExtrudeFaces(m, []halfedge.FaceID{top}, 1)
	if err != nil {
		t.Fatalf("ExtrudeFaces: %v", err)
	}
	if len(sides) != 4 {
		t.Errorf("got %d side faces, want 4", len(sides))
	}
	assertCounts(t, m, 12, 20, 10)
	assertValid(t, m)
	if n := boundaryHalfEdges(m); n != 0 {
		t.Errorf("closed box has %d boundary halfedges after extrude", n)
	}

	verts, err := m.Connectivity().FaceVertices(top)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range verts {
		if y := m.Position(v).Y; math.Abs(y-1.5) > 1e-9 {
			t.Errorf("top vertex %v at y=%g, want 1.5", v, y)
		}
	}
	n, err := m.FaceNormal(top)
	if err != nil {
		t.Fatal(err)
	}
	if !n.ApproxEqual(vecmath.UnitY, 1e-9) {
		t.Errorf("top normal = %v, want +Y", n)
	}
	for _, f := range sides {
		sn, _ := m.FaceNormal(f)
		if math.Abs(sn.Y) > 1e-9 || math.Abs(sn.Length()-1) > 1e-9 {
			t.Errorf("side %v normal = %v, want horizontal", f, sn)
		}
	}
}

func TestExtrudeOpenQuad(t *testing.T) {
	m := newSquare(t, 0)
	f := m.Connectivity().FaceIDs()[0]

	if _, err := ExtrudeFaces(m, []halfedge.FaceID{f}, 2); err != nil {
		t.Fatalf("ExtrudeFaces: %v", err)
	}
	assertCounts(t, m, 8, 12, 5)
	assertValid(t, m)
	if n := boundaryHalfEdges(m); n != 4 {
		t.Errorf("got %d boundary halfedges, want 4 around the base", n)
	}
	verts, _ := m.Connectivity().FaceVertices(f)
	for _, v := range verts {
		if z := m.Position(v).Z; math.Abs(z-2) > 1e-9 {
			t.Errorf("extruded vertex at z=%g, want 2", z)
		}
	}
}

func TestExtrudeAdjacentFaces(t *testing.T) {
	m, err := primitives.Grid(vecmath.Zero, 2, 1, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	faces := m.Connectivity().FaceIDs()

	sides, err := ExtrudeFaces(m, faces, 1)
	if err != nil {
		t.Fatalf("ExtrudeFaces: %v", err)
	}
	// The shared edge moves with both faces, so only the 6 rim edges get walls.
	if len(sides) != 6 {
		t.Errorf("got %d side faces, want 6", len(sides))
	}
	assertCounts(t, m, 12, 19, 8)
	assertValid(t, m)
}

func TestExtrudeCopiesFaceChannels(t *testing.T) {
	m := newBox(t)
	top := boxTop(m)
	mat, err := halfedge.CreateChannel[halfedge.FaceID, float64](m, halfedge.ChannelMaterial)
	if err != nil {
		t.Fatal(err)
	}
	mat.Set(top, 4)

	sides, err := ExtrudeFaces(m, []halfedge.FaceID{top}, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	mat, _ = halfedge.ChannelOf[halfedge.FaceID, float64](m, halfedge.ChannelMaterial)
	for _, f := range sides {
		if got := mat.Value(f); got != 4 {
			t.Errorf("side %v material = %g, want 4", f, got)
		}
	}
}

func TestDeleteFaces(t *testing.T) {
	tests := []struct {
		name     string
		faces    []int
		edges    int
		faceLeft int
		boundary int
	}{
		{"one face", []int{1}, 12, 5, 4},
		{"two adjacent faces", []int{0, 2}, 11, 4, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newBox(t)
			all := m.Connectivity().FaceIDs()
			var faces []halfedge.FaceID
			for _, i := range tt.faces {
				faces = append(faces, all[i])
			}
			if err := DeleteFaces(m, faces); err != nil {
				t.Fatalf("DeleteFaces: %v", err)
			}
			assertCounts(t, m, 8, tt.edges, tt.faceLeft)
			assertValid(t, m)
			if n := boundaryHalfEdges(m); n != tt.boundary {
				t.Errorf("got %d boundary halfedges, want %d", n, tt.boundary)
			}
		})
	}
}

func TestDeleteAllFacesEmptiesMesh(t *testing.T) {
	m := newSquare(t, 0)
	if err := DeleteFaces(m, m.Connectivity().FaceIDs()); err != nil {
		t.Fatal(err)
	}
	assertCounts(t, m, 0, 0, 0)
	if m.NumHalfEdges() != 0 {
		t.Errorf("%d halfedges left", m.NumHalfEdges())
	}
}

func TestDeleteVertex(t *testing.T) {
	m := newBox(t)
	v := m.Connectivity().VertexIDs()[0]
	if err := DeleteVertex(m, v); err != nil {
		t.Fatalf("DeleteVertex: %v", err)
	}
	assertCounts(t, m, 7, 9, 3)
	assertValid(t, m)
	if m.Connectivity().HasVertex(v) {
		t.Error("deleted vertex is still live")
	}
	if err := DeleteVertex(m, v); !errors.Is(err, halfedge.ErrInvalidHandle) {
		t.Errorf("second delete: err = %v, want ErrInvalidHandle", err)
	}
}

func TestMergeByDistance(t *testing.T) {
	m := newSquare(t, 0)
	if _, err := Merge(m, newSquare(t, 1)); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	assertCounts(t, m, 8, 8, 2)

	removed, err := MergeByDistance(m, 1e-4)
	if err != nil {
		t.Fatalf("MergeByDistance: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed %d vertices, want 2", removed)
	}
	assertCounts(t, m, 6, 7, 2)
	assertValid(t, m)
	if n := boundaryHalfEdges(m); n != 6 {
		t.Errorf("got %d boundary halfedges, want 6", n)
	}
}

func TestMergeByDistanceKeepsFaceChannels(t *testing.T) {
	m := newSquare(t, 0)
	remap, err := Merge(m, newSquare(t, 1+5e-5))
	if err != nil {
		t.Fatal(err)
	}
	if len(remap.Faces) != 1 {
		t.Fatalf("remap has %d faces", len(remap.Faces))
	}
	if err := SetMaterial(m, selection.Indices(1), 2); err != nil {
		t.Fatal(err)
	}

	if _, err := MergeByDistance(m, 1e-4); err != nil {
		t.Fatal(err)
	}
	mat, err := halfedge.ChannelOf[halfedge.FaceID, float64](m, halfedge.ChannelMaterial)
	if err != nil {
		t.Fatal(err)
	}
	faces := m.Connectivity().FaceIDs()
	if mat.Value(faces[0]) != 0 || mat.Value(faces[1]) != 2 {
		t.Errorf("materials = %g, %g; want 0, 2", mat.Value(faces[0]), mat.Value(faces[1]))
	}
}

func TestMergeByDistanceErrors(t *testing.T) {
	m := newSquare(t, 0)
	if _, err := MergeByDistance(m, -1); !errors.Is(err, halfedge.ErrInvalidParameter) {
		t.Errorf("negative tolerance: err = %v", err)
	}
	line, err := primitives.Line(vecmath.Zero, vecmath.UnitX, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := MergeByDistance(line, 0.1); !errors.Is(err, halfedge.ErrInvalidParameter) {
		t.Errorf("wire mesh: err = %v", err)
	}
}

func TestSubdivide(t *testing.T) {
	tests := []struct {
		name       string
		build      func(t *testing.T) *halfedge.Mesh
		technique  Technique
		iterations int
		verts      int
		faces      int
	}{
		{"linear quad", func(t *testing.T) *halfedge.Mesh { return newSquare(t, 0) }, Linear, 1, 9, 4},
		{"linear quad twice", func(t *testing.T) *halfedge.Mesh { return newSquare(t, 0) }, Linear, 2, 25, 16},
		{"catmull-clark box", newBox, CatmullClark, 1, 26, 24},
		{"catmull-clark box twice", newBox, CatmullClark, 2, 98, 96},
		{"catmull-clark quad", func(t *testing.T) *halfedge.Mesh { return newSquare(t, 0) }, CatmullClark, 1, 9, 4},
		{"zero iterations", newBox, CatmullClark, 0, 8, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.build(t)
			if err := Subdivide(m, tt.iterations, tt.technique); err != nil {
				t.Fatalf("Subdivide: %v", err)
			}
			if m.NumVertices() != tt.verts || m.NumFaces() != tt.faces {
				t.Errorf("got %d vertices, %d faces; want %d, %d",
					m.NumVertices(), m.NumFaces(), tt.verts, tt.faces)
			}
			assertValid(t, m)
		})
	}
}

func TestCatmullClarkBoxPositions(t *testing.T) {
	m := newBox(t)
	if err := Subdivide(m, 1, CatmullClark); err != nil {
		t.Fatal(err)
	}
	// Corners of a cube of half-size h land at 5h/9 on every axis.
	corner := m.Position(m.Connectivity().VertexIDs()[0])
	want := vecmath.V3(-5.0/18, -5.0/18, -5.0/18)
	if !corner.ApproxEqual(want, 1e-9) {
		t.Errorf("corner = %v, want %v", corner, want)
	}
	lo, hi, ok := m.Bounds()
	if !ok || !lo.ApproxEqual(vecmath.V3(-0.5, -0.5, -0.5), 1e-9) || !hi.ApproxEqual(vecmath.V3(0.5, 0.5, 0.5), 1e-9) {
		t.Errorf("bounds = %v..%v, want the face centres to stay on the cube", lo, hi)
	}
}

func TestLinearSubdividePreservesPlane(t *testing.T) {
	m := newSquare(t, 0)
	if err := Subdivide(m, 1, Linear); err != nil {
		t.Fatal(err)
	}
	c := m.Connectivity()
	for _, v := range c.VertexIDs() {
		if z := m.Position(v).Z; z != 0 {
			t.Errorf("%v left the plane: z=%g", v, z)
		}
	}
	center := m.Position(c.VertexIDs()[8])
	if center != vecmath.V3(0.5, 0.5, 0) {
		t.Errorf("face point = %v", center)
	}
}

func TestSubdivideErrors(t *testing.T) {
	m := newBox(t)
	if err := Subdivide(m, -1, Linear); !errors.Is(err, halfedge.ErrInvalidParameter) {
		t.Errorf("negative iterations: err = %v", err)
	}
	circle, err := primitives.Circle(vecmath.Zero, 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	if err := Subdivide(circle, 1, Linear); !errors.Is(err, halfedge.ErrInvalidParameter) {
		t.Errorf("wire mesh: err = %v", err)
	}
}

func TestParseTechnique(t *testing.T) {
	tests := []struct {
		in   string
		want Technique
		ok   bool
	}{
		{"linear", Linear, true},
		{"catmull-clark", CatmullClark, true},
		{"Catmull_Clark", CatmullClark, true},
		{"smooth", CatmullClark, true},
		{"loop", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTechnique(tt.in)
			if (err == nil) != tt.ok {
				t.Fatalf("err = %v, want ok=%v", err, tt.ok)
			}
			if tt.ok && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDivideEdge(t *testing.T) {
	m := newSquare(t, 0)
	c := m.Connectivity()
	f := c.FaceIDs()[0]
	hs, _ := c.FaceHalfEdges(f)
	h := hs[0] // (0,0,0) -> (1,0,0)

	x, err := DivideEdge(m, h, 0.25)
	if err != nil {
		t.Fatalf("DivideEdge: %v", err)
	}
	if p := m.Position(x); !p.ApproxEqual(vecmath.V3(0.25, 0, 0), 1e-12) {
		t.Errorf("new vertex at %v", p)
	}
	assertCounts(t, m, 5, 5, 1)
	assertValid(t, m)
	if n, _ := c.FaceEdgeCount(f); n != 5 {
		t.Errorf("face has %d sides, want 5", n)
	}
	if from, _ := c.Endpoints(h); from != x {
		t.Errorf("h now starts at %v, want %v", from, x)
	}
}

func TestDivideWireEdge(t *testing.T) {
	m, err := primitives.Line(vecmath.Zero, vecmath.UnitX, 1)
	if err != nil {
		t.Fatal(err)
	}
	h := m.Connectivity().HalfEdgeIDs()[0]
	if _, err := DivideEdge(m, h, 0.5); err != nil {
		t.Fatalf("DivideEdge: %v", err)
	}
	assertCounts(t, m, 3, 2, 0)
	assertValid(t, m)
}

func TestDivideEdgeErrors(t *testing.T) {
	m := newSquare(t, 0)
	h := m.Connectivity().HalfEdgeIDs()[0]
	if _, err := DivideEdge(m, h, 1.5); !errors.Is(err, halfedge.ErrInvalidParameter) {
		t.Errorf("t out of range: err = %v", err)
	}
	if _, err := DivideEdge(m, halfedge.HalfEdgeID{}, 0.5); !errors.Is(err, halfedge.ErrInvalidHandle) {
		t.Errorf("zero handle: err = %v", err)
	}
}

func TestCutAndDissolve(t *testing.T) {
	m := newSquare(t, 0)
	c := m.Connectivity()
	vs := c.VertexIDs()

	cut, err := CutFace(m, vs[0], vs[2])
	if err != nil {
		t.Fatalf("CutFace: %v", err)
	}
	assertCounts(t, m, 4, 5, 2)
	assertValid(t, m)
	if from, to := c.Endpoints(cut); from != vs[0] || to != vs[2] {
		t.Errorf("cut runs %v -> %v", from, to)
	}
	for _, f := range c.FaceIDs() {
		if n, _ := c.FaceEdgeCount(f); n != 3 {
			t.Errorf("%v has %d sides, want 3", f, n)
		}
		if nrm, _ := m.FaceNormal(f); !nrm.ApproxEqual(vecmath.UnitZ, 1e-9) {
			t.Errorf("%v normal = %v, want +Z", f, nrm)
		}
	}

	if err := DissolveEdge(m, cut); err != nil {
		t.Fatalf("DissolveEdge: %v", err)
	}
	assertCounts(t, m, 4, 4, 1)
	assertValid(t, m)
}

func TestCutFaceErrors(t *testing.T) {
	m := newSquare(t, 0)
	vs := m.Connectivity().VertexIDs()
	tests := []struct {
		name string
		v, w halfedge.VertexID
		want error
	}{
		{"existing edge", vs[0], vs[1], halfedge.ErrInvalidParameter},
		{"same vertex", vs[0], vs[0], halfedge.ErrInvalidParameter},
		{"dead vertex", vs[0], halfedge.VertexID{}, halfedge.ErrInvalidHandle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CutFace(m, tt.v, tt.w); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	assertCounts(t, m, 4, 4, 1)
}

func TestDissolveBoundaryEdgeFails(t *testing.T) {
	m := newSquare(t, 0)
	before := m.String()
	h := m.Connectivity().HalfEdgeIDs()[0]
	if err := DissolveEdge(m, h); !errors.Is(err, halfedge.ErrInvalidParameter) {
		t.Errorf("err = %v, want ErrInvalidParameter", err)
	}
	if m.String() != before {
		t.Error("failed dissolve changed the mesh")
	}
}

func TestFailedEditLeavesMeshUnchanged(t *testing.T) {
	m := newBox(t)
	stale := m.Connectivity().FaceIDs()[0]
	if err := DeleteFaces(m, []halfedge.FaceID{stale}); err != nil {
		t.Fatal(err)
	}
	snapshot := m.Clone()

	live := m.Connectivity().FaceIDs()[0]
	_, err := ExtrudeFaces(m, []halfedge.FaceID{live, stale}, 1)
	if !errors.Is(err, halfedge.ErrInvalidHandle) {
		t.Fatalf("err = %v, want ErrInvalidHandle", err)
	}
	if m.String() != snapshot.String() {
		t.Errorf("mesh changed: %s, was %s", m, snapshot)
	}
	for _, v := range m.Connectivity().VertexIDs() {
		if m.Position(v) != snapshot.Position(v) {
			t.Errorf("%v moved", v)
		}
	}
}

// TestHeldChannelsFollowEdits holds channel pointers across topology edits
// and checks they keep reading and writing the mesh's current state.
func TestHeldChannelsFollowEdits(t *testing.T) {
	tests := []struct {
		name      string
		edit      func(m *halfedge.Mesh, f halfedge.FaceID) error
		keepsFace bool
	}{
		{"delete faces", func(m *halfedge.Mesh, f halfedge.FaceID) error {
			return DeleteFaces(m, []halfedge.FaceID{f})
		}, false},
		{"extrude", func(m *halfedge.Mesh, f halfedge.FaceID) error {
			_, err := ExtrudeFaces(m, []halfedge.FaceID{f}, 1)
			return err
		}, true},
		{"subdivide", func(m *halfedge.Mesh, f halfedge.FaceID) error {
			return Subdivide(m, 1, Linear)
		}, false},
		{"merge by distance", func(m *halfedge.Mesh, f halfedge.FaceID) error {
			_, err := MergeByDistance(m, 1e-6)
			return err
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newBox(t)
			f := boxTop(m)
			mat, err := halfedge.EnsureChannel[halfedge.FaceID, float64](m, halfedge.ChannelMaterial)
			if err != nil {
				t.Fatal(err)
			}
			mat.Set(f, 7)
			pos := m.Positions()

			if err := tt.edit(m, f); err != nil {
				t.Fatalf("edit: %v", err)
			}
			assertValid(t, m)

			registered, err := halfedge.ChannelOf[halfedge.FaceID, float64](m, halfedge.ChannelMaterial)
			if err != nil {
				t.Fatal(err)
			}
			if registered != mat {
				t.Error("material channel was replaced by the edit")
			}
			if m.Positions() != pos {
				t.Error("position channel was replaced by the edit")
			}

			v, ok := mat.Get(f)
			if ok != tt.keepsFace {
				t.Errorf("Get(%v) = %g, %v; want found = %v", f, v, ok, tt.keepsFace)
			}
			if tt.keepsFace && v != 7 {
				t.Errorf("Get(%v) = %g, want 7", f, v)
			}

			c := m.Connectivity()
			for _, g := range c.FaceIDs() {
				mat.Set(g, 3)
			}
			for _, g := range c.FaceIDs() {
				if got, ok := registered.Get(g); !ok || got != 3 {
					t.Fatalf("write through held channel lost for %v: %g, %v", g, got, ok)
				}
			}
			for _, vid := range c.VertexIDs() {
				if _, ok := pos.Get(vid); !ok {
					t.Fatalf("held position channel has no value for live %v", vid)
				}
			}
		})
	}
}

// TestRebuildRetiresHandles checks that a rebuilt mesh does not hand old
// handles to new elements.
func TestRebuildRetiresHandles(t *testing.T) {
	m := newBox(t)
	oldFaces := m.Connectivity().FaceIDs()
	oldVerts := m.Connectivity().VertexIDs()
	if err := Subdivide(m, 1, Linear); err != nil {
		t.Fatal(err)
	}
	c := m.Connectivity()
	for _, f := range oldFaces {
		if c.HasFace(f) {
			t.Errorf("old %v resolves after subdivide", f)
		}
	}
	for _, v := range oldVerts {
		if c.HasVertex(v) {
			t.Errorf("old %v resolves after subdivide", v)
		}
	}
}

func TestMergeByDistanceLargeCoordinates(t *testing.T) {
	for _, x0 := range []float64{0, 1e4, 1e5, 1e6, -1e7} {
		for _, tol := range []float64{0, 1e-4} {
			m := newSquare(t, x0)
			if _, err := Merge(m, newSquare(t, x0+1)); err != nil {
				t.Fatal(err)
			}
			removed, err := MergeByDistance(m, tol)
			if err != nil {
				t.Fatalf("x0=%g tol=%g: %v", x0, tol, err)
			}
			if removed != 2 {
				t.Errorf("x0=%g tol=%g: removed %d vertices, want 2", x0, tol, removed)
			}
			assertValid(t, m)
		}
	}
}

func TestMergeByDistanceExactTolerance(t *testing.T) {
	m := newSquare(t, 0)
	if _, err := Merge(m, newSquare(t, 1.5)); err != nil {
		t.Fatal(err)
	}
	// The right edge of the first square and the left edge of the second
	// are exactly 0.5 apart.
	removed, err := MergeByDistance(m, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("removed %d vertices, want 2", removed)
	}
}
