package tessellate_test

import (
	"testing"

	"github.com/chazu/facet/pkg/halfedge"
	"github.com/chazu/facet/pkg/ops"
	"github.com/chazu/facet/pkg/primitives"
	"github.com/chazu/facet/pkg/selection"
	"github.com/chazu/facet/pkg/tessellate"
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

func TestSinglePart(t *testing.T) {
	parts, err := tessellate.Parts(newBox(t))
	if err != nil {
		t.Fatalf("Parts: %v", err)
	}
	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	p := parts[0]
	if p.Name != "material 0" {
		t.Errorf("name = %q", p.Name)
	}
	if p.VertexCount() != 8 || p.TriangleCount() != 12 {
		t.Errorf("got %d vertices, %d triangles; want 8, 12", p.VertexCount(), p.TriangleCount())
	}
	if err := p.Validate(); err != nil {
		t.Error(err)
	}
}

func TestPartsByMaterial(t *testing.T) {
	tests := []struct {
		name  string
		flat  bool
		verts []int // per part, checked in flat mode
	}{
		{"smooth", false, nil},
		{"flat", true, []int{24, 12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newBox(t)
			if err := ops.SetMaterial(m, selection.MustParse("0, 1"), 2); err != nil {
				t.Fatal(err)
			}
			if tt.flat {
				if err := ops.SetFlatNormals(m); err != nil {
					t.Fatal(err)
				}
			}

			parts, err := tessellate.Parts(m)
			if err != nil {
				t.Fatalf("Parts: %v", err)
			}
			if len(parts) != 2 {
				t.Fatalf("expected 2 parts, got %d", len(parts))
			}
			wantNames := []string{"material 0", "material 2"}
			wantTris := []int{8, 4}
			for i, p := range parts {
				if p.Name != wantNames[i] {
					t.Errorf("part %d: name = %q, want %q", i, p.Name, wantNames[i])
				}
				if p.TriangleCount() != wantTris[i] {
					t.Errorf("part %d: %d triangles, want %d", i, p.TriangleCount(), wantTris[i])
				}
				if tt.flat && p.VertexCount() != tt.verts[i] {
					t.Errorf("part %d: %d vertices, want %d", i, p.VertexCount(), tt.verts[i])
				}
				if err := p.Validate(); err != nil {
					t.Errorf("part %d: %v", i, err)
				}
			}
		})
	}
}

func TestFlatNormalsAreUnit(t *testing.T) {
	m := newBox(t)
	if err := ops.SetFlatNormals(m); err != nil {
		t.Fatal(err)
	}
	parts, err := tessellate.Parts(m)
	if err != nil {
		t.Fatal(err)
	}
	n := parts[0].Normals
	for i := 0; i < len(n); i += 3 {
		v := vecmath.V3(float64(n[i]), float64(n[i+1]), float64(n[i+2]))
		if l := v.Length(); l < 0.999 || l > 1.001 {
			t.Fatalf("normal %d has length %g", i/3, l)
		}
	}
}

func TestEmptyAndNil(t *testing.T) {
	parts, err := tessellate.Parts(nil)
	if err != nil || parts != nil {
		t.Errorf("nil mesh: %v, %v", parts, err)
	}
	parts, err = tessellate.Parts(halfedge.New())
	if err != nil || len(parts) != 0 {
		t.Errorf("empty mesh: %v, %v", parts, err)
	}
}

func TestWireMeshHasNoParts(t *testing.T) {
	m, err := primitives.Line(vecmath.Zero, vecmath.UnitX, 3)
	if err != nil {
		t.Fatal(err)
	}
	parts, err := tessellate.Parts(m)
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 0 {
		t.Errorf("expected no parts for a face-less mesh, got %d", len(parts))
	}
}
