package ops

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/facet/pkg/halfedge"
	"github.com/chazu/facet/pkg/primitives"
	"github.com/chazu/facet/pkg/vecmath"
)

func TestCopyToPoints(t *testing.T) {
	points, err := primitives.Line(vecmath.Zero, vecmath.V3(4, 0, 0), 2)
	if err != nil {
		t.Fatal(err)
	}
	box := newBox(t)

	out, err := CopyToPoints(points, box)
	if err != nil {
		t.Fatalf("CopyToPoints: %v", err)
	}
	assertValid(t, out)
	assertCounts(t, out, 24, 36, 18)
	lo, hi, _ := out.Bounds()
	if !lo.ApproxEqual(vecmath.V3(-0.5, -0.5, -0.5), 1e-12) || !hi.ApproxEqual(vecmath.V3(4.5, 0.5, 0.5), 1e-12) {
		t.Errorf("bounds = %v..%v", lo, hi)
	}

	idx, err := halfedge.ChannelOf[halfedge.HalfEdgeID, float64](out, ChannelInstanceIdx)
	if err != nil {
		t.Fatal(err)
	}
	perInstance := make(map[float64]int)
	for _, h := range out.Connectivity().HalfEdgeIDs() {
		perInstance[idx.Value(h)]++
	}
	for i := 0.0; i < 3; i++ {
		if perInstance[i] != 24 {
			t.Errorf("instance %g has %d halfedges, want 24", i, perInstance[i])
		}
	}
	if box.NumVertices() != 8 {
		t.Errorf("instance mesh changed: %d vertices", box.NumVertices())
	}
}

func TestCopyToPointsChannels(t *testing.T) {
	points := halfedge.New()
	p := points.AddVertex(vecmath.V3(10, 0, 0))
	size, err := halfedge.CreateChannel[halfedge.VertexID, float64](points, ChannelSize)
	if err != nil {
		t.Fatal(err)
	}
	normal, err := halfedge.CreateChannel[halfedge.VertexID, vecmath.Vec3](points, ChannelNormal)
	if err != nil {
		t.Fatal(err)
	}
	tangent, err := halfedge.CreateChannel[halfedge.VertexID, vecmath.Vec3](points, ChannelTangent)
	if err != nil {
		t.Fatal(err)
	}
	size.Set(p, 3)
	normal.Set(p, vecmath.UnitX)
	tangent.Set(p, vecmath.UnitZ)

	stick, err := primitives.Line(vecmath.Zero, vecmath.UnitY, 1)
	if err != nil {
		t.Fatal(err)
	}
	out, err := CopyToPoints(points, stick)
	if err != nil {
		t.Fatalf("CopyToPoints: %v", err)
	}
	// The stick's +Y end follows the normal and is scaled by size.
	var got []vecmath.Vec3
	for _, v := range out.Connectivity().VertexIDs() {
		got = append(got, out.Position(v))
	}
	want := []vecmath.Vec3{vecmath.V3(10, 0, 0), vecmath.V3(13, 0, 0)}
	if len(got) != len(want) {
		t.Fatalf("got %d vertices, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].ApproxEqual(want[i], 1e-12) {
			t.Errorf("vertex %d at %v, want %v", i, got[i], want[i])
		}
	}
}

func TestOrientation(t *testing.T) {
	tests := []struct {
		name            string
		normal, tangent vecmath.Vec3
		in, want        vecmath.Vec3
	}{
		{"identity frame", vecmath.UnitY, vecmath.UnitZ, vecmath.V3(1, 2, 3), vecmath.V3(1, 2, 3)},
		{"normal along x", vecmath.UnitX, vecmath.UnitZ, vecmath.UnitY, vecmath.UnitX},
		{"skewed tangent", vecmath.UnitY, vecmath.V3(0, 5, 2), vecmath.UnitZ, vecmath.UnitZ},
		{"parallel tangent", vecmath.UnitY, vecmath.UnitY, vecmath.UnitX, vecmath.UnitX},
		{"zero normal", vecmath.Zero, vecmath.UnitZ, vecmath.UnitX, vecmath.UnitX},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := orientation(tt.normal, tt.tangent).Apply(tt.in); !got.ApproxEqual(tt.want, 1e-12) {
				t.Errorf("orientation(%v, %v) maps %v to %v, want %v", tt.normal, tt.tangent, tt.in, got, tt.want)
			}
		})
	}
}

func TestVertexAttributeTransfer(t *testing.T) {
	src := newBox(t)
	weight, err := halfedge.CreateChannel[halfedge.VertexID, float64](src, "weight")
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range src.Connectivity().VertexIDs() {
		weight.Set(v, src.Position(v).X)
	}
	dst, err := primitives.UVSphere(vecmath.Zero, 2, 8, 4)
	if err != nil {
		t.Fatal(err)
	}

	if err := VertexAttributeTransfer(src, dst, "weight", halfedge.TypeFloat); err != nil {
		t.Fatalf("VertexAttributeTransfer: %v", err)
	}
	got, err := halfedge.ChannelOf[halfedge.VertexID, float64](dst, "weight")
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range dst.Connectivity().VertexIDs() {
		x := dst.Position(v).X
		if math.Abs(x) < 1e-9 {
			continue
		}
		if want := math.Copysign(0.5, x); got.Value(v) != want {
			t.Errorf("vertex at x=%g took %g, want %g", x, got.Value(v), want)
		}
	}
}

func TestVertexAttributeTransferErrors(t *testing.T) {
	src := newBox(t)
	if _, err := halfedge.CreateChannel[halfedge.VertexID, bool](src, "flag"); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name    string
		src     *halfedge.Mesh
		channel string
		vt      halfedge.ValueType
		want    error
	}{
		{"position", src, halfedge.ChannelPosition, halfedge.TypeVec3, halfedge.ErrInvalidParameter},
		{"missing channel", src, "weight", halfedge.TypeFloat, halfedge.ErrChannelNotFound},
		{"wrong type", src, "flag", halfedge.TypeFloat, halfedge.ErrChannelTypeMismatch},
		{"empty source", halfedge.New(), "flag", halfedge.TypeBool, halfedge.ErrChannelNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := newBox(t)
			err := VertexAttributeTransfer(tt.src, dst, tt.channel, tt.vt)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if dst.HasChannel(halfedge.KindVertex, tt.channel) && tt.channel != halfedge.ChannelPosition {
				t.Errorf("failed transfer created %q on dst", tt.channel)
			}
		})
	}
}
